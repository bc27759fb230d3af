// Package cli implements the fiis command line: portfolio maintenance,
// one-off fetch runs, summaries and backups.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/aristath/fiis/internal/di"
)

// App carries what every command needs. Open wires the container; the
// returned func releases it.
type App struct {
	Open   func() (*di.Container, func(), error)
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Register adds every command to c
func Register(c *subcommands.Commander, app *App) {
	c.Register(&addCmd{app: app}, "portfolio")
	c.Register(&importCmd{app: app}, "portfolio")
	c.Register(&listCmd{app: app}, "portfolio")
	c.Register(&removeCmd{app: app}, "portfolio")

	c.Register(&fetchCmd{app: app}, "distributions")
	c.Register(&summaryCmd{app: app}, "distributions")

	c.Register(&backupCmd{app: app}, "maintenance")
}

func (a *App) errorf(format string, args ...interface{}) {
	fmt.Fprintf(a.Stderr, "Error: "+format+"\n", args...)
}

// formatBRL renders a monetary total rounded to cents, e.g. "R$1.234,56"
func formatBRL(d decimal.Decimal) string {
	cents := d.Round(2).Shift(2).IntPart()
	return money.New(cents, money.BRL).Display()
}

// formatAmount renders a per-share amount at full precision with a decimal comma
func formatAmount(d decimal.Decimal) string {
	return "R$ " + strings.Replace(d.String(), ".", ",", 1)
}
