package cli

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/aristath/fiis/internal/database"
	"github.com/aristath/fiis/internal/domain"
	"github.com/aristath/fiis/internal/modules/ledger"
)

type addCmd struct {
	app *App
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a fund or replace its quantity" }
func (*addCmd) Usage() string {
	return `add <ticker> <qty>

  Tracks a fund with the given number of shares. An existing ticker has its
  quantity replaced. The quantity accepts "1.234", "1234,5" or "100"; signed
  values are rejected.
`
}

func (*addCmd) SetFlags(*flag.FlagSet) {}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		c.app.errorf("add expects <ticker> <qty>")
		return subcommands.ExitUsageError
	}

	qty, err := ledger.ParseQuantity(f.Arg(1))
	if err != nil {
		c.app.errorf("invalid quantity: %v", err)
		return subcommands.ExitUsageError
	}

	container, release, err := c.app.Open()
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer release()

	fund, err := container.LedgerRepo.UpsertFund(ctx, container.LedgerDB.Conn(), f.Arg(0), qty)
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(c.app.Stdout, "%s %s\n", fund.Ticker, fund.Quantity.String())
	return subcommands.ExitSuccess
}

type importCmd struct {
	app *App
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import funds from a file or stdin" }
func (*importCmd) Usage() string {
	return `import [path|-]

  Reads one "TICKER QTY" pair per line (whitespace separated) from path, or
  from stdin when path is "-" or omitted. Blank lines and header lines naming
  the fund and quantity columns ("Fundo Quantidade") are skipped. Every
  position is written in one transaction.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path := "-"
	if f.NArg() > 1 {
		c.app.errorf("import expects at most one path")
		return subcommands.ExitUsageError
	}
	if f.NArg() == 1 {
		path = f.Arg(0)
	}

	var input io.Reader = c.app.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			c.app.errorf("%v", err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		input = file
	}

	positions, err := ParsePositions(input)
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	if len(positions) == 0 {
		fmt.Fprintln(c.app.Stdout, "No positions found.")
		return subcommands.ExitSuccess
	}

	container, release, err := c.app.Open()
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer release()

	var imported int
	err = database.WithTransaction(ctx, container.LedgerDB.Conn(), func(tx *sql.Tx) error {
		n, err := container.LedgerRepo.UpsertFunds(ctx, tx, positions)
		imported = n
		return err
	})
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(c.app.Stdout, "Imported %d funds.\n", imported)
	return subcommands.ExitSuccess
}

// ParsePositions reads "TICKER QTY" lines. Lines with fewer than two fields
// and header lines are skipped; an unparsable quantity is an error naming the line.
func ParsePositions(r io.Reader) ([]domain.FundPosition, error) {
	var positions []domain.FundPosition

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isHeaderLine(line) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		qty, err := ledger.ParseQuantity(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid quantity: %w", lineNo, err)
		}

		positions = append(positions, domain.FundPosition{
			Ticker:   domain.NormalizeTicker(fields[0]),
			Quantity: qty,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	return positions, nil
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	return (strings.Contains(lower, "fundo") || strings.Contains(lower, "fii")) &&
		strings.Contains(lower, "quantidade")
}

type listCmd struct {
	app *App
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list tracked funds" }
func (*listCmd) Usage() string {
	return `list

  Prints every tracked fund and its quantity, by ticker.
`
}

func (*listCmd) SetFlags(*flag.FlagSet) {}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, release, err := c.app.Open()
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer release()

	funds, err := container.LedgerRepo.ListFunds(ctx, container.LedgerDB.Conn())
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	if len(funds) == 0 {
		fmt.Fprintln(c.app.Stdout, "No funds tracked.")
		return subcommands.ExitSuccess
	}

	for _, fund := range funds {
		fmt.Fprintf(c.app.Stdout, "%s %s\n", fund.Ticker, fund.Quantity.String())
	}
	return subcommands.ExitSuccess
}

type removeCmd struct {
	app *App
}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "stop tracking a fund" }
func (*removeCmd) Usage() string {
	return `remove <ticker>

  Deletes the fund and every distribution recorded for it.
`
}

func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (c *removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		c.app.errorf("remove expects <ticker>")
		return subcommands.ExitUsageError
	}

	container, release, err := c.app.Open()
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer release()

	deleted, err := container.LedgerRepo.DeleteFund(ctx, container.LedgerDB.Conn(), f.Arg(0))
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	if !deleted {
		c.app.errorf("%s is not tracked", domain.NormalizeTicker(f.Arg(0)))
		return subcommands.ExitFailure
	}

	fmt.Fprintf(c.app.Stdout, "Removed %s.\n", domain.NormalizeTicker(f.Arg(0)))
	return subcommands.ExitSuccess
}
