package cli

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fiis/internal/config"
	"github.com/aristath/fiis/internal/di"
	"github.com/aristath/fiis/internal/modules/ledger"
	testutil "github.com/aristath/fiis/internal/testing"
)

type harness struct {
	app    *App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/funds/abcd11" {
			fmt.Fprint(w, testutil.LabeledBlockPage("1,20"))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(site.Close)

	cfg := &config.Config{
		DataDir: t.TempDir(),
		Fetch: config.FetchConfig{
			BaseURL:   site.URL + "/funds",
			Timeout:   2 * time.Second,
			UserAgent: "test",
		},
	}

	container, _, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Close)

	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	h.app = &App{
		Open:   func() (*di.Container, func(), error) { return container, func() {}, nil },
		Stdin:  strings.NewReader(""),
		Stdout: h.stdout,
		Stderr: h.stderr,
	}
	return h
}

// run executes cmd with args and returns its captured stdout
func (h *harness) run(t *testing.T, cmd subcommands.Command, args ...string) (subcommands.ExitStatus, string) {
	t.Helper()

	h.stdout.Reset()
	h.stderr.Reset()

	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))

	status := cmd.Execute(context.Background(), f)
	return status, h.stdout.String()
}

func TestParsePositions(t *testing.T) {
	input := `Fundo    Quantidade
abcd11   100

EFGH11   1.250
lonely
IJKL11   12,5
`
	positions, err := ParsePositions(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, positions, 3)

	assert.Equal(t, "ABCD11", positions[0].Ticker)
	assert.True(t, positions[0].Quantity.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "EFGH11", positions[1].Ticker)
	assert.True(t, positions[1].Quantity.Equal(decimal.NewFromInt(1250)))
	assert.True(t, positions[2].Quantity.Equal(decimal.RequireFromString("12.5")))
}

func TestParsePositionsInvalidQuantity(t *testing.T) {
	_, err := ParsePositions(strings.NewReader("ABCD11 100\nEFGH11 lots\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParsePositionsRejectsNegativeQuantity(t *testing.T) {
	_, err := ParsePositions(strings.NewReader("ABCD11 100\nEFGH11 -5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.ErrorIs(t, err, ledger.ErrInvalidPosition)
}

func TestAddRejectsNegativeQuantity(t *testing.T) {
	h := newHarness(t)

	status, _ := h.run(t, &addCmd{app: h.app}, "abcd11", "-5")
	assert.Equal(t, subcommands.ExitUsageError, status)
	assert.Contains(t, h.stderr.String(), "invalid quantity")

	status, out := h.run(t, &listCmd{app: h.app})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "No funds tracked.\n", out)
}

func TestPortfolioCommands(t *testing.T) {
	h := newHarness(t)

	status, out := h.run(t, &listCmd{app: h.app})
	assert.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "No funds tracked.\n", out)

	status, out = h.run(t, &addCmd{app: h.app}, "abcd11", "100")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "ABCD11 100\n", out)

	status, _ = h.run(t, &addCmd{app: h.app}, "abcd11")
	assert.Equal(t, subcommands.ExitUsageError, status)

	h.app.Stdin = strings.NewReader("Fundo Quantidade\nEFGH11 5\nABCD11 200\n")
	status, out = h.run(t, &importCmd{app: h.app})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "Imported 2 funds.\n", out)

	status, out = h.run(t, &listCmd{app: h.app})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "ABCD11 200\nEFGH11 5\n", out)

	status, out = h.run(t, &removeCmd{app: h.app}, "efgh11")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "Removed EFGH11.\n", out)

	status, _ = h.run(t, &removeCmd{app: h.app}, "efgh11")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, h.stderr.String(), "EFGH11 is not tracked")
}

func TestImportFromFile(t *testing.T) {
	h := newHarness(t)

	path := filepath.Join(t.TempDir(), "carteira.txt")
	require.NoError(t, os.WriteFile(path, []byte("ABCD11 10\n"), 0644))

	status, out := h.run(t, &importCmd{app: h.app}, path)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Equal(t, "Imported 1 funds.\n", out)

	status, _ = h.run(t, &importCmd{app: h.app}, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, subcommands.ExitFailure, status)
}

func TestFetchAndSummary(t *testing.T) {
	h := newHarness(t)

	h.run(t, &addCmd{app: h.app}, "ABCD11", "100")
	h.run(t, &addCmd{app: h.app}, "GONE11", "5")

	status, out := h.run(t, &fetchCmd{app: h.app})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "ABCD11: R$ 1,2 per share")
	assert.Contains(t, out, "GONE11: fetch_error")
	assert.Contains(t, out, "1 ok, 1 failed")

	status, out = h.run(t, &summaryCmd{app: h.app})
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out, "Funds:")
	assert.Contains(t, out, "R$120,00")
	assert.Contains(t, out, "Top yield:")

	status, _ = h.run(t, &summaryCmd{app: h.app}, "-month", "2024-13")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestBackupCommand(t *testing.T) {
	h := newHarness(t)

	status, _ := h.run(t, &backupCmd{app: h.app})
	assert.Equal(t, subcommands.ExitUsageError, status)
	assert.Contains(t, h.stderr.String(), "BACKUP_BUCKET")

	out := t.TempDir()
	status, stdout := h.run(t, &backupCmd{app: h.app}, "-out", out)
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, stdout, "fiis-backup-")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".tar.gz"))
}
