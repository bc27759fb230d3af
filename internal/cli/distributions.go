package cli

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/aristath/fiis/internal/domain"
	"github.com/aristath/fiis/internal/modules/batch"
	"github.com/aristath/fiis/internal/modules/reports"
)

type fetchCmd struct {
	app *App
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "fetch the latest distribution of every fund" }
func (*fetchCmd) Usage() string {
	return `fetch

  Downloads each tracked fund's page, extracts the latest distribution per
  share and records it for the current month. A fund that fails is reported
  and skipped.
`
}

func (*fetchCmd) SetFlags(*flag.FlagSet) {}

func (c *fetchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, release, err := c.app.Open()
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer release()

	report, err := container.BatchRunner.Run(ctx)
	if err != nil && report == nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}

	if len(report.Results) == 0 && err == nil {
		fmt.Fprintln(c.app.Stdout, "No funds tracked.")
		return subcommands.ExitSuccess
	}

	for _, result := range report.Results {
		if result.Status == batch.StatusOK {
			fmt.Fprintf(c.app.Stdout, "%s: %s per share (total ~ %s)\n",
				result.Ticker, formatAmount(result.AmountPerShare), formatBRL(result.Total))
			continue
		}
		fmt.Fprintf(c.app.Stdout, "%s: %s (%v)\n", result.Ticker, result.Status, result.Err)
	}
	fmt.Fprintf(c.app.Stdout, "%s: %d ok, %d failed\n", report.Month, report.Succeeded(), report.Failed())

	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	app   *App
	month string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show the monthly distribution summary" }
func (*summaryCmd) Usage() string {
	return `summary [-month YYYY-MM]

  Prints totals for the given month, or the latest recorded month.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Month to summarize (YYYY-MM); defaults to the latest")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var month *domain.Month
	if c.month != "" {
		m, err := domain.ParseMonth(c.month)
		if err != nil {
			c.app.errorf("%v", err)
			return subcommands.ExitUsageError
		}
		month = &m
	}

	container, release, err := c.app.Open()
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}
	defer release()

	var summary *reports.Summary
	if month == nil {
		summary, err = container.ReportsService.Summary(ctx)
	} else {
		summary, err = container.ReportsService.Summarize(ctx, month)
	}
	if err != nil {
		c.app.errorf("%v", err)
		return subcommands.ExitFailure
	}

	printSummary(c.app, summary)
	return subcommands.ExitSuccess
}

func printSummary(app *App, s *reports.Summary) {
	w := tabwriter.NewWriter(app.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	month := "-"
	if s.Month != nil {
		month = s.Month.String()
	}
	lastUpdate := "-"
	if s.LastUpdate != nil {
		lastUpdate = s.LastUpdate.Local().Format(time.DateTime)
	}

	fmt.Fprintf(w, "Month:\t%s\n", month)
	fmt.Fprintf(w, "Funds:\t%d\n", s.FundsCount)
	fmt.Fprintf(w, "Total estimated:\t%s\n", formatBRL(s.TotalEstimated))
	fmt.Fprintf(w, "Average per share:\t%s\n", formatAmount(s.AvgYield))
	if s.TopYield != nil {
		fmt.Fprintf(w, "Top yield:\t%s (%s)\n", s.TopYield.Ticker, formatAmount(s.TopYield.AmountPerShare))
	}
	if s.TopPosition != nil {
		fmt.Fprintf(w, "Top position:\t%s (%s)\n", s.TopPosition.Ticker, s.TopPosition.Quantity.String())
	}
	fmt.Fprintf(w, "Last update:\t%s\n", lastUpdate)
}
