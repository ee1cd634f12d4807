// Package extract implements the extract command: a checkpointed, resumable
// extraction of athlete-monitoring sessions over a date range.
package extract

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gpspull/cmd/common"
	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/extract"
	"github.com/jonesrussell/gpspull/internal/pipeline"
)

// Command returns the extract command for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <start-date> <end-date>",
		Short: "Extract sessions for a date range",
		Long: `Extract athlete-monitoring sessions for an inclusive date range.

Days are fetched one at a time: a full-day request first, then a quick
existence probe and hour-level fallback when the day-level request fails.
Progress is checkpointed per day; re-running with the same range resumes an
interrupted run instead of re-fetching completed days.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dateRange, err := domain.ParseDateRange(args[0], args[1])
			if err != nil {
				return err
			}

			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			// The range is cancellable between days; a day in flight
			// finishes its attempted granularity first.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := pipeline.New(deps.Config, deps.Logger).Extract(ctx, dateRange)
			if err != nil {
				return err
			}

			renderSummary(result)

			if !result.Summary.Succeeded() {
				return fmt.Errorf("%d of %d days failed", result.Summary.DaysFailed, len(dateRange.Days()))
			}
			return nil
		},
	}

	return cmd
}

// renderSummary prints the end-of-run accounting.
func renderSummary(result pipeline.ExtractResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Done", "Failed", "Skipped Empty", "Resumed", "Sessions"})
	t.AppendRow(summaryRow(result.RunID, result.Summary))
	t.Render()

	if len(result.Summary.FailedDates) > 0 {
		fmt.Printf("Failed days: %v\n", result.Summary.FailedDates)
	}
	fmt.Printf("Run artifacts: %s\n", result.RunDir)
}

// summaryRow formats one summary as a table row.
func summaryRow(runID string, s extract.Summary) table.Row {
	return table.Row{runID, s.DaysDone, s.DaysFailed, s.DaysSkippedEmpty, s.DaysResumed, s.Sessions}
}
