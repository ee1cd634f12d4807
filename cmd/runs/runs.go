// Package runs implements the runs command: listing extraction runs and
// their outcomes.
package runs

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gpspull/cmd/common"
	"github.com/jonesrussell/gpspull/internal/run"
)

// Command returns the runs command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List extraction runs",
		Long: `List extraction runs, newest first.

Finished runs are read from their manifest. Runs whose checkpoint file
survived were interrupted and will be resumed by the next extract over the
same range.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			infos, err := run.List(deps.Config.Extract.RunsDir)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if len(infos) == 0 {
				fmt.Println("No runs found.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Run", "Range", "Done", "Failed", "Sessions", "Status"})
			for _, info := range infos {
				t.AppendRow(table.Row{
					info.RunID, info.Range, info.DaysDone, info.DaysFailed,
					info.Sessions, info.Status,
				})
			}
			t.Render()
			return nil
		},
	}
}
