// Package merge implements the merge command: folding one run's flattened
// output into the cumulative per-athlete dataset.
package merge

import (
	"fmt"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gpspull/cmd/common"
	"github.com/jonesrussell/gpspull/internal/pipeline"
	"github.com/jonesrussell/gpspull/internal/run"
)

// Command returns the merge command for use in the root command.
func Command() *cobra.Command {
	var (
		runDir  string
		athlete string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge a run's output into the cumulative dataset",
		Long: `Merge a run's flattened output into the cumulative dataset.

Existing rows always win: a re-merged run adds nothing, and an incoming row
whose values differ from an already-stored row with the same identity is
reported as a conflict and skipped. The dataset file is backed up before it
is rewritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			if athlete == "" {
				athlete = deps.Config.Dataset.Athlete
			}

			flatCSV, runID, err := run.LocateFlatCSV(deps.Config.Extract.RunsDir, runDir)
			if err != nil {
				return err
			}

			result, err := pipeline.New(deps.Config, deps.Logger).MergeRun(flatCSV, athlete, runID)
			if err != nil {
				return err
			}

			fmt.Printf("Merged run %s into %s: %d added, %d skipped, %d conflicts\n",
				runID, result.Path,
				result.Report.Added, result.Report.Skipped, len(result.Report.Conflicts))
			if result.BackupPath != "" {
				fmt.Printf("Backup written to %s\n", result.BackupPath)
			}

			for _, c := range result.Report.Conflicts {
				fmt.Printf("conflict kept existing values: athlete=%s session=%s\n",
					c.AthleteID, c.SessionID)
			}
			if result.Report.HasConflicts() {
				return fmt.Errorf("%d rows conflicted with existing data", len(result.Report.Conflicts))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runDir, "run", "", "run directory to merge (default: newest finished run)")
	cmd.Flags().StringVar(&athlete, "athlete", "", "restrict the merge to sessions of one athlete")

	return cmd
}
