// Package scheduler implements the scheduler command: a long-running process
// that periodically extracts the gap between the cumulative dataset and the
// present, then merges it.
package scheduler

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/gpspull/cmd/common"
	"github.com/jonesrussell/gpspull/internal/pipeline"
)

// Command returns the scheduler command for use in the root command.
func Command() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run scheduled catch-up extractions",
		Long: `Run catch-up extractions on a cron schedule.

Each tick reads the cumulative dataset, determines the date gap between the
newest stored session and yesterday, extracts it and merges the result. An
up-to-date dataset makes the tick a no-op.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := cmdcommon.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := pipeline.New(deps.Config, deps.Logger)
			log := deps.Logger.WithComponent("scheduler")

			tick := func() {
				if err := p.CatchUp(ctx, time.Now()); err != nil {
					log.Error("catch-up failed", "error", err)
				}
			}

			if runNow {
				tick()
			}

			c := cron.New()
			schedule := deps.Config.Scheduler.Schedule
			if _, err := c.AddFunc(schedule, tick); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

			log.Info("scheduler started", "schedule", schedule)
			c.Start()

			<-ctx.Done()
			log.Info("scheduler stopping")

			// Let an in-flight tick finish before exiting.
			<-c.Stop().Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "run one catch-up immediately before scheduling")

	return cmd
}
