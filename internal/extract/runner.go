package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/gpspull/internal/api"
	"github.com/jonesrussell/gpspull/internal/checkpoint"
	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/logger"
)

// PlayerFetcher is the slice of the API client the runner needs for
// athlete-detail enrichment.
type PlayerFetcher interface {
	PlayerDetails(ctx context.Context, date time.Time) ([]domain.PlayerDetail, error)
}

// CheckpointStore records per-day progress across the run.
type CheckpointStore interface {
	IsComplete(date time.Time) bool
	RecordDay(date time.Time, status checkpoint.DayStatus, sessionCount int) error
}

// DayRecorder receives each completed day's result for persistence.
type DayRecorder interface {
	AppendDay(result domain.DayResult) error
}

// Summary is the end-of-run accounting reported to the caller.
type Summary struct {
	DaysDone         int
	DaysFailed       int
	DaysSkippedEmpty int
	DaysResumed      int
	Sessions         int
	FailedDates      []string
}

// Succeeded reports whether every day in the range reached done.
func (s Summary) Succeeded() bool {
	return s.DaysFailed == 0
}

// Runner drives the strategist over a date range: days are processed one at
// a time in ascending order, each day's outcome is checkpointed as it
// completes, and the range is cancellable between days.
type Runner struct {
	strategist    *Strategist
	players       PlayerFetcher
	cp            CheckpointStore
	recorder      DayRecorder
	log           logger.Interface
	interDayDelay time.Duration
}

// NewRunner creates a runner from its collaborators.
func NewRunner(
	strategist *Strategist,
	players PlayerFetcher,
	cp CheckpointStore,
	recorder DayRecorder,
	interDayDelay time.Duration,
	log logger.Interface,
) *Runner {
	return &Runner{
		strategist:    strategist,
		players:       players,
		cp:            cp,
		recorder:      recorder,
		log:           log.WithComponent("runner"),
		interDayDelay: interDayDelay,
	}
}

// Run extracts every day in the range. Per-day failures are recorded and the
// range continues; only authentication failures, context cancellation and
// storage errors abort the run. The returned summary is valid either way.
func (r *Runner) Run(ctx context.Context, dateRange domain.DateRange) (Summary, error) {
	var summary Summary

	days := dateRange.Days()
	total := len(days)

	for i, date := range days {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run cancelled: %w", err)
		}

		dateStr := date.Format(domain.DateFormat)
		log := r.log.With("date", dateStr, "day", i+1, "total_days", total)

		if r.cp.IsComplete(date) {
			summary.DaysResumed++
			log.Info("day already completed in this run, skipping")
			continue
		}

		started := time.Now()
		ext := r.strategist.ExtractDay(ctx, date)

		if ext.State == StateFailed {
			if err := r.failDay(ext, &summary, log); err != nil {
				return summary, err
			}
			continue
		}

		result := domain.DayResult{
			Date:        ext.Date,
			Granularity: ext.Granularity,
			Sessions:    ext.Sessions,
			FetchedAt:   time.Now().UTC(),
		}

		// Enrich with athlete details only when the day produced sessions.
		if len(ext.Sessions) > 0 {
			players, err := r.players.PlayerDetails(ctx, date)
			if err != nil {
				log.Warn("player detail lookup failed", "error", err)
			} else {
				result.Players = players
			}
		}

		if err := r.recorder.AppendDay(result); err != nil {
			return summary, fmt.Errorf("failed to persist day %s: %w", dateStr, err)
		}
		if err := r.cp.RecordDay(date, checkpoint.StatusDone, len(ext.Sessions)); err != nil {
			return summary, fmt.Errorf("failed to checkpoint day %s: %w", dateStr, err)
		}

		summary.DaysDone++
		summary.Sessions += len(ext.Sessions)
		if ext.Granularity == domain.GranularitySkippedEmpty {
			summary.DaysSkippedEmpty++
		}

		log.Info("day completed",
			"granularity", ext.Granularity,
			"sessions", len(ext.Sessions),
			"duration", time.Since(started))

		if i < total-1 {
			wait(ctx, r.interDayDelay)
		}
	}

	return summary, nil
}

// failDay records a failed day. Authentication failures abort the run since
// retrying cannot succeed; anything else is per-day and the range continues.
func (r *Runner) failDay(ext *DayExtraction, summary *Summary, log logger.Interface) error {
	dateStr := ext.Date.Format(domain.DateFormat)

	if err := r.cp.RecordDay(ext.Date, checkpoint.StatusFailed, 0); err != nil {
		return fmt.Errorf("failed to checkpoint day %s: %w", dateStr, err)
	}
	summary.DaysFailed++
	summary.FailedDates = append(summary.FailedDates, dateStr)

	if isAuthError(ext.Err) {
		return fmt.Errorf("aborting run on day %s: %w", dateStr, ext.Err)
	}

	log.Error("day failed", "error", ext.Err)
	return nil
}

// isAuthError reports whether err wraps the API's authentication failure.
func isAuthError(err error) bool {
	return errors.Is(err, api.ErrAuthentication)
}
