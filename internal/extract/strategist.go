// Package extract implements the extraction core: the per-day day/hour
// fallback strategist and the date-range runner that drives it with
// checkpointing.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/gpspull/internal/api"
	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/logger"
)

// hoursPerDay is the number of hour-scoped fetches issued during fallback.
const hoursPerDay = 24

// SessionFetcher is the slice of the API client the strategist needs.
type SessionFetcher interface {
	SessionsInRange(ctx context.Context, from, to time.Time) ([]domain.Session, error)
	HasData(ctx context.Context, date time.Time) (bool, error)
}

// DayExtraction is the state-tagged outcome of extracting one calendar day.
// It records every state transition so tests and callers can assert the path
// taken rather than inferring it from side effects.
type DayExtraction struct {
	Date        time.Time
	State       DayState
	Granularity domain.Granularity
	Sessions    []domain.Session
	Err         error

	path []DayState
}

// Path returns the sequence of states the extraction moved through,
// starting with NotStarted.
func (e *DayExtraction) Path() []DayState {
	return e.path
}

// transition moves the extraction to the next state, panicking on a
// transition the state machine forbids. Transitions are fixed at compile
// time, so a violation is a programming error.
func (e *DayExtraction) transition(to DayState) {
	if err := ValidateTransition(e.State, to); err != nil {
		panic(fmt.Sprintf("day extraction: %v", err))
	}
	e.State = to
	e.path = append(e.path, to)
}

// Strategist decides, per calendar day, whether to fetch the full day in one
// request or fall back to hour-granularity probing.
type Strategist struct {
	fetcher        SessionFetcher
	log            logger.Interface
	interHourDelay time.Duration
}

// NewStrategist creates a strategist with the given pacing delay between
// hour-fallback requests.
func NewStrategist(fetcher SessionFetcher, interHourDelay time.Duration, log logger.Interface) *Strategist {
	return &Strategist{
		fetcher:        fetcher,
		log:            log.WithComponent("strategist"),
		interHourDelay: interHourDelay,
	}
}

// ExtractDay runs the full state machine for one day and always returns a
// terminal extraction (Done or Failed). Ordinary fetch failures resolve
// through the probing path; only authentication failures reach Failed.
func (s *Strategist) ExtractDay(ctx context.Context, date time.Time) *DayExtraction {
	date = domain.Midnight(date)
	ext := &DayExtraction{
		Date:  date,
		State: StateNotStarted,
		path:  []DayState{StateNotStarted},
	}
	log := s.log.With("date", date.Format(domain.DateFormat))

	// Full-day attempt with the normal timeout.
	ext.transition(StateDayAttempted)
	dayEnd := date.Add(24*time.Hour - time.Second)

	sessions, err := s.fetcher.SessionsInRange(ctx, date, dayEnd)
	if err == nil {
		ext.Sessions = domain.DedupSessions(sessions)
		ext.Granularity = domain.GranularityDay
		ext.transition(StateDone)
		log.Info("full-day extraction succeeded", "sessions", len(ext.Sessions))
		return ext
	}
	if errors.Is(err, api.ErrAuthentication) {
		ext.Err = err
		ext.transition(StateFailed)
		return ext
	}
	log.Warn("full-day extraction failed, probing", "error", err)

	// Quick existence probe with the discovery timeout. Most days in a
	// historical window are empty; the probe short-circuits them without
	// paying 24 hour-level requests.
	ext.transition(StateProbing)

	hasData, err := s.fetcher.HasData(ctx, date)
	if err != nil {
		ext.Err = err
		ext.transition(StateFailed)
		return ext
	}
	if !hasData {
		ext.Granularity = domain.GranularitySkippedEmpty
		ext.transition(StateDone)
		log.Info("no data detected, day skipped as empty")
		return ext
	}

	// Data exists but the day-level fetch failed: enumerate hours.
	ext.transition(StateHourFallback)
	sessions, err = s.extractHours(ctx, date, log)
	if err != nil {
		ext.Err = err
		ext.transition(StateFailed)
		return ext
	}
	ext.Sessions = domain.DedupSessions(sessions)
	ext.Granularity = domain.GranularityHour
	ext.transition(StateDone)
	log.Info("hour fallback complete", "sessions", len(ext.Sessions))

	return ext
}

// extractHours fetches each hour of the day sequentially with a fixed delay
// between requests. A failed hour contributes zero sessions and is logged,
// never fatal — except an authentication rejection, which aborts the
// enumeration since the remaining hours cannot succeed either.
func (s *Strategist) extractHours(ctx context.Context, date time.Time, log logger.Interface) ([]domain.Session, error) {
	var all []domain.Session

	for hour := 0; hour < hoursPerDay; hour++ {
		hourStart := date.Add(time.Duration(hour) * time.Hour)
		hourEnd := hourStart.Add(time.Hour - time.Second)

		sessions, err := s.fetcher.SessionsInRange(ctx, hourStart, hourEnd)
		switch {
		case errors.Is(err, api.ErrAuthentication):
			return nil, err
		case err != nil:
			log.Warn("hour fetch failed", "hour", hour, "error", err)
		case len(sessions) > 0:
			log.Debug("hour fetch found sessions", "hour", hour, "sessions", len(sessions))
			all = append(all, sessions...)
		}

		if hour < hoursPerDay-1 {
			wait(ctx, s.interHourDelay)
		}
	}

	return all, nil
}

// wait sleeps for d, returning early if the context is cancelled.
func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
