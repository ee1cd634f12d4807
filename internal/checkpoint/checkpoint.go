// Package checkpoint persists per-day extraction progress inside a run
// directory so an interrupted multi-day run can resume without re-fetching
// completed days.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/logger"
)

// FileName is the checkpoint file name inside a run directory.
const FileName = "checkpoint.json"

// DayStatus is the recorded outcome of one day within a run.
type DayStatus string

const (
	// StatusPending means the day has not completed yet.
	StatusPending DayStatus = "pending"
	// StatusDone means the day reached a terminal successful state.
	StatusDone DayStatus = "done"
	// StatusFailed means the day failed with a non-retryable error.
	StatusFailed DayStatus = "failed"
)

// ErrRangeMismatch is returned internally when a loaded checkpoint covers a
// different date range than the current run; the checkpoint is then ignored.
var ErrRangeMismatch = errors.New("checkpoint covers a different date range")

// Checkpoint is the persisted progress record for one run.
type Checkpoint struct {
	RunID         string               `json:"run_id"`
	RangeStart    string               `json:"range_start"`
	RangeEnd      string               `json:"range_end"`
	Days          map[string]DayStatus `json:"days"`
	TotalSessions int                  `json:"total_sessions"`
	LastUpdated   time.Time            `json:"last_updated"`
}

// Manager owns the checkpoint file for a single run.
type Manager struct {
	path      string
	log       logger.Interface
	dateRange domain.DateRange
	cp        *Checkpoint
}

// LoadOrCreate loads the checkpoint in runDir when it exists and matches the
// given date range; otherwise it starts a fresh checkpoint. Corruption or a
// range mismatch is treated as absence, never as an error.
func LoadOrCreate(
	runDir, runID string,
	dateRange domain.DateRange,
	log logger.Interface,
) (*Manager, error) {
	m := &Manager{
		path:      filepath.Join(runDir, FileName),
		log:       log.WithComponent("checkpoint"),
		dateRange: dateRange,
	}

	loaded, err := m.load()
	switch {
	case err == nil:
		m.cp = loaded
		m.log.Info("resuming from checkpoint",
			"run_id", loaded.RunID,
			"completed_days", len(m.CompletedDates()))
	case errors.Is(err, os.ErrNotExist):
		m.cp = fresh(runID, dateRange)
	default:
		m.log.Warn("ignoring unusable checkpoint, starting fresh", "error", err)
		m.cp = fresh(runID, dateRange)
	}

	if err := m.flush(); err != nil {
		return nil, err
	}
	return m, nil
}

// fresh builds a checkpoint with every day in the range pending.
func fresh(runID string, dateRange domain.DateRange) *Checkpoint {
	days := make(map[string]DayStatus)
	for _, d := range dateRange.Days() {
		days[d.Format(domain.DateFormat)] = StatusPending
	}
	return &Checkpoint{
		RunID:      runID,
		RangeStart: dateRange.Start.Format(domain.DateFormat),
		RangeEnd:   dateRange.End.Format(domain.DateFormat),
		Days:       days,
	}
}

// load reads and validates the checkpoint file.
func (m *Manager) load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint file: %w", err)
	}
	if cp.Days == nil {
		return nil, errors.New("corrupt checkpoint file: missing day map")
	}

	if cp.RangeStart != m.dateRange.Start.Format(domain.DateFormat) ||
		cp.RangeEnd != m.dateRange.End.Format(domain.DateFormat) {
		return nil, fmt.Errorf("%w: have %s..%s, want %s",
			ErrRangeMismatch, cp.RangeStart, cp.RangeEnd, m.dateRange)
	}

	return &cp, nil
}

// IsComplete reports whether the given date already reached done in this run.
func (m *Manager) IsComplete(date time.Time) bool {
	return m.cp.Days[date.Format(domain.DateFormat)] == StatusDone
}

// RecordDay records the outcome of one day and flushes the checkpoint file
// immediately, so an interruption loses at most the in-flight day.
func (m *Manager) RecordDay(date time.Time, status DayStatus, sessionCount int) error {
	m.cp.Days[date.Format(domain.DateFormat)] = status
	if status == StatusDone {
		m.cp.TotalSessions += sessionCount
	}
	return m.flush()
}

// CompletedDates returns the sorted dates marked done.
func (m *Manager) CompletedDates() []string {
	var dates []string
	for date, status := range m.cp.Days {
		if status == StatusDone {
			dates = append(dates, date)
		}
	}
	sort.Strings(dates)
	return dates
}

// RunID returns the run that owns this checkpoint.
func (m *Manager) RunID() string {
	return m.cp.RunID
}

// Path returns the checkpoint file location.
func (m *Manager) Path() string {
	return m.path
}

// Finalize deletes the checkpoint file after a fully successful run.
func (m *Manager) Finalize() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return nil
}

// flush writes the checkpoint to a temporary file and renames it into place.
func (m *Manager) flush() error {
	m.cp.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(m.cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}
