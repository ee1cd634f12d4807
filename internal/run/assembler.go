// Package run assembles one extraction run's artifacts: per-day progress
// records for resume, raw session and player JSON, and the flattened tabular
// output handed to the merge engine.
package run

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/logger"
)

// Artifact file names inside a run directory.
const (
	// ProgressFileName holds one JSON line per completed day, appended as
	// days finish so a resumed run can reload prior results.
	ProgressFileName = "progress_days.jsonl"
	// ManifestFileName summarizes a finished run.
	ManifestFileName = "run.json"
)

// Assembler collects the days of one run and writes its artifacts.
type Assembler struct {
	runDir    string
	runID     string
	dateRange domain.DateRange
	log       logger.Interface

	days []domain.DayResult
}

// Manifest is the persisted end-of-run summary.
type Manifest struct {
	RunID       string    `json:"run_id"`
	RangeStart  string    `json:"range_start"`
	RangeEnd    string    `json:"range_end"`
	DaysDone    int       `json:"days_done"`
	DaysFailed  int       `json:"days_failed"`
	Sessions    int       `json:"sessions"`
	Succeeded   bool      `json:"succeeded"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewAssembler creates the run directory and reloads any progress a previous
// interrupted invocation of the same run left behind.
func NewAssembler(runDir, runID string, dateRange domain.DateRange, log logger.Interface) (*Assembler, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	a := &Assembler{
		runDir:    runDir,
		runID:     runID,
		dateRange: dateRange,
		log:       log.WithComponent("assembler"),
	}

	if err := a.loadProgress(); err != nil {
		return nil, err
	}
	return a, nil
}

// RunDir returns the run's artifact directory.
func (a *Assembler) RunDir() string {
	return a.runDir
}

// Days returns the day results collected so far, in date order.
func (a *Assembler) Days() []domain.DayResult {
	sort.Slice(a.days, func(i, j int) bool {
		return a.days[i].Date.Before(a.days[j].Date)
	})
	return a.days
}

// SessionCount returns the number of sessions collected across all days,
// including days reloaded from an interrupted invocation.
func (a *Assembler) SessionCount() int {
	n := 0
	for i := range a.days {
		n += len(a.days[i].Sessions)
	}
	return n
}

// AppendDay records one completed day in memory and appends it to the
// progress file immediately.
func (a *Assembler) AppendDay(result domain.DayResult) error {
	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode day result: %w", err)
	}

	f, err := os.OpenFile(a.progressPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open progress file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append day progress: %w", err)
	}

	a.upsertDay(result)
	return nil
}

// upsertDay stores a day result, replacing any earlier result for the same
// date. A date can occur twice when an interruption hit between the progress
// append and the checkpoint write: the day is replayed from the progress file
// and then re-fetched. The re-fetched result wins.
func (a *Assembler) upsertDay(result domain.DayResult) {
	for i := range a.days {
		if a.days[i].Date.Equal(result.Date) {
			a.days[i] = result
			return
		}
	}
	a.days = append(a.days, result)
}

// loadProgress reloads day results from a previous interrupted invocation.
// Unreadable lines and days outside the range are skipped, not fatal.
func (a *Assembler) loadProgress() error {
	f, err := os.Open(a.progressPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open progress file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var result domain.DayResult
		if err := json.Unmarshal(scanner.Bytes(), &result); err != nil {
			a.log.Warn("skipping unreadable progress line", "error", err)
			continue
		}
		if !a.dateRange.Contains(result.Date) {
			continue
		}
		a.upsertDay(result)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read progress file: %w", err)
	}

	if len(a.days) > 0 {
		a.log.Info("reloaded progress from interrupted run", "days", len(a.days))
	}
	return nil
}

// Flatten joins each session with the athlete-detail fields known for its
// day, producing one tabular row per session in chronological order.
func (a *Assembler) Flatten() []domain.Row {
	var rows []domain.Row

	for _, day := range a.Days() {
		athletes := make(map[string]domain.PlayerDetail, len(day.Players))
		for _, p := range day.Players {
			athletes[p.AthleteID] = p
		}

		for i := range day.Sessions {
			s := &day.Sessions[i]
			row := domain.Row{
				AthleteID:   s.AthleteID,
				SessionID:   s.SessionID,
				Timestamp:   s.Timestamp,
				SessionType: s.Type,
				SourceRun:   a.runID,
				Metrics:     s.Metrics,
			}
			if p, ok := athletes[s.AthleteID]; ok {
				row.AthleteName = p.DisplayName
				row.SquadName = p.SquadName
			}
			rows = append(rows, row)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
	return rows
}

// progressPath returns the progress file location.
func (a *Assembler) progressPath() string {
	return filepath.Join(a.runDir, ProgressFileName)
}
