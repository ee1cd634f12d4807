package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/gpspull/internal/checkpoint"
	"github.com/jonesrussell/gpspull/internal/domain"
)

// NewRunID generates a sortable run identifier: UTC timestamp plus a short
// random suffix to disambiguate runs started within the same second.
func NewRunID(now time.Time) string {
	return now.UTC().Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// FindResumable scans runsDir for an interrupted run (one whose checkpoint
// file survived) covering exactly the given date range. When several exist
// the most recent is returned. A checkpoint for a different range is never
// reused.
func FindResumable(runsDir string, dateRange domain.DateRange) (runDir, runID string, found bool) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return "", "", false
	}

	// Run IDs sort chronologically; walk newest first.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	wantStart := dateRange.Start.Format(domain.DateFormat)
	wantEnd := dateRange.End.Format(domain.DateFormat)

	for _, name := range names {
		dir := filepath.Join(runsDir, name)
		cp, err := readCheckpoint(filepath.Join(dir, checkpoint.FileName))
		if err != nil {
			continue
		}
		if cp.RangeStart == wantStart && cp.RangeEnd == wantEnd {
			return dir, cp.RunID, true
		}
	}
	return "", "", false
}

// Info describes one run directory for listing.
type Info struct {
	RunID      string
	Range      string
	Sessions   int
	DaysDone   int
	DaysFailed int
	Status     string
}

// List describes every run directory under runsDir, newest first. Finished
// runs are read from their manifest; runs whose checkpoint survived are
// reported as interrupted.
func List(runsDir string) ([]Info, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(runsDir, e.Name())

		if m, err := readManifest(filepath.Join(dir, ManifestFileName)); err == nil {
			status := "succeeded"
			if !m.Succeeded {
				status = "failed"
			}
			infos = append(infos, Info{
				RunID:      m.RunID,
				Range:      m.RangeStart + ".." + m.RangeEnd,
				Sessions:   m.Sessions,
				DaysDone:   m.DaysDone,
				DaysFailed: m.DaysFailed,
				Status:     status,
			})
			continue
		}

		if cp, err := readCheckpoint(filepath.Join(dir, checkpoint.FileName)); err == nil {
			done := 0
			for _, status := range cp.Days {
				if status == checkpoint.StatusDone {
					done++
				}
			}
			infos = append(infos, Info{
				RunID:    cp.RunID,
				Range:    cp.RangeStart + ".." + cp.RangeEnd,
				Sessions: cp.TotalSessions,
				DaysDone: done,
				Status:   "interrupted",
			})
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return strings.Compare(infos[i].RunID, infos[j].RunID) > 0
	})
	return infos, nil
}

// LocateFlatCSV finds the flattened CSV of a finished run from its manifest.
// When runDir is empty the newest finished run under runsDir is used.
func LocateFlatCSV(runsDir, runDir string) (csvPath, runID string, err error) {
	if runDir == "" {
		runDir, err = newestFinished(runsDir)
		if err != nil {
			return "", "", err
		}
	}

	m, err := readManifest(filepath.Join(runDir, ManifestFileName))
	if err != nil {
		return "", "", fmt.Errorf("no run manifest in %s: %w", runDir, err)
	}

	start, err := time.Parse(domain.DateFormat, m.RangeStart)
	if err != nil {
		return "", "", fmt.Errorf("invalid manifest range: %w", err)
	}
	end, err := time.Parse(domain.DateFormat, m.RangeEnd)
	if err != nil {
		return "", "", fmt.Errorf("invalid manifest range: %w", err)
	}

	suffix := start.Format("20060102") + "_" + end.Format("20060102")
	return filepath.Join(runDir, "sessions_"+suffix+".csv"), m.RunID, nil
}

// newestFinished returns the most recent run directory holding a manifest.
func newestFinished(runsDir string) (string, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return "", fmt.Errorf("failed to read runs directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names {
		dir := filepath.Join(runsDir, name)
		if _, err := os.Stat(filepath.Join(dir, ManifestFileName)); err == nil {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no finished runs under %s", runsDir)
}

// readCheckpoint decodes a checkpoint file without claiming ownership of it.
func readCheckpoint(path string) (*checkpoint.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cp checkpoint.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// readManifest decodes a run manifest.
func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
