package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonesrussell/gpspull/internal/dataset"
	"github.com/jonesrussell/gpspull/internal/domain"
)

// Artifacts lists the files a finished run produced.
type Artifacts struct {
	SessionsJSON string
	PlayersJSON  string
	FlatCSV      string
	Manifest     string
}

// WriteArtifacts writes the run's raw JSON outputs, the flattened CSV and
// the manifest. It is called once, after the range loop finishes, whether or
// not every day succeeded.
func (a *Assembler) WriteArtifacts(manifest Manifest) (Artifacts, error) {
	suffix := a.dateRange.Start.Format("20060102") + "_" + a.dateRange.End.Format("20060102")

	artifacts := Artifacts{
		SessionsJSON: filepath.Join(a.runDir, "sessions_"+suffix+".json"),
		PlayersJSON:  filepath.Join(a.runDir, "players_"+suffix+".json"),
		FlatCSV:      filepath.Join(a.runDir, "sessions_"+suffix+".csv"),
		Manifest:     filepath.Join(a.runDir, ManifestFileName),
	}

	days := a.Days()

	var sessions []domain.Session
	players := make(map[string][]domain.PlayerDetail)
	for _, day := range days {
		sessions = append(sessions, day.Sessions...)
		if len(day.Players) > 0 {
			players[day.Date.Format(domain.DateFormat)] = day.Players
		}
	}

	if err := writeJSON(artifacts.SessionsJSON, sessions); err != nil {
		return artifacts, err
	}
	if err := writeJSON(artifacts.PlayersJSON, players); err != nil {
		return artifacts, err
	}
	if err := dataset.WriteRows(artifacts.FlatCSV, a.Flatten()); err != nil {
		return artifacts, fmt.Errorf("failed to write flattened CSV: %w", err)
	}

	manifest.RunID = a.runID
	manifest.RangeStart = a.dateRange.Start.Format(domain.DateFormat)
	manifest.RangeEnd = a.dateRange.End.Format(domain.DateFormat)
	if err := writeJSON(artifacts.Manifest, manifest); err != nil {
		return artifacts, err
	}

	a.log.Info("run artifacts written",
		"dir", a.runDir,
		"sessions", len(sessions),
		"days", len(days))
	return artifacts, nil
}

// CleanupProgress removes the per-day progress file once the consolidated
// artifacts exist. Only called after a fully successful run.
func (a *Assembler) CleanupProgress() error {
	if err := os.Remove(a.progressPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove progress file: %w", err)
	}
	return nil
}

// writeJSON writes v as indented JSON to path.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
