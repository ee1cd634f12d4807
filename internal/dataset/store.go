package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/logger"
)

// Store owns the cumulative dataset directory: one CSV per tracked athlete.
type Store struct {
	dir string
	log logger.Interface
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, log logger.Interface) *Store {
	return &Store{
		dir: dir,
		log: log.WithComponent("dataset"),
	}
}

// PathFor returns the cumulative file location for an athlete name.
func (s *Store) PathFor(athlete string) string {
	return filepath.Join(s.dir, "combined_"+slug(athlete)+".csv")
}

// MergeResult reports the outcome of MergeInto.
type MergeResult struct {
	Path       string
	BackupPath string
	Report     Report
	Rows       int
}

// MergeInto folds incoming rows into the cumulative file at path. A backup
// snapshot of the prior state is written before anything else; the merged
// dataset is then written to a temporary file and atomically renamed into
// place, so a crash mid-write never corrupts the cumulative file.
func (s *Store) MergeInto(path string, incoming []domain.Row, runID string) (MergeResult, error) {
	result := MergeResult{Path: path}

	existing, err := ReadRows(path)
	if err != nil {
		return result, fmt.Errorf("failed to load cumulative dataset: %w", err)
	}

	if len(existing) > 0 {
		backup, err := s.backup(path, runID)
		if err != nil {
			return result, err
		}
		result.BackupPath = backup
	}

	merged, report := Merge(existing, incoming)
	result.Report = report
	result.Rows = len(merged)

	if err := s.writeAtomic(path, merged); err != nil {
		return result, err
	}

	s.log.Info("merge complete",
		"path", path,
		"rows", len(merged),
		"added", report.Added,
		"skipped", report.Skipped,
		"conflicts", len(report.Conflicts))
	return result, nil
}

// backup copies the current cumulative file to an immutable, per-merge
// snapshot. Snapshots are never deleted automatically.
func (s *Store) backup(path, runID string) (string, error) {
	stamp := time.Now().UTC().Format("20060102T150405Z")
	backupPath := strings.TrimSuffix(path, ".csv") + ".backup-" + stamp + "-" + runID + ".csv"

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open dataset for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	s.log.Info("backup snapshot written", "path", backupPath)
	return backupPath, nil
}

// writeAtomic writes rows to a temporary file next to path and renames it
// into place.
func (s *Store) writeAtomic(path string, rows []domain.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := WriteRows(tmp, rows); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace dataset: %w", err)
	}
	return nil
}

// slug converts an athlete name to a safe file-name fragment.
func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return name
}
