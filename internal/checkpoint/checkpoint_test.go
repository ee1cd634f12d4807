package checkpoint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gpspull/internal/checkpoint"
	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/logger"
)

func testRange(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestLoadOrCreateFresh(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dateRange := testRange(t, "2024-03-10", "2024-03-12")

	m, err := checkpoint.LoadOrCreate(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)

	require.Equal(t, "run-1", m.RunID())
	require.Empty(t, m.CompletedDates())
	require.False(t, m.IsComplete(dateRange.Start))

	// A fresh checkpoint is flushed immediately so an interruption before
	// the first day still leaves a resumable run behind.
	require.FileExists(t, filepath.Join(dir, checkpoint.FileName))
}

func TestRecordDayFlushesEveryDay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dateRange := testRange(t, "2024-03-10", "2024-03-12")

	m, err := checkpoint.LoadOrCreate(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)

	require.NoError(t, m.RecordDay(dateRange.Start, checkpoint.StatusDone, 7))
	require.True(t, m.IsComplete(dateRange.Start))

	// A second manager over the same directory sees the flushed progress.
	reloaded, err := checkpoint.LoadOrCreate(dir, "run-2", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.Equal(t, "run-1", reloaded.RunID(), "resume keeps the original run identity")
	require.True(t, reloaded.IsComplete(dateRange.Start))
	require.Equal(t, []string{"2024-03-10"}, reloaded.CompletedDates())
}

func TestFailedDayIsNotComplete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dateRange := testRange(t, "2024-03-10", "2024-03-11")

	m, err := checkpoint.LoadOrCreate(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)

	require.NoError(t, m.RecordDay(dateRange.Start, checkpoint.StatusFailed, 0))
	require.False(t, m.IsComplete(dateRange.Start))

	// A resumed run retries the failed day.
	reloaded, err := checkpoint.LoadOrCreate(dir, "run-2", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.False(t, reloaded.IsComplete(dateRange.Start))
}

func TestRangeMismatchStartsFresh(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldRange := testRange(t, "2024-03-10", "2024-03-12")

	m, err := checkpoint.LoadOrCreate(dir, "run-1", oldRange, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, m.RecordDay(oldRange.Start, checkpoint.StatusDone, 3))

	// Same directory, different range: old progress must not be trusted.
	newRange := testRange(t, "2024-03-10", "2024-03-15")
	reloaded, err := checkpoint.LoadOrCreate(dir, "run-2", newRange, logger.NewNoOp())
	require.NoError(t, err)
	require.Equal(t, "run-2", reloaded.RunID())
	require.False(t, reloaded.IsComplete(newRange.Start))
}

func TestCorruptCheckpointStartsFresh(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dateRange := testRange(t, "2024-03-10", "2024-03-11")

	path := filepath.Join(dir, checkpoint.FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	m, err := checkpoint.LoadOrCreate(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.Equal(t, "run-1", m.RunID())
	require.Empty(t, m.CompletedDates())
}

func TestFinalizeRemovesCheckpoint(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dateRange := testRange(t, "2024-03-10", "2024-03-10")

	m, err := checkpoint.LoadOrCreate(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, m.RecordDay(dateRange.Start, checkpoint.StatusDone, 1))

	require.NoError(t, m.Finalize())
	require.NoFileExists(t, m.Path())

	// Finalizing twice is harmless.
	require.NoError(t, m.Finalize())
}
