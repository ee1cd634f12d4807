package run_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gpspull/internal/dataset"
	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/logger"
	"github.com/jonesrussell/gpspull/internal/run"
)

func testRange(t *testing.T, start, end string) domain.DateRange {
	t.Helper()
	r, err := domain.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func day(s string) time.Time {
	t, err := time.Parse(domain.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayResult(date string, sessions ...domain.Session) domain.DayResult {
	return domain.DayResult{
		Date:        day(date),
		Granularity: domain.GranularityDay,
		Sessions:    sessions,
		FetchedAt:   day(date).Add(26 * time.Hour),
	}
}

func testSession(athleteID, sessionID string, ts time.Time) domain.Session {
	return domain.Session{
		SessionID: sessionID,
		AthleteID: athleteID,
		Timestamp: ts,
		Type:      "training",
		Metrics:   map[string]string{"kpi_total_distance": "5200"},
	}
}

func TestAssemblerReloadsProgressAcrossInvocations(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "run-1")
	dateRange := testRange(t, "2024-03-10", "2024-03-12")

	a, err := run.NewAssembler(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, a.AppendDay(dayResult("2024-03-10",
		testSession("a1", "s1", day("2024-03-10").Add(9*time.Hour)))))
	require.NoError(t, a.AppendDay(dayResult("2024-03-11")))

	// A new assembler over the same directory simulates a resumed process.
	resumed, err := run.NewAssembler(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.Len(t, resumed.Days(), 2)
	require.Equal(t, day("2024-03-10"), resumed.Days()[0].Date)
	require.Len(t, resumed.Days()[0].Sessions, 1)
}

func TestAssemblerSkipsUnreadableAndOutOfRangeProgress(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "run-1")
	dateRange := testRange(t, "2024-03-10", "2024-03-11")

	a, err := run.NewAssembler(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, a.AppendDay(dayResult("2024-03-10")))

	// Corrupt one line and append a day outside the range.
	progress := filepath.Join(dir, run.ProgressFileName)
	f, err := os.OpenFile(progress, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{torn write\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, a.AppendDay(dayResult("2024-06-01")))

	resumed, err := run.NewAssembler(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.Len(t, resumed.Days(), 1)
	require.Equal(t, day("2024-03-10"), resumed.Days()[0].Date)
}

// An interruption can hit between the progress append and the checkpoint
// write. The resumed run then replays the day from the progress file and
// re-fetches it, appending it a second time; the re-fetched result must
// replace the replayed one instead of duplicating the day's sessions.
func TestAppendDayAfterReplayReplacesDay(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "run-1")
	dateRange := testRange(t, "2024-03-10", "2024-03-10")

	a, err := run.NewAssembler(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, a.AppendDay(dayResult("2024-03-10",
		testSession("a1", "s1", day("2024-03-10").Add(9*time.Hour)))))

	// Simulated resume: the day survives in the progress file but was never
	// checkpointed, so the runner fetches it again — this time at hour
	// granularity with an extra session.
	resumed, err := run.NewAssembler(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)

	refetched := domain.DayResult{
		Date:        day("2024-03-10"),
		Granularity: domain.GranularityHour,
		Sessions: []domain.Session{
			testSession("a1", "s1", day("2024-03-10").Add(9*time.Hour)),
			testSession("a1", "s2", day("2024-03-10").Add(15*time.Hour)),
		},
	}
	require.NoError(t, resumed.AppendDay(refetched))

	require.Len(t, resumed.Days(), 1)
	require.Equal(t, domain.GranularityHour, resumed.Days()[0].Granularity)
	require.Len(t, resumed.Flatten(), 2)
	require.Equal(t, 2, resumed.SessionCount())

	// A second resume reloads both progress lines; the later one wins.
	reloaded, err := run.NewAssembler(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.Len(t, reloaded.Days(), 1)
	require.Equal(t, domain.GranularityHour, reloaded.Days()[0].Granularity)
	require.Len(t, reloaded.Flatten(), 2)
}

func TestFlattenJoinsSessionsWithPlayers(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "run-1")
	dateRange := testRange(t, "2024-03-10", "2024-03-11")

	a, err := run.NewAssembler(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)

	result := dayResult("2024-03-11",
		testSession("a1", "s2", day("2024-03-11").Add(9*time.Hour)))
	result.Players = []domain.PlayerDetail{
		{AthleteID: "a1", DisplayName: "Jo Runner", SquadName: "First Team"},
	}
	require.NoError(t, a.AppendDay(result))
	require.NoError(t, a.AppendDay(dayResult("2024-03-10",
		testSession("a2", "s1", day("2024-03-10").Add(10*time.Hour)))))

	rows := a.Flatten()
	require.Len(t, rows, 2)

	// Chronological regardless of append order.
	require.Equal(t, "s1", rows[0].SessionID)
	require.Equal(t, "s2", rows[1].SessionID)

	// Athlete-detail join applies only where details are known.
	require.Empty(t, rows[0].AthleteName)
	require.Equal(t, "Jo Runner", rows[1].AthleteName)
	require.Equal(t, "First Team", rows[1].SquadName)

	for _, r := range rows {
		require.Equal(t, "run-1", r.SourceRun)
	}
}

func TestWriteArtifactsAndCleanup(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "run-1")
	dateRange := testRange(t, "2024-03-10", "2024-03-10")

	a, err := run.NewAssembler(dir, "run-1", dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, a.AppendDay(dayResult("2024-03-10",
		testSession("a1", "s1", day("2024-03-10").Add(9*time.Hour)))))

	artifacts, err := a.WriteArtifacts(run.Manifest{
		DaysDone:  1,
		Sessions:  1,
		Succeeded: true,
	})
	require.NoError(t, err)

	require.FileExists(t, artifacts.SessionsJSON)
	require.FileExists(t, artifacts.PlayersJSON)
	require.FileExists(t, artifacts.Manifest)

	rows, err := dataset.ReadRows(artifacts.FlatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "a1", rows[0].AthleteID)

	require.NoError(t, a.CleanupProgress())
	require.NoFileExists(t, filepath.Join(dir, run.ProgressFileName))
}
