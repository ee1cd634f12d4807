package pipeline_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gpspull/internal/api"
	"github.com/jonesrussell/gpspull/internal/checkpoint"
	"github.com/jonesrussell/gpspull/internal/config"
	"github.com/jonesrussell/gpspull/internal/dataset"
	"github.com/jonesrussell/gpspull/internal/domain"
	"github.com/jonesrussell/gpspull/internal/logger"
	"github.com/jonesrussell/gpspull/internal/pipeline"
	"github.com/jonesrussell/gpspull/internal/run"
)

// fakeUpstream serves canned session and player responses keyed by the
// request's start date.
type fakeUpstream struct {
	sessions map[string]string // date -> JSON array
	players  string
}

func (f *fakeUpstream) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		if strings.HasSuffix(r.URL.Path, "getPlayerDetails") {
			io.WriteString(w, f.players)
			return
		}

		for date, payload := range f.sessions {
			if strings.Contains(string(body), date+"T00:00:00.000Z") {
				io.WriteString(w, payload)
				return
			}
		}
		io.WriteString(w, "[]")
	})
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		API: config.API{
			BaseURL:          baseURL,
			Key:              "tenant-key",
			Version:          "7",
			AuthMode:         api.AuthModeBody,
			Timeout:          5 * time.Second,
			DiscoveryTimeout: time.Second,
			MaxRetries:       2,
			RetryInitialWait: time.Millisecond,
			RetryMaxWait:     5 * time.Millisecond,
		},
		Extract: config.Extract{
			RunsDir: filepath.Join(root, "runs"),
		},
		Dataset: config.Dataset{
			Dir: filepath.Join(root, "dataset"),
		},
	}
}

func sessionJSON(sessionID, athleteID, date string) string {
	return `[{
		"sessionId": "` + sessionID + `",
		"customPlayerId": "` + athleteID + `",
		"sessionDate": "` + date + `T09:00:00.000Z",
		"sessionType": "training",
		"kpi": {"totalDistance": 5200}
	}]`
}

func TestExtractThenMergeEndToEnd(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{
		sessions: map[string]string{
			"2024-03-10": sessionJSON("s1", "a1", "2024-03-10"),
			"2024-03-12": sessionJSON("s2", "a1", "2024-03-12"),
		},
		players: `[{"customPlayerId": "a1", "displayName": "Jo Runner", "activeSquadName": "First Team"}]`,
	}
	srv := httptest.NewServer(upstream.handler())
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	p := pipeline.New(cfg, logger.NewNoOp())

	dateRange, err := domain.ParseDateRange("2024-03-10", "2024-03-12")
	require.NoError(t, err)

	result, err := p.Extract(context.Background(), dateRange)
	require.NoError(t, err)
	require.False(t, result.Resumed)
	require.True(t, result.Summary.Succeeded())
	require.Equal(t, 3, result.Summary.DaysDone)
	require.Equal(t, 2, result.Summary.Sessions)

	// A fully successful run finalizes its checkpoint and progress file.
	require.NoFileExists(t, filepath.Join(result.RunDir, checkpoint.FileName))
	require.FileExists(t, result.Artifacts.FlatCSV)

	mergeResult, err := p.MergeRun(result.Artifacts.FlatCSV, "", result.RunID)
	require.NoError(t, err)
	require.Equal(t, 2, mergeResult.Report.Added)

	rows, err := dataset.ReadRows(mergeResult.Path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Jo Runner", rows[0].AthleteName)
	require.Equal(t, result.RunID, rows[0].SourceRun)

	// Re-merging the same run is a no-op.
	again, err := p.MergeRun(result.Artifacts.FlatCSV, "", result.RunID)
	require.NoError(t, err)
	require.Zero(t, again.Report.Added)
	require.Equal(t, 2, again.Report.Skipped)
	require.False(t, again.Report.HasConflicts())
}

func TestExtractResumesInterruptedRun(t *testing.T) {
	t.Parallel()

	upstream := &fakeUpstream{
		sessions: map[string]string{
			"2024-03-11": sessionJSON("s1", "a1", "2024-03-11"),
		},
		players: `[]`,
	}
	srv := httptest.NewServer(upstream.handler())
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	p := pipeline.New(cfg, logger.NewNoOp())

	dateRange, err := domain.ParseDateRange("2024-03-10", "2024-03-11")
	require.NoError(t, err)

	// Fabricate an interrupted run: day one done with one session in the
	// progress file, checkpoint surviving.
	runID := "20240312_080000_abcd1234"
	runDir := filepath.Join(cfg.Extract.RunsDir, runID)
	a, err := run.NewAssembler(runDir, runID, dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, a.AppendDay(domain.DayResult{
		Date:        dateRange.Start,
		Granularity: domain.GranularityDay,
		Sessions: []domain.Session{
			{SessionID: "s0", AthleteID: "a1", Timestamp: dateRange.Start.Add(9 * time.Hour)},
		},
	}))
	cp, err := checkpoint.LoadOrCreate(runDir, runID, dateRange, logger.NewNoOp())
	require.NoError(t, err)
	require.NoError(t, cp.RecordDay(dateRange.Start, checkpoint.StatusDone, 1))

	result, err := p.Extract(context.Background(), dateRange)
	require.NoError(t, err)
	require.True(t, result.Resumed)
	require.Equal(t, runID, result.RunID)
	require.Equal(t, 1, result.Summary.DaysResumed)
	require.Equal(t, 1, result.Summary.DaysDone)
	require.True(t, result.Summary.Succeeded())

	// The manifest counts resumed days' sessions, not just newly fetched ones.
	infos, err := run.List(cfg.Extract.RunsDir)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, 2, infos[0].Sessions)

	rows, err := dataset.ReadRows(result.Artifacts.FlatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestMergeRunFiltersByAthlete(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "https://unused.example.com")
	p := pipeline.New(cfg, logger.NewNoOp())

	flatCSV := filepath.Join(t.TempDir(), "sessions.csv")
	require.NoError(t, dataset.WriteRows(flatCSV, []domain.Row{
		{
			AthleteID: "a1", SessionID: "s1", AthleteName: "Jo Runner",
			Timestamp: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
			SourceRun: "run-1",
		},
		{
			AthleteID: "a2", SessionID: "s2", AthleteName: "Sam Keeper",
			Timestamp: time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC),
			SourceRun: "run-1",
		},
	}))

	result, err := p.MergeRun(flatCSV, "Jo Runner", "run-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Report.Added)
	require.Contains(t, result.Path, "combined_jo_runner.csv")

	rows, err := dataset.ReadRows(result.Path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "a1", rows[0].AthleteID)
}
