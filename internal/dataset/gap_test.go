package dataset_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gpspull/internal/dataset"
	"github.com/jonesrussell/gpspull/internal/domain"
)

func TestGapRange(t *testing.T) {
	t.Parallel()

	now := ts("2024-03-15T08:30:00Z")

	tests := []struct {
		name      string
		rows      []domain.Row
		wantStart string
		wantEnd   string
		wantOK    bool
	}{
		{
			name:   "empty dataset has no gap",
			rows:   nil,
			wantOK: false,
		},
		{
			name: "gap from day after newest session through yesterday",
			rows: []domain.Row{
				row("a1", "s1", ts("2024-03-10T09:00:00Z"), nil),
				row("a1", "s2", ts("2024-03-11T17:30:00Z"), nil),
			},
			wantStart: "2024-03-12",
			wantEnd:   "2024-03-14",
			wantOK:    true,
		},
		{
			name: "single-day gap",
			rows: []domain.Row{
				row("a1", "s1", ts("2024-03-13T09:00:00Z"), nil),
			},
			wantStart: "2024-03-14",
			wantEnd:   "2024-03-14",
			wantOK:    true,
		},
		{
			name: "dataset current through yesterday is up to date",
			rows: []domain.Row{
				row("a1", "s1", ts("2024-03-14T20:00:00Z"), nil),
			},
			wantOK: false,
		},
		{
			name: "session today is up to date",
			rows: []domain.Row{
				row("a1", "s1", ts("2024-03-15T07:00:00Z"), nil),
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gap, ok := dataset.GapRange(tt.rows, now)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			require.Equal(t, tt.wantStart, gap.Start.Format(domain.DateFormat))
			require.Equal(t, tt.wantEnd, gap.End.Format(domain.DateFormat))
		})
	}
}

func TestLatestSessionDate(t *testing.T) {
	t.Parallel()

	_, ok := dataset.LatestSessionDate(nil)
	require.False(t, ok)

	latest, ok := dataset.LatestSessionDate([]domain.Row{
		row("a1", "s1", ts("2024-03-10T09:00:00Z"), nil),
		row("a1", "s2", ts("2024-03-12T23:59:00Z"), nil),
		row("a1", "s3", ts("2024-03-11T09:00:00Z"), nil),
	})
	require.True(t, ok)
	require.Equal(t, "2024-03-12", latest.Format(domain.DateFormat))
	require.Equal(t, time.UTC, latest.Location())
}
