package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gpspull/internal/domain"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSessionKey(t *testing.T) {
	t.Parallel()

	withID := domain.Session{
		SessionID: "s1",
		AthleteID: "a1",
		Timestamp: ts("2024-03-10T09:00:00Z"),
		Metrics:   map[string]string{"kpi_total_distance": "5200"},
	}
	require.Equal(t, "a1|s1", withID.Key())

	// Without a session ID the identity falls back to timestamp plus
	// content hash, so two different sessions at the same instant still
	// get distinct keys.
	first := domain.Session{
		AthleteID: "a1",
		Timestamp: ts("2024-03-10T09:00:00Z"),
		Metrics:   map[string]string{"kpi_total_distance": "5200"},
	}
	second := domain.Session{
		AthleteID: "a1",
		Timestamp: ts("2024-03-10T09:00:00Z"),
		Metrics:   map[string]string{"kpi_total_distance": "6100"},
	}
	require.NotEqual(t, first.Key(), second.Key())

	identical := first
	require.Equal(t, first.Key(), identical.Key())
}

func TestContentHashIgnoresMapOrder(t *testing.T) {
	t.Parallel()

	a := domain.Session{Metrics: map[string]string{"x": "1", "y": "2", "z": "3"}}
	b := domain.Session{Metrics: map[string]string{"z": "3", "x": "1", "y": "2"}}
	require.Equal(t, a.ContentHash(), b.ContentHash())

	c := domain.Session{Metrics: map[string]string{"x": "1", "y": "2", "z": "4"}}
	require.NotEqual(t, a.ContentHash(), c.ContentHash())
}

func TestDedupSessionsKeepsFirstOccurrence(t *testing.T) {
	t.Parallel()

	s1 := domain.Session{SessionID: "s1", AthleteID: "a1", Type: "training"}
	s1Later := domain.Session{SessionID: "s1", AthleteID: "a1", Type: "match"}
	s2 := domain.Session{SessionID: "s2", AthleteID: "a1"}

	out := domain.DedupSessions([]domain.Session{s1, s2, s1Later})
	require.Len(t, out, 2)
	require.Equal(t, "training", out[0].Type, "first occurrence wins")
	require.Equal(t, "s2", out[1].SessionID)
}

func TestPlayerDetailMatchesName(t *testing.T) {
	t.Parallel()

	p := domain.PlayerDetail{
		DisplayName: "Jo Runner",
		FirstName:   "Jo",
		LastName:    "Runner",
	}

	require.True(t, p.MatchesName("jo runner"))
	require.True(t, p.MatchesName("RUNNER"))
	require.True(t, p.MatchesName("jo"))
	require.False(t, p.MatchesName("smith"))
}
