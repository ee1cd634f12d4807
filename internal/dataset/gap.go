package dataset

import (
	"time"

	"github.com/jonesrussell/gpspull/internal/domain"
)

// LatestSessionDate returns the most recent session date in the dataset.
func LatestSessionDate(rows []domain.Row) (time.Time, bool) {
	var latest time.Time
	for i := range rows {
		if rows[i].Timestamp.After(latest) {
			latest = rows[i].Timestamp
		}
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	return domain.Midnight(latest), true
}

// GapRange derives the catch-up range for a scheduled run: the day after the
// dataset's most recent session through yesterday, relative to now. The
// second return is false when the dataset is empty or already up to date.
func GapRange(rows []domain.Row, now time.Time) (domain.DateRange, bool) {
	latest, ok := LatestSessionDate(rows)
	if !ok {
		return domain.DateRange{}, false
	}

	start := latest.AddDate(0, 0, 1)
	end := domain.Midnight(now).AddDate(0, 0, -1)
	if end.Before(start) {
		return domain.DateRange{}, false
	}

	r, err := domain.NewDateRange(start, end)
	if err != nil {
		return domain.DateRange{}, false
	}
	return r, true
}
