package domain

import "time"

// Granularity is the time resolution at which a day's data was fetched.
type Granularity string

const (
	// GranularityDay means the day was fetched in a single full-day request.
	GranularityDay Granularity = "day"
	// GranularityHour means the day was recovered through hour-level fallback.
	GranularityHour Granularity = "hour"
	// GranularitySkippedEmpty means the discovery probe found no data and the
	// day was recorded as empty without hour-level enumeration.
	GranularitySkippedEmpty Granularity = "skipped-empty"
)

// DayResult is the terminal outcome of extracting one calendar day.
type DayResult struct {
	Date        time.Time      `json:"date"`
	Granularity Granularity    `json:"granularity"`
	Sessions    []Session      `json:"sessions"`
	Players     []PlayerDetail `json:"players,omitempty"`
	FetchedAt   time.Time      `json:"fetched_at"`
}

// Row is one flattened tabular record: a single session joined with the
// athlete-detail fields known for it. Rows are the unit the cumulative
// dataset stores and the merge engine deduplicates.
type Row struct {
	AthleteID   string
	SessionID   string
	Timestamp   time.Time
	SessionType string
	AthleteName string
	SquadName   string
	SourceRun   string
	Metrics     map[string]string
}

// Key returns the dedup identity of the row, mirroring Session.Key.
func (r *Row) Key() string {
	if r.SessionID != "" {
		return r.AthleteID + "|" + r.SessionID
	}
	return r.AthleteID + "|" + r.Timestamp.UTC().Format(time.RFC3339) + "|" + r.ContentHash()
}

// ContentHash returns a stable hash of the row's metric fields.
func (r *Row) ContentHash() string {
	return hashMetrics(r.Metrics)
}

// MatchesName reports whether the row's athlete name contains the given
// substring, case-insensitively.
func (r *Row) MatchesName(name string) bool {
	p := PlayerDetail{DisplayName: r.AthleteName}
	return p.MatchesName(name)
}
