package dataset

import (
	"sort"

	"github.com/jonesrussell/gpspull/internal/domain"
)

// Conflict records an incoming row whose key already exists with different
// metric content. The existing row is kept untouched.
type Conflict struct {
	Key          string
	AthleteID    string
	SessionID    string
	ExistingHash string
	IncomingHash string
}

// Report is the accounting of one merge.
type Report struct {
	Existing  int
	Added     int
	Skipped   int
	Conflicts []Conflict
}

// HasConflicts reports whether the merge found conflicting rows.
func (r Report) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Merge folds incoming rows into the existing dataset. Rows with a new key
// are appended; rows whose key exists with identical content are skipped
// (idempotent re-run); rows whose key exists with different content are
// reported as conflicts and the existing row wins. Existing rows are never
// removed or mutated. The merged result is sorted chronologically.
func Merge(existing, incoming []domain.Row) ([]domain.Row, Report) {
	report := Report{Existing: len(existing)}

	hashes := make(map[string]string, len(existing))
	for i := range existing {
		r := &existing[i]
		hashes[r.Key()] = r.ContentHash()
	}

	merged := make([]domain.Row, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	for i := range incoming {
		r := &incoming[i]
		key := r.Key()
		hash := r.ContentHash()

		existingHash, present := hashes[key]
		switch {
		case !present:
			merged = append(merged, *r)
			hashes[key] = hash
			report.Added++
		case existingHash == hash:
			report.Skipped++
		default:
			report.Conflicts = append(report.Conflicts, Conflict{
				Key:          key,
				AthleteID:    r.AthleteID,
				SessionID:    r.SessionID,
				ExistingHash: existingHash,
				IncomingHash: hash,
			})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged, report
}
