// Package dataset implements the cumulative per-athlete dataset: a tabular
// CSV store with an idempotent merge/dedup engine, pre-merge backup
// snapshots and atomic writes.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jonesrussell/gpspull/internal/domain"
)

// Fixed lead columns of every dataset file; metric columns follow, sorted.
var leadColumns = []string{
	"athlete_id",
	"session_id",
	"timestamp",
	"session_type",
	"athlete_name",
	"squad_name",
	"source_run",
}

// WriteRows writes rows as CSV to path. The metric column set is the sorted
// union of metric names across all rows; rows missing a metric leave the
// cell empty.
func WriteRows(path string, rows []domain.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := encodeRows(f, rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// encodeRows writes the CSV header and rows to w.
func encodeRows(f *os.File, rows []domain.Row) error {
	metricCols := metricColumns(rows)

	w := csv.NewWriter(f)
	if err := w.Write(append(append([]string{}, leadColumns...), metricCols...)); err != nil {
		return err
	}

	record := make([]string, 0, len(leadColumns)+len(metricCols))
	for i := range rows {
		r := &rows[i]
		record = record[:0]
		record = append(record,
			r.AthleteID,
			r.SessionID,
			r.Timestamp.UTC().Format(time.RFC3339),
			r.SessionType,
			r.AthleteName,
			r.SquadName,
			r.SourceRun,
		)
		for _, col := range metricCols {
			record = append(record, r.Metrics[col])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ReadRows reads a dataset CSV back into rows. A missing file is an empty
// dataset, not an error.
func ReadRows(path string) ([]domain.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}

	cell := func(record []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	lead := make(map[string]struct{}, len(leadColumns))
	for _, col := range leadColumns {
		lead[col] = struct{}{}
	}

	rows := make([]domain.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		ts, err := time.Parse(time.RFC3339, cell(record, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("bad timestamp in %s: %w", path, err)
		}

		row := domain.Row{
			AthleteID:   cell(record, "athlete_id"),
			SessionID:   cell(record, "session_id"),
			Timestamp:   ts,
			SessionType: cell(record, "session_type"),
			AthleteName: cell(record, "athlete_name"),
			SquadName:   cell(record, "squad_name"),
			SourceRun:   cell(record, "source_run"),
			Metrics:     make(map[string]string),
		}
		for i, col := range header {
			if _, isLead := lead[col]; isLead {
				continue
			}
			if i < len(record) && record[i] != "" {
				row.Metrics[col] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// metricColumns returns the sorted union of metric names across rows.
func metricColumns(rows []domain.Row) []string {
	set := make(map[string]struct{})
	for i := range rows {
		for name := range rows[i].Metrics {
			set[name] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for name := range set {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}
