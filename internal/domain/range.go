package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when a date range ends before it starts.
var ErrInvalidRange = errors.New("end date before start date")

// DateRange is an inclusive calendar-date range.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a range from two calendar dates. Times of day are
// truncated; the range is inclusive on both ends.
func NewDateRange(start, end time.Time) (DateRange, error) {
	start = Midnight(start)
	end = Midnight(end)
	if end.Before(start) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRange parses two YYYY-MM-DD strings into a DateRange.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(DateFormat, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(DateFormat, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return NewDateRange(s, e)
}

// Midnight truncates a time to the start of its UTC day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Days returns every date in the range in ascending order.
func (r DateRange) Days() []time.Time {
	var days []time.Time
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether the given date falls inside the range.
func (r DateRange) Contains(date time.Time) bool {
	d := Midnight(date)
	return !d.Before(r.Start) && !d.After(r.End)
}

// String renders the range as "YYYY-MM-DD..YYYY-MM-DD".
func (r DateRange) String() string {
	return r.Start.Format(DateFormat) + ".." + r.End.Format(DateFormat)
}

// Equal reports whether two ranges cover the same dates.
func (r DateRange) Equal(other DateRange) bool {
	return r.Start.Equal(other.Start) && r.End.Equal(other.End)
}
