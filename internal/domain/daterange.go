package domain

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// DateRange is an optional pair of calendar bounds parsed from ?start=&end=.
//
// Two window behaviors exist on purpose. ListWindow mirrors listing, which
// keeps rows strictly before end + 1 day. SummaryWindow mirrors aggregation,
// which keeps rows on or before end. They coincide for date columns but not
// for timestamps, so callers pick the one their operation is defined by.
type DateRange struct {
	Start *civil.Date
	End   *civil.Date
}

// ListWindow reports whether d falls in [start, end + 1 day).
func (r DateRange) ListWindow(d civil.Date) bool {
	if r.Start != nil && d.Before(*r.Start) {
		return false
	}
	if r.End != nil && !d.Before(r.End.AddDays(1)) {
		return false
	}
	return true
}

// SummaryWindow reports whether d falls in [start, end].
func (r DateRange) SummaryWindow(d civil.Date) bool {
	if r.Start != nil && d.Before(*r.Start) {
		return false
	}
	if r.End != nil && d.After(*r.End) {
		return false
	}
	return true
}

// ExclusiveEnd returns end + 1 day, or nil when the range is open-ended.
func (r DateRange) ExclusiveEnd() *civil.Date {
	if r.End == nil {
		return nil
	}
	next := r.End.AddDays(1)
	return &next
}

// ParseDateRange parses YYYY-MM-DD bounds. An empty string leaves that side
// open. A malformed date or an end before start is ErrValidation.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	if start != "" {
		d, err := civil.ParseDate(start)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: invalid start date %q, expected YYYY-MM-DD", ErrValidation, start)
		}
		r.Start = &d
	}
	if end != "" {
		d, err := civil.ParseDate(end)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: invalid end date %q, expected YYYY-MM-DD", ErrValidation, end)
		}
		r.End = &d
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return DateRange{}, fmt.Errorf("%w: end date is before start date", ErrValidation)
	}
	return r, nil
}
