package shared

import (
	"errors"
	"time"
)

// Period is an optional billing window. A zero Period means "all time".
type Period struct {
	Start *time.Time
	End   *time.Time
}

// ErrInvalidPeriod indicates an inverted or half-broken window.
var ErrInvalidPeriod = errors.New("period start must not be after end")

// NewPeriod validates and builds a Period.
func NewPeriod(start, end *time.Time) (Period, error) {
	if start != nil && end != nil && start.After(*end) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// IsZero reports whether no window was supplied.
func (p Period) IsZero() bool {
	return p.Start == nil && p.End == nil
}

// Contains reports whether t falls inside the window. Open ends match
// everything on that side.
func (p Period) Contains(t time.Time) bool {
	if p.Start != nil && t.Before(*p.Start) {
		return false
	}
	if p.End != nil && t.After(*p.End) {
		return false
	}
	return true
}
