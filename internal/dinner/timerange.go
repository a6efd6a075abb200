package dinner

import (
	"time"

	"github.com/buberdinner/dinner-marketplace/internal/apperr"
)

// TimeRange is the scheduled window of a dinner. Construct it through
// NewTimeRange so the start < end invariant always holds.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange builds a time range. It fails unless start is strictly
// before end.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, apperr.New(apperr.CodeInvalid, "start and end times are required")
	}
	if !start.Before(end) {
		return TimeRange{}, apperr.New(apperr.CodeInvalid, "start time must be before end time")
	}
	return TimeRange{Start: start, End: end}, nil
}

// Contains reports whether t falls within the range, inclusive of both ends.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Duration returns the length of the range.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Overlaps reports whether the two ranges share any instant.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return !r.Start.After(other.End) && !r.End.Before(other.Start)
}
