package analytics

import (
	"fmt"
	"time"
)

const (
	Window1d  = "1d"
	Window7d  = "7d"
	Window30d = "30d"
	Window90d = "90d"
)

var windowLengths = map[string]time.Duration{
	Window1d:  24 * time.Hour,
	Window7d:  7 * 24 * time.Hour,
	Window30d: 30 * 24 * time.Hour,
	Window90d: 90 * 24 * time.Hour,
}

// TimeRange is the closed current window [Start, End]. Window selects the
// trend granularity: "1d" hourly, "7d" daily, anything else weekly.
type TimeRange struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Window string    `json:"window"`
}

// ParseRange builds the window ending at now.
func ParseRange(window string, now time.Time) (TimeRange, error) {
	length, ok := windowLengths[window]
	if !ok {
		return TimeRange{}, fmt.Errorf("unsupported range %q", window)
	}
	return TimeRange{Start: now.Add(-length), End: now, Window: window}, nil
}

// CustomRange infers the trend granularity from the length of [start, end].
func CustomRange(start, end time.Time) (TimeRange, error) {
	if !end.After(start) {
		return TimeRange{}, fmt.Errorf("end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	r := TimeRange{Start: start, End: end}
	switch length := end.Sub(start); {
	case length <= windowLengths[Window1d]:
		r.Window = Window1d
	case length <= windowLengths[Window7d]:
		r.Window = Window7d
	}
	return r, nil
}

func (r TimeRange) Length() time.Duration {
	return r.End.Sub(r.Start)
}

// Previous is the equal-length window immediately before, [Start-len, Start).
func (r TimeRange) Previous() TimeRange {
	return TimeRange{Start: r.Start.Add(-r.Length()), End: r.Start, Window: r.Window}
}

// Contains reports t within the closed current window.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// containsOpen reports t within [Start, End).
func (r TimeRange) containsOpen(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}
