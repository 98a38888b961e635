package analytics

import (
	"fmt"
	"math"
	"time"
)

const (
	hourlyBuckets = 24
	dailyBuckets  = 7
	weeklyBuckets = 4
	week          = 7 * 24 * time.Hour
)

type TrendPoint struct {
	Label          string    `json:"label"`
	Start          time.Time `json:"start"`
	Calls          int       `json:"calls"`
	LeadConversion int       `json:"leadConversion"`
	AvgDuration    int       `json:"avgDuration"`
}

// Trends buckets the current window's calls. Hourly and daily buckets split
// the window evenly; weekly buckets are seven days each from Start with the
// last one absorbing any remainder.
func Trends(calls []Call, r TimeRange) []TrendPoint {
	n, width := bucketLayout(r)
	points := make([]TrendPoint, n)
	durations := make([]int, n)
	leads := make([]int, n)

	for i := range points {
		start := r.Start.Add(time.Duration(i) * width)
		points[i].Start = start
		points[i].Label = bucketLabel(r.Window, i, start)
	}

	if width <= 0 {
		return points
	}
	for _, c := range calls {
		if !r.Contains(c.StartedAt) {
			continue
		}
		idx := int(c.StartedAt.Sub(r.Start) / width)
		if idx >= n {
			idx = n - 1
		}
		points[idx].Calls++
		durations[idx] += max(c.DurationSeconds, 0)
		if c.Analyzed && c.Signals.LeadCaptured {
			leads[idx]++
		}
	}

	for i := range points {
		if points[i].Calls == 0 {
			continue
		}
		points[i].LeadConversion = percent(leads[i], points[i].Calls)
		points[i].AvgDuration = int(math.Round(float64(durations[i]) / float64(points[i].Calls)))
	}
	return points
}

func bucketLayout(r TimeRange) (int, time.Duration) {
	switch r.Window {
	case Window1d:
		return hourlyBuckets, r.Length() / hourlyBuckets
	case Window7d:
		return dailyBuckets, r.Length() / dailyBuckets
	default:
		return weeklyBuckets, week
	}
}

func bucketLabel(window string, i int, start time.Time) string {
	switch window {
	case Window1d:
		return fmt.Sprintf("%02d:00", start.Hour())
	case Window7d:
		return start.Format("Mon 01-02")
	default:
		return fmt.Sprintf("Week %d", i+1)
	}
}
