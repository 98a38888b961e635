// Package analytics builds comparative call analytics for a time window.
// Snapshots are computed on every read and never stored.
package analytics

import (
	"math"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analyzer"
)

// UnknownCaller is stored when the provider gives no caller number.
const UnknownCaller = "unknown"

// Call is the slice of a call record the aggregator reads.
type Call struct {
	CallerNumber    string
	Completed       bool
	Failed          bool
	DurationSeconds int
	StartedAt       time.Time
	TimeOfDay       int
	DayOfWeek       int
	// Analyzed is false until the call is finalized; Signals is zero until then.
	Analyzed bool
	Signals  analyzer.Signals
}

type Summary struct {
	TotalCalls       int            `json:"totalCalls"`
	CompletedCalls   int            `json:"completedCalls"`
	FailedCalls      int            `json:"failedCalls"`
	SuccessRate      int            `json:"successRate"`
	AvgDuration      int            `json:"avgDuration"`
	Leads            int            `json:"leads"`
	LeadConversion   int            `json:"leadConversion"`
	Appointments     int            `json:"appointments"`
	SalesQualified   int            `json:"salesQualified"`
	UniqueCallers    int            `json:"uniqueCallers"`
	RepeatCallerRate int            `json:"repeatCallerRate"`
	AvgSentiment     float64        `json:"avgSentiment"`
	SentimentMean    float64        `json:"-"`
	Quality          map[string]int `json:"qualityDistribution"`
	Resolutions      map[string]int `json:"resolutionTypes"`
	PeakHour         int            `json:"peakHour"`
	PeakDay          int            `json:"peakDay"`
}

type Changes struct {
	Calls       int `json:"calls"`
	Leads       int `json:"leads"`
	AvgDuration int `json:"avgDuration"`
	SuccessRate int `json:"successRate"`
}

type Snapshot struct {
	Range    TimeRange    `json:"range"`
	Current  Summary      `json:"current"`
	Previous Summary      `json:"previous"`
	Changes  Changes      `json:"changes"`
	Trends   []TrendPoint `json:"trends"`
	Insights []Insight    `json:"insights"`
}

// Aggregate splits calls into the current window and the preceding one by
// StartedAt and compares them. Calls outside both windows are ignored.
func Aggregate(calls []Call, r TimeRange) Snapshot {
	prevRange := r.Previous()
	var current, previous []Call
	for _, c := range calls {
		switch {
		case r.Contains(c.StartedAt):
			current = append(current, c)
		case prevRange.containsOpen(c.StartedAt):
			previous = append(previous, c)
		}
	}

	cur := Summarize(current)
	prev := Summarize(previous)
	snap := Snapshot{
		Range:    r,
		Current:  cur,
		Previous: prev,
		Changes: Changes{
			Calls:       PercentageChange(float64(cur.TotalCalls), float64(prev.TotalCalls)),
			Leads:       PercentageChange(float64(cur.Leads), float64(prev.Leads)),
			AvgDuration: PercentageChange(float64(cur.AvgDuration), float64(prev.AvgDuration)),
			SuccessRate: PercentageChange(float64(cur.SuccessRate), float64(prev.SuccessRate)),
		},
		Trends: Trends(current, r),
	}
	snap.Insights = GenerateInsights(snap)
	return snap
}

// Summarize computes the totals of one window. An empty slice yields zeros.
func Summarize(calls []Call) Summary {
	s := Summary{
		Quality: map[string]int{
			string(analyzer.QualityGood): 0,
			string(analyzer.QualityFair): 0,
			string(analyzer.QualityPoor): 0,
		},
		Resolutions: map[string]int{},
	}
	s.TotalCalls = len(calls)

	var hours [24]int
	var days [7]int
	callerCounts := map[string]int{}
	totalDuration := 0

	for _, c := range calls {
		if c.Completed {
			s.CompletedCalls++
		}
		if c.Failed {
			s.FailedCalls++
		}
		totalDuration += max(c.DurationSeconds, 0)

		if c.Analyzed {
			if c.Signals.LeadCaptured {
				s.Leads++
			}
			if c.Signals.AppointmentBooked {
				s.Appointments++
			}
			if c.Signals.SalesQualified {
				s.SalesQualified++
			}
			if c.Signals.QualityBucket != "" {
				s.Quality[string(c.Signals.QualityBucket)]++
			}
			if c.Signals.ResolutionType != "" {
				s.Resolutions[string(c.Signals.ResolutionType)]++
			}
		}

		if c.TimeOfDay >= 0 && c.TimeOfDay < len(hours) {
			hours[c.TimeOfDay]++
		}
		if c.DayOfWeek >= 0 && c.DayOfWeek < len(days) {
			days[c.DayOfWeek]++
		}
		if c.CallerNumber != "" && c.CallerNumber != UnknownCaller {
			callerCounts[c.CallerNumber]++
		}
	}

	s.SuccessRate = percent(s.CompletedCalls, s.TotalCalls)
	s.LeadConversion = percent(s.Leads, s.TotalCalls)
	if s.TotalCalls > 0 {
		s.AvgDuration = int(math.Round(float64(totalDuration) / float64(s.TotalCalls)))
	}

	s.UniqueCallers = len(callerCounts)
	repeat := 0
	for _, n := range callerCounts {
		if n > 1 {
			repeat++
		}
	}
	s.RepeatCallerRate = percent(repeat, s.UniqueCallers)
	s.SentimentMean = MeanSentiment(calls)
	s.AvgSentiment = roundSentiment(s.SentimentMean)
	s.PeakHour = mode(hours[:])
	s.PeakDay = mode(days[:])
	return s
}

// AverageSentiment is the mean sentiment of analyzed calls rounded to two
// decimals, 0 when there are none.
func AverageSentiment(calls []Call) float64 {
	return roundSentiment(MeanSentiment(calls))
}

// MeanSentiment is the unrounded mean used by the insight thresholds.
func MeanSentiment(calls []Call) float64 {
	sum, n := 0.0, 0
	for _, c := range calls {
		if !c.Analyzed {
			continue
		}
		sum += c.Signals.SentimentScore
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func roundSentiment(v float64) float64 {
	return math.Round(v*100) / 100
}

// PercentageChange is round((curr-prev)/prev*100). A zero prev gives 100 for
// any growth and 0 otherwise.
func PercentageChange(curr, prev float64) int {
	if prev == 0 {
		if curr > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round((curr - prev) / prev * 100))
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// mode returns the index of the largest count, lowest index on ties.
func mode(counts []int) int {
	best := 0
	for i, n := range counts {
		if n > counts[best] {
			best = i
		}
	}
	return best
}
