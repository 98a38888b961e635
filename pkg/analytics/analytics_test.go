package analytics

import (
	"testing"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analyzer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func call(at time.Time, caller string, completed bool, duration int, sig analyzer.Signals) Call {
	return Call{
		CallerNumber:    caller,
		Completed:       completed,
		Failed:          !completed,
		DurationSeconds: duration,
		StartedAt:       at,
		TimeOfDay:       at.Hour(),
		DayOfWeek:       int(at.Weekday()),
		Analyzed:        true,
		Signals:         sig,
	}
}

func lead(sentiment float64) analyzer.Signals {
	return analyzer.Signals{LeadCaptured: true, SentimentScore: sentiment, QualityBucket: analyzer.QualityGood, ResolutionType: analyzer.ResolutionAppointment}
}

func plain(sentiment float64) analyzer.Signals {
	return analyzer.Signals{SentimentScore: sentiment, QualityBucket: analyzer.QualityPoor, ResolutionType: analyzer.ResolutionGeneral}
}

func TestPercentageChange(t *testing.T) {
	assert.Equal(t, 100, PercentageChange(5, 0))
	assert.Equal(t, 0, PercentageChange(0, 0))
	assert.Equal(t, 50, PercentageChange(15, 10))
	assert.Equal(t, -50, PercentageChange(5, 10))
	assert.Equal(t, 33, PercentageChange(4, 3))
	assert.Equal(t, -100, PercentageChange(0, 7))
}

func TestAverageSentiment(t *testing.T) {
	assert.Equal(t, 0.0, AverageSentiment(nil))
	assert.Equal(t, 0.0, AverageSentiment([]Call{}))

	calls := []Call{
		{Analyzed: true, Signals: analyzer.Signals{SentimentScore: 1}},
		{Analyzed: true, Signals: analyzer.Signals{SentimentScore: -0.5}},
		{Analyzed: true, Signals: analyzer.Signals{SentimentScore: 0.333}},
		{Analyzed: false},
	}
	assert.Equal(t, 0.28, AverageSentiment(calls))
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.TotalCalls)
	assert.Equal(t, 0, s.SuccessRate)
	assert.Equal(t, 0, s.AvgDuration)
	assert.Equal(t, 0, s.RepeatCallerRate)
	assert.Equal(t, 0, s.PeakHour)
	assert.Equal(t, map[string]int{"good": 0, "fair": 0, "poor": 0}, s.Quality)
}

func TestSummarize(t *testing.T) {
	nine := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)  // Saturday
	three := time.Date(2026, 3, 13, 15, 0, 0, 0, time.UTC) // Friday
	calls := []Call{
		call(nine, "+1555", true, 60, lead(0.5)),
		call(nine, "+1555", true, 30, plain(0)),
		call(three, "+1666", false, 5, plain(-1)),
		call(three, UnknownCaller, true, 40, lead(1)),
		{CallerNumber: "", StartedAt: nine, TimeOfDay: 9, DayOfWeek: 6},
	}

	s := Summarize(calls)
	assert.Equal(t, 5, s.TotalCalls)
	assert.Equal(t, 3, s.CompletedCalls)
	assert.Equal(t, 1, s.FailedCalls)
	assert.Equal(t, 60, s.SuccessRate)
	assert.Equal(t, 27, s.AvgDuration)
	assert.Equal(t, 2, s.Leads)
	assert.Equal(t, 40, s.LeadConversion)
	assert.Equal(t, 2, s.UniqueCallers)
	assert.Equal(t, 50, s.RepeatCallerRate)
	assert.Equal(t, 0.13, s.AvgSentiment)
	assert.Equal(t, 9, s.PeakHour)
	assert.Equal(t, 6, s.PeakDay)
	assert.Equal(t, 2, s.Quality["good"])
	assert.Equal(t, 2, s.Quality["poor"])
	assert.Equal(t, 2, s.Resolutions["appointment"])
	assert.Equal(t, 2, s.Resolutions["general"])
}

func TestSummarize_PeakTiesGoToLowestIndex(t *testing.T) {
	calls := []Call{
		{StartedAt: now, TimeOfDay: 17, DayOfWeek: 5},
		{StartedAt: now, TimeOfDay: 8, DayOfWeek: 2},
	}
	s := Summarize(calls)
	assert.Equal(t, 8, s.PeakHour)
	assert.Equal(t, 2, s.PeakDay)
}

func TestAggregate_SplitsWindows(t *testing.T) {
	r, err := ParseRange(Window7d, now)
	require.NoError(t, err)

	calls := []Call{
		call(now.Add(-1*time.Hour), "+1", true, 60, lead(0.2)),
		call(now.Add(-2*24*time.Hour), "+2", true, 60, lead(0.2)),
		call(now.Add(-3*24*time.Hour), "+3", true, 60, plain(0.2)),
		call(r.Start, "+4", true, 60, plain(0.2)),
		// previous window
		call(now.Add(-8*24*time.Hour), "+5", true, 30, plain(0)),
		call(now.Add(-10*24*time.Hour), "+6", false, 30, plain(0)),
		// too old
		call(now.Add(-30*24*time.Hour), "+7", true, 30, plain(0)),
		// future
		call(now.Add(time.Hour), "+8", true, 30, plain(0)),
	}

	snap := Aggregate(calls, r)
	assert.Equal(t, 4, snap.Current.TotalCalls)
	assert.Equal(t, 2, snap.Previous.TotalCalls)
	assert.Equal(t, 100, snap.Changes.Calls)
	assert.Equal(t, 100, snap.Changes.Leads)
	assert.Equal(t, 100, snap.Changes.AvgDuration)
	assert.Equal(t, 100, snap.Changes.SuccessRate)
	assert.Equal(t, 50, snap.Current.LeadConversion)
	require.Len(t, snap.Trends, 7)

	ids := insightIDs(snap.Insights)
	assert.Contains(t, ids, "call_volume_surge")
	assert.Contains(t, ids, "strong_lead_conversion")
	assert.NotContains(t, ids, "low_success_rate")
}

func TestAggregate_Empty(t *testing.T) {
	r, err := ParseRange(Window30d, now)
	require.NoError(t, err)
	snap := Aggregate(nil, r)
	assert.Equal(t, 0, snap.Current.TotalCalls)
	assert.Equal(t, Changes{}, snap.Changes)
	assert.Len(t, snap.Trends, 4)
	assert.Empty(t, snap.Insights)
	assert.NotNil(t, snap.Insights)
}

func TestTrends_Hourly(t *testing.T) {
	r, err := ParseRange(Window1d, now)
	require.NoError(t, err)
	calls := []Call{
		call(r.Start, "+1", true, 10, lead(0)),
		call(r.Start.Add(30*time.Minute), "+2", true, 20, plain(0)),
		call(r.Start.Add(5*time.Hour), "+3", true, 90, plain(0)),
		call(r.End, "+4", true, 40, lead(0)),
	}
	points := Trends(calls, r)
	require.Len(t, points, 24)

	assert.Equal(t, 2, points[0].Calls)
	assert.Equal(t, 50, points[0].LeadConversion)
	assert.Equal(t, 15, points[0].AvgDuration)
	assert.Equal(t, "12:00", points[0].Label)

	assert.Equal(t, 1, points[5].Calls)
	assert.Equal(t, 0, points[5].LeadConversion)

	// the closing instant belongs to the last bucket
	assert.Equal(t, 1, points[23].Calls)
	assert.Equal(t, 0, points[10].Calls)
	assert.Equal(t, 0, points[10].AvgDuration)
}

func TestTrends_WeeklyLastBucketAbsorbsRemainder(t *testing.T) {
	r, err := ParseRange(Window30d, now)
	require.NoError(t, err)
	calls := []Call{
		call(r.Start.Add(24*time.Hour), "+1", true, 10, plain(0)),
		call(r.Start.Add(22*24*time.Hour), "+2", true, 10, plain(0)),
		call(r.Start.Add(29*24*time.Hour), "+3", true, 10, plain(0)),
	}
	points := Trends(calls, r)
	require.Len(t, points, 4)
	assert.Equal(t, "Week 1", points[0].Label)
	assert.Equal(t, 1, points[0].Calls)
	assert.Equal(t, 0, points[1].Calls)
	assert.Equal(t, 0, points[2].Calls)
	assert.Equal(t, 2, points[3].Calls)
}

func TestCustomRange(t *testing.T) {
	r, err := CustomRange(now.Add(-12*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, Window1d, r.Window)

	r, err = CustomRange(now.Add(-3*24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, Window7d, r.Window)

	r, err = CustomRange(now.Add(-60*24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, "", r.Window)

	_, err = CustomRange(now, now)
	assert.Error(t, err)

	_, err = ParseRange("2w", now)
	assert.Error(t, err)
}

func TestPreviousWindow(t *testing.T) {
	r := TimeRange{Start: now.Add(-24 * time.Hour), End: now}
	prev := r.Previous()
	assert.Equal(t, now.Add(-48*time.Hour), prev.Start)
	assert.Equal(t, r.Start, prev.End)
	assert.False(t, prev.containsOpen(r.Start))
	assert.True(t, r.Contains(r.Start))
	assert.True(t, r.Contains(r.End))
}

func TestGenerateInsights_AllApplicableFire(t *testing.T) {
	snap := Snapshot{
		Current: Summary{
			TotalCalls:       10,
			SuccessRate:      50,
			LeadConversion:   20,
			AvgSentiment:     -0.4,
			SentimentMean:    -0.4,
			RepeatCallerRate: 35,
		},
		Changes: Changes{Calls: 25},
	}
	insights := GenerateInsights(snap)
	assert.Equal(t, []string{
		"call_volume_surge",
		"low_success_rate",
		"strong_lead_conversion",
		"negative_sentiment",
		"repeat_callers",
	}, insightIDs(insights))

	byID := map[string]Insight{}
	for _, in := range insights {
		byID[in.ID] = in
	}
	assert.Equal(t, InsightPositive, byID["call_volume_surge"].Type)
	assert.Equal(t, ImpactHigh, byID["call_volume_surge"].Impact)
	assert.False(t, byID["call_volume_surge"].Actionable)
	assert.Equal(t, InsightWarning, byID["low_success_rate"].Type)
	assert.True(t, byID["low_success_rate"].Actionable)
	assert.Equal(t, InsightInfo, byID["repeat_callers"].Type)
	assert.Equal(t, ImpactMedium, byID["repeat_callers"].Impact)
}

func TestGenerateInsights_Boundaries(t *testing.T) {
	snap := Snapshot{
		Current: Summary{TotalCalls: 10, SuccessRate: 70, LeadConversion: 15, AvgSentiment: -0.3, SentimentMean: -0.3, RepeatCallerRate: 30},
		Changes: Changes{Calls: 20},
	}
	assert.Empty(t, GenerateInsights(snap))

	snap.Changes.Calls = -21
	assert.Equal(t, []string{"call_volume_drop"}, insightIDs(GenerateInsights(snap)))
}

func TestNegativeSentiment_UsesUnroundedMean(t *testing.T) {
	at := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	s := Summarize([]Call{
		call(at, "+1555", true, 60, plain(-0.3)),
		call(at, "+1666", true, 60, plain(-0.308)),
	})
	assert.Equal(t, -0.3, s.AvgSentiment)
	assert.InDelta(t, -0.304, s.SentimentMean, 1e-9)
	assert.Contains(t, insightIDs(GenerateInsights(Snapshot{Current: s})), "negative_sentiment")
}

func insightIDs(in []Insight) []string {
	ids := make([]string, 0, len(in))
	for _, i := range in {
		ids = append(ids, i.ID)
	}
	return ids
}
