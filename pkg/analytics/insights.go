package analytics

import "fmt"

type InsightType string

const (
	InsightPositive InsightType = "positive"
	InsightWarning  InsightType = "warning"
	InsightInfo     InsightType = "info"
)

type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

type Insight struct {
	ID          string      `json:"id"`
	Type        InsightType `json:"type"`
	Impact      Impact      `json:"impact"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Actionable  bool        `json:"actionable"`
}

type insightRule struct {
	id         string
	typ        InsightType
	impact     Impact
	actionable bool
	title      string
	applies    func(s Snapshot) bool
	describe   func(s Snapshot) string
}

// insightRules are evaluated independently; every rule that applies fires.
var insightRules = []insightRule{
	{
		id: "call_volume_surge", typ: InsightPositive, impact: ImpactHigh,
		title:   "Call volume is up",
		applies: func(s Snapshot) bool { return s.Changes.Calls > 20 },
		describe: func(s Snapshot) string {
			return fmt.Sprintf("Calls increased %d%% over the previous period.", s.Changes.Calls)
		},
	},
	{
		id: "call_volume_drop", typ: InsightWarning, impact: ImpactMedium, actionable: true,
		title:   "Call volume is down",
		applies: func(s Snapshot) bool { return s.Changes.Calls < -20 },
		describe: func(s Snapshot) string {
			return fmt.Sprintf("Calls decreased %d%% over the previous period. Check your number routing and campaigns.", -s.Changes.Calls)
		},
	},
	{
		id: "low_success_rate", typ: InsightWarning, impact: ImpactHigh, actionable: true,
		title:   "Low call success rate",
		applies: func(s Snapshot) bool { return s.Current.TotalCalls > 0 && s.Current.SuccessRate < 70 },
		describe: func(s Snapshot) string {
			return fmt.Sprintf("Only %d%% of calls completed. Review failed calls for voicemail and silence timeouts.", s.Current.SuccessRate)
		},
	},
	{
		id: "strong_lead_conversion", typ: InsightPositive, impact: ImpactMedium,
		title:   "Strong lead conversion",
		applies: func(s Snapshot) bool { return s.Current.LeadConversion > 15 },
		describe: func(s Snapshot) string {
			return fmt.Sprintf("%d%% of calls captured a lead.", s.Current.LeadConversion)
		},
	},
	{
		id: "negative_sentiment", typ: InsightWarning, impact: ImpactHigh, actionable: true,
		title:   "Callers sound unhappy",
		applies: func(s Snapshot) bool { return s.Current.SentimentMean < -0.3 },
		describe: func(s Snapshot) string {
			return fmt.Sprintf("Average sentiment is %.2f. Review recent transcripts and your assistant's answers.", s.Current.AvgSentiment)
		},
	},
	{
		id: "repeat_callers", typ: InsightInfo, impact: ImpactMedium, actionable: true,
		title:   "Many repeat callers",
		applies: func(s Snapshot) bool { return s.Current.RepeatCallerRate > 30 },
		describe: func(s Snapshot) string {
			return fmt.Sprintf("%d%% of callers called more than once. Their questions may not be getting resolved.", s.Current.RepeatCallerRate)
		},
	},
}

// GenerateInsights evaluates the fixed rule list against a snapshot.
func GenerateInsights(s Snapshot) []Insight {
	insights := []Insight{}
	for _, rule := range insightRules {
		if !rule.applies(s) {
			continue
		}
		insights = append(insights, Insight{
			ID:          rule.id,
			Type:        rule.typ,
			Impact:      rule.impact,
			Title:       rule.title,
			Description: rule.describe(s),
			Actionable:  rule.actionable,
		})
	}
	return insights
}
