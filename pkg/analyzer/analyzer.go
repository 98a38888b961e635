// Package analyzer derives lead, sentiment, quality and resolution signals
// from a finished call transcript. Everything here is pure and deterministic.
package analyzer

import (
	"strings"
	"unicode"
)

// Quality buckets a call by how long the caller stayed on the line.
type Quality string

const (
	QualityGood Quality = "good"
	QualityFair Quality = "fair"
	QualityPoor Quality = "poor"
)

// Resolution is how the call was wrapped up.
type Resolution string

const (
	ResolutionTransferred Resolution = "transferred"
	ResolutionAppointment Resolution = "appointment"
	ResolutionInformation Resolution = "information"
	ResolutionCallback    Resolution = "callback"
	ResolutionGeneral     Resolution = "general"
)

// Utterance one speaker turn
type Utterance struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Signals is the fixed derived record stored on a finalized call.
type Signals struct {
	LeadScore         int        `json:"leadScore"`
	SentimentScore    float64    `json:"sentimentScore"`
	QualityBucket     Quality    `json:"qualityBucket" gorm:"size:8"`
	ResolutionType    Resolution `json:"resolutionType" gorm:"size:16"`
	LeadCaptured      bool       `json:"leadCaptured"`
	AppointmentBooked bool       `json:"appointmentBooked"`
	SalesQualified    bool       `json:"salesQualified"`
}

// Counts raw lexicon hits behind a Signals value
type Counts struct {
	Lead          int `json:"lead"`
	Appointment   int `json:"appointment"`
	Qualification int `json:"qualification"`
	Positive      int `json:"positive"`
	Negative      int `json:"negative"`
}

// Analyze scores a transcript. It never fails: an empty transcript yields zero
// scores, general resolution and a quality bucket from duration alone.
func Analyze(transcript []Utterance, durationSeconds int, endedReason string) Signals {
	text := Flatten(transcript)
	counts := CountKeywords(text)

	return Signals{
		LeadScore:         LeadScore(counts.Lead),
		SentimentScore:    Sentiment(counts.Positive, counts.Negative),
		QualityBucket:     QualityFor(durationSeconds),
		ResolutionType:    ClassifyResolution(text, endedReason),
		LeadCaptured:      counts.Lead >= LeadCapturedLeadThreshold || counts.Appointment >= LeadCapturedAppointmentThreshold,
		AppointmentBooked: counts.Appointment >= AppointmentBookedThreshold,
		SalesQualified:    counts.Qualification >= SalesQualifiedThreshold,
	}
}

// Flatten joins every utterance's text into one lowercase string.
func Flatten(transcript []Utterance) string {
	parts := make([]string, 0, len(transcript))
	for _, u := range transcript {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// CountKeywords counts distinct lexicon entries present in already lowercased text.
func CountKeywords(text string) Counts {
	padded := " " + strings.Join(tokenize(text), " ") + " "
	return Counts{
		Lead:          countEntries(padded, LeadLexicon),
		Appointment:   countEntries(padded, AppointmentLexicon),
		Qualification: countEntries(padded, QualificationLexicon),
		Positive:      countEntries(padded, PositiveLexicon),
		Negative:      countEntries(padded, NegativeLexicon),
	}
}

// tokenize splits on anything that is not a letter, digit or apostrophe.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// countEntries padded is the token stream joined by single spaces with a space
// on each end, so " entry " only matches whole words and phrases.
func countEntries(padded string, lexicon []string) int {
	n := 0
	for _, entry := range lexicon {
		if strings.Contains(padded, " "+entry+" ") {
			n++
		}
	}
	return n
}

// LeadScore awards points per lead keyword, capped at MaxLeadScore.
func LeadScore(leadCount int) int {
	return min(leadCount*LeadPointsPerKeyword, MaxLeadScore)
}

// Sentiment is (pos-neg)/(pos+neg), 0 when there are no hits.
func Sentiment(pos, neg int) float64 {
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// QualityFor buckets by strict thresholds: 31s is good, 30s fair, 11s fair, 10s poor.
func QualityFor(durationSeconds int) Quality {
	switch {
	case durationSeconds > GoodQualityAfterSeconds:
		return QualityGood
	case durationSeconds > FairQualityAfterSeconds:
		return QualityFair
	default:
		return QualityPoor
	}
}

// ClassifyResolution applies the first matching rule to lowercased text.
func ClassifyResolution(text, endedReason string) Resolution {
	switch {
	case endedReason == TransferredEndedReason || mentionsAny(text, transferCues):
		return ResolutionTransferred
	case mentionsAny(text, appointmentCues):
		return ResolutionAppointment
	case mentionsAny(text, informationCues):
		return ResolutionInformation
	case mentionsAny(text, callbackCues):
		return ResolutionCallback
	default:
		return ResolutionGeneral
	}
}

func mentionsAny(text string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(text, c) {
			return true
		}
	}
	return false
}
