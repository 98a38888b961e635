package lifecycle

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analyzer"
	"github.com/bytedance/sonic"
)

// Payload is the normalized content of one lifecycle event.
type Payload struct {
	CallID       string
	AssistantID  string
	CallerNumber string

	Timestamp time.Time
	StartedAt time.Time
	EndedAt   time.Time

	// HasTranscript distinguishes an absent transcript from an empty one.
	HasTranscript bool
	Transcript    []analyzer.Utterance

	DurationSeconds *int
	EndedReason     string
}

type rawCustomer struct {
	Number string `json:"number"`
}

type rawCall struct {
	ID          string       `json:"id"`
	AssistantID string       `json:"assistantId"`
	Customer    *rawCustomer `json:"customer"`
	StartedAt   interface{}  `json:"startedAt"`
	EndedAt     interface{}  `json:"endedAt"`
}

type rawPayload struct {
	Type            string      `json:"type"`
	CallID          string      `json:"callId"`
	AssistantID     string      `json:"assistantId"`
	CallerNumber    string      `json:"callerNumber"`
	Call            *rawCall    `json:"call"`
	Timestamp       interface{} `json:"timestamp"`
	StartedAt       interface{} `json:"startedAt"`
	EndedAt         interface{} `json:"endedAt"`
	Transcript      interface{} `json:"transcript"`
	DurationSeconds *float64    `json:"durationSeconds"`
	EndedReason     string      `json:"endedReason"`
}

type envelope struct {
	Type    string                 `json:"type"`
	Message map[string]interface{} `json:"message"`
}

// ParseEnvelope extracts the event type and payload from a webhook body. The
// body is either the event itself or wrapped as {"message": {...}}.
func ParseEnvelope(body []byte) (string, []byte, error) {
	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return "", nil, malformed("", "", err)
	}
	if env.Message == nil {
		return strings.TrimSpace(env.Type), body, nil
	}
	eventType, _ := env.Message["type"].(string)
	inner, err := sonic.Marshal(env.Message)
	if err != nil {
		return "", nil, malformed(eventType, "", err)
	}
	return strings.TrimSpace(eventType), inner, nil
}

// ParsePayload decodes an event payload. A missing call id is not an error
// here; Ingest rejects it.
func ParsePayload(data []byte) (*Payload, error) {
	var raw rawPayload
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	p := &Payload{
		CallID:       strings.TrimSpace(raw.CallID),
		AssistantID:  strings.TrimSpace(raw.AssistantID),
		CallerNumber: strings.TrimSpace(raw.CallerNumber),
		EndedReason:  strings.TrimSpace(raw.EndedReason),
	}
	startedAt, endedAt := raw.StartedAt, raw.EndedAt
	if c := raw.Call; c != nil {
		if id := strings.TrimSpace(c.ID); id != "" {
			p.CallID = id
		}
		if id := strings.TrimSpace(c.AssistantID); id != "" {
			p.AssistantID = id
		}
		if c.Customer != nil && strings.TrimSpace(c.Customer.Number) != "" {
			p.CallerNumber = strings.TrimSpace(c.Customer.Number)
		}
		if c.StartedAt != nil {
			startedAt = c.StartedAt
		}
		if c.EndedAt != nil {
			endedAt = c.EndedAt
		}
	}

	var err error
	if p.Timestamp, err = parseTime(raw.Timestamp); err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	if p.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("startedAt: %w", err)
	}
	if p.EndedAt, err = parseTime(endedAt); err != nil {
		return nil, fmt.Errorf("endedAt: %w", err)
	}

	if raw.Transcript != nil {
		p.HasTranscript = true
		if p.Transcript, err = parseTranscript(raw.Transcript); err != nil {
			return nil, fmt.Errorf("transcript: %w", err)
		}
	}

	if raw.DurationSeconds != nil {
		d := int(math.Round(*raw.DurationSeconds))
		if d < 0 {
			d = 0
		}
		p.DurationSeconds = &d
	}
	return p, nil
}

// parseTime accepts RFC3339 strings and unix seconds or milliseconds.
func parseTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, err
		}
		return parsed.UTC(), nil
	case float64:
		if t <= 0 {
			return time.Time{}, nil
		}
		// Anything past 1e12 is milliseconds (seconds would be year 33658).
		if t >= 1e12 {
			return time.UnixMilli(int64(t)).UTC(), nil
		}
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", v)
	}
}

var errUtteranceShape = errors.New("utterance must be an object")

// parseTranscript accepts an array of {role, text|message|content} objects or
// a newline delimited "Role: text" string.
func parseTranscript(v interface{}) ([]analyzer.Utterance, error) {
	out := make([]analyzer.Utterance, 0)
	switch t := v.(type) {
	case string:
		for _, line := range strings.Split(t, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			role, text := "", line
			if i := strings.Index(line, ":"); i > 0 && !strings.ContainsAny(line[:i], " \t") {
				role, text = strings.ToLower(line[:i]), strings.TrimSpace(line[i+1:])
			}
			if text != "" {
				out = append(out, analyzer.Utterance{Role: role, Text: text})
			}
		}
	case []interface{}:
		for _, item := range t {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, errUtteranceShape
			}
			role, _ := m["role"].(string)
			text := firstString(m, "text", "message", "content")
			if text == "" {
				continue
			}
			out = append(out, analyzer.Utterance{Role: strings.ToLower(strings.TrimSpace(role)), Text: text})
		}
	default:
		return nil, fmt.Errorf("unsupported transcript value %T", v)
	}
	return out, nil
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}
