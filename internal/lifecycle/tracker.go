package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analytics"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analyzer"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/events"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/metrics"
	"go.uber.org/zap"
)

const (
	EventCallStarted     = "call-started"
	EventTranscript      = "transcript"
	EventCallEnded       = "call-ended"
	EventEndOfCallReport = "end-of-call-report"
)

const eventSource = "lifecycle"

// CallStore is the durable store the tracker mutates.
type CallStore interface {
	MutateCall(ctx context.Context, externalID string, fn models.MutateFunc) (*models.CallRecord, error)
}

// Ack acknowledges an ingested event. Applied is false when the event left
// the record unchanged.
type Ack struct {
	CallID    string            `json:"callId"`
	EventType string            `json:"eventType"`
	Status    models.CallStatus `json:"status,omitempty"`
	Applied   bool              `json:"applied"`
}

// Tracker turns lifecycle events into CallRecord transitions.
type Tracker struct {
	store   CallStore
	bus     *events.EventBus
	metrics *metrics.Metrics
	loc     *time.Location
	locks   *keyedMutex
	now     func() time.Time
}

// NewTracker bus and m may be nil. loc is the business timezone used for
// TimeOfDay and DayOfWeek; nil means UTC.
func NewTracker(store CallStore, bus *events.EventBus, m *metrics.Metrics, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{
		store:   store,
		bus:     bus,
		metrics: m,
		loc:     loc,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// CanonicalEventType maps provider aliases onto the tracker's event names.
func CanonicalEventType(eventType string) string {
	t := strings.ToLower(strings.TrimSpace(eventType))
	if t == EventEndOfCallReport {
		return EventCallEnded
	}
	return t
}

// Ingest applies one event. Malformed and unsupported events come back as
// *IngestError; any other error is a store failure worth retrying.
func (t *Tracker) Ingest(ctx context.Context, eventType string, payload []byte) (Ack, error) {
	kind := CanonicalEventType(eventType)
	ack := Ack{EventType: kind}

	switch kind {
	case EventCallStarted, EventTranscript, EventCallEnded:
	default:
		t.metrics.RecordWebhookEvent(kind, "unsupported")
		return ack, unsupported(eventType)
	}

	p, err := ParsePayload(payload)
	if err != nil {
		t.metrics.RecordWebhookEvent(kind, "malformed")
		return ack, malformed(kind, "", err)
	}
	ack.CallID = p.CallID
	if p.CallID == "" {
		t.metrics.RecordWebhookEvent(kind, "malformed")
		return ack, malformed(kind, "", errors.New("missing call id"))
	}
	if kind == EventTranscript && !p.HasTranscript {
		t.metrics.RecordWebhookEvent(kind, "malformed")
		return ack, malformed(kind, p.CallID, errors.New("missing transcript"))
	}

	unlock := t.locks.Lock(p.CallID)
	defer unlock()

	ev := t.newEvent(kind, p)
	var fn models.MutateFunc
	switch kind {
	case EventCallStarted:
		fn = t.applyStarted(ev)
	case EventTranscript:
		fn = t.applyTranscript(ev)
	case EventCallEnded:
		fn = t.applyEnded(ev)
	}

	res, err := t.mutate(ctx, p.CallID, fn)
	if err != nil {
		t.metrics.RecordWebhookEvent(kind, "error")
		logger.Error("call record mutation failed",
			zap.String("callId", p.CallID),
			zap.String("eventType", kind),
			zap.Error(err))
		return ack, err
	}

	ack.Applied = res.applied
	if res.rec != nil {
		ack.Status = res.rec.Status
	}
	if res.applied {
		t.metrics.RecordWebhookEvent(kind, "applied")
	} else {
		t.metrics.RecordWebhookEvent(kind, "noop")
	}
	if res.finalized {
		t.publishFinalized(res.rec)
	}
	return ack, nil
}

// FinalizeStale closes a call that stopped receiving events. The record is
// left alone when it is already final, missing, or was touched after before;
// all three are checked under the call lock.
func (t *Tracker) FinalizeStale(ctx context.Context, callID string, before time.Time) (Ack, error) {
	ack := Ack{CallID: callID, EventType: EventCallEnded}

	unlock := t.locks.Lock(callID)
	defer unlock()

	ev := t.newEvent(EventCallEnded, &Payload{CallID: callID, EndedReason: StaleTimeoutReason})
	ended := t.applyEnded(ev)
	res, err := t.mutate(ctx, callID, func(rec *models.CallRecord, exists bool) (bool, error) {
		if !exists || rec.Status.IsFinal() || rec.UpdatedAt.After(before) {
			return false, nil
		}
		return ended(rec, exists)
	})
	if err != nil {
		return ack, err
	}

	ack.Applied = res.applied
	if res.rec != nil {
		ack.Status = res.rec.Status
	}
	if res.finalized {
		t.publishFinalized(res.rec)
	}
	return ack, nil
}

// event is one delivery with its start time candidate already resolved.
type event struct {
	kind     string
	p        *Payload
	now      time.Time
	start    time.Time
	startSrc models.StartSource
}

func (t *Tracker) newEvent(kind string, p *Payload) *event {
	ev := &event{kind: kind, p: p, now: t.now()}
	switch {
	case !p.StartedAt.IsZero():
		ev.start, ev.startSrc = p.StartedAt, models.StartFromPayload
	case !p.Timestamp.IsZero() && kind == EventCallStarted:
		ev.start, ev.startSrc = p.Timestamp, models.StartFromCallStarted
	case !p.Timestamp.IsZero():
		ev.start, ev.startSrc = p.Timestamp, models.StartFromEventTime
	default:
		ev.start, ev.startSrc = ev.now, models.StartFromIngest
	}
	return ev
}

type mutation struct {
	rec     *models.CallRecord
	applied bool
	// finalized is true when the record became final or its final outcome changed.
	finalized bool
}

func (t *Tracker) mutate(ctx context.Context, callID string, fn models.MutateFunc) (mutation, error) {
	var res mutation
	rec, err := t.store.MutateCall(ctx, callID, func(rec *models.CallRecord, exists bool) (bool, error) {
		wasFinal := exists && rec.Status.IsFinal()
		prevStatus, prevDerived := rec.Status, rec.Derived

		changed, err := fn(rec, exists)
		res.applied = changed
		res.finalized = changed && rec.Status.IsFinal() &&
			(!wasFinal || rec.Status != prevStatus || rec.Derived != prevDerived)
		return changed, err
	})
	if err != nil {
		return mutation{}, err
	}
	res.rec = rec
	return res, nil
}

func (t *Tracker) applyStarted(ev *event) models.MutateFunc {
	return func(rec *models.CallRecord, exists bool) (bool, error) {
		if !exists {
			t.initRecord(rec, ev)
			rec.Status = models.CallStatusStarted
			return true, nil
		}
		changed := fillIdentity(rec, ev.p)
		if t.applyStart(rec, ev) {
			t.refreshFinal(rec)
			changed = true
		}
		return changed, nil
	}
}

func (t *Tracker) applyTranscript(ev *event) models.MutateFunc {
	return func(rec *models.CallRecord, exists bool) (bool, error) {
		switch {
		case !exists:
			t.initRecord(rec, ev)
		case rec.Status.IsFinal():
			// transcript is frozen, but a better start time still counts
			changed := fillIdentity(rec, ev.p)
			if t.applyStart(rec, ev) {
				t.refreshFinal(rec)
				changed = true
			}
			return changed, nil
		default:
			fillIdentity(rec, ev.p)
			t.applyStart(rec, ev)
		}
		rec.Status = models.CallStatusActive
		rec.Transcript = ev.p.Transcript
		return true, nil
	}
}

func (t *Tracker) applyEnded(ev *event) models.MutateFunc {
	p := ev.p
	return func(rec *models.CallRecord, exists bool) (bool, error) {
		if !exists {
			t.initRecord(rec, ev)
		} else {
			fillIdentity(rec, p)
			t.applyStart(rec, ev)
		}
		if p.HasTranscript {
			rec.Transcript = p.Transcript
		}
		if p.DurationSeconds != nil {
			rec.DurationSeconds = *p.DurationSeconds
			rec.DurationExplicit = true
		}
		if !p.EndedAt.IsZero() {
			endedAt := p.EndedAt.UTC()
			rec.EndedAt = &endedAt
		}

		rec.EndedReason = p.EndedReason
		rec.Status = StatusForEndedReason(p.EndedReason)
		t.refreshFinal(rec)
		if rec.AnalyzedAt == nil {
			analyzedAt := ev.now.UTC()
			rec.AnalyzedAt = &analyzedAt
		}
		return true, nil
	}
}

// refreshFinal recomputes what a final record derives from its other fields.
// Duration comes from EndedAt-StartedAt unless the provider reported one.
func (t *Tracker) refreshFinal(rec *models.CallRecord) {
	if !rec.Status.IsFinal() {
		return
	}
	if !rec.DurationExplicit && rec.EndedAt != nil {
		rec.DurationSeconds = 0
		if span := rec.EndedAt.Sub(rec.StartedAt); span > 0 {
			rec.DurationSeconds = int(span.Seconds())
		}
	}
	rec.Derived = analyzer.Analyze(rec.Transcript, rec.DurationSeconds, rec.EndedReason)
}

// initRecord fills a fresh record.
func (t *Tracker) initRecord(rec *models.CallRecord, ev *event) {
	rec.AssistantID = ev.p.AssistantID
	rec.CallerNumber = ev.p.CallerNumber
	if rec.CallerNumber == "" {
		rec.CallerNumber = analytics.UnknownCaller
	}
	rec.StartSource = ev.startSrc
	t.setStart(rec, ev.start)
	if rec.Transcript == nil {
		rec.Transcript = []analyzer.Utterance{}
	}
}

// applyStart takes the event's start time when its source outranks the
// stored one, or ties with it and is earlier. Any arrival order therefore
// settles on the same StartedAt.
func (t *Tracker) applyStart(rec *models.CallRecord, ev *event) bool {
	if ev.startSrc < rec.StartSource {
		return false
	}
	if ev.startSrc == rec.StartSource && !ev.start.Before(rec.StartedAt) {
		return false
	}
	rec.StartSource = ev.startSrc
	t.setStart(rec, ev.start)
	return true
}

// setStart stores UTC; TimeOfDay and DayOfWeek are in the business timezone.
func (t *Tracker) setStart(rec *models.CallRecord, started time.Time) {
	local := started.In(t.loc)
	rec.StartedAt = started.UTC()
	rec.TimeOfDay = local.Hour()
	rec.DayOfWeek = int(local.Weekday())
}
// fillIdentity sets identity fields a synthesized record may have missed.
func fillIdentity(rec *models.CallRecord, p *Payload) bool {
	changed := false
	if rec.AssistantID == "" && p.AssistantID != "" {
		rec.AssistantID = p.AssistantID
		changed = true
	}
	if (rec.CallerNumber == "" || rec.CallerNumber == analytics.UnknownCaller) && p.CallerNumber != "" {
		rec.CallerNumber = p.CallerNumber
		changed = true
	}
	return changed
}

func (t *Tracker) publishFinalized(rec *models.CallRecord) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(events.Event{
		Type:   events.CallFinalized,
		Source: eventSource,
		Data: map[string]interface{}{
			"callId":            rec.ExternalCallID,
			"assistantId":       rec.AssistantID,
			"callerNumber":      rec.CallerNumber,
			"status":            string(rec.Status),
			"endedReason":       rec.EndedReason,
			"durationSeconds":   rec.DurationSeconds,
			"leadScore":         rec.Derived.LeadScore,
			"leadCaptured":      rec.Derived.LeadCaptured,
			"appointmentBooked": rec.Derived.AppointmentBooked,
			"salesQualified":    rec.Derived.SalesQualified,
		},
	})
}
