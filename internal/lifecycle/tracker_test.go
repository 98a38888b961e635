package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analyzer"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/events"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioCall = `{"call":{"id":"%s","assistantId":"asst-1","customer":{"number":"+15550001111"},"startedAt":"2024-03-04T09:30:00Z"}%s}`

func body(callID, extra string) []byte {
	return []byte(fmt.Sprintf(scenarioCall, callID, extra))
}

func newTestTracker(t *testing.T) (*Tracker, *models.CallRecordStore) {
	db := models.SetupTestDB(t, models.AllModels()...)
	store := models.NewCallRecordStore(db)
	tracker := NewTracker(store, nil, nil, time.UTC)
	tracker.now = func() time.Time { return time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC) }
	return tracker, store
}

func TestTracker_FullLifecycle(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	ack, err := tracker.Ingest(ctx, EventCallStarted, body("c1", ""))
	require.NoError(t, err)
	assert.True(t, ack.Applied)
	assert.Equal(t, models.CallStatusStarted, ack.Status)

	rec, err := store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "asst-1", rec.AssistantID)
	assert.Equal(t, "+15550001111", rec.CallerNumber)
	assert.Equal(t, 9, rec.TimeOfDay)
	assert.Equal(t, int(time.Monday), rec.DayOfWeek)
	assert.Nil(t, rec.AnalyzedAt)

	ack, err = tracker.Ingest(ctx, EventTranscript, body("c1", `,"transcript":[{"role":"user","text":"I'd like to schedule an appointment"}]`))
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusActive, ack.Status)

	rec, err = store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, rec.Derived, "derived stays empty while the call is active")

	ack, err = tracker.Ingest(ctx, EventCallEnded, body("c1",
		`,"durationSeconds":45,"endedReason":"customer-ended-call","transcript":[{"role":"user","text":"I'd like to schedule an appointment and get a quote"}]`))
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusCompleted, ack.Status)

	rec, err = store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 45, rec.DurationSeconds)
	assert.Equal(t, "customer-ended-call", rec.EndedReason)
	require.NotNil(t, rec.AnalyzedAt)
	assert.True(t, rec.Derived.AppointmentBooked)
	assert.True(t, rec.Derived.LeadCaptured)
	assert.Equal(t, analyzer.QualityGood, rec.Derived.QualityBucket)
	assert.Equal(t, analyzer.ResolutionAppointment, rec.Derived.ResolutionType)
}

func TestTracker_DuplicateStartedIsNoop(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Ingest(ctx, EventCallStarted, body("c1", ""))
	require.NoError(t, err)
	ack, err := tracker.Ingest(ctx, EventCallStarted, body("c1", ""))
	require.NoError(t, err)
	assert.False(t, ack.Applied)
	assert.Equal(t, models.CallStatusStarted, ack.Status)
}

func TestTracker_TranscriptReplacesAndFreezes(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Ingest(ctx, EventTranscript, body("c1", `,"transcript":[{"role":"user","text":"one"}]`))
	require.NoError(t, err)
	_, err = tracker.Ingest(ctx, EventTranscript, body("c1", `,"transcript":[{"role":"user","text":"one"},{"role":"assistant","text":"two"}]`))
	require.NoError(t, err)

	rec, err := store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusActive, rec.Status)
	assert.Len(t, rec.Transcript, 2)

	_, err = tracker.Ingest(ctx, EventCallEnded, body("c1", `,"endedReason":"voicemail"`))
	require.NoError(t, err)

	ack, err := tracker.Ingest(ctx, EventTranscript, body("c1", `,"transcript":[{"role":"user","text":"late"}]`))
	require.NoError(t, err)
	assert.False(t, ack.Applied)
	assert.Equal(t, models.CallStatusFailed, ack.Status)

	rec, err = store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, rec.Transcript, 2)
	assert.Equal(t, "one", rec.Transcript[0].Text)
}

func TestTracker_EndedIsIdempotent(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()
	ended := body("c1", `,"durationSeconds":45,"endedReason":"customer-ended-call","transcript":"User: I want a quote and pricing"`)

	_, err := tracker.Ingest(ctx, EventCallEnded, ended)
	require.NoError(t, err)
	first, err := store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)

	tracker.now = func() time.Time { return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) }
	ack, err := tracker.Ingest(ctx, EventEndOfCallReport, ended)
	require.NoError(t, err)
	assert.Equal(t, EventCallEnded, ack.EventType)

	second, err := store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, first.Derived, second.Derived)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Transcript, second.Transcript)
	assert.True(t, first.AnalyzedAt.Equal(*second.AnalyzedAt))
}

func TestTracker_DurationFromTimestamps(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Ingest(ctx, EventCallEnded, []byte(`{"call":{"id":"c1","startedAt":"2024-03-04T09:30:00Z","endedAt":"2024-03-04T09:30:20Z"},"endedReason":"customer-ended-call"}`))
	require.NoError(t, err)
	rec, err := store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 20, rec.DurationSeconds)
	assert.Equal(t, analyzer.QualityFair, rec.Derived.QualityBucket)
	assert.Equal(t, "unknown", rec.CallerNumber)
}

func TestTracker_AllOrdersConverge(t *testing.T) {
	started := body("c1", "")
	transcript := body("c1", `,"transcript":[{"role":"user","text":"I need a quote"}]`)
	ended := body("c1", `,"durationSeconds":45,"endedReason":"customer-ended-call","transcript":[{"role":"user","text":"I'd like to schedule an appointment and get a quote"}]`)

	type step struct {
		eventType string
		payload   []byte
	}
	steps := []step{{EventCallStarted, started}, {EventTranscript, transcript}, {EventCallEnded, ended}}
	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	var reference *models.CallRecord
	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			tracker, store := newTestTracker(t)
			ctx := context.Background()
			for _, i := range order {
				_, err := tracker.Ingest(ctx, steps[i].eventType, steps[i].payload)
				require.NoError(t, err)
			}
			rec, err := store.GetCallRecord(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, models.CallStatusCompleted, rec.Status)
			if reference == nil {
				reference = rec
				return
			}
			assert.Equal(t, reference.Derived, rec.Derived)
			assert.Equal(t, reference.Transcript, rec.Transcript)
			assert.Equal(t, reference.DurationSeconds, rec.DurationSeconds)
			assert.Equal(t, reference.AssistantID, rec.AssistantID)
			assert.Equal(t, reference.CallerNumber, rec.CallerNumber)
			assert.True(t, reference.StartedAt.Equal(rec.StartedAt))
		})
	}
}

func TestTracker_SynthesizedRecordGetsIdentity(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Ingest(ctx, EventTranscript, []byte(`{"callId":"c1","transcript":[]}`))
	require.NoError(t, err)
	ack, err := tracker.Ingest(ctx, EventCallStarted, body("c1", ""))
	require.NoError(t, err)
	assert.True(t, ack.Applied)
	assert.Equal(t, models.CallStatusActive, ack.Status)

	rec, err := store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "asst-1", rec.AssistantID)
	assert.Equal(t, "+15550001111", rec.CallerNumber)
}

func TestTracker_RejectsBadEvents(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Ingest(ctx, "status-update", body("c1", ""))
	assert.True(t, errors.Is(err, ErrUnsupportedEvent))

	_, err = tracker.Ingest(ctx, EventCallStarted, []byte(`{"call":{}}`))
	assert.True(t, errors.Is(err, ErrMalformedEvent))

	_, err = tracker.Ingest(ctx, EventCallStarted, []byte(`not json`))
	assert.True(t, errors.Is(err, ErrMalformedEvent))

	_, err = tracker.Ingest(ctx, EventTranscript, body("c1", ""))
	assert.True(t, errors.Is(err, ErrMalformedEvent))

	var ingestErr *IngestError
	require.True(t, errors.As(err, &ingestErr))
	assert.Equal(t, "c1", ingestErr.CallID)
	assert.Contains(t, ingestErr.Error(), "missing transcript")
}

type failingStore struct{}

func (failingStore) MutateCall(context.Context, string, models.MutateFunc) (*models.CallRecord, error) {
	return nil, errors.New("database is locked")
}

func TestTracker_StoreFailureIsNotIngestError(t *testing.T) {
	tracker := NewTracker(failingStore{}, nil, nil, nil)
	_, err := tracker.Ingest(context.Background(), EventCallStarted, body("c1", ""))
	require.Error(t, err)
	var ingestErr *IngestError
	assert.False(t, errors.As(err, &ingestErr))
}

func TestTracker_PublishesFinalized(t *testing.T) {
	db := models.SetupTestDB(t, models.AllModels()...)
	bus := events.NewEventBus()
	m := metrics.NewMetrics("test")
	tracker := NewTracker(models.NewCallRecordStore(db), bus, m, time.UTC)

	var got atomic.Value
	bus.Subscribe(events.CallFinalized, func(e events.Event) error {
		got.Store(e)
		return nil
	})

	_, err := tracker.Ingest(context.Background(), EventCallEnded, body("c1", `,"durationSeconds":45,"endedReason":"customer-ended-call"`))
	require.NoError(t, err)
	bus.Wait()

	e, ok := got.Load().(events.Event)
	require.True(t, ok)
	assert.Equal(t, "c1", e.Data["callId"])
	assert.Equal(t, "COMPLETED", e.Data["status"])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WebhookEventsTotal.WithLabelValues(EventCallEnded, "applied")))
}

func TestTracker_ConcurrentDeliveries(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var transcript string
			for j := 0; j < n; j++ {
				if j > 0 {
					transcript += ","
				}
				transcript += fmt.Sprintf(`{"role":"user","text":"turn %d"}`, j)
			}
			_, err := tracker.Ingest(ctx, EventTranscript, body("c1", `,"transcript":[`+transcript+`]`))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rec, err := store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusActive, rec.Status)
	assert.NotEmpty(t, rec.Transcript)
	assert.Zero(t, tracker.locks.size())
}

func TestTracker_OrdersConvergeOnEventTimestamps(t *testing.T) {
	started := []byte(`{"callId":"c2","assistantId":"asst-1","timestamp":"2024-03-04T09:59:00Z"}`)
	transcript := []byte(`{"callId":"c2","timestamp":"2024-03-04T10:00:00Z","transcript":[{"role":"user","text":"I need a quote"}]}`)
	ended := []byte(`{"callId":"c2","timestamp":"2024-03-04T10:01:30Z","endedAt":"2024-03-04T10:01:00Z","endedReason":"customer-ended-call","transcript":[{"role":"user","text":"I need a quote"}]}`)

	steps := []struct {
		eventType string
		payload   []byte
	}{{EventCallStarted, started}, {EventTranscript, transcript}, {EventCallEnded, ended}}
	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			tracker, store := newTestTracker(t)
			ctx := context.Background()
			for _, i := range order {
				_, err := tracker.Ingest(ctx, steps[i].eventType, steps[i].payload)
				require.NoError(t, err)
			}
			rec, err := store.GetCallRecord(ctx, "c2")
			require.NoError(t, err)
			assert.True(t, rec.StartedAt.Equal(time.Date(2024, 3, 4, 9, 59, 0, 0, time.UTC)), "started at %s", rec.StartedAt)
			assert.Equal(t, 9, rec.TimeOfDay)
			assert.Equal(t, int(time.Monday), rec.DayOfWeek)
			assert.Equal(t, 120, rec.DurationSeconds)
			assert.Equal(t, models.CallStatusCompleted, rec.Status)
			assert.Equal(t, analyzer.QualityGood, rec.Derived.QualityBucket)
			require.Len(t, rec.Transcript, 1)
		})
	}
}

func TestTracker_StartTimeWithoutStartedEvent(t *testing.T) {
	transcript := []byte(`{"callId":"c3","timestamp":"2024-03-04T10:00:00Z","transcript":[{"role":"user","text":"hello"}]}`)
	ended := []byte(`{"callId":"c3","timestamp":"2024-03-04T10:01:00Z","endedReason":"customer-ended-call","durationSeconds":50}`)

	for name, seq := range map[string][][2]string{
		"transcript first": {{EventTranscript, string(transcript)}, {EventCallEnded, string(ended)}},
		"ended first":      {{EventCallEnded, string(ended)}, {EventTranscript, string(transcript)}},
	} {
		t.Run(name, func(t *testing.T) {
			tracker, store := newTestTracker(t)
			ctx := context.Background()
			for _, s := range seq {
				_, err := tracker.Ingest(ctx, s[0], []byte(s[1]))
				require.NoError(t, err)
			}
			rec, err := store.GetCallRecord(ctx, "c3")
			require.NoError(t, err)
			assert.True(t, rec.StartedAt.Equal(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)), "started at %s", rec.StartedAt)
			assert.Equal(t, 10, rec.TimeOfDay)
			assert.Equal(t, 50, rec.DurationSeconds)
		})
	}
}

func TestTracker_PublishesOncePerOutcome(t *testing.T) {
	db := models.SetupTestDB(t, models.AllModels()...)
	bus := events.NewEventBus()
	tracker := NewTracker(models.NewCallRecordStore(db), bus, nil, time.UTC)
	ctx := context.Background()

	var mu sync.Mutex
	var statuses []string
	bus.Subscribe(events.CallFinalized, func(e events.Event) error {
		mu.Lock()
		statuses = append(statuses, e.Data["status"].(string))
		mu.Unlock()
		return nil
	})

	_, err := tracker.Ingest(ctx, EventCallStarted, body("c1", ""))
	require.NoError(t, err)

	ack, err := tracker.FinalizeStale(ctx, "c1", tracker.now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ack.Applied)
	assert.Equal(t, models.CallStatusFailed, ack.Status)

	ack, err = tracker.FinalizeStale(ctx, "c1", tracker.now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ack.Applied, "already final")

	ended := body("c1", `,"durationSeconds":45,"endedReason":"customer-ended-call","transcript":"User: I want a quote"`)
	for i := 0; i < 3; i++ {
		_, err = tracker.Ingest(ctx, EventCallEnded, ended)
		require.NoError(t, err)
	}
	bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"FAILED", "COMPLETED"}, statuses)
}

func TestTracker_FinalizeStaleSkipsRecentAndMissing(t *testing.T) {
	tracker, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Ingest(ctx, EventCallStarted, body("c1", ""))
	require.NoError(t, err)

	ack, err := tracker.FinalizeStale(ctx, "c1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, ack.Applied)
	rec, err := store.GetCallRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusStarted, rec.Status)

	ack, err = tracker.FinalizeStale(ctx, "missing", time.Now())
	require.NoError(t, err)
	assert.False(t, ack.Applied)
	_, err = store.GetCallRecord(ctx, "missing")
	assert.Error(t, err)
}
