package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analytics"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analyzer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func seedCall(t *testing.T, env *testEnv, id, assistantID, caller string, startedAt time.Time, status models.CallStatus, duration int, signals analyzer.Signals) {
	t.Helper()
	analyzedAt := startedAt.Add(time.Duration(duration) * time.Second)
	rec := models.CallRecord{
		ExternalCallID:  id,
		AssistantID:     assistantID,
		CallerNumber:    caller,
		Status:          status,
		DurationSeconds: duration,
		Derived:         signals,
		AnalyzedAt:      &analyzedAt,
		StartedAt:       startedAt,
		TimeOfDay:       startedAt.Hour(),
		DayOfWeek:       int(startedAt.Weekday()),
	}
	require.NoError(t, env.db.Create(&rec).Error)
}

func TestGetAnalytics_Range(t *testing.T) {
	env := newTestEnv(t)
	lead := analyzer.Signals{LeadCaptured: true, SentimentScore: 0.5, QualityBucket: analyzer.QualityGood, ResolutionType: analyzer.ResolutionAppointment}
	plain := analyzer.Signals{QualityBucket: analyzer.QualityPoor, ResolutionType: analyzer.ResolutionGeneral}

	// current 7d window is [Mar 3 12:00, Mar 10 12:00]
	seedCall(t, env, "c1", "asst-1", "+1", env.now.Add(-time.Hour), models.CallStatusCompleted, 60, lead)
	seedCall(t, env, "c2", "asst-1", "+1", env.now.Add(-2*time.Hour), models.CallStatusFailed, 5, plain)
	seedCall(t, env, "c3", "asst-2", "+2", env.now.Add(-3*time.Hour), models.CallStatusCompleted, 30, plain)
	seedCall(t, env, "c4", "asst-3", "+3", env.now.Add(-4*time.Hour), models.CallStatusCompleted, 30, plain)
	// previous window
	seedCall(t, env, "p1", "asst-1", "+9", env.now.Add(-8*24*time.Hour), models.CallStatusCompleted, 20, plain)
	// exactly on the boundary belongs to the current window only
	seedCall(t, env, "b1", "asst-1", "+8", env.now.Add(-7*24*time.Hour), models.CallStatusCompleted, 20, plain)

	w := env.do(t, http.MethodGet, "/api/analytics?assistantId=asst-1&assistantId=asst-2&range=7d", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap analytics.Snapshot
	resp := decodeEnvelope(t, w, &snap)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 4, snap.Current.TotalCalls)
	assert.Equal(t, 3, snap.Current.CompletedCalls)
	assert.Equal(t, 1, snap.Current.FailedCalls)
	assert.Equal(t, 1, snap.Current.Leads)
	assert.Equal(t, 3, snap.Current.UniqueCallers)
	assert.Equal(t, 1, snap.Previous.TotalCalls)
	assert.Equal(t, 300, snap.Changes.Calls)
	assert.Len(t, snap.Trends, 7)
	assert.NotNil(t, snap.Insights)
}

func TestGetAnalytics_CustomRange(t *testing.T) {
	env := newTestEnv(t)
	seedCall(t, env, "c1", "asst-1", "+1", time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC), models.CallStatusCompleted, 60, analyzer.Signals{})

	w := env.do(t, http.MethodGet, "/api/analytics?assistantIds=asst-1&start=2024-03-09&end=2024-03-09", nil, nil)
	var snap analytics.Snapshot
	resp := decodeEnvelope(t, w, &snap)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, snap.Current.TotalCalls)
	assert.Equal(t, analytics.Window1d, snap.Range.Window)
	assert.Len(t, snap.Trends, 24)
}

func TestGetAnalytics_InvalidParams(t *testing.T) {
	env := newTestEnv(t)
	tests := []string{
		"/api/analytics?range=7d",
		"/api/analytics?assistantId=a&range=2w",
		"/api/analytics?assistantId=a&start=2024-03-09",
		"/api/analytics?assistantId=a&start=2024-03-10&end=2024-03-01",
		"/api/analytics?assistantId=a&start=soon&end=2024-03-01",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			w := env.do(t, http.MethodGet, path, nil, nil)
			resp := decodeEnvelope(t, w, nil)
			assert.Equal(t, http.StatusInternalServerError, resp.Code, fmt.Sprint(resp.Data))
		})
	}
}

func TestGetAnalytics_Empty(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/analytics?assistantId=nobody", nil, nil)
	var snap analytics.Snapshot
	resp := decodeEnvelope(t, w, &snap)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Zero(t, snap.Current.TotalCalls)
	assert.Zero(t, snap.Changes.Calls)
	assert.Empty(t, snap.Insights)
}

func TestGetCall(t *testing.T) {
	env := newTestEnv(t)
	seedCall(t, env, "c1", "asst-1", "+1", env.now, models.CallStatusCompleted, 60, analyzer.Signals{LeadScore: 20})

	w := env.do(t, http.MethodGet, "/api/calls/c1", nil, nil)
	var rec models.CallRecord
	resp := decodeEnvelope(t, w, &rec)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "c1", rec.ExternalCallID)
	assert.Equal(t, 20, rec.Derived.LeadScore)

	w = env.do(t, http.MethodGet, "/api/calls/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
