package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/cache"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/embedding"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/knowledge"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/metrics"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/resolver"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type testEnv struct {
	db      *gorm.DB
	engine  *gin.Engine
	h       *Handlers
	store   *knowledge.MemoryStore
	metrics *metrics.Metrics
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := models.SetupTestDB(t, models.AllModels()...)
	m := metrics.NewMetrics("test")
	qaCache := resolver.NewCachedQASource(models.NewQAPairStore(db), cache.NewLocalCache(cache.LocalConfig{
		MaxSize:           100,
		DefaultExpiration: time.Minute,
		CleanupInterval:   time.Minute,
	}), time.Minute)
	store := knowledge.NewMemoryStore()
	res := resolver.New(qaCache, embedding.NewHashingEmbedder(64), store, resolver.Config{}, m)

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	h := NewHandlers(Options{
		DB:            db,
		Resolver:      res,
		QACache:       qaCache,
		Metrics:       m,
		WebhookSecret: testSecret,
	})
	h.now = func() time.Time { return now }

	engine := gin.New()
	h.Register(engine)
	return &testEnv{db: db, engine: engine, h: h, store: store, metrics: m, now: now}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// postWebhook sends a correctly signed webhook
func (e *testEnv) postWebhook(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	ts := strconv.FormatInt(e.now.Unix(), 10)
	return e.do(t, http.MethodPost, "/api/webhooks/voice", []byte(body), map[string]string{
		TimestampHeader: ts,
		SignatureHeader: "sha256=" + SignWebhook(testSecret, ts, []byte(body)),
	})
}

type envelopeResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelopeResponse {
	t.Helper()
	var env envelopeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
