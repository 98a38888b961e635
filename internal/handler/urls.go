package handlers

import (
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/lifecycle"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/metrics"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/resolver"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Options wires the handler dependencies. Resolver, QACache and Metrics may be nil.
type Options struct {
	DB       *gorm.DB
	Tracker  *lifecycle.Tracker
	Resolver *resolver.Resolver
	QACache  *resolver.CachedQASource
	Metrics  *metrics.Metrics

	WebhookSecret    string
	WebhookTolerance time.Duration
	Location         *time.Location

	APIPrefix     string
	MonitorPrefix string
}

type Handlers struct {
	db       *gorm.DB
	calls    *models.CallRecordStore
	tracker  *lifecycle.Tracker
	resolver *resolver.Resolver
	qaCache  *resolver.CachedQASource
	metrics  *metrics.Metrics

	webhookSecret    string
	webhookTolerance time.Duration
	loc              *time.Location

	apiPrefix     string
	monitorPrefix string

	now func() time.Time
}

func NewHandlers(opts Options) *Handlers {
	h := &Handlers{
		db:               opts.DB,
		calls:            models.NewCallRecordStore(opts.DB),
		tracker:          opts.Tracker,
		resolver:         opts.Resolver,
		qaCache:          opts.QACache,
		metrics:          opts.Metrics,
		webhookSecret:    opts.WebhookSecret,
		webhookTolerance: opts.WebhookTolerance,
		loc:              opts.Location,
		apiPrefix:        opts.APIPrefix,
		monitorPrefix:    opts.MonitorPrefix,
		now:              time.Now,
	}
	if h.tracker == nil {
		h.tracker = lifecycle.NewTracker(h.calls, nil, opts.Metrics, opts.Location)
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.webhookTolerance <= 0 {
		h.webhookTolerance = DefaultWebhookTolerance
	}
	if h.apiPrefix == "" {
		h.apiPrefix = "/api"
	}
	if h.monitorPrefix == "" {
		h.monitorPrefix = "/metrics"
	}
	return h
}

// Register registers all routes
func (h *Handlers) Register(engine *gin.Engine) {
	engine.GET("/health", h.HealthCheck)
	if h.metrics != nil {
		engine.GET(h.monitorPrefix, gin.WrapH(h.metrics.Handler()))
	}

	r := engine.Group(h.apiPrefix)
	h.registerWebhookRoutes(r)
	h.registerAssistantRoutes(r)
	h.registerAnalyticsRoutes(r)
	h.registerCallRoutes(r)
}

func (h *Handlers) registerWebhookRoutes(r *gin.RouterGroup) {
	webhooks := r.Group("webhooks")
	{
		webhooks.POST("/voice", h.HandleVoiceWebhook)
	}
}

func (h *Handlers) registerAssistantRoutes(r *gin.RouterGroup) {
	assistants := r.Group("assistants/:assistantId")
	{
		assistants.POST("/resolve", h.ResolveQuery)
		assistants.GET("/qa-pairs", h.ListQAPairs)
		assistants.POST("/qa-pairs", h.CreateQAPair)
		assistants.DELETE("/qa-pairs/:id", h.DeleteQAPair)
	}
}

func (h *Handlers) registerAnalyticsRoutes(r *gin.RouterGroup) {
	r.GET("/analytics", h.GetAnalytics)
}

func (h *Handlers) registerCallRoutes(r *gin.RouterGroup) {
	r.GET("/calls/:externalCallId", h.GetCall)
}
