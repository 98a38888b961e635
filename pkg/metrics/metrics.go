package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the call pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	WebhookEventsTotal *prometheus.CounterVec
	CallsFinalized     *prometheus.CounterVec
	LeadSignalsTotal   *prometheus.CounterVec

	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec

	ExternalFailures *prometheus.CounterVec
	StaleCallsSwept  prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "voicematrix"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Lifecycle webhook events by type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		CallsFinalized: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_finalized_total",
				Help:      "Calls that reached a terminal status",
			},
			[]string{"status"},
		),
		LeadSignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_signals_total",
				Help:      "Finalized calls carrying a lead signal",
			},
			[]string{"signal"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolutions_total",
				Help:      "Knowledge resolutions by source",
			},
			[]string{"source"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolution_duration_seconds",
				Help:      "Knowledge resolution latency",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"source"},
		),
		ExternalFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_failures_total",
				Help:      "Failed or timed out calls to embedding and vector backends",
			},
			[]string{"dependency", "reason"},
		),
		StaleCallsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_calls_swept_total",
				Help:      "Calls finalized by the stale call sweeper",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.WebhookEventsTotal,
		m.CallsFinalized,
		m.LeadSignalsTotal,
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.ExternalFailures,
		m.StaleCallsSwept,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordWebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) RecordCallFinalized(status string, leadCaptured, appointmentBooked, salesQualified bool) {
	if m == nil {
		return
	}
	m.CallsFinalized.WithLabelValues(status).Inc()
	if leadCaptured {
		m.LeadSignalsTotal.WithLabelValues("lead_captured").Inc()
	}
	if appointmentBooked {
		m.LeadSignalsTotal.WithLabelValues("appointment_booked").Inc()
	}
	if salesQualified {
		m.LeadSignalsTotal.WithLabelValues("sales_qualified").Inc()
	}
}

func (m *Metrics) RecordResolution(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(source).Inc()
	m.ResolutionDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) RecordExternalFailure(dependency, reason string) {
	if m == nil {
		return
	}
	m.ExternalFailures.WithLabelValues(dependency, reason).Inc()
}

func (m *Metrics) RecordStaleSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.StaleCallsSwept.Add(float64(n))
}
