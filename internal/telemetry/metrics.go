package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
)

const namespace = "mathgate"

// Outcome labels for requests_total.
const (
	OutcomeSuccess = "success"
	OutcomeBlocked = "blocked"
	OutcomeFailed  = "failed"
)

// Metrics holds the Prometheus collectors for the gateway. It implements
// gateway.Observer.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	ProcessingSeconds *prometheus.HistogramVec
	Confidence        *prometheus.HistogramVec
	GuardrailVerdicts *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors on reg. Pass prometheus.NewRegistry()
// in tests so registrations do not collide.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Processed tutoring requests by outcome and answering agent",
		}, []string{"outcome", "agent"}),

		ProcessingSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "processing_seconds",
			Help:      "End to end request processing time in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),

		Confidence: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "confidence",
			Help:      "Confidence of successful answers",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		}, []string{"agent"}),

		GuardrailVerdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "guardrail",
			Name:      "verdicts_total",
			Help:      "Guardrail verdicts by guardrail and action",
		}, []string{"guardrail", "action"}),

		gatherer: reg,
	}
}

func outcomeOf(entry gateway.LogEntry) string {
	switch {
	case entry.Blocked:
		return OutcomeBlocked
	case entry.Success:
		return OutcomeSuccess
	default:
		return OutcomeFailed
	}
}

func (m *Metrics) ObserveRequest(ctx context.Context, req gateway.Request, resp *gateway.Response, entry gateway.LogEntry) {
	outcome := outcomeOf(entry)

	m.RequestsTotal.WithLabelValues(outcome, entry.AgentUsed).Inc()
	m.ProcessingSeconds.WithLabelValues(outcome).Observe(entry.ProcessingTime)
	if entry.Success {
		m.Confidence.WithLabelValues(entry.AgentUsed).Observe(entry.Confidence)
	}

	for _, v := range resp.GuardrailVerdicts {
		m.GuardrailVerdicts.WithLabelValues(v.Guardrail, string(v.Action)).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
