package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
	"github.com/Ayash-Bera/mathgate/backend/internal/guardrail"
)

func observe(m *Metrics, entry gateway.LogEntry, verdicts ...guardrail.Verdict) {
	m.ObserveRequest(context.Background(), gateway.NewRequest("q"), &gateway.Response{GuardrailVerdicts: verdicts}, entry)
}

func TestObserveRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	observe(m, gateway.LogEntry{Success: true, AgentUsed: "knowledge_base", Confidence: 0.9, ProcessingTime: 0.2},
		guardrail.Verdict{Guardrail: "math_content_validator", Action: guardrail.ActionAllow},
		guardrail.Verdict{Guardrail: "format_validator", Action: guardrail.ActionModify},
	)
	observe(m, gateway.LogEntry{Blocked: true, AgentUsed: "none"},
		guardrail.Verdict{Guardrail: "math_content_validator", Action: guardrail.ActionBlock},
	)
	observe(m, gateway.LogEntry{AgentUsed: "none"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(OutcomeSuccess, "knowledge_base")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(OutcomeBlocked, "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(OutcomeFailed, "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardrailVerdicts.WithLabelValues("format_validator", "MODIFY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardrailVerdicts.WithLabelValues("math_content_validator", "BLOCK")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Confidence))
}

func TestHandler(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	observe(m, gateway.LogEntry{Success: true, AgentUsed: "tavily", Confidence: 0.8})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mathgate_gateway_requests_total{agent="tavily",outcome="success"} 1`)
}
