package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

func newGatewayServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/metrics", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(utils.APIResponse{
			Success: true,
			Data: gateway.Metrics{
				TotalRequests:      4,
				BlockedRequests:    1,
				SuccessfulRequests: 2,
				SuccessRate:        50,
				BlockRate:          25,
			},
		})
	})
	mux.HandleFunc("/api/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode(utils.APIResponse{
			Success: true,
			Data: []gateway.LogEntry{{
				RequestID: "req-1",
				Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
				UserQuery: "Solve 2x = 4",
				Success:   true,
				AgentUsed: gateway.AgentKnowledgeBase,
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestMetricsCommand(t *testing.T) {
	srv := newGatewayServer(t)

	out, err := run(t, "metrics", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "total requests:      4")
	assert.Contains(t, out, "success rate:        50.0%")
	assert.Contains(t, out, "block rate:          25.0%")

	out, err = run(t, "metrics", "--server", srv.URL, "--json")
	require.NoError(t, err)
	var m gateway.Metrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, 1, m.BlockedRequests)
}

func TestLogsCommand(t *testing.T) {
	srv := newGatewayServer(t)

	out, err := run(t, "logs", "--server", srv.URL, "-n", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-02T03:04:05Z")
	assert.Contains(t, out, "Solve 2x = 4")
	assert.Contains(t, out, gateway.AgentKnowledgeBase)
}

func TestMetricsCommand_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(utils.APIResponse{Message: "Rate limit exceeded"})
	}))
	t.Cleanup(srv.Close)

	_, err := run(t, "metrics", "--server", srv.URL)
	assert.ErrorContains(t, err, "429")
}

func TestArgumentValidation(t *testing.T) {
	_, err := run(t, "ask")
	assert.Error(t, err)

	_, err = run(t, "kb", "search")
	assert.Error(t, err)

	_, err = run(t, "feedback", "add", "--question", "2+2")
	assert.ErrorContains(t, err, "rating")
}

func TestPrintSolve(t *testing.T) {
	c := &cli{}
	var out bytes.Buffer
	require.NoError(t, c.printSolve(&out, models.SolveResponse{
		Content:    "Please ask a math question.",
		Blocked:    true,
		AgentUsed:  gateway.AgentNone,
		Confidence: 0.8,
		Guardrails: []models.GuardrailResult{
			{Name: "math_content_validator", Passed: false, Action: "block", Confidence: 0.8},
		},
	}))

	text := out.String()
	assert.Contains(t, text, "Please ask a math question.")
	assert.Contains(t, text, "status: blocked  agent: none")
	assert.Contains(t, text, "[FAIL] math_content_validator (block, 0.80)")

	c.asJSON = true
	out.Reset()
	require.NoError(t, c.printSolve(&out, models.SolveResponse{Content: "x = 2", Success: true}))
	var decoded models.SolveResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "x = 2", decoded.Content)
}
