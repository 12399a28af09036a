package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/internal/config"
	"github.com/Ayash-Bera/mathgate/backend/internal/feedback"
	"github.com/Ayash-Bera/mathgate/backend/internal/health"
	"github.com/Ayash-Bera/mathgate/backend/internal/knowledge"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

// offlineConfig needs no network: no Postgres, Redis, Qdrant or search.
func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)

	cfg.LLM.Provider = "gemini"
	cfg.LLM.GeminiAPIKey = "test-key"
	cfg.Database.URL = ""
	cfg.Redis.URL = ""
	cfg.Qdrant.URL = ""
	cfg.Search.TavilyAPIKey = ""
	cfg.Search.SerperAPIKey = ""
	cfg.Embedding.Provider = "huggingface"
	cfg.Feedback.Path = filepath.Join(t.TempDir(), "feedback.json")
	cfg.MCP.Enabled = true
	return cfg
}

func TestOpenKnowledgeBase_InMemory(t *testing.T) {
	embedder, index, qdrantIndex, err := OpenKnowledgeBase(offlineConfig(t), utils.NopLogger())
	require.NoError(t, err)
	assert.NotNil(t, embedder)
	assert.Nil(t, qdrantIndex)
	assert.IsType(t, &knowledge.MemoryIndex{}, index)
}

func TestNew_Offline(t *testing.T) {
	app, err := New(context.Background(), offlineConfig(t), utils.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Nil(t, app.Repos)
	assert.Nil(t, app.Cache)
	assert.Nil(t, app.Audit)
	assert.NotNil(t, app.MCP)
	assert.IsType(t, &feedback.FileStore{}, app.Feedback)
	assert.Empty(t, app.Chain.Providers())

	resp, err := app.Tutor.Ask(context.Background(), "hi")
	require.NoError(t, err)
	assert.True(t, resp.Blocked)
	assert.Equal(t, 1, app.Gateway.GetMetrics().BlockedRequests)
	assert.Equal(t, float64(1), testutil.ToFloat64(app.Metrics.RequestsTotal.WithLabelValues("blocked", "none")))

	overall := app.Health.CheckAll(context.Background())
	assert.Equal(t, health.StatusHealthy, overall.Status)
	assert.Empty(t, overall.Services)
}

func TestNew_RequiresLLMKey(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.LLM.GeminiAPIKey = ""

	_, err := New(context.Background(), cfg, utils.NopLogger())
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}

func TestNew_MCPDisabled(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.MCP.Enabled = false

	app, err := New(context.Background(), cfg, utils.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	assert.Nil(t, app.MCP)
}
