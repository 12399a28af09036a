package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 0.6, cfg.Gateway.KBThreshold)
	assert.Equal(t, 0.7, cfg.Gateway.FeedbackThreshold)
	assert.Equal(t, 7, cfg.Gateway.VerifyThreshold)
	assert.Equal(t, 100, cfg.Gateway.LogSize)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 30*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "feedback_data.json", cfg.Feedback.Path)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("QDRANT_COLLECTION_NAME", "algebra")
	t.Setenv("FEEDBACK_DB_PATH", "/tmp/fb.json")
	t.Setenv("KB_THRESHOLD", "0.75")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "gem-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, "algebra", cfg.Qdrant.Collection)
	assert.Equal(t, "/tmp/fb.json", cfg.Feedback.Path)
	assert.Equal(t, 0.75, cfg.Gateway.KBThreshold)
	assert.NoError(t, cfg.ValidateLLM())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("server:\n  port: \"9090\"\ngateway:\n  log_size: 20\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 20, cfg.Gateway.LogSize)
}

func TestLoad_RejectsOutOfRangeThreshold(t *testing.T) {
	t.Setenv("KB_THRESHOLD", "1.5")

	_, err := LoadFrom(t.TempDir())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "KB_THRESHOLD")
}

func TestValidateHelpers(t *testing.T) {
	cfg := &Config{}
	cfg.LLM.Provider = "gemini"
	assert.Error(t, cfg.ValidateLLM())

	cfg.LLM.Provider = "claude"
	assert.Error(t, cfg.ValidateLLM())

	assert.Error(t, cfg.ValidateSearch())
	cfg.Search.SerperAPIKey = "k"
	assert.NoError(t, cfg.ValidateSearch())

	cfg.Embedding.Provider = "huggingface"
	cfg.Embedding.Model = "sentence-transformers/all-MiniLM-L6-v2"
	assert.NoError(t, cfg.ValidateEmbedding())
}
