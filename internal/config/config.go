package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port      string
		Mode      string
		RateLimit int
	}
	Database struct {
		URL      string
		LogLevel string
	}
	Redis struct {
		URL string
	}
	Qdrant struct {
		URL        string
		APIKey     string
		Collection string
	}
	Embedding struct {
		Provider   string
		Model      string
		Token      string
		BaseURL    string
		Dimensions int
	}
	LLM struct {
		Provider     string
		Model        string
		GeminiAPIKey string
		OpenAIAPIKey string
		BaseURL      string
	}
	Search struct {
		TavilyAPIKey string
		SerperAPIKey string
		Timeout      time.Duration
	}
	Gateway struct {
		KBThreshold       float64
		RelatedThreshold  float64
		FeedbackThreshold float64
		VerifyThreshold   int
		LogSize           int
	}
	Cache struct {
		TTL time.Duration
	}
	Feedback struct {
		Path string
	}
	MCP struct {
		Enabled bool
	}
}

// envBindings keeps the variable names the deployment already uses.
var envBindings = map[string]string{
	"server.port":                "PORT",
	"server.mode":                "GIN_MODE",
	"server.rate_limit":          "RATE_LIMIT",
	"database.url":               "DATABASE_URL",
	"database.log_level":         "LOG_LEVEL",
	"redis.url":                  "REDIS_URL",
	"qdrant.url":                 "QDRANT_URL",
	"qdrant.api_key":             "QDRANT_API_KEY",
	"qdrant.collection":          "QDRANT_COLLECTION_NAME",
	"embedding.provider":         "EMBEDDING_PROVIDER",
	"embedding.model":            "HF_EMBEDDING_MODEL",
	"embedding.token":            "HF_TOKEN",
	"embedding.base_url":         "EMBEDDING_BASE_URL",
	"embedding.dimensions":       "EMBEDDING_DIMENSIONS",
	"llm.provider":               "LLM_PROVIDER",
	"llm.model":                  "LLM_MODEL",
	"llm.gemini_api_key":         "GEMINI_API_KEY",
	"llm.openai_api_key":         "OPENAI_API_KEY",
	"llm.base_url":               "LLM_BASE_URL",
	"search.tavily_api_key":      "TAVILY_API_KEY",
	"search.serper_api_key":      "SERPER_API_KEY",
	"search.timeout":             "SEARCH_TIMEOUT",
	"gateway.kb_threshold":       "KB_THRESHOLD",
	"gateway.related_threshold":  "RELATED_THRESHOLD",
	"gateway.feedback_threshold": "FEEDBACK_THRESHOLD",
	"gateway.verify_threshold":   "VERIFY_THRESHOLD",
	"gateway.log_size":           "GATEWAY_LOG_SIZE",
	"cache.ttl":                  "CACHE_TTL",
	"feedback.path":              "FEEDBACK_DB_PATH",
	"mcp.enabled":                "MCP_ENABLED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("database.url", "")
	v.SetDefault("database.log_level", "info")
	v.SetDefault("redis.url", "")
	v.SetDefault("qdrant.url", "http://localhost:6333")
	v.SetDefault("qdrant.collection", "math_knowledge_base")
	v.SetDefault("embedding.provider", "huggingface")
	v.SetDefault("embedding.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embedding.base_url", "https://api-inference.huggingface.co")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-1.5-flash")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("gateway.kb_threshold", 0.6)
	v.SetDefault("gateway.related_threshold", 0.6)
	v.SetDefault("gateway.feedback_threshold", 0.7)
	v.SetDefault("gateway.verify_threshold", 7)
	v.SetDefault("gateway.log_size", 100)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("feedback.path", "feedback_data.json")
	v.SetDefault("mcp.enabled", true)
}

// Load reads config.yaml from the working directory (optional) and the
// environment. Environment values win over the file.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit directory to search for config.yaml.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config

	config.Server.Port = v.GetString("server.port")
	config.Server.Mode = v.GetString("server.mode")
	config.Server.RateLimit = v.GetInt("server.rate_limit")
	config.Database.URL = v.GetString("database.url")
	config.Database.LogLevel = v.GetString("database.log_level")
	config.Redis.URL = v.GetString("redis.url")
	config.Qdrant.URL = v.GetString("qdrant.url")
	config.Qdrant.APIKey = v.GetString("qdrant.api_key")
	config.Qdrant.Collection = v.GetString("qdrant.collection")
	config.Embedding.Provider = v.GetString("embedding.provider")
	config.Embedding.Model = v.GetString("embedding.model")
	config.Embedding.Token = v.GetString("embedding.token")
	config.Embedding.BaseURL = v.GetString("embedding.base_url")
	config.Embedding.Dimensions = v.GetInt("embedding.dimensions")
	config.LLM.Provider = v.GetString("llm.provider")
	config.LLM.Model = v.GetString("llm.model")
	config.LLM.GeminiAPIKey = v.GetString("llm.gemini_api_key")
	config.LLM.OpenAIAPIKey = v.GetString("llm.openai_api_key")
	config.LLM.BaseURL = v.GetString("llm.base_url")
	config.Search.TavilyAPIKey = v.GetString("search.tavily_api_key")
	config.Search.SerperAPIKey = v.GetString("search.serper_api_key")
	config.Search.Timeout = v.GetDuration("search.timeout")
	config.Gateway.KBThreshold = v.GetFloat64("gateway.kb_threshold")
	config.Gateway.RelatedThreshold = v.GetFloat64("gateway.related_threshold")
	config.Gateway.FeedbackThreshold = v.GetFloat64("gateway.feedback_threshold")
	config.Gateway.VerifyThreshold = v.GetInt("gateway.verify_threshold")
	config.Gateway.LogSize = v.GetInt("gateway.log_size")
	config.Cache.TTL = v.GetDuration("cache.ttl")
	config.Feedback.Path = v.GetString("feedback.path")
	config.MCP.Enabled = v.GetBool("mcp.enabled")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values every binary depends on.
func (c *Config) Validate() error {
	if c.Gateway.KBThreshold < 0 || c.Gateway.KBThreshold > 1 {
		return fmt.Errorf("KB_THRESHOLD must be within [0,1], got %v", c.Gateway.KBThreshold)
	}
	if c.Gateway.RelatedThreshold < 0 || c.Gateway.RelatedThreshold > 1 {
		return fmt.Errorf("RELATED_THRESHOLD must be within [0,1], got %v", c.Gateway.RelatedThreshold)
	}
	if c.Gateway.FeedbackThreshold < 0 || c.Gateway.FeedbackThreshold > 1 {
		return fmt.Errorf("FEEDBACK_THRESHOLD must be within [0,1], got %v", c.Gateway.FeedbackThreshold)
	}
	if c.Gateway.VerifyThreshold < 0 || c.Gateway.VerifyThreshold > 10 {
		return fmt.Errorf("VERIFY_THRESHOLD must be within [0,10], got %d", c.Gateway.VerifyThreshold)
	}
	if c.Gateway.LogSize <= 0 {
		return fmt.Errorf("GATEWAY_LOG_SIZE must be positive, got %d", c.Gateway.LogSize)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT must be positive, got %s", c.Search.Timeout)
	}
	return nil
}

func (c *Config) ValidateLLM() error {
	switch c.LLM.Provider {
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}
	return nil
}

func (c *Config) ValidateSearch() error {
	if c.Search.TavilyAPIKey == "" && c.Search.SerperAPIKey == "" {
		return fmt.Errorf("at least one of TAVILY_API_KEY or SERPER_API_KEY is required")
	}
	return nil
}

func (c *Config) ValidateEmbedding() error {
	switch c.Embedding.Provider {
	case "huggingface":
		if c.Embedding.Model == "" {
			return fmt.Errorf("HF_EMBEDDING_MODEL is required")
		}
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for openai embeddings")
		}
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.Embedding.Provider)
	}
	return nil
}
