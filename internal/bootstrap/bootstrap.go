// Package bootstrap builds the tutoring pipeline and its backing services
// from configuration. Every binary shares it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/config"
	"github.com/Ayash-Bera/mathgate/backend/internal/database"
	"github.com/Ayash-Bera/mathgate/backend/internal/embedding"
	"github.com/Ayash-Bera/mathgate/backend/internal/feedback"
	"github.com/Ayash-Bera/mathgate/backend/internal/gateway"
	"github.com/Ayash-Bera/mathgate/backend/internal/guardrail"
	"github.com/Ayash-Bera/mathgate/backend/internal/health"
	"github.com/Ayash-Bera/mathgate/backend/internal/knowledge"
	"github.com/Ayash-Bera/mathgate/backend/internal/llm"
	"github.com/Ayash-Bera/mathgate/backend/internal/mcp"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/internal/repository"
	"github.com/Ayash-Bera/mathgate/backend/internal/services"
	"github.com/Ayash-Bera/mathgate/backend/internal/telemetry"
	"github.com/Ayash-Bera/mathgate/backend/internal/tutor"
	"github.com/Ayash-Bera/mathgate/backend/internal/websearch"
)

// App holds every long-lived component. Optional services are nil when
// they are not configured.
type App struct {
	Config *config.Config
	Logger *logrus.Logger

	DB    *database.Manager
	Cache *database.Cache
	Repos *repository.RepositoryManager

	Generator llm.Generator
	Embedder  embedding.Provider
	Index     knowledge.Index
	Qdrant    *knowledge.QdrantIndex
	Retriever *knowledge.Retriever

	Synthesizer *tutor.Synthesizer
	Verifier    *tutor.Verifier
	Chain       *websearch.Chain
	Feedback    feedback.Store

	Gateway  *gateway.Gateway
	Tutor    *services.TutorService
	Audit    *services.AuditRecorder
	Registry *prometheus.Registry
	Metrics  *telemetry.Metrics
	Health   *health.HealthChecker
	MCP      *mcp.Server
}

// OpenKnowledgeBase builds the embedder and the vector index. Without a
// Qdrant URL an in-memory index is used and the returned QdrantIndex is
// nil.
func OpenKnowledgeBase(cfg *config.Config, logger *logrus.Logger) (embedding.Provider, knowledge.Index, *knowledge.QdrantIndex, error) {
	embedder, err := embedding.New(cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	if cfg.Qdrant.URL == "" {
		logger.Warn("QDRANT_URL not set, using in-memory knowledge base")
		return embedder, knowledge.NewMemoryIndex(), nil, nil
	}

	qdrantIndex, err := knowledge.NewQdrantIndex(knowledge.QdrantConfig{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		Dims:       uint64(cfg.Embedding.Dimensions),
	}, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return embedder, qdrantIndex, qdrantIndex, nil
}

// New wires the full application. A missing LLM key is fatal; Postgres,
// Redis and the search providers are optional.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	generator, err := llm.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	app.Generator = generator

	if err := cfg.ValidateSearch(); err != nil {
		logger.WithError(err).Warn("No web search provider configured, fallback chain will always be exhausted")
	}

	app.DB, err = database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}
	if app.DB.HasDB() {
		app.Repos = repository.NewRepositoryManager(app.DB.DB)
	}
	if app.DB.HasRedis() {
		app.Cache = database.NewCache(app.DB.Redis, cfg.Cache.TTL, logger)
	}

	app.Embedder, app.Index, app.Qdrant, err = OpenKnowledgeBase(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	if app.Qdrant != nil {
		if err := app.Qdrant.EnsureCollection(ctx, false); err != nil {
			logger.WithError(err).Warn("Knowledge base collection unavailable, lookups will miss")
		}
	}
	app.Retriever = knowledge.NewRetriever(app.Embedder, app.Index, logger)

	app.Synthesizer = tutor.NewSynthesizer(generator, logger)
	app.Verifier = tutor.NewVerifier(generator, logger)
	app.Chain = websearch.NewChain(
		app.Synthesizer,
		app.Verifier,
		cfg.Gateway.VerifyThreshold,
		logger,
		websearch.DefaultStrategies(cfg.Search.TavilyAPIKey, cfg.Search.SerperAPIKey, cfg.Search.Timeout, logger)...,
	)
	if app.Cache != nil {
		app.Chain.SetCache(app.Cache)
	}

	app.Feedback, err = openFeedbackStore(cfg, app.Repos, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	input, output, err := guardrail.DefaultRunners(
		guardrail.NewInputValidator(generator, logger),
		guardrail.NewOutputValidator(logger),
		logger,
	)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Gateway, err = gateway.New(gateway.Config{
		KBThreshold: cfg.Gateway.KBThreshold,
		LogSize:     cfg.Gateway.LogSize,
	}, gateway.Dependencies{
		Input:       input,
		Output:      output,
		Retriever:   app.Retriever,
		Synthesizer: app.Synthesizer,
		Chain:       app.Chain,
		Feedback:    feedback.NewAdvisor(app.Feedback, cfg.Gateway.FeedbackThreshold),
	}, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = telemetry.NewMetrics(app.Registry)
	app.Gateway.AddObserver(app.Metrics)

	if app.Repos != nil {
		app.Audit = services.NewAuditRecorder(app.Repos.RequestAudit, logger)
		app.Gateway.AddObserver(app.Audit)
	}

	app.Tutor = services.NewTutorService(app.Gateway, app.Feedback, app.Retriever, logger)
	if app.Repos != nil {
		app.Tutor.UseAuditLog(app.Repos.RequestAudit)
	}
	app.Health = app.newHealthChecker()

	if cfg.MCP.Enabled {
		app.MCP = mcp.New(app.Tutor, app.Chain, app.Synthesizer, app.Verifier, logger)
	}

	logger.WithFields(logrus.Fields{
		"postgres":  app.DB.HasDB(),
		"redis":     app.DB.HasRedis(),
		"qdrant":    app.Qdrant != nil,
		"providers": app.Chain.Providers(),
		"mcp":       app.MCP != nil,
	}).Info("Application initialized")

	return app, nil
}

func openFeedbackStore(cfg *config.Config, repos *repository.RepositoryManager, logger *logrus.Logger) (feedback.Store, error) {
	if repos != nil {
		return feedback.NewDBStore(repos.Feedback, logger), nil
	}
	store, err := feedback.OpenFileStore(cfg.Feedback.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback store: %w", err)
	}
	return store, nil
}

func (a *App) newHealthChecker() *health.HealthChecker {
	checker := health.NewHealthChecker(a.healthRepository(), a.Cache, a.Logger)

	if a.DB.HasDB() {
		checker.Register("postgres", a.DB.PingDatabase, true)
	}
	if a.DB.HasRedis() {
		checker.Register("redis", a.DB.PingRedis, false)
	}
	if a.Qdrant != nil {
		checker.Register("qdrant", a.Qdrant.Healthy, true)
	}
	return checker
}

// healthRepository avoids handing the checker a typed nil.
func (a *App) healthRepository() models.SystemHealthRepository {
	if a.Repos == nil {
		return nil
	}
	return a.Repos.SystemHealth
}

// Close waits for pending audit writes and releases every connection.
func (a *App) Close() error {
	if a.Audit != nil {
		a.Audit.Wait()
	}

	var errs []error
	if a.Qdrant != nil {
		if err := a.Qdrant.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartHealthChecks runs the periodic health check until ctx ends.
func (a *App) StartHealthChecks(ctx context.Context, interval time.Duration) {
	go a.Health.PeriodicHealthCheck(ctx, interval)
}
