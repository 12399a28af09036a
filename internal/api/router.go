// Package api mounts the HTTP surface of the gateway.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/api/handlers"
	"github.com/Ayash-Bera/mathgate/backend/internal/middleware"
)

// Dependencies are the pieces the router mounts. Metrics and MCP are
// optional.
type Dependencies struct {
	Tutor       handlers.Tutor
	Health      handlers.HealthChecker
	RateLimiter *middleware.RateLimiter
	Metrics     http.Handler
	MCP         http.Handler
	Logger      *logrus.Logger
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestLogger(deps.Logger))

	SetupRoutes(router, deps)
	return router
}

// SetupRoutes registers the API on an existing engine.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	tutorHandler := handlers.NewTutorHandler(deps.Tutor, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.Health)

	router.GET("/health", healthHandler.HandleHealth)
	router.GET("/health/services", healthHandler.HandleServices)
	router.GET("/health/services/:name", healthHandler.HandleService)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	if deps.MCP != nil {
		router.Any("/mcp", gin.WrapH(deps.MCP))
	}

	v1 := router.Group("/api/v1")
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.RateLimit())
	}
	{
		v1.POST("/solve", tutorHandler.HandleSolve)

		v1.GET("/metrics", tutorHandler.HandleMetrics)
		v1.POST("/metrics/reset", tutorHandler.HandleResetMetrics)
		v1.GET("/logs", tutorHandler.HandleLogs)
		v1.GET("/logs/:request_id", tutorHandler.HandleLogEntry)
		v1.GET("/audit/summary", tutorHandler.HandleAuditSummary)

		fb := v1.Group("/feedback")
		fb.POST("", tutorHandler.HandleFeedback)
		fb.GET("/stats", tutorHandler.HandleFeedbackStats)
		fb.GET("/similar", tutorHandler.HandleSimilarFeedback)

		v1.GET("/kb/search", tutorHandler.HandleKnowledgeSearch)
	}
}
