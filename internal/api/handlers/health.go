package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ayash-Bera/mathgate/backend/internal/health"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

// HealthChecker reports the state of backing services.
type HealthChecker interface {
	CheckCached(ctx context.Context) health.OverallHealth
	Services(ctx context.Context, unhealthyOnly bool) ([]health.ServiceHealth, error)
	Service(ctx context.Context, name string) (health.ServiceHealth, error)
}

type HealthHandler struct {
	checker HealthChecker
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// HandleHealth answers 503 only when a critical service is down. A degraded
// system still serves traffic.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	overall := h.checker.CheckCached(c.Request.Context())

	status := http.StatusOK
	if overall.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, overall)
}

// HandleServices lists the last recorded state of each service.
// unhealthy=true keeps only degraded and unhealthy ones.
func (h *HealthHandler) HandleServices(c *gin.Context) {
	services, err := h.checker.Services(c.Request.Context(), c.Query("unhealthy") == "true")
	if err != nil {
		h.historyError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Service health retrieved", services)
}

func (h *HealthHandler) HandleService(c *gin.Context) {
	service, err := h.checker.Service(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.historyError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Service health retrieved", service)
}

func (h *HealthHandler) historyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, health.ErrNoHistory):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Health history is not available", err)
	case errors.Is(err, models.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Service has no recorded health", err)
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to read health history", err)
	}
}
