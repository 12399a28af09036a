package health

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/database"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	checkTimeout = 5 * time.Second

	// rows older than this are not served in place of a fresh check
	historyFreshness = time.Minute
)

var ErrNoHistory = errors.New("health history is not configured")

// Pinger checks one backing service.
type Pinger func(ctx context.Context) error

type target struct {
	name     string
	ping     Pinger
	critical bool
}

// HealthChecker manages health checks for all registered services. The
// health repository and cache are both optional.
type HealthChecker struct {
	targets    []target
	cache      *database.Cache
	healthRepo models.SystemHealthRepository
	logger     *logrus.Logger
	startTime  time.Time
}

func NewHealthChecker(healthRepo models.SystemHealthRepository, cache *database.Cache, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		cache:      cache,
		healthRepo: healthRepo,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// Register adds a service. A failing critical service makes the whole
// system unhealthy; any other failure only degrades it.
func (h *HealthChecker) Register(name string, ping Pinger, critical bool) {
	h.targets = append(h.targets, target{name: name, ping: ping, critical: critical})
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
	Cached   bool            `json:"cached"`
}

func (h *HealthChecker) check(ctx context.Context, p target) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := p.ping(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	status := StatusHealthy
	errorMsg := ""
	if err != nil {
		status = StatusUnhealthy
		if !p.critical {
			status = StatusDegraded
		}
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", p.name).Error("Health check failed")
	}

	if h.healthRepo != nil {
		if err := h.healthRepo.UpdateServiceHealth(p.name, status, responseTime, errorMsg); err != nil {
			h.logger.WithError(err).WithField("service", p.name).Warn("Failed to record service health")
		}
	}

	return ServiceHealth{
		Name:         p.name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := make([]ServiceHealth, 0, len(h.targets))
	for _, p := range h.targets {
		services = append(services, h.check(ctx, p))
	}

	return OverallHealth{
		Status:   aggregate(services),
		Services: services,
		Uptime:   time.Since(h.startTime).String(),
	}
}

func aggregate(services []ServiceHealth) string {
	overallStatus := StatusHealthy
	for _, service := range services {
		if service.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if service.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}
	return overallStatus
}

// CheckCached returns the last periodic result from Redis, then from the
// health table when every registered service has a fresh row, and runs a
// fresh check otherwise.
func (h *HealthChecker) CheckCached(ctx context.Context) OverallHealth {
	if h.cache != nil {
		cachedHealth, found, err := h.cache.GetCachedSystemHealth(ctx)
		if err != nil {
			h.logger.WithError(err).Warn("Failed to read cached health status")
		}
		if found {
			return h.fromRows(cachedHealth)
		}
	}

	if rows, ok := h.freshRows(); ok {
		return h.fromRows(rows)
	}

	health := h.CheckAll(ctx)
	h.store(ctx, health, time.Minute)
	return health
}

func (h *HealthChecker) fromRows(rows []models.SystemHealth) OverallHealth {
	services := make([]ServiceHealth, len(rows))
	for i, row := range rows {
		services[i] = toServiceHealth(row)
	}
	return OverallHealth{
		Status:   aggregate(services),
		Services: services,
		Uptime:   time.Since(h.startTime).String(),
		Cached:   true,
	}
}

// freshRows returns the latest stored row of each registered service when
// all of them were checked recently.
func (h *HealthChecker) freshRows() ([]models.SystemHealth, bool) {
	if h.healthRepo == nil || len(h.targets) == 0 {
		return nil, false
	}
	latest, err := h.healthRepo.GetAllServicesHealth()
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read stored health status")
		return nil, false
	}

	byName := make(map[string]models.SystemHealth, len(latest))
	for _, row := range latest {
		byName[row.ServiceName] = row
	}

	rows := make([]models.SystemHealth, 0, len(h.targets))
	for _, p := range h.targets {
		row, found := byName[p.name]
		if !found || time.Since(row.CheckedAt) > historyFreshness {
			return nil, false
		}
		rows = append(rows, row)
	}
	return rows, true
}

func toServiceHealth(row models.SystemHealth) ServiceHealth {
	return ServiceHealth{
		Name:         row.ServiceName,
		Status:       row.Status,
		ResponseTime: row.ResponseTimeMs,
		Error:        row.ErrorMessage,
		LastChecked:  row.CheckedAt.Format(time.RFC3339),
	}
}

// Services lists the last recorded state of every service that was ever
// checked, or only of those not currently healthy.
func (h *HealthChecker) Services(ctx context.Context, unhealthyOnly bool) ([]ServiceHealth, error) {
	if h.healthRepo == nil {
		return nil, ErrNoHistory
	}

	var rows []models.SystemHealth
	var err error
	if unhealthyOnly {
		rows, err = h.healthRepo.GetUnhealthyServices()
	} else {
		rows, err = h.healthRepo.GetAllServicesHealth()
	}
	if err != nil {
		return nil, err
	}

	services := make([]ServiceHealth, len(rows))
	for i, row := range rows {
		services[i] = toServiceHealth(row)
	}
	return services, nil
}

// Service returns the last recorded state of one service. Unknown names
// give models.ErrNotFound.
func (h *HealthChecker) Service(ctx context.Context, name string) (ServiceHealth, error) {
	if h.healthRepo == nil {
		return ServiceHealth{}, ErrNoHistory
	}
	row, err := h.healthRepo.GetServiceHealth(name)
	if err != nil {
		return ServiceHealth{}, err
	}
	return toServiceHealth(*row), nil
}

func (h *HealthChecker) store(ctx context.Context, health OverallHealth, ttl time.Duration) {
	if h.cache == nil {
		return
	}

	healthModels := make([]models.SystemHealth, len(health.Services))
	for i, service := range health.Services {
		checkedAt, _ := time.Parse(time.RFC3339, service.LastChecked)
		healthModels[i] = models.SystemHealth{
			ServiceName:    service.Name,
			Status:         service.Status,
			ResponseTimeMs: service.ResponseTime,
			ErrorMessage:   service.Error,
			CheckedAt:      checkedAt,
		}
	}

	cacheCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := h.cache.CacheSystemHealth(cacheCtx, healthModels, ttl); err != nil {
		h.logger.WithError(err).Error("Failed to cache health status")
	}
}

// PeriodicHealthCheck runs health checks until ctx is cancelled and caches
// each result for two intervals.
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := h.CheckAll(ctx)
			h.store(ctx, health, 2*interval)
			h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
		}
	}
}
