package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/internal/database"
	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

type memoryHealthRepo struct {
	mu      sync.Mutex
	updates map[string]models.SystemHealth
}

func (r *memoryHealthRepo) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updates == nil {
		r.updates = map[string]models.SystemHealth{}
	}
	r.updates[serviceName] = models.SystemHealth{
		ServiceName:    serviceName,
		Status:         status,
		ResponseTimeMs: responseTime,
		ErrorMessage:   errorMsg,
		CheckedAt:      time.Now(),
	}
	return nil
}

func (r *memoryHealthRepo) GetServiceHealth(serviceName string) (*models.SystemHealth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, found := r.updates[serviceName]
	if !found {
		return nil, models.ErrNotFound
	}
	return &row, nil
}

func (r *memoryHealthRepo) GetAllServicesHealth() ([]models.SystemHealth, error) {
	return r.latest(false), nil
}

func (r *memoryHealthRepo) GetUnhealthyServices() ([]models.SystemHealth, error) {
	return r.latest(true), nil
}

func (r *memoryHealthRepo) latest(unhealthyOnly bool) []models.SystemHealth {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.updates))
	for name := range r.updates {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []models.SystemHealth
	for _, name := range names {
		row := r.updates[name]
		if unhealthyOnly && row.Status == StatusHealthy {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func ok(ctx context.Context) error { return nil }

func failing(ctx context.Context) error { return errors.New("connection refused") }

func TestCheckAll(t *testing.T) {
	tests := []struct {
		name    string
		targets map[string]Pinger
		crit    map[string]bool
		want    string
	}{
		{"all healthy", map[string]Pinger{"postgresql": ok, "qdrant": ok}, map[string]bool{"qdrant": true}, StatusHealthy},
		{"optional down", map[string]Pinger{"redis": failing, "qdrant": ok}, map[string]bool{"qdrant": true}, StatusDegraded},
		{"critical down", map[string]Pinger{"redis": ok, "qdrant": failing}, map[string]bool{"qdrant": true}, StatusUnhealthy},
		{"nothing registered", nil, nil, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memoryHealthRepo{}
			h := NewHealthChecker(repo, nil, utils.NopLogger())
			for name, ping := range tt.targets {
				h.Register(name, ping, tt.crit[name])
			}

			got := h.CheckAll(context.Background())
			assert.Equal(t, tt.want, got.Status)
			assert.Len(t, got.Services, len(tt.targets))
			assert.Len(t, repo.updates, len(tt.targets))
			assert.False(t, got.Cached)
		})
	}
}

func TestCheckAll_ReportsError(t *testing.T) {
	h := NewHealthChecker(nil, nil, utils.NopLogger())
	h.Register("redis", failing, false)

	got := h.CheckAll(context.Background())
	require.Len(t, got.Services, 1)
	assert.Equal(t, "connection refused", got.Services[0].Error)
	assert.Equal(t, StatusDegraded, got.Services[0].Status)
}

func TestCheckCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := database.NewCache(client, time.Minute, utils.NopLogger())

	calls := 0
	h := NewHealthChecker(nil, cache, utils.NopLogger())
	h.Register("qdrant", func(ctx context.Context) error {
		calls++
		return nil
	}, true)

	first := h.CheckCached(context.Background())
	assert.False(t, first.Cached)
	assert.Equal(t, 1, calls)

	second := h.CheckCached(context.Background())
	assert.True(t, second.Cached)
	assert.Equal(t, StatusHealthy, second.Status)
	require.Len(t, second.Services, 1)
	assert.Equal(t, "qdrant", second.Services[0].Name)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	third := h.CheckCached(context.Background())
	assert.False(t, third.Cached)
	assert.Equal(t, 2, calls)
}

func TestCheckCached_ServesFreshStoredRows(t *testing.T) {
	repo := &memoryHealthRepo{}
	calls := 0
	h := NewHealthChecker(repo, nil, utils.NopLogger())
	h.Register("postgres", func(ctx context.Context) error {
		calls++
		return nil
	}, true)

	first := h.CheckCached(context.Background())
	assert.False(t, first.Cached)
	assert.Equal(t, 1, calls)

	second := h.CheckCached(context.Background())
	assert.True(t, second.Cached)
	assert.Equal(t, StatusHealthy, second.Status)
	assert.Equal(t, 1, calls)

	repo.mu.Lock()
	row := repo.updates["postgres"]
	row.CheckedAt = time.Now().Add(-2 * historyFreshness)
	repo.updates["postgres"] = row
	repo.mu.Unlock()

	third := h.CheckCached(context.Background())
	assert.False(t, third.Cached)
	assert.Equal(t, 2, calls)
}

func TestCheckCached_IgnoresRowsMissingAService(t *testing.T) {
	repo := &memoryHealthRepo{}
	require.NoError(t, repo.UpdateServiceHealth("postgres", StatusHealthy, 1, ""))

	h := NewHealthChecker(repo, nil, utils.NopLogger())
	h.Register("postgres", ok, true)
	h.Register("qdrant", ok, true)

	got := h.CheckCached(context.Background())
	assert.False(t, got.Cached)
	assert.Len(t, got.Services, 2)
}

func TestServiceHistory(t *testing.T) {
	_, err := NewHealthChecker(nil, nil, utils.NopLogger()).Services(context.Background(), false)
	assert.ErrorIs(t, err, ErrNoHistory)

	repo := &memoryHealthRepo{}
	h := NewHealthChecker(repo, nil, utils.NopLogger())
	h.Register("qdrant", ok, true)
	h.Register("redis", failing, false)
	h.CheckAll(context.Background())

	all, err := h.Services(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "qdrant", all[0].Name)

	unhealthy, err := h.Services(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, unhealthy, 1)
	assert.Equal(t, "redis", unhealthy[0].Name)
	assert.Equal(t, StatusDegraded, unhealthy[0].Status)
	assert.Equal(t, "connection refused", unhealthy[0].Error)

	one, err := h.Service(context.Background(), "redis")
	require.NoError(t, err)
	assert.Equal(t, StatusDegraded, one.Status)

	_, err = h.Service(context.Background(), "nats")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPeriodicHealthCheck_StopsOnCancel(t *testing.T) {
	h := NewHealthChecker(nil, nil, utils.NopLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.PeriodicHealthCheck(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("periodic health check did not stop")
	}
}
