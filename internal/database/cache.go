package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/Ayash-Bera/mathgate/backend/internal/models"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

// Cache key constants
const (
	OutcomeKey      = "mathgate:outcome:%s"
	SystemHealthKey = "mathgate:system:health"
)

const DefaultTTL = 10 * time.Minute

// Cache stores JSON values in Redis with a fixed expiration.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func outcomeKey(query string) string {
	return fmt.Sprintf(OutcomeKey, utils.QueryKey(query))
}

// CacheOutcome stores a fallback-chain outcome under the normalized query
func (c *Cache) CacheOutcome(ctx context.Context, query string, outcome interface{}) error {
	return c.set(ctx, outcomeKey(query), outcome, c.ttl)
}

// GetCachedOutcome decodes a cached outcome into dest. A miss is not an error.
func (c *Cache) GetCachedOutcome(ctx context.Context, query string, dest interface{}) (bool, error) {
	return c.get(ctx, outcomeKey(query), dest)
}

// CacheSystemHealth caches system health status
func (c *Cache) CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error {
	return c.set(ctx, SystemHealthKey, health, expiration)
}

// GetCachedSystemHealth retrieves cached system health
func (c *Cache) GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, bool, error) {
	var health []models.SystemHealth
	found, err := c.get(ctx, SystemHealthKey, &health)
	return health, found, err
}

// Invalidate removes the cached outcome for a query
func (c *Cache) Invalidate(ctx context.Context, query string) error {
	return c.client.Del(ctx, outcomeKey(query)).Err()
}

// ClearAll removes every key this service owns
func (c *Cache) ClearAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "mathgate:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Cache statistics
func (c *Cache) GetCacheStats(ctx context.Context) (map[string]string, error) {
	info, err := c.client.Info(ctx, "stats").Result()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"keyspace_hits":   extractStat(info, "keyspace_hits"),
		"keyspace_misses": extractStat(info, "keyspace_misses"),
	}, nil
}

func (c *Cache) set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

func (c *Cache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Dropping undecodable cache entry")
		c.client.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

func extractStat(info, key string) string {
	for _, line := range strings.Split(info, "\r\n") {
		if strings.HasPrefix(line, key+":") {
			return strings.TrimPrefix(line, key+":")
		}
	}
	return "0"
}
