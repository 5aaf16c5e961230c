package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper provides common caching operations for repositories.
// All operations degrade gracefully when redis is not configured.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

// NewCacheHelper creates a new cache helper instance.
func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{
		client: client,
		prefix: prefix,
	}
}

// CacheConfig defines cache configuration per data type.
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Scan reads dominate traffic (list + detail views); short TTL so a
	// fresh annotation is visible quickly after invalidation.
	ScanCacheConfig = CacheConfig{
		TTL:    2 * time.Minute,
		Prefix: "scan:",
	}

	// Reports change rarely outside the inference workflow.
	ReportCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "report:",
	}

	UserCacheConfig = CacheConfig{
		TTL:    10 * time.Minute,
		Prefix: "user:",
	}
)

// Cache errors
var (
	ErrCacheNotAvailable = fmt.Errorf("cache not available")
	ErrCacheNotFound     = fmt.Errorf("cache not found")
)

// GetCacheKey generates a cache key with prefix.
func (c *CacheHelper) GetCacheKey(key string) string {
	return fmt.Sprintf("%s%s", c.prefix, key)
}

// Get retrieves and unmarshals data from cache.
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	cacheKey := c.GetCacheKey(key)
	data, err := c.client.Get(ctx, cacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}

	return nil
}

// Set marshals and stores data in cache.
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // graceful degradation when cache not available
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	cacheKey := c.GetCacheKey(key)
	return c.client.Set(ctx, cacheKey, data, ttl).Err()
}

// Delete removes keys from cache.
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	cacheKeys := make([]string, len(keys))
	for i, key := range keys {
		cacheKeys[i] = c.GetCacheKey(key)
	}

	return c.client.Del(ctx, cacheKeys...).Err()
}

// InvalidatePattern removes all keys matching a pattern using SCAN.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	fullPattern := c.GetCacheKey(pattern)
	var cursor uint64
	var keys []string

	for {
		var scanKeys []string
		var err error
		scanKeys, cursor, err = c.client.Scan(ctx, cursor, fullPattern, 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan pattern error: %w", err)
		}
		keys = append(keys, scanKeys...)
		if cursor == 0 {
			break
		}
	}

	if len(keys) == 0 {
		return nil
	}

	return c.client.Del(ctx, keys...).Err()
}

// CacheOrExecute implements the cache-aside pattern: serve from cache
// when possible, otherwise fetch and populate.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}

	if err != ErrCacheNotFound && err != ErrCacheNotAvailable {
		slog.InfoContext(ctx, "cache get error, proceeding to fetch", "error", err, "key", key)
	}

	value, err := fetchFunc()
	if err != nil {
		return err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		slog.ErrorContext(ctx, "cache set error", "error", err, "key", key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}

	return json.Unmarshal(data, dest)
}

// SafeDelete deletes cache keys, swallowing errors. Invalidation must
// never fail the surrounding write.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.WarnContext(ctx, "cache delete failed", "error", err)
	}
}

// SafeInvalidatePattern invalidates a key pattern, swallowing errors.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.WarnContext(ctx, "cache pattern invalidation failed", "error", err, "pattern", pattern)
	}
}

// CacheManager bundles per-entity cache helpers.
type CacheManager struct {
	Scan   *CacheHelper
	Report *CacheHelper
	User   *CacheHelper
}

// NewCacheManager creates the cache manager. A nil client yields
// no-op helpers.
func NewCacheManager(client *redis.Client) *CacheManager {
	if client == nil {
		return &CacheManager{
			Scan:   NewCacheHelper(nil, ""),
			Report: NewCacheHelper(nil, ""),
			User:   NewCacheHelper(nil, ""),
		}
	}

	return &CacheManager{
		Scan:   NewCacheHelper(client, ScanCacheConfig.Prefix),
		Report: NewCacheHelper(client, ReportCacheConfig.Prefix),
		User:   NewCacheHelper(client, UserCacheConfig.Prefix),
	}
}

// HealthCheck verifies cache connectivity.
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.Scan.client == nil {
		return ErrCacheNotAvailable
	}

	if _, err := cm.Scan.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}

	return nil
}

// InvalidateScan drops every cached view of a scan, including the list
// and nested report entries.
func (cm *CacheManager) InvalidateScan(ctx context.Context, scanID uint) {
	SafeDelete(ctx, cm.Scan, fmt.Sprintf("id:%d", scanID))
	SafeInvalidatePattern(ctx, cm.Scan, "list:*")
	SafeDelete(ctx, cm.Report, fmt.Sprintf("scan:%d", scanID))
}

// InvalidateReport drops cached report entries for a scan.
func (cm *CacheManager) InvalidateReport(ctx context.Context, reportID, scanID uint) {
	SafeDelete(ctx, cm.Report, fmt.Sprintf("id:%d", reportID), fmt.Sprintf("scan:%d", scanID))
	SafeDelete(ctx, cm.Scan, fmt.Sprintf("id:%d", scanID))
	SafeInvalidatePattern(ctx, cm.Scan, "list:*")
}
