// Package verifycache fronts the public certificate verification lookup with
// Redis. Verification is unauthenticated and serial numbers are printed on
// paper, so the lookup takes whatever traffic shows up; the cache plus
// singleflight keeps a hot or hammered serial from reaching the database
// more than once per TTL.
package verifycache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"ysvs/internal/certificate/models"
	"ysvs/internal/platform/redis"
)

const keyPrefix = "ysvs:verify:"

// Loader produces the authoritative verification result for a serial.
type Loader func(ctx context.Context, serialNumber string) (*models.VerificationResult, error)

// Cache wraps a Loader with a Redis read-through cache and in-process
// request coalescing. A nil Redis client degrades to coalescing only.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Lookup returns the cached result for a serial, loading and caching it on a
// miss. Cache failures fall through to the loader; verification must keep
// answering when Redis is down.
func (c *Cache) Lookup(ctx context.Context, serialNumber string, load Loader) (*models.VerificationResult, error) {
	if cached := c.get(ctx, serialNumber); cached != nil {
		return cached, nil
	}

	result, err, _ := c.group.Do(serialNumber, func() (any, error) {
		if cached := c.get(ctx, serialNumber); cached != nil {
			return cached, nil
		}
		fresh, err := load(ctx, serialNumber)
		if err != nil {
			return nil, err
		}
		c.set(ctx, serialNumber, fresh)
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.VerificationResult), nil
}

// Invalidate drops a serial from the cache. Called on revocation so the
// public lookup never serves a stale "valid" past the revocation.
func (c *Cache) Invalidate(ctx context.Context, serialNumber string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+serialNumber).Err(); err != nil {
		c.logger.WarnContext(ctx, "verify cache invalidation failed",
			"serial", serialNumber, "error", err)
	}
}

func (c *Cache) get(ctx context.Context, serialNumber string) *models.VerificationResult {
	if c.client == nil {
		return nil
	}
	raw, err := c.client.Get(ctx, keyPrefix+serialNumber).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.WarnContext(ctx, "verify cache read failed",
				"serial", serialNumber, "error", err)
		}
		return nil
	}
	var result models.VerificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.WarnContext(ctx, "verify cache entry corrupt",
			"serial", serialNumber, "error", err)
		return nil
	}
	return &result
}

func (c *Cache) set(ctx context.Context, serialNumber string, result *models.VerificationResult) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+serialNumber, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "verify cache write failed",
			"serial", serialNumber, "error", err)
	}
}
