package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const docCheckKeyPrefix = "docs:check:"

// RedisCachedTracker decorates a Tracker with a Redis-backed cache so document
// check results are shared across instances. Cache failures degrade to a
// direct provider call; they never fail the check itself.
type RedisCachedTracker struct {
	inner  Tracker
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCachedTracker(inner Tracker, client *redis.Client, ttl time.Duration) *RedisCachedTracker {
	return &RedisCachedTracker{inner: inner, client: client, ttl: ttl}
}

func (c *RedisCachedTracker) CheckDocuments(ctx context.Context, leadID string) (*CheckResult, error) {
	key := docCheckKeyPrefix + leadID
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var result CheckResult
		if err := json.Unmarshal(payload, &result); err == nil {
			return &result, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		// Fall through to the provider; a degraded cache must not block intake.
	}

	result, err := c.inner.CheckDocuments(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(result); err == nil {
		_ = c.client.Set(ctx, key, payload, c.ttl).Err()
	}
	return result, nil
}

func (c *RedisCachedTracker) CreateUploadChannel(ctx context.Context, leadID string) (*UploadChannel, error) {
	return c.inner.CreateUploadChannel(ctx, leadID)
}

// Invalidate drops the cached check for a lead.
func (c *RedisCachedTracker) Invalidate(ctx context.Context, leadID string) error {
	if err := c.client.Del(ctx, docCheckKeyPrefix+leadID).Err(); err != nil {
		return fmt.Errorf("invalidate document cache: %w", err)
	}
	return nil
}
