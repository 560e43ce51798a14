package documents

import (
	"context"
	"sync"
	"time"
)

// CachedTracker decorates a Tracker with a bounded-staleness cache for
// CheckDocuments. Upload channel creation is never cached.
type CachedTracker struct {
	inner Tracker
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cachedCheck
}

type cachedCheck struct {
	result   CheckResult
	storedAt time.Time
}

func NewCachedTracker(inner Tracker, ttl time.Duration) *CachedTracker {
	return &CachedTracker{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cachedCheck),
	}
}

func (c *CachedTracker) CheckDocuments(ctx context.Context, leadID string) (*CheckResult, error) {
	c.mu.RLock()
	cached, ok := c.entries[leadID]
	c.mu.RUnlock()
	if ok && time.Since(cached.storedAt) < c.ttl {
		result := cached.result
		return &result, nil
	}

	result, err := c.inner.CheckDocuments(ctx, leadID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[leadID] = cachedCheck{result: *result, storedAt: time.Now()}
	c.mu.Unlock()
	return result, nil
}

func (c *CachedTracker) CreateUploadChannel(ctx context.Context, leadID string) (*UploadChannel, error) {
	return c.inner.CreateUploadChannel(ctx, leadID)
}

// Invalidate drops the cached check for a lead, forcing the next call through.
func (c *CachedTracker) Invalidate(_ context.Context, leadID string) error {
	c.mu.Lock()
	delete(c.entries, leadID)
	c.mu.Unlock()
	return nil
}
