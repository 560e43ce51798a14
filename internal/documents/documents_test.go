package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTracker wraps a Tracker and counts provider calls.
type countingTracker struct {
	inner  Tracker
	checks int
	err    error
}

func (c *countingTracker) CheckDocuments(ctx context.Context, leadID string) (*CheckResult, error) {
	c.checks++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.CheckDocuments(ctx, leadID)
}

func (c *countingTracker) CreateUploadChannel(ctx context.Context, leadID string) (*UploadChannel, error) {
	return c.inner.CreateUploadChannel(ctx, leadID)
}

func TestInMemoryTrackerCheckDocuments(t *testing.T) {
	ctx := context.Background()
	tracker := NewInMemoryTracker(time.Hour)

	result, err := tracker.CheckDocuments(ctx, "lead-1")
	require.NoError(t, err)
	assert.Empty(t, result.Received)
	assert.ElementsMatch(t, Categories(), result.Missing)

	tracker.RecordUpload("lead-1", CategoryImaging)
	tracker.RecordUpload("lead-1", CategoryLabs)

	result, err = tracker.CheckDocuments(ctx, "lead-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{CategoryImaging, CategoryLabs}, result.Received)
	assert.Len(t, result.Missing, 3)
}

func TestInMemoryTrackerReusesLiveUploadChannel(t *testing.T) {
	ctx := context.Background()
	tracker := NewInMemoryTracker(time.Hour)

	first, err := tracker.CreateUploadChannel(ctx, "lead-1")
	require.NoError(t, err)
	second, err := tracker.CreateUploadChannel(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, first.Link, second.Link)

	other, err := tracker.CreateUploadChannel(ctx, "lead-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.Link, other.Link)
}

func TestCachedTrackerServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemoryTracker(time.Hour)
	counting := &countingTracker{inner: inner}
	cached := NewCachedTracker(counting, time.Minute)

	_, err := cached.CheckDocuments(ctx, "lead-1")
	require.NoError(t, err)
	_, err = cached.CheckDocuments(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.checks, "second check served from cache")

	// A new upload is invisible until the cache entry is dropped.
	inner.RecordUpload("lead-1", CategoryImaging)
	stale, err := cached.CheckDocuments(ctx, "lead-1")
	require.NoError(t, err)
	assert.Empty(t, stale.Received)

	require.NoError(t, cached.Invalidate(ctx, "lead-1"))
	fresh, err := cached.CheckDocuments(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, []string{CategoryImaging}, fresh.Received)
	assert.Equal(t, 3, counting.checks)
}

func TestCachedTrackerPropagatesProviderError(t *testing.T) {
	ctx := context.Background()
	counting := &countingTracker{inner: NewInMemoryTracker(time.Hour), err: errors.New("provider down")}
	cached := NewCachedTracker(counting, time.Minute)

	_, err := cached.CheckDocuments(ctx, "lead-1")
	require.Error(t, err)
}
