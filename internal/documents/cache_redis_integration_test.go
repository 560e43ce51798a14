//go:build integration

package documents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/josephcall20-lang/Admissions-co-pilot/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	ctx      context.Context
	redis    *containers.RedisContainer
	inner    *InMemoryTracker
	counting *countingTracker
	cache    *RedisCachedTracker
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	require.NoError(s.T(), s.redis.FlushAll(s.ctx))
	s.inner = NewInMemoryTracker(time.Hour)
	s.counting = &countingTracker{inner: s.inner}
	s.cache = NewRedisCachedTracker(s.counting, s.redis.Client, time.Minute)
}

func (s *RedisCacheSuite) TestCacheHitSkipsProvider() {
	first, err := s.cache.CheckDocuments(s.ctx, "lead-1")
	s.Require().NoError(err)
	s.NotEmpty(first.Missing)

	second, err := s.cache.CheckDocuments(s.ctx, "lead-1")
	s.Require().NoError(err)
	s.Equal(first.Missing, second.Missing)
	s.Equal(1, s.counting.checks)
}

func (s *RedisCacheSuite) TestInvalidateForcesRecheck() {
	_, err := s.cache.CheckDocuments(s.ctx, "lead-1")
	s.Require().NoError(err)

	for _, category := range Categories() {
		s.inner.RecordUpload("lead-1", category)
	}

	stale, err := s.cache.CheckDocuments(s.ctx, "lead-1")
	s.Require().NoError(err)
	s.NotEmpty(stale.Missing)

	s.Require().NoError(s.cache.Invalidate(s.ctx, "lead-1"))

	fresh, err := s.cache.CheckDocuments(s.ctx, "lead-1")
	s.Require().NoError(err)
	s.Empty(fresh.Missing)
	s.ElementsMatch(Categories(), fresh.Received)
	s.Equal(2, s.counting.checks)
}

func (s *RedisCacheSuite) TestEntriesAreScopedPerLead() {
	for _, category := range Categories() {
		s.inner.RecordUpload("lead-2", category)
	}

	one, err := s.cache.CheckDocuments(s.ctx, "lead-1")
	s.Require().NoError(err)
	s.NotEmpty(one.Missing)

	two, err := s.cache.CheckDocuments(s.ctx, "lead-2")
	s.Require().NoError(err)
	s.Empty(two.Missing)
	s.Equal(2, s.counting.checks)
}
