//go:build integration

package bucket_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kitclaim/internal/ratelimit/store/bucket"
	"kitclaim/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
	ctx   context.Context
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisBucketStoreSuite) TearDownSuite() {
	_ = s.redis.Client.Close()
	_ = s.redis.Container.Terminate(context.Background())
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisBucketStoreSuite) TestAllowUpToLimit() {
	const limit = 5

	for i := range limit {
		result, err := s.store.Allow(s.ctx, "claim:user:u1", limit, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(limit-i-1, result.Remaining)
	}

	result, err := s.store.Allow(s.ctx, "claim:user:u1", limit, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Positive(result.RetryAfter)
}

func (s *RedisBucketStoreSuite) TestKeysAreIndependent() {
	const limit = 1

	result, err := s.store.Allow(s.ctx, "claim:user:a", limit, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = s.store.Allow(s.ctx, "claim:user:b", limit, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketStoreSuite) TestReset() {
	const limit = 1

	_, err := s.store.Allow(s.ctx, "claim:user:reset", limit, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, "claim:user:reset"))

	result, err := s.store.Allow(s.ctx, "claim:user:reset", limit, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketStoreSuite) TestConcurrentAllowNeverOvercounts() {
	const limit = 10
	const goroutines = 50

	var wg sync.WaitGroup
	var allowed atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.store.Allow(s.ctx, "claim:user:concurrent", limit, time.Minute)
			s.Require().NoError(err)
			if result.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(limit), allowed.Load())
}
