package middleware_test

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"kitclaim/internal/ratelimit/middleware"
	"kitclaim/internal/ratelimit/models"
	"kitclaim/internal/ratelimit/store/bucket"
	id "kitclaim/pkg/domain"
	"kitclaim/pkg/testutil"
)

type MiddlewareSuite struct {
	suite.Suite
	mw     *middleware.Middleware
	userID id.UserID
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.mw = middleware.New(bucket.NewInMemoryBucketStore(), slog.Default())
	s.userID = id.UserID(uuid.New())
}

func (s *MiddlewareSuite) handler(limit int) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return s.mw.PerUser("claim", limit, time.Minute)(next)
}

func (s *MiddlewareSuite) TestAllowsUnderLimit() {
	h := s.handler(3)

	for range 3 {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/licenses/claim", nil)
		req = testutil.WithIdentity(req, s.userID, "buyer@example.com")
		rr := testutil.DoRequest(h, req)
		s.Equal(http.StatusOK, rr.Code)
		s.NotEmpty(rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func (s *MiddlewareSuite) TestDeniesOverLimit() {
	h := s.handler(2)

	for range 2 {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/licenses/claim", nil)
		req = testutil.WithIdentity(req, s.userID, "buyer@example.com")
		s.Equal(http.StatusOK, testutil.DoRequest(h, req).Code)
	}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/licenses/claim", nil)
	req = testutil.WithIdentity(req, s.userID, "buyer@example.com")
	rr := testutil.DoRequest(h, req)
	s.Equal(http.StatusTooManyRequests, rr.Code)
	s.NotEmpty(rr.Header().Get("Retry-After"))

	body := testutil.UnmarshalResponse[models.RateLimitExceededResponse](s.T(), rr)
	s.Equal("rate_limit_exceeded", body.Error)
	s.Positive(body.RetryAfter)
}

func (s *MiddlewareSuite) TestLimitsArePerUser() {
	h := s.handler(1)

	first := testutil.NewJSONRequest(s.T(), http.MethodPost, "/licenses/claim", nil)
	first = testutil.WithIdentity(first, s.userID, "buyer@example.com")
	s.Equal(http.StatusOK, testutil.DoRequest(h, first).Code)

	other := testutil.NewJSONRequest(s.T(), http.MethodPost, "/licenses/claim", nil)
	other = testutil.WithIdentity(other, id.UserID(uuid.New()), "other@example.com")
	s.Equal(http.StatusOK, testutil.DoRequest(h, other).Code)
}

func (s *MiddlewareSuite) TestDisabledPassesThrough() {
	mw := middleware.New(bucket.NewInMemoryBucketStore(), slog.Default(), middleware.WithDisabled(true))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := mw.PerUser("claim", 1, time.Minute)(next)

	for range 5 {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/licenses/claim", nil)
		req = testutil.WithIdentity(req, s.userID, "buyer@example.com")
		s.Equal(http.StatusOK, testutil.DoRequest(h, req).Code)
	}
}

func (s *MiddlewareSuite) TestUnauthenticatedPassesThrough() {
	// Auth middleware owns the 401; the limiter has no key to count on.
	h := s.handler(1)
	for range 3 {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/licenses/claim", nil)
		s.Equal(http.StatusOK, testutil.DoRequest(h, req).Code)
	}
}
