// Package middleware enforces per-user request limits on the claim endpoints.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"kitclaim/internal/ratelimit/models"
	"kitclaim/pkg/platform/httputil"
	auth "kitclaim/pkg/platform/middleware/auth"
)

// BucketStore is the counter backend. Both the in-memory and Redis stores
// satisfy it.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

type Middleware struct {
	store    BucketStore
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns the limiter off entirely, for tests and demo mode.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func New(store BucketStore, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{store: store, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// PerUser limits authenticated requests per user for one operation class.
// The limiter fails open: a broken counter backend must not take claiming
// down with it.
func (m *Middleware) PerUser(op string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			userID := auth.GetUserID(ctx)
			if userID.IsNil() {
				// Auth middleware rejects these; nothing to key on here.
				next.ServeHTTP(w, r)
				return
			}

			result, err := m.store.Allow(ctx, op+":user:"+userID.String(), limit, window)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed",
					"error", err, "op", op, "user_id", userID.String())
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many claim attempts. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
