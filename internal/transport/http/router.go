// Package httptransport wires the public HTTP surface: routes, middleware
// order, and operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"kitclaim/internal/license/handler"
	"kitclaim/internal/platform/config"
	"kitclaim/internal/platform/metrics"
	rlmw "kitclaim/internal/ratelimit/middleware"
	"kitclaim/pkg/platform/httputil"
	auth "kitclaim/pkg/platform/middleware/auth"
	metadata "kitclaim/pkg/platform/middleware/metadata"
	request "kitclaim/pkg/platform/middleware/request"
)

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) error

// Deps collects everything the router needs. Fields other than Handler and
// Validator are optional.
type Deps struct {
	Handler   *handler.Handler
	Validator auth.TokenValidator
	Limiter   *rlmw.Middleware
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	RateLimit config.RateLimitConfig
	Health    map[string]HealthCheck
}

// NewRouter builds the full middleware chain. Identity is established before
// rate limiting so limits key on the authenticated user, not the connection.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAuth(deps.Validator, logger))

		claim := pr
		batch := pr
		if deps.Limiter != nil {
			claim = pr.With(deps.Limiter.PerUser("claim", deps.RateLimit.RequestsPerMin, deps.RateLimit.Window))
			batch = pr.With(deps.Limiter.PerUser("batch", deps.RateLimit.BatchRequestsPer, deps.RateLimit.Window))
		}

		claim.With(route(deps.Metrics, "/licenses/claim")).
			Post("/licenses/claim", deps.Handler.ClaimByCode)
		claim.With(route(deps.Metrics, "/licenses/claim-token")).
			Post("/licenses/claim-token", deps.Handler.ClaimByToken)
		batch.With(route(deps.Metrics, "/licenses/batch")).
			Post("/licenses/batch", deps.Handler.ClaimBatch)
	})

	return r
}

// route is a no-op when metrics are not configured, so tests can build the
// router without touching the default Prometheus registry.
func route(m *metrics.Metrics, pattern string) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return m.Middleware(pattern)
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
