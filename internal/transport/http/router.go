// Package http assembles the XS2A API router.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "xs2a/internal/authorisation/handler"
	piishandler "xs2a/internal/piis/handler"
	"xs2a/internal/platform/metrics"
	"xs2a/internal/platform/middleware"
)

// Deps carries everything the router mounts.
type Deps struct {
	Authorisations authhandler.Service
	Funds          piishandler.Service
	Validator      middleware.TokenValidator
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	Health         []HealthChecker
}

// HealthChecker reports the liveness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a function to the HealthChecker interface.
type HealthFunc func(ctx context.Context) error

func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

// NewRouter builds the full HTTP surface: the authenticated XS2A API under
// /v1, plus unauthenticated health and metrics endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestContext)
	r.Use(middleware.Instrument(deps.Metrics))

	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireTpp(deps.Validator, deps.Logger))
		authhandler.New(deps.Authorisations, deps.Logger).Register(api)
		piishandler.New(deps.Funds, deps.Logger).Register(api)
	})

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthHandler(checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range checkers {
			if c == nil {
				continue
			}
			if err := c.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unhealthy: " + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
