package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/inkworks/inkworks/internal/observability"
	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// Mounter is implemented by every API handler.
type Mounter interface {
	MountRoutes(r chi.Router)
}

// PublicMounter is implemented by handlers that also expose unauthenticated routes.
type PublicMounter interface {
	MountPublic(r chi.Router)
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	RBAC           rbac.Middleware
	Metrics        *observability.Metrics
	Pool           *pgxpool.Pool
	Redis          *redis.Client

	// Handlers are mounted under /api. Nil entries are skipped.
	Handlers []Mounter
	// Authenticated handlers additionally require a logged-in session.
	Authenticated []Mounter
	// Public handlers are mounted under /api without any guard.
	Public []PublicMounter
	// Jobs exposes queue health under /jobs.
	Jobs Mounter
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", healthz(params.Pool, params.Redis))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.Jobs != nil {
		r.Route("/jobs", params.Jobs.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		for _, h := range params.Public {
			if h != nil {
				h.MountPublic(r)
			}
		}
		for _, h := range params.Handlers {
			if h != nil {
				h.MountRoutes(r)
			}
		}
		r.Group(func(r chi.Router) {
			r.Use(params.RBAC.RequireAuth)
			for _, h := range params.Authenticated {
				if h != nil {
					h.MountRoutes(r)
				}
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})
	return r
}

type dependencyStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthz pings postgres and redis. Unconfigured dependencies are skipped.
func healthz(pool *pgxpool.Pool, client *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		out := dependencyStatus{Status: "ok", Services: map[string]string{}}
		check := func(name string, ping func(context.Context) error) {
			if err := ping(ctx); err != nil {
				out.Status = "degraded"
				out.Services[name] = err.Error()
				return
			}
			out.Services[name] = "ok"
		}
		if pool != nil {
			check("postgres", pool.Ping)
		}
		if client != nil {
			check("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
		}
		status := http.StatusOK
		if out.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httpx.JSON(w, status, out)
	}
}
