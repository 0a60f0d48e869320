// Package http assembles the service's HTTP surface: public health and
// metrics endpoints, and the authenticated chat API.
package http

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	chathandler "ordergate/internal/chat/handler"
	platformredis "ordergate/internal/platform/redis"
	"ordergate/pkg/platform/httputil"
)

// RouterConfig carries everything the router needs wired in.
type RouterConfig struct {
	ChatHandler   *chathandler.Handler
	JWTSigningKey string
	DB            *sql.DB               // nil in dev mode
	Redis         *platformredis.Client // nil when not configured
	Logger        *slog.Logger
}

// NewRouter builds the chi router. /healthz and /metrics are unauthenticated;
// everything under /api/v1 requires a valid bearer token.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestScope)
	if cfg.Logger != nil {
		r.Use(requestLogger(cfg.Logger))
	}

	r.Get("/healthz", healthHandler(cfg.DB, cfg.Redis))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	auth := newAuthenticator(cfg.JWTSigningKey)
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(auth.middleware)
		cfg.ChatHandler.Register(api)
	})

	return r
}

// healthHandler reports readiness. Optional backends only degrade health when
// configured and unreachable; dev mode with in-memory stores is healthy.
func healthHandler(db *sql.DB, rc *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		checks := map[string]string{}

		if db != nil {
			checks["postgres"] = checkResult(db.PingContext(ctx))
			if checks["postgres"] != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		if rc != nil {
			checks["redis"] = checkResult(rc.Health(ctx))
			if checks["redis"] != "ok" {
				status = http.StatusServiceUnavailable
			}
		}

		body := map[string]any{"status": "ok", "checks": checks}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		httputil.WriteJSON(w, status, body)
	}
}

func checkResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
