package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cookieshake/santokit-sub000/internal/config"
)

// Pinger is implemented by anything the readiness check should verify is
// reachable (the Hub HTTP client, an optional Redis client).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the HTTP server dependencies. The /call handler is mounted
// on Router by the caller (kept separate from Server's own construction to
// avoid an import cycle between httpserver and bridgeapi).
type Server struct {
	Router    *chi.Mux
	Logger    *slog.Logger
	Metrics   *prometheus.Registry
	pingers   map[string]Pinger
	startedAt time.Time
}

// NewServer creates an HTTP server with the ambient middleware chain
// (request ID, structured logging, metrics, panic recovery, CORS) and the
// unauthenticated health/readiness/metrics endpoints. Domain routes (in
// particular POST /call) are mounted on Router by the caller.
func NewServer(cfg *config.Config, logger *slog.Logger, metricsReg *prometheus.Registry, pingers map[string]Pinger) *Server {
	s := &Server{
		Router:    chi.NewRouter(),
		Logger:    logger,
		Metrics:   metricsReg,
		pingers:   pingers,
		startedAt: time.Now(),
	}

	s.Router.Use(RequestID)
	s.Router.Use(Logger(logger))
	s.Router.Use(Metrics)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(middleware.Timeout(cfg.RequestTimeout))
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Api-Key", "X-Project", "X-Env", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.Router.Get("/health", s.handleHealth)
	s.Router.Get("/readyz", s.handleReadyz)
	s.Router.Handle(cfg.MetricsPath, promhttp.HandlerFor(metricsReg, promhttp.HandlerOpts{}))

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	Respond(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	for name, p := range s.pingers {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			s.Logger.Error("readiness check failed", "dependency", name, "error", err)
			RespondError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", name+" not ready")
			return
		}
	}

	Respond(w, http.StatusOK, map[string]string{"status": "ready"})
}
