package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// RouterConfig configures NewRouter
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *Metrics
	AllowedOrigins []string
	Timeout        time.Duration
}

// NewRouter mounts the files API with the standard middleware chain, /health and /metrics
func NewRouter(files *FilesHandler, cfg RouterConfig) chi.Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	chain := NewMiddlewareChain(
		RequestIDMiddleware,
		middleware.RealIP,
		LoggingMiddleware(cfg.Logger),
		RecoveryMiddleware(cfg.Logger),
		CORSMiddleware(cfg.AllowedOrigins, nil, nil),
	)
	if cfg.Metrics != nil {
		chain.Then(cfg.Metrics.Middleware)
	}
	chain.Then(middleware.Timeout(cfg.Timeout))

	r := chi.NewRouter()
	r.Use(chain.Middlewares()...)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Mount("/api/v1/files", files.Routes())
	return r
}
