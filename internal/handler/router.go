package handler

import (
	"log/slog"
	"net/http"

	"github.com/Dzaakk/playtime-gateway/internal/metrics"
	"github.com/Dzaakk/playtime-gateway/internal/middleware"
)

type RouterConfig struct {
	Playtime  *PlaytimeHandler
	RateLimit *middleware.RateLimitMiddleware
	Metrics   *metrics.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewRouter mounts the playtime, health and metrics routes and wraps them
// in the shared middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var playtimeRoute http.Handler = cfg.Playtime
	if cfg.RateLimit != nil {
		playtimeRoute = cfg.RateLimit.OnlyRouted(cfg.Playtime.Routed).Handler(cfg.Playtime)
	}

	mux := http.NewServeMux()
	mux.Handle(PlaytimePattern, playtimeRoute)
	mux.Handle("GET /healthz", StatusHandler(cfg.Playtime.Platforms()))
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}
	mux.HandleFunc("/", NotFound)

	// The outer Recover covers the middleware themselves. The inner one
	// answers handler panics while Logger and Metrics still see the 500.
	return middleware.Chain(mux,
		middleware.CORS,
		middleware.Recover(logger),
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Metrics(cfg.Metrics),
		middleware.Recover(logger),
	)
}
