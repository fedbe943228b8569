package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sbsidd17/yt-dl-api/internal/api/handler"
	mw "github.com/sbsidd17/yt-dl-api/internal/api/middleware"
)

// RouterConfig holds the knobs the router applies to every request.
type RouterConfig struct {
	APIKey         string
	RequestTimeout time.Duration
	RateLimiter    *mw.RateLimiter
	// TrustProxy honors X-Forwarded-For / X-Real-IP for the client address.
	TrustProxy     bool
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	downloadHandler *handler.DownloadHandler,
	historyHandler *handler.HistoryHandler,
	healthHandler *handler.HealthHandler,
	cfg RouterConfig,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Public API
	r.Get("/", downloadHandler.Home)
	r.With(cfg.RateLimiter.Handler).Get("/download", downloadHandler.Download)

	// Operator API (authenticated when an API key is configured)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(cfg.APIKey))

		r.Get("/stats", healthHandler.Stats)
		r.Get("/history", historyHandler.List)
	})

	return r
}
