package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/database"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/events"
	mw "github.com/FatihSuicmez/DevBlazorQuotaApp/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid
// import cycles.
type HandlerSet struct {
	Search   http.HandlerFunc
	GetUsage http.HandlerFunc

	Provinces      http.HandlerFunc
	Counties       http.HandlerFunc
	Neighbourhoods http.HandlerFunc
	Streets        http.HandlerFunc
	Sites          http.HandlerFunc

	// Identity middleware (upstream-authenticated user header)
	IdentityMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	SearchRateLimiter  func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, eventsClient *events.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe — always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe — checks DB and NATS
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if eventsClient != nil && !eventsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		} else if eventsClient == nil {
			health["nats"] = "not configured"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1 — everything requires an established identity
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.IdentityMiddleware)

			r.Get("/usage", h.GetUsage)

			// The burst limiter sits only in front of the gated search.
			r.Group(func(r chi.Router) {
				if cfg.SearchRateLimiter != nil {
					r.Use(cfg.SearchRateLimiter)
				}
				r.Post("/search", h.Search)
			})

			r.Route("/lookups", func(r chi.Router) {
				r.Get("/provinces", h.Provinces)
				r.Get("/counties", h.Counties)
				r.Get("/neighbourhoods", h.Neighbourhoods)
				r.Get("/streets", h.Streets)
				r.Get("/sites", h.Sites)
			})
		})
	})

	return r
}
