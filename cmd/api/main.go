package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/api"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/config"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/database"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/events"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/identity"
	mw "github.com/FatihSuicmez/DevBlazorQuotaApp/internal/middleware"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/quota"
	iredis "github.com/FatihSuicmez/DevBlazorQuotaApp/internal/redis"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/search"
	"github.com/FatihSuicmez/DevBlazorQuotaApp/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("validating config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		slog.Error("ensuring schema", "error", err)
		os.Exit(1)
	}

	// Redis (burst limiter)
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional event stream)
	var eventsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		eventsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		publisher = events.NewPublisher(eventsClient.JetStream())
	} else {
		slog.Info("NATS not configured, event publishing disabled")
	}

	// Quota gate over the Postgres-backed action log
	store := quota.NewPostgresStore(pool)
	gate := quota.NewService(store, cfg.Quota)
	slog.Info("quota limits loaded",
		"daily", cfg.Quota.DailyLimit,
		"monthly", cfg.Quota.MonthlyLimit,
		"utc_offset", cfg.Quota.UTCOffset)

	// Search action + lookups
	searchRepo := search.NewRepository(pool)
	searchSvc := search.NewService(searchRepo)
	searchHandler := search.NewHandler(gate, searchSvc, searchRepo, publisher)

	// Burst limiter in front of the search route
	burstLimiter := mw.NewRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec)

	router := api.NewRouter(pool, eventsClient, api.RouterConfig{
		SearchRateLimiter: burstLimiter.Middleware,
	}, api.HandlerSet{
		Search:   searchHandler.Search,
		GetUsage: searchHandler.Usage,

		Provinces:      searchHandler.Provinces,
		Counties:       searchHandler.Counties,
		Neighbourhoods: searchHandler.Neighbourhoods,
		Streets:        searchHandler.Streets,
		Sites:          searchHandler.Sites,

		IdentityMiddleware: identity.Middleware,
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
