// Package main is the entry point for the Sculpt realtime collaboration
// server.
//
// Sculpt synchronizes comments, annotations, and presence across clients
// viewing the same image version. The server initializes components in the
// following order:
//
//  1. Configuration: environment variables and optional config file (Koanf v2)
//  2. Database: PostgreSQL via pgx, with embedded migrations applied on boot
//  3. Notification cache: optional Redis write-through cache
//  4. Realtime hub: websocket room registry and event fan-out
//  5. Services: comment mutation coordinator and notification delivery
//  6. HTTP server: REST API plus the /ws websocket endpoint
//
// The hub and HTTP server run under a suture supervisor tree so a panic in
// either restarts just that service. Shutdown is signal-driven: SIGINT or
// SIGTERM cancels the tree's context, the HTTP server drains in-flight
// requests, and the hub closes every client connection.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prathamps/Sculpt/internal/api"
	"github.com/prathamps/Sculpt/internal/auth"
	"github.com/prathamps/Sculpt/internal/cache"
	"github.com/prathamps/Sculpt/internal/config"
	"github.com/prathamps/Sculpt/internal/logging"
	"github.com/prathamps/Sculpt/internal/realtime"
	"github.com/prathamps/Sculpt/internal/service"
	"github.com/prathamps/Sculpt/internal/store"
	"github.com/prathamps/Sculpt/internal/supervisor"
	"github.com/prathamps/Sculpt/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		// Default logger: config (and its logging section) is not available.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Bool("redis_cache", cfg.Redis.Addr != "").
		Msg("Starting Sculpt server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database (runs embedded migrations when database.migrate is set).
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()
	logging.Info().Msg("Database initialized successfully")

	// Optional Redis notification cache. A nil cache is valid and simply
	// disables caching, so a missing REDIS_ADDR is not an error.
	notifCache, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer notifCache.Close()

	// Realtime hub must exist before the services that publish through it.
	hub := realtime.NewHub(
		realtime.WithSendBuffer(cfg.Realtime.SendBuffer),
		realtime.WithBroadcastBuffer(cfg.Realtime.BroadcastBuffer),
	)

	notifications := service.NewNotificationService(db, notifCache, hub)
	comments := service.NewCommentService(db, hub, notifications)

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	mw := auth.NewMiddleware(
		jwtManager,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
		cfg.Security.CORSOrigins,
	)
	defer mw.Stop()

	handler := api.NewHandler(comments, notifications, db, hub, jwtManager, mw, !cfg.IsDevelopment())
	router := api.NewRouter(handler, mw)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}
	logging.Info().Msg("Shutdown complete")
}
