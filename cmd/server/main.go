// Stackie - HR Community Assistant Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/stackie-hr/stackie-server/internal/api"
	"github.com/stackie-hr/stackie-server/internal/assist"
	"github.com/stackie-hr/stackie-server/internal/chat"
	"github.com/stackie-hr/stackie-server/internal/config"
	"github.com/stackie-hr/stackie-server/internal/identity"
	"github.com/stackie-hr/stackie-server/internal/middleware"
	"github.com/stackie-hr/stackie-server/internal/realtime"
	"github.com/stackie-hr/stackie-server/internal/relay"
	"github.com/stackie-hr/stackie-server/internal/session"
	"github.com/stackie-hr/stackie-server/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Identity provider client. Absence of provider configuration is a
	// supported mode: the server runs anonymous-only.
	var idp identity.Client
	if cfg.Identity.IsConfigured() {
		idp = identity.NewHTTPClient(cfg.Identity.URL, cfg.Identity.Key, logger)
		slog.Info("Identity provider configured", "url", cfg.Identity.URL)
	} else {
		idp = identity.NewDisabled()
		slog.Info("Identity provider not configured, running anonymous-only")
	}

	// Session controller bootstrap. The watchdog guarantees readiness even
	// when the provider hangs.
	controller := session.New(idp, repo, cfg.SessionWatchdog, logger)
	controller.Initialize(context.Background())
	defer controller.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	waitCtx, cancelWait := context.WithTimeout(ctx, cfg.SessionWatchdog+time.Second)
	if err := controller.WaitUntilReady(waitCtx); err != nil {
		slog.Warn("Session bootstrap still pending at startup", "error", err)
	}
	cancelWait()
	slog.Info("Session controller ready", "phase", controller.Phase())

	// Initialize services.
	transcripts, err := chat.NewTranscriptLogger(cfg.TranscriptLog, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer transcripts.Close()

	chats := chat.NewService(repo, transcripts)
	hub := realtime.NewHub(logger)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// In-process completion relay. ASSIST_URL may point back at it.
	completionRelay := relay.New(cfg.Relay, logger)
	relayHandler := relay.NewHandler(completionRelay)

	// Without an external completion service the pipeline defaults to the
	// in-process relay, provided the relay itself can generate.
	if !cfg.Assistant.IsConfigured() && completionRelay.IsConfigured() {
		cfg.Assistant.URL = "http://127.0.0.1:" + cfg.Port + "/v1/assist/completions"
		cfg.Assistant.Key = "internal"
		slog.Info("Assistant service defaulting to in-process relay", "url", cfg.Assistant.URL)
	}

	completer := assist.NewHTTPCompleter(cfg.Assistant, logger)
	assistSvc := assist.NewService(completer, cfg.Assistant.HistoryWindow)

	// Forward session phase changes to connected clients.
	snapshots, unsubscribe := controller.Subscribe()
	defer unsubscribe()
	go func() {
		for {
			select {
			case snap := <-snapshots:
				hub.Broadcast(realtime.Event{
					Type:    realtime.EventSessionState,
					Payload: snap,
				})
			case <-ctx.Done():
				return
			}
		}
	}()

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, controller)
	authHandler := api.NewAuthHandler(baseHandler)
	assistHandler := api.NewAssistHandler(baseHandler, chats, assistSvc, hub, limiter)
	profileHandler := api.NewProfileHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo, controller)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(corsOrigins(cfg)))
	r.Use(middleware.Identity(repo))

	// Public routes.
	healthHandler.RegisterHealth(r)
	relayHandler.RegisterRoutes(r)

	authHandler.RegisterRoutes(r)
	assistHandler.RegisterRoutes(r)
	profileHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/events", hub.ServeHTTP)

	// Create server. WriteTimeout stays 0 so WebSocket connections are not
	// cut; IdleTimeout still bounds dead keep-alives.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start retention worker.
	chat.StartRetentionWorker(ctx, repo, cfg.ConversationTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// corsOrigins derives the allowed CORS origins from configuration. Without a
// configured frontend everything is allowed, which suits local development.
func corsOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
