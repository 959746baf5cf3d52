// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/holmsten/stepwise/internal/api"
	"github.com/holmsten/stepwise/internal/mcpserver"
	"github.com/holmsten/stepwise/internal/persist"
	"github.com/holmsten/stepwise/internal/sse"
	"github.com/holmsten/stepwise/internal/tourstore"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("share_base_url", cfg.Share.BaseURL),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, persister, fs, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer persister.Close()

	// SSE broker, fed by store mutation events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	store.OnEvent(broker.PublishTourEvent)

	apiRouter := api.NewRouter(store, cfg.Auth.AuthEnabled(), cfg.Auth.Token,
		http.HandlerFunc(broker.ServeHTTP), cfg.Share.BaseURL, cfg.Store.MediaDir)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Uploaded media is served unauthenticated; published tours
	// reference it by URL.
	r.Get("/media/{filename}", api.NewMediaHandler(cfg.Store.MediaDir).ServeFile)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// File backend: watch the library directory for external edits.
	if fs != nil {
		g.Go(func() error {
			return persist.Watch(gCtx, fs, store, logger)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio instead of starting the HTTP
// server. Logs go to stderr so stdout stays a clean protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, persister, _, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}
	defer persister.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(store, cfg.Share.BaseURL).ServeStdio()
}

// buildStore opens the configured persistence backend, hydrates the
// store from it, and wires it as the store's write-through sink.
// The returned FSJSON is non-nil only for the file backend.
func buildStore(cfg *Config, logger *slog.Logger) (*tourstore.Store, persist.Persister, *persist.FSJSON, error) {
	var (
		persister persist.Persister
		fs        *persist.FSJSON
	)
	switch cfg.Store.Backend {
	case BackendSQLite:
		db, err := persist.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init sqlite backend: %w", err)
		}
		persister = db
	default:
		if err := os.MkdirAll(cfg.Store.Dir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create library dir: %w", err)
		}
		var err error
		fs, err = persist.NewFSJSON(cfg.Store.Dir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init file backend: %w", err)
		}
		persister = fs
	}

	store := tourstore.New(persister, logger)

	tours, err := persister.LoadAll()
	if err != nil {
		persister.Close()
		return nil, nil, nil, fmt.Errorf("load tours: %w", err)
	}
	store.Load(tours)
	logger.Info("Library loaded", slog.Int("tours", len(tours)))

	return store, persister, fs, nil
}
