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

	"github.com/jacksnnn/fabublox-process-selector/internal/api"
	"github.com/jacksnnn/fabublox-process-selector/internal/field"
	"github.com/jacksnnn/fabublox-process-selector/internal/notify"
	"github.com/jacksnnn/fabublox-process-selector/internal/proxy"
	"github.com/jacksnnn/fabublox-process-selector/internal/store"
	"github.com/jacksnnn/fabublox-process-selector/internal/token"
	"github.com/jacksnnn/fabublox-process-selector/internal/topicservice"
	"github.com/jacksnnn/fabublox-process-selector/internal/upstream"
	pkgconfig "github.com/jacksnnn/fabublox-process-selector/pkg/config"
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
		slog.String("upstream", cfg.Upstream.BaseURL),
		slog.String("environment", cfg.Token.Environment),
		slog.String("primary_field", cfg.Fields.PrimaryName),
		slog.String("preview_field", cfg.Fields.PreviewName),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the SQLite store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Field-name registry, hot-swapped by the config watcher.
	registry := field.NewRegistry(field.Config{
		PrimaryName: cfg.Fields.PrimaryName,
		PreviewName: cfg.Fields.PreviewName,
	})

	// Commit event broker.
	broker := notify.NewBroker()
	defer broker.Close()

	// Credential resolution chain and the secure proxy over it.
	resolver := token.NewResolver(token.DefaultStrategies(token.Options{
		IntegrationTokenURL: cfg.Token.IntegrationTokenURL,
		IdentityURL:         cfg.Token.IdentityURL,
		FallbackTokenURL:    cfg.Token.FallbackTokenURL,
		CookieName:          cfg.Token.CookieName,
	}), cfg.Token.DevFallbackAllowed(), logger)
	upstreamClient := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout())
	proxySvc := proxy.NewService(resolver, upstreamClient, logger)

	// Topic field service and API router.
	topics := topicservice.NewService(db, registry, broker, logger)
	apiRouter := api.NewRouter(api.NewHandler(proxySvc, topics), db, broker)

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

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the config file for field-name changes.
	if app.configPath != "" {
		g.Go(func() error {
			return field.Watch(gCtx, app.configPath, registry, loadFieldConfig, logger)
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

// loadFieldConfig re-reads the config file and returns the field section.
func loadFieldConfig(path string) (field.Config, error) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		return field.Config{}, err
	}
	return field.Config{
		PrimaryName: cfg.Fields.PrimaryName,
		PreviewName: cfg.Fields.PreviewName,
	}, nil
}
