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

	"github.com/DominiquePaul/thisiscrispin/internal/api"
	"github.com/DominiquePaul/thisiscrispin/internal/assets"
	"github.com/DominiquePaul/thisiscrispin/internal/auth"
	"github.com/DominiquePaul/thisiscrispin/internal/blog"
	"github.com/DominiquePaul/thisiscrispin/internal/feedback"
	"github.com/DominiquePaul/thisiscrispin/internal/ratelimit"
	"github.com/DominiquePaul/thisiscrispin/internal/sse"
)

var (
	_ api.Blog     = (*blog.Service)(nil)
	_ api.Assets   = (*assets.Pipeline)(nil)
	_ api.Events   = (*sse.Broker)(nil)
	_ api.Feedback = (*feedback.Service)(nil)
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	if err := cfg.Admin.Validate(); err != nil {
		return fmt.Errorf("admin config: %w", err)
	}

	// Initialize structured JSON logger.
	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("space_id", cfg.CMS.SpaceID),
		slog.String("environment", cfg.CMS.Environment),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("rate_limit_store", cfg.RateLimit.Store),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, err := newServices(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer svc.Close()

	attempts, closeAttempts, err := newAttemptStore(ctx, cfg.RateLimit, logger)
	if err != nil {
		return err
	}
	defer closeAttempts()

	limiter := ratelimit.New(attempts, cfg.RateLimit.Policy(), ratelimit.WithObserver(svc.metrics))
	gate := auth.NewGate(cfg.Admin.Gate(), limiter, auth.WithLogger(logger))

	if !cfg.Feedback.Enabled() {
		logger.Warn("no feedback mail transport configured; feedback submissions will fail")
	}
	fb := cfg.Feedback.Service(feedback.WithLogger(logger), feedback.WithRecorder(svc.metrics))

	// Build API router.
	apiRouter := api.NewRouter(api.Deps{
		Gate:     gate,
		Blog:     svc.blog,
		Assets:   svc.assets,
		Events:   broker,
		Feedback: fb,
		Locale:   cfg.CMS.Locale,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if err := svc.index.Ping(); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "index unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Handle("/metrics", svc.metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the post index in step with the CMS.
	g.Go(func() error {
		syncLoop(gCtx, svc, cfg.CMS.SyncInterval)
		return nil
	})

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// syncLoop mirrors published posts into the index at start and then every
// interval. A non-positive interval syncs once.
func syncLoop(ctx context.Context, svc *services, interval time.Duration) {
	runSync := func() {
		if _, err := svc.blog.Sync(ctx); err != nil && ctx.Err() == nil {
			svc.logger.Warn("post sync failed", slog.String("error", err.Error()))
		}
	}

	runSync()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runSync()
		}
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}
