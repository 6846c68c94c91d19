// Package main is the entry point for the Flowdesk API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"flowdesk/internal/app"
	"flowdesk/internal/infrastructure/config"
	v1 "flowdesk/internal/infrastructure/http/v1"
	"flowdesk/internal/infrastructure/http/v1/handlers"
	"flowdesk/pkg/logger"
)

var version = "0.1.0"

func main() {
	// .env is optional outside development.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("FLOWDESK_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(logger.WithLogger(ctx, log), cfg, log)
	stop()
	if err != nil {
		log.Errorw("server failed", "error", err)
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the listener fails.
func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Infow("starting flowdesk server", "version", version, "storage", cfg.App.Storage, "env", cfg.App.Env)

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() { _ = application.Close() }()

	var db handlers.Pinger
	if application.TxManager != nil {
		db = application.TxManager
	}

	router := v1.NewRouter(v1.RouterConfig{
		Services:         application.Services,
		Logger:           log,
		TokenValidator:   application.JWT,
		DB:               db,
		Idempotency:      application.Idempotency,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		Version:          version,
		Storage:          cfg.App.Storage,
		Release:          !cfg.App.IsDevelopment(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
	return serveErr
}
