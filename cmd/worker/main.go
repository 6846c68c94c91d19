// Package main is the entry point for the Flowdesk background worker.
// It relays the outbox, marks overdue invoices and purges expired rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"flowdesk/internal/app"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/infrastructure/config"
	"flowdesk/internal/infrastructure/storage/postgres"
	"flowdesk/pkg/logger"
)

const cleanupInterval = time.Hour

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("FLOWDESK_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Service:     "flowdesk-worker",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(logger.WithLogger(ctx, log), cfg, log)
	stop()
	if err != nil {
		log.Errorw("worker failed", "error", err)
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run blocks until ctx is cancelled. Resources it opens are closed before it returns.
func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.App.Storage != config.StoragePostgres {
		return fmt.Errorf("worker requires postgres storage, got %q", cfg.App.Storage)
	}

	log.Info("starting flowdesk worker")

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() { _ = application.Close() }()

	w := NewWorker(application, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	<-ctx.Done()
	log.Info("shutting down worker...")
	wg.Wait()
	log.Info("worker stopped")
	return nil
}

// Worker runs the periodic jobs against one database.
type Worker struct {
	app   *app.App
	relay *postgres.OutboxRelay
	idem  *postgres.IdempotencyStore
	log   *logger.Logger
}

// NewWorker creates a worker over a postgres-backed App.
func NewWorker(a *app.App, log *logger.Logger) *Worker {
	log = log.WithComponent("worker")

	handler := postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		// Events have no external consumer yet; delivery means a structured log line.
		log.Infow("outbox event",
			"id", msg.ID,
			"owner_id", msg.OwnerID,
			"event_type", msg.EventType,
			"aggregate_type", msg.AggregateType,
			"aggregate_id", msg.AggregateID,
			"retry", msg.RetryCount,
		)
		return nil
	})

	return &Worker{
		app:   a,
		relay: postgres.NewOutboxRelay(a.TxManager, a.Config.Worker.OutboxBatch, handler),
		idem:  postgres.NewIdempotencyStore(a.TxManager, a.Config.HTTP.IdempotencyTTL),
		log:   log,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	cfg := w.app.Config.Worker

	var wg sync.WaitGroup
	jobs := []struct {
		name     string
		interval time.Duration
		fn       func(ctx context.Context) error
	}{
		{"outbox", cfg.OutboxInterval, w.relayOutbox},
		{"overdue", cfg.OverdueInterval, w.refreshOverdue},
		{"cleanup", cleanupInterval, w.cleanup},
	}
	for _, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.every(ctx, job.name, job.interval, job.fn)
		}()
	}
	wg.Wait()
}

func (w *Worker) every(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run := appctx.NewJobTrace(name)
		if err := fn(appctx.WithTrace(ctx, run)); err != nil && ctx.Err() == nil {
			w.log.Errorw("job failed", "job", name, "run_id", run.RequestID, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// relayOutbox drains the outbox until a batch comes back short.
func (w *Worker) relayOutbox(ctx context.Context) error {
	for {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			return err
		}
		if n < w.app.Config.Worker.OutboxBatch || ctx.Err() != nil {
			return nil
		}
	}
}

func (w *Worker) refreshOverdue(ctx context.Context) error {
	n, err := w.app.Services.Invoices.RefreshOverdue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Infow("invoices marked overdue", "count", n)
	}
	return nil
}

func (w *Worker) cleanup(ctx context.Context) error {
	purged, err := w.relay.PurgePublished(ctx, w.app.Config.Worker.OutboxRetention)
	if err != nil {
		return fmt.Errorf("purge outbox: %w", err)
	}
	expired, err := w.idem.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("cleanup idempotency: %w", err)
	}
	if purged > 0 || expired > 0 {
		w.log.Infow("cleanup finished", "outbox_purged", purged, "idempotency_expired", expired)
	}
	return nil
}
