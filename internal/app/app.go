// Package app assembles storage, caches and domain services from Config.
// The server, the worker and flowctl share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"flowdesk/internal/core/idempotency"
	"flowdesk/internal/core/numerator"
	"flowdesk/internal/core/tx"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/auth"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/internal/domain/documents/invoice"
	"flowdesk/internal/domain/documents/sale"
	"flowdesk/internal/domain/reports"
	"flowdesk/internal/infrastructure/cache"
	"flowdesk/internal/infrastructure/config"
	v1 "flowdesk/internal/infrastructure/http/v1"
	pgnumerator "flowdesk/internal/infrastructure/numerator"
	"flowdesk/internal/infrastructure/storage/memory"
	"flowdesk/internal/infrastructure/storage/postgres"
	"flowdesk/internal/infrastructure/storage/postgres/catalog_repo"
	"flowdesk/internal/infrastructure/storage/postgres/document_repo"
	"flowdesk/internal/infrastructure/storage/postgres/report_repo"
	"flowdesk/pkg/logger"
)

// App holds the wired process dependencies.
type App struct {
	Config   *config.Config
	Services v1.Services
	JWT      *auth.JWTService

	// Numerator allocates and resets document numbers.
	Numerator numerator.Generator

	// Idempotency stores replayable responses.
	Idempotency idempotency.Store

	// Postgres mode only.
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Audit     *postgres.AuditService

	// Memory mode only.
	Memory *memory.Repositories

	redis  *redis.Client
	closed bool
}

// New builds an App for cfg.Storage.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		JWT: auth.NewJWTService(auth.JWTConfig{
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.Issuer,
			TokenTTL: cfg.Auth.TokenTTL,
		}),
	}

	var err error
	switch cfg.App.Storage {
	case config.StorageMemory:
		a.buildMemory()
	case config.StoragePostgres:
		err = a.buildPostgres(ctx)
	default:
		err = fmt.Errorf("unknown storage mode %q", cfg.App.Storage)
	}
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) buildMemory() {
	repos := memory.NewRepositories(memory.New())
	a.Memory = repos
	a.Numerator = repos.Sequences
	a.Idempotency = memory.NewIdempotencyStore(a.Config.HTTP.IdempotencyTTL)
	a.Services = buildServices(serviceDeps{
		products:  repos.Products,
		customers: repos.Customers,
		invoices:  repos.Invoices,
		sales:     repos.Sales,
		reports:   repos.Reports,
		numerator: repos.Sequences,
		txm:       repos.TxManager,
		cache:     product.NoopCache{},
		events:    repos.Outbox,
	})
}

func (a *App) buildPostgres(ctx context.Context) error {
	dbCfg := postgres.DefaultPoolConfig(a.Config.Database.DSN)
	dbCfg.MaxConns = a.Config.Database.MaxConns
	dbCfg.MinConns = a.Config.Database.MinConns
	dbCfg.MaxConnLifetime = a.Config.Database.ConnMaxLifetime
	dbCfg.MaxConnIdleTime = a.Config.Database.ConnMaxIdleTime

	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	a.Pool = pool
	a.TxManager = postgres.NewTxManager(pool)

	audit, err := postgres.NewAuditService(a.TxManager)
	if err != nil {
		return fmt.Errorf("init audit: %w", err)
	}
	a.Audit = audit

	var productCache product.Cache = product.NoopCache{}
	if a.Config.Redis.Enabled {
		client, err := cache.NewClient(ctx, cache.Config{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		if err != nil {
			// The cache is optional; run without it.
			logger.Warn(ctx, "redis unavailable, product cache disabled", "error", err)
		} else {
			a.redis = client
			productCache = cache.NewProductCache(client, a.Config.Redis.TTL)
		}
	}

	gen := pgnumerator.New(a.TxManager)
	a.Numerator = gen
	a.Idempotency = postgres.NewIdempotencyStore(a.TxManager, a.Config.HTTP.IdempotencyTTL)
	a.Services = buildServices(serviceDeps{
		products:  catalog_repo.NewProductRepo(a.TxManager),
		customers: catalog_repo.NewCustomerRepo(a.TxManager),
		invoices:  document_repo.NewInvoiceRepo(a.TxManager),
		sales:     document_repo.NewSaleRepo(a.TxManager),
		reports:   report_repo.NewReportRepo(a.TxManager),
		numerator: gen,
		txm:       a.TxManager,
		cache:     productCache,
		events:    postgres.NewAuditingPublisher(postgres.NewOutboxPublisher(a.TxManager), audit),
	})
	return nil
}

type serviceDeps struct {
	products  product.Repository
	customers customer.Repository
	invoices  invoice.Repository
	sales     sale.Repository
	reports   reports.Repository
	numerator numerator.Generator
	txm       tx.Manager
	cache     product.Cache
	events    domain.EventPublisher
}

func buildServices(d serviceDeps) v1.Services {
	customers := customer.NewService(d.customers, d.txm, d.events)
	return v1.Services{
		Products:  product.NewService(d.products, d.txm, d.cache, d.events),
		Customers: customers,
		Invoices:  invoice.NewService(d.invoices, d.customers, d.numerator, d.txm, d.events),
		Sales:     sale.NewService(d.sales, d.products, customers, d.numerator, d.txm, d.cache, d.events),
		Reports:   reports.NewService(d.reports),
	}
}

// Close releases connections. It is safe to call more than once.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	return errors.Join(errs...)
}
