// Package v1 provides HTTP API version 1.
package v1

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"flowdesk/internal/core/idempotency"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/internal/domain/documents/invoice"
	"flowdesk/internal/domain/documents/sale"
	"flowdesk/internal/domain/reports"
	"flowdesk/internal/infrastructure/http/v1/handlers"
	"flowdesk/internal/infrastructure/http/v1/middleware"
	"flowdesk/pkg/logger"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Products  *product.Service
	Customers *customer.Service
	Invoices  *invoice.Service
	Sales     *sale.Service
	Reports   *reports.Service
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services Services

	// Logger for request logging
	Logger *logger.Logger

	// TokenValidator resolves bearer tokens to owners
	TokenValidator middleware.TokenValidator

	// DB is pinged by the readiness probe; nil in memory mode
	DB handlers.Pinger

	// Idempotency enables X-Idempotency-Key replay when set
	Idempotency idempotency.Store

	// CORSAllowOrigins lists allowed browser origins; empty disables CORS
	CORSAllowOrigins []string

	Version string
	Storage string
	Release bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if len(cfg.CORSAllowOrigins) > 0 {
		router.Use(cors.New(corsConfig(cfg.CORSAllowOrigins)))
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Version, cfg.Storage)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.TokenValidator))
		if cfg.Idempotency != nil {
			protected.Use(middleware.Idempotency(cfg.Idempotency))
		}

		registerCatalogRoutes(protected, cfg.Services)
		registerDocumentRoutes(protected, cfg.Services)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey, middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID, middleware.HeaderTraceID},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = origins
	cc.AllowCredentials = true
	return cc
}

func registerCatalogRoutes(rg *gin.RouterGroup, svc Services) {
	base := handlers.NewBaseHandler()

	handlers.NewProductHandler(base, svc.Products).RegisterRoutes(rg.Group("/products"))
	handlers.NewCustomerHandler(base, svc.Customers).RegisterRoutes(rg.Group("/customers"))
}

func registerDocumentRoutes(rg *gin.RouterGroup, svc Services) {
	base := handlers.NewBaseHandler()

	handlers.NewInvoiceHandler(base, svc.Invoices).RegisterRoutes(rg.Group("/invoices"))
	handlers.NewSaleHandler(base, svc.Sales, svc.Reports).RegisterRoutes(rg.Group("/sales"))
}
