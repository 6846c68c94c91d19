// Package cache provides the Redis read-through cache for catalog lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"flowdesk/internal/core/id"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/pkg/logger"
)

// DefaultTTL bounds staleness of cached products.
const DefaultTTL = 5 * time.Minute

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// ProductCache implements product.Cache on Redis. Cache failures degrade to
// misses and are logged, they never fail the request.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProductCache creates a product cache over an existing client.
// The caller keeps ownership of client.
func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ProductCache{client: client, ttl: ttl}
}

var _ product.Cache = (*ProductCache)(nil)

func productKey(ownerID, productID id.ID) string {
	return "flowdesk:product:" + ownerID.String() + ":" + productID.String()
}

// Get implements product.Cache.
func (c *ProductCache) Get(ctx context.Context, ownerID, productID id.ID) (*product.Product, bool) {
	val, err := c.client.Get(ctx, productKey(ownerID, productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Warn(ctx, "product cache get failed", "product_id", productID, "error", err)
		return nil, false
	}

	var p product.Product
	if err := json.Unmarshal(val, &p); err != nil {
		logger.Warn(ctx, "product cache entry corrupt", "product_id", productID, "error", err)
		return nil, false
	}
	return &p, true
}

// Set implements product.Cache.
func (c *ProductCache) Set(ctx context.Context, p *product.Product) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(p)
	if err != nil {
		logger.Warn(ctx, "product cache marshal failed", "product_id", p.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, productKey(p.OwnerID, p.ID), payload, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "product cache set failed", "product_id", p.ID, "error", err)
	}
}

// Invalidate implements product.Cache.
func (c *ProductCache) Invalidate(ctx context.Context, ownerID, productID id.ID) {
	if err := c.client.Del(ctx, productKey(ownerID, productID)).Err(); err != nil {
		logger.Warn(ctx, "product cache invalidate failed", "product_id", productID, "error", err)
	}
}
