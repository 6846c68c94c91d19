package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"flowdesk/internal/core/id"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/pkg/logger"
)

func TestProductKey_ScopedByOwner(t *testing.T) {
	productID := id.New()
	a := productKey(id.New(), productID)
	b := productKey(id.New(), productID)

	assert.NotEqual(t, a, b)
	assert.Contains(t, a, productID.String())
}

func TestProductCache_UnreachableRedisIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	ctx := logger.WithLogger(context.Background(), logger.NewNop())
	c := NewProductCache(client, 0)
	assert.Equal(t, DefaultTTL, c.ttl)

	p := product.NewProduct(id.New(), "Rice 5kg", "RICE-5", "Groceries")

	c.Set(ctx, p)
	got, ok := c.Get(ctx, p.OwnerID, p.ID)
	assert.False(t, ok)
	assert.Nil(t, got)
	c.Invalidate(ctx, p.OwnerID, p.ID)
}
