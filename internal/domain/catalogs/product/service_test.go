package product_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/internal/infrastructure/storage/memory"
)

// countingCache records cache traffic so read-through behaviour can be checked.
type countingCache struct {
	mu          sync.Mutex
	items       map[id.ID]product.Product
	hits        int
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{items: make(map[id.ID]product.Product)}
}

func (c *countingCache) Get(_ context.Context, _ id.ID, productID id.ID) (*product.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[productID]
	if ok {
		c.hits++
	}
	return &p, ok
}

func (c *countingCache) Set(_ context.Context, p *product.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = *p
}

func (c *countingCache) Invalidate(_ context.Context, _ id.ID, productID id.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, productID)
	c.invalidated++
}

func setup(t *testing.T) (context.Context, *product.Service, *memory.Repositories, *countingCache) {
	t.Helper()
	repos := memory.NewRepositories(memory.New())
	cache := newCountingCache()
	svc := product.NewService(repos.Products, repos.TxManager, cache, repos.Outbox)
	ctx := appctx.WithOwner(context.Background(), &appctx.OwnerContext{OwnerID: id.New()})
	return ctx, svc, repos, cache
}

func newProduct(sku string, stock int64) *product.Product {
	p := &product.Product{Name: "Item " + sku, SKU: sku, Category: "General", Stock: stock, MinStock: 5}
	return p
}

func TestCreate_NormalizesAndRejectsDuplicateSKU(t *testing.T) {
	ctx, svc, _, _ := setup(t)

	p := newProduct(" ab-1 ", 10)
	require.NoError(t, svc.Create(ctx, p))
	assert.Equal(t, "AB-1", p.SKU)
	assert.Equal(t, product.StatusActive, p.Status)
	assert.False(t, p.IsLowStock)

	err := svc.Create(ctx, newProduct("AB-1", 1))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	// Another owner may reuse the SKU.
	other := appctx.WithOwner(context.Background(), &appctx.OwnerContext{OwnerID: id.New()})
	require.NoError(t, svc.Create(other, newProduct("AB-1", 1)))
}

func TestGetByID_ReadsThroughCache(t *testing.T) {
	ctx, svc, _, cache := setup(t)
	p := newProduct("C-1", 10)
	require.NoError(t, svc.Create(ctx, p))

	_, err := svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	_, err = svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = svc.AdjustStock(ctx, p.ID, product.StockAdd, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	got, err := svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got.Stock)
}

func TestAdjustStock(t *testing.T) {
	ctx, svc, repos, _ := setup(t)
	p := newProduct("S-1", 7)
	require.NoError(t, svc.Create(ctx, p))

	got, err := svc.AdjustStock(ctx, p.ID, product.StockSubtract, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Stock)
	assert.True(t, got.IsLowStock)

	_, err = svc.AdjustStock(ctx, p.ID, product.StockSubtract, 6)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	_, err = svc.AdjustStock(ctx, p.ID, "multiply", 2)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.AdjustStock(ctx, p.ID, product.StockAdd, 0)
	assert.True(t, apperror.IsValidation(err))

	got, err = svc.AdjustStock(ctx, p.ID, product.StockAdd, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(25), got.Stock)
	assert.False(t, got.IsLowStock)
	assert.NotNil(t, got.LastRestocked)

	var low int
	for _, e := range repos.Outbox.Events() {
		if e.Type == domain.EventStockLow {
			low++
		}
	}
	assert.Equal(t, 1, low)
}

func TestCategoriesAndLowStock(t *testing.T) {
	ctx, svc, _, _ := setup(t)

	a := newProduct("A", 2)
	a.Category = "Drinks"
	b := newProduct("B", 50)
	b.Category = "Food"
	c := newProduct("C", 1)
	c.Category = "Food"
	for _, p := range []*product.Product{a, b, c} {
		require.NoError(t, svc.Create(ctx, p))
	}

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Drinks", "Food"}, cats)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "C", low[0].SKU)
	assert.Equal(t, "A", low[1].SKU)

	res, err := svc.List(ctx, product.ListFilter{Category: "food", ListFilter: domain.ListFilter{OrderBy: "sku"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "B", res.Items[0].SKU)
}

func TestUpdate_OptimisticLock(t *testing.T) {
	ctx, svc, _, _ := setup(t)
	p := newProduct("V-1", 10)
	require.NoError(t, svc.Create(ctx, p))

	stale := *p
	p.Name = "Renamed"
	require.NoError(t, svc.Update(ctx, p))
	assert.Equal(t, 2, p.Version)

	stale.Name = "Stale"
	err := svc.Update(ctx, &stale)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))
}

func TestDelete(t *testing.T) {
	ctx, svc, _, _ := setup(t)
	p := newProduct("D-1", 10)
	require.NoError(t, svc.Create(ctx, p))

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err := svc.GetByID(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
	assert.True(t, apperror.IsNotFound(svc.Delete(ctx, p.ID)))
}
