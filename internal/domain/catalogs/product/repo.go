package product

import (
	"context"

	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
)

// ListFilter narrows product listings.
type ListFilter struct {
	domain.ListFilter

	Category string
	Status   Status
	LowStock bool
}

// Repository defines Product persistence. All lookups are scoped by owner.
type Repository interface {
	Create(ctx context.Context, p *Product) error

	// GetByID returns NotFound for unknown ids and for products of other owners.
	GetByID(ctx context.Context, ownerID, productID id.ID) (*Product, error)

	// GetForUpdate is GetByID with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, ownerID, productID id.ID) (*Product, error)

	// Update persists p with optimistic locking on Version and advances it.
	Update(ctx context.Context, p *Product) error

	Delete(ctx context.Context, ownerID, productID id.ID) error

	List(ctx context.Context, ownerID id.ID, filter ListFilter) (domain.ListResult[*Product], error)

	// ExistsBySKU reports whether another product of the owner uses sku.
	ExistsBySKU(ctx context.Context, ownerID id.ID, sku string, excludeID id.ID) (bool, error)

	// Categories returns the distinct categories in use, sorted.
	Categories(ctx context.Context, ownerID id.ID) ([]string, error)

	// FindLowStock returns active low-stock products ordered by stock ascending.
	FindLowStock(ctx context.Context, ownerID id.ID) ([]*Product, error)
}

// Cache is a read-through cache for GetByID.
type Cache interface {
	Get(ctx context.Context, ownerID, productID id.ID) (*Product, bool)
	Set(ctx context.Context, p *Product)
	Invalidate(ctx context.Context, ownerID, productID id.ID)
}

// NoopCache never hits.
type NoopCache struct{}

func (NoopCache) Get(context.Context, id.ID, id.ID) (*Product, bool) { return nil, false }
func (NoopCache) Set(context.Context, *Product)                      {}
func (NoopCache) Invalidate(context.Context, id.ID, id.ID)           {}
