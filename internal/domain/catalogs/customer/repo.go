package customer

import (
	"context"

	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
)

// ListFilter narrows customer listings.
type ListFilter struct {
	domain.ListFilter

	Status  Status
	Loyalty LoyaltyStatus
}

// Repository defines Customer persistence. All lookups are scoped by owner.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, ownerID, customerID id.ID) (*Customer, error)

	// GetForUpdate is GetByID with a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, ownerID, customerID id.ID) (*Customer, error)

	// Update persists c with optimistic locking on Version and advances it.
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, ownerID, customerID id.ID) error
	List(ctx context.Context, ownerID id.ID, filter ListFilter) (domain.ListResult[*Customer], error)
}
