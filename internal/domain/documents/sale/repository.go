package sale

import (
	"context"
	"time"

	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/domain/catalogs/product"
)

// Repository defines operations for sale documents.
//
// Create must fail with apperror NumberingConflict when the number or the
// receipt number is already taken by the owner.
type Repository interface {
	Create(ctx context.Context, doc *Sale) error
	GetByID(ctx context.Context, ownerID, docID id.ID) (*Sale, error)
	GetForUpdate(ctx context.Context, ownerID, docID id.ID) (*Sale, error)
	Update(ctx context.Context, doc *Sale) error

	GetLines(ctx context.Context, docID id.ID) ([]billing.LineItem, error)
	SaveLines(ctx context.Context, docID id.ID, lines []billing.LineItem) error

	List(ctx context.Context, ownerID id.ID, filter ListFilter) (domain.ListResult[*Sale], error)
}

// ListFilter for filtering sales.
type ListFilter struct {
	domain.ListFilter

	CustomerID    *id.ID
	PaymentMethod billing.PaymentMethod
	Channel       Channel
	From          *time.Time
	To            *time.Time
}

// StockStore is the part of product persistence a sale needs.
type StockStore interface {
	GetForUpdate(ctx context.Context, ownerID, productID id.ID) (*product.Product, error)
	Update(ctx context.Context, p *product.Product) error
}

// PurchaseRecorder folds a sale into customer aggregates.
type PurchaseRecorder interface {
	RecordPurchase(ctx context.Context, ownerID, customerID id.ID, total types.Money, at time.Time) (*customer.Customer, error)
}
