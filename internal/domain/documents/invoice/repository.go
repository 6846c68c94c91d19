package invoice

import (
	"context"
	"time"

	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/catalogs/customer"
)

// Repository defines operations for invoice documents.
//
// Create must fail with apperror NumberingConflict when (owner, number) is
// already taken.
type Repository interface {
	Create(ctx context.Context, doc *Invoice) error
	GetByID(ctx context.Context, ownerID, docID id.ID) (*Invoice, error)
	GetForUpdate(ctx context.Context, ownerID, docID id.ID) (*Invoice, error)
	Update(ctx context.Context, doc *Invoice) error

	GetLines(ctx context.Context, docID id.ID) ([]billing.LineItem, error)
	SaveLines(ctx context.Context, docID id.ID, lines []billing.LineItem) error

	List(ctx context.Context, ownerID id.ID, filter ListFilter) (domain.ListResult[*Invoice], error)

	// FindOverdueCandidates returns ids of invoices of any owner that are not
	// paid or cancelled, are not yet marked overdue and have DueDate < now.
	FindOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]Ref, error)
}

// Ref addresses an invoice across owners.
type Ref struct {
	OwnerID id.ID `db:"owner_id"`
	ID      id.ID `db:"id"`
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	Status        Status
	PaymentStatus PaymentStatus
	CustomerID    *id.ID
	DueBefore     *time.Time
}

// CustomerLookup resolves the invoiced customer.
type CustomerLookup interface {
	GetByID(ctx context.Context, ownerID, customerID id.ID) (*customer.Customer, error)
}
