package memory

import (
	"context"
	"slices"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/documents/sale"
)

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	store *Store
}

func (r *SaleRepo) Create(ctx context.Context, doc *sale.Sale) error {
	return r.store.do(ctx, func(st *state) error {
		for _, other := range st.sales {
			if other.OwnerID != doc.OwnerID {
				continue
			}
			if other.Number == doc.Number {
				return apperror.NewNumberingConflict(doc.Number)
			}
			if other.ReceiptNumber == doc.ReceiptNumber {
				return apperror.NewNumberingConflict(doc.ReceiptNumber)
			}
		}
		stored := *doc
		stored.Lines = nil
		st.sales[doc.ID] = stored
		return nil
	})
}

func (r *SaleRepo) GetByID(ctx context.Context, ownerID, docID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	err := r.store.do(ctx, func(st *state) error {
		doc, ok := st.sales[docID]
		if !ok || doc.OwnerID != ownerID {
			return apperror.NewNotFound("sale", docID)
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, ownerID, docID id.ID) (*sale.Sale, error) {
	return r.GetByID(ctx, ownerID, docID)
}

func (r *SaleRepo) Update(ctx context.Context, doc *sale.Sale) error {
	return r.store.do(ctx, func(st *state) error {
		stored, ok := st.sales[doc.ID]
		if !ok || stored.OwnerID != doc.OwnerID {
			return apperror.NewNotFound("sale", doc.ID)
		}
		if stored.Version != doc.Version {
			return apperror.NewConcurrentModification("sale", doc.ID)
		}
		doc.Version++
		next := *doc
		next.Lines = nil
		st.sales[doc.ID] = next
		return nil
	})
}

func (r *SaleRepo) GetLines(ctx context.Context, docID id.ID) ([]billing.LineItem, error) {
	var out []billing.LineItem
	_ = r.store.do(ctx, func(st *state) error {
		out = slices.Clone(st.saleLines[docID])
		return nil
	})
	return out, nil
}

func (r *SaleRepo) SaveLines(ctx context.Context, docID id.ID, lines []billing.LineItem) error {
	return r.store.do(ctx, func(st *state) error {
		st.saleLines[docID] = slices.Clone(lines)
		return nil
	})
}

func (r *SaleRepo) List(ctx context.Context, ownerID id.ID, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	var items []*sale.Sale
	_ = r.store.do(ctx, func(st *state) error {
		for _, doc := range st.sales {
			if doc.OwnerID != ownerID {
				continue
			}
			if !matchID(filter.CustomerID, doc.CustomerID) {
				continue
			}
			if filter.PaymentMethod != "" && doc.PaymentMethod != filter.PaymentMethod {
				continue
			}
			if filter.Channel != "" && doc.Channel != filter.Channel {
				continue
			}
			if filter.From != nil && doc.SoldAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && !doc.SoldAt.Before(*filter.To) {
				continue
			}
			if !containsFold(filter.Search, doc.Number, doc.ReceiptNumber, doc.CustomerName) {
				continue
			}
			items = append(items, &doc)
		}
		return nil
	})

	sortItems(items, filter.OrderBy, sortKeys[*sale.Sale]{
		"number":  func(d *sale.Sale) string { return d.Number },
		"sold_at": func(d *sale.Sale) string { return d.SoldAt.Format(time.RFC3339Nano) },
	}, func(d *sale.Sale) time.Time { return d.CreatedAt })

	return page(items, filter.ListFilter), nil
}
