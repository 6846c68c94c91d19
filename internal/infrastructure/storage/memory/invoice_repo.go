package memory

import (
	"context"
	"slices"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/documents/invoice"
)

var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	store *Store
}

func (r *InvoiceRepo) Create(ctx context.Context, doc *invoice.Invoice) error {
	return r.store.do(ctx, func(st *state) error {
		for _, other := range st.invoices {
			if other.OwnerID == doc.OwnerID && other.Number == doc.Number {
				return apperror.NewNumberingConflict(doc.Number)
			}
		}
		stored := *doc
		stored.Lines = nil
		st.invoices[doc.ID] = stored
		return nil
	})
}

func (r *InvoiceRepo) GetByID(ctx context.Context, ownerID, docID id.ID) (*invoice.Invoice, error) {
	var out *invoice.Invoice
	err := r.store.do(ctx, func(st *state) error {
		doc, ok := st.invoices[docID]
		if !ok || doc.OwnerID != ownerID {
			return apperror.NewNotFound("invoice", docID)
		}
		out = &doc
		return nil
	})
	return out, err
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, ownerID, docID id.ID) (*invoice.Invoice, error) {
	return r.GetByID(ctx, ownerID, docID)
}

func (r *InvoiceRepo) Update(ctx context.Context, doc *invoice.Invoice) error {
	return r.store.do(ctx, func(st *state) error {
		stored, ok := st.invoices[doc.ID]
		if !ok || stored.OwnerID != doc.OwnerID {
			return apperror.NewNotFound("invoice", doc.ID)
		}
		if stored.Version != doc.Version {
			return apperror.NewConcurrentModification("invoice", doc.ID)
		}
		doc.Version++
		next := *doc
		next.Lines = nil
		st.invoices[doc.ID] = next
		return nil
	})
}

func (r *InvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]billing.LineItem, error) {
	var out []billing.LineItem
	_ = r.store.do(ctx, func(st *state) error {
		out = slices.Clone(st.invoiceLines[docID])
		return nil
	})
	return out, nil
}

func (r *InvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []billing.LineItem) error {
	return r.store.do(ctx, func(st *state) error {
		st.invoiceLines[docID] = slices.Clone(lines)
		return nil
	})
}

func (r *InvoiceRepo) List(ctx context.Context, ownerID id.ID, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	var items []*invoice.Invoice
	_ = r.store.do(ctx, func(st *state) error {
		for _, doc := range st.invoices {
			if doc.OwnerID != ownerID {
				continue
			}
			if filter.Status != "" && doc.Status != filter.Status {
				continue
			}
			if filter.PaymentStatus != "" && doc.PaymentStatus != filter.PaymentStatus {
				continue
			}
			if filter.CustomerID != nil && doc.CustomerID != *filter.CustomerID {
				continue
			}
			if filter.DueBefore != nil && !doc.DueDate.Before(*filter.DueBefore) {
				continue
			}
			if !containsFold(filter.Search, doc.Number, doc.Notes) {
				continue
			}
			items = append(items, &doc)
		}
		return nil
	})

	sortItems(items, filter.OrderBy, sortKeys[*invoice.Invoice]{
		"number":     func(d *invoice.Invoice) string { return d.Number },
		"issue_date": func(d *invoice.Invoice) string { return d.IssueDate.Format(time.RFC3339Nano) },
		"due_date":   func(d *invoice.Invoice) string { return d.DueDate.Format(time.RFC3339Nano) },
	}, func(d *invoice.Invoice) time.Time { return d.CreatedAt })

	return page(items, filter.ListFilter), nil
}

func (r *InvoiceRepo) FindOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]invoice.Ref, error) {
	var out []invoice.Ref
	_ = r.store.do(ctx, func(st *state) error {
		for _, doc := range st.invoices {
			if doc.Status == invoice.StatusOverdue || !invoice.IsOverdue(&doc, now) {
				continue
			}
			out = append(out, invoice.Ref{OwnerID: doc.OwnerID, ID: doc.ID})
		}
		return nil
	})
	slices.SortFunc(out, func(a, b invoice.Ref) int {
		return compareIDs(a.ID, b.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func compareIDs(a, b id.ID) int {
	return slices.Compare(a[:], b[:])
}
