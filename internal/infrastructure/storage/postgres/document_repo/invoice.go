package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/documents/invoice"
	"flowdesk/internal/infrastructure/storage/postgres"
)

const invoiceTable = "doc_invoices"

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txm *postgres.TxManager) *InvoiceRepo {
	base := NewBaseDocumentRepo(
		txm,
		invoiceTable,
		"doc_invoice_lines",
		"invoice",
		postgres.ExtractDBColumns[invoice.Invoice](),
		[]string{"number", "notes"},
		map[string]string{
			"number":     "number",
			"issue_date": "issue_date",
			"due_date":   "due_date",
			"total":      "total",
			"created_at": "created_at",
		},
		func() *invoice.Invoice { return &invoice.Invoice{} },
	)
	base.OnUnique("uq_doc_invoices_owner_number", func(doc *invoice.Invoice) error {
		return apperror.NewNumberingConflict(doc.Number)
	})
	return &InvoiceRepo{BaseDocumentRepo: base}
}

var _ invoice.Repository = (*InvoiceRepo)(nil)

func (r *InvoiceRepo) Create(ctx context.Context, doc *invoice.Invoice) error {
	return r.Insert(ctx, doc)
}

func (r *InvoiceRepo) GetByID(ctx context.Context, ownerID, docID id.ID) (*invoice.Invoice, error) {
	return r.Get(ctx, ownerID, docID, false)
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, ownerID, docID id.ID) (*invoice.Invoice, error) {
	return r.Get(ctx, ownerID, docID, true)
}

func (r *InvoiceRepo) Update(ctx context.Context, doc *invoice.Invoice) error {
	next, err := r.UpdateVersioned(ctx, doc)
	if err != nil {
		return err
	}
	doc.Version = next
	return nil
}

func (r *InvoiceRepo) List(ctx context.Context, ownerID id.ID, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	return r.BaseDocumentRepo.List(ctx, ownerID, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.Status != "" {
			q = q.Where(squirrel.Eq{"status": filter.Status})
		}
		if filter.PaymentStatus != "" {
			q = q.Where(squirrel.Eq{"payment_status": filter.PaymentStatus})
		}
		if filter.CustomerID != nil {
			q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
		}
		if filter.DueBefore != nil {
			q = q.Where(squirrel.Lt{"due_date": *filter.DueBefore})
		}
		return q
	})
}

// FindOverdueCandidates scans all owners. The partial index
// idx_doc_invoices_open_due covers the predicate.
func (r *InvoiceRepo) FindOverdueCandidates(ctx context.Context, now time.Time, limit int) ([]invoice.Ref, error) {
	q := r.Builder().
		Select("owner_id", "id").
		From(invoiceTable).
		Where(squirrel.NotEq{"status": []invoice.Status{invoice.StatusCancelled, invoice.StatusOverdue}}).
		Where(squirrel.NotEq{"payment_status": invoice.PaymentPaid}).
		Where(squirrel.Lt{"due_date": now}).
		OrderBy("id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overdue query: %w", err)
	}

	var refs []invoice.Ref
	if err := pgxscan.Select(ctx, r.querier(ctx), &refs, sql, args...); err != nil {
		return nil, fmt.Errorf("find overdue invoices: %w", err)
	}
	return refs, nil
}
