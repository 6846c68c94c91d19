package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/documents/sale"
	"flowdesk/internal/infrastructure/storage/postgres"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	base := NewBaseDocumentRepo(
		txm,
		"doc_sales",
		"doc_sale_lines",
		"sale",
		postgres.ExtractDBColumns[sale.Sale](),
		[]string{"number", "receipt_number", "customer_name"},
		map[string]string{
			"number":     "number",
			"sold_at":    "sold_at",
			"total":      "total",
			"created_at": "created_at",
		},
		func() *sale.Sale { return &sale.Sale{} },
	)
	base.OnUnique("uq_doc_sales_owner_number", func(doc *sale.Sale) error {
		return apperror.NewNumberingConflict(doc.Number)
	})
	base.OnUnique("uq_doc_sales_owner_receipt", func(doc *sale.Sale) error {
		return apperror.NewNumberingConflict(doc.ReceiptNumber)
	})
	return &SaleRepo{BaseDocumentRepo: base}
}

var _ sale.Repository = (*SaleRepo)(nil)

func (r *SaleRepo) Create(ctx context.Context, doc *sale.Sale) error {
	return r.Insert(ctx, doc)
}

func (r *SaleRepo) GetByID(ctx context.Context, ownerID, docID id.ID) (*sale.Sale, error) {
	return r.Get(ctx, ownerID, docID, false)
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, ownerID, docID id.ID) (*sale.Sale, error) {
	return r.Get(ctx, ownerID, docID, true)
}

func (r *SaleRepo) Update(ctx context.Context, doc *sale.Sale) error {
	next, err := r.UpdateVersioned(ctx, doc)
	if err != nil {
		return err
	}
	doc.Version = next
	return nil
}

func (r *SaleRepo) List(ctx context.Context, ownerID id.ID, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	return r.BaseDocumentRepo.List(ctx, ownerID, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.CustomerID != nil {
			q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
		}
		if filter.PaymentMethod != "" {
			q = q.Where(squirrel.Eq{"payment_method": filter.PaymentMethod})
		}
		if filter.Channel != "" {
			q = q.Where(squirrel.Eq{"channel": filter.Channel})
		}
		if filter.From != nil {
			q = q.Where(squirrel.GtOrEq{"sold_at": *filter.From})
		}
		if filter.To != nil {
			q = q.Where(squirrel.Lt{"sold_at": *filter.To})
		}
		return q
	})
}
