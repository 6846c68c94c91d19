// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"flowdesk/internal/domain/reports"
	"flowdesk/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository with SQL aggregates over doc_sales.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ reports.Repository = (*ReportRepo)(nil)

func (r *ReportRepo) sales(f reports.SalesFilter, cols ...string) squirrel.SelectBuilder {
	return r.builder.
		Select(cols...).
		From("doc_sales s").
		Where(squirrel.Eq{"s.owner_id": f.OwnerID}).
		Where(squirrel.GtOrEq{"s.sold_at": f.From}).
		Where(squirrel.Lt{"s.sold_at": f.To})
}

func (r *ReportRepo) selectInto(ctx context.Context, dst any, q squirrel.SelectBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build report query: %w", err)
	}
	return pgxscan.Select(ctx, r.txm.GetQuerier(ctx), dst, sql, args...)
}

func (r *ReportRepo) SalesTotals(ctx context.Context, f reports.SalesFilter) (reports.SalesTotals, error) {
	var rows []reports.SalesTotals
	err := r.selectInto(ctx, &rows, r.sales(f,
		"COUNT(*) AS count",
		"COALESCE(SUM(s.total), 0) AS revenue",
		"COALESCE(SUM(s.refund_amount), 0) AS refunded",
	))
	if err != nil {
		return reports.SalesTotals{}, err
	}
	if len(rows) == 0 {
		return reports.SalesTotals{}, nil
	}
	return rows[0], nil
}

func (r *ReportRepo) breakdown(ctx context.Context, f reports.SalesFilter, column string) ([]reports.Breakdown, error) {
	var rows []reports.Breakdown
	err := r.selectInto(ctx, &rows, r.sales(f,
		column+" AS key",
		"COUNT(*) AS count",
		"SUM(s.total) AS total",
	).GroupBy(column).OrderBy(column))
	return rows, err
}

func (r *ReportRepo) SalesByPaymentMethod(ctx context.Context, f reports.SalesFilter) ([]reports.Breakdown, error) {
	return r.breakdown(ctx, f, "s.payment_method")
}

func (r *ReportRepo) SalesByChannel(ctx context.Context, f reports.SalesFilter) ([]reports.Breakdown, error) {
	return r.breakdown(ctx, f, "s.channel")
}

func (r *ReportRepo) DailySales(ctx context.Context, f reports.SalesFilter) ([]reports.DailyTotal, error) {
	const day = "to_char(s.sold_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
	var rows []reports.DailyTotal
	err := r.selectInto(ctx, &rows, r.sales(f,
		day+" AS day",
		"COUNT(*) AS count",
		"SUM(s.total) AS total",
	).GroupBy(day).OrderBy("day"))
	return rows, err
}

func (r *ReportRepo) TopProducts(ctx context.Context, f reports.SalesFilter) ([]reports.ProductSales, error) {
	var rows []reports.ProductSales
	err := r.selectInto(ctx, &rows, r.sales(f,
		"l.product_id",
		"MAX(l.name) AS name",
		"SUM(l.quantity) AS quantity",
		"SUM(l.total) AS revenue",
	).
		Join("doc_sale_lines l ON l.document_id = s.id").
		GroupBy("l.product_id").
		OrderBy("revenue DESC", "name").
		Limit(uint64(f.TopN)))
	return rows, err
}
