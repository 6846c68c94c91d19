package reports

import (
	"context"
)

// Repository defines report data access interface. Breakdowns are ordered by
// key, daily totals by date and top products by revenue descending.
type Repository interface {
	SalesTotals(ctx context.Context, filter SalesFilter) (SalesTotals, error)
	SalesByPaymentMethod(ctx context.Context, filter SalesFilter) ([]Breakdown, error)
	SalesByChannel(ctx context.Context, filter SalesFilter) ([]Breakdown, error)
	DailySales(ctx context.Context, filter SalesFilter) ([]DailyTotal, error)
	TopProducts(ctx context.Context, filter SalesFilter) ([]ProductSales, error)
}
