package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/internal/domain/documents/sale"
	"flowdesk/internal/domain/reports"
	"flowdesk/internal/infrastructure/storage/memory"
)

type fixture struct {
	ctx     context.Context
	ownerID id.ID
	repos   *memory.Repositories
	sales   *sale.Service
	reports *reports.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repos := memory.NewRepositories(memory.New())
	customers := customer.NewService(repos.Customers, repos.TxManager, repos.Outbox)
	ownerID := id.New()

	return &fixture{
		ctx:     appctx.WithOwner(context.Background(), &appctx.OwnerContext{OwnerID: ownerID}),
		ownerID: ownerID,
		repos:   repos,
		sales:   sale.NewService(repos.Sales, repos.Products, customers, repos.Sequences, repos.TxManager, nil, repos.Outbox),
		reports: reports.NewService(repos.Reports).
			WithClock(func() time.Time { return time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC) }),
	}
}

func (f *fixture) product(t *testing.T, ctx context.Context, sku, price string) *product.Product {
	t.Helper()
	p := product.NewProduct(appctx.GetOwnerID(ctx), "Item "+sku, sku, "General")
	p.Stock = 100
	p.SellingPrice = types.MustMoney(price)
	p.RefreshDerived()
	require.NoError(t, f.repos.Products.Create(ctx, p))
	return p
}

func (f *fixture) sell(t *testing.T, ctx context.Context, at time.Time, method billing.PaymentMethod, channel sale.Channel, lines ...billing.LineItem) *sale.Sale {
	t.Helper()
	doc := sale.NewSale(appctx.GetOwnerID(ctx), method)
	doc.Channel = channel
	doc.SoldAt = at
	doc.Lines = lines
	require.NoError(t, f.sales.Create(ctx, doc))
	return doc
}

func item(p *product.Product, qty int64) billing.LineItem {
	return billing.LineItem{ProductID: p.ID, Name: p.Name, Quantity: qty, UnitPrice: p.SellingPrice}
}

func TestService_SalesSummary(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, f.ctx, "A", "100")
	b := f.product(t, f.ctx, "B", "125")

	day1 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 11, 15, 0, 0, 0, time.UTC)

	f.sell(t, f.ctx, day1, billing.PaymentCash, sale.ChannelInStore, item(a, 1))
	refunded := f.sell(t, f.ctx, day2, billing.PaymentCard, sale.ChannelOnline, item(a, 1), item(b, 2))
	f.sell(t, f.ctx, day2.Add(time.Hour), billing.PaymentCash, sale.ChannelInStore, item(b, 1))

	// Outside the period and of another owner.
	f.sell(t, f.ctx, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), billing.PaymentCash, sale.ChannelInStore, item(a, 5))
	otherCtx := appctx.WithOwner(context.Background(), &appctx.OwnerContext{OwnerID: id.New()})
	f.sell(t, otherCtx, day1, billing.PaymentCash, sale.ChannelInStore, item(f.product(t, otherCtx, "X", "999"), 1))

	_, err := f.sales.Refund(f.ctx, refunded.ID, types.MustMoney("50"), "damaged")
	require.NoError(t, err)

	report, err := f.reports.SalesSummary(f.ctx, reports.SalesFilter{})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), report.From)
	assert.Equal(t, int64(3), report.SalesCount)
	assert.True(t, report.Revenue.Equal(types.MustMoney("575")), report.Revenue.String())
	assert.True(t, report.Refunded.Equal(types.MustMoney("50")))
	assert.True(t, report.NetRevenue.Equal(types.MustMoney("525")))
	assert.True(t, report.AverageSale.Equal(types.MustMoney("191.67")), report.AverageSale.String())

	require.Len(t, report.ByPaymentMethod, 2)
	assert.Equal(t, "card", report.ByPaymentMethod[0].Key)
	assert.Equal(t, int64(1), report.ByPaymentMethod[0].Count)
	assert.Equal(t, "cash", report.ByPaymentMethod[1].Key)
	assert.True(t, report.ByPaymentMethod[1].Total.Equal(types.MustMoney("225")))

	require.Len(t, report.ByChannel, 2)
	assert.Equal(t, "in-store", report.ByChannel[0].Key)
	assert.Equal(t, int64(2), report.ByChannel[0].Count)

	require.Len(t, report.Daily, 2)
	assert.Equal(t, "2024-01-10", report.Daily[0].Date)
	assert.Equal(t, "2024-01-11", report.Daily[1].Date)
	assert.Equal(t, int64(2), report.Daily[1].Count)

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, b.ID, report.TopProducts[0].ProductID)
	assert.Equal(t, int64(3), report.TopProducts[0].Quantity)
	assert.True(t, report.TopProducts[0].Revenue.Equal(types.MustMoney("375")))
	assert.Equal(t, int64(2), report.TopProducts[1].Quantity)
}

func TestService_SalesSummaryValidation(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter reports.SalesFilter
	}{
		{"from after to", reports.SalesFilter{From: at, To: at.Add(-time.Hour)}},
		{"empty period", reports.SalesFilter{From: at, To: at}},
		{"longer than a year", reports.SalesFilter{From: at.AddDate(-2, 0, 0), To: at}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reports.SalesSummary(f.ctx, tt.filter)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}

	_, err := f.reports.SalesSummary(context.Background(), reports.SalesFilter{})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestService_TopProductsLimit(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	for _, sku := range []string{"A", "B", "C"} {
		p := f.product(t, f.ctx, sku, "10")
		f.sell(t, f.ctx, at, billing.PaymentCash, sale.ChannelInStore, item(p, 1))
	}

	report, err := f.reports.SalesSummary(f.ctx, reports.SalesFilter{TopN: 2})
	require.NoError(t, err)
	assert.Len(t, report.TopProducts, 2)
	assert.Equal(t, "Item A", report.TopProducts[0].Name)
}
