package sale_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/catalogs/customer"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/internal/domain/documents/sale"
	"flowdesk/internal/infrastructure/storage/memory"
)

var clock = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

type fixture struct {
	ctx       context.Context
	ownerID   id.ID
	repos     *memory.Repositories
	customers *customer.Service
	sales     *sale.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repos := memory.NewRepositories(memory.New())
	customers := customer.NewService(repos.Customers, repos.TxManager, repos.Outbox)
	sales := sale.NewService(repos.Sales, repos.Products, customers, repos.Sequences, repos.TxManager, nil, repos.Outbox).
		WithClock(func() time.Time { return clock })

	ownerID := id.New()
	ctx := appctx.WithOwner(context.Background(), &appctx.OwnerContext{OwnerID: ownerID, Subject: "test"})

	return &fixture{ctx: ctx, ownerID: ownerID, repos: repos, customers: customers, sales: sales}
}

func (f *fixture) product(t *testing.T, sku string, stock int64, price string) *product.Product {
	t.Helper()
	p := product.NewProduct(f.ownerID, "Item "+sku, sku, "General")
	p.Stock = stock
	p.SellingPrice = types.MustMoney(price)
	p.RefreshDerived()
	require.NoError(t, f.repos.Products.Create(f.ctx, p))
	return p
}

func (f *fixture) customer(t *testing.T) *customer.Customer {
	t.Helper()
	c := customer.NewCustomer(f.ownerID, "Ada Obi", "+2348012345678")
	require.NoError(t, f.customers.Create(f.ctx, c))
	return c
}

func (f *fixture) stock(t *testing.T, productID id.ID) int64 {
	t.Helper()
	p, err := f.repos.Products.GetByID(f.ctx, f.ownerID, productID)
	require.NoError(t, err)
	return p.Stock
}

func line(p *product.Product, qty int64) billing.LineItem {
	return billing.LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  qty,
		UnitPrice: p.SellingPrice,
	}
}

func newSale(lines ...billing.LineItem) *sale.Sale {
	return &sale.Sale{PaymentMethod: billing.PaymentCash, Lines: lines}
}

func eventTypes(events []domain.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func TestCreate_Success(t *testing.T) {
	f := newFixture(t)
	rice := f.product(t, "RICE", 20, "1500")
	oil := f.product(t, "OIL", 10, "2500.50")
	c := f.customer(t)

	doc := newSale(line(rice, 2), line(oil, 1))
	doc.CustomerID = &c.ID
	doc.Lines[0].Discount = types.MustMoney("10")
	doc.Lines[1].Tax = types.MustMoney("100")
	doc.Total = types.MustMoney("1") // client totals are ignored

	require.NoError(t, f.sales.Create(f.ctx, doc))

	assert.Equal(t, "SALE-202401-0001", doc.Number)
	assert.Equal(t, "RCP-1705314600000", doc.ReceiptNumber)
	assert.Equal(t, "Ada Obi", doc.CustomerName)
	assert.True(t, types.MustMoney("5500.50").Equal(doc.Subtotal), doc.Subtotal.String())
	assert.True(t, types.MustMoney("300").Equal(doc.DiscountAmount))
	assert.True(t, types.MustMoney("100").Equal(doc.TaxAmount))
	assert.True(t, types.MustMoney("5300.50").Equal(doc.Total), doc.Total.String())
	assert.Equal(t, sale.PaymentPaid, doc.PaymentStatus)
	assert.Equal(t, sale.ChannelInStore, doc.Channel)

	assert.Equal(t, int64(18), f.stock(t, rice.ID))
	assert.Equal(t, int64(9), f.stock(t, oil.ID))

	stored, err := f.sales.GetByID(f.ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", stored.CustomerName)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, 1, stored.Lines[0].LineNo)
	assert.True(t, types.MustMoney("2700").Equal(stored.Lines[0].Total))

	got, err := f.customers.GetByID(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalPurchases)
	assert.True(t, doc.Total.Equal(got.TotalSpent))
	require.NotNil(t, got.FirstPurchaseDate)
	assert.Equal(t, clock, *got.FirstPurchaseDate)
	assert.Equal(t, clock, *got.LastPurchaseDate)

	assert.Contains(t, eventTypes(f.repos.Outbox.Events()), domain.EventSaleCreated)
}

func TestCreate_ProductEditDuringSaleKeepsSoldStock(t *testing.T) {
	f := newFixture(t)
	products := product.NewService(f.repos.Products, f.repos.TxManager, nil, f.repos.Outbox)
	rice := f.product(t, "RICE", 20, "1500")

	snapshot, err := products.GetByID(f.ctx, rice.ID)
	require.NoError(t, err)
	edit := *snapshot

	require.NoError(t, f.sales.Create(f.ctx, newSale(line(rice, 15))))

	edit.Name = "Long grain rice"
	edit.Version = 0
	require.NoError(t, products.Update(f.ctx, &edit))

	assert.Equal(t, int64(5), f.stock(t, rice.ID))
	got, err := products.GetByID(f.ctx, rice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Long grain rice", got.Name)
	assert.True(t, got.IsLowStock)
}

func TestCreate_ProductEditWithLoadedVersionConflictsWithSale(t *testing.T) {
	f := newFixture(t)
	products := product.NewService(f.repos.Products, f.repos.TxManager, nil, f.repos.Outbox)
	rice := f.product(t, "RICE", 20, "1500")

	snapshot, err := products.GetByID(f.ctx, rice.ID)
	require.NoError(t, err)
	edit := *snapshot

	require.NoError(t, f.sales.Create(f.ctx, newSale(line(rice, 15))))

	edit.Name = "Long grain rice"
	err = products.Update(f.ctx, &edit)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))
	assert.Equal(t, int64(5), f.stock(t, rice.ID))
}

func TestCreate_NumbersAreSequentialPerMonth(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "PEN", 100, "50")

	var numbers []string
	for i := 0; i < 3; i++ {
		doc := newSale(line(p, 1))
		require.NoError(t, f.sales.Create(f.ctx, doc))
		numbers = append(numbers, doc.Number)
	}
	assert.Equal(t, []string{"SALE-202401-0001", "SALE-202401-0002", "SALE-202401-0003"}, numbers)

	f.sales.WithClock(func() time.Time { return clock.AddDate(0, 1, 0) })
	doc := newSale(line(p, 1))
	require.NoError(t, f.sales.Create(f.ctx, doc))
	assert.Equal(t, "SALE-202402-0001", doc.Number)
}

func TestCreate_InsufficientStockMutatesNothing(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 10, "100")
	b := f.product(t, "B", 4, "100")
	c := f.customer(t)

	// The same product on two lines is checked against the summed quantity.
	doc := newSale(line(a, 2), line(b, 3), line(b, 2))
	doc.CustomerID = &c.ID

	err := f.sales.Create(f.ctx, doc)
	require.Error(t, err)
	require.True(t, apperror.IsInsufficientStock(err))

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, b.ID.String(), appErr.Details["product_id"])
	assert.Equal(t, int64(5), appErr.Details["requested"])
	assert.Equal(t, int64(4), appErr.Details["available"])

	assert.Equal(t, int64(10), f.stock(t, a.ID))
	assert.Equal(t, int64(4), f.stock(t, b.ID))

	list, err := f.sales.List(f.ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)

	got, err := f.customers.GetByID(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalPurchases)
	assert.Empty(t, f.repos.Outbox.Events())

	// The failed sale did not consume a number.
	ok2 := newSale(line(a, 1))
	require.NoError(t, f.sales.Create(f.ctx, ok2))
	assert.Equal(t, "SALE-202401-0001", ok2.Number)
}

func TestCreate_MissingCustomerRollsBack(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 10, "100")
	missing := id.New()

	doc := newSale(line(p, 3))
	doc.CustomerID = &missing

	err := f.sales.Create(f.ctx, doc)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, int64(10), f.stock(t, p.ID))

	list, err := f.sales.List(f.ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestCreate_ProductOfAnotherOwnerIsNotFound(t *testing.T) {
	f := newFixture(t)
	foreign := product.NewProduct(id.New(), "Foreign", "FX", "General")
	foreign.Stock = 10
	require.NoError(t, f.repos.Products.Create(f.ctx, foreign))

	err := f.sales.Create(f.ctx, newSale(line(foreign, 1)))
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 10, "100")

	tests := []struct {
		name   string
		mutate func(s *sale.Sale)
	}{
		{"no lines", func(s *sale.Sale) { s.Lines = nil }},
		{"missing payment method", func(s *sale.Sale) { s.PaymentMethod = "" }},
		{"cheque not accepted", func(s *sale.Sale) { s.PaymentMethod = billing.PaymentCheque }},
		{"zero quantity", func(s *sale.Sale) { s.Lines[0].Quantity = 0 }},
		{"discount above 100", func(s *sale.Sale) { s.Lines[0].Discount = types.MustMoney("101") }},
		{"bad channel", func(s *sale.Sale) { s.Channel = "fax" }},
		{"bad currency", func(s *sale.Sale) { s.Currency = "JPY" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newSale(line(p, 1))
			tt.mutate(doc)
			err := f.sales.Create(f.ctx, doc)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err), err.Error())
		})
	}
	assert.Equal(t, int64(10), f.stock(t, p.ID))
}

func TestCreate_RequiresOwner(t *testing.T) {
	f := newFixture(t)
	err := f.sales.Create(context.Background(), newSale())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestCreate_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "LAST", 5, "100")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.sales.Create(f.ctx, newSale(line(p, 3)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperror.IsInsufficientStock(err):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, short)
	assert.Equal(t, int64(2), f.stock(t, p.ID))
}

func TestCreate_StockIsConserved(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 50, "10")
	b := f.product(t, "B", 30, "20")

	orders := [][2]int64{{3, 1}, {5, 0}, {0, 7}, {40, 40}, {10, 2}}
	var soldA, soldB int64
	for _, o := range orders {
		var lines []billing.LineItem
		if o[0] > 0 {
			lines = append(lines, line(a, o[0]))
		}
		if o[1] > 0 {
			lines = append(lines, line(b, o[1]))
		}
		if err := f.sales.Create(f.ctx, newSale(lines...)); err == nil {
			soldA += o[0]
			soldB += o[1]
		} else {
			require.True(t, apperror.IsInsufficientStock(err))
		}
	}

	assert.Equal(t, int64(50)-soldA, f.stock(t, a.ID))
	assert.Equal(t, int64(30)-soldB, f.stock(t, b.ID))
	assert.GreaterOrEqual(t, f.stock(t, a.ID), int64(0))
	assert.GreaterOrEqual(t, f.stock(t, b.ID), int64(0))
}

func TestCreate_CustomerAggregateDelta(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "TV", 100, "60000")
	c := f.customer(t)

	before, err := f.customers.GetByID(f.ctx, c.ID)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		doc := newSale(line(p, 1))
		doc.CustomerID = &c.ID
		require.NoError(t, f.sales.Create(f.ctx, doc))
	}

	after, err := f.customers.GetByID(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, before.TotalPurchases+2, after.TotalPurchases)
	assert.True(t, before.TotalSpent.Add(types.MustMoney("120000")).Equal(after.TotalSpent))
	assert.Equal(t, customer.LoyaltySilver, after.LoyaltyStatus)
	assert.True(t, types.MustMoney("60000").Equal(after.AverageOrderValue))
	assert.Contains(t, eventTypes(f.repos.Outbox.Events()), domain.EventCustomerTierRose)
}

func TestCreate_PublishesLowStockOnce(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "SOAP", 8, "5")

	require.NoError(t, f.sales.Create(f.ctx, newSale(line(p, 3))))
	require.NoError(t, f.sales.Create(f.ctx, newSale(line(p, 1))))

	count := 0
	for _, e := range f.repos.Outbox.Events() {
		if e.Type == domain.EventStockLow {
			count++
		}
	}
	assert.Equal(t, 1, count)

	got, err := f.repos.Products.GetByID(f.ctx, f.ownerID, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsLowStock)
}

func TestRefund(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 10, "100")
	doc := newSale(line(p, 4))
	require.NoError(t, f.sales.Create(f.ctx, doc))
	require.Equal(t, int64(6), f.stock(t, p.ID))

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := f.sales.Refund(f.ctx, doc.ID, types.Zero(), "")
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("partial refund keeps stock", func(t *testing.T) {
		got, err := f.sales.Refund(f.ctx, doc.ID, types.MustMoney("150"), "damaged box")
		require.NoError(t, err)
		assert.False(t, got.Refunded)
		assert.True(t, types.MustMoney("150").Equal(got.RefundAmount))
		assert.Equal(t, "damaged box", got.RefundReason)
		assert.Equal(t, int64(6), f.stock(t, p.ID))
	})

	t.Run("exceeding refundable", func(t *testing.T) {
		_, err := f.sales.Refund(f.ctx, doc.ID, types.MustMoney("250.01"), "")
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeRefundExceedsTotal))
	})

	t.Run("remaining refund restocks", func(t *testing.T) {
		got, err := f.sales.Refund(f.ctx, doc.ID, types.MustMoney("250"), "returned")
		require.NoError(t, err)
		assert.True(t, got.Refunded)
		assert.True(t, got.Total.Equal(got.RefundAmount))
		assert.Equal(t, int64(10), f.stock(t, p.ID))
	})

	t.Run("nothing left", func(t *testing.T) {
		_, err := f.sales.Refund(f.ctx, doc.ID, types.MustMoney("0.01"), "")
		assert.True(t, apperror.HasCode(err, apperror.CodeRefundExceedsTotal))
	})

	assert.Contains(t, eventTypes(f.repos.Outbox.Events()), domain.EventSaleRefunded)
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", 100, "10")
	c := f.customer(t)

	withCustomer := newSale(line(p, 1))
	withCustomer.CustomerID = &c.ID
	require.NoError(t, f.sales.Create(f.ctx, withCustomer))

	card := newSale(line(p, 1))
	card.PaymentMethod = billing.PaymentCard
	require.NoError(t, f.sales.Create(f.ctx, card))

	all, err := f.sales.List(f.ctx, sale.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.TotalCount)

	byCustomer, err := f.sales.List(f.ctx, sale.ListFilter{CustomerID: &c.ID})
	require.NoError(t, err)
	require.Len(t, byCustomer.Items, 1)
	assert.Equal(t, withCustomer.ID, byCustomer.Items[0].ID)

	byMethod, err := f.sales.List(f.ctx, sale.ListFilter{PaymentMethod: billing.PaymentCard})
	require.NoError(t, err)
	require.Len(t, byMethod.Items, 1)
	assert.Equal(t, card.ID, byMethod.Items[0].ID)
}
