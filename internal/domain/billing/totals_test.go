package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
)

func line(qty int64, price, discount, tax string) LineItem {
	return LineItem{
		ProductID: id.New(),
		Name:      "Item",
		Quantity:  qty,
		UnitPrice: types.MustMoney(price),
		Discount:  types.MustMoney(discount),
		Tax:       types.MustMoney(tax),
	}
}

func TestDeriveTotals(t *testing.T) {
	lines := []LineItem{
		line(2, "1500", "10", "0"),  // gross 3000, discount 300
		line(1, "499.99", "0", "75"), // gross 499.99, tax 75
	}
	lines[0].Total = types.MustMoney("1") // client value must be discarded

	totals := DeriveTotals(lines)

	assert.True(t, totals.Subtotal.Equal(types.MustMoney("3499.99")), totals.Subtotal.String())
	assert.True(t, totals.DiscountAmount.Equal(types.MustMoney("300")))
	assert.True(t, totals.TaxAmount.Equal(types.MustMoney("75")))
	assert.True(t, totals.Total.Equal(types.MustMoney("3274.99")), totals.Total.String())

	assert.True(t, lines[0].Total.Equal(types.MustMoney("2700")))
	assert.True(t, lines[1].Total.Equal(types.MustMoney("574.99")))
	assert.Equal(t, 1, lines[0].LineNo)
	assert.Equal(t, 2, lines[1].LineNo)
	require.NoError(t, totals.Validate())
}

func TestDeriveTotals_TotalIdentity(t *testing.T) {
	lines := []LineItem{
		line(3, "33.33", "12.5", "4.01"),
		line(7, "0.99", "100", "0"),
		line(1, "0", "0", "0"),
	}
	totals := DeriveTotals(lines)

	want := totals.Subtotal.Sub(totals.DiscountAmount).Add(totals.TaxAmount)
	assert.True(t, totals.Total.Equal(want))
	assert.False(t, totals.Total.IsNegative())
}

func TestDeriveTotals_Empty(t *testing.T) {
	totals := DeriveTotals(nil)
	assert.True(t, totals.Total.IsZero())
}

func TestLineValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(l *LineItem)
		field string
	}{
		{"zero quantity", func(l *LineItem) { l.Quantity = 0 }, "quantity"},
		{"negative quantity", func(l *LineItem) { l.Quantity = -2 }, "quantity"},
		{"negative price", func(l *LineItem) { l.UnitPrice = types.MustMoney("-0.01") }, "unitPrice"},
		{"discount over 100", func(l *LineItem) { l.Discount = types.MustMoney("100.01") }, "discount"},
		{"negative discount", func(l *LineItem) { l.Discount = types.MustMoney("-1") }, "discount"},
		{"negative tax", func(l *LineItem) { l.Tax = types.MustMoney("-1") }, "tax"},
		{"missing product", func(l *LineItem) { l.ProductID = id.Nil() }, "productId"},
		{"missing name", func(l *LineItem) { l.Name = "  " }, "name"},
		{"sub-cent price", func(l *LineItem) { l.UnitPrice = types.MustMoney("10.005") }, "unitPrice"},
		{"sub-cent discount", func(l *LineItem) { l.Discount = types.MustMoney("12.345") }, "discount"},
		{"sub-cent tax", func(l *LineItem) { l.Tax = types.MustMoney("0.001") }, "tax"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := line(1, "10", "0", "0")
			tt.mod(&l)

			err := l.Validate(3)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
			assert.Equal(t, 3, appErr.Details["lineNo"])
		})
	}

	assert.NoError(t, line(1, "0", "100", "0").Validate(1))
	assert.NoError(t, line(3, "10.50", "12.50", "1.10").Validate(1))
	assert.NoError(t, line(1, "10.500", "5.000", "0").Validate(1))
}

func TestValidateLinesRequiresItems(t *testing.T) {
	assert.True(t, apperror.IsValidation(ValidateLines(nil)))
	assert.NoError(t, ValidateLines([]LineItem{line(1, "1", "0", "0")}))
}

func TestQuantitiesSumsPerProduct(t *testing.T) {
	a := line(2, "1", "0", "0")
	b := line(3, "1", "0", "0")
	b.ProductID = a.ProductID
	c := line(1, "1", "0", "0")

	q := Quantities([]LineItem{a, b, c})
	assert.Equal(t, int64(5), q[a.ProductID.String()])
	assert.Equal(t, int64(1), q[c.ProductID.String()])
}

func TestPaymentMethods(t *testing.T) {
	assert.True(t, PaymentCheque.IsValidForInvoice())
	assert.False(t, PaymentCheque.IsValidForSale())
	assert.True(t, PaymentMobile.IsValidForSale())
	assert.False(t, PaymentMethod("barter").IsValidForInvoice())
	assert.Equal(t, CurrencyNGN, Currency("").OrDefault())
	assert.Error(t, ValidateCurrency("BTC"))
}
