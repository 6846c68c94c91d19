package billing

import (
	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/types"
)

// Totals are the document-level amounts derived from line items.
type Totals struct {
	Subtotal       types.Money
	DiscountAmount types.Money
	TaxAmount      types.Money
	Total          types.Money
}

// DeriveTotals recomputes every line total and the document totals from
// quantity, price, discount and tax. Whatever totals the caller supplied are
// overwritten. Lines are numbered 1..n in order.
//
//	Subtotal       = sum(quantity * unitPrice)
//	DiscountAmount = sum(line discount)
//	TaxAmount      = sum(line tax)
//	Total          = Subtotal - DiscountAmount + TaxAmount
func DeriveTotals(lines []LineItem) Totals {
	t := Totals{
		Subtotal:       types.Zero(),
		DiscountAmount: types.Zero(),
		TaxAmount:      types.Zero(),
	}

	for i := range lines {
		line := &lines[i]
		line.LineNo = i + 1
		line.Total = line.ComputeTotal()

		t.Subtotal = t.Subtotal.Add(line.Gross())
		t.DiscountAmount = t.DiscountAmount.Add(line.DiscountAmount())
		t.TaxAmount = t.TaxAmount.Add(line.Tax)
	}

	t.Subtotal = types.RoundMoney(t.Subtotal)
	t.TaxAmount = types.RoundMoney(t.TaxAmount)
	t.Total = t.Subtotal.Sub(t.DiscountAmount).Add(t.TaxAmount)
	return t
}

// Validate rejects negative amounts. With validated lines this cannot
// happen, but totals loaded from storage are checked too.
func (t Totals) Validate() error {
	fields := []struct {
		name  string
		value types.Money
	}{
		{"subtotal", t.Subtotal},
		{"discountAmount", t.DiscountAmount},
		{"taxAmount", t.TaxAmount},
		{"total", t.Total},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return apperror.NewValidation(f.name+" cannot be negative").WithDetail("field", f.name)
		}
	}
	return nil
}

// Quantities sums line quantities per product.
func Quantities(lines []LineItem) map[string]int64 {
	out := make(map[string]int64, len(lines))
	for _, l := range lines {
		out[l.ProductID.String()] += l.Quantity
	}
	return out
}
