// Package billing holds the money arithmetic shared by invoices and sales.
package billing

import (
	"fmt"
	"strings"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
)

var hundred = types.NewMoneyFromInt(100)

// LineItem is one row of a financial document. Name and UnitPrice are a
// snapshot of the catalog at the time the line was added.
type LineItem struct {
	LineNo      int         `db:"line_no" json:"lineNo"`
	ProductID   id.ID       `db:"product_id" json:"productId"`
	Name        string      `db:"name" json:"name"`
	Description string      `db:"description" json:"description,omitempty"`
	Quantity    int64       `db:"quantity" json:"quantity"`
	UnitPrice   types.Money `db:"unit_price" json:"unitPrice"`
	// Discount is a percentage of the line gross amount (0..100).
	Discount types.Money `db:"discount" json:"discount"`
	// Tax is an absolute amount added after the discount.
	Tax   types.Money `db:"tax" json:"tax"`
	Total types.Money `db:"total" json:"total"`
}

// Gross returns Quantity x UnitPrice.
func (l LineItem) Gross() types.Money {
	return l.UnitPrice.Mul(types.NewMoneyFromInt(l.Quantity))
}

// DiscountAmount returns the money value of the percentage discount.
func (l LineItem) DiscountAmount() types.Money {
	return types.RoundMoney(types.Percent(l.Gross(), l.Discount))
}

// ComputeTotal returns gross - discount + tax, rounded to cents.
func (l LineItem) ComputeTotal() types.Money {
	return types.RoundMoney(l.Gross().Sub(l.DiscountAmount()).Add(l.Tax))
}

// Validate checks the line in isolation. lineNo is 1-based and only used in details.
func (l LineItem) Validate(lineNo int) error {
	fail := func(field, msg string) error {
		return apperror.NewValidation(fmt.Sprintf("line %d: %s", lineNo, msg)).
			WithDetail("field", field).
			WithDetail("lineNo", lineNo)
	}

	switch {
	case l.ProductID == id.Nil():
		return fail("productId", "product is required")
	case strings.TrimSpace(l.Name) == "":
		return fail("name", "name is required")
	case l.Quantity < 1:
		return fail("quantity", "quantity must be at least 1")
	case l.UnitPrice.IsNegative():
		return fail("unitPrice", "unit price cannot be negative")
	case l.Discount.IsNegative():
		return fail("discount", "discount cannot be negative")
	case l.Discount.GreaterThan(hundred):
		return fail("discount", "discount cannot exceed 100%")
	case l.Tax.IsNegative():
		return fail("tax", "tax cannot be negative")
	case !hasCents(l.UnitPrice):
		return fail("unitPrice", "unit price allows at most 2 decimal places")
	case !hasCents(l.Discount):
		return fail("discount", "discount allows at most 2 decimal places")
	case !hasCents(l.Tax):
		return fail("tax", "tax allows at most 2 decimal places")
	}
	return nil
}

// hasCents reports whether m fits NUMERIC(_,2) without rounding.
func hasCents(m types.Money) bool {
	return m.Equal(m.Round(2))
}

// ValidateLines validates every line and requires at least one.
func ValidateLines(lines []LineItem) error {
	if len(lines) == 0 {
		return apperror.NewValidation("at least one line item is required").
			WithDetail("field", "items")
	}
	for i, line := range lines {
		if err := line.Validate(i + 1); err != nil {
			return err
		}
	}
	return nil
}
