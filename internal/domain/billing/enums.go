package billing

import (
	"slices"

	"flowdesk/internal/core/apperror"
)

// Currency is an ISO code accepted on documents and prices.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyKES Currency = "KES"
	CurrencyGHS Currency = "GHS"
	CurrencyZAR Currency = "ZAR"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// DefaultCurrency is used when a document does not specify one.
const DefaultCurrency = CurrencyNGN

var currencies = []Currency{CurrencyNGN, CurrencyKES, CurrencyGHS, CurrencyZAR, CurrencyUSD, CurrencyEUR}

// IsValid reports whether c is a supported currency.
func (c Currency) IsValid() bool {
	return slices.Contains(currencies, c)
}

// OrDefault returns c or DefaultCurrency when empty.
func (c Currency) OrDefault() Currency {
	if c == "" {
		return DefaultCurrency
	}
	return c
}

// PaymentMethod is how money was (or will be) received.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentMobile   PaymentMethod = "mobile"
	PaymentCredit   PaymentMethod = "credit"
	PaymentCheque   PaymentMethod = "cheque" // invoices only
)

// IsValidForSale reports whether m can settle a point-of-sale transaction.
func (m PaymentMethod) IsValidForSale() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentMobile, PaymentCredit:
		return true
	}
	return false
}

// IsValidForInvoice reports whether m can settle an invoice.
func (m PaymentMethod) IsValidForInvoice() bool {
	return m == PaymentCheque || m.IsValidForSale()
}

// ValidateCurrency returns a validation error for unsupported currencies.
func ValidateCurrency(c Currency) error {
	if !c.IsValid() {
		return apperror.NewValidation("unsupported currency").
			WithDetail("field", "currency").
			WithDetail("value", string(c))
	}
	return nil
}
