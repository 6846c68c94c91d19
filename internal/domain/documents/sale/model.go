// Package sale provides the point-of-sale document and its stock and
// customer side effects.
package sale

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/entity"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/billing"
)

// PaymentStatus of a sale.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentFailed  PaymentStatus = "failed"
)

// Channel where the sale happened.
type Channel string

const (
	ChannelInStore   Channel = "in-store"
	ChannelOnline    Channel = "online"
	ChannelPhone     Channel = "phone"
	ChannelMobileApp Channel = "mobile-app"
)

const maxNotesLength = 500

// Sale is a completed point-of-sale transaction.
type Sale struct {
	entity.BaseEntity

	Number        string `db:"number" json:"number"`
	ReceiptNumber string `db:"receipt_number" json:"receiptNumber"`

	CustomerID   *id.ID `db:"customer_id" json:"customerId,omitempty"`
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`

	Lines []billing.LineItem `db:"-" json:"items"`

	Subtotal       types.Money      `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money      `db:"discount_amount" json:"discountAmount"`
	TaxAmount      types.Money      `db:"tax_amount" json:"taxAmount"`
	Total          types.Money      `db:"total" json:"total"`
	Currency       billing.Currency `db:"currency" json:"currency"`

	PaymentMethod billing.PaymentMethod `db:"payment_method" json:"paymentMethod"`
	PaymentStatus PaymentStatus         `db:"payment_status" json:"paymentStatus"`
	Channel       Channel               `db:"channel" json:"channel"`
	Location      string                `db:"location" json:"location,omitempty"`
	Notes         string                `db:"notes" json:"notes,omitempty"`
	SoldAt        time.Time             `db:"sold_at" json:"soldAt"`

	Refunded     bool        `db:"refunded" json:"refunded"`
	RefundAmount types.Money `db:"refund_amount" json:"refundAmount"`
	RefundDate   *time.Time  `db:"refund_date" json:"refundDate,omitempty"`
	RefundReason string      `db:"refund_reason" json:"refundReason,omitempty"`
}

// NewSale creates a paid in-store sale.
func NewSale(ownerID id.ID, method billing.PaymentMethod) *Sale {
	s := &Sale{
		BaseEntity:    entity.NewBaseEntity(ownerID),
		PaymentMethod: method,
	}
	s.applyDefaults()
	return s
}

func (s *Sale) applyDefaults() {
	if s.PaymentStatus == "" {
		s.PaymentStatus = PaymentPaid
	}
	if s.Channel == "" {
		s.Channel = ChannelInStore
	}
	s.Currency = s.Currency.OrDefault()
	s.CustomerName = strings.TrimSpace(s.CustomerName)
	s.Location = strings.TrimSpace(s.Location)
	if s.CustomerID != nil && id.IsNil(*s.CustomerID) {
		s.CustomerID = nil
	}
}

// RecomputeTotals re-derives line and document totals from the lines.
func (s *Sale) RecomputeTotals() {
	t := billing.DeriveTotals(s.Lines)
	s.Subtotal = t.Subtotal
	s.DiscountAmount = t.DiscountAmount
	s.TaxAmount = t.TaxAmount
	s.Total = t.Total
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(_ context.Context) error {
	if err := billing.ValidateLines(s.Lines); err != nil {
		return err
	}
	if s.PaymentMethod == "" {
		return apperror.NewValidation("payment method is required").WithDetail("field", "paymentMethod")
	}
	if !s.PaymentMethod.IsValidForSale() {
		return invalidEnum("paymentMethod", string(s.PaymentMethod))
	}
	if err := billing.ValidateCurrency(s.Currency); err != nil {
		return err
	}
	switch s.PaymentStatus {
	case PaymentPaid, PaymentPending, PaymentFailed:
	default:
		return invalidEnum("paymentStatus", string(s.PaymentStatus))
	}
	switch s.Channel {
	case ChannelInStore, ChannelOnline, ChannelPhone, ChannelMobileApp:
	default:
		return invalidEnum("channel", string(s.Channel))
	}
	if utf8.RuneCountInString(s.Notes) > maxNotesLength {
		return apperror.NewValidation(fmt.Sprintf("notes cannot exceed %d characters", maxNotesLength)).
			WithDetail("field", "notes")
	}
	return nil
}

// Refundable returns the amount that can still be refunded.
func (s *Sale) Refundable() types.Money {
	return s.Total.Sub(s.RefundAmount)
}

// ApplyRefund records a refund of amount. It reports whether the sale is now
// refunded in full.
func (s *Sale) ApplyRefund(amount types.Money, reason string, at time.Time) (bool, error) {
	if !amount.IsPositive() {
		return false, apperror.NewValidation("refund amount must be positive").WithDetail("field", "amount")
	}
	if amount.GreaterThan(s.Refundable()) {
		return false, apperror.NewBusinessRule(apperror.CodeRefundExceedsTotal, "refund exceeds the refundable amount").
			WithDetail("requested", amount.String()).
			WithDetail("refundable", s.Refundable().String())
	}

	at = at.UTC()
	s.RefundAmount = s.RefundAmount.Add(amount)
	s.RefundDate = &at
	s.RefundReason = strings.TrimSpace(reason)
	s.Refunded = s.RefundAmount.Equal(s.Total)
	return s.Refunded, nil
}

func receiptNumber(at time.Time) string {
	return fmt.Sprintf("%s%d", receiptPrefix, at.UnixMilli())
}

func invalidEnum(field, value string) error {
	return apperror.NewValidation("invalid " + field).
		WithDetail("field", field).
		WithDetail("value", value)
}
