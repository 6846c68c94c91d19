// Package invoice provides the Invoice document and its payment lifecycle.
package invoice

import (
	"context"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/entity"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/billing"
)

// Status is the document lifecycle status.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusPartial   Status = "partial"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus is derived from PaidAmount and Total.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentTerms determine the due date offset from the issue date.
type PaymentTerms string

const (
	TermsImmediate PaymentTerms = "immediate"
	TermsNet15     PaymentTerms = "net15"
	TermsNet30     PaymentTerms = "net30"
	TermsNet45     PaymentTerms = "net45"
	TermsNet60     PaymentTerms = "net60"
)

// DefaultTerms applies when the caller does not choose terms.
const DefaultTerms = TermsNet30

// Template selects the rendering layout.
type Template string

const (
	TemplateStandard Template = "standard"
	TemplateModern   Template = "modern"
	TemplateClassic  Template = "classic"
	TemplateMinimal  Template = "minimal"
)

// Invoice is a bill issued to a customer and settled by one or more payments.
type Invoice struct {
	entity.BaseEntity

	Number     string `db:"number" json:"number"`
	CustomerID id.ID  `db:"customer_id" json:"customerId"`

	Lines []billing.LineItem `db:"-" json:"items"`

	Subtotal       types.Money      `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money      `db:"discount_amount" json:"discountAmount"`
	TaxAmount      types.Money      `db:"tax_amount" json:"taxAmount"`
	Total          types.Money      `db:"total" json:"total"`
	Currency       billing.Currency `db:"currency" json:"currency"`

	Status        Status                `db:"status" json:"status"`
	PaymentStatus PaymentStatus         `db:"payment_status" json:"paymentStatus"`
	PaymentMethod billing.PaymentMethod `db:"payment_method" json:"paymentMethod,omitempty"`
	PaymentTerms  PaymentTerms          `db:"payment_terms" json:"paymentTerms"`

	IssueDate       time.Time   `db:"issue_date" json:"issueDate"`
	DueDate         time.Time   `db:"due_date" json:"dueDate"`
	PaidDate        *time.Time  `db:"paid_date" json:"paidDate,omitempty"`
	PaidAmount      types.Money `db:"paid_amount" json:"paidAmount"`
	RemainingAmount types.Money `db:"remaining_amount" json:"remainingAmount"`

	Notes            string     `db:"notes" json:"notes,omitempty"`
	Terms            string     `db:"terms" json:"terms,omitempty"`
	Template         Template   `db:"template" json:"template"`
	EmailSent        bool       `db:"email_sent" json:"emailSent"`
	EmailSentDate    *time.Time `db:"email_sent_date" json:"emailSentDate,omitempty"`
	RemindersSent    int        `db:"reminders_sent" json:"remindersSent"`
	LastReminderDate *time.Time `db:"last_reminder_date" json:"lastReminderDate,omitempty"`
}

// NewInvoice creates a draft invoice for customerID.
func NewInvoice(ownerID, customerID id.ID) *Invoice {
	inv := &Invoice{
		BaseEntity: entity.NewBaseEntity(ownerID),
		CustomerID: customerID,
		PaidAmount: types.Zero(),
	}
	inv.applyDefaults()
	return inv
}

func (inv *Invoice) applyDefaults() {
	if inv.Status == "" {
		inv.Status = StatusDraft
	}
	if inv.PaymentStatus == "" {
		inv.PaymentStatus = PaymentUnpaid
	}
	if inv.PaymentTerms == "" {
		inv.PaymentTerms = DefaultTerms
	}
	if inv.Template == "" {
		inv.Template = TemplateStandard
	}
	inv.Currency = inv.Currency.OrDefault()
}

// RecomputeTotals re-derives line and document totals from the lines.
func (inv *Invoice) RecomputeTotals() {
	t := billing.DeriveTotals(inv.Lines)
	inv.Subtotal = t.Subtotal
	inv.DiscountAmount = t.DiscountAmount
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
}

// Validate implements entity.Validatable. It checks caller input, so it runs
// before any derivation.
func (inv *Invoice) Validate(_ context.Context) error {
	if id.IsNil(inv.CustomerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customerId")
	}
	if err := billing.ValidateLines(inv.Lines); err != nil {
		return err
	}
	if inv.PaidAmount.IsNegative() {
		return apperror.NewValidation("paid amount cannot be negative").WithDetail("field", "paidAmount")
	}
	if err := billing.ValidateCurrency(inv.Currency); err != nil {
		return err
	}
	if inv.PaymentMethod != "" && !inv.PaymentMethod.IsValidForInvoice() {
		return invalidEnum("paymentMethod", string(inv.PaymentMethod))
	}
	if !isValidTerms(inv.PaymentTerms) {
		return invalidEnum("paymentTerms", string(inv.PaymentTerms))
	}
	if !isValidStatus(inv.Status) {
		return invalidEnum("status", string(inv.Status))
	}
	if !isValidTemplate(inv.Template) {
		return invalidEnum("template", string(inv.Template))
	}
	if !inv.DueDate.IsZero() && !inv.IssueDate.IsZero() && inv.DueDate.Before(inv.IssueDate) {
		return apperror.NewValidation("due date cannot be before issue date").WithDetail("field", "dueDate")
	}
	return nil
}

// IsCancelled reports whether the invoice has been voided.
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == StatusCancelled
}

func invalidEnum(field, value string) error {
	return apperror.NewValidation("invalid " + field).
		WithDetail("field", field).
		WithDetail("value", value)
}

func isValidTerms(t PaymentTerms) bool {
	_, ok := termDays[t]
	return ok
}

func isValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusPartial, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

func isValidTemplate(t Template) bool {
	switch t {
	case TemplateStandard, TemplateModern, TemplateClassic, TemplateMinimal:
		return true
	}
	return false
}
