package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/documents/invoice"
)

// CreateInvoiceRequest is the body of POST /invoices. Number and totals are
// assigned by the server.
type CreateInvoiceRequest struct {
	CustomerID    string            `json:"customerId" binding:"required"`
	Items         []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"paymentMethod"`
	PaymentTerms  string            `json:"paymentTerms"`
	IssueDate     *time.Time        `json:"issueDate"`
	DueDate       *time.Time        `json:"dueDate"`
	PaidAmount    *decimal.Decimal  `json:"paidAmount"`
	Status        string            `json:"status" binding:"omitempty,oneof=draft sent"`
	Notes         string            `json:"notes" binding:"max=1000"`
	Terms         string            `json:"terms" binding:"max=1000"`
	Template      string            `json:"template"`
}

// ToEntity builds the invoice.
func (r CreateInvoiceRequest) ToEntity() (*invoice.Invoice, error) {
	customerID, err := id.Parse(r.CustomerID)
	if err != nil {
		return nil, apperror.NewValidation("invalid customer id").WithDetail("field", "customerId")
	}
	lines, err := ToLineItems(r.Items)
	if err != nil {
		return nil, err
	}

	inv := invoice.NewInvoice(id.Nil(), customerID)
	inv.Lines = lines
	inv.Currency = billing.Currency(r.Currency).OrDefault()
	inv.PaymentMethod = billing.PaymentMethod(r.PaymentMethod)
	if r.PaymentTerms != "" {
		inv.PaymentTerms = invoice.PaymentTerms(r.PaymentTerms)
	}
	if r.IssueDate != nil {
		inv.IssueDate = r.IssueDate.UTC()
	}
	if r.DueDate != nil {
		inv.DueDate = r.DueDate.UTC()
	}
	inv.PaidAmount = moneyOrZero(r.PaidAmount)
	if r.Status != "" {
		inv.Status = invoice.Status(r.Status)
	}
	inv.Notes = r.Notes
	inv.Terms = r.Terms
	if r.Template != "" {
		inv.Template = invoice.Template(r.Template)
	}
	return inv, nil
}

// UpdateInvoiceRequest is the body of PUT /invoices/:id. Absent fields keep
// their stored value; present items replace all lines. Payments are recorded
// through POST /invoices/:id/payments only.
type UpdateInvoiceRequest struct {
	CustomerID    *string           `json:"customerId"`
	Items         []LineItemRequest `json:"items" binding:"omitempty,min=1,dive"`
	Currency      *string           `json:"currency"`
	PaymentMethod *string           `json:"paymentMethod"`
	PaymentTerms  *string           `json:"paymentTerms"`
	IssueDate     *time.Time        `json:"issueDate"`
	DueDate       *time.Time        `json:"dueDate"`
	Status        *string           `json:"status" binding:"omitempty,oneof=draft sent"`
	Notes         *string           `json:"notes" binding:"omitempty,max=1000"`
	Terms         *string           `json:"terms" binding:"omitempty,max=1000"`
	Template      *string           `json:"template"`
	Version       int               `json:"version" binding:"min=0"`
}

// ApplyTo copies the present fields onto inv. Without a version in the body
// inv keeps the version it was loaded with.
func (r UpdateInvoiceRequest) ApplyTo(inv *invoice.Invoice) error {
	if r.CustomerID != nil {
		customerID, err := id.Parse(*r.CustomerID)
		if err != nil {
			return apperror.NewValidation("invalid customer id").WithDetail("field", "customerId")
		}
		inv.CustomerID = customerID
	}
	if r.Items != nil {
		lines, err := ToLineItems(r.Items)
		if err != nil {
			return err
		}
		inv.Lines = lines
	}
	if r.Currency != nil {
		inv.Currency = billing.Currency(*r.Currency)
	}
	if r.PaymentMethod != nil {
		inv.PaymentMethod = billing.PaymentMethod(*r.PaymentMethod)
	}
	if r.PaymentTerms != nil {
		terms := invoice.PaymentTerms(*r.PaymentTerms)
		if terms != inv.PaymentTerms && r.DueDate == nil {
			// Terms changed without an explicit due date: derive it again.
			inv.DueDate = time.Time{}
		}
		inv.PaymentTerms = terms
	}
	if r.IssueDate != nil {
		inv.IssueDate = r.IssueDate.UTC()
	}
	if r.DueDate != nil {
		inv.DueDate = r.DueDate.UTC()
	}
	if r.Status != nil {
		inv.Status = invoice.Status(*r.Status)
	}
	setString(&inv.Notes, r.Notes)
	setString(&inv.Terms, r.Terms)
	if r.Template != nil {
		inv.Template = invoice.Template(*r.Template)
	}
	if r.Version != 0 {
		inv.Version = r.Version
	}
	return nil
}

// RecordPaymentRequest is the body of POST /invoices/:id/payments.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

// InvoiceResponse is an invoice with its lines.
type InvoiceResponse struct {
	BaseResponse
	Number           string             `json:"number"`
	CustomerID       string             `json:"customerId"`
	Items            []LineItemResponse `json:"items"`
	Subtotal         types.Money        `json:"subtotal"`
	DiscountAmount   types.Money        `json:"discountAmount"`
	TaxAmount        types.Money        `json:"taxAmount"`
	Total            types.Money        `json:"total"`
	Currency         string             `json:"currency"`
	Status           string             `json:"status"`
	PaymentStatus    string             `json:"paymentStatus"`
	PaymentMethod    string             `json:"paymentMethod,omitempty"`
	PaymentTerms     string             `json:"paymentTerms"`
	IssueDate        time.Time          `json:"issueDate"`
	DueDate          time.Time          `json:"dueDate"`
	PaidDate         *time.Time         `json:"paidDate,omitempty"`
	PaidAmount       types.Money        `json:"paidAmount"`
	RemainingAmount  types.Money        `json:"remainingAmount"`
	Notes            string             `json:"notes,omitempty"`
	Terms            string             `json:"terms,omitempty"`
	Template         string             `json:"template"`
	EmailSent        bool               `json:"emailSent"`
	EmailSentDate    *time.Time         `json:"emailSentDate,omitempty"`
	RemindersSent    int                `json:"remindersSent"`
	LastReminderDate *time.Time         `json:"lastReminderDate,omitempty"`
	DaysOverdue      int                `json:"daysOverdue"`
}

// FromInvoice maps an invoice. now is used for DaysOverdue.
func FromInvoice(inv *invoice.Invoice, now time.Time) InvoiceResponse {
	resp := InvoiceResponse{
		BaseResponse: BaseResponse{
			ID:        inv.ID.String(),
			Version:   inv.Version,
			CreatedAt: inv.CreatedAt,
			UpdatedAt: inv.UpdatedAt,
		},
		Number:           inv.Number,
		CustomerID:       inv.CustomerID.String(),
		Items:            FromLineItems(inv.Lines),
		Subtotal:         inv.Subtotal,
		DiscountAmount:   inv.DiscountAmount,
		TaxAmount:        inv.TaxAmount,
		Total:            inv.Total,
		Currency:         string(inv.Currency),
		Status:           string(inv.Status),
		PaymentStatus:    string(inv.PaymentStatus),
		PaymentMethod:    string(inv.PaymentMethod),
		PaymentTerms:     string(inv.PaymentTerms),
		IssueDate:        inv.IssueDate,
		DueDate:          inv.DueDate,
		PaidDate:         inv.PaidDate,
		PaidAmount:       inv.PaidAmount,
		RemainingAmount:  inv.RemainingAmount,
		Notes:            inv.Notes,
		Terms:            inv.Terms,
		Template:         string(inv.Template),
		EmailSent:        inv.EmailSent,
		EmailSentDate:    inv.EmailSentDate,
		RemindersSent:    inv.RemindersSent,
		LastReminderDate: inv.LastReminderDate,
	}
	if invoice.IsOverdue(inv, now) {
		resp.DaysOverdue = int(now.Sub(inv.DueDate).Hours() / 24)
	}
	return resp
}
