package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/documents/sale"
)

// CreateSaleRequest is the body of POST /sales.
type CreateSaleRequest struct {
	CustomerID    string            `json:"customerId"`
	CustomerName  string            `json:"customerName" binding:"max=100"`
	Items         []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	PaymentMethod string            `json:"paymentMethod" binding:"required"`
	PaymentStatus string            `json:"paymentStatus"`
	Channel       string            `json:"channel"`
	Location      string            `json:"location"`
	Currency      string            `json:"currency"`
	Notes         string            `json:"notes" binding:"max=500"`
}

// ToEntity builds the sale. Number, receipt and sale time are assigned by
// the server.
func (r CreateSaleRequest) ToEntity() (*sale.Sale, error) {
	customerID, err := id.ParseOptional(r.CustomerID)
	if err != nil {
		return nil, apperror.NewValidation("invalid customer id").WithDetail("field", "customerId")
	}
	lines, err := ToLineItems(r.Items)
	if err != nil {
		return nil, err
	}

	s := sale.NewSale(id.Nil(), billing.PaymentMethod(r.PaymentMethod))
	s.CustomerID = customerID
	s.CustomerName = r.CustomerName
	s.Lines = lines
	if r.PaymentStatus != "" {
		s.PaymentStatus = sale.PaymentStatus(r.PaymentStatus)
	}
	if r.Channel != "" {
		s.Channel = sale.Channel(r.Channel)
	}
	s.Location = r.Location
	s.Currency = billing.Currency(r.Currency).OrDefault()
	s.Notes = r.Notes
	return s, nil
}

// RefundSaleRequest is the body of POST /sales/:id/refund.
type RefundSaleRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"max=500"`
}

// SaleResponse is a sale with its lines.
type SaleResponse struct {
	BaseResponse
	Number         string             `json:"number"`
	ReceiptNumber  string             `json:"receiptNumber"`
	CustomerID     *string            `json:"customerId,omitempty"`
	CustomerName   string             `json:"customerName,omitempty"`
	Items          []LineItemResponse `json:"items"`
	Subtotal       types.Money        `json:"subtotal"`
	DiscountAmount types.Money        `json:"discountAmount"`
	TaxAmount      types.Money        `json:"taxAmount"`
	Total          types.Money        `json:"total"`
	Currency       string             `json:"currency"`
	PaymentMethod  string             `json:"paymentMethod"`
	PaymentStatus  string             `json:"paymentStatus"`
	Channel        string             `json:"channel"`
	Location       string             `json:"location,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	SoldAt         time.Time          `json:"soldAt"`
	Refunded       bool               `json:"refunded"`
	RefundAmount   types.Money        `json:"refundAmount"`
	RefundDate     *time.Time         `json:"refundDate,omitempty"`
	RefundReason   string             `json:"refundReason,omitempty"`
	ItemCount      int64              `json:"itemCount"`
}

// FromSale maps a sale.
func FromSale(s *sale.Sale) SaleResponse {
	var count int64
	for _, l := range s.Lines {
		count += l.Quantity
	}
	return SaleResponse{
		BaseResponse: BaseResponse{
			ID:        s.ID.String(),
			Version:   s.Version,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		},
		Number:         s.Number,
		ReceiptNumber:  s.ReceiptNumber,
		CustomerID:     idString(s.CustomerID),
		CustomerName:   s.CustomerName,
		Items:          FromLineItems(s.Lines),
		Subtotal:       s.Subtotal,
		DiscountAmount: s.DiscountAmount,
		TaxAmount:      s.TaxAmount,
		Total:          s.Total,
		Currency:       string(s.Currency),
		PaymentMethod:  string(s.PaymentMethod),
		PaymentStatus:  string(s.PaymentStatus),
		Channel:        string(s.Channel),
		Location:       s.Location,
		Notes:          s.Notes,
		SoldAt:         s.SoldAt,
		Refunded:       s.Refunded,
		RefundAmount:   s.RefundAmount,
		RefundDate:     s.RefundDate,
		RefundReason:   s.RefundReason,
		ItemCount:      count,
	}
}
