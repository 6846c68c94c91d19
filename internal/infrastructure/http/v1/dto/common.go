// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
)

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page through fn.
func NewListResponse[E any, T any](res domain.ListResult[E], fn func(E) T) ListResponse[T] {
	items := make([]T, len(res.Items))
	for i, item := range res.Items {
		items[i] = fn(item)
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: res.TotalCount,
		Limit:      res.Limit,
		Offset:     res.Offset,
	}
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// --- Line items ---

// LineItemRequest is one line of a create/update document request.
type LineItemRequest struct {
	ProductID   string           `json:"productId" binding:"required"`
	Name        string           `json:"name" binding:"required,max=200"`
	Description string           `json:"description" binding:"max=500"`
	Quantity    int64            `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	Discount    *decimal.Decimal `json:"discount"`
	Tax         *decimal.Decimal `json:"tax"`
}

// ToLineItems converts request lines. Totals are computed by the document.
func ToLineItems(reqs []LineItemRequest) ([]billing.LineItem, error) {
	lines := make([]billing.LineItem, 0, len(reqs))
	for i, r := range reqs {
		productID, err := id.Parse(r.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").
				WithDetail("field", "items.productId").
				WithDetail("lineNo", i+1)
		}
		lines = append(lines, billing.LineItem{
			LineNo:      i + 1,
			ProductID:   productID,
			Name:        r.Name,
			Description: r.Description,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			Discount:    moneyOrZero(r.Discount),
			Tax:         moneyOrZero(r.Tax),
		})
	}
	return lines, nil
}

// LineItemResponse is a document line.
type LineItemResponse struct {
	LineNo      int         `json:"lineNo"`
	ProductID   string      `json:"productId"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Quantity    int64       `json:"quantity"`
	UnitPrice   types.Money `json:"unitPrice"`
	Discount    types.Money `json:"discount"`
	Tax         types.Money `json:"tax"`
	Total       types.Money `json:"total"`
}

// FromLineItems maps document lines.
func FromLineItems(lines []billing.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, len(lines))
	for i, l := range lines {
		out[i] = LineItemResponse{
			LineNo:      l.LineNo,
			ProductID:   l.ProductID.String(),
			Name:        l.Name,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Discount:    l.Discount,
			Tax:         l.Tax,
			Total:       l.Total,
		}
	}
	return out
}

// BaseResponse contains common response fields.
type BaseResponse struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func moneyOrZero(m *decimal.Decimal) types.Money {
	if m == nil {
		return types.Zero()
	}
	return *m
}

func idString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
