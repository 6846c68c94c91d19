package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/catalogs/product"
)

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Name           string           `json:"name" binding:"required,max=100"`
	Description    string           `json:"description" binding:"max=500"`
	SKU            string           `json:"sku" binding:"required,max=64"`
	Barcode        string           `json:"barcode"`
	Category       string           `json:"category" binding:"required"`
	Subcategory    string           `json:"subcategory"`
	Brand          string           `json:"brand"`
	Type           string           `json:"type" binding:"omitempty,oneof=product service"`
	CostPrice      *decimal.Decimal `json:"costPrice"`
	SellingPrice   *decimal.Decimal `json:"sellingPrice"`
	WholesalePrice *decimal.Decimal `json:"wholesalePrice"`
	Currency       string           `json:"currency"`
	Stock          int64            `json:"stock" binding:"min=0"`
	MinStock       *int64           `json:"minStock" binding:"omitempty,min=0"`
	MaxStock       *int64           `json:"maxStock" binding:"omitempty,min=0"`
	Unit           string           `json:"unit"`
	Location       string           `json:"location"`
	Status         string           `json:"status"`
	Notes          string           `json:"notes"`
}

// ToEntity builds the product. Owner is assigned by the service.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(id.Nil(), r.Name, r.SKU, r.Category)
	p.Description = r.Description
	p.Barcode = r.Barcode
	p.Subcategory = r.Subcategory
	p.Brand = r.Brand
	if r.Type != "" {
		p.Type = product.Type(r.Type)
	}
	p.CostPrice = moneyOrZero(r.CostPrice)
	p.SellingPrice = moneyOrZero(r.SellingPrice)
	p.WholesalePrice = moneyOrZero(r.WholesalePrice)
	p.Currency = billing.Currency(r.Currency)
	p.Stock = r.Stock
	if r.MinStock != nil {
		p.MinStock = *r.MinStock
	}
	p.MaxStock = r.MaxStock
	if r.Unit != "" {
		p.Unit = product.Unit(r.Unit)
	}
	p.Location = r.Location
	if r.Status != "" {
		p.Status = product.Status(r.Status)
	}
	p.Notes = r.Notes
	return p
}

// UpdateProductRequest is the body of PUT /products/:id. Absent fields keep
// their stored value. Stock moves only through PUT /products/:id/stock.
type UpdateProductRequest struct {
	Name           *string          `json:"name" binding:"omitempty,max=100"`
	Description    *string          `json:"description" binding:"omitempty,max=500"`
	SKU            *string          `json:"sku" binding:"omitempty,max=64"`
	Barcode        *string          `json:"barcode"`
	Category       *string          `json:"category"`
	Subcategory    *string          `json:"subcategory"`
	Brand          *string          `json:"brand"`
	Type           *string          `json:"type" binding:"omitempty,oneof=product service"`
	CostPrice      *decimal.Decimal `json:"costPrice"`
	SellingPrice   *decimal.Decimal `json:"sellingPrice"`
	WholesalePrice *decimal.Decimal `json:"wholesalePrice"`
	Currency       *string          `json:"currency"`
	MinStock       *int64           `json:"minStock" binding:"omitempty,min=0"`
	MaxStock       *int64           `json:"maxStock" binding:"omitempty,min=0"`
	Unit           *string          `json:"unit"`
	Location       *string          `json:"location"`
	Status         *string          `json:"status"`
	Notes          *string          `json:"notes"`
	Version        int              `json:"version" binding:"min=0"`
}

// ApplyTo copies the present fields onto p. Without a version in the body
// p keeps the version it was loaded with, so an edit racing another write
// fails with a conflict.
func (r UpdateProductRequest) ApplyTo(p *product.Product) {
	setString(&p.Name, r.Name)
	setString(&p.Description, r.Description)
	setString(&p.SKU, r.SKU)
	setString(&p.Barcode, r.Barcode)
	setString(&p.Category, r.Category)
	setString(&p.Subcategory, r.Subcategory)
	setString(&p.Brand, r.Brand)
	if r.Type != nil {
		p.Type = product.Type(*r.Type)
	}
	setMoney(&p.CostPrice, r.CostPrice)
	setMoney(&p.SellingPrice, r.SellingPrice)
	setMoney(&p.WholesalePrice, r.WholesalePrice)
	if r.Currency != nil {
		p.Currency = billing.Currency(*r.Currency)
	}
	if r.MinStock != nil {
		p.MinStock = *r.MinStock
	}
	if r.MaxStock != nil {
		p.MaxStock = r.MaxStock
	}
	if r.Unit != nil {
		p.Unit = product.Unit(*r.Unit)
	}
	setString(&p.Location, r.Location)
	if r.Status != nil {
		p.Status = product.Status(*r.Status)
	}
	setString(&p.Notes, r.Notes)
	if r.Version != 0 {
		p.Version = r.Version
	}
}

// AdjustStockRequest is the body of PUT /products/:id/stock.
type AdjustStockRequest struct {
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
	Operation string `json:"operation" binding:"required,oneof=add subtract"`
}

// ProductResponse is a product with its computed figures.
type ProductResponse struct {
	BaseResponse
	Name           string      `json:"name"`
	Description    string      `json:"description,omitempty"`
	SKU            string      `json:"sku"`
	Barcode        string      `json:"barcode,omitempty"`
	Category       string      `json:"category"`
	Subcategory    string      `json:"subcategory,omitempty"`
	Brand          string      `json:"brand,omitempty"`
	Type           string      `json:"type"`
	CostPrice      types.Money `json:"costPrice"`
	SellingPrice   types.Money `json:"sellingPrice"`
	WholesalePrice types.Money `json:"wholesalePrice"`
	Currency       string      `json:"currency"`
	Stock          int64       `json:"stock"`
	MinStock       int64       `json:"minStock"`
	MaxStock       *int64      `json:"maxStock,omitempty"`
	Unit           string      `json:"unit"`
	Location       string      `json:"location,omitempty"`
	Status         string      `json:"status"`
	IsLowStock     bool        `json:"isLowStock"`
	LastRestocked  *time.Time  `json:"lastRestocked,omitempty"`
	Notes          string      `json:"notes,omitempty"`
	ProfitMargin   types.Money `json:"profitMargin"`
	TotalValue     types.Money `json:"totalValue"`
}

// FromProduct maps a product.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		BaseResponse: BaseResponse{
			ID:        p.ID.String(),
			Version:   p.Version,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		},
		Name:           p.Name,
		Description:    p.Description,
		SKU:            p.SKU,
		Barcode:        p.Barcode,
		Category:       p.Category,
		Subcategory:    p.Subcategory,
		Brand:          p.Brand,
		Type:           string(p.Type),
		CostPrice:      p.CostPrice,
		SellingPrice:   p.SellingPrice,
		WholesalePrice: p.WholesalePrice,
		Currency:       string(p.Currency),
		Stock:          p.Stock,
		MinStock:       p.MinStock,
		MaxStock:       p.MaxStock,
		Unit:           string(p.Unit),
		Location:       p.Location,
		Status:         string(p.Status),
		IsLowStock:     p.IsLowStock,
		LastRestocked:  p.LastRestocked,
		Notes:          p.Notes,
		ProfitMargin:   p.ProfitMargin(),
		TotalValue:     p.TotalValue(),
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setMoney(dst *types.Money, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}
