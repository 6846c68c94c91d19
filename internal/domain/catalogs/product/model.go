// Package product provides the Product catalog: priced, stocked items that
// sales decrement and invoices reference.
package product

import (
	"context"
	"strings"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/entity"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/billing"
)

// Type distinguishes stocked goods from services.
type Type string

const (
	TypeProduct Type = "product"
	TypeService Type = "service"
)

// Status of a catalog entry.
type Status string

const (
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusDiscontinued Status = "discontinued"
)

// Unit of measure for stock quantities.
type Unit string

const (
	UnitPiece Unit = "piece"
	UnitKg    Unit = "kg"
	UnitG     Unit = "g"
	UnitLiter Unit = "liter"
	UnitMl    Unit = "ml"
	UnitMeter Unit = "meter"
	UnitCm    Unit = "cm"
	UnitBox   Unit = "box"
	UnitPack  Unit = "pack"
)

// DefaultMinStock is the low-stock threshold applied to new products.
const DefaultMinStock int64 = 5

const (
	maxNameLen        = 100
	maxDescriptionLen = 500
)

// Product is an inventory item.
type Product struct {
	entity.BaseEntity

	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	SKU         string `db:"sku" json:"sku"`
	Barcode     string `db:"barcode" json:"barcode,omitempty"`
	Category    string `db:"category" json:"category"`
	Subcategory string `db:"subcategory" json:"subcategory,omitempty"`
	Brand       string `db:"brand" json:"brand,omitempty"`
	Type        Type   `db:"type" json:"type"`

	CostPrice      types.Money      `db:"cost_price" json:"costPrice"`
	SellingPrice   types.Money      `db:"selling_price" json:"sellingPrice"`
	WholesalePrice types.Money      `db:"wholesale_price" json:"wholesalePrice"`
	Currency       billing.Currency `db:"currency" json:"currency"`

	Stock    int64  `db:"stock" json:"stock"`
	MinStock int64  `db:"min_stock" json:"minStock"`
	MaxStock *int64 `db:"max_stock" json:"maxStock,omitempty"`
	Unit     Unit   `db:"unit" json:"unit"`
	Location string `db:"location" json:"location,omitempty"`

	Status        Status     `db:"status" json:"status"`
	IsLowStock    bool       `db:"is_low_stock" json:"isLowStock"`
	LastRestocked *time.Time `db:"last_restocked" json:"lastRestocked,omitempty"`
	Notes         string     `db:"notes" json:"notes,omitempty"`
}

// NewProduct creates a Product with defaults applied.
func NewProduct(ownerID id.ID, name, sku, category string) *Product {
	p := &Product{
		BaseEntity:     entity.NewBaseEntity(ownerID),
		Name:           name,
		SKU:            sku,
		Category:       category,
		Type:           TypeProduct,
		CostPrice:      types.Zero(),
		SellingPrice:   types.Zero(),
		WholesalePrice: types.Zero(),
		MinStock:       DefaultMinStock,
		Unit:           UnitPiece,
		Status:         StatusActive,
	}
	p.Normalize()
	return p
}

// Normalize trims text fields, upper-cases the SKU, fills enum defaults and
// refreshes derived flags. It runs before every write.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	p.Category = strings.TrimSpace(p.Category)
	p.Subcategory = strings.TrimSpace(p.Subcategory)
	p.Brand = strings.TrimSpace(p.Brand)
	p.Barcode = strings.TrimSpace(p.Barcode)
	if p.Type == "" {
		p.Type = TypeProduct
	}
	if p.Unit == "" {
		p.Unit = UnitPiece
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	p.Currency = p.Currency.OrDefault()
	p.RefreshDerived()
}

// RefreshDerived recomputes IsLowStock.
func (p *Product) RefreshDerived() {
	p.IsLowStock = p.Stock <= p.MinStock
}

// Validate implements entity.Validatable.
func (p *Product) Validate(_ context.Context) error {
	invalid := func(field, msg string) error {
		return apperror.NewValidation(msg).WithDetail("field", field)
	}

	switch {
	case p.Name == "":
		return invalid("name", "product name is required")
	case len(p.Name) > maxNameLen:
		return invalid("name", "product name cannot be more than 100 characters")
	case len(p.Description) > maxDescriptionLen:
		return invalid("description", "description cannot be more than 500 characters")
	case p.SKU == "":
		return invalid("sku", "SKU is required")
	case p.Category == "":
		return invalid("category", "category is required")
	case p.CostPrice.IsNegative():
		return invalid("costPrice", "cost price cannot be negative")
	case p.SellingPrice.IsNegative():
		return invalid("sellingPrice", "selling price cannot be negative")
	case p.WholesalePrice.IsNegative():
		return invalid("wholesalePrice", "wholesale price cannot be negative")
	case p.Stock < 0:
		return invalid("stock", "stock cannot be negative")
	case p.MinStock < 0:
		return invalid("minStock", "minimum stock cannot be negative")
	case p.MaxStock != nil && *p.MaxStock < 0:
		return invalid("maxStock", "maximum stock cannot be negative")
	}

	if !isValidType(p.Type) {
		return invalid("type", "invalid product type")
	}
	if !isValidUnit(p.Unit) {
		return invalid("unit", "invalid unit")
	}
	if !isValidStatus(p.Status) {
		return invalid("status", "invalid status")
	}
	return billing.ValidateCurrency(p.Currency)
}

// Decrease removes qty units from stock. It never lets stock go negative.
func (p *Product) Decrease(qty int64) error {
	if qty < 1 {
		return apperror.NewValidation("quantity must be at least 1").WithDetail("field", "quantity")
	}
	if p.Stock < qty {
		return apperror.NewInsufficientStock(p.ID.String(), qty, p.Stock).
			WithDetail("sku", p.SKU).
			WithDetail("name", p.Name)
	}
	p.Stock -= qty
	p.RefreshDerived()
	return nil
}

// Increase adds qty units to stock and records the restock time.
func (p *Product) Increase(qty int64, at time.Time) error {
	if qty < 1 {
		return apperror.NewValidation("quantity must be at least 1").WithDetail("field", "quantity")
	}
	p.Stock += qty
	restocked := at.UTC()
	p.LastRestocked = &restocked
	p.RefreshDerived()
	return nil
}

// ProfitMargin returns (selling - cost) / cost in percent, rounded to 2 places.
// Zero cost yields zero.
func (p *Product) ProfitMargin() types.Money {
	if p.CostPrice.IsZero() {
		return types.Zero()
	}
	profit := p.SellingPrice.Sub(p.CostPrice)
	return types.RoundMoney(profit.Div(p.CostPrice).Mul(types.NewMoneyFromInt(100)))
}

// TotalValue returns stock valued at cost.
func (p *Product) TotalValue() types.Money {
	return p.CostPrice.Mul(types.NewMoneyFromInt(p.Stock))
}

// IsSellable reports whether the product can be put on a new document.
func (p *Product) IsSellable() bool {
	return p.Status == StatusActive
}

func isValidType(t Type) bool {
	return t == TypeProduct || t == TypeService
}

func isValidUnit(u Unit) bool {
	switch u {
	case UnitPiece, UnitKg, UnitG, UnitLiter, UnitMl, UnitMeter, UnitCm, UnitBox, UnitPack:
		return true
	}
	return false
}

func isValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusInactive, StatusDiscontinued:
		return true
	}
	return false
}
