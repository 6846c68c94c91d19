// Package customer provides the Customer catalog and its purchase aggregates.
package customer

import (
	"context"
	"regexp"
	"strings"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/entity"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
)

// LoyaltyStatus is a tier derived from lifetime spend.
type LoyaltyStatus string

const (
	LoyaltyBronze   LoyaltyStatus = "bronze"
	LoyaltySilver   LoyaltyStatus = "silver"
	LoyaltyGold     LoyaltyStatus = "gold"
	LoyaltyPlatinum LoyaltyStatus = "platinum"
)

// Tier thresholds in whole currency units.
var (
	SilverThreshold   = types.NewMoneyFromInt(100_000)
	GoldThreshold     = types.NewMoneyFromInt(500_000)
	PlatinumThreshold = types.NewMoneyFromInt(1_000_000)
)

// Type of customer.
type Type string

const (
	TypeIndividual Type = "individual"
	TypeBusiness   Type = "business"
)

// Status of a customer record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBlocked  Status = "blocked"
)

var (
	emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// Customer is a buyer with lifetime purchase aggregates.
type Customer struct {
	entity.BaseEntity

	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email,omitempty"`
	Phone        string `db:"phone" json:"phone"`
	CompanyName  string `db:"company_name" json:"companyName,omitempty"`
	TaxID        string `db:"tax_id" json:"taxId,omitempty"`
	CustomerType Type   `db:"customer_type" json:"customerType"`
	Status       Status `db:"status" json:"status"`
	Notes        string `db:"notes" json:"notes,omitempty"`

	CreditLimit types.Money `db:"credit_limit" json:"creditLimit"`

	// Aggregates below are maintained by RecordPurchase only.
	LoyaltyStatus     LoyaltyStatus `db:"loyalty_status" json:"loyaltyStatus"`
	TotalPurchases    int64         `db:"total_purchases" json:"totalPurchases"`
	TotalSpent        types.Money   `db:"total_spent" json:"totalSpent"`
	AverageOrderValue types.Money   `db:"average_order_value" json:"averageOrderValue"`
	FirstPurchaseDate *time.Time    `db:"first_purchase_date" json:"firstPurchaseDate,omitempty"`
	LastPurchaseDate  *time.Time    `db:"last_purchase_date" json:"lastPurchaseDate,omitempty"`
}

// NewCustomer creates a Customer with zeroed aggregates.
func NewCustomer(ownerID id.ID, name, phone string) *Customer {
	c := &Customer{
		BaseEntity:        entity.NewBaseEntity(ownerID),
		Name:              name,
		Phone:             phone,
		CustomerType:      TypeIndividual,
		Status:            StatusActive,
		CreditLimit:       types.Zero(),
		TotalSpent:        types.Zero(),
		AverageOrderValue: types.Zero(),
	}
	c.Normalize()
	return c
}

// TierFor maps lifetime spend to a loyalty tier.
func TierFor(totalSpent types.Money) LoyaltyStatus {
	switch {
	case totalSpent.GreaterThanOrEqual(PlatinumThreshold):
		return LoyaltyPlatinum
	case totalSpent.GreaterThanOrEqual(GoldThreshold):
		return LoyaltyGold
	case totalSpent.GreaterThanOrEqual(SilverThreshold):
		return LoyaltySilver
	default:
		return LoyaltyBronze
	}
}

// Normalize trims input, fills defaults and re-derives tier and average.
func (c *Customer) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	if c.CustomerType == "" {
		c.CustomerType = TypeIndividual
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	c.RefreshDerived()
}

// RefreshDerived recomputes LoyaltyStatus and AverageOrderValue.
func (c *Customer) RefreshDerived() {
	c.LoyaltyStatus = TierFor(c.TotalSpent)
	if c.TotalPurchases > 0 {
		c.AverageOrderValue = types.RoundMoney(c.TotalSpent.Div(types.NewMoneyFromInt(c.TotalPurchases)))
	} else {
		c.AverageOrderValue = types.Zero()
	}
}

// RecordPurchase folds one completed sale into the aggregates.
func (c *Customer) RecordPurchase(total types.Money, at time.Time) {
	at = at.UTC()
	c.TotalPurchases++
	c.TotalSpent = c.TotalSpent.Add(total)
	c.LastPurchaseDate = &at
	if c.FirstPurchaseDate == nil {
		first := at
		c.FirstPurchaseDate = &first
	}
	c.RefreshDerived()
}

// CopyAggregates carries purchase aggregates from stored over to c, so that
// client edits cannot overwrite them.
func (c *Customer) CopyAggregates(stored *Customer) {
	c.TotalPurchases = stored.TotalPurchases
	c.TotalSpent = stored.TotalSpent
	c.FirstPurchaseDate = stored.FirstPurchaseDate
	c.LastPurchaseDate = stored.LastPurchaseDate
	c.RefreshDerived()
}

// Validate implements entity.Validatable.
func (c *Customer) Validate(_ context.Context) error {
	invalid := func(field, msg string) error {
		return apperror.NewValidation(msg).WithDetail("field", field)
	}

	switch {
	case c.Name == "":
		return invalid("name", "customer name is required")
	case len(c.Name) > 100:
		return invalid("name", "name cannot be more than 100 characters")
	case c.Phone == "":
		return invalid("phone", "phone number is required")
	case !phonePattern.MatchString(c.Phone):
		return invalid("phone", "please provide a valid phone number")
	case c.Email != "" && !emailPattern.MatchString(c.Email):
		return invalid("email", "please provide a valid email")
	case c.CreditLimit.IsNegative():
		return invalid("creditLimit", "credit limit cannot be negative")
	case c.TotalPurchases < 0:
		return invalid("totalPurchases", "total purchases cannot be negative")
	case c.TotalSpent.IsNegative():
		return invalid("totalSpent", "total spent cannot be negative")
	}

	switch c.CustomerType {
	case TypeIndividual, TypeBusiness:
	default:
		return invalid("customerType", "invalid customer type")
	}
	switch c.Status {
	case StatusActive, StatusInactive, StatusBlocked:
	default:
		return invalid("status", "invalid status")
	}
	return nil
}
