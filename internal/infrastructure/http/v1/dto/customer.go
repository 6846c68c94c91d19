package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"flowdesk/internal/core/id"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain/catalogs/customer"
)

// CreateCustomerRequest is the body of POST /customers.
type CreateCustomerRequest struct {
	Name         string           `json:"name" binding:"required,max=100"`
	Email        string           `json:"email" binding:"omitempty,email"`
	Phone        string           `json:"phone" binding:"required"`
	CompanyName  string           `json:"companyName"`
	TaxID        string           `json:"taxId"`
	CustomerType string           `json:"customerType" binding:"omitempty,oneof=individual business"`
	Status       string           `json:"status"`
	Notes        string           `json:"notes" binding:"max=500"`
	CreditLimit  *decimal.Decimal `json:"creditLimit"`
}

// ToEntity builds the customer. Aggregates start at zero.
func (r CreateCustomerRequest) ToEntity() *customer.Customer {
	c := customer.NewCustomer(id.Nil(), r.Name, r.Phone)
	c.Email = r.Email
	c.CompanyName = r.CompanyName
	c.TaxID = r.TaxID
	if r.CustomerType != "" {
		c.CustomerType = customer.Type(r.CustomerType)
	}
	if r.Status != "" {
		c.Status = customer.Status(r.Status)
	}
	c.Notes = r.Notes
	c.CreditLimit = moneyOrZero(r.CreditLimit)
	return c
}

// UpdateCustomerRequest is the body of PUT /customers/:id. Aggregates are
// not accepted.
type UpdateCustomerRequest struct {
	Name         *string          `json:"name" binding:"omitempty,max=100"`
	Email        *string          `json:"email" binding:"omitempty"`
	Phone        *string          `json:"phone"`
	CompanyName  *string          `json:"companyName"`
	TaxID        *string          `json:"taxId"`
	CustomerType *string          `json:"customerType" binding:"omitempty,oneof=individual business"`
	Status       *string          `json:"status"`
	Notes        *string          `json:"notes" binding:"omitempty,max=500"`
	CreditLimit  *decimal.Decimal `json:"creditLimit"`
	Version      int              `json:"version" binding:"min=0"`
}

// ApplyTo copies the present fields onto c.
func (r UpdateCustomerRequest) ApplyTo(c *customer.Customer) {
	setString(&c.Name, r.Name)
	setString(&c.Email, r.Email)
	setString(&c.Phone, r.Phone)
	setString(&c.CompanyName, r.CompanyName)
	setString(&c.TaxID, r.TaxID)
	if r.CustomerType != nil {
		c.CustomerType = customer.Type(*r.CustomerType)
	}
	if r.Status != nil {
		c.Status = customer.Status(*r.Status)
	}
	setString(&c.Notes, r.Notes)
	setMoney(&c.CreditLimit, r.CreditLimit)
	c.Version = r.Version
}

// CustomerResponse is a customer with its purchase aggregates.
type CustomerResponse struct {
	BaseResponse
	Name              string      `json:"name"`
	Email             string      `json:"email,omitempty"`
	Phone             string      `json:"phone"`
	CompanyName       string      `json:"companyName,omitempty"`
	TaxID             string      `json:"taxId,omitempty"`
	CustomerType      string      `json:"customerType"`
	Status            string      `json:"status"`
	Notes             string      `json:"notes,omitempty"`
	CreditLimit       types.Money `json:"creditLimit"`
	LoyaltyStatus     string      `json:"loyaltyStatus"`
	TotalPurchases    int64       `json:"totalPurchases"`
	TotalSpent        types.Money `json:"totalSpent"`
	AverageOrderValue types.Money `json:"averageOrderValue"`
	FirstPurchaseDate *time.Time  `json:"firstPurchaseDate,omitempty"`
	LastPurchaseDate  *time.Time  `json:"lastPurchaseDate,omitempty"`
}

// FromCustomer maps a customer.
func FromCustomer(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		BaseResponse: BaseResponse{
			ID:        c.ID.String(),
			Version:   c.Version,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		Name:              c.Name,
		Email:             c.Email,
		Phone:             c.Phone,
		CompanyName:       c.CompanyName,
		TaxID:             c.TaxID,
		CustomerType:      string(c.CustomerType),
		Status:            string(c.Status),
		Notes:             c.Notes,
		CreditLimit:       c.CreditLimit,
		LoyaltyStatus:     string(c.LoyaltyStatus),
		TotalPurchases:    c.TotalPurchases,
		TotalSpent:        c.TotalSpent,
		AverageOrderValue: c.AverageOrderValue,
		FirstPurchaseDate: c.FirstPurchaseDate,
		LastPurchaseDate:  c.LastPurchaseDate,
	}
}
