package customer

import (
	"context"
	"fmt"
	"time"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/tx"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain"
	"flowdesk/pkg/logger"
)

// Service provides business logic for the Customer catalog.
type Service struct {
	repo   Repository
	txm    tx.Manager
	events domain.EventPublisher
}

// NewService creates a customer service. events may be nil.
func NewService(repo Repository, txm tx.Manager, events domain.EventPublisher) *Service {
	if events == nil {
		events = domain.NoopPublisher{}
	}
	return &Service{repo: repo, txm: txm, events: events}
}

// Create stores a new customer with zero aggregates.
func (s *Service) Create(ctx context.Context, c *Customer) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}
	c.OwnerID = ownerID
	if id.IsNil(c.ID) {
		c.ID = id.New()
	}
	c.Version = 1
	c.TotalPurchases = 0
	c.TotalSpent = types.Zero()
	c.FirstPurchaseDate = nil
	c.LastPurchaseDate = nil
	c.Normalize()

	if err := c.Validate(ctx); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}

	logger.Info(ctx, "customer created", "id", c.ID)
	return nil
}

// GetByID returns a customer of the current owner.
func (s *Service) GetByID(ctx context.Context, customerID id.ID) (*Customer, error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, ownerID, customerID)
}

// Update saves contact fields. Purchase aggregates are reloaded from storage
// under lock and cannot be changed by the caller.
func (s *Service) Update(ctx context.Context, c *Customer) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.repo.GetForUpdate(ctx, ownerID, c.ID)
		if err != nil {
			return err
		}
		if err := checkVersion(c.Version, stored); err != nil {
			return err
		}
		c.OwnerID = ownerID
		c.Version = stored.Version
		c.CreatedAt = stored.CreatedAt
		c.CopyAggregates(stored)
		c.Normalize()
		c.Touch()

		if err := c.Validate(ctx); err != nil {
			return err
		}
		return s.repo.Update(ctx, c)
	})
}

// Delete removes a customer.
func (s *Service) Delete(ctx context.Context, customerID id.ID) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, ownerID, customerID)
}

// List returns customers of the current owner.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Customer], error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return domain.ListResult[*Customer]{}, err
	}
	filter.Normalize()
	return s.repo.List(ctx, ownerID, filter)
}

// RecordPurchase locks the customer and folds a completed sale into its
// aggregates. It must run inside the transaction that creates the sale.
func (s *Service) RecordPurchase(ctx context.Context, ownerID, customerID id.ID, total types.Money, at time.Time) (*Customer, error) {
	c, err := s.repo.GetForUpdate(ctx, ownerID, customerID)
	if err != nil {
		return nil, err
	}

	before := c.LoyaltyStatus
	c.RecordPurchase(total, at)
	c.Touch()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update customer aggregates: %w", err)
	}

	if c.LoyaltyStatus != before {
		err := s.events.Publish(ctx, domain.Event{
			Type:          domain.EventCustomerTierRose,
			AggregateType: "customer",
			AggregateID:   c.ID,
			OwnerID:       c.OwnerID,
			Payload:       map[string]any{"from": before, "to": c.LoyaltyStatus},
		})
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// checkVersion rejects edits made against an older version. Zero means the
// client did not send one.
func checkVersion(version int, stored *Customer) error {
	if version != 0 && version != stored.Version {
		return apperror.NewConcurrentModification("customer", stored.ID)
	}
	return nil
}
