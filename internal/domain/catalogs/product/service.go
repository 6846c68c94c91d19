package product

import (
	"context"
	"fmt"
	"time"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/tx"
	"flowdesk/internal/domain"
	"flowdesk/pkg/logger"
)

// StockOperation selects the direction of a manual stock adjustment.
type StockOperation string

const (
	StockAdd      StockOperation = "add"
	StockSubtract StockOperation = "subtract"
)

// Service provides business logic for the Product catalog.
type Service struct {
	repo   Repository
	txm    tx.Manager
	cache  Cache
	events domain.EventPublisher
	now    func() time.Time
}

// NewService creates a product service. cache and events may be nil.
func NewService(repo Repository, txm tx.Manager, cache Cache, events domain.EventPublisher) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	if events == nil {
		events = domain.NoopPublisher{}
	}
	return &Service{
		repo:   repo,
		txm:    txm,
		cache:  cache,
		events: events,
		now:    time.Now,
	}
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}
	p.OwnerID = ownerID
	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	p.Version = 1
	p.Normalize()

	if err := p.Validate(ctx); err != nil {
		return err
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.ensureUniqueSKU(ctx, p); err != nil {
			return err
		}
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product created", "id", p.ID, "sku", p.SKU)
	return nil
}

// GetByID returns a product of the current owner.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return nil, err
	}
	if p, ok := s.cache.Get(ctx, ownerID, productID); ok {
		return p, nil
	}
	p, err := s.repo.GetByID(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, p)
	return p, nil
}

// Update replaces editable fields. Stock is not editable here: the stored
// quantity and restock date are kept and only AdjustStock or a sale moves
// them. A non-zero Version must match the stored one.
func (s *Service) Update(ctx context.Context, p *Product) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}
	p.OwnerID = ownerID
	p.Normalize()
	p.Touch()

	if err := p.Validate(ctx); err != nil {
		return err
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.repo.GetForUpdate(ctx, ownerID, p.ID)
		if err != nil {
			return err
		}
		if p.Version != 0 && p.Version != stored.Version {
			return apperror.NewConcurrentModification("product", p.ID)
		}
		p.Version = stored.Version
		p.CreatedAt = stored.CreatedAt
		p.Stock = stored.Stock
		p.LastRestocked = stored.LastRestocked
		p.RefreshDerived()
		if err := s.ensureUniqueSKU(ctx, p); err != nil {
			return err
		}
		return s.repo.Update(ctx, p)
	})
	s.cache.Invalidate(ctx, ownerID, p.ID)
	return err
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, productID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, ownerID, productID)
	logger.Info(ctx, "product deleted", "id", productID)
	return nil
}

// List returns products of the current owner.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return domain.ListResult[*Product]{}, err
	}
	filter.Normalize()
	return s.repo.List(ctx, ownerID, filter)
}

// Categories returns the distinct categories of the current owner.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Categories(ctx, ownerID)
}

// LowStock returns active products at or below their minimum stock.
func (s *Service) LowStock(ctx context.Context) ([]*Product, error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindLowStock(ctx, ownerID)
}

// AdjustStock adds or subtracts stock outside of a sale.
// Subtracting more than is available fails with InsufficientStock.
func (s *Service) AdjustStock(ctx context.Context, productID id.ID, op StockOperation, qty int64) (*Product, error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return nil, err
	}

	var updated *Product
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, ownerID, productID)
		if err != nil {
			return err
		}
		wasLow := p.IsLowStock

		switch op {
		case StockAdd:
			err = p.Increase(qty, s.now())
		case StockSubtract:
			err = p.Decrease(qty)
		default:
			err = apperror.NewValidation("operation must be add or subtract").
				WithDetail("field", "operation").
				WithDetail("value", string(op))
		}
		if err != nil {
			return err
		}

		p.Touch()
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}
		if err := PublishLowStockTransition(ctx, s.events, p, wasLow); err != nil {
			return err
		}
		updated = p
		return nil
	})
	s.cache.Invalidate(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"id", productID,
		"operation", op,
		"quantity", qty,
		"stock", updated.Stock,
	)
	return updated, nil
}

// PublishLowStockTransition emits EventStockLow when p has just crossed its
// minimum stock threshold.
func PublishLowStockTransition(ctx context.Context, events domain.EventPublisher, p *Product, wasLow bool) error {
	if wasLow || !p.IsLowStock {
		return nil
	}
	return events.Publish(ctx, domain.Event{
		Type:          domain.EventStockLow,
		AggregateType: "product",
		AggregateID:   p.ID,
		OwnerID:       p.OwnerID,
		Payload: map[string]any{
			"sku":      p.SKU,
			"stock":    p.Stock,
			"minStock": p.MinStock,
		},
	})
}

func (s *Service) ensureUniqueSKU(ctx context.Context, p *Product) error {
	exists, err := s.repo.ExistsBySKU(ctx, p.OwnerID, p.SKU, p.ID)
	if err != nil {
		return fmt.Errorf("check sku: %w", err)
	}
	if exists {
		return apperror.NewDuplicate("product", "sku", p.SKU)
	}
	return nil
}
