package sale

import (
	"context"
	"fmt"
	"sort"
	"time"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/numerator"
	"flowdesk/internal/core/tx"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/internal/domain/catalogs/product"
	"flowdesk/pkg/logger"
)

// Service provides business operations for sales.
type Service struct {
	repo      Repository
	stock     StockStore
	customers PurchaseRecorder
	numerator numerator.Generator
	txm       tx.Manager
	cache     product.Cache
	events    domain.EventPublisher
	now       func() time.Time
}

// NewService creates a new sale service. cache and events may be nil.
func NewService(
	repo Repository,
	stock StockStore,
	customers PurchaseRecorder,
	gen numerator.Generator,
	txm tx.Manager,
	cache product.Cache,
	events domain.EventPublisher,
) *Service {
	if cache == nil {
		cache = product.NoopCache{}
	}
	if events == nil {
		events = domain.NoopPublisher{}
	}
	return &Service{
		repo:      repo,
		stock:     stock,
		customers: customers,
		numerator: gen,
		txm:       txm,
		cache:     cache,
		events:    events,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create records a sale. Numbering, stock decrement, the sale rows, the
// customer aggregates and the sale.created event commit together or not at all.
func (s *Service) Create(ctx context.Context, doc *Sale) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}
	doc.OwnerID = ownerID
	if id.IsNil(doc.ID) {
		doc.ID = id.New()
	}
	doc.Version = 1
	doc.Refunded = false
	doc.RefundAmount = types.Zero()
	doc.RefundDate = nil
	doc.RefundReason = ""
	doc.applyDefaults()

	if err := doc.Validate(ctx); err != nil {
		return err
	}
	doc.RecomputeTotals()

	now := s.now().UTC()
	if doc.SoldAt.IsZero() {
		doc.SoldAt = now
	}

	var touched []id.ID
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if doc.Number == "" {
			number, err := s.numerator.GetNextNumber(ctx, NumberConfig, ownerID, doc.SoldAt)
			if err != nil {
				return err
			}
			doc.Number = number
		}
		if doc.ReceiptNumber == "" {
			doc.ReceiptNumber = receiptNumber(now)
		}

		products, err := s.reserve(ctx, ownerID, billing.Quantities(doc.Lines))
		if err != nil {
			return err
		}
		touched = make([]id.ID, 0, len(products))
		for _, r := range products {
			if err := s.applyStock(ctx, r.product, r.wasLow); err != nil {
				return err
			}
			touched = append(touched, r.product.ID)
		}

		// The customer name is a snapshot stored on the header.
		if doc.CustomerID != nil {
			c, err := s.customers.RecordPurchase(ctx, ownerID, *doc.CustomerID, doc.Total, doc.SoldAt)
			if err != nil {
				return err
			}
			if doc.CustomerName == "" {
				doc.CustomerName = c.Name
			}
		}

		if err := s.repo.Create(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		return s.publish(ctx, domain.EventSaleCreated, doc, map[string]any{
			"number":        doc.Number,
			"receiptNumber": doc.ReceiptNumber,
			"customerId":    doc.CustomerID,
			"total":         doc.Total,
			"items":         len(doc.Lines),
		})
	})
	for _, productID := range touched {
		s.cache.Invalidate(ctx, ownerID, productID)
	}
	if err != nil {
		return err
	}

	logger.Info(ctx, "sale created",
		"id", doc.ID,
		"number", doc.Number,
		"total", doc.Total.String(),
	)
	return nil
}

type reservation struct {
	product *product.Product
	wasLow  bool
}

// reserve locks every product in a stable order and decrements it in memory.
// Nothing is written until all of them have enough stock.
func (s *Service) reserve(ctx context.Context, ownerID id.ID, quantities map[string]int64) ([]reservation, error) {
	keys := make([]string, 0, len(quantities))
	for k := range quantities {
		keys = append(keys, k)
	}
	// Stable lock order avoids deadlocks between sales sharing products.
	sort.Strings(keys)

	out := make([]reservation, 0, len(keys))
	for _, k := range keys {
		productID, err := id.Parse(k)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").WithDetail("value", k)
		}
		p, err := s.stock.GetForUpdate(ctx, ownerID, productID)
		if err != nil {
			return nil, err
		}
		wasLow := p.IsLowStock
		if err := p.Decrease(quantities[k]); err != nil {
			return nil, err
		}
		out = append(out, reservation{product: p, wasLow: wasLow})
	}
	return out, nil
}

func (s *Service) applyStock(ctx context.Context, p *product.Product, wasLow bool) error {
	p.Touch()
	if err := s.stock.Update(ctx, p); err != nil {
		return fmt.Errorf("update stock %s: %w", p.ID, err)
	}
	return product.PublishLowStockTransition(ctx, s.events, p, wasLow)
}

// GetByID retrieves a sale with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Sale, error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.GetByID(ctx, ownerID, docID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// List returns sales of the current owner without lines.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return domain.ListResult[*Sale]{}, err
	}
	filter.Normalize()
	return s.repo.List(ctx, ownerID, filter)
}

// Refund returns money to the customer. When the sale becomes refunded in
// full its quantities go back to stock. Customer aggregates are not reversed.
func (s *Service) Refund(ctx context.Context, docID id.ID, amount types.Money, reason string) (*Sale, error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return nil, err
	}

	var (
		doc      *Sale
		restored []id.ID
	)
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetForUpdate(ctx, ownerID, docID)
		if err != nil {
			return err
		}
		lines, err := s.repo.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		d.Lines = lines

		now := s.now()
		full, err := d.ApplyRefund(amount, reason, now)
		if err != nil {
			return err
		}
		d.Touch()
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}

		if full {
			restored, err = s.restock(ctx, ownerID, billing.Quantities(d.Lines), now)
			if err != nil {
				return err
			}
		}

		doc = d
		return s.publish(ctx, domain.EventSaleRefunded, d, map[string]any{
			"number":       d.Number,
			"amount":       amount,
			"refundAmount": d.RefundAmount,
			"full":         full,
			"reason":       d.RefundReason,
		})
	})
	for _, productID := range restored {
		s.cache.Invalidate(ctx, ownerID, productID)
	}
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale refunded",
		"id", docID,
		"amount", amount.String(),
		"refunded", doc.Refunded,
	)
	return doc, nil
}

// restock returns quantities of a fully refunded sale. Products deleted since
// the sale are skipped.
func (s *Service) restock(ctx context.Context, ownerID id.ID, quantities map[string]int64, at time.Time) ([]id.ID, error) {
	keys := make([]string, 0, len(quantities))
	for k := range quantities {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]id.ID, 0, len(keys))
	for _, k := range keys {
		productID, err := id.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("parse product id %q: %w", k, err)
		}
		p, err := s.stock.GetForUpdate(ctx, ownerID, productID)
		if apperror.IsNotFound(err) {
			logger.Warn(ctx, "refund restock skipped", "product_id", productID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := p.Increase(quantities[k], at); err != nil {
			return nil, err
		}
		p.Touch()
		if err := s.stock.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("restock %s: %w", productID, err)
		}
		out = append(out, productID)
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, eventType string, d *Sale, payload map[string]any) error {
	return s.events.Publish(ctx, domain.Event{
		Type:          eventType,
		AggregateType: "sale",
		AggregateID:   d.ID,
		OwnerID:       d.OwnerID,
		Payload:       payload,
	})
}
