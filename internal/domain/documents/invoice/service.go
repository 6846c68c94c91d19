package invoice

import (
	"context"
	"fmt"
	"time"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/numerator"
	"flowdesk/internal/core/tx"
	"flowdesk/internal/core/types"
	"flowdesk/internal/domain"
	"flowdesk/internal/domain/billing"
	"flowdesk/pkg/logger"
)

// Service provides business operations for invoices. Every write path runs
// validation, RecomputeTotals and DeriveLifecycle in that order.
type Service struct {
	repo      Repository
	customers CustomerLookup
	numerator numerator.Generator
	txm       tx.Manager
	events    domain.EventPublisher
	now       func() time.Time
}

// NewService creates a new invoice service. events may be nil.
func NewService(
	repo Repository,
	customers CustomerLookup,
	gen numerator.Generator,
	txm tx.Manager,
	events domain.EventPublisher,
) *Service {
	if events == nil {
		events = domain.NoopPublisher{}
	}
	return &Service{
		repo:      repo,
		customers: customers,
		numerator: gen,
		txm:       txm,
		events:    events,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Used by tests and the overdue job.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create numbers, derives and stores a new invoice.
func (s *Service) Create(ctx context.Context, doc *Invoice) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}
	doc.OwnerID = ownerID
	if id.IsNil(doc.ID) {
		doc.ID = id.New()
	}
	doc.Version = 1
	doc.applyDefaults()

	if err := doc.Validate(ctx); err != nil {
		return err
	}
	doc.RecomputeTotals()

	now := s.now()
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.customers.GetByID(ctx, ownerID, doc.CustomerID); err != nil {
			return err
		}

		// Issue date must be known before numbering: the series is per issue year.
		if doc.IssueDate.IsZero() {
			doc.IssueDate = now.UTC()
		}
		if doc.Number == "" {
			number, err := s.numerator.GetNextNumber(ctx, NumberConfig, ownerID, doc.IssueDate)
			if err != nil {
				return err
			}
			doc.Number = number
		}

		DeriveLifecycle(doc, now)

		if err := s.repo.Create(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		if err := s.publish(ctx, domain.EventInvoiceCreated, doc); err != nil {
			return err
		}
		if doc.PaymentStatus == PaymentPaid {
			return s.publish(ctx, domain.EventInvoicePaid, doc)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "invoice created",
		"id", doc.ID,
		"number", doc.Number,
		"total", doc.Total.String(),
		"status", doc.Status,
	)
	return nil
}

// GetByID retrieves an invoice with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Invoice, error) {
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

// List returns invoices of the current owner without lines.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return domain.ListResult[*Invoice]{}, err
	}
	filter.Normalize()
	return s.repo.List(ctx, ownerID, filter)
}

// Update replaces the editable content of an invoice. Number, paid amount,
// paid date and delivery facts always come from storage; payments change only
// through RecordPayment. A zero issue date keeps the stored one.
func (s *Service) Update(ctx context.Context, doc *Invoice) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}
	doc.applyDefaults()
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	doc.RecomputeTotals()

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.repo.GetForUpdate(ctx, ownerID, doc.ID)
		if err != nil {
			return err
		}
		if stored.IsCancelled() {
			return errCancelled(stored)
		}
		if doc.CustomerID != stored.CustomerID {
			if _, err := s.customers.GetByID(ctx, ownerID, doc.CustomerID); err != nil {
				return err
			}
		}

		if doc.Version != 0 && doc.Version != stored.Version {
			return apperror.NewConcurrentModification("invoice", doc.ID)
		}
		doc.OwnerID = ownerID
		doc.Version = stored.Version
		doc.CreatedAt = stored.CreatedAt
		doc.Number = stored.Number
		doc.PaidAmount = stored.PaidAmount
		doc.PaidDate = stored.PaidDate
		doc.EmailSent = stored.EmailSent
		doc.EmailSentDate = stored.EmailSentDate
		doc.RemindersSent = stored.RemindersSent
		doc.LastReminderDate = stored.LastReminderDate
		if doc.IssueDate.IsZero() {
			doc.IssueDate = stored.IssueDate
		}
		if doc.Status == StatusCancelled {
			return apperror.NewValidation("use cancel to void an invoice").WithDetail("field", "status")
		}

		wasPaid := stored.PaymentStatus == PaymentPaid
		DeriveLifecycle(doc, s.now())
		doc.Touch()

		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		if !wasPaid && doc.PaymentStatus == PaymentPaid {
			return s.publish(ctx, domain.EventInvoicePaid, doc)
		}
		return nil
	})
}

// RecordPayment adds amount to the paid amount and re-derives the lifecycle.
func (s *Service) RecordPayment(ctx context.Context, docID id.ID, amount types.Money, method billing.PaymentMethod) (*Invoice, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").WithDetail("field", "amount")
	}
	if method != "" && !method.IsValidForInvoice() {
		return nil, invalidEnum("paymentMethod", string(method))
	}

	var doc *Invoice
	err := s.mutate(ctx, docID, func(d *Invoice) error {
		if d.IsCancelled() {
			return errCancelled(d)
		}
		wasPaid := d.PaymentStatus == PaymentPaid
		d.PaidAmount = d.PaidAmount.Add(amount)
		if method != "" {
			d.PaymentMethod = method
		}
		DeriveLifecycle(d, s.now())
		doc = d
		if !wasPaid && d.PaymentStatus == PaymentPaid {
			return s.publish(ctx, domain.EventInvoicePaid, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice payment recorded",
		"id", docID,
		"amount", amount.String(),
		"payment_status", doc.PaymentStatus,
	)
	return doc, nil
}

// MarkSent flags the invoice as delivered to the customer.
func (s *Service) MarkSent(ctx context.Context, docID id.ID) (*Invoice, error) {
	var doc *Invoice
	err := s.mutate(ctx, docID, func(d *Invoice) error {
		if d.IsCancelled() {
			return errCancelled(d)
		}
		now := s.now().UTC()
		d.EmailSent = true
		d.EmailSentDate = &now
		if d.Status == StatusDraft {
			d.Status = StatusSent
		}
		DeriveLifecycle(d, now)
		doc = d
		return nil
	})
	return doc, err
}

// RecordReminder counts a payment reminder sent for an unpaid invoice.
func (s *Service) RecordReminder(ctx context.Context, docID id.ID) (*Invoice, error) {
	var doc *Invoice
	err := s.mutate(ctx, docID, func(d *Invoice) error {
		if d.IsCancelled() || d.PaymentStatus == PaymentPaid {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "reminders are only sent for open invoices").
				WithDetail("status", d.Status)
		}
		now := s.now().UTC()
		d.RemindersSent++
		d.LastReminderDate = &now
		DeriveLifecycle(d, now)
		doc = d
		return nil
	})
	return doc, err
}

// Cancel voids an invoice. Fully paid invoices cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*Invoice, error) {
	var doc *Invoice
	err := s.mutate(ctx, docID, func(d *Invoice) error {
		if d.PaymentStatus == PaymentPaid {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "paid invoices cannot be cancelled").
				WithDetail("number", d.Number)
		}
		d.Status = StatusCancelled
		doc = d
		return nil
	})
	if err == nil {
		logger.Info(ctx, "invoice cancelled", "id", docID)
	}
	return doc, err
}

// RefreshOverdue re-derives invoices of every owner whose due date has
// passed and marks them overdue. It returns the number of invoices changed.
func (s *Service) RefreshOverdue(ctx context.Context) (int, error) {
	now := s.now()
	refs, err := s.repo.FindOverdueCandidates(ctx, now, overdueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("find overdue candidates: %w", err)
	}

	changed := 0
	for _, ref := range refs {
		transitioned := false
		err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			d, err := s.repo.GetForUpdate(ctx, ref.OwnerID, ref.ID)
			if err != nil {
				return err
			}
			before := d.Status
			DeriveLifecycle(d, now)
			if d.Status == before {
				return nil
			}
			d.Touch()
			if err := s.repo.Update(ctx, d); err != nil {
				return err
			}
			transitioned = true
			if d.Status == StatusOverdue {
				return s.publish(ctx, domain.EventInvoiceOverdue, d)
			}
			return nil
		})
		if err != nil {
			logger.Error(ctx, "refresh overdue failed", "id", ref.ID, "error", err)
			return changed, err
		}
		if transitioned {
			changed++
		}
	}

	if changed > 0 {
		logger.Info(ctx, "overdue invoices refreshed", "count", changed)
	}
	return changed, nil
}

// mutate loads an invoice under lock, applies fn and saves it.
func (s *Service) mutate(ctx context.Context, docID id.ID, fn func(d *Invoice) error) error {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return err
	}
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetForUpdate(ctx, ownerID, docID)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
		d.Touch()
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		lines, err := s.repo.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		d.Lines = lines
		return nil
	})
}

func (s *Service) publish(ctx context.Context, eventType string, d *Invoice) error {
	return s.events.Publish(ctx, domain.Event{
		Type:          eventType,
		AggregateType: "invoice",
		AggregateID:   d.ID,
		OwnerID:       d.OwnerID,
		Payload: map[string]any{
			"number":          d.Number,
			"customerId":      d.CustomerID,
			"total":           d.Total,
			"paidAmount":      d.PaidAmount,
			"remainingAmount": d.RemainingAmount,
			"status":          d.Status,
			"paymentStatus":   d.PaymentStatus,
		},
	})
}

func errCancelled(d *Invoice) error {
	return apperror.NewBusinessRule(apperror.CodeInvoiceCancelled, "invoice is cancelled").
		WithDetail("number", d.Number)
}
