package reports

import (
	"context"
	"fmt"
	"time"

	"flowdesk/internal/core/apperror"
	appctx "flowdesk/internal/core/context"
	"flowdesk/internal/core/types"
)

const (
	defaultPeriod = 30 * 24 * time.Hour
	maxPeriod     = 366 * 24 * time.Hour
	defaultTopN   = 5
	maxTopN       = 50
)

// Service provides report generation operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SalesSummary builds the sales analytics of the calling owner.
// A zero To means now, a zero From means 30 days before To.
func (s *Service) SalesSummary(ctx context.Context, filter SalesFilter) (*SalesSummary, error) {
	ownerID, err := appctx.RequireOwnerID(ctx)
	if err != nil {
		return nil, err
	}
	filter.OwnerID = ownerID

	if filter.To.IsZero() {
		filter.To = s.now().UTC()
	}
	if filter.From.IsZero() {
		filter.From = filter.To.Add(-defaultPeriod)
	}
	if !filter.From.Before(filter.To) {
		return nil, apperror.NewValidation("from must be before to")
	}
	if filter.To.Sub(filter.From) > maxPeriod {
		return nil, apperror.NewValidation("period must not exceed one year")
	}
	if filter.TopN <= 0 {
		filter.TopN = defaultTopN
	}
	if filter.TopN > maxTopN {
		filter.TopN = maxTopN
	}

	totals, err := s.repo.SalesTotals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("sales totals: %w", err)
	}

	report := &SalesSummary{
		From:        filter.From,
		To:          filter.To,
		SalesCount:  totals.Count,
		Revenue:     totals.Revenue,
		Refunded:    totals.Refunded,
		NetRevenue:  totals.Revenue.Sub(totals.Refunded),
		AverageSale: types.Zero(),
	}
	if totals.Count > 0 {
		report.AverageSale = types.RoundMoney(totals.Revenue.Div(types.NewMoneyFromInt(totals.Count)))
	}

	if report.ByPaymentMethod, err = s.repo.SalesByPaymentMethod(ctx, filter); err != nil {
		return nil, fmt.Errorf("sales by payment method: %w", err)
	}
	if report.ByChannel, err = s.repo.SalesByChannel(ctx, filter); err != nil {
		return nil, fmt.Errorf("sales by channel: %w", err)
	}
	if report.Daily, err = s.repo.DailySales(ctx, filter); err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}
	if report.TopProducts, err = s.repo.TopProducts(ctx, filter); err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return report, nil
}
