// Package numerator provides the PostgreSQL implementation of document auto-numbering.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	corenumerator "flowdesk/internal/core/numerator"
	"flowdesk/internal/infrastructure/storage/postgres"
	"flowdesk/pkg/logger"
)

// Querier is the subset of pgx used by the service.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service allocates numbers from sys_sequences with a single
// INSERT ... ON CONFLICT DO UPDATE ... RETURNING per call. The row lock taken by
// the upsert is held by the surrounding transaction, so concurrent documents
// for the same key are serialised and a rollback returns the number.
type Service struct {
	querier func(ctx context.Context) Querier
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a service that joins the transaction carried by ctx, if any.
func New(txm *postgres.TxManager) *Service {
	return &Service{
		querier: func(ctx context.Context) Querier { return txm.GetQuerier(ctx) },
	}
}

// NewWithQuerier creates a service bound to a fixed querier.
func NewWithQuerier(q Querier) *Service {
	return &Service{
		querier: func(context.Context) Querier { return q },
	}
}

// GetNextNumber implements corenumerator.Generator.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, ownerID id.ID, period time.Time) (string, error) {
	key := cfg.Key(ownerID, period)

	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		logger.Error(ctx, "sequence allocation failed", "key", key, "error", err)
		return "", apperror.NewNumberingConflict(key).WithCause(err)
	}

	return cfg.Format(period, num), nil
}

// SetNextNumber implements corenumerator.Generator.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, ownerID id.ID, period time.Time, value int64) error {
	if value < 0 {
		return apperror.NewValidation("sequence value cannot be negative").WithDetail("value", value)
	}
	key := cfg.Key(ownerID, period)

	var result int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, key, value).Scan(&result)
	if err != nil {
		return fmt.Errorf("set sequence %s: %w", key, err)
	}
	return nil
}
