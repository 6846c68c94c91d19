package postgres

import (
	"context"
	"fmt"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/idempotency"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
)

// IdempotencyStore keeps idempotency keys in sys_idempotency.
type IdempotencyStore struct {
	txm *TxManager
	ttl time.Duration
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txm *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{txm: txm, ttl: ttl}
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

type idempotencyRow struct {
	Inserted    bool              `db:"inserted"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"`
	Response    []byte            `db:"response"`
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// Acquire implements idempotency.Store.
func (s *IdempotencyStore) Acquire(ctx context.Context, ownerID id.ID, key, operation, requestHash string) (*idempotency.Replay, error) {
	now := time.Now().UTC()
	q := s.txm.GetQuerier(ctx)

	// xmax = 0 only for a row this statement inserted.
	var row idempotencyRow
	err := q.QueryRow(ctx, `
		INSERT INTO sys_idempotency (owner_id, idempotency_key, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (owner_id, idempotency_key) DO UPDATE SET expires_at = sys_idempotency.expires_at
		RETURNING (xmax = 0), operation, status, request_hash, COALESCE(response, ''::bytea),
		          COALESCE(response_status, 0), COALESCE(response_content_type, ''), updated_at
	`, ownerID, key, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl)).Scan(
		&row.Inserted, &row.Operation, &row.Status, &row.RequestHash,
		&row.Response, &row.StatusCode, &row.ContentType, &row.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if row.Inserted {
		return nil, nil
	}

	if row.Operation != operation || row.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}

	if row.Status == IdempotencyStatusSuccess {
		return &idempotency.Replay{
			StatusCode:  row.StatusCode,
			ContentType: row.ContentType,
			Body:        row.Response,
		}, nil
	}

	if now.Sub(row.UpdatedAt) < idempotency.StaleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}

	// Abandoned by a crashed request: take it over.
	tag, err := q.Exec(ctx, `
		UPDATE sys_idempotency SET updated_at = $1
		WHERE owner_id = $2 AND idempotency_key = $3 AND status = $4 AND updated_at = $5
	`, now, ownerID, key, IdempotencyStatusPending, row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// Complete implements idempotency.Store.
func (s *IdempotencyStore) Complete(ctx context.Context, ownerID id.ID, key string, replay idempotency.Replay) error {
	_, err := s.txm.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1, response = $2, response_status = $3, response_content_type = $4, updated_at = $5
		WHERE owner_id = $6 AND idempotency_key = $7
	`, IdempotencyStatusSuccess, replay.Body, replay.StatusCode, replay.ContentType, time.Now().UTC(), ownerID, key)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release implements idempotency.Store.
func (s *IdempotencyStore) Release(ctx context.Context, ownerID id.ID, key string) error {
	_, err := s.txm.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE owner_id = $1 AND idempotency_key = $2 AND status = $3
	`, ownerID, key, IdempotencyStatusPending)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txm.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE expires_at < $1
	`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
