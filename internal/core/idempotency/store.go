// Package idempotency defines replay storage for retried write requests.
package idempotency

import (
	"context"
	"time"

	"flowdesk/internal/core/id"
)

// DefaultTTL is how long a completed response is replayed.
const DefaultTTL = 24 * time.Hour

// StaleAfter is the age after which a pending key is considered abandoned.
const StaleAfter = time.Minute

// Replay is a stored response.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store persists idempotency keys per owner.
//
// Acquire returns (nil, nil) when the caller now holds the key, a Replay when
// the request already completed, NewIdempotencyConflict while another request
// holds it and NewIdempotencyMismatch when the key was used for a different
// operation or body.
type Store interface {
	Acquire(ctx context.Context, ownerID id.ID, key, operation, requestHash string) (*Replay, error)
	Complete(ctx context.Context, ownerID id.ID, key string, replay Replay) error
	Release(ctx context.Context, ownerID id.ID, key string) error
}
