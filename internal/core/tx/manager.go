// Package tx decouples domain services from a concrete transaction implementation.
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
// If fn returns an error every write made through ctx is discarded.
// Nested calls reuse the transaction already carried by ctx.
//
// Implementations: storage/postgres.TxManager and storage/memory.TxManager.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
