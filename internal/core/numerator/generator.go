package numerator

import (
	"context"
	"time"

	"flowdesk/internal/core/id"
)

// Generator allocates sequential document numbers.
//
// Implementations must be atomic per key: two concurrent callers never
// receive the same value. When called inside a transaction the allocation
// is part of it, so a rolled back document does not consume a number.
type Generator interface {
	// GetNextNumber returns the next formatted number for owner in period.
	GetNextNumber(ctx context.Context, cfg Config, ownerID id.ID, period time.Time) (string, error)

	// SetNextNumber sets the current counter value (migrations, manual repair).
	// The next allocated number will be value+1.
	SetNextNumber(ctx context.Context, cfg Config, ownerID id.ID, period time.Time, value int64) error
}
