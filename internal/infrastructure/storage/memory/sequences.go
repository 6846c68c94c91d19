package memory

import (
	"context"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/numerator"
)

var _ numerator.Generator = (*Sequences)(nil)

// Sequences implements numerator.Generator over the store. Counters are part
// of the transaction snapshot, so a failed document gives its number back.
type Sequences struct {
	store *Store
}

func (g *Sequences) GetNextNumber(ctx context.Context, cfg numerator.Config, ownerID id.ID, period time.Time) (string, error) {
	key := cfg.Key(ownerID, period)
	var next int64
	_ = g.store.do(ctx, func(st *state) error {
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	return cfg.Format(period, next), nil
}

func (g *Sequences) SetNextNumber(ctx context.Context, cfg numerator.Config, ownerID id.ID, period time.Time, value int64) error {
	if value < 0 {
		return apperror.NewValidation("sequence value cannot be negative").WithDetail("field", "value")
	}
	key := cfg.Key(ownerID, period)
	return g.store.do(ctx, func(st *state) error {
		st.sequences[key] = value
		return nil
	})
}
