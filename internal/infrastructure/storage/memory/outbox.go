package memory

import (
	"context"
	"slices"

	"flowdesk/internal/domain"
)

var _ domain.EventPublisher = (*Outbox)(nil)

// Outbox records events alongside the state they describe.
type Outbox struct {
	store *Store
}

// Publish implements domain.EventPublisher.
func (o *Outbox) Publish(ctx context.Context, event domain.Event) error {
	return o.store.do(ctx, func(st *state) error {
		st.outbox = append(st.outbox, event)
		return nil
	})
}

// Events returns a copy of everything published so far.
func (o *Outbox) Events() []domain.Event {
	var out []domain.Event
	_ = o.store.do(context.Background(), func(st *state) error {
		out = slices.Clone(st.outbox)
		return nil
	})
	return out
}

// Drain returns and removes pending events.
func (o *Outbox) Drain(ctx context.Context) []domain.Event {
	var out []domain.Event
	_ = o.store.do(ctx, func(st *state) error {
		out = st.outbox
		st.outbox = nil
		return nil
	})
	return out
}
