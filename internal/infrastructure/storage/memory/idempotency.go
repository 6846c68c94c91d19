package memory

import (
	"context"
	"sync"
	"time"

	"flowdesk/internal/core/apperror"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/idempotency"
)

type idempotencyKey struct {
	owner id.ID
	key   string
}

type idempotencyEntry struct {
	operation   string
	requestHash string
	done        bool
	replay      idempotency.Replay
	updatedAt   time.Time
	expiresAt   time.Time
}

// IdempotencyStore keeps idempotency keys in process memory. Keys live
// outside the transactional state so a rolled back request still owns its key.
type IdempotencyStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	keys map[idempotencyKey]*idempotencyEntry
}

// NewIdempotencyStore creates an empty store.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotency.DefaultTTL
	}
	return &IdempotencyStore{
		ttl:  ttl,
		now:  time.Now,
		keys: make(map[idempotencyKey]*idempotencyEntry),
	}
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// Acquire implements idempotency.Store.
func (s *IdempotencyStore) Acquire(_ context.Context, ownerID id.ID, key, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	k := idempotencyKey{owner: ownerID, key: key}
	entry, ok := s.keys[k]
	if !ok || now.After(entry.expiresAt) {
		s.keys[k] = &idempotencyEntry{
			operation:   operation,
			requestHash: requestHash,
			updatedAt:   now,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if entry.operation != operation || entry.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}
	if entry.done {
		replay := entry.replay
		return &replay, nil
	}
	if now.Sub(entry.updatedAt) < idempotency.StaleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	entry.updatedAt = now
	return nil, nil
}

// Complete implements idempotency.Store.
func (s *IdempotencyStore) Complete(_ context.Context, ownerID id.ID, key string, replay idempotency.Replay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.keys[idempotencyKey{owner: ownerID, key: key}]; ok {
		entry.done = true
		entry.replay = replay
		entry.updatedAt = s.now()
	}
	return nil
}

// Release implements idempotency.Store.
func (s *IdempotencyStore) Release(_ context.Context, ownerID id.ID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := idempotencyKey{owner: ownerID, key: key}
	if entry, ok := s.keys[k]; ok && !entry.done {
		delete(s.keys, k)
	}
	return nil
}
