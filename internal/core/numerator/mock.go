package numerator

import (
	"context"
	"sync"
	"time"

	"flowdesk/internal/core/id"
)

// MockGenerator is a Generator for tests. Without overrides it counts per
// key in memory, so consecutive documents get consecutive numbers.
type MockGenerator struct {
	GetNextNumberFunc func(ctx context.Context, cfg Config, ownerID id.ID, period time.Time) (string, error)
	SetNextNumberFunc func(ctx context.Context, cfg Config, ownerID id.ID, period time.Time, value int64) error

	mu       sync.Mutex
	counters map[string]int64
}

// GetNextNumber implements Generator.
func (m *MockGenerator) GetNextNumber(ctx context.Context, cfg Config, ownerID id.ID, period time.Time) (string, error) {
	if m.GetNextNumberFunc != nil {
		return m.GetNextNumberFunc(ctx, cfg, ownerID, period)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	key := cfg.Key(ownerID, period)
	m.counters[key]++
	return cfg.Format(period, m.counters[key]), nil
}

// SetNextNumber implements Generator.
func (m *MockGenerator) SetNextNumber(ctx context.Context, cfg Config, ownerID id.ID, period time.Time, value int64) error {
	if m.SetNextNumberFunc != nil {
		return m.SetNextNumberFunc(ctx, cfg, ownerID, period, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[cfg.Key(ownerID, period)] = value
	return nil
}

var _ Generator = (*MockGenerator)(nil)
