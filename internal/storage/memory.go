package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atinyakov/go-qr-expiry/internal/clock"
)

// MemoryStorage keeps records in a map. Contents are lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]Record
	clock   clock.Clock
	newID   IDFunc
}

// CreateMemoryStorage returns an empty store stamping created_at from c.
func CreateMemoryStorage(c clock.Clock, opts ...Option) (*MemoryStorage, error) {
	o := ApplyOptions(opts...)

	return &MemoryStorage{
		records: make(map[string]Record),
		clock:   c,
		newID:   o.NewID,
	}, nil
}

// Create stores a new record under a fresh id.
func (m *MemoryStorage) Create(ctx context.Context, target string, expiresAt time.Time) (Record, error) {
	return CreateWithRetry(ctx, m.newID, func(_ context.Context, id string) (Record, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, exists := m.records[id]; exists {
			return Record{}, ErrConflict
		}

		r := Record{
			ID:        id,
			Target:    target,
			ExpiresAt: expiresAt.In(m.clock.Location()),
			CreatedAt: m.clock.Now(),
		}
		m.records[id] = r
		return r, nil
	})
}

// Get returns the record stored under id.
func (m *MemoryStorage) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

// ListActive returns the records expiring strictly after asOf.
func (m *MemoryStorage) ListActive(ctx context.Context, asOf time.Time) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	active := make([]Record, 0)
	for _, r := range m.records {
		if r.ExpiresAt.After(asOf) {
			active = append(active, r)
		}
	}
	return active, nil
}

// PingContext always succeeds.
func (m *MemoryStorage) PingContext(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (m *MemoryStorage) Close() error {
	return nil
}
