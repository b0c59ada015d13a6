package replay

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

type memoryRecord struct {
	code   string
	userID string
}

// Memory is an in-process Guard. Records are grouped by bucket so that
// pruning is a map delete per stale bucket.
type Memory struct {
	mu      sync.Mutex
	buckets map[uint64]map[memoryRecord]struct{}
	size    *atomic.Int64
}

// NewMemory returns an empty in-memory guard.
func NewMemory() *Memory {
	return &Memory{
		buckets: make(map[uint64]map[memoryRecord]struct{}),
		size:    atomic.NewInt64(0),
	}
}

// IsUsed reports whether the triple is recorded.
func (m *Memory) IsUsed(_ context.Context, bucket uint64, code, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, found := m.buckets[bucket][memoryRecord{code: code, userID: userID}]
	return found, nil
}

// MarkUsed records the triple.
func (m *Memory) MarkUsed(ctx context.Context, bucket uint64, code, userID string) error {
	_, err := m.Use(ctx, bucket, code, userID)
	return err
}

// Use records the triple under a single lock and reports whether it was new.
func (m *Memory) Use(_ context.Context, bucket uint64, code, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := memoryRecord{code: code, userID: userID}
	records, ok := m.buckets[bucket]
	if !ok {
		records = make(map[memoryRecord]struct{})
		m.buckets[bucket] = records
	}
	if _, found := records[rec]; found {
		return false, nil
	}

	records[rec] = struct{}{}
	m.size.Inc()
	return true, nil
}

// Prune drops every bucket lower than before.
func (m *Memory) Prune(_ context.Context, before uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for bucket, records := range m.buckets {
		if bucket >= before {
			continue
		}
		removed += int64(len(records))
		delete(m.buckets, bucket)
	}
	m.size.Sub(removed)

	return removed, nil
}

// Len returns the number of records currently held.
func (m *Memory) Len() int64 {
	return m.size.Load()
}
