package repository

import (
	"context"
	"sync"
	"time"
)

type memorySlotEntry struct {
	slots     []string
	expiresAt time.Time
}

// MemorySlotCache is the in-process fallback used when redis is absent or
// unreachable.
type MemorySlotCache struct {
	entries sync.Map
	ttl     time.Duration
}

func NewMemorySlotCache(ttl time.Duration) *MemorySlotCache {
	return &MemorySlotCache{ttl: ttl}
}

func (m *MemorySlotCache) GetSlots(ctx context.Context, date string) ([]string, bool, error) {
	val, ok := m.entries.Load(date)
	if !ok {
		return nil, false, nil
	}
	entry := val.(memorySlotEntry)
	if time.Now().After(entry.expiresAt) {
		m.entries.Delete(date)
		return nil, false, nil
	}
	return entry.slots, true, nil
}

func (m *MemorySlotCache) SetSlots(ctx context.Context, date string, slots []string) error {
	m.entries.Store(date, memorySlotEntry{slots: slots, expiresAt: time.Now().Add(m.ttl)})
	return nil
}

func (m *MemorySlotCache) Invalidate(ctx context.Context, date string) error {
	m.entries.Delete(date)
	return nil
}
