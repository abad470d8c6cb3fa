package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverSlotCache serves from the primary cache (redis) and falls back to
// the in-memory cache when the primary errors. The primary is retried after
// a cool-down.
type FailoverSlotCache struct {
	primary   SlotCache
	fallback  SlotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos of last failed primary attempt
}

const primaryRetryInterval = time.Minute

func NewFailoverSlotCache(primary, fallback SlotCache, logger *zerolog.Logger) *FailoverSlotCache {
	return &FailoverSlotCache{primary: primary, fallback: fallback, logger: logger}
}

func (f *FailoverSlotCache) primaryUsable() bool {
	if !f.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, f.lastCheck.Load())) > primaryRetryInterval
}

func (f *FailoverSlotCache) markDown(err error) {
	f.logger.Error().Err(err).Msg("primary slot cache failed, falling back to memory")
	f.isDown.Store(true)
	f.lastCheck.Store(time.Now().UnixNano())
}

func (f *FailoverSlotCache) GetSlots(ctx context.Context, date string) ([]string, bool, error) {
	if f.primaryUsable() {
		slots, ok, err := f.primary.GetSlots(ctx, date)
		if err == nil {
			f.isDown.Store(false)
			return slots, ok, nil
		}
		f.markDown(err)
	}
	return f.fallback.GetSlots(ctx, date)
}

func (f *FailoverSlotCache) SetSlots(ctx context.Context, date string, slots []string) error {
	if f.primaryUsable() {
		err := f.primary.SetSlots(ctx, date, slots)
		if err == nil {
			f.isDown.Store(false)
			return nil
		}
		f.markDown(err)
	}
	return f.fallback.SetSlots(ctx, date, slots)
}

func (f *FailoverSlotCache) Invalidate(ctx context.Context, date string) error {
	// Invalidate both: a booking mutation must not leave stale data in
	// whichever cache answers next.
	var primaryErr error
	if f.primaryUsable() {
		if primaryErr = f.primary.Invalidate(ctx, date); primaryErr != nil {
			f.markDown(primaryErr)
		}
	}
	return f.fallback.Invalidate(ctx, date)
}
