package repository

import (
	"context"
	"sync"
	"time"

	"frontdesk/internal/models"
)

type memoryEntry struct {
	summary   models.Summary
	expiresAt time.Time
}

// MemorySummaryCache is the in-process fallback used when redis is absent or down.
type MemorySummaryCache struct {
	entries sync.Map
	ttl     time.Duration
	now     func() time.Time
}

func NewMemorySummaryCache(ttl time.Duration) *MemorySummaryCache {
	return &MemorySummaryCache{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemorySummaryCache) Get(_ context.Context, bookingID int64) (*models.Summary, error) {
	val, ok := r.entries.Load(bookingID)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.entries.CompareAndDelete(bookingID, val)
		return nil, nil
	}
	sum := entry.summary
	return &sum, nil
}

func (r *MemorySummaryCache) Set(_ context.Context, sum *models.Summary) error {
	r.entries.Store(sum.BookingID, &memoryEntry{summary: *sum, expiresAt: r.now().Add(r.ttl)})
	return nil
}

func (r *MemorySummaryCache) Invalidate(_ context.Context, bookingID int64) error {
	r.entries.Delete(bookingID)
	return nil
}
