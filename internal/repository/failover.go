package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"frontdesk/internal/domain"
	"frontdesk/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSummaryCache serves from primary and switches to fallback after the
// first primary error, retrying primary once a minute.
type FailoverSummaryCache struct {
	primary  domain.SummaryCache
	fallback domain.SummaryCache
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverSummaryCache(primary, fallback domain.SummaryCache, logger *zerolog.Logger) *FailoverSummaryCache {
	return &FailoverSummaryCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSummaryCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary summary cache failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether the call should go to primary: it is healthy, or
// the recovery interval has passed since it failed.
func (r *FailoverSummaryCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverSummaryCache) Get(ctx context.Context, bookingID int64) (*models.Summary, error) {
	if r.usePrimary() {
		sum, err := r.primary.Get(ctx, bookingID)
		if err == nil {
			r.isDown.Store(false)
			return sum, nil
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, bookingID)
}

func (r *FailoverSummaryCache) Set(ctx context.Context, sum *models.Summary) error {
	if r.usePrimary() {
		err := r.primary.Set(ctx, sum)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Set(ctx, sum)
}

// Invalidate clears both stores. A primary error is logged, not returned: the
// entry still expires by TTL.
func (r *FailoverSummaryCache) Invalidate(ctx context.Context, bookingID int64) error {
	fallbackErr := r.fallback.Invalidate(ctx, bookingID)
	if err := r.primary.Invalidate(ctx, bookingID); err != nil {
		if !r.isDown.Load() {
			r.markDown(err)
		}
	}
	return fallbackErr
}
