package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/delivergaz-api/internal/observability"
	"github.com/spec-kit/delivergaz-api/internal/service"
)

// CartReaper periodically removes expired and stale abandoned carts.
type CartReaper struct {
	carts    *service.CartService
	metrics  *observability.Metrics
	logger   *zap.Logger
	interval time.Duration
}

// NewCartReaper constructs the reaper.
func NewCartReaper(carts *service.CartService, metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *CartReaper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CartReaper{carts: carts, metrics: metrics, logger: logger, interval: interval}
}

// Run sweeps on a ticker until the context is cancelled.
func (r *CartReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *CartReaper) sweep(ctx context.Context) {
	removed, err := r.carts.CleanupExpiredCarts(ctx)
	if err != nil {
		r.logger.Error("cart cleanup sweep failed", zap.Error(err))
		return
	}
	r.metrics.RecordCartsReaped(removed)
}
