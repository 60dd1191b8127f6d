// Package poll keeps a cached projection snapshot fresh on a fixed cadence
// so observers can re-fetch cheaply without touching the ledger.
package poll

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jensholdgaard/auctionboard/internal/projection"
)

// Refresher periodically recomputes an observer snapshot. It holds no locks
// across its sleep interval; the latest snapshot is published through an
// atomic pointer and reads never block the writer.
type Refresher struct {
	projector   *projection.Projector
	interval    time.Duration
	recentSales int
	logger      *slog.Logger

	latest atomic.Pointer[projection.Snapshot]
}

// NewRefresher returns a Refresher with the given cadence.
func NewRefresher(p *projection.Projector, interval time.Duration, recentSales int, logger *slog.Logger) *Refresher {
	return &Refresher{
		projector:   p,
		interval:    interval,
		recentSales: recentSales,
		logger:      logger,
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
// Each client session runs its own Refresher context, so cancelling one
// observer never stops another.
func (r *Refresher) Run(ctx context.Context) {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// Latest returns the most recent snapshot, or nil before the first refresh
// completes.
func (r *Refresher) Latest() *projection.Snapshot {
	return r.latest.Load()
}

func (r *Refresher) refresh(ctx context.Context) {
	snap, err := r.projector.SnapshotAll(ctx, r.recentSales)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.ErrorContext(ctx, "snapshot refresh failed", slog.Any("error", err))
		return
	}
	r.latest.Store(snap)
}
