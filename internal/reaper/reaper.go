// Package reaper physically removes journal rows that sit at or below their
// entity's delete marker. Cleanup is best-effort: a failed sweep changes
// nothing about logical visibility and is simply retried on the next tick.
package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rowlog/rowlog/internal/journal"
)

// Config configures the reaper loop.
type Config struct {
	Interval time.Duration
}

// Reaper periodically sweeps delete markers and purges rows beneath them.
type Reaper struct {
	purger journal.Purger
	config Config
	log    *zap.Logger
}

// NewReaper creates a new reaper
func NewReaper(purger journal.Purger, config Config, log *zap.Logger) *Reaper {
	return &Reaper{
		purger: purger,
		config: config,
		log:    log,
	}
}

// Start runs sweeps on the configured interval until the context is
// cancelled. The first sweep runs immediately.
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Reaper shutting down")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep purges rows behind every delete marker once. Failures are logged and
// skipped; the marker stays in place so the next sweep retries.
func (r *Reaper) Sweep(ctx context.Context) {
	markers, err := r.purger.DeleteMarkers(ctx)
	if err != nil {
		r.log.Error("Failed to list delete markers", zap.Error(err))
		return
	}

	purged := 0
	for _, m := range markers {
		if m.DeletedTo < 1 {
			continue
		}
		if err := r.purger.PurgeTo(ctx, m.PersistenceID, m.DeletedTo); err != nil {
			r.log.Error("Failed to purge rows",
				zap.String("persistence_id", m.PersistenceID),
				zap.Int64("deleted_to", m.DeletedTo),
				zap.Error(err))
			continue
		}
		purged++
	}

	if len(markers) > 0 {
		r.log.Info("Sweep finished",
			zap.Int("markers", len(markers)),
			zap.Int("purged", purged))
	}
}
