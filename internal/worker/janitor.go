package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkuzmin/lavka/internal/cache"
	"github.com/mkuzmin/lavka/internal/telemetry"
)

// sweepPageSize bounds how many keys one List call pulls in.
const sweepPageSize = 500

// Janitor periodically sweeps cache namespaces and drops entries whose
// logical expiry has passed but whose backend TTL has not fired yet. The
// cache stays correct without it (reads check expiry themselves); the
// janitor just reclaims space earlier.
type Janitor struct {
	store    *cache.Store
	metrics  *telemetry.Metrics
	interval time.Duration
}

// NewJanitor creates a Janitor sweeping at the given interval.
func NewJanitor(store *cache.Store, metrics *telemetry.Metrics, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{store: store, metrics: metrics, interval: interval}
}

// Run sweeps on a ticker until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

var sweepPrefixes = []string{
	cache.NSCategory + ":",
	cache.SearchPrefix,
	cache.NSCategories + ":",
	cache.NSUser + ":",
}

func (j *Janitor) sweep(ctx context.Context) {
	start := time.Now()
	var removed int

	backend := j.store.Backend()
	for _, prefix := range sweepPrefixes {
		cursor := ""
		for {
			page, err := backend.List(ctx, prefix, cursor, sweepPageSize)
			if err != nil {
				slog.LogAttrs(ctx, slog.LevelWarn, "janitor list failed",
					slog.String("prefix", prefix),
					slog.String("error", err.Error()),
				)
				break
			}
			for _, key := range page.Keys {
				if j.store.DropExpired(ctx, key) {
					removed++
				}
			}
			if page.Complete {
				break
			}
			cursor = page.Cursor
		}
		if ctx.Err() != nil {
			return
		}
	}

	if j.metrics != nil {
		j.metrics.JanitorRemoved.Add(float64(removed))
	}
	slog.LogAttrs(ctx, slog.LevelDebug, "janitor sweep",
		slog.Int("removed", removed),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
}
