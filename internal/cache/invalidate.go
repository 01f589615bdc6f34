package cache

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mkuzmin/lavka/internal/kv"
	"github.com/mkuzmin/lavka/internal/telemetry"
)

// defaultPageSize bounds both the listing page and the number of in-flight
// deletes per page.
const defaultPageSize = 1000

// Invalidator deletes every key under a prefix, one bounded page at a time.
// Memory use is constant in the size of the key set.
type Invalidator struct {
	backend  kv.Backend
	metrics  *telemetry.Metrics // nil disables counters
	pageSize int
}

// NewInvalidator creates an Invalidator with the default page size.
// metrics may be nil.
func NewInvalidator(backend kv.Backend, metrics *telemetry.Metrics) *Invalidator {
	return &Invalidator{backend: backend, metrics: metrics, pageSize: defaultPageSize}
}

// InvalidateByPrefix drops all keys sharing prefix. Individual delete
// failures are counted and skipped: residual entries expire by TTL, so the
// run never fails as a whole. Keys written while the run is in progress may
// or may not be caught; that gap is closed by TTL or the next run.
func (iv *Invalidator) InvalidateByPrefix(ctx context.Context, prefix string) {
	var deleted, failed int64
	cursor := ""

	for {
		page, err := iv.backend.List(ctx, prefix, cursor, iv.pageSize)
		if err != nil {
			slog.LogAttrs(ctx, slog.LevelWarn, "invalidation listing failed",
				slog.String("prefix", prefix),
				slog.String("error", err.Error()),
			)
			iv.finish(ctx, prefix, deleted, failed)
			return
		}

		// Fan out deletes for this page; each worker swallows its own error
		// so one bad key never stops the rest of the page.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(iv.pageSize)
		var pageDeleted, pageFailed atomic.Int64
		for _, key := range page.Keys {
			g.Go(func() error {
				if err := iv.backend.Delete(gctx, key); err != nil {
					pageFailed.Add(1)
				} else {
					pageDeleted.Add(1)
				}
				return nil
			})
		}
		g.Wait()
		deleted += pageDeleted.Load()
		failed += pageFailed.Load()

		if page.Complete {
			break
		}
		cursor = page.Cursor
	}

	iv.finish(ctx, prefix, deleted, failed)
}

func (iv *Invalidator) finish(ctx context.Context, prefix string, deleted, failed int64) {
	if iv.metrics != nil {
		iv.metrics.InvalidationRuns.Inc()
		iv.metrics.InvalidatedKeys.Add(float64(deleted))
		iv.metrics.InvalidationFailures.Add(float64(failed))
	}
	if failed > 0 {
		slog.LogAttrs(ctx, slog.LevelWarn, "invalidation completed with failures",
			slog.String("prefix", prefix),
			slog.Int64("deleted", deleted),
			slog.Int64("failed", failed),
		)
		return
	}
	slog.LogAttrs(ctx, slog.LevelDebug, "invalidation completed",
		slog.String("prefix", prefix),
		slog.Int64("deleted", deleted),
	)
}
