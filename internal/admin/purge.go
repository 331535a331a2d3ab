// Package admin runs destructive maintenance operations off the request
// path. The one operation today is the full incident purge.
package admin

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/flux"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// Deleter is the slice of the store client the purge worker consumes.
type Deleter interface {
	DeleteMeasurement(ctx context.Context, predicate string) error
}

// PurgeWorker executes incident purges on a background goroutine. Triggering
// is fire-and-forget: the caller gets an immediate acknowledgment and must
// tolerate reads racing against the deletion until it completes. Outcomes
// are logged, never surfaced synchronously.
type PurgeWorker struct {
	deleter Deleter
	logger  *slog.Logger
	metrics *observability.Metrics
	jobs    chan struct{}
}

// NewPurgeWorker creates a worker. Start must be called before Trigger has
// any effect.
func NewPurgeWorker(d Deleter, logger *slog.Logger, metrics *observability.Metrics) *PurgeWorker {
	return &PurgeWorker{
		deleter: d,
		logger:  logger,
		metrics: metrics,
		// Capacity 1: at most one purge queued behind the running one.
		jobs: make(chan struct{}, 1),
	}
}

// Start runs the worker loop until the context is cancelled.
func (w *PurgeWorker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.jobs:
				if ctx.Err() != nil {
					return
				}
				w.runPurge(ctx)
			}
		}
	}()
}

// Trigger enqueues a purge and returns immediately. The false return means a
// purge is already queued; the pending run will cover this request too.
func (w *PurgeWorker) Trigger() bool {
	select {
	case w.jobs <- struct{}{}:
		w.metrics.PurgesTriggered.Inc()
		return true
	default:
		return false
	}
}

func (w *PurgeWorker) runPurge(ctx context.Context) {
	w.logger.Info("purge started", "measurement", flux.MeasurementIncidents)
	start := time.Now()

	if err := w.deleter.DeleteMeasurement(ctx, flux.DeletePredicate()); err != nil {
		w.metrics.PurgeFailures.Inc()
		w.logger.Error("purge failed", "error", err)
		return
	}

	w.metrics.PurgeDuration.Observe(time.Since(start).Seconds())
	w.logger.Info("purge complete", "duration", time.Since(start))
}
