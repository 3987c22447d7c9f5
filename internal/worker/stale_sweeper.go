package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	"github.com/spec-kit/triage-service/internal/notify"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/persistence"
	"github.com/spec-kit/triage-service/internal/repository"
)

const sweepLockKey = "triage:sweep:lock"

// StaleSweeper periodically scans for tickets left inactive beyond the
// staleness threshold and raises one ticket_stale notification per episode.
// Refreshing updated_at after notifying is what prevents re-notification on
// the next cycle.
type StaleSweeper struct {
	tickets   repository.TicketRepository
	notifier  notify.Notifier
	redis     *persistence.Redis
	logger    *zap.Logger
	metrics   *observability.Metrics
	interval  time.Duration
	threshold time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewStaleSweeper constructs the worker. redis may be nil; when present it is
// used as a best-effort leader lock so concurrent replicas do not both sweep.
func NewStaleSweeper(tickets repository.TicketRepository, notifier notify.Notifier, redis *persistence.Redis, logger *zap.Logger, metrics *observability.Metrics, cfg config.SweepConfig) *StaleSweeper {
	return &StaleSweeper{
		tickets:   tickets,
		notifier:  notifier,
		redis:     redis,
		logger:    logger,
		metrics:   metrics,
		interval:  cfg.Interval(),
		threshold: cfg.StaleThreshold(),
	}
}

// Start launches the sweep loop for the lifetime of the process.
func (w *StaleSweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Info("stale sweeper started",
			zap.Duration("interval", w.interval),
			zap.Duration("threshold", w.threshold))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runLocked(ctx)
			}
		}
	}()
}

// Stop halts the loop. A cycle already in flight runs to completion.
func (w *StaleSweeper) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.logger.Info("stale sweeper stopped")
}

func (w *StaleSweeper) runLocked(ctx context.Context) {
	if w.redis != nil {
		acquired, err := w.redis.AcquireLock(ctx, sweepLockKey, w.interval/2)
		if err != nil {
			w.logger.Warn("sweep lock unavailable; proceeding unlocked", zap.Error(err))
		} else if !acquired {
			w.logger.Debug("sweep lock held elsewhere; skipping cycle")
			return
		} else {
			defer func() {
				if err := w.redis.ReleaseLock(ctx, sweepLockKey); err != nil {
					w.logger.Warn("failed to release sweep lock", zap.Error(err))
				}
			}()
		}
	}
	w.Sweep(ctx)
}

// Sweep performs one cycle. A selection failure aborts the cycle; a failure
// on one ticket does not stop processing of the rest.
func (w *StaleSweeper) Sweep(ctx context.Context) int {
	now := time.Now()
	cutoff := now.Add(-w.threshold)

	stale, err := w.tickets.ListStale(ctx, cutoff)
	if err != nil {
		w.logger.Error("stale ticket query failed; aborting sweep cycle", zap.Error(err))
		return 0
	}

	notified := 0
	for i := range stale {
		ticket := &stale[i]
		hours := int(now.Sub(ticket.UpdatedAt).Hours())

		w.notifier.Dispatch(ctx, notify.EventTicketStale, map[string]any{
			"ticket_id":          ticket.ID,
			"title":              ticket.Title,
			"status":             ticket.Status,
			"last_updated_at":    ticket.UpdatedAt.UTC().Format(time.RFC3339),
			"hours_since_update": hours,
		})

		flagged := true
		if _, err := w.tickets.Update(ctx, ticket.ID, repository.TicketPatch{StaleNotified: &flagged}); err != nil {
			w.logger.Error("failed to mark ticket stale-notified",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
			continue
		}
		notified++
	}

	if notified > 0 {
		w.logger.Info("sweep cycle complete", zap.Int("notified", notified))
	}
	w.metrics.RecordSweepCycle(notified)
	return notified
}
