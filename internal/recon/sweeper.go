package recon

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/internal/metrics"
	"github.com/Checker-Finance/trade-recon/pkg/model"
)

// SweepStore is the storage surface the timeout sweeper needs: listing stale
// pending cases and writing them back.
type SweepStore interface {
	ListTimedOutPending(ctx context.Context, threshold time.Time) ([]model.ReconciliationRecord, error)
	UpsertReconciliation(ctx context.Context, rec *model.ReconciliationRecord) error
}

// TimeoutSweeper periodically promotes PENDING reconciliations older than the
// configured timeout to RECONCILIATION_TIMEOUT. It runs independently of the
// task consumers; racing an in-flight evaluation is fine because both sides
// write full records and last writer wins.
type TimeoutSweeper struct {
	store    SweepStore
	notifier OutcomeNotifier
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewTimeoutSweeper creates the background sweep job.
func NewTimeoutSweeper(store SweepStore, notifier OutcomeNotifier, logger *zap.Logger, interval, timeout time.Duration) *TimeoutSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeoutSweeper{
		store:    store,
		notifier: notifier,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Start runs the sweep loop until context cancellation.
func (s *TimeoutSweeper) Start(ctx context.Context) {
	s.logger.Info("recon.sweeper.start",
		zap.Duration("interval", s.interval),
		zap.Duration("timeout", s.timeout),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("recon.sweeper.sweep_failed", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("recon.sweeper.stopped")
			return
		}
	}
}

// Sweep runs a single pass and returns how many records were promoted.
// A failure on one record does not abort the rest of the batch.
func (s *TimeoutSweeper) Sweep(ctx context.Context) (int, error) {
	start := s.now()
	threshold := start.Add(-s.timeout)

	stale, err := s.store.ListTimedOutPending(ctx, threshold)
	if err != nil {
		metrics.IncError("sweeper", "list_failed")
		return 0, fmt.Errorf("list timed-out pending reconciliations: %w", err)
	}

	var promoted int
	for i := range stale {
		rec := stale[i]
		rec.Status = model.StatusTimeout
		rec.Details = fmt.Sprintf(detailsTimedOutText, int(s.timeout.Minutes()))
		rec.LastAttempt = s.now()

		if err := s.store.UpsertReconciliation(ctx, &rec); err != nil {
			s.logger.Warn("recon.sweeper.promote_failed",
				zap.String("trade_id", rec.TradeID),
				zap.Error(err))
			metrics.IncError("sweeper", "promote_failed")
			continue
		}

		promoted++
		metrics.SweepTimeoutsTotal.Inc()
		if s.notifier != nil {
			s.notifier.ReconciliationUpdated(ctx, rec)
		}
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	metrics.SetLastSweep(s.now())

	s.logger.Info("recon.sweeper.sweep_complete",
		zap.Int("stale", len(stale)),
		zap.Int("promoted", promoted),
	)
	return promoted, nil
}
