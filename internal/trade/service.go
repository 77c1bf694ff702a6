package trade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/pkg/model"
)

// Store is the trade persistence surface the service needs.
type Store interface {
	UpsertTrade(ctx context.Context, tr *model.TradeRecord) error
}

// TaskQueue enqueues reconciliation work.
type TaskQueue interface {
	EnqueueReconciliation(ctx context.Context, tradeID string) error
}

// Service accepts trade reports from the two source systems: it upserts the
// record by its natural key and enqueues a reconciliation task. Submitting
// the same (tradeId, sourceSystem) twice overwrites the earlier report rather
// than duplicating it.
type Service struct {
	store  Store
	tasks  TaskQueue
	logger *zap.Logger
}

// NewService creates a trade submission service.
func NewService(store Store, tasks TaskQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, tasks: tasks, logger: logger}
}

// Submit stores the trade report and triggers reconciliation for its trade
// identifier. The stored record (with its surrogate id and refreshed
// received_at) is returned.
func (s *Service) Submit(ctx context.Context, tr model.TradeRecord) (*model.TradeRecord, error) {
	s.logger.Info("trade.submit",
		zap.String("trade_id", tr.TradeID),
		zap.String("source_system", tr.SourceSystem.Name()))

	if err := s.store.UpsertTrade(ctx, &tr); err != nil {
		return nil, fmt.Errorf("store trade [%s/%s]: %w", tr.TradeID, tr.SourceSystem, err)
	}

	if err := s.tasks.EnqueueReconciliation(ctx, tr.TradeID); err != nil {
		// The trade is durably stored; a lost trigger is recoverable via the
		// manual trigger endpoint or the next submission.
		return &tr, fmt.Errorf("trigger reconciliation for trade [%s]: %w", tr.TradeID, err)
	}

	return &tr, nil
}

// Trigger enqueues an out-of-band reconciliation run for tradeID.
func (s *Service) Trigger(ctx context.Context, tradeID string) error {
	s.logger.Info("trade.trigger_reconciliation", zap.String("trade_id", tradeID))
	return s.tasks.EnqueueReconciliation(ctx, tradeID)
}
