package recon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/internal/metrics"
	"github.com/Checker-Finance/trade-recon/pkg/model"
)

const (
	detailsMatched      = "Trades matched successfully"
	detailsMismatched   = "Discrepancies found: "
	detailsWaitingFor   = "Waiting for data from %s"
	detailsErrorPrefix  = "Error executing reconciliation: "
	detailsTimedOutText = "Reconciliation timed out after %d minutes"
)

// TradeStore loads trade records by natural key. Absence is (nil, nil),
// never an error.
type TradeStore interface {
	GetTrade(ctx context.Context, tradeID string, source model.SourceSystem) (*model.TradeRecord, error)
}

// ReconStore persists reconciliation outcomes. UpsertReconciliation must be
// an atomic create-or-update keyed by trade identifier; created_at is written
// only on first insert.
type ReconStore interface {
	UpsertReconciliation(ctx context.Context, rec *model.ReconciliationRecord) error
}

// OutcomeNotifier receives every persisted reconciliation outcome.
// Implementations must not block the engine; publish failures are theirs to
// log and absorb.
type OutcomeNotifier interface {
	ReconciliationUpdated(ctx context.Context, rec model.ReconciliationRecord)
}

// Engine is the reconciliation state machine. It holds no mutable state of
// its own; every Evaluate call reads fresh from storage, so concurrent
// evaluations for the same trade identifier degrade to last-writer-wins.
type Engine struct {
	trades   TradeStore
	recons   ReconStore
	notifier OutcomeNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates the engine with explicit handles to its collaborators.
// notifier may be nil to disable outcome events.
func NewEngine(trades TradeStore, recons ReconStore, notifier OutcomeNotifier, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		trades:   trades,
		recons:   recons,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Evaluate loads both sides for tradeID, runs the matcher and upserts the
// reconciliation record. It is idempotent for unchanged inputs: re-running it
// yields the same status and details, timestamps aside. Business outcomes
// (PENDING, MATCHED, MISMATCHED) return nil; faults return a tagged *Fault
// after a best-effort ERROR status write.
func (e *Engine) Evaluate(ctx context.Context, tradeID string) error {
	start := e.now()

	sideA, err := e.trades.GetTrade(ctx, tradeID, model.SourceSystemA)
	if err != nil {
		return e.persistError(ctx, tradeID, transient("recon.load_side_a", err))
	}
	sideB, err := e.trades.GetTrade(ctx, tradeID, model.SourceSystemB)
	if err != nil {
		return e.persistError(ctx, tradeID, transient("recon.load_side_b", err))
	}

	if sideA == nil && sideB == nil {
		// Evaluation is only triggered after at least one side is stored.
		// Do not create a dangling record for a trade with zero data.
		e.logger.Warn("recon.evaluate.no_data",
			zap.String("trade_id", tradeID))
		metrics.IncEvaluation("skipped")
		return invariant("recon.evaluate", fmt.Errorf("trade %s: %w", tradeID, ErrNoTradeData))
	}

	rec := &model.ReconciliationRecord{
		TradeID:     tradeID,
		LastAttempt: e.now(),
	}

	switch {
	case sideA != nil && sideB != nil:
		rec.SideATradeID = &sideA.ID
		rec.SideBTradeID = &sideB.ID

		discrepancies := Compare(*sideA, *sideB)
		if len(discrepancies) == 0 {
			rec.Status = model.StatusMatched
			rec.Details = detailsMatched
			e.logger.Info("recon.evaluate.matched", zap.String("trade_id", tradeID))
		} else {
			rec.Status = model.StatusMismatched
			rec.Details = detailsMismatched + joinDiscrepancies(discrepancies)
			e.logger.Info("recon.evaluate.mismatched",
				zap.String("trade_id", tradeID),
				zap.Int("discrepancies", len(discrepancies)))
		}

	case sideA != nil:
		rec.Status = model.StatusPending
		rec.Details = fmt.Sprintf(detailsWaitingFor, model.SourceSystemB.Name())
		rec.SideATradeID = &sideA.ID
		e.logger.Info("recon.evaluate.pending",
			zap.String("trade_id", tradeID),
			zap.String("waiting_for", model.SourceSystemB.Name()))

	default:
		rec.Status = model.StatusPending
		rec.Details = fmt.Sprintf(detailsWaitingFor, model.SourceSystemA.Name())
		rec.SideBTradeID = &sideB.ID
		e.logger.Info("recon.evaluate.pending",
			zap.String("trade_id", tradeID),
			zap.String("waiting_for", model.SourceSystemA.Name()))
	}

	if err := e.recons.UpsertReconciliation(ctx, rec); err != nil {
		return e.persistError(ctx, tradeID, transient("recon.upsert", err))
	}

	metrics.IncEvaluation(string(rec.Status))
	metrics.ObserveDuration(metrics.EvaluationDuration, start, string(rec.Status))
	e.notify(ctx, *rec)
	return nil
}

// persistError records an ERROR outcome for tradeID. The write is
// best-effort: if it fails too, the failure is logged and the original fault
// is still returned — an evaluation never panics the caller.
func (e *Engine) persistError(ctx context.Context, tradeID string, fault *Fault) error {
	e.logger.Error("recon.evaluate.failed",
		zap.String("trade_id", tradeID),
		zap.Error(fault))
	metrics.IncError("engine", fault.Op)

	rec := &model.ReconciliationRecord{
		TradeID:     tradeID,
		Status:      model.StatusError,
		Details:     detailsErrorPrefix + fault.Err.Error(),
		LastAttempt: e.now(),
	}
	if err := e.recons.UpsertReconciliation(ctx, rec); err != nil {
		e.logger.Error("recon.evaluate.error_status_persist_failed",
			zap.String("trade_id", tradeID),
			zap.Error(err))
		metrics.IncError("engine", "error_status_persist_failed")
		return fault
	}

	metrics.IncEvaluation(string(model.StatusError))
	e.notify(ctx, *rec)
	return fault
}

func (e *Engine) notify(ctx context.Context, rec model.ReconciliationRecord) {
	if e.notifier != nil {
		e.notifier.ReconciliationUpdated(ctx, rec)
	}
}

func joinDiscrepancies(discrepancies []Discrepancy) string {
	parts := make([]string, len(discrepancies))
	for i, d := range discrepancies {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}
