package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/internal/metrics"
	"github.com/Checker-Finance/trade-recon/pkg/model"
)

// TradeSubmitter accepts trade reports and reconciliation triggers.
type TradeSubmitter interface {
	Submit(ctx context.Context, tr model.TradeRecord) (*model.TradeRecord, error)
	Trigger(ctx context.Context, tradeID string) error
}

// ReconQuery reads reconciliation outcomes.
type ReconQuery interface {
	GetReconciliation(ctx context.Context, tradeID string) (*model.ReconciliationRecord, error)
	ListReconciliations(ctx context.Context, status *model.Status, page, size int) ([]model.ReconciliationRecord, int64, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// Handler serves the trade submission and reconciliation query endpoints.
type Handler struct {
	trades TradeSubmitter
	recons ReconQuery
	logger *zap.Logger
}

func NewHandler(trades TradeSubmitter, recons ReconQuery, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{trades: trades, recons: recons, logger: logger}
}

// SubmitSystemATrade handles POST /trades/systemA.
func (h *Handler) SubmitSystemATrade(c *fiber.Ctx) error {
	return h.submitTrade(c, model.SourceSystemA)
}

// SubmitSystemBTrade handles POST /trades/systemB.
func (h *Handler) SubmitSystemBTrade(c *fiber.Ctx) error {
	return h.submitTrade(c, model.SourceSystemB)
}

func (h *Handler) submitTrade(c *fiber.Ctx, source model.SourceSystem) error {
	var req TradeSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warn("api.submit.bad_body",
			zap.String("source_system", source.Name()),
			zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body: " + err.Error(),
		})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	tr, err := toTradeRecord(req, source, c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	stored, err := h.trades.Submit(c.UserContext(), tr)
	if err != nil {
		if stored == nil {
			metrics.IncError("api", "submit_store")
			h.logger.Error("api.submit.store_failed",
				zap.String("trade_id", req.TradeID),
				zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to store trade",
			})
		}
		// Stored but not enqueued. The record is durable and reconciliation
		// can be re-triggered, so still acknowledge the submission.
		metrics.IncError("api", "submit_enqueue")
		h.logger.Error("api.submit.enqueue_failed",
			zap.String("trade_id", req.TradeID),
			zap.Error(err))
	}

	return c.Status(fiber.StatusAccepted).JSON(SubmitResponse{
		TradeID: req.TradeID,
		Message: "Trade received from " + source.Name(),
	})
}

// GetReconciliationStatus handles GET /reconciliations/:tradeId.
func (h *Handler) GetReconciliationStatus(c *fiber.Ctx) error {
	tradeID := c.Params("tradeId")

	rec, err := h.recons.GetReconciliation(c.UserContext(), tradeID)
	if err != nil {
		metrics.IncError("api", "recon_lookup")
		h.logger.Error("api.recon.lookup_failed",
			zap.String("trade_id", tradeID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load reconciliation",
		})
	}
	if rec == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no reconciliation found for trade " + tradeID,
		})
	}

	return c.JSON(toReconciliationResponse(*rec))
}

// ListReconciliations handles GET /reconciliations?status=&page=&size=.
// An unknown status value is logged and ignored rather than rejected, so the
// listing degrades to unfiltered.
func (h *Handler) ListReconciliations(c *fiber.Ctx) error {
	var statusFilter *model.Status
	if raw := c.Query("status"); raw != "" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			h.logger.Warn("api.recon.list.invalid_status_filter",
				zap.String("status", raw))
		} else {
			statusFilter = &st
		}
	}

	page := c.QueryInt("page", 0)
	if page < 0 {
		page = 0
	}
	size := c.QueryInt("size", defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	recs, total, err := h.recons.ListReconciliations(c.UserContext(), statusFilter, page, size)
	if err != nil {
		metrics.IncError("api", "recon_list")
		h.logger.Error("api.recon.list_failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list reconciliations",
		})
	}

	items := make([]ReconciliationResponse, 0, len(recs))
	for _, rec := range recs {
		items = append(items, toReconciliationResponse(rec))
	}

	return c.JSON(PageResponse{Items: items, Page: page, Size: size, Total: total})
}

// TriggerReconciliation handles POST /reconciliations/:tradeId/trigger.
func (h *Handler) TriggerReconciliation(c *fiber.Ctx) error {
	tradeID := c.Params("tradeId")

	if err := h.trades.Trigger(c.UserContext(), tradeID); err != nil {
		metrics.IncError("api", "trigger")
		h.logger.Error("api.recon.trigger_failed",
			zap.String("trade_id", tradeID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to trigger reconciliation",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"tradeId": tradeID,
		"message": "Reconciliation triggered",
	})
}
