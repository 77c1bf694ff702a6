package api

import (
	"time"

	"github.com/Checker-Finance/trade-recon/pkg/model"
)

// SubmitResponse acknowledges an accepted trade submission.
type SubmitResponse struct {
	TradeID string `json:"tradeId"`
	Message string `json:"message"`
}

// ReconciliationResponse is the query-surface view of a reconciliation record.
type ReconciliationResponse struct {
	TradeID           string    `json:"tradeId"`
	Status            string    `json:"status"`
	StatusDescription string    `json:"statusDescription"`
	Details           string    `json:"details"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	LastAttemptAt     time.Time `json:"lastReconciliationAttempt"`
}

// PageResponse is one page of reconciliation outcomes, sorted by updatedAt
// descending.
type PageResponse struct {
	Items []ReconciliationResponse `json:"items"`
	Page  int                      `json:"page"`
	Size  int                      `json:"size"`
	Total int64                    `json:"total"`
}

func toReconciliationResponse(rec model.ReconciliationRecord) ReconciliationResponse {
	return ReconciliationResponse{
		TradeID:           rec.TradeID,
		Status:            string(rec.Status),
		StatusDescription: rec.Status.Description(),
		Details:           rec.Details,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
		LastAttemptAt:     rec.LastAttempt,
	}
}
