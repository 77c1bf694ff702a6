package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/trade-recon/pkg/model"
)

// TradeSubmitRequest is the payload both source systems POST to report a trade.
type TradeSubmitRequest struct {
	TradeID      string          `json:"tradeId" example:"T123456"`
	Instrument   string          `json:"instrument" example:"AAPL"`
	Quantity     decimal.Decimal `json:"quantity" example:"100"`
	Price        decimal.Decimal `json:"price" example:"150.75"`
	TradeDate    string          `json:"tradeDate" example:"2025-06-15T10:30:00Z"`
	Counterparty string          `json:"counterparty" example:"BROKER_A"`
}

// tradeDateLayouts lists the accepted tradeDate formats. The zone-less form
// is what the upstream systems historically send; it is interpreted as UTC.
var tradeDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseTradeDate(s string) (time.Time, error) {
	for _, layout := range tradeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("tradeDate %q is not a valid timestamp", s)
}

// toTradeRecord converts a validated request into the canonical record.
// rawBody is the submitted payload verbatim, retained for audit.
func toTradeRecord(req TradeSubmitRequest, source model.SourceSystem, rawBody []byte) (model.TradeRecord, error) {
	tradeDate, err := parseTradeDate(req.TradeDate)
	if err != nil {
		return model.TradeRecord{}, err
	}

	raw := make([]byte, len(rawBody))
	copy(raw, rawBody)

	return model.TradeRecord{
		TradeID:      req.TradeID,
		SourceSystem: source,
		Instrument:   req.Instrument,
		Quantity:     req.Quantity,
		Price:        req.Price,
		TradeDate:    tradeDate,
		Counterparty: req.Counterparty,
		RawPayload:   raw,
	}, nil
}
