package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SourceSystem identifies which upstream system reported a trade.
// Exactly two systems feed the reconciliation: A and B.
type SourceSystem string

const (
	SourceSystemA SourceSystem = "A"
	SourceSystemB SourceSystem = "B"
)

// ParseSourceSystem returns the SourceSystem for s, or an error for anything
// other than "A" or "B".
func ParseSourceSystem(s string) (SourceSystem, error) {
	switch SourceSystem(s) {
	case SourceSystemA:
		return SourceSystemA, nil
	case SourceSystemB:
		return SourceSystemB, nil
	}
	return "", fmt.Errorf("unknown source system %q", s)
}

// Name returns the human-readable system name used in details strings
// ("System A" / "System B").
func (s SourceSystem) Name() string {
	return "System " + string(s)
}

// Other returns the opposite side.
func (s SourceSystem) Other() SourceSystem {
	if s == SourceSystemA {
		return SourceSystemB
	}
	return SourceSystemA
}

// TradeRecord is one trade report as received from a source system.
// At most one record exists per (TradeID, SourceSystem); re-submission
// overwrites the previous fields.
type TradeRecord struct {
	ID           int64           `json:"id"`
	TradeID      string          `json:"tradeId"`
	SourceSystem SourceSystem    `json:"sourceSystem"`
	Instrument   string          `json:"instrument"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	TradeDate    time.Time       `json:"tradeDate"`
	Counterparty string          `json:"counterparty"`
	ReceivedAt   time.Time       `json:"receivedAt"`
	RawPayload   []byte          `json:"-"` // original submission, audit only
}
