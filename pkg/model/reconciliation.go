package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the reconciliation outcome for a trade identifier. The string
// values are persisted and serialized as-is; they are a compatibility surface
// and must not change.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusMatched    Status = "MATCHED"
	StatusMismatched Status = "MISMATCHED"
	StatusTimeout    Status = "RECONCILIATION_TIMEOUT"
	StatusError      Status = "ERROR"
)

var statusDescriptions = map[Status]string{
	StatusPending:    "Pending Reconciliation",
	StatusMatched:    "Matched",
	StatusMismatched: "Mismatched",
	StatusTimeout:    "Reconciliation Timeout",
	StatusError:      "Error",
}

// ParseStatus returns the Status matching s (case-insensitive).
// Unknown values are reported as an error, never a panic.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := statusDescriptions[st]; !ok {
		return "", fmt.Errorf("unknown reconciliation status %q", s)
	}
	return st, nil
}

// Description returns the human-readable form of the status.
func (s Status) Description() string {
	return statusDescriptions[s]
}

// ReconciliationRecord is the single durable outcome per trade identifier.
// It is created lazily on first evaluation and mutated only by the
// reconciliation engine and the timeout sweeper.
type ReconciliationRecord struct {
	ID           int64     `json:"id"`
	TradeID      string    `json:"tradeId"`
	Status       Status    `json:"status"`
	Details      string    `json:"details"`
	SideATradeID *int64    `json:"sideATradeId,omitempty"`
	SideBTradeID *int64    `json:"sideBTradeId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"` // set once on first persistence
	UpdatedAt    time.Time `json:"updatedAt"`
	LastAttempt  time.Time `json:"lastReconciliationAttempt"`
}
