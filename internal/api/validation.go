package api

import (
	"fmt"
	"strings"
)

func (r TradeSubmitRequest) Validate() error {
	if strings.TrimSpace(r.TradeID) == "" {
		return fmt.Errorf("tradeId is required")
	}
	if strings.TrimSpace(r.Instrument) == "" {
		return fmt.Errorf("instrument is required")
	}
	if strings.TrimSpace(r.Counterparty) == "" {
		return fmt.Errorf("counterparty is required")
	}
	if strings.TrimSpace(r.TradeDate) == "" {
		return fmt.Errorf("tradeDate is required")
	}
	if !r.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be greater than 0")
	}
	if !r.Price.IsPositive() {
		return fmt.Errorf("price must be greater than 0")
	}
	return nil
}
