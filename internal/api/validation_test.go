package api

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func validRequest(t *testing.T) TradeSubmitRequest {
	t.Helper()
	return TradeSubmitRequest{
		TradeID:      "T123456",
		Instrument:   "AAPL",
		Quantity:     mustDecimal(t, "100"),
		Price:        mustDecimal(t, "150.75"),
		TradeDate:    "2025-06-15T10:30:00",
		Counterparty: "BROKER_A",
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validRequest(t).Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TradeSubmitRequest)
		wantErr string
	}{
		{"missing trade id", func(r *TradeSubmitRequest) { r.TradeID = " " }, "tradeId is required"},
		{"missing instrument", func(r *TradeSubmitRequest) { r.Instrument = "" }, "instrument is required"},
		{"missing counterparty", func(r *TradeSubmitRequest) { r.Counterparty = "" }, "counterparty is required"},
		{"missing trade date", func(r *TradeSubmitRequest) { r.TradeDate = "" }, "tradeDate is required"},
		{"zero quantity", func(r *TradeSubmitRequest) { r.Quantity = decimal.Zero }, "quantity must be greater than 0"},
		{"negative price", func(r *TradeSubmitRequest) { r.Price = mustDecimal(t, "-1") }, "price must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(t)
			tt.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestParseTradeDate(t *testing.T) {
	got, err := parseTradeDate("2025-06-15T10:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC), got)

	got, err = parseTradeDate("2025-06-15T10:30:00-03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 13, 30, 0, 0, time.UTC), got)

	_, err = parseTradeDate("2025/06/15")
	require.Error(t, err)
}
