package recon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/trade-recon/pkg/model"
)

func baseTrade(source model.SourceSystem) model.TradeRecord {
	return model.TradeRecord{
		TradeID:      "T1",
		SourceSystem: source,
		Instrument:   "AAPL",
		Quantity:     decimal.NewFromInt(100),
		Price:        decimal.RequireFromString("150.75"),
		TradeDate:    time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC),
		Counterparty: "BROKER_A",
	}
}

func TestCompare_IdenticalTrades(t *testing.T) {
	a := baseTrade(model.SourceSystemA)
	b := baseTrade(model.SourceSystemB)

	assert.Empty(t, Compare(a, b))
}

func TestCompare_NumericEquivalence(t *testing.T) {
	a := baseTrade(model.SourceSystemA)
	b := baseTrade(model.SourceSystemB)
	b.Quantity = decimal.RequireFromString("100.00")
	b.Price = decimal.RequireFromString("150.7500")

	// Trailing zeros are not a discrepancy.
	assert.Empty(t, Compare(a, b))
}

func TestCompare_SingleQuantityMismatch(t *testing.T) {
	a := baseTrade(model.SourceSystemA)
	b := baseTrade(model.SourceSystemB)
	b.Quantity = decimal.NewFromInt(200)

	discrepancies := Compare(a, b)
	require.Len(t, discrepancies, 1)
	assert.Equal(t, "Quantity mismatch: 100 vs 200", discrepancies[0].String())
}

func TestCompare_FixedFieldOrder(t *testing.T) {
	a := baseTrade(model.SourceSystemA)
	b := baseTrade(model.SourceSystemB)
	b.Instrument = "MSFT"
	b.Quantity = decimal.NewFromInt(50)
	b.Price = decimal.RequireFromString("151.00")
	b.TradeDate = a.TradeDate.Add(time.Hour)
	b.Counterparty = "BROKER_B"

	discrepancies := Compare(a, b)
	require.Len(t, discrepancies, 5)

	fields := make([]string, len(discrepancies))
	for i, d := range discrepancies {
		fields[i] = d.Field
	}
	assert.Equal(t, []string{"Instrument", "Quantity", "Price", "Trade date", "Counterparty"}, fields)
}

func TestCompare_DiscrepancyCompleteness(t *testing.T) {
	a := baseTrade(model.SourceSystemA)
	b := baseTrade(model.SourceSystemB)
	b.Price = decimal.RequireFromString("151.25")
	b.Counterparty = "BROKER_B"

	discrepancies := Compare(a, b)
	require.Len(t, discrepancies, 2)
	assert.Equal(t, "Price mismatch: 150.75 vs 151.25", discrepancies[0].String())
	assert.Equal(t, "Counterparty mismatch: BROKER_A vs BROKER_B", discrepancies[1].String())
}

func TestCompare_TradeDateInstantEquality(t *testing.T) {
	a := baseTrade(model.SourceSystemA)
	b := baseTrade(model.SourceSystemB)
	// Same instant, different zone representation.
	b.TradeDate = a.TradeDate.In(time.FixedZone("UTC+2", 2*60*60))

	assert.Empty(t, Compare(a, b))
}

func TestCompare_IsDeterministic(t *testing.T) {
	a := baseTrade(model.SourceSystemA)
	b := baseTrade(model.SourceSystemB)
	b.Quantity = decimal.NewFromInt(200)
	b.Instrument = "MSFT"

	first := Compare(a, b)
	second := Compare(a, b)
	assert.Equal(t, first, second)
}
