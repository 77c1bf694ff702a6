package recon

import (
	"fmt"
	"time"

	"github.com/Checker-Finance/trade-recon/pkg/model"
)

// Discrepancy describes one field on which the two sides disagree.
type Discrepancy struct {
	Field string
	SideA string
	SideB string
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s mismatch: %s vs %s", d.Field, d.SideA, d.SideB)
}

// Compare returns the discrepancies between two trade records believed to
// share a trade identifier. The comparison order is fixed (instrument,
// quantity, price, trade date, counterparty) so details strings are
// reproducible across runs. Quantity and price compare numerically (100 and
// 100.00 are equal); trade dates compare by instant; everything else by exact
// string equality. An empty result means the trades fully match.
func Compare(a, b model.TradeRecord) []Discrepancy {
	var discrepancies []Discrepancy

	if a.Instrument != b.Instrument {
		discrepancies = append(discrepancies, Discrepancy{
			Field: "Instrument", SideA: a.Instrument, SideB: b.Instrument,
		})
	}

	if !a.Quantity.Equal(b.Quantity) {
		discrepancies = append(discrepancies, Discrepancy{
			Field: "Quantity", SideA: a.Quantity.String(), SideB: b.Quantity.String(),
		})
	}

	if !a.Price.Equal(b.Price) {
		discrepancies = append(discrepancies, Discrepancy{
			Field: "Price", SideA: a.Price.String(), SideB: b.Price.String(),
		})
	}

	if !a.TradeDate.Equal(b.TradeDate) {
		discrepancies = append(discrepancies, Discrepancy{
			Field: "Trade date",
			SideA: a.TradeDate.Format(time.RFC3339),
			SideB: b.TradeDate.Format(time.RFC3339),
		})
	}

	if a.Counterparty != b.Counterparty {
		discrepancies = append(discrepancies, Discrepancy{
			Field: "Counterparty", SideA: a.Counterparty, SideB: b.Counterparty,
		})
	}

	return discrepancies
}
