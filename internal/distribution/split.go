package distribution

import (
	"github.com/shopspring/decimal"

	"github.com/llauna/administracionFincas-sub000/internal/properties"
)

var hundred = decimal.NewFromInt(100)

// LineAmount returns round2(total * coefficient / 100), rounding half away from zero.
func LineAmount(total, coefficient decimal.Decimal) decimal.Decimal {
	return total.Mul(coefficient).Div(hundred).Round(2)
}

// Split computes one amount per property in input order. The rounded amounts are not
// reconciled against total; the caller reports the residual.
func Split(total decimal.Decimal, props []properties.Property) ([]decimal.Decimal, decimal.Decimal) {
	amounts := make([]decimal.Decimal, len(props))
	sum := decimal.Zero
	for i, p := range props {
		amounts[i] = LineAmount(total, p.Coefficient)
		sum = sum.Add(amounts[i])
	}
	return amounts, sum
}
