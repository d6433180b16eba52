package measure

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/width"
)

var numberNoise = strings.NewReplacer(
	",", "",
	"，", "",
	" ", "",
	"¥", "",
	"￥", "",
	"元", "",
	"$", "",
)

// ParseNumber parses a number typed by a person or exported by a spreadsheet:
// full-width digits, thousand separators and currency marks are tolerated.
// It returns false when nothing numeric is left.
func ParseNumber(s string) (float64, bool) {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0, false
	}

	return d.InexactFloat64(), true
}

// ParseDecimal is ParseNumber for money values.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	clean := numberNoise.Replace(width.Narrow.String(strings.TrimSpace(s)))
	if clean == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}

	return d, true
}

// Round rounds f half away from zero to the given number of decimal places.
func Round(f float64, places int32) float64 {
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}

// NonNegative clamps negative values to zero.
func NonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}

	return f
}

// NonNegativeMoney clamps negative amounts to zero and rounds to cents.
func NonNegativeMoney(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}

	return d.Round(2)
}

// NonNegativeDecimal clamps negative values to zero without rounding. Unit
// prices keep their full precision so that line amounts are exact.
func NonNegativeDecimal(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}

	return d
}

// LineAmount is quantity × unit price rounded to cents.
func LineAmount(quantity float64, unitPrice decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(unitPrice).Round(2)
}
