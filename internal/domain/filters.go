package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SymbolFilters are the per-symbol exchange constraints used to quantize
// order prices and quantities. Fetched once per symbol and treated as static
// for the process lifetime.
type SymbolFilters struct {
	MinQty   decimal.Decimal
	StepSize decimal.Decimal
	TickSize decimal.Decimal
	// QtyDecimals and PriceDecimals are derived from StepSize and TickSize.
	QtyDecimals   int32
	PriceDecimals int32
}

// DefaultFilters is the documented fallback used when exchange filters are
// unavailable: conservative enough for the major spot pairs.
func DefaultFilters() SymbolFilters {
	return SymbolFilters{
		MinQty:        decimal.NewFromFloat(0.00001),
		StepSize:      decimal.NewFromFloat(0.00001),
		TickSize:      decimal.NewFromFloat(0.01),
		QtyDecimals:   5,
		PriceDecimals: 2,
	}
}

// DecimalsOf derives the number of decimal places of a step or tick value,
// e.g. 0.001 -> 3, 1 -> 0.
func DecimalsOf(step decimal.Decimal) int32 {
	if step.IsZero() {
		return 0
	}
	// exchange filter strings carry trailing zeros ("0.00100000"), so the
	// exponent alone overstates the precision
	s := strings.TrimRight(step.String(), "0")
	if i := strings.Index(s, "."); i >= 0 {
		return int32(len(s) - i - 1)
	}
	return 0
}
