// Package normalizer converts raw computed quantities and prices into
// exchange-legal values under per-symbol step/tick constraints.
package normalizer

import (
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martingale/internal/domain"
)

// AdjustQuantity floors raw to the nearest stepSize multiple below it, clamps
// the result up to minQty if it came out smaller, then rounds to the symbol's
// quantity precision. Idempotent: AdjustQuantity(AdjustQuantity(x)) == AdjustQuantity(x).
func AdjustQuantity(raw decimal.Decimal, filters domain.SymbolFilters) decimal.Decimal {
	qty := raw
	if filters.StepSize.GreaterThan(decimal.Zero) {
		steps := raw.Div(filters.StepSize).Floor()
		qty = steps.Mul(filters.StepSize)
	}

	if qty.LessThan(filters.MinQty) {
		qty = filters.MinQty
	}

	if filters.QtyDecimals == 0 {
		// integer-only symbols truncate, never round up
		return qty.Truncate(0)
	}
	return qty.Round(filters.QtyDecimals)
}

// AdjustPrice rounds raw to the nearest tickSize multiple, then rounds to the
// symbol's price precision. Idempotent.
func AdjustPrice(raw decimal.Decimal, filters domain.SymbolFilters) decimal.Decimal {
	price := raw
	if filters.TickSize.GreaterThan(decimal.Zero) {
		ticks := raw.Div(filters.TickSize).Round(0)
		price = ticks.Mul(filters.TickSize)
	}
	return price.Round(filters.PriceDecimals)
}
