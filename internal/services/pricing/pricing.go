// Package pricing computes base, safety and take-profit order prices and
// quantities from bot configuration and position state. Pure functions, no I/O.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martingale/internal/domain"
)

const percentageMultiplier = 100

var hundred = decimal.NewFromInt(percentageMultiplier)

// OrderPlan is a computed price/quantity pair for one order.
type OrderPlan struct {
	Side     domain.Side
	Price    decimal.Decimal // zero for market orders
	Quantity decimal.Decimal
	// Level is the 0-indexed safety ladder level, -1 otherwise.
	Level int
}

// BaseOrder computes the cycle-opening market order: the configured quote
// amount converted to base quantity at the current price.
func BaseOrder(bot *domain.Bot, currentPrice decimal.Decimal) (OrderPlan, error) {
	if currentPrice.LessThanOrEqual(decimal.Zero) {
		return OrderPlan{}, fmt.Errorf("current price must be positive, got %s", currentPrice.String())
	}

	return OrderPlan{
		Side:     bot.Direction.EntrySide(),
		Quantity: bot.BaseOrderAmount.Div(currentPrice),
		Level:    -1,
	}, nil
}

// TakeProfit computes the position-closing limit order. The quantity is
// always the cycle's full accumulated quantity, never a single order's.
func TakeProfit(bot *domain.Bot, avgEntryPrice, totalQuantity decimal.Decimal) (OrderPlan, error) {
	if avgEntryPrice.LessThanOrEqual(decimal.Zero) {
		return OrderPlan{}, fmt.Errorf("average entry price must be positive, got %s", avgEntryPrice.String())
	}
	if totalQuantity.LessThanOrEqual(decimal.Zero) {
		return OrderPlan{}, fmt.Errorf("total quantity must be positive, got %s", totalQuantity.String())
	}

	offset := bot.TakeProfitPct.Div(hundred)
	var price decimal.Decimal
	if bot.Direction == domain.DirectionShort {
		price = avgEntryPrice.Mul(decimal.NewFromInt(1).Sub(offset))
	} else {
		price = avgEntryPrice.Mul(decimal.NewFromInt(1).Add(offset))
	}

	return OrderPlan{
		Side:     bot.Direction.ExitSide(),
		Price:    price,
		Quantity: totalQuantity,
		Level:    -1,
	}, nil
}

// SafetyOrder computes ladder level k (0-indexed) relative to the cycle's
// current average entry price. Deviation and invested amount both grow
// geometrically with k, which is the defining martingale property.
func SafetyOrder(bot *domain.Bot, avgEntryPrice decimal.Decimal, k int) (OrderPlan, error) {
	if avgEntryPrice.LessThanOrEqual(decimal.Zero) {
		return OrderPlan{}, fmt.Errorf("average entry price must be positive, got %s", avgEntryPrice.String())
	}
	if k < 0 {
		return OrderPlan{}, fmt.Errorf("safety order level must be >= 0, got %d", k)
	}

	level := int32(k)
	deviation := bot.PriceDeviationPct.Mul(bot.DeviationMultiplier.Pow(decimal.NewFromInt32(level))).Div(hundred)

	var trigger decimal.Decimal
	if bot.Direction == domain.DirectionShort {
		trigger = avgEntryPrice.Mul(decimal.NewFromInt(1).Add(deviation))
	} else {
		trigger = avgEntryPrice.Mul(decimal.NewFromInt(1).Sub(deviation))
	}
	if trigger.LessThanOrEqual(decimal.Zero) {
		return OrderPlan{}, fmt.Errorf("safety order %d trigger price is not positive: deviation %s exceeds 100%%", k, deviation.String())
	}

	amount := bot.SafetyOrderAmount.Mul(bot.SizeMultiplier.Pow(decimal.NewFromInt32(level)))

	return OrderPlan{
		Side:     bot.Direction.EntrySide(),
		Price:    trigger,
		Quantity: amount.Div(trigger),
		Level:    k,
	}, nil
}

// SafetyLadder computes every safety level 0..MaxSafetyOrders-1 against the
// given average entry price.
func SafetyLadder(bot *domain.Bot, avgEntryPrice decimal.Decimal) ([]OrderPlan, error) {
	plans := make([]OrderPlan, 0, bot.MaxSafetyOrders)
	for k := 0; k < bot.MaxSafetyOrders; k++ {
		plan, err := SafetyOrder(bot, avgEntryPrice, k)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}
