package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction represents the direction a bot trades in.
type Direction int

const (
	// DirectionLong opens positions with buys and closes them with sells.
	DirectionLong Direction = iota
	// DirectionShort opens positions with sells and closes them with buys.
	DirectionShort
)

const (
	directionStringLong  = "long"
	directionStringShort = "short"
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return directionStringLong
	case DirectionShort:
		return directionStringShort
	default:
		return "unknown"
	}
}

// DirectionFromString parses a direction string.
func DirectionFromString(s string) (Direction, error) {
	switch s {
	case directionStringLong:
		return DirectionLong, nil
	case directionStringShort:
		return DirectionShort, nil
	}
	return DirectionLong, fmt.Errorf("unknown direction %q", s)
}

// EntrySide returns the order side that opens the position.
func (d Direction) EntrySide() Side {
	if d == DirectionShort {
		return SideSell
	}
	return SideBuy
}

// ExitSide returns the order side that closes the position.
func (d Direction) ExitSide() Side {
	if d == DirectionShort {
		return SideBuy
	}
	return SideSell
}

// Bot is the immutable per-cycle configuration of a martingale bot.
// Cycles reference the bot, they never duplicate it.
type Bot struct {
	ID        int64
	Exchange  string
	Pair      Pair
	Direction Direction

	// BaseOrderAmount is the quote amount spent on the cycle-opening order.
	BaseOrderAmount decimal.Decimal
	// SafetyOrderAmount is the quote amount of safety level 0;
	// level k invests SafetyOrderAmount * SizeMultiplier^k.
	SafetyOrderAmount decimal.Decimal
	SizeMultiplier    decimal.Decimal
	MaxSafetyOrders   int

	// PriceDeviationPct is the deviation of safety level 0 from the average
	// entry price, in percent; level k deviates PriceDeviationPct * DeviationMultiplier^k.
	PriceDeviationPct   decimal.Decimal
	DeviationMultiplier decimal.Decimal

	TakeProfitPct decimal.Decimal
	Cooldown      time.Duration
	Active        bool
}

// NewBot creates a validated bot configuration.
func NewBot(id int64, exchange string, pair Pair, direction Direction,
	baseOrderAmount, safetyOrderAmount, sizeMultiplier decimal.Decimal, maxSafetyOrders int,
	priceDeviationPct, deviationMultiplier, takeProfitPct decimal.Decimal, cooldown time.Duration) (*Bot, error) {

	if baseOrderAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("baseOrderAmount must be positive, got %s", baseOrderAmount.String())
	}
	if safetyOrderAmount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("safetyOrderAmount must be positive, got %s", safetyOrderAmount.String())
	}
	if sizeMultiplier.LessThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("sizeMultiplier must be >= 1, got %s", sizeMultiplier.String())
	}
	if maxSafetyOrders < 0 {
		return nil, fmt.Errorf("maxSafetyOrders must be >= 0, got %d", maxSafetyOrders)
	}
	if priceDeviationPct.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("priceDeviationPct must be positive, got %s", priceDeviationPct.String())
	}
	if deviationMultiplier.LessThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("deviationMultiplier must be >= 1, got %s", deviationMultiplier.String())
	}
	if takeProfitPct.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("takeProfitPct must be positive, got %s", takeProfitPct.String())
	}
	if cooldown < 0 {
		return nil, fmt.Errorf("cooldown must be >= 0, got %s", cooldown)
	}

	return &Bot{
		ID:                  id,
		Exchange:            exchange,
		Pair:                pair,
		Direction:           direction,
		BaseOrderAmount:     baseOrderAmount,
		SafetyOrderAmount:   safetyOrderAmount,
		SizeMultiplier:      sizeMultiplier,
		MaxSafetyOrders:     maxSafetyOrders,
		PriceDeviationPct:   priceDeviationPct,
		DeviationMultiplier: deviationMultiplier,
		TakeProfitPct:       takeProfitPct,
		Cooldown:            cooldown,
	}, nil
}
