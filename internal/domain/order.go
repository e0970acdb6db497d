package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side represents an order side.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

// String returns the string representation of the side.
func (s Side) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// Opposite returns the opposite side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType classifies an order within a cycle.
type OrderType string

const (
	OrderTypeBase       OrderType = "base_order"
	OrderTypeSafety     OrderType = "safety_order"
	OrderTypeTakeProfit OrderType = "take_profit"
)

// OrderStatus is the lifecycle state of a cycle order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may move to next.
// Allowed: pending -> placed|failed|cancelled, placed -> filled|failed|cancelled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPlaced || next == OrderStatusFailed || next == OrderStatusCancelled
	case OrderStatusPlaced:
		return next == OrderStatusFilled || next == OrderStatusFailed || next == OrderStatusCancelled
	}
	return false
}

// Order is one order belonging to exactly one cycle.
type Order struct {
	ID              int64
	CycleID         int64
	Type            OrderType
	Side            Side
	Price           decimal.Decimal // zero for market orders
	Quantity        decimal.Decimal
	Status          OrderStatus
	ExchangeOrderID string
	SafetyLevel     int // 0-indexed ladder level, -1 for non-safety orders

	FilledPrice    decimal.Decimal
	FilledQuantity decimal.Decimal
	Fee            decimal.Decimal
	FilledAt       time.Time

	CreatedAt time.Time
}

// NewOrder creates a validated pending order.
func NewOrder(cycleID int64, typ OrderType, side Side, price, quantity decimal.Decimal, safetyLevel int) (*Order, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("order quantity must be positive, got %s", quantity.String())
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("order price must not be negative, got %s", price.String())
	}
	if typ == OrderTypeSafety && safetyLevel < 0 {
		return nil, fmt.Errorf("safety order level must be >= 0, got %d", safetyLevel)
	}
	if typ != OrderTypeSafety {
		safetyLevel = -1
	}

	return &Order{
		CycleID:     cycleID,
		Type:        typ,
		Side:        side,
		Price:       price,
		Quantity:    quantity,
		Status:      OrderStatusPending,
		SafetyLevel: safetyLevel,
		CreatedAt:   time.Now(),
	}, nil
}

// Transition moves the order to next, rejecting lifecycle violations.
func (o *Order) Transition(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("order cannot transition from %s to %s", o.Status, next)
	}
	o.Status = next
	return nil
}

// Fill describes an order execution reported by the exchange.
type Fill struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Fee      decimal.Decimal
	Time     time.Time
}
