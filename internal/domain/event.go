package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType classifies notification events emitted by the cycle engine.
type EventType string

const (
	EventCycleStarted   EventType = "cycle_started"
	EventCycleCompleted EventType = "cycle_completed"
	EventOrderPlaced    EventType = "order_placed"
	EventOrderFilled    EventType = "order_filled"
	EventOrderFailed    EventType = "order_failed"
	EventOrderCancelled EventType = "order_cancelled"
)

// Event is broadcast to notification subscribers on every order creation,
// fill and cycle completion.
type Event struct {
	Type      EventType       `json:"type"`
	BotID     int64           `json:"bot_id"`
	CycleID   int64           `json:"cycle_id"`
	OrderType OrderType       `json:"order_type,omitempty"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side,omitempty"`
	Quantity  decimal.Decimal `json:"quantity,omitempty"`
	Price     decimal.Decimal `json:"price,omitempty"`
	Status    string          `json:"status,omitempty"`
	Profit    decimal.Decimal `json:"profit,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
