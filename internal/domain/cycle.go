package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CycleStatus is the lifecycle state of a bot cycle.
type CycleStatus string

const (
	CycleStatusActive    CycleStatus = "active"
	CycleStatusCompleted CycleStatus = "completed"
)

// Cycle is one open-to-close trading round of a bot.
//
// Invariant: TotalInvested / TotalQuantity == AvgEntryPrice whenever
// TotalQuantity > 0. RecordEntryFill is the only mutator of the position
// totals and maintains the invariant.
type Cycle struct {
	ID     int64
	BotID  int64
	Number int
	Status CycleStatus

	BaseOrderPrice decimal.Decimal
	AvgEntryPrice  decimal.Decimal
	TotalInvested  decimal.Decimal
	TotalQuantity  decimal.Decimal

	FilledSafetyOrders int
	// MaxSafetyOrders is snapshotted from the bot config at cycle start so a
	// later config edit does not change a running cycle.
	MaxSafetyOrders int

	StartedAt   time.Time
	CompletedAt time.Time
}

// NewCycle creates a new active cycle for the bot. The monotonic cycle
// number is assigned by the ledger on creation.
func NewCycle(botID int64, maxSafetyOrders int) (*Cycle, error) {
	if maxSafetyOrders < 0 {
		return nil, fmt.Errorf("maxSafetyOrders must be >= 0, got %d", maxSafetyOrders)
	}

	return &Cycle{
		BotID:           botID,
		Status:          CycleStatusActive,
		AvgEntryPrice:   decimal.Zero,
		TotalInvested:   decimal.Zero,
		TotalQuantity:   decimal.Zero,
		MaxSafetyOrders: maxSafetyOrders,
		StartedAt:       time.Now(),
	}, nil
}

// RecordEntryFill applies an entry-side fill (base or safety order) to the
// position and recomputes the average entry price. The fee is netted into the
// invested total. A resulting zero total quantity is a programming-contract
// violation, never a valid state.
func (c *Cycle) RecordEntryFill(price, quantity, fee decimal.Decimal) error {
	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("fill price must be positive, got %s", price.String())
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("fill quantity must be positive, got %s", quantity.String())
	}

	newInvested := c.TotalInvested.Add(price.Mul(quantity)).Add(fee)
	newQuantity := c.TotalQuantity.Add(quantity)
	if newQuantity.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("total quantity must be positive after fill, got %s", newQuantity.String())
	}

	c.TotalInvested = newInvested
	c.TotalQuantity = newQuantity
	c.AvgEntryPrice = newInvested.Div(newQuantity)

	return nil
}

// RealizedProfit returns the cycle profit for the quote amount received when
// the position was closed, with fees already netted into both sides.
func (c *Cycle) RealizedProfit(totalReceived decimal.Decimal) decimal.Decimal {
	return totalReceived.Sub(c.TotalInvested)
}

// Complete marks the cycle completed. Completing twice is an error.
func (c *Cycle) Complete() error {
	if c.Status == CycleStatusCompleted {
		return fmt.Errorf("cycle %d already completed", c.ID)
	}
	c.Status = CycleStatusCompleted
	c.CompletedAt = time.Now()
	return nil
}
