// Package storage persists bot cycles and their orders.
package storage

import (
	"context"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/martingale/internal/domain"
)

// ErrNoActiveCycle is returned when a bot has no active cycle.
var ErrNoActiveCycle = errors.New("no active cycle")

// Ledger is the cycle/order persistence contract consumed by the engine.
type Ledger interface {
	// CreateCycle persists a new cycle and assigns its id.
	CreateCycle(ctx context.Context, cycle *domain.Cycle) error
	// ActiveCycle returns the bot's single active cycle or ErrNoActiveCycle.
	ActiveCycle(ctx context.Context, botID int64) (*domain.Cycle, error)
	// UpdateCycle persists the position totals of the cycle.
	UpdateCycle(ctx context.Context, cycle *domain.Cycle) error
	// CompleteCycle marks a cycle completed.
	CompleteCycle(ctx context.Context, cycle *domain.Cycle) error

	// CreateOrder persists a new order and assigns its id.
	CreateOrder(ctx context.Context, order *domain.Order) error
	// UpdateOrder persists the order's status and fill fields.
	UpdateOrder(ctx context.Context, order *domain.Order) error
	// CycleOrders returns every order of the cycle.
	CycleOrders(ctx context.Context, cycleID int64) ([]*domain.Order, error)
	// PendingOrders returns the pending/placed orders of the bot's active cycle.
	PendingOrders(ctx context.Context, botID int64) ([]*domain.Order, error)
}
