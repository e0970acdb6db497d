// Package gateway abstracts the exchange order API consumed by the cycle engine.
package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martingale/internal/domain"
)

// OrderKind is the exchange order type.
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

// OrderRequest describes an order to submit to the exchange.
type OrderRequest struct {
	Pair          domain.Pair
	Side          domain.Side
	Kind          OrderKind
	Quantity      decimal.Decimal
	Price         decimal.Decimal // limit orders only
	ClientOrderID string
}

// OrderResult is the exchange acknowledgement of a placed order.
type OrderResult struct {
	ExchangeOrderID string
	Filled          bool
	FilledPrice     decimal.Decimal
	FilledQuantity  decimal.Decimal
	Fee             decimal.Decimal
}

// OrderState is an order-status snapshot returned by a status poll.
type OrderState struct {
	Filled         bool
	Cancelled      bool
	FilledPrice    decimal.Decimal
	FilledQuantity decimal.Decimal
	Fee            decimal.Decimal
	UpdatedAt      time.Time
}

// Gateway is the narrow exchange interface the engine calls through.
// Implementations do not retry failed calls: retry policy is an external
// concern layered on top.
type Gateway interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
	CancelOrder(ctx context.Context, pair domain.Pair, exchangeOrderID string) error
	GetOrder(ctx context.Context, pair domain.Pair, exchangeOrderID string) (*OrderState, error)
	GetSymbolFilters(ctx context.Context, pair domain.Pair) (domain.SymbolFilters, error)
}
