package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martingale/internal/domain"
)

// BybitGateway implements Gateway against bybit spot (v5 API).
type BybitGateway struct {
	client *bybit.Client

	mu      sync.Mutex
	filters map[string]domain.SymbolFilters
}

// NewBybitGateway creates a bybit-backed gateway.
func NewBybitGateway(client *bybit.Client) *BybitGateway {
	return &BybitGateway{
		client:  client,
		filters: make(map[string]domain.SymbolFilters),
	}
}

func (g *BybitGateway) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	symbol := bybit.SymbolV5(pair.Symbol())

	result, err := g.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "failed to get bybit price for %s", pair.String())
	}
	if len(result.Result.Spot.List) == 0 {
		return decimal.Decimal{}, fmt.Errorf("bybit API returned empty prices for %s", pair.String())
	}

	return decimal.NewFromString(result.Result.Spot.List[0].LastPrice)
}

func (g *BybitGateway) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	side := bybit.SideBuy
	if req.Side == domain.SideSell {
		side = bybit.SideSell
	}

	param := bybit.V5CreateOrderParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      bybit.SymbolV5(req.Pair.Symbol()),
		Side:        side,
		OrderType:   bybit.OrderTypeMarket,
		Qty:         req.Quantity.String(),
		OrderLinkID: &req.ClientOrderID,
	}
	if req.Kind == OrderKindLimit {
		// bybit defaults spot limit orders to GTC
		price := req.Price.String()
		param.OrderType = bybit.OrderTypeLimit
		param.Price = &price
	}

	resp, err := g.client.V5().Order().CreateOrder(param)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to place bybit %s %s order for %s", req.Kind, req.Side, req.Pair.String())
	}

	// bybit acknowledges asynchronously; fills are reported by status polls
	return &OrderResult{ExchangeOrderID: resp.Result.OrderID}, nil
}

func (g *BybitGateway) CancelOrder(ctx context.Context, pair domain.Pair, exchangeOrderID string) error {
	_, err := g.client.V5().Order().CancelOrder(bybit.V5CancelOrderParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(pair.Symbol()),
		OrderID:  &exchangeOrderID,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to cancel bybit order %s", exchangeOrderID)
	}
	return nil
}

func (g *BybitGateway) GetOrder(ctx context.Context, pair domain.Pair, exchangeOrderID string) (*OrderState, error) {
	symbol := bybit.SymbolV5(pair.Symbol())

	open, err := g.client.V5().Order().GetOpenOrders(bybit.V5GetOpenOrdersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
		OrderID:  &exchangeOrderID,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query bybit order %s", exchangeOrderID)
	}

	if len(open.Result.List) == 0 {
		// not resting anymore: look it up in order history
		hist, err := g.client.V5().Order().GetHistoryOrders(bybit.V5GetHistoryOrdersParam{
			Category: bybit.CategoryV5Spot,
			Symbol:   &symbol,
			OrderID:  &exchangeOrderID,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to query bybit order history for %s", exchangeOrderID)
		}
		if len(hist.Result.List) == 0 {
			return nil, fmt.Errorf("bybit order %s not found", exchangeOrderID)
		}
		return bybitOrderState(hist.Result.List[0].OrderStatus, hist.Result.List[0].AvgPrice,
			hist.Result.List[0].CumExecQty, hist.Result.List[0].CumExecFee, hist.Result.List[0].UpdatedTime)
	}

	o := open.Result.List[0]
	return bybitOrderState(o.OrderStatus, o.AvgPrice, o.CumExecQty, o.CumExecFee, o.UpdatedTime)
}

func bybitOrderState(status bybit.OrderStatus, avgPrice, cumQty, cumFee, updated string) (*OrderState, error) {
	state := &OrderState{
		Filled:    status == bybit.OrderStatusFilled,
		Cancelled: status == bybit.OrderStatusCancelled || status == bybit.OrderStatusRejected,
	}

	if ms, err := decimal.NewFromString(updated); err == nil {
		state.UpdatedAt = time.UnixMilli(ms.IntPart())
	}

	if !state.Filled {
		return state, nil
	}

	price, err := decimal.NewFromString(avgPrice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse bybit average price")
	}
	qty, err := decimal.NewFromString(cumQty)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse bybit executed quantity")
	}
	fee := decimal.Zero
	if cumFee != "" {
		if fee, err = decimal.NewFromString(cumFee); err != nil {
			return nil, errors.Wrap(err, "failed to parse bybit executed fee")
		}
	}

	state.FilledPrice = price
	state.FilledQuantity = qty
	state.Fee = fee

	return state, nil
}

func (g *BybitGateway) GetSymbolFilters(ctx context.Context, pair domain.Pair) (domain.SymbolFilters, error) {
	g.mu.Lock()
	if cached, ok := g.filters[pair.Symbol()]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	g.mu.Unlock()

	symbol := bybit.SymbolV5(pair.Symbol())
	info, err := g.client.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return domain.SymbolFilters{}, errors.Wrapf(err, "failed to get bybit instrument info for %s", pair.String())
	}
	if len(info.Result.Spot.List) == 0 {
		return domain.SymbolFilters{}, fmt.Errorf("bybit instrument info has no symbol %s", pair.Symbol())
	}

	instrument := info.Result.Spot.List[0]

	minQty, err := decimal.NewFromString(instrument.LotSizeFilter.MinOrderQty)
	if err != nil {
		return domain.SymbolFilters{}, errors.Wrap(err, "failed to parse bybit min order quantity")
	}
	stepSize, err := decimal.NewFromString(instrument.LotSizeFilter.BasePrecision)
	if err != nil {
		return domain.SymbolFilters{}, errors.Wrap(err, "failed to parse bybit base precision")
	}
	tickSize, err := decimal.NewFromString(instrument.PriceFilter.TickSize)
	if err != nil {
		return domain.SymbolFilters{}, errors.Wrap(err, "failed to parse bybit tick size")
	}

	filters := domain.SymbolFilters{
		MinQty:        minQty,
		StepSize:      stepSize,
		TickSize:      tickSize,
		QtyDecimals:   domain.DecimalsOf(stepSize),
		PriceDecimals: domain.DecimalsOf(tickSize),
	}

	g.mu.Lock()
	g.filters[pair.Symbol()] = filters
	g.mu.Unlock()

	return filters, nil
}
