package gateway

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martingale/internal/domain"
)

// BinanceGateway implements Gateway against binance spot.
type BinanceGateway struct {
	client *binance.Client

	mu      sync.Mutex
	filters map[string]domain.SymbolFilters
}

// NewBinanceGateway creates a binance-backed gateway.
func NewBinanceGateway(client *binance.Client) *BinanceGateway {
	return &BinanceGateway{
		client:  client,
		filters: make(map[string]domain.SymbolFilters),
	}
}

func (g *BinanceGateway) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	prices, err := g.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "failed to get binance price for %s", pair.String())
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, fmt.Errorf("binance API returned empty prices for %s", pair.String())
	}

	return decimal.NewFromString(prices[0].Price)
}

func (g *BinanceGateway) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	side := binance.SideTypeBuy
	if req.Side == domain.SideSell {
		side = binance.SideTypeSell
	}

	svc := g.client.NewCreateOrderService().
		Symbol(req.Pair.Symbol()).
		Side(side).
		Quantity(req.Quantity.String()).
		NewClientOrderID(req.ClientOrderID)

	if req.Kind == OrderKindLimit {
		svc = svc.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(req.Price.String())
	} else {
		svc = svc.Type(binance.OrderTypeMarket)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to place binance %s %s order for %s", req.Kind, req.Side, req.Pair.String())
	}

	result := &OrderResult{
		ExchangeOrderID: strconv.FormatInt(resp.OrderID, 10),
		Filled:          resp.Status == binance.OrderStatusTypeFilled,
	}

	if result.Filled {
		price, qty, fee, err := binanceFillTotals(resp)
		if err != nil {
			return nil, err
		}
		result.FilledPrice = price
		result.FilledQuantity = qty
		result.Fee = fee
	}

	return result, nil
}

// binanceFillTotals aggregates the per-trade fills of a market order into a
// volume-weighted price, total quantity and total commission.
func binanceFillTotals(resp *binance.CreateOrderResponse) (price, qty, fee decimal.Decimal, err error) {
	totalQty := decimal.Zero
	totalQuote := decimal.Zero
	totalFee := decimal.Zero

	for _, fill := range resp.Fills {
		p, perr := decimal.NewFromString(fill.Price)
		if perr != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, errors.Wrap(perr, "failed to parse binance fill price")
		}
		q, qerr := decimal.NewFromString(fill.Quantity)
		if qerr != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, errors.Wrap(qerr, "failed to parse binance fill quantity")
		}
		c, cerr := decimal.NewFromString(fill.Commission)
		if cerr != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, errors.Wrap(cerr, "failed to parse binance fill commission")
		}
		totalQty = totalQty.Add(q)
		totalQuote = totalQuote.Add(p.Mul(q))
		totalFee = totalFee.Add(c)
	}

	if totalQty.IsZero() {
		executed, perr := decimal.NewFromString(resp.ExecutedQuantity)
		if perr != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, errors.Wrap(perr, "failed to parse binance executed quantity")
		}
		avg, perr := decimal.NewFromString(resp.Price)
		if perr != nil {
			return decimal.Zero, decimal.Zero, decimal.Zero, errors.Wrap(perr, "failed to parse binance order price")
		}
		return avg, executed, decimal.Zero, nil
	}

	return totalQuote.Div(totalQty), totalQty, totalFee, nil
}

func (g *BinanceGateway) CancelOrder(ctx context.Context, pair domain.Pair, exchangeOrderID string) error {
	orderID, err := strconv.ParseInt(exchangeOrderID, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid binance order id %q", exchangeOrderID)
	}

	_, err = g.client.NewCancelOrderService().
		Symbol(pair.Symbol()).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to cancel binance order %s", exchangeOrderID)
	}
	return nil
}

func (g *BinanceGateway) GetOrder(ctx context.Context, pair domain.Pair, exchangeOrderID string) (*OrderState, error) {
	orderID, err := strconv.ParseInt(exchangeOrderID, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid binance order id %q", exchangeOrderID)
	}

	order, err := g.client.NewGetOrderService().
		Symbol(pair.Symbol()).
		OrderID(orderID).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query binance order %s", exchangeOrderID)
	}

	state := &OrderState{
		Filled:    order.Status == binance.OrderStatusTypeFilled,
		Cancelled: order.Status == binance.OrderStatusTypeCanceled || order.Status == binance.OrderStatusTypeExpired,
		UpdatedAt: time.UnixMilli(order.UpdateTime),
	}

	if state.Filled {
		executed, perr := decimal.NewFromString(order.ExecutedQuantity)
		if perr != nil {
			return nil, errors.Wrap(perr, "failed to parse binance executed quantity")
		}
		quote, perr := decimal.NewFromString(order.CummulativeQuoteQuantity)
		if perr != nil {
			return nil, errors.Wrap(perr, "failed to parse binance quote quantity")
		}
		state.FilledQuantity = executed
		if executed.GreaterThan(decimal.Zero) {
			state.FilledPrice = quote.Div(executed)
		}
	}

	return state, nil
}

func (g *BinanceGateway) GetSymbolFilters(ctx context.Context, pair domain.Pair) (domain.SymbolFilters, error) {
	g.mu.Lock()
	if cached, ok := g.filters[pair.Symbol()]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	g.mu.Unlock()

	info, err := g.client.NewExchangeInfoService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return domain.SymbolFilters{}, errors.Wrapf(err, "failed to get binance exchange info for %s", pair.String())
	}
	if len(info.Symbols) == 0 {
		return domain.SymbolFilters{}, fmt.Errorf("binance exchange info has no symbol %s", pair.Symbol())
	}

	symbol := info.Symbols[0]
	lot := symbol.LotSizeFilter()
	priceFilter := symbol.PriceFilter()
	if lot == nil || priceFilter == nil {
		return domain.SymbolFilters{}, fmt.Errorf("binance exchange info for %s misses lot size or price filter", pair.Symbol())
	}

	minQty, err := decimal.NewFromString(lot.MinQuantity)
	if err != nil {
		return domain.SymbolFilters{}, errors.Wrap(err, "failed to parse binance min quantity")
	}
	stepSize, err := decimal.NewFromString(lot.StepSize)
	if err != nil {
		return domain.SymbolFilters{}, errors.Wrap(err, "failed to parse binance step size")
	}
	tickSize, err := decimal.NewFromString(priceFilter.TickSize)
	if err != nil {
		return domain.SymbolFilters{}, errors.Wrap(err, "failed to parse binance tick size")
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
