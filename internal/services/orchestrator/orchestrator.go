// Package orchestrator drives the martingale order cycle: base order, safety
// ladder, take-profit tracking and cycle completion.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martingale/internal/domain"
	"github.com/vadiminshakov/martingale/internal/notify"
	"github.com/vadiminshakov/martingale/internal/services/gateway"
	"github.com/vadiminshakov/martingale/internal/services/normalizer"
	"github.com/vadiminshakov/martingale/internal/services/pricing"
	"github.com/vadiminshakov/martingale/internal/storage"
	"go.uber.org/zap"
)

// ErrBotInactive is returned when a cycle is requested for a stopped bot.
var ErrBotInactive = errors.New("bot is not active")

const completionBuffer = 16

// CycleCompletion signals that a bot finished a cycle on a take-profit fill.
type CycleCompletion struct {
	Bot     *domain.Bot
	CycleID int64
	Profit  decimal.Decimal
}

// Orchestrator is the per-bot cycle state machine. All transitions of one
// bot's cycle are serialized behind a per-bot mutex: two fills for the same
// cycle read-then-write the position totals and must never interleave.
// Different bots proceed in parallel.
type Orchestrator struct {
	ledger   storage.Ledger
	gateways *gateway.Registry
	notifier notify.Notifier
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	completions chan CycleCompletion
}

// New creates an orchestrator.
func New(ledger storage.Ledger, gateways *gateway.Registry, notifier notify.Notifier, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:      ledger,
		gateways:    gateways,
		notifier:    notifier,
		logger:      logger,
		locks:       make(map[int64]*sync.Mutex),
		completions: make(chan CycleCompletion, completionBuffer),
	}
}

// Completions delivers cycle-completed signals for cooldown scheduling.
func (o *Orchestrator) Completions() <-chan CycleCompletion {
	return o.completions
}

func (o *Orchestrator) botLock(botID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[botID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[botID] = lock
	}
	return lock
}

// symbolFilters fetches the exchange constraints, falling back to the
// documented defaults when they are unavailable so an order is never dropped
// over a missing filter.
func (o *Orchestrator) symbolFilters(ctx context.Context, gw gateway.Gateway, bot *domain.Bot) domain.SymbolFilters {
	filters, err := gw.GetSymbolFilters(ctx, bot.Pair)
	if err != nil {
		o.logger.Warn("symbol filters unavailable, using defaults",
			zap.String("pair", bot.Pair.String()), zap.Error(err))
		return domain.DefaultFilters()
	}
	return filters
}

// StartCycle opens a new cycle: persists the cycle row, submits the base
// market order and, once it fills, places the take-profit order and the full
// safety ladder as resting limit orders. Returns the cycle, or an error if
// the base order could not be placed (the attempt aborts, nothing else is
// submitted).
func (o *Orchestrator) StartCycle(ctx context.Context, bot *domain.Bot) (*domain.Cycle, error) {
	lock := o.botLock(bot.ID)
	lock.Lock()
	defer lock.Unlock()

	if !bot.Active {
		return nil, ErrBotInactive
	}

	gw, err := o.gateways.For(bot.Exchange)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot start cycle for bot %d", bot.ID)
	}

	if existing, err := o.ledger.ActiveCycle(ctx, bot.ID); err == nil {
		o.logger.Info("bot already has an active cycle",
			zap.Int64("bot", bot.ID), zap.Int64("cycle", existing.ID))
		return existing, nil
	} else if !errors.Is(err, storage.ErrNoActiveCycle) {
		return nil, errors.Wrapf(err, "failed to query active cycle for bot %d", bot.ID)
	}

	cycle, err := domain.NewCycle(bot.ID, bot.MaxSafetyOrders)
	if err != nil {
		return nil, err
	}
	if err := o.ledger.CreateCycle(ctx, cycle); err != nil {
		return nil, err
	}

	o.emit(domain.EventCycleStarted, bot, cycle, nil, decimal.Zero)

	// any failure before the base order fills closes the cycle: leaving it
	// active with no position would block every later start behind the
	// active-cycle check above
	price, err := gw.GetPrice(ctx, bot.Pair)
	if err != nil {
		return o.abortCycle(ctx, cycle, errors.Wrapf(err, "failed to get price for %s", bot.Pair.String()))
	}

	plan, err := pricing.BaseOrder(bot, price)
	if err != nil {
		return o.abortCycle(ctx, cycle, err)
	}

	filters := o.symbolFilters(ctx, gw, bot)
	quantity := normalizer.AdjustQuantity(plan.Quantity, filters)

	order, err := domain.NewOrder(cycle.ID, domain.OrderTypeBase, plan.Side, decimal.Zero, quantity, -1)
	if err != nil {
		return o.abortCycle(ctx, cycle, err)
	}
	if err := o.ledger.CreateOrder(ctx, order); err != nil {
		return o.abortCycle(ctx, cycle, err)
	}

	result, err := o.placeOrder(ctx, gw, bot, order, gateway.OrderKindMarket)
	if err != nil {
		return o.abortCycle(ctx, cycle, errors.Wrapf(err, "base order failed for bot %d", bot.ID))
	}

	if result.Filled {
		fill := domain.Fill{
			Price:    result.FilledPrice,
			Quantity: result.FilledQuantity,
			Fee:      result.Fee,
			Time:     time.Now(),
		}
		if err := o.applyEntryFill(ctx, bot, cycle, order, fill); err != nil {
			return cycle, err
		}
		o.placeProtection(ctx, gw, bot, cycle)
	}
	// a not-yet-filled base order is picked up by the fill monitor, which
	// triggers the take-profit and safety ladder placement on its fill

	return cycle, nil
}

// abortCycle closes a cycle that never opened a position. The cycle stays in
// the ledger with whatever failed order it holds, but is no longer active, so
// the next start opens a fresh cycle instead of resuming an empty one.
func (o *Orchestrator) abortCycle(ctx context.Context, cycle *domain.Cycle, cause error) (*domain.Cycle, error) {
	if err := cycle.Complete(); err == nil {
		if perr := o.ledger.CompleteCycle(ctx, cycle); perr != nil {
			o.logger.Error("failed to close aborted cycle", zap.Int64("cycle", cycle.ID), zap.Error(perr))
		}
	}
	return cycle, cause
}

// placeOrder submits the order via the gateway and persists the outcome. A
// gateway rejection marks only this order failed; sibling orders are never
// rolled back and no retry is attempted here.
func (o *Orchestrator) placeOrder(ctx context.Context, gw gateway.Gateway, bot *domain.Bot, order *domain.Order, kind gateway.OrderKind) (*gateway.OrderResult, error) {
	req := gateway.OrderRequest{
		Pair:          bot.Pair,
		Side:          order.Side,
		Kind:          kind,
		Quantity:      order.Quantity,
		Price:         order.Price,
		ClientOrderID: uuid.NewString(),
	}

	result, err := gw.PlaceOrder(ctx, req)
	if err != nil {
		if terr := order.Transition(domain.OrderStatusFailed); terr != nil {
			return nil, terr
		}
		if uerr := o.ledger.UpdateOrder(ctx, order); uerr != nil {
			o.logger.Error("failed to persist failed order", zap.Int64("order", order.ID), zap.Error(uerr))
		}
		o.emitOrder(domain.EventOrderFailed, bot, order)
		return nil, err
	}

	order.ExchangeOrderID = result.ExchangeOrderID
	if err := order.Transition(domain.OrderStatusPlaced); err != nil {
		return nil, err
	}
	if result.Filled {
		// market orders fill in the acknowledgement: placed and filled in one
		if err := order.Transition(domain.OrderStatusFilled); err != nil {
			return nil, err
		}
		order.FilledPrice = result.FilledPrice
		order.FilledQuantity = result.FilledQuantity
		order.Fee = result.Fee
		order.FilledAt = time.Now()
	}

	if err := o.ledger.UpdateOrder(ctx, order); err != nil {
		return nil, errors.Wrapf(err, "failed to persist placed order %d", order.ID)
	}

	o.emitOrder(domain.EventOrderPlaced, bot, order)

	return result, nil
}

// HandleFill applies an order fill to the cycle. It is idempotent: a fill for
// an order whose persisted status already left placed is ignored, so
// re-delivering the same fill event never double-counts and a stop that
// cancelled the order in the meantime wins the race. Returns true when the
// fill completed the cycle.
func (o *Orchestrator) HandleFill(ctx context.Context, bot *domain.Bot, order *domain.Order, fill domain.Fill) (bool, error) {
	lock := o.botLock(bot.ID)
	lock.Lock()
	defer lock.Unlock()

	if order.Status != domain.OrderStatusPlaced {
		o.logger.Debug("ignoring fill for order not in placed state",
			zap.Int64("order", order.ID), zap.String("status", string(order.Status)))
		return false, nil
	}

	gw, err := o.gateways.For(bot.Exchange)
	if err != nil {
		return false, errors.Wrapf(err, "cannot handle fill for bot %d", bot.ID)
	}

	cycle, err := o.ledger.ActiveCycle(ctx, bot.ID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to load active cycle for bot %d", bot.ID)
	}
	if cycle.ID != order.CycleID {
		o.logger.Warn("fill belongs to a non-active cycle, ignoring",
			zap.Int64("order", order.ID), zap.Int64("cycle", order.CycleID))
		return false, nil
	}

	// the caller's snapshot may predate a stop or an earlier delivery of the
	// same fill; only the persisted status decides
	current, err := o.cycleOrder(ctx, cycle.ID, order.ID)
	if err != nil {
		return false, err
	}
	if current == nil || current.Status != domain.OrderStatusPlaced {
		o.logger.Debug("ignoring fill for order no longer placed", zap.Int64("order", order.ID))
		return false, nil
	}
	order = current

	switch order.Type {
	case domain.OrderTypeBase:
		if err := o.applyEntryFill(ctx, bot, cycle, order, fill); err != nil {
			return false, err
		}
		o.placeProtection(ctx, gw, bot, cycle)
		return false, nil

	case domain.OrderTypeSafety:
		return false, o.handleSafetyFill(ctx, gw, bot, cycle, order, fill)

	case domain.OrderTypeTakeProfit:
		if err := o.handleTakeProfitFill(ctx, gw, bot, cycle, order, fill); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, errors.Errorf("unknown order type %q", order.Type)
}

// cycleOrder loads the persisted row of one cycle order. Returns nil when the
// cycle has no order with that id.
func (o *Orchestrator) cycleOrder(ctx context.Context, cycleID, orderID int64) (*domain.Order, error) {
	orders, err := o.ledger.CycleOrders(ctx, cycleID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load orders of cycle %d", cycleID)
	}
	for _, order := range orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return nil, nil
}

// applyEntryFill persists an entry-side fill and recomputes the position.
func (o *Orchestrator) applyEntryFill(ctx context.Context, bot *domain.Bot, cycle *domain.Cycle, order *domain.Order, fill domain.Fill) error {
	// a market base order arrives here already filled by placeOrder
	if order.Status != domain.OrderStatusFilled {
		if err := order.Transition(domain.OrderStatusFilled); err != nil {
			return errors.Wrapf(err, "cannot record fill of order %d", order.ID)
		}
	}
	order.FilledPrice = fill.Price
	order.FilledQuantity = fill.Quantity
	order.Fee = fill.Fee
	order.FilledAt = fill.Time
	if err := o.ledger.UpdateOrder(ctx, order); err != nil {
		return errors.Wrapf(err, "failed to persist fill of order %d", order.ID)
	}

	if err := cycle.RecordEntryFill(fill.Price, fill.Quantity, fill.Fee); err != nil {
		return errors.Wrapf(err, "failed to record fill of order %d", order.ID)
	}
	if order.Type == domain.OrderTypeBase {
		cycle.BaseOrderPrice = fill.Price
	}
	if order.Type == domain.OrderTypeSafety {
		cycle.FilledSafetyOrders++
	}
	if err := o.ledger.UpdateCycle(ctx, cycle); err != nil {
		return errors.Wrapf(err, "failed to persist cycle %d position", cycle.ID)
	}

	o.emitOrder(domain.EventOrderFilled, bot, order)

	o.logger.Info("entry fill recorded",
		zap.Int64("bot", bot.ID),
		zap.Int64("cycle", cycle.ID),
		zap.String("type", string(order.Type)),
		zap.String("price", fill.Price.String()),
		zap.String("quantity", fill.Quantity.String()),
		zap.String("avg_entry_price", cycle.AvgEntryPrice.String()))

	return nil
}

// placeProtection places the take-profit order and the full safety ladder.
// Best effort: a rejection fails only that order, the rest still go out.
func (o *Orchestrator) placeProtection(ctx context.Context, gw gateway.Gateway, bot *domain.Bot, cycle *domain.Cycle) {
	filters := o.symbolFilters(ctx, gw, bot)

	if err := o.placeTakeProfit(ctx, gw, bot, cycle, filters); err != nil {
		o.logger.Error("failed to place take-profit order",
			zap.Int64("bot", bot.ID), zap.Int64("cycle", cycle.ID), zap.Error(err))
	}

	ladder, err := pricing.SafetyLadder(bot, cycle.AvgEntryPrice)
	if err != nil {
		o.logger.Error("failed to compute safety ladder",
			zap.Int64("bot", bot.ID), zap.Int64("cycle", cycle.ID), zap.Error(err))
		return
	}

	for _, plan := range ladder {
		if err := o.placeLimitOrder(ctx, gw, bot, cycle, domain.OrderTypeSafety, plan, filters); err != nil {
			o.logger.Error("failed to place safety order",
				zap.Int64("bot", bot.ID),
				zap.Int64("cycle", cycle.ID),
				zap.Int("level", plan.Level),
				zap.Error(err))
		}
	}
}

// placeTakeProfit computes and places the take-profit limit order for the
// cycle's current average entry price and full accumulated quantity.
func (o *Orchestrator) placeTakeProfit(ctx context.Context, gw gateway.Gateway, bot *domain.Bot, cycle *domain.Cycle, filters domain.SymbolFilters) error {
	plan, err := pricing.TakeProfit(bot, cycle.AvgEntryPrice, cycle.TotalQuantity)
	if err != nil {
		return err
	}
	return o.placeLimitOrder(ctx, gw, bot, cycle, domain.OrderTypeTakeProfit, plan, filters)
}

func (o *Orchestrator) placeLimitOrder(ctx context.Context, gw gateway.Gateway, bot *domain.Bot, cycle *domain.Cycle, typ domain.OrderType, plan pricing.OrderPlan, filters domain.SymbolFilters) error {
	price := normalizer.AdjustPrice(plan.Price, filters)
	quantity := normalizer.AdjustQuantity(plan.Quantity, filters)

	order, err := domain.NewOrder(cycle.ID, typ, plan.Side, price, quantity, plan.Level)
	if err != nil {
		return err
	}
	if err := o.ledger.CreateOrder(ctx, order); err != nil {
		return err
	}

	_, err = o.placeOrder(ctx, gw, bot, order, gateway.OrderKindLimit)
	return err
}

// handleSafetyFill recomputes the average, then replaces the take-profit
// order: the outstanding one is cancelled and a new one is placed at the new
// average price for the full accumulated quantity.
func (o *Orchestrator) handleSafetyFill(ctx context.Context, gw gateway.Gateway, bot *domain.Bot, cycle *domain.Cycle, order *domain.Order, fill domain.Fill) error {
	if err := o.applyEntryFill(ctx, bot, cycle, order, fill); err != nil {
		return err
	}

	if err := o.cancelOpenTakeProfit(ctx, gw, bot, cycle); err != nil {
		o.logger.Error("failed to cancel outstanding take-profit order",
			zap.Int64("cycle", cycle.ID), zap.Error(err))
	}

	filters := o.symbolFilters(ctx, gw, bot)
	if err := o.placeTakeProfit(ctx, gw, bot, cycle, filters); err != nil {
		o.logger.Error("failed to place replacement take-profit order",
			zap.Int64("cycle", cycle.ID), zap.Error(err))
	}

	if cycle.FilledSafetyOrders >= cycle.MaxSafetyOrders {
		o.logger.Info("safety ladder exhausted, holding position until take-profit",
			zap.Int64("bot", bot.ID), zap.Int64("cycle", cycle.ID))
	}

	return nil
}

// cancelOpenTakeProfit cancels the cycle's non-terminal take-profit order.
// The cycle invariant allows at most one such order at any time.
func (o *Orchestrator) cancelOpenTakeProfit(ctx context.Context, gw gateway.Gateway, bot *domain.Bot, cycle *domain.Cycle) error {
	orders, err := o.ledger.CycleOrders(ctx, cycle.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to load orders of cycle %d", cycle.ID)
	}

	for _, open := range orders {
		if open.Type != domain.OrderTypeTakeProfit || open.Status.Terminal() {
			continue
		}
		if err := o.cancelOrder(ctx, gw, bot, open); err != nil {
			return err
		}
	}

	return nil
}

func (o *Orchestrator) cancelOrder(ctx context.Context, gw gateway.Gateway, bot *domain.Bot, order *domain.Order) error {
	if order.Status == domain.OrderStatusPlaced && order.ExchangeOrderID != "" {
		if err := gw.CancelOrder(ctx, bot.Pair, order.ExchangeOrderID); err != nil {
			return errors.Wrapf(err, "failed to cancel order %d on exchange", order.ID)
		}
	}

	if err := order.Transition(domain.OrderStatusCancelled); err != nil {
		return errors.Wrapf(err, "cannot cancel order %d", order.ID)
	}
	if err := o.ledger.UpdateOrder(ctx, order); err != nil {
		return errors.Wrapf(err, "failed to persist cancellation of order %d", order.ID)
	}

	o.emitOrder(domain.EventOrderCancelled, bot, order)

	return nil
}

// handleTakeProfitFill closes the cycle and records realized profit with
// fees netted into both sides.
func (o *Orchestrator) handleTakeProfitFill(ctx context.Context, gw gateway.Gateway, bot *domain.Bot, cycle *domain.Cycle, order *domain.Order, fill domain.Fill) error {
	if err := order.Transition(domain.OrderStatusFilled); err != nil {
		return errors.Wrapf(err, "cannot record take-profit fill of order %d", order.ID)
	}
	order.FilledPrice = fill.Price
	order.FilledQuantity = fill.Quantity
	order.Fee = fill.Fee
	order.FilledAt = fill.Time
	if err := o.ledger.UpdateOrder(ctx, order); err != nil {
		return errors.Wrapf(err, "failed to persist take-profit fill of order %d", order.ID)
	}
	o.emitOrder(domain.EventOrderFilled, bot, order)

	// the resting safety orders are meaningless once the position is closed
	if err := o.cancelOpenOrders(ctx, gw, bot, cycle); err != nil {
		o.logger.Error("failed to cancel resting orders on cycle completion",
			zap.Int64("cycle", cycle.ID), zap.Error(err))
	}

	totalReceived := fill.Price.Mul(fill.Quantity).Sub(fill.Fee)
	profit := cycle.RealizedProfit(totalReceived)

	if err := cycle.Complete(); err != nil {
		return err
	}
	if err := o.ledger.CompleteCycle(ctx, cycle); err != nil {
		return errors.Wrapf(err, "failed to persist completion of cycle %d", cycle.ID)
	}

	o.emit(domain.EventCycleCompleted, bot, cycle, order, profit)

	o.logger.Info("cycle completed",
		zap.Int64("bot", bot.ID),
		zap.Int64("cycle", cycle.ID),
		zap.Int("number", cycle.Number),
		zap.String("profit", profit.String()))

	// schedule the next cycle only if the bot is still flagged active. The
	// send blocks until the runner consumes it: a dropped signal would
	// silently end the bot's cycle loop. Shutdown unblocks it via ctx.
	if bot.Active {
		completion := CycleCompletion{Bot: bot, CycleID: cycle.ID, Profit: profit}
		select {
		case o.completions <- completion:
		case <-ctx.Done():
			o.logger.Warn("restart signal abandoned on shutdown", zap.Int64("bot", bot.ID))
		}
	}

	return nil
}

// cancelOpenOrders cancels every non-terminal order of the cycle.
func (o *Orchestrator) cancelOpenOrders(ctx context.Context, gw gateway.Gateway, bot *domain.Bot, cycle *domain.Cycle) error {
	orders, err := o.ledger.CycleOrders(ctx, cycle.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to load orders of cycle %d", cycle.ID)
	}

	for _, open := range orders {
		if open.Status.Terminal() {
			continue
		}
		if err := o.cancelOrder(ctx, gw, bot, open); err != nil {
			o.logger.Error("failed to cancel order",
				zap.Int64("order", open.ID), zap.Error(err))
		}
	}

	return nil
}

// HandleExchangeCancellation records an order the exchange reports cancelled
// or rejected outside the bot's own cancel path. The order is marked failed:
// only the stop path may mark orders cancelled.
func (o *Orchestrator) HandleExchangeCancellation(ctx context.Context, bot *domain.Bot, order *domain.Order) error {
	lock := o.botLock(bot.ID)
	lock.Lock()
	defer lock.Unlock()

	current, err := o.cycleOrder(ctx, order.CycleID, order.ID)
	if err != nil {
		return err
	}
	if current == nil || current.Status != domain.OrderStatusPlaced {
		return nil
	}
	order = current

	o.logger.Warn("order cancelled on the exchange outside the bot",
		zap.Int64("order", order.ID), zap.String("exchange_order_id", order.ExchangeOrderID))

	if err := order.Transition(domain.OrderStatusFailed); err != nil {
		return err
	}
	if err := o.ledger.UpdateOrder(ctx, order); err != nil {
		return errors.Wrapf(err, "failed to persist external cancellation of order %d", order.ID)
	}
	o.emitOrder(domain.EventOrderFailed, bot, order)

	return nil
}

// Stop deactivates the bot and cancels every resting order of its active
// cycle. This is the only path that moves pending/placed orders to cancelled
// outside the fill path, and it wins races with the fill monitor because the
// active flag flips under the same per-bot lock fills are processed under.
func (o *Orchestrator) Stop(ctx context.Context, bot *domain.Bot) error {
	lock := o.botLock(bot.ID)
	lock.Lock()
	defer lock.Unlock()

	bot.Active = false

	gw, err := o.gateways.For(bot.Exchange)
	if err != nil {
		return errors.Wrapf(err, "cannot stop bot %d", bot.ID)
	}

	cycle, err := o.ledger.ActiveCycle(ctx, bot.ID)
	if errors.Is(err, storage.ErrNoActiveCycle) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to load active cycle for bot %d", bot.ID)
	}

	if err := o.cancelOpenOrders(ctx, gw, bot, cycle); err != nil {
		return err
	}

	o.logger.Info("bot stopped", zap.Int64("bot", bot.ID), zap.Int64("cycle", cycle.ID))

	return nil
}

func (o *Orchestrator) emitOrder(typ domain.EventType, bot *domain.Bot, order *domain.Order) {
	price := order.Price
	if !order.FilledPrice.IsZero() {
		price = order.FilledPrice
	}

	o.notifier.Notify(domain.Event{
		Type:      typ,
		BotID:     bot.ID,
		CycleID:   order.CycleID,
		OrderType: order.Type,
		Symbol:    bot.Pair.Symbol(),
		Side:      order.Side.String(),
		Quantity:  order.Quantity,
		Price:     price,
		Status:    string(order.Status),
		Timestamp: time.Now(),
	})
}

func (o *Orchestrator) emit(typ domain.EventType, bot *domain.Bot, cycle *domain.Cycle, order *domain.Order, profit decimal.Decimal) {
	event := domain.Event{
		Type:      typ,
		BotID:     bot.ID,
		CycleID:   cycle.ID,
		Symbol:    bot.Pair.Symbol(),
		Status:    string(cycle.Status),
		Profit:    profit,
		Timestamp: time.Now(),
	}
	if order != nil {
		event.OrderType = order.Type
		event.Side = order.Side.String()
		event.Quantity = order.Quantity
		event.Price = order.FilledPrice
	}

	o.notifier.Notify(event)
}
