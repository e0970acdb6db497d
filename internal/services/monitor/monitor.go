// Package monitor polls exchange order status and feeds fill events into the
// cycle orchestrator.
package monitor

import (
	"context"
	"time"

	"github.com/vadiminshakov/martingale/internal/domain"
	"github.com/vadiminshakov/martingale/internal/services/gateway"
	"go.uber.org/zap"
)

const defaultPollInterval = 10 * time.Second

type fillHandler interface {
	HandleFill(ctx context.Context, bot *domain.Bot, order *domain.Order, fill domain.Fill) (bool, error)
	HandleExchangeCancellation(ctx context.Context, bot *domain.Bot, order *domain.Order) error
}

type orderReader interface {
	PendingOrders(ctx context.Context, botID int64) ([]*domain.Order, error)
}

type gatewayResolver interface {
	For(exchange string) (gateway.Gateway, error)
}

type botSource interface {
	ActiveBots() []*domain.Bot
}

// Monitor periodically inspects the resting orders of active bots and
// delivers detected fills to the orchestrator. Idempotency lives at the
// orchestrator boundary: a fill delivered twice is applied once.
type Monitor struct {
	ledger   orderReader
	gateways gatewayResolver
	handler  fillHandler
	bots     botSource
	logger   *zap.Logger
	interval time.Duration
}

// New creates a fill monitor. A non-positive interval falls back to the default.
func New(ledger orderReader, gateways gatewayResolver, handler fillHandler, bots botSource, logger *zap.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Monitor{
		ledger:   ledger,
		gateways: gateways,
		handler:  handler,
		bots:     bots,
		logger:   logger,
		interval: interval,
	}
}

// Run scans until the context is cancelled. Cancellation is deterministic:
// the ticker stops with the context, nothing keeps running afterwards.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("fill monitor started", zap.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("fill monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.Scan(ctx)
		}
	}
}

// Scan runs one pass over every active bot's resting orders.
func (m *Monitor) Scan(ctx context.Context) {
	for _, bot := range m.bots.ActiveBots() {
		if err := m.scanBot(ctx, bot); err != nil {
			m.logger.Error("order scan failed", zap.Int64("bot", bot.ID), zap.Error(err))
		}
	}
}

func (m *Monitor) scanBot(ctx context.Context, bot *domain.Bot) error {
	gw, err := m.gateways.For(bot.Exchange)
	if err != nil {
		return err
	}

	orders, err := m.ledger.PendingOrders(ctx, bot.ID)
	if err != nil {
		return err
	}

	for _, order := range orders {
		if order.Status != domain.OrderStatusPlaced || order.ExchangeOrderID == "" {
			continue
		}

		state, err := gw.GetOrder(ctx, bot.Pair, order.ExchangeOrderID)
		if err != nil {
			m.logger.Warn("order status poll failed",
				zap.Int64("order", order.ID),
				zap.String("exchange_order_id", order.ExchangeOrderID),
				zap.Error(err))
			continue
		}

		switch {
		case state.Filled:
			fill := domain.Fill{
				Price:    state.FilledPrice,
				Quantity: state.FilledQuantity,
				Fee:      state.Fee,
				Time:     state.UpdatedAt,
			}
			if fill.Time.IsZero() {
				fill.Time = time.Now()
			}
			if _, err := m.handler.HandleFill(ctx, bot, order, fill); err != nil {
				m.logger.Error("fill handling failed",
					zap.Int64("bot", bot.ID), zap.Int64("order", order.ID), zap.Error(err))
			}
		case state.Cancelled:
			if err := m.handler.HandleExchangeCancellation(ctx, bot, order); err != nil {
				m.logger.Error("failed to record externally cancelled order",
					zap.Int64("order", order.ID), zap.Error(err))
			}
		}
	}

	return nil
}
