package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martingale/internal/domain"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS bot_cycles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bot_id INTEGER NOT NULL,
    number INTEGER NOT NULL,
    status TEXT NOT NULL,
    base_order_price TEXT NOT NULL DEFAULT '0',
    avg_entry_price TEXT NOT NULL DEFAULT '0',
    total_invested TEXT NOT NULL DEFAULT '0',
    total_quantity TEXT NOT NULL DEFAULT '0',
    filled_safety_orders INTEGER NOT NULL DEFAULT 0,
    max_safety_orders INTEGER NOT NULL,
    started_at DATETIME NOT NULL,
    completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_cycles_bot ON bot_cycles(bot_id);
CREATE INDEX IF NOT EXISTS idx_cycles_bot_status ON bot_cycles(bot_id, status);

CREATE TABLE IF NOT EXISTS cycle_orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_id INTEGER NOT NULL,
    type TEXT NOT NULL,
    side TEXT NOT NULL,
    price TEXT NOT NULL DEFAULT '0',
    quantity TEXT NOT NULL,
    status TEXT NOT NULL,
    exchange_order_id TEXT NOT NULL DEFAULT '',
    safety_level INTEGER NOT NULL DEFAULT -1,
    filled_price TEXT NOT NULL DEFAULT '0',
    filled_quantity TEXT NOT NULL DEFAULT '0',
    fee TEXT NOT NULL DEFAULT '0',
    filled_at DATETIME,
    created_at DATETIME NOT NULL,
    FOREIGN KEY(cycle_id) REFERENCES bot_cycles(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_orders_cycle ON cycle_orders(cycle_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON cycle_orders(status);
`

// SQLiteLedger is the sqlite-backed Ledger implementation.
type SQLiteLedger struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteLedger opens (and initializes if needed) the ledger database.
func NewSQLiteLedger(dbPath string, logger *zap.Logger) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open ledger database %s", dbPath)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "failed to initialize ledger schema")
	}

	logger.Info("ledger database ready", zap.String("path", dbPath))

	return &SQLiteLedger{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) CreateCycle(ctx context.Context, cycle *domain.Cycle) error {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO bot_cycles (bot_id, number, status, base_order_price, avg_entry_price,
			total_invested, total_quantity, filled_safety_orders, max_safety_orders, started_at)
		VALUES (?, (SELECT COALESCE(MAX(number), 0) + 1 FROM bot_cycles WHERE bot_id = ?),
			?, ?, ?, ?, ?, ?, ?, ?)
	`, cycle.BotID, cycle.BotID, string(cycle.Status), cycle.BaseOrderPrice.String(),
		cycle.AvgEntryPrice.String(), cycle.TotalInvested.String(), cycle.TotalQuantity.String(),
		cycle.FilledSafetyOrders, cycle.MaxSafetyOrders, cycle.StartedAt)
	if err != nil {
		return errors.Wrapf(err, "failed to create cycle for bot %d", cycle.BotID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get created cycle id")
	}
	cycle.ID = id

	row := l.db.QueryRowContext(ctx, `SELECT number FROM bot_cycles WHERE id = ?`, id)
	if err := row.Scan(&cycle.Number); err != nil {
		return errors.Wrap(err, "failed to read assigned cycle number")
	}

	return nil
}

func (l *SQLiteLedger) ActiveCycle(ctx context.Context, botID int64) (*domain.Cycle, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, bot_id, number, status, base_order_price, avg_entry_price,
			total_invested, total_quantity, filled_safety_orders, max_safety_orders, started_at
		FROM bot_cycles
		WHERE bot_id = ? AND status = ?
		ORDER BY number DESC
		LIMIT 1
	`, botID, string(domain.CycleStatusActive))

	cycle, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveCycle
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query active cycle for bot %d", botID)
	}

	return cycle, nil
}

func (l *SQLiteLedger) UpdateCycle(ctx context.Context, cycle *domain.Cycle) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE bot_cycles
		SET base_order_price = ?, avg_entry_price = ?, total_invested = ?,
			total_quantity = ?, filled_safety_orders = ?
		WHERE id = ?
	`, cycle.BaseOrderPrice.String(), cycle.AvgEntryPrice.String(), cycle.TotalInvested.String(),
		cycle.TotalQuantity.String(), cycle.FilledSafetyOrders, cycle.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to update cycle %d", cycle.ID)
	}
	return nil
}

func (l *SQLiteLedger) CompleteCycle(ctx context.Context, cycle *domain.Cycle) error {
	_, err := l.db.ExecContext(ctx, `
		UPDATE bot_cycles
		SET status = ?, completed_at = ?
		WHERE id = ?
	`, string(domain.CycleStatusCompleted), cycle.CompletedAt, cycle.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to complete cycle %d", cycle.ID)
	}
	return nil
}

func (l *SQLiteLedger) CreateOrder(ctx context.Context, order *domain.Order) error {
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO cycle_orders (cycle_id, type, side, price, quantity, status,
			exchange_order_id, safety_level, filled_price, filled_quantity, fee, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, order.CycleID, string(order.Type), order.Side.String(), order.Price.String(),
		order.Quantity.String(), string(order.Status), order.ExchangeOrderID, order.SafetyLevel,
		order.FilledPrice.String(), order.FilledQuantity.String(), order.Fee.String(), order.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "failed to create order for cycle %d", order.CycleID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get created order id")
	}
	order.ID = id

	return nil
}

func (l *SQLiteLedger) UpdateOrder(ctx context.Context, order *domain.Order) error {
	var filledAt any
	if !order.FilledAt.IsZero() {
		filledAt = order.FilledAt
	}

	_, err := l.db.ExecContext(ctx, `
		UPDATE cycle_orders
		SET status = ?, exchange_order_id = ?, filled_price = ?, filled_quantity = ?,
			fee = ?, filled_at = ?
		WHERE id = ?
	`, string(order.Status), order.ExchangeOrderID, order.FilledPrice.String(),
		order.FilledQuantity.String(), order.Fee.String(), filledAt, order.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to update order %d", order.ID)
	}
	return nil
}

func (l *SQLiteLedger) CycleOrders(ctx context.Context, cycleID int64) ([]*domain.Order, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, cycle_id, type, side, price, quantity, status,
			exchange_order_id, safety_level, filled_price, filled_quantity, fee, filled_at, created_at
		FROM cycle_orders
		WHERE cycle_id = ?
		ORDER BY id
	`, cycleID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query orders of cycle %d", cycleID)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (l *SQLiteLedger) PendingOrders(ctx context.Context, botID int64) ([]*domain.Order, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT o.id, o.cycle_id, o.type, o.side, o.price, o.quantity, o.status,
			o.exchange_order_id, o.safety_level, o.filled_price, o.filled_quantity, o.fee, o.filled_at, o.created_at
		FROM cycle_orders o
		JOIN bot_cycles c ON c.id = o.cycle_id
		WHERE c.bot_id = ? AND c.status = ? AND o.status IN (?, ?)
		ORDER BY o.id
	`, botID, string(domain.CycleStatusActive), string(domain.OrderStatusPending), string(domain.OrderStatusPlaced))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query pending orders for bot %d", botID)
	}
	defer rows.Close()

	return scanOrders(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(row rowScanner) (*domain.Cycle, error) {
	var (
		cycle     domain.Cycle
		status    string
		basePrice string
		avgPrice  string
		invested  string
		quantity  string
		startedAt time.Time
	)

	if err := row.Scan(&cycle.ID, &cycle.BotID, &cycle.Number, &status, &basePrice, &avgPrice,
		&invested, &quantity, &cycle.FilledSafetyOrders, &cycle.MaxSafetyOrders, &startedAt); err != nil {
		return nil, err
	}

	cycle.Status = domain.CycleStatus(status)
	cycle.StartedAt = startedAt

	var err error
	if cycle.BaseOrderPrice, err = decimal.NewFromString(basePrice); err != nil {
		return nil, errors.Wrap(err, "failed to parse stored base order price")
	}
	if cycle.AvgEntryPrice, err = decimal.NewFromString(avgPrice); err != nil {
		return nil, errors.Wrap(err, "failed to parse stored average entry price")
	}
	if cycle.TotalInvested, err = decimal.NewFromString(invested); err != nil {
		return nil, errors.Wrap(err, "failed to parse stored total invested")
	}
	if cycle.TotalQuantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, errors.Wrap(err, "failed to parse stored total quantity")
	}

	return &cycle, nil
}

func scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	var orders []*domain.Order

	for rows.Next() {
		var (
			order     domain.Order
			typ       string
			side      string
			price     string
			quantity  string
			status    string
			fPrice    string
			fQty      string
			fee       string
			filledAt  sql.NullTime
			createdAt time.Time
		)

		if err := rows.Scan(&order.ID, &order.CycleID, &typ, &side, &price, &quantity, &status,
			&order.ExchangeOrderID, &order.SafetyLevel, &fPrice, &fQty, &fee, &filledAt, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan order row")
		}

		order.Type = domain.OrderType(typ)
		order.Status = domain.OrderStatus(status)
		if side == domain.SideSell.String() {
			order.Side = domain.SideSell
		} else {
			order.Side = domain.SideBuy
		}
		if filledAt.Valid {
			order.FilledAt = filledAt.Time
		}
		order.CreatedAt = createdAt

		var err error
		if order.Price, err = decimal.NewFromString(price); err != nil {
			return nil, errors.Wrap(err, "failed to parse stored order price")
		}
		if order.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, errors.Wrap(err, "failed to parse stored order quantity")
		}
		if order.FilledPrice, err = decimal.NewFromString(fPrice); err != nil {
			return nil, errors.Wrap(err, "failed to parse stored filled price")
		}
		if order.FilledQuantity, err = decimal.NewFromString(fQty); err != nil {
			return nil, errors.Wrap(err, "failed to parse stored filled quantity")
		}
		if order.Fee, err = decimal.NewFromString(fee); err != nil {
			return nil, errors.Wrap(err, "failed to parse stored fee")
		}

		orders = append(orders, &order)
	}

	return orders, rows.Err()
}
