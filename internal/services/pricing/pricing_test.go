package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/martingale/internal/domain"
)

func testBot(t *testing.T, direction domain.Direction) *domain.Bot {
	t.Helper()

	// base 100, safety 50 doubling per level, 3 levels,
	// deviation 2% growing 1.5x per level, take-profit 1.5%
	bot, err := domain.NewBot(1, "binance", domain.Pair{From: "BTC", To: "USDT"}, direction,
		decimal.NewFromInt(100), decimal.NewFromInt(50), decimal.NewFromFloat(2), 3,
		decimal.NewFromInt(2), decimal.NewFromFloat(1.5), decimal.NewFromFloat(1.5), 5*time.Minute)
	require.NoError(t, err)
	return bot
}

func TestBaseOrder(t *testing.T) {
	bot := testBot(t, domain.DirectionLong)

	plan, err := BaseOrder(bot, decimal.NewFromInt(50000))
	require.NoError(t, err)

	require.Equal(t, domain.SideBuy, plan.Side)
	require.True(t, plan.Quantity.Equal(decimal.NewFromFloat(0.002)), "100/50000 = 0.002, got %s", plan.Quantity)
	require.True(t, plan.Price.IsZero(), "base orders are market orders")
	require.Equal(t, -1, plan.Level)

	_, err = BaseOrder(bot, decimal.Zero)
	require.Error(t, err)
}

func TestTakeProfit_Long(t *testing.T) {
	bot := testBot(t, domain.DirectionLong)

	avg := decimal.NewFromInt(50000)
	qty := decimal.NewFromFloat(0.006)

	plan, err := TakeProfit(bot, avg, qty)
	require.NoError(t, err)

	// 50000 * 1.015 = 50750
	require.Equal(t, domain.SideSell, plan.Side)
	require.True(t, plan.Price.Equal(decimal.NewFromInt(50750)), "expected 50750, got %s", plan.Price)
	require.True(t, plan.Quantity.Equal(qty), "take-profit always covers the full position")
}

func TestTakeProfit_Short(t *testing.T) {
	bot := testBot(t, domain.DirectionShort)

	plan, err := TakeProfit(bot, decimal.NewFromInt(50000), decimal.NewFromFloat(0.006))
	require.NoError(t, err)

	// short closes below the average: 50000 * 0.985 = 49250
	require.Equal(t, domain.SideBuy, plan.Side)
	require.True(t, plan.Price.Equal(decimal.NewFromInt(49250)), "expected 49250, got %s", plan.Price)
}

func TestSafetyOrder_GeometricDeviation(t *testing.T) {
	bot := testBot(t, domain.DirectionLong)
	avg := decimal.NewFromInt(50000)

	// level 0: 2% below avg -> 49000
	plan0, err := SafetyOrder(bot, avg, 0)
	require.NoError(t, err)
	require.True(t, plan0.Price.Equal(decimal.NewFromInt(49000)), "expected 49000, got %s", plan0.Price)
	require.Equal(t, domain.SideBuy, plan0.Side)
	require.Equal(t, 0, plan0.Level)

	// level 1: 2% * 1.5 = 3% below avg -> 48500
	plan1, err := SafetyOrder(bot, avg, 1)
	require.NoError(t, err)
	require.True(t, plan1.Price.Equal(decimal.NewFromInt(48500)), "expected 48500, got %s", plan1.Price)

	// level 2: 2% * 1.5^2 = 4.5% below avg -> 47750
	plan2, err := SafetyOrder(bot, avg, 2)
	require.NoError(t, err)
	require.True(t, plan2.Price.Equal(decimal.NewFromInt(47750)), "expected 47750, got %s", plan2.Price)
}

func TestSafetyOrder_GeometricAmount(t *testing.T) {
	bot := testBot(t, domain.DirectionLong)
	avg := decimal.NewFromInt(50000)

	// invested amount doubles per level: 50, 100, 200
	expected := []decimal.Decimal{
		decimal.NewFromInt(50),
		decimal.NewFromInt(100),
		decimal.NewFromInt(200),
	}
	for k, amount := range expected {
		plan, err := SafetyOrder(bot, avg, k)
		require.NoError(t, err)
		invested := plan.Quantity.Mul(plan.Price)
		require.True(t, invested.Equal(amount), "level %d should invest %s, got %s", k, amount, invested)
	}
}

func TestSafetyOrder_ShortSymmetry(t *testing.T) {
	bot := testBot(t, domain.DirectionShort)
	avg := decimal.NewFromInt(50000)

	// short safety orders sell above the average: 50000 * 1.02 = 51000
	plan, err := SafetyOrder(bot, avg, 0)
	require.NoError(t, err)
	require.Equal(t, domain.SideSell, plan.Side)
	require.True(t, plan.Price.Equal(decimal.NewFromInt(51000)), "expected 51000, got %s", plan.Price)
}

func TestSafetyOrder_DeviationBeyondHundredPercent(t *testing.T) {
	bot := testBot(t, domain.DirectionLong)
	bot.PriceDeviationPct = decimal.NewFromInt(60)
	bot.DeviationMultiplier = decimal.NewFromInt(2)

	// level 1 deviation = 60% * 2 = 120% -> trigger would be negative
	_, err := SafetyOrder(bot, decimal.NewFromInt(50000), 1)
	require.Error(t, err)
}

func TestSafetyOrder_InvalidInputs(t *testing.T) {
	bot := testBot(t, domain.DirectionLong)

	_, err := SafetyOrder(bot, decimal.Zero, 0)
	require.Error(t, err)

	_, err = SafetyOrder(bot, decimal.NewFromInt(50000), -1)
	require.Error(t, err)
}

func TestSafetyLadder(t *testing.T) {
	bot := testBot(t, domain.DirectionLong)

	ladder, err := SafetyLadder(bot, decimal.NewFromInt(50000))
	require.NoError(t, err)
	require.Len(t, ladder, bot.MaxSafetyOrders)

	// triggers fall strictly for a long bot
	for k := 1; k < len(ladder); k++ {
		require.True(t, ladder[k].Price.LessThan(ladder[k-1].Price),
			"level %d trigger %s must be below level %d trigger %s",
			k, ladder[k].Price, k-1, ladder[k-1].Price)
		require.Equal(t, k, ladder[k].Level)
	}
}

func TestSafetyLadder_ZeroLevels(t *testing.T) {
	bot := testBot(t, domain.DirectionLong)
	bot.MaxSafetyOrders = 0

	ladder, err := SafetyLadder(bot, decimal.NewFromInt(50000))
	require.NoError(t, err)
	require.Empty(t, ladder)
}
