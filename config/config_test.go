package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/martingale/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGet(t *testing.T) {
	path := writeConfig(t, `
ledger_path: /tmp/test.db
listen_addr: ":9090"
poll_interval: 5s
bots:
  - exchange: binance
    pair: BTC_USDT
    base_order_amount: "100"
    safety_order_amount: "50"
    size_multiplier: "2"
    max_safety_orders: 3
    price_deviation: "2"
    deviation_multiplier: "1.5"
    take_profit: "1.5"
    cooldown: 10m
  - exchange: bybit
    pair: ETH_USDT
    direction: short
    base_order_amount: "200"
    safety_order_amount: "100"
    max_safety_orders: 2
    price_deviation: "3"
    take_profit: "2"
`)

	cfg, err := Get(path)
	require.NoError(t, err)

	require.Equal(t, "/tmp/test.db", cfg.LedgerPath)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Len(t, cfg.Bots, 2)

	first := cfg.Bots[0]
	require.Equal(t, int64(1), first.ID)
	require.Equal(t, "binance", first.Exchange)
	require.Equal(t, domain.Pair{From: "BTC", To: "USDT"}, first.Pair)
	require.Equal(t, domain.DirectionLong, first.Direction)
	require.True(t, first.BaseOrderAmount.Equal(decimal.NewFromInt(100)))
	require.True(t, first.SizeMultiplier.Equal(decimal.NewFromInt(2)))
	require.Equal(t, 3, first.MaxSafetyOrders)
	require.Equal(t, 10*time.Minute, first.Cooldown)
	require.True(t, first.Active)

	second := cfg.Bots[1]
	require.Equal(t, int64(2), second.ID)
	require.Equal(t, "bybit", second.Exchange)
	require.Equal(t, domain.DirectionShort, second.Direction)
	// omitted multipliers default to 1, cooldown to 5 minutes
	require.True(t, second.SizeMultiplier.Equal(decimal.NewFromInt(1)))
	require.True(t, second.DeviationMultiplier.Equal(decimal.NewFromInt(1)))
	require.Equal(t, 5*time.Minute, second.Cooldown)
}

func TestGet_Defaults(t *testing.T) {
	path := writeConfig(t, `
bots:
  - pair: BTC_USDT
    base_order_amount: "100"
    safety_order_amount: "50"
    max_safety_orders: 3
    price_deviation: "2"
    take_profit: "1.5"
`)

	cfg, err := Get(path)
	require.NoError(t, err)
	require.Equal(t, "martingale.db", cfg.LedgerPath)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, 10*time.Second, cfg.PollInterval)
	require.Equal(t, "binance", cfg.Bots[0].Exchange)
}

func TestGet_NoBots(t *testing.T) {
	path := writeConfig(t, `listen_addr: ":8080"`)

	_, err := Get(path)
	require.Error(t, err)
}

func TestGet_InvalidBot(t *testing.T) {
	cases := map[string]string{
		"bad pair": `
bots:
  - pair: BTCUSDT
    base_order_amount: "100"
    safety_order_amount: "50"
    max_safety_orders: 3
    price_deviation: "2"
    take_profit: "1.5"
`,
		"bad decimal": `
bots:
  - pair: BTC_USDT
    base_order_amount: "a lot"
    safety_order_amount: "50"
    max_safety_orders: 3
    price_deviation: "2"
    take_profit: "1.5"
`,
		"negative take profit": `
bots:
  - pair: BTC_USDT
    base_order_amount: "100"
    safety_order_amount: "50"
    max_safety_orders: 3
    price_deviation: "2"
    take_profit: "-1"
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Get(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}
