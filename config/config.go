// Package config loads the application and bot configuration from yaml.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martingale/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	defaultLedgerPath   = "martingale.db"
	defaultListenAddr   = ":8080"
	defaultPollInterval = 10 * time.Second
	defaultCooldown     = 5 * time.Minute
)

// Config is the parsed application configuration.
type Config struct {
	LedgerPath   string
	ListenAddr   string
	PollInterval time.Duration
	Bots         []*domain.Bot
}

type configTmp struct {
	LedgerPath   string        `yaml:"ledger_path,omitempty"`
	ListenAddr   string        `yaml:"listen_addr,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	Bots         []botTmp      `yaml:"bots"`
}

type botTmp struct {
	Exchange            string        `yaml:"exchange"`
	Pair                string        `yaml:"pair"`
	Direction           string        `yaml:"direction,omitempty"`
	BaseOrderAmount     string        `yaml:"base_order_amount"`
	SafetyOrderAmount   string        `yaml:"safety_order_amount"`
	SizeMultiplier      string        `yaml:"size_multiplier,omitempty"`
	MaxSafetyOrders     int           `yaml:"max_safety_orders"`
	PriceDeviation      string        `yaml:"price_deviation"`
	DeviationMultiplier string        `yaml:"deviation_multiplier,omitempty"`
	TakeProfit          string        `yaml:"take_profit"`
	Cooldown            time.Duration `yaml:"cooldown,omitempty"`
}

// Get reads and validates the yaml config at path.
func Get(path string) (*Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return nil, fmt.Errorf("failed to parse yaml config: %w", err)
	}
	if len(tmp.Bots) == 0 {
		return nil, fmt.Errorf("config has no bots")
	}

	cfg := &Config{
		LedgerPath:   tmp.LedgerPath,
		ListenAddr:   tmp.ListenAddr,
		PollInterval: tmp.PollInterval,
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = defaultLedgerPath
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	for i, b := range tmp.Bots {
		bot, err := parseBot(int64(i+1), b)
		if err != nil {
			return nil, fmt.Errorf("invalid bot %d in yaml config: %w", i+1, err)
		}
		cfg.Bots = append(cfg.Bots, bot)
	}

	return cfg, nil
}

func parseBot(id int64, b botTmp) (*domain.Bot, error) {
	pair, err := domain.PairFromString(b.Pair)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'pair' param: %w", err)
	}

	direction := domain.DirectionLong
	if b.Direction != "" {
		if direction, err = domain.DirectionFromString(b.Direction); err != nil {
			return nil, fmt.Errorf("incorrect 'direction' param: %w", err)
		}
	}

	baseAmount, err := decimal.NewFromString(b.BaseOrderAmount)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'base_order_amount' param (must be a decimal): %w", err)
	}
	safetyAmount, err := decimal.NewFromString(b.SafetyOrderAmount)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'safety_order_amount' param (must be a decimal): %w", err)
	}

	sizeMultiplier := decimal.NewFromInt(1)
	if b.SizeMultiplier != "" {
		if sizeMultiplier, err = decimal.NewFromString(b.SizeMultiplier); err != nil {
			return nil, fmt.Errorf("incorrect 'size_multiplier' param (must be a decimal): %w", err)
		}
	}

	deviation, err := decimal.NewFromString(b.PriceDeviation)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'price_deviation' param (must be a decimal): %w", err)
	}

	deviationMultiplier := decimal.NewFromInt(1)
	if b.DeviationMultiplier != "" {
		if deviationMultiplier, err = decimal.NewFromString(b.DeviationMultiplier); err != nil {
			return nil, fmt.Errorf("incorrect 'deviation_multiplier' param (must be a decimal): %w", err)
		}
	}

	takeProfit, err := decimal.NewFromString(b.TakeProfit)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'take_profit' param (must be a decimal): %w", err)
	}

	cooldown := b.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	exchange := b.Exchange
	if exchange == "" {
		exchange = "binance"
	}

	bot, err := domain.NewBot(id, exchange, pair, direction, baseAmount, safetyAmount,
		sizeMultiplier, b.MaxSafetyOrders, deviation, deviationMultiplier, takeProfit, cooldown)
	if err != nil {
		return nil, err
	}
	bot.Active = true

	return bot, nil
}
