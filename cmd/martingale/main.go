// Command martingale runs DCA ("martingale") trading bots: each bot opens a
// position with a base order, layers safety orders at growing price
// deviations and tracks a single take-profit order until the cycle closes.
//
// Usage:
//
//	martingale --config config.yaml
//
// Required environment variables:
//
//	For Binance: BINANCE_API_KEY, BINANCE_API_SECRET
//	For Bybit: BYBIT_API_KEY, BYBIT_API_SECRET
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/martingale/config"
	"github.com/vadiminshakov/martingale/internal/domain"
	"github.com/vadiminshakov/martingale/internal/notify"
	"github.com/vadiminshakov/martingale/internal/services/gateway"
	"github.com/vadiminshakov/martingale/internal/services/monitor"
	"github.com/vadiminshakov/martingale/internal/services/orchestrator"
	"github.com/vadiminshakov/martingale/internal/services/runner"
	"github.com/vadiminshakov/martingale/internal/storage"
	"github.com/vadiminshakov/martingale/pkg/retrier"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	cfg, err := config.Get(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ledger, err := storage.NewSQLiteLedger(cfg.LedgerPath, logger)
	if err != nil {
		logger.Fatal("failed to open cycle ledger", zap.Error(err))
	}
	defer ledger.Close()

	gateways, err := buildGateways(cfg.Bots)
	if err != nil {
		logger.Fatal("failed to build exchange gateways", zap.Error(err))
	}

	hub := notify.NewHub(logger)
	defer hub.Close()

	orch := orchestrator.New(ledger, gateways, hub, logger)
	supervisor := runner.NewSupervisor(orch, logger)
	for _, bot := range cfg.Bots {
		supervisor.AddBot(bot)
	}
	supervisor.SetMonitor(monitor.New(ledger, gateways, orch, supervisor, logger, cfg.PollInterval))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := probeExchanges(ctx, gateways, cfg.Bots, logger); err != nil {
		logger.Fatal("exchange connectivity check failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newMux(hub),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("notification endpoint listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("notification endpoint failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("starting bots", zap.Int("count", len(cfg.Bots)))

	if err := supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("supervisor exited with error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func newMux(hub *notify.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// buildGateways creates one gateway per exchange the bots actually use.
func buildGateways(bots []*domain.Bot) (*gateway.Registry, error) {
	registry := gateway.NewRegistry()
	seen := make(map[string]bool)

	for _, bot := range bots {
		if seen[bot.Exchange] {
			continue
		}
		seen[bot.Exchange] = true

		switch bot.Exchange {
		case "binance":
			apiKey := os.Getenv("BINANCE_API_KEY")
			apiSecret := os.Getenv("BINANCE_API_SECRET")
			if apiKey == "" || apiSecret == "" {
				return nil, errors.New("BINANCE_API_KEY and BINANCE_API_SECRET environment variables must be set")
			}
			registry.Register("binance", gateway.NewBinanceGateway(binance.NewClient(apiKey, apiSecret)))
		case "bybit":
			apiKey := os.Getenv("BYBIT_API_KEY")
			apiSecret := os.Getenv("BYBIT_API_SECRET")
			if apiKey == "" || apiSecret == "" {
				return nil, errors.New("BYBIT_API_KEY and BYBIT_API_SECRET environment variables must be set")
			}
			registry.Register("bybit", gateway.NewBybitGateway(bybit.NewClient().WithAuth(apiKey, apiSecret)))
		default:
			return nil, errors.Errorf("unsupported exchange %q", bot.Exchange)
		}
	}

	return registry, nil
}

// probeExchanges verifies price connectivity for every bot pair with bounded
// backoff before any cycle starts.
func probeExchanges(ctx context.Context, gateways *gateway.Registry, bots []*domain.Bot, logger *zap.Logger) error {
	retry := retrier.New(retrier.WithMaxRetries(5), retrier.WithInitialInterval(2*time.Second))

	for _, bot := range bots {
		gw, err := gateways.For(bot.Exchange)
		if err != nil {
			return err
		}

		price, err := retrier.DoWithData(retry, ctx, func(ctx context.Context) (decimal.Decimal, error) {
			return gw.GetPrice(ctx, bot.Pair)
		})
		if err != nil {
			return errors.Wrapf(err, "cannot reach %s for %s", bot.Exchange, bot.Pair.String())
		}

		logger.Info("exchange reachable",
			zap.String("exchange", bot.Exchange),
			zap.String("pair", bot.Pair.String()),
			zap.String("price", price.String()))
	}

	return nil
}
