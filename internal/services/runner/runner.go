// Package runner supervises the bots: first cycle start, cooldown restarts
// after completed cycles, stop requests and the fill monitor lifecycle.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/martingale/internal/domain"
	"github.com/vadiminshakov/martingale/internal/services/monitor"
	"github.com/vadiminshakov/martingale/internal/services/orchestrator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownBot is returned for operations on a bot the supervisor does not manage.
var ErrUnknownBot = errors.New("unknown bot")

// Supervisor runs every configured bot. Bots are independent and proceed in
// parallel; per-cycle serialization is the orchestrator's concern.
type Supervisor struct {
	orch    *orchestrator.Orchestrator
	monitor *monitor.Monitor
	logger  *zap.Logger

	mu   sync.RWMutex
	bots map[int64]*domain.Bot

	wg sync.WaitGroup
}

// NewSupervisor creates a supervisor over the given bots. The monitor is
// constructed by the caller with the supervisor as its bot source.
func NewSupervisor(orch *orchestrator.Orchestrator, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		orch:   orch,
		logger: logger,
		bots:   make(map[int64]*domain.Bot),
	}
}

// SetMonitor attaches the fill monitor whose lifecycle the supervisor owns.
func (s *Supervisor) SetMonitor(m *monitor.Monitor) {
	s.monitor = m
}

// AddBot registers a bot with the supervisor.
func (s *Supervisor) AddBot(bot *domain.Bot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots[bot.ID] = bot
}

// ActiveBots returns a snapshot of the bots currently flagged active.
func (s *Supervisor) ActiveBots() []*domain.Bot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]*domain.Bot, 0, len(s.bots))
	for _, bot := range s.bots {
		if bot.Active {
			active = append(active, bot)
		}
	}
	return active
}

// StopBot deactivates the bot and cancels the resting orders of its active
// cycle. Stop wins races with the fill monitor: the flag flips under the same
// per-bot lock fills are handled under.
func (s *Supervisor) StopBot(ctx context.Context, botID int64) error {
	s.mu.RLock()
	bot, ok := s.bots[botID]
	s.mu.RUnlock()
	if !ok {
		return ErrUnknownBot
	}

	return s.orch.Stop(ctx, bot)
}

// Run starts every active bot's first cycle, the fill monitor and the
// cooldown dispatcher, and blocks until the context is cancelled. Shutdown is
// deterministic: every cooldown timer and the monitor stop with the context.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if s.monitor != nil {
		g.Go(func() error {
			if err := s.monitor.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	for _, bot := range s.ActiveBots() {
		s.startCycle(ctx, bot)
	}

	g.Go(func() error {
		s.dispatchCompletions(ctx)
		return nil
	})

	err := g.Wait()
	s.wg.Wait()
	return err
}

// startCycle opens a cycle for the bot; a failure is logged and leaves the
// bot without a cycle for this attempt (no automatic retry).
func (s *Supervisor) startCycle(ctx context.Context, bot *domain.Bot) {
	cycle, err := s.orch.StartCycle(ctx, bot)
	if err != nil {
		if errors.Is(err, orchestrator.ErrBotInactive) {
			s.logger.Info("bot deactivated before cycle start", zap.Int64("bot", bot.ID))
			return
		}
		s.logger.Error("cycle start failed", zap.Int64("bot", bot.ID), zap.Error(err))
		return
	}

	s.logger.Info("cycle running",
		zap.Int64("bot", bot.ID),
		zap.Int64("cycle", cycle.ID),
		zap.Int("number", cycle.Number))
}

// dispatchCompletions schedules a cooldown restart for every completed cycle.
func (s *Supervisor) dispatchCompletions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case completion := <-s.orch.Completions():
			bot := completion.Bot
			s.logger.Info("scheduling next cycle after cooldown",
				zap.Int64("bot", bot.ID),
				zap.Duration("cooldown", bot.Cooldown),
				zap.String("profit", completion.Profit.String()))

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				select {
				case <-ctx.Done():
				case <-time.After(bot.Cooldown):
					// StartCycle re-checks the active flag under the bot lock
					s.startCycle(ctx, bot)
				}
			}()
		}
	}
}
