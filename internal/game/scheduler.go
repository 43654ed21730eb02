package game

import (
	"context"
	"log/slog"
	"time"

	"galactic-server/internal/shared/config"
	apperrors "galactic-server/internal/shared/errors"

	"golang.org/x/sync/errgroup"
)

// games ticked concurrently per cadence
const tickConcurrency = 8

// Scheduler ticks every started game at the cadence of its speed.
type Scheduler struct {
	store     *Store
	ticker    *Ticker
	intervals map[Speed]time.Duration
	logger    *slog.Logger
}

func NewScheduler(store *Store, ticker *Ticker, cfg config.SimulationConfig, logger *slog.Logger) *Scheduler {
	logger.Debug("Initializing game scheduler")

	return &Scheduler{
		store:  store,
		ticker: ticker,
		intervals: map[Speed]time.Duration{
			SpeedSlow:   cfg.SlowInterval,
			SpeedMedium: cfg.MediumInterval,
			SpeedFast:   cfg.FastInterval,
		},
		logger: logger,
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Simulation scheduler started",
		"slow", s.intervals[SpeedSlow],
		"medium", s.intervals[SpeedMedium],
		"fast", s.intervals[SpeedFast])

	g, ctx := errgroup.WithContext(ctx)
	for speed, interval := range s.intervals {
		g.Go(func() error {
			s.loop(ctx, speed, interval)
			return nil
		})
	}
	err := g.Wait()
	s.logger.Info("Simulation scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, speed Speed, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.TickSpeed(ctx, speed)
		}
	}
}

// TickSpeed runs one period of every started game at speed. Failures are
// logged per game and never stop the other games.
func (s *Scheduler) TickSpeed(ctx context.Context, speed Speed) {
	logger := s.logger.With("component", "game_scheduler", "operation", "tick_speed", "speed", int(speed))

	games, err := s.store.Games.ListStartedGames(ctx, speed)
	if err != nil {
		logger.Error("Failed to list games", "error", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(tickConcurrency)
	for _, game := range games {
		g.Go(func() error {
			if _, err := s.ticker.Tick(ctx, game); err != nil {
				if apperrors.Is(err, apperrors.ErrorTypeConflict) {
					logger.Debug("Game busy, skipping period", "game_id", game.ID)
				} else {
					logger.Error("Failed to tick game", "game_id", game.ID, "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}
