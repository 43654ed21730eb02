package game

import (
	"context"
	"log/slog"

	"galactic-server/internal/empire"
	"galactic-server/internal/fleet"
	"galactic-server/internal/job"
	"galactic-server/internal/player"
	"galactic-server/internal/shared/database"
	"galactic-server/internal/system"
)

// Store bundles the per-aggregate repositories and writes whole tick
// results in one transaction.
type Store struct {
	db      *database.DB
	Games   *Repository
	Empires *empire.Repository
	Systems *system.Repository
	Jobs    *job.Repository
	Fleets  *fleet.Repository
	Players *player.Repository
	logger  *slog.Logger
}

func NewStore(db *database.DB, logger *slog.Logger) *Store {
	return &Store{
		db:      db,
		Games:   NewRepository(db, logger),
		Empires: empire.NewRepository(db, logger),
		Systems: system.NewRepository(db, logger),
		Jobs:    job.NewRepository(db, logger),
		Fleets:  fleet.NewRepository(db, logger),
		Players: player.NewRepository(db, logger),
		logger:  logger,
	}
}

// Batch is everything one tick changed in one game.
type Batch struct {
	Game    *Game
	Empires []*empire.Empire
	Systems []*system.System
	// Progressed jobs are rewritten, Finished ones deleted.
	Progressed []*job.Job
	Finished   []*job.Job
	Players    []*player.Player
}

// SaveTick writes b atomically. Every aggregate is written with its version
// check, so a concurrent change aborts the whole batch with a Conflict.
func (s *Store) SaveTick(ctx context.Context, b Batch) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, e := range b.Empires {
			if err := s.Empires.Save(ctx, e, tx); err != nil {
				return err
			}
		}
		for _, sys := range b.Systems {
			if err := s.Systems.Save(ctx, sys, tx); err != nil {
				return err
			}
		}
		for _, j := range b.Progressed {
			if err := s.Jobs.UpdateProgress(ctx, j, tx); err != nil {
				return err
			}
		}
		for _, j := range b.Finished {
			if err := s.Jobs.Delete(ctx, j.ID, tx); err != nil {
				return err
			}
		}
		for _, p := range b.Players {
			if err := s.Players.SavePlayer(ctx, p, tx); err != nil {
				return err
			}
		}
		return s.Games.SaveGame(ctx, b.Game, tx)
	})
}
