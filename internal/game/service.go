package game

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"

	"galactic-server/internal/catalog"
	"galactic-server/internal/empire"
	"galactic-server/internal/fleet"
	"galactic-server/internal/galaxy"
	"galactic-server/internal/job"
	"galactic-server/internal/player"
	"galactic-server/internal/random"
	"galactic-server/internal/shared/config"
	"galactic-server/internal/shared/database"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/shared/lock"
	"galactic-server/internal/system"

	"github.com/google/uuid"
)

// random streams derived from a game's seed; galaxy clusters use 0..n
const homeworldStream = 1 << 32

type Service struct {
	store    *Store
	galaxy   *galaxy.Service
	resolver *job.Resolver
	players  *player.Service
	reg      *catalog.Registry
	locker   lock.Locker
	defaults config.GalaxyConfig
	logger   *slog.Logger
}

func NewService(
	store *Store,
	galaxyService *galaxy.Service,
	resolver *job.Resolver,
	players *player.Service,
	reg *catalog.Registry,
	locker lock.Locker,
	defaults config.GalaxyConfig,
	logger *slog.Logger,
) *Service {
	logger.Debug("Initializing game service")

	return &Service{
		store:    store,
		galaxy:   galaxyService,
		resolver: resolver,
		players:  players,
		reg:      reg,
		locker:   locker,
		defaults: defaults,
		logger:   logger,
	}
}

// withLock runs fn while holding the game's lock. A busy game yields a
// Conflict error.
func (s *Service) withLock(ctx context.Context, gameID string, fn func() error) error {
	release, err := s.locker.TryAcquire(ctx, gameID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (s *Service) GetGame(ctx context.Context, gameID string) (*Game, error) {
	return s.store.Games.GetGameByID(ctx, gameID)
}

// Status returns the game with its members.
func (s *Service) Status(ctx context.Context, gameID string) (*Status, error) {
	g, err := s.store.Games.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.Games.ListMembers(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []*Member{}
	}
	return &Status{Game: g, Members: members}, nil
}

// CreateGame creates an unstarted game owned by ownerID.
func (s *Service) CreateGame(ctx context.Context, ownerID string, req CreateRequest) (*Game, error) {
	logger := s.logger.With("component", "game_service", "operation", "create_game", "owner", ownerID)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("game name is required")
	}
	if !req.Speed.Valid() {
		return nil, apperrors.Validationf("invalid speed %d", req.Speed)
	}
	settings := DefaultSettings(s.defaults)
	if req.Settings != nil {
		settings = *req.Settings
	}

	seed, err := random.NewSeed()
	if err != nil {
		return nil, apperrors.WrapInternal("failed to seed game", err)
	}
	g := &Game{
		ID:       uuid.NewString(),
		Name:     name,
		Owner:    ownerID,
		Speed:    req.Speed,
		Seed:     seed,
		Settings: settings,
		Version:  1,
	}
	// reject settings the generator cannot honour before anything is stored
	if err := g.Settings.Options(seed).Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Games.CreateGame(ctx, g, nil); err != nil {
		logger.Error("Failed to create game", "error", err)
		return nil, err
	}
	logger.Info("Game created successfully", "game_id", g.ID, "name", g.Name)
	return g, nil
}

// Join seats userID in the game with a new empire. In a running game the
// empire is settled on a homeworld right away.
func (s *Service) Join(ctx context.Context, gameID, userID string, req empire.CreateRequest) (*empire.Empire, error) {
	logger := s.logger.With("component", "game_service", "operation", "join", "game_id", gameID, "user_id", userID)

	var created *empire.Empire
	err := s.withLock(ctx, gameID, func() error {
		g, err := s.store.Games.GetGameByID(ctx, gameID)
		if err != nil {
			return err
		}
		if _, err := s.store.Games.GetMember(ctx, gameID, userID); err == nil {
			return apperrors.Validationf("user %s already joined game %s", userID, gameID)
		} else if !apperrors.Is(err, apperrors.ErrorTypeNotFound) {
			return err
		}

		if _, err := s.players.GetPlayerByID(ctx, userID); err != nil {
			return err
		}

		e, err := empire.New(s.reg, gameID, userID, req)
		if err != nil {
			return err
		}

		var home *system.System
		var fl *fleet.Fleet
		if g.Started {
			systems, err := s.store.Systems.ListByGames(ctx, []string{gameID})
			if err != nil {
				return err
			}
			src, err := random.NewProduction()
			if err != nil {
				return apperrors.WrapInternal("failed to seed homeworld", err)
			}
			home, fl, err = s.settle(e, systems, src)
			if err != nil {
				return err
			}
		}

		err = s.store.db.WithTx(ctx, func(tx *database.Tx) error {
			if err := s.store.Empires.Create(ctx, e, tx); err != nil {
				return err
			}
			if err := s.store.Games.AddMember(ctx, &Member{GameID: gameID, UserID: userID, Empire: e.ID}, tx); err != nil {
				return err
			}
			if home == nil {
				return nil
			}
			if err := s.store.Systems.Save(ctx, home, tx); err != nil {
				return err
			}
			return s.store.Fleets.Create(ctx, fl, tx)
		})
		if err != nil {
			return err
		}
		created = e
		return nil
	})
	if err != nil {
		logger.Warn("Failed to join game", "error", err)
		return nil, err
	}

	logger.Info("User joined game", "empire_id", created.ID, "home_system", created.HomeSystem)
	return created, nil
}

// StartGame generates the galaxy, settles every joined empire on a
// homeworld and marks the game started.
func (s *Service) StartGame(ctx context.Context, gameID string) (*Game, error) {
	logger := s.logger.With("component", "game_service", "operation", "start_game", "game_id", gameID)
	logger.Info("Starting game")

	var started *Game
	err := s.withLock(ctx, gameID, func() error {
		g, err := s.store.Games.GetGameByID(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Started {
			return apperrors.Validationf("game %s already started", gameID)
		}

		gal, err := s.galaxy.Generate(ctx, g.ID, g.Settings.Options(g.Seed))
		if err != nil {
			return err
		}
		empires, err := s.store.Empires.ListByGames(ctx, []string{g.ID})
		if err != nil {
			return err
		}

		src := random.Derive(g.Seed, homeworldStream)
		fleets := make([]*fleet.Fleet, 0, len(empires))
		for _, e := range empires {
			_, fl, err := s.settle(e, gal.Systems, src)
			if err != nil {
				return err
			}
			fleets = append(fleets, fl)
		}

		g.Started = true
		if g.Speed == SpeedPaused {
			g.Speed = SpeedSlow
		}

		err = s.store.db.WithTx(ctx, func(tx *database.Tx) error {
			if err := s.store.Systems.CreateSystems(ctx, gal.Systems, tx); err != nil {
				return err
			}
			for _, e := range empires {
				if err := s.store.Empires.Save(ctx, e, tx); err != nil {
					return err
				}
			}
			for _, fl := range fleets {
				if err := s.store.Fleets.Create(ctx, fl, tx); err != nil {
					return err
				}
			}
			return s.store.Games.SaveGame(ctx, g, tx)
		})
		if err != nil {
			return err
		}
		started = g

		logger.Info("Game started",
			"systems", len(gal.Systems),
			"clusters", len(gal.Clusters),
			"empires", len(empires))
		return nil
	})
	if err != nil {
		logger.Error("Failed to start game", "error", err)
		return nil, err
	}
	return started, nil
}

// SetSpeed changes the cadence a game is ticked at; SpeedPaused stops it.
func (s *Service) SetSpeed(ctx context.Context, gameID string, speed Speed) (*Game, error) {
	if !speed.Valid() {
		return nil, apperrors.Validationf("invalid speed %d", speed)
	}
	var updated *Game
	err := s.withLock(ctx, gameID, func() error {
		g, err := s.store.Games.GetGameByID(ctx, gameID)
		if err != nil {
			return err
		}
		g.Speed = speed
		if err := s.store.Games.SaveGame(ctx, g, nil); err != nil {
			return err
		}
		updated = g
		return nil
	})
	return updated, err
}

// settle picks a homeworld for e among systems, settles it and returns it
// with the empire's starting fleet.
func (s *Service) settle(e *empire.Empire, systems []*system.System, src random.Source) (*system.System, *fleet.Fleet, error) {
	home := pickHomeworld(s.reg, systems, src)
	if home == nil {
		return nil, nil, apperrors.Validation("no free system left for a homeworld")
	}

	vars, err := e.Variables(s.reg)
	if err != nil {
		return nil, nil, err
	}
	if err := system.SettleHomeworld(s.reg, home, vars, src, e.ID); err != nil {
		return nil, nil, err
	}
	e.HomeSystem = home.ID
	e.SetPopulation(home.Population)

	fl := &fleet.Fleet{
		ID:       uuid.NewString(),
		GameID:   e.GameID,
		EmpireID: e.ID,
		Location: home.ID,
		Ships:    map[string]int{system.ShipScience: 1, system.ShipColony: 1},
	}
	return home, fl, nil
}

// pickHomeworld returns the free colonizable system farthest from every
// owned system, or nil when none is left.
func pickHomeworld(reg *catalog.Registry, systems []*system.System, src random.Source) *system.System {
	var candidates, owned []*system.System
	for _, sys := range systems {
		if sys.Owner != "" {
			owned = append(owned, sys)
			continue
		}
		st, err := reg.SystemType(sys.Type)
		if err != nil || !st.Colonizable || sys.Upgrade != catalog.Unexplored {
			continue
		}
		candidates = append(candidates, sys)
	}
	if len(candidates) == 0 {
		return nil
	}
	candidates = slices.Clone(candidates)
	random.Shuffle(src, candidates)

	best, bestDist := candidates[0], -1.0
	for _, c := range candidates {
		d := math.Inf(1)
		for _, o := range owned {
			d = min(d, math.Hypot(c.X-o.X, c.Y-o.Y))
		}
		if d > bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
