package game

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"galactic-server/internal/catalog"
	"galactic-server/internal/economy"
	"galactic-server/internal/empire"
	"galactic-server/internal/job"
	"galactic-server/internal/random"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/shared/lock"
	"galactic-server/internal/shared/telemetry"
	"galactic-server/internal/snapshot"
	"galactic-server/internal/system"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// tick streams start past the homeworld stream; one per period
const tickStream = homeworldStream + 1

// Ticker advances one game by one period.
type Ticker struct {
	store    *Store
	sim      *economy.Simulator
	resolver *job.Resolver
	reg      *catalog.Registry
	locker   lock.Locker
	archive  *snapshot.Archive
	logger   *slog.Logger
}

func NewTicker(store *Store, sim *economy.Simulator, resolver *job.Resolver, reg *catalog.Registry, locker lock.Locker, archive *snapshot.Archive, logger *slog.Logger) *Ticker {
	logger.Debug("Initializing game ticker")

	return &Ticker{
		store:    store,
		sim:      sim,
		resolver: resolver,
		reg:      reg,
		locker:   locker,
		archive:  archive,
		logger:   logger,
	}
}

// State is the full state of a game after a tick, as archived.
type State struct {
	Game    *Game            `json:"game"`
	Empires []*empire.Empire `json:"empires"`
	Systems []*system.System `json:"systems"`
	Jobs    []*job.Job       `json:"jobs"`
}

// TickResult summarises one tick.
type TickResult struct {
	Period    int64
	Empires   int
	Completed int
}

// Tick runs the economy and job progression for every empire of g, then
// stores the result and increments the period. It returns a Conflict error
// when the game is locked or was modified in the meantime; the game is then
// picked up again on the next cadence.
func (t *Ticker) Tick(ctx context.Context, g *Game) (TickResult, error) {
	logger := t.logger.With("component", "game_ticker", "operation", "tick", "game_id", g.ID, "period", g.Period)

	release, err := t.locker.TryAcquire(ctx, g.ID)
	if err != nil {
		return TickResult{}, err
	}
	defer release()

	ctx, span := telemetry.Tracer().Start(ctx, "game.tick")
	defer span.End()
	span.SetAttributes(attribute.String("game.id", g.ID), attribute.Int64("game.period", g.Period))

	result, err := t.tick(ctx, g)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tick failed")
		return result, err
	}

	logger.Debug("Game ticked", "empires", result.Empires, "completed_jobs", result.Completed)
	return result, nil
}

func (t *Ticker) tick(ctx context.Context, g *Game) (TickResult, error) {
	gameIDs := []string{g.ID}
	empires, err := t.store.Empires.ListByGames(ctx, gameIDs)
	if err != nil {
		return TickResult{}, err
	}
	systems, err := t.store.Systems.ListByGames(ctx, gameIDs)
	if err != nil {
		return TickResult{}, err
	}
	jobs, err := t.store.Jobs.List(ctx, job.Filter{GameIDs: gameIDs})
	if err != nil {
		return TickResult{}, err
	}

	byID := make(map[string]*system.System, len(systems))
	for _, s := range systems {
		byID[s.ID] = s
	}
	jobsByEmpire := make(map[string][]*job.Job)
	for _, j := range jobs {
		jobsByEmpire[j.EmpireID] = append(jobsByEmpire[j.EmpireID], j)
	}

	src := random.Derive(g.Seed, tickStream+uint64(g.Period))
	batch := Batch{Game: g, Empires: empires}
	touched := make(map[string]bool)
	result := TickResult{Empires: len(empires)}

	slices.SortFunc(empires, func(a, b *empire.Empire) int { return cmp.Compare(a.ID, b.ID) })
	for _, e := range empires {
		var owned []*system.System
		for _, s := range systems {
			if s.OwnedBy(e.ID) {
				owned = append(owned, s)
				touched[s.ID] = true
			}
		}

		_, vars, err := t.sim.Tick(e, owned)
		if err != nil {
			return result, err
		}

		before := len(e.Technologies)
		progressed, finished := job.Step(jobsByEmpire[e.ID])
		result.Completed += t.resolver.Finish(finished, e, byID, vars, src)
		for _, j := range finished {
			if j.System != "" {
				touched[j.System] = true
			}
		}
		for _, j := range progressed {
			if !j.Done() {
				batch.Progressed = append(batch.Progressed, j)
			}
		}
		batch.Finished = append(batch.Finished, finished...)

		if learned := e.Technologies[before:]; len(learned) > 0 {
			p, err := t.store.Players.GetPlayerByID(ctx, e.UserID)
			if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
				continue
			}
			if err != nil {
				return result, err
			}
			p.RecordUnlocks(learned)
			batch.Players = append(batch.Players, p)
		}
	}

	for _, s := range systems {
		if touched[s.ID] {
			batch.Systems = append(batch.Systems, s)
		}
	}

	g.Period++
	if err := t.store.SaveTick(ctx, batch); err != nil {
		g.Period--
		return result, err
	}
	result.Period = g.Period

	if t.archive != nil {
		remaining := slices.DeleteFunc(jobs, func(j *job.Job) bool { return j.Done() })
		err := t.archive.Write(snapshot.Snapshot{
			Header: snapshot.Header{
				GameID:        g.ID,
				Period:        g.Period,
				CatalogDigest: t.reg.Digest(),
				CreatedAtUnix: time.Now().Unix(),
				EmpireCount:   len(empires),
				SystemCount:   len(systems),
				JobCount:      len(remaining),
			},
			State: State{Game: g, Empires: empires, Systems: systems, Jobs: remaining},
		})
		// the tick is already committed; only its history is lost
		if err != nil {
			t.logger.Warn("Failed to archive tick",
				"component", "game_ticker",
				"game_id", g.ID,
				"period", g.Period,
				"error", err)
		}
	}
	return result, nil
}
