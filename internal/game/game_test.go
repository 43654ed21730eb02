package game

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"galactic-server/internal/catalog"
	"galactic-server/internal/economy"
	"galactic-server/internal/empire"
	"galactic-server/internal/galaxy"
	"galactic-server/internal/job"
	"galactic-server/internal/player"
	"galactic-server/internal/random"
	"galactic-server/internal/shared/config"
	"galactic-server/internal/shared/database"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/shared/lock"
	"galactic-server/internal/snapshot"
	"galactic-server/internal/system"
)

type fixture struct {
	svc     *Service
	players *player.Service
	ticker  *Ticker
	store   *Store
	locker  *lock.Memory
	reg     *catalog.Registry
}

func newFixture(t *testing.T, archiveDir string) *fixture {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "game.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := catalog.MustDefault()
	store := NewStore(db, logger)
	players := player.NewService(store.Players, logger)
	resolver := job.NewResolver(reg, logger)
	locker := lock.NewMemory()
	defaults := config.GalaxyConfig{
		DefaultSize:        20,
		ClusterSize:        10,
		DefaultSpacing:     50,
		CyclePercentage:    0.2,
		CollisionPrecision: 1.2,
	}

	return &fixture{
		svc:     NewService(store, galaxy.NewService(reg, logger), resolver, players, reg, locker, defaults, logger),
		players: players,
		ticker:  NewTicker(store, economy.NewSimulator(reg, logger), resolver, reg, locker, snapshot.NewArchive(archiveDir, logger), logger),
		store:   store,
		locker:  locker,
		reg:     reg,
	}
}

// startedGame creates a game with two joined players and starts it.
func (f *fixture) startedGame(t *testing.T) (*Game, []*empire.Empire) {
	t.Helper()
	ctx := context.Background()

	g, err := f.svc.CreateGame(ctx, "u1", CreateRequest{Name: "Andromeda"})
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	var empires []*empire.Empire
	for _, user := range []string{"u1", "u2"} {
		if _, err := f.players.EnsurePlayer(ctx, user, ""); err != nil {
			t.Fatalf("EnsurePlayer: %v", err)
		}
		e, err := f.svc.Join(ctx, g.ID, user, empire.CreateRequest{Name: "Empire of " + user})
		if err != nil {
			t.Fatalf("Join %s: %v", user, err)
		}
		empires = append(empires, e)
	}
	g, err = f.svc.StartGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return g, empires
}

func TestCreateGame_Validation(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"empty name", CreateRequest{Name: "  "}},
		{"bad speed", CreateRequest{Name: "x", Speed: 7}},
		{"oversized clusters", CreateRequest{Name: "x", Settings: &Settings{
			Size: 200, ClusterSize: 200, Spacing: 50, CyclePercentage: 0.2, CollisionPrecision: 1.2,
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateGame(ctx, "u1", tt.req)
			if !apperrors.Is(err, apperrors.ErrorTypeValidation) {
				t.Fatalf("got %v, want validation error", err)
			}
		})
	}
}

func TestStartGame_SettlesEveryEmpire(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	g, empires := f.startedGame(t)

	if !g.Started || g.Speed != SpeedSlow {
		t.Fatalf("game started=%v speed=%d", g.Started, g.Speed)
	}
	systems, err := f.store.Systems.ListByGames(ctx, []string{g.ID})
	if err != nil {
		t.Fatalf("ListByGames: %v", err)
	}
	if len(systems) != 20 {
		t.Fatalf("got %d systems, want 20", len(systems))
	}

	homes := make(map[string]bool)
	for _, joined := range empires {
		e, err := f.store.Empires.GetByID(ctx, g.ID, joined.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if e.HomeSystem == "" {
			t.Fatalf("empire %s has no homeworld", e.ID)
		}
		if homes[e.HomeSystem] {
			t.Fatalf("homeworld %s given twice", e.HomeSystem)
		}
		homes[e.HomeSystem] = true

		home, err := f.store.Systems.GetByID(ctx, g.ID, e.HomeSystem)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if !home.OwnedBy(e.ID) {
			t.Fatalf("homeworld owner = %q, want %q", home.Owner, e.ID)
		}
		if e.Population() != home.Population {
			t.Fatalf("population %v, homeworld holds %v", e.Population(), home.Population)
		}
		fleets, err := f.store.Fleets.ListAt(ctx, g.ID, home.ID)
		if err != nil || len(fleets) != 1 {
			t.Fatalf("fleets at home = %d, %v", len(fleets), err)
		}
	}

	if _, err := f.svc.StartGame(ctx, g.ID); !apperrors.Is(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("second start: got %v, want validation error", err)
	}
}

func TestJoin_RejectsDuplicateAndSettlesLateJoiners(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	g, _ := f.startedGame(t)

	if _, err := f.svc.Join(ctx, g.ID, "u1", empire.CreateRequest{Name: "Again"}); !apperrors.Is(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("duplicate join: got %v, want validation error", err)
	}

	if _, err := f.players.EnsurePlayer(ctx, "u3", "late"); err != nil {
		t.Fatalf("EnsurePlayer: %v", err)
	}
	e, err := f.svc.Join(ctx, g.ID, "u3", empire.CreateRequest{Name: "Latecomers"})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if e.HomeSystem == "" {
		t.Fatalf("late joiner was not settled")
	}
	member, err := f.store.Games.GetMember(ctx, g.ID, "u3")
	if err != nil || member.Empire != e.ID {
		t.Fatalf("member = %+v, %v", member, err)
	}
}

func TestCommands_RequireOwnership(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	g, empires := f.startedGame(t)

	intruder := Actor{UserID: "u2"}
	_, err := f.svc.CreateJob(ctx, intruder, g.ID, empires[0].ID, job.Request{Type: job.TypeTechnology, Technology: "improved_production_1"})
	if !apperrors.Is(err, apperrors.ErrorTypeForbidden) {
		t.Fatalf("got %v, want forbidden", err)
	}

	admin := Actor{UserID: "root", Admin: true}
	if _, err := f.svc.ExplainVariable(ctx, admin, g.ID, empires[0].ID, "empire.pop.consumption.food"); err != nil {
		t.Fatalf("admin explain: %v", err)
	}
}

func TestCommands_BusyGameConflicts(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	g, empires := f.startedGame(t)

	release, err := f.locker.TryAcquire(ctx, g.ID)
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	defer release()

	_, err = f.svc.CreateJob(ctx, Actor{UserID: "u1"}, g.ID, empires[0].ID, job.Request{Type: job.TypeTechnology, Technology: "improved_production_1"})
	if !apperrors.Is(err, apperrors.ErrorTypeConflict) {
		t.Fatalf("create job: got %v, want conflict", err)
	}
	if _, err := f.ticker.Tick(ctx, g); !apperrors.Is(err, apperrors.ErrorTypeConflict) {
		t.Fatalf("tick: got %v, want conflict", err)
	}
}

func TestCancelJob_Refunds(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	g, empires := f.startedGame(t)
	owner := Actor{UserID: "u1"}

	before, err := f.store.Empires.GetByID(ctx, g.ID, empires[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	j, err := f.svc.CreateJob(ctx, owner, g.ID, empires[0].ID, job.Request{Type: job.TypeTechnology, Technology: "improved_production_1"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := f.svc.CancelJob(ctx, owner, g.ID, empires[0].ID, j.ID); err != nil {
		t.Fatalf("CancelJob: %v", err)
	}

	after, err := f.store.Empires.GetByID(ctx, g.ID, empires[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if after.Resources.Get(catalog.Research) != before.Resources.Get(catalog.Research) {
		t.Fatalf("research %v, want %v", after.Resources.Get(catalog.Research), before.Resources.Get(catalog.Research))
	}
	if _, err := f.store.Jobs.GetByID(ctx, g.ID, j.ID); !apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("job still stored: %v", err)
	}
}

func TestTicker_CompletesResearch(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir)
	ctx := context.Background()
	g, empires := f.startedGame(t)

	j, err := f.svc.CreateJob(ctx, Actor{UserID: "u1"}, g.ID, empires[0].ID, job.Request{Type: job.TypeTechnology, Technology: "improved_production_1"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	for i := 0; i < int(j.Total); i++ {
		g, err = f.svc.GetGame(ctx, g.ID)
		if err != nil {
			t.Fatalf("GetGame: %v", err)
		}
		res, err := f.ticker.Tick(ctx, g)
		if err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
		if res.Period != int64(i+1) {
			t.Fatalf("period = %d, want %d", res.Period, i+1)
		}
	}

	e, err := f.store.Empires.GetByID(ctx, g.ID, empires[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !e.HasTechnology("improved_production_1") {
		t.Fatalf("technology not unlocked after %v periods", j.Total)
	}
	u, err := f.players.GetPlayerByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetPlayerByID: %v", err)
	}
	if u.Technologies["improved_production_1"] != 1 {
		t.Fatalf("user unlock count = %d, want 1", u.Technologies["improved_production_1"])
	}
	if _, err := f.store.Jobs.GetByID(ctx, g.ID, j.ID); !apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		t.Fatalf("finished job still stored: %v", err)
	}

	var state State
	header, err := snapshot.Read(snapshot.NewArchive(dir, slog.Default()).Path(g.ID, int64(j.Total)), &state)
	if err != nil {
		t.Fatalf("Read snapshot: %v", err)
	}
	if header.EmpireCount != 2 || len(state.Empires) != 2 {
		t.Fatalf("snapshot header %+v, %d empires", header, len(state.Empires))
	}
}

func TestTicker_ArchiveFailureKeepsTick(t *testing.T) {
	// a regular file where the archive directory should be
	blocked := filepath.Join(t.TempDir(), "archive")
	if err := os.WriteFile(blocked, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, blocked)
	ctx := context.Background()
	g, _ := f.startedGame(t)

	res, err := f.ticker.Tick(ctx, g)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if res.Period != 1 {
		t.Fatalf("period = %d, want 1", res.Period)
	}
	stored, err := f.svc.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if stored.Period != 1 {
		t.Fatalf("stored period = %d, want 1", stored.Period)
	}
}

func TestTicker_StaleGameConflicts(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	g, _ := f.startedGame(t)

	stale := *g
	if _, err := f.ticker.Tick(ctx, g); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if _, err := f.ticker.Tick(ctx, &stale); !apperrors.Is(err, apperrors.ErrorTypeConflict) {
		t.Fatalf("stale tick: got %v, want conflict", err)
	}
	if stale.Period != g.Period-1 {
		t.Fatalf("stale period = %d, want it rolled back to %d", stale.Period, g.Period-1)
	}
}

func TestPickHomeworld_PrefersDistance(t *testing.T) {
	reg := catalog.MustDefault()
	var colonizable string
	for _, st := range reg.SystemTypes() {
		if st.Colonizable {
			colonizable = st.ID
			break
		}
	}

	owned := system.New("owned", "g", "Sol", colonizable, 10)
	owned.Owner = "someone"
	near := system.New("near", "g", "Vega", colonizable, 10)
	near.X = 10
	far := system.New("far", "g", "Rigel", colonizable, 10)
	far.X = 500

	for seed := int64(0); seed < 10; seed++ {
		got := pickHomeworld(reg, []*system.System{owned, near, far}, random.New(seed))
		if got != far {
			t.Fatalf("seed %d: picked %s, want far", seed, got.ID)
		}
	}
	if got := pickHomeworld(reg, []*system.System{owned}, random.New(1)); got != nil {
		t.Fatalf("picked %s with no free system", got.ID)
	}
}

func TestScheduler_TicksOnlyMatchingSpeed(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	g, _ := f.startedGame(t)

	sched := NewScheduler(f.store, f.ticker, config.SimulationConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sched.TickSpeed(ctx, SpeedFast)
	got, err := f.svc.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got.Period != 0 {
		t.Fatalf("fast cadence ticked a slow game")
	}

	sched.TickSpeed(ctx, SpeedSlow)
	got, err = f.svc.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got.Period != 1 {
		t.Fatalf("period = %d, want 1", got.Period)
	}
}
