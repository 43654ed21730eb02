package spatial

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"galactic-server/internal/fleet"
	"galactic-server/internal/shared/database"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/system"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "spatial.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	for _, stmt := range []string{
		`INSERT INTO users (id, name, created_at) VALUES ('u1', 'one', 0), ('u2', 'two', 0)`,
		`INSERT INTO games (id, name, owner, created_at, updated_at) VALUES ('g1', 'game', 'u1', 0, 0)`,
		`INSERT INTO empires (id, game_id, user_id, body, updated_at) VALUES ('e1', 'g1', 'u1', '{}', 0), ('e2', 'g1', 'u2', '{}', 0)`,
		`INSERT INTO members (game_id, user_id, empire) VALUES ('g1', 'u1', 'e1'), ('g1', 'u2', 'e2')`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	systems := system.NewRepository(db, logger)
	fleets := fleet.NewRepository(db, logger)

	a := system.New("s1", "g1", "Vega", "star", 10)
	a.X, a.Y = -20, 5
	b := system.New("s2", "g1", "Rigel", "star", 10)
	b.X, b.Y = 40, -15
	system.Link(a, b, 63)
	if err := systems.CreateSystems(ctx, []*system.System{a, b}, nil); err != nil {
		t.Fatalf("CreateSystems: %v", err)
	}
	for _, f := range []*fleet.Fleet{
		{ID: "f1", GameID: "g1", EmpireID: "e1", Location: "s1", Ships: map[string]int{"science": 1}},
		{ID: "f2", GameID: "g1", EmpireID: "e2", Location: "s2", Ships: map[string]int{"colony": 1}},
	} {
		if err := fleets.Create(ctx, f, nil); err != nil {
			t.Fatalf("Create fleet: %v", err)
		}
	}

	return NewService(NewRepository(db, logger), systems, fleets, logger)
}

func TestGetMap_MemberSeesOwnFleets(t *testing.T) {
	svc := newTestService(t)

	m, err := svc.GetMap(context.Background(), "g1", "u1", false)
	if err != nil {
		t.Fatalf("GetMap: %v", err)
	}
	if len(m.Nodes) != 2 {
		t.Fatalf("got %d nodes", len(m.Nodes))
	}
	if len(m.Fleets) != 1 || m.Fleets[0].ID != "f1" {
		t.Fatalf("fleets = %+v", m.Fleets)
	}
	want := Bounds{MinX: -20, MinY: -15, MaxX: 40, MaxY: 5}
	if m.Bounds != want {
		t.Fatalf("bounds = %+v, want %+v", m.Bounds, want)
	}
	for _, n := range m.Nodes {
		if len(n.Links) != 1 {
			t.Fatalf("node %s links = %v", n.ID, n.Links)
		}
	}
}

func TestGetMap_Access(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.GetMap(ctx, "g1", "stranger", false); !apperrors.Is(err, apperrors.ErrorTypeForbidden) {
		t.Fatalf("stranger: got %v, want forbidden", err)
	}
	m, err := svc.GetMap(ctx, "g1", "root", true)
	if err != nil {
		t.Fatalf("admin: %v", err)
	}
	if len(m.Fleets) != 2 {
		t.Fatalf("admin sees %d fleets", len(m.Fleets))
	}
}
