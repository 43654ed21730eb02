package player

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"galactic-server/internal/shared/database"
	apperrors "galactic-server/internal/shared/errors"
)

func newTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "player.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := NewRepository(db, logger)
	return NewService(repo, logger), repo
}

func TestEnsurePlayer_CreatesOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.EnsurePlayer(ctx, "u1", "  ")
	if err != nil {
		t.Fatalf("EnsurePlayer: %v", err)
	}
	if p.Name != "u1" {
		t.Fatalf("blank name not defaulted: %q", p.Name)
	}
	if _, err := svc.EnsurePlayer(ctx, "u1", "renamed"); err != nil {
		t.Fatalf("EnsurePlayer again: %v", err)
	}

	got, err := svc.GetPlayerByID(ctx, "u1")
	if err != nil || got.Name != "u1" {
		t.Fatalf("player = %+v, %v", got, err)
	}
}

func TestSavePlayer_IsVersioned(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	if _, err := svc.EnsurePlayer(ctx, "u1", "one"); err != nil {
		t.Fatalf("EnsurePlayer: %v", err)
	}
	a, _ := repo.GetPlayerByID(ctx, "u1")
	b, _ := repo.GetPlayerByID(ctx, "u1")

	a.RecordUnlocks([]string{"improved_production_1", "improved_production_1"})
	if err := repo.SavePlayer(ctx, a, nil); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}
	b.RecordUnlocks([]string{"faster_research_1"})
	if err := repo.SavePlayer(ctx, b, nil); !apperrors.Is(err, apperrors.ErrorTypeConflict) {
		t.Fatalf("stale save: got %v, want conflict", err)
	}

	n, err := svc.PreviousUnlocks(ctx, "u1", "improved_production_1")
	if err != nil || n != 2 {
		t.Fatalf("PreviousUnlocks = %d, %v", n, err)
	}
}

func TestPreviousUnlocks_UnknownPlayer(t *testing.T) {
	svc, _ := newTestService(t)

	n, err := svc.PreviousUnlocks(context.Background(), "ghost", "improved_production_1")
	if err != nil || n != 0 {
		t.Fatalf("PreviousUnlocks = %d, %v", n, err)
	}
}
