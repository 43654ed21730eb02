package database

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRebind(t *testing.T) {
	got := rebind(DriverPostgres, "UPDATE t SET a = ?, b = ? WHERE id = ?")
	want := "UPDATE t SET a = $1, b = $2 WHERE id = $3"
	if got != want {
		t.Fatalf("rebind = %q, want %q", got, want)
	}
	if got := rebind(DriverSQLite, "SELECT ?"); got != "SELECT ?" {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
}

func TestRunMigrations_SQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations (second run): %v", err)
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("applied migrations = %d, want 1", n)
	}

	for _, table := range []string{"games", "users", "members", "empires", "systems", "jobs", "fleets"} {
		if _, err := db.ExecContext(ctx, "SELECT 1 FROM "+table+" LIMIT 1"); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("mongo", "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestIn(t *testing.T) {
	clause, args := In([]string{"a", "b", "c"})
	if clause != "(?, ?, ?)" {
		t.Fatalf("clause = %q", clause)
	}
	if len(args) != 3 || args[2] != "c" {
		t.Fatalf("args = %v", args)
	}
}

func TestBool(t *testing.T) {
	if Bool(DriverSQLite, true) != 1 || Bool(DriverSQLite, false) != 0 {
		t.Fatalf("sqlite flags must be integers")
	}
	if Bool(DriverPostgres, true) != true {
		t.Fatalf("postgres flags must be booleans")
	}
}
