package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Simulation.FastInterval != 20*time.Second {
		t.Fatalf("fast interval = %v", cfg.Simulation.FastInterval)
	}
	if cfg.Galaxy.CyclePercentage != 0.2 {
		t.Fatalf("cycle percentage = %v", cfg.Galaxy.CyclePercentage)
	}
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for short JWT secret")
	}
}

func TestLoad_SQLite(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("ADMIN_USERS", "u1,u2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.ConnectionString(); got != "/tmp/x.db" {
		t.Fatalf("ConnectionString = %q", got)
	}
	if !cfg.IsAdmin("u2") || cfg.IsAdmin("u3") {
		t.Fatalf("admin list not parsed: %v", cfg.Auth.AdminUsers)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("DB_DRIVER", "mongo")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
