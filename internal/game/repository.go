package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"galactic-server/internal/shared/database"
	apperrors "galactic-server/internal/shared/errors"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing game repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) getExecutor(tx *database.Tx) database.Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

const gameColumns = `id, name, owner, started, speed, period, seed, settings, version, created_at, updated_at`

func (r *Repository) CreateGame(ctx context.Context, g *Game, tx *database.Tx) error {
	exec := r.getExecutor(tx)
	logger := r.logger.With(
		"component", "game_repository",
		"operation", "create_game",
		"name", g.Name,
	)
	logger.Info("Creating new game")

	settings, err := json.Marshal(g.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	now := time.Now().Unix()
	g.CreatedAt, g.UpdatedAt = now, now
	if g.Version == 0 {
		g.Version = 1
	}

	query := exec.Rebind(`
		INSERT INTO games (` + gameColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = exec.ExecContext(ctx, query,
		g.ID, g.Name, g.Owner, database.Bool(r.db.Driver, g.Started), int(g.Speed), g.Period, g.Seed,
		string(settings), g.Version, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		logger.Error("Failed to create game", "error", err)
		return fmt.Errorf("failed to create game: %w", err)
	}

	logger.Info("Game created successfully", "game_id", g.ID)
	return nil
}

func (r *Repository) GetGameByID(ctx context.Context, gameID string) (*Game, error) {
	logger := r.logger.With("component", "game_repository", "operation", "get_game", "game_id", gameID)
	logger.Debug("Getting game by ID")

	query := r.db.Rebind(`SELECT ` + gameColumns + ` FROM games WHERE id = ?`)
	g, err := scanGame(r.db.QueryRowContext(ctx, query, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		logger.Debug("Game not found")
		return nil, apperrors.NotFoundf("game %s not found", gameID)
	}
	if err != nil {
		logger.Error("Database error getting game", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}
	return g, nil
}

// ListStartedGames returns the started games ticked at speed.
func (r *Repository) ListStartedGames(ctx context.Context, speed Speed) ([]*Game, error) {
	logger := r.logger.With("component", "game_repository", "operation", "list_started_games", "speed", int(speed))

	query := r.db.Rebind(`SELECT ` + gameColumns + ` FROM games WHERE started = ? AND speed = ? ORDER BY id`)
	rows, err := r.db.QueryContext(ctx, query, database.Bool(r.db.Driver, true), int(speed))
	if err != nil {
		logger.Error("Failed to query games", "error", err)
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var games []*Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			logger.Error("Failed to scan game", "error", err)
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	return games, nil
}

// SaveGame writes g if its version is unchanged in the database and bumps
// it; a stale version yields a Conflict error.
func (r *Repository) SaveGame(ctx context.Context, g *Game, tx *database.Tx) error {
	exec := r.getExecutor(tx)

	settings, err := json.Marshal(g.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	version := g.Version + 1
	updatedAt := time.Now().Unix()

	query := exec.Rebind(`
		UPDATE games
		SET name = ?, started = ?, speed = ?, period = ?, seed = ?, settings = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`)
	res, err := exec.ExecContext(ctx, query,
		g.Name, database.Bool(r.db.Driver, g.Started), int(g.Speed), g.Period, g.Seed, string(settings),
		version, updatedAt, g.ID, g.Version)
	if err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	} else if n == 0 {
		return apperrors.Conflictf("game %s was modified concurrently", g.ID)
	}

	g.Version = version
	g.UpdatedAt = updatedAt
	return nil
}

func (r *Repository) AddMember(ctx context.Context, m *Member, tx *database.Tx) error {
	exec := r.getExecutor(tx)
	query := exec.Rebind(`INSERT INTO members (game_id, user_id, empire) VALUES (?, ?, ?)`)
	if _, err := exec.ExecContext(ctx, query, m.GameID, m.UserID, nullable(m.Empire)); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *Repository) GetMember(ctx context.Context, gameID, userID string) (*Member, error) {
	query := r.db.Rebind(`SELECT game_id, user_id, empire FROM members WHERE game_id = ? AND user_id = ?`)
	m, err := scanMember(r.db.QueryRowContext(ctx, query, gameID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("user %s is not in game %s", userID, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

func (r *Repository) ListMembers(ctx context.Context, gameID string) ([]*Member, error) {
	logger := r.logger.With("component", "game_repository", "operation", "list_members", "game_id", gameID)

	query := r.db.Rebind(`SELECT game_id, user_id, empire FROM members WHERE game_id = ? ORDER BY user_id`)
	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		logger.Error("Failed to query members", "error", err)
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGame(row scanner) (*Game, error) {
	var g Game
	var started interface{}
	var speed int
	var settings string
	if err := row.Scan(&g.ID, &g.Name, &g.Owner, &started, &speed, &g.Period, &g.Seed,
		&settings, &g.Version, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Started = truthy(started)
	g.Speed = Speed(speed)
	if err := json.Unmarshal([]byte(settings), &g.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &g, nil
}

func scanMember(row scanner) (*Member, error) {
	var m Member
	var empire sql.NullString
	if err := row.Scan(&m.GameID, &m.UserID, &empire); err != nil {
		return nil, err
	}
	m.Empire = empire.String
	return &m, nil
}

// truthy reads a boolean column stored as BOOLEAN (postgres) or INTEGER
// (sqlite).
func truthy(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	case []byte:
		return string(b) == "1" || string(b) == "t" || string(b) == "true"
	}
	return false
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
