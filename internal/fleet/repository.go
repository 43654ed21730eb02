package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"galactic-server/internal/shared/database"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing fleet repository")

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

func (r *Repository) Create(ctx context.Context, f *Fleet, tx *database.Tx) error {
	exec := r.getExecutor(tx)

	body, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode fleet: %w", err)
	}
	query := exec.Rebind(`
		INSERT INTO fleets (id, game_id, empire_id, location, body)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := exec.ExecContext(ctx, query, f.ID, f.GameID, f.EmpireID, f.Location, string(body)); err != nil {
		r.logger.Error("Failed to create fleet", "component", "fleet_repository", "fleet_id", f.ID, "error", err)
		return fmt.Errorf("failed to create fleet: %w", err)
	}
	return nil
}

// ListAt loads the fleets parked at a system.
func (r *Repository) ListAt(ctx context.Context, gameID, location string) ([]*Fleet, error) {
	return r.list(ctx, `SELECT body FROM fleets WHERE game_id = ? AND location = ? ORDER BY id`, gameID, location)
}

// ListByGames loads every fleet of the given games.
func (r *Repository) ListByGames(ctx context.Context, gameIDs []string) ([]*Fleet, error) {
	if len(gameIDs) == 0 {
		return nil, nil
	}
	in, args := database.In(gameIDs)
	return r.list(ctx, `SELECT body FROM fleets WHERE game_id IN `+in+` ORDER BY id`, args...)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*Fleet, error) {
	logger := r.logger.With("component", "fleet_repository", "operation", "list")

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		logger.Error("Failed to query fleets", "error", err)
		return nil, fmt.Errorf("failed to query fleets: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var fleets []*Fleet
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan fleet: %w", err)
		}
		var f Fleet
		if err := json.Unmarshal([]byte(body), &f); err != nil {
			return nil, fmt.Errorf("failed to decode fleet: %w", err)
		}
		fleets = append(fleets, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fleets: %w", err)
	}
	return fleets, nil
}
