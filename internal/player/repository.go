package player

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
	logger.Debug("Initializing player repository")

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

func (r *Repository) CreatePlayer(ctx context.Context, p *Player) error {
	logger := r.logger.With("component", "player_repository", "operation", "create", "player_id", p.ID)

	if p.Technologies == nil {
		p.Technologies = map[string]int{}
	}
	techs, err := json.Marshal(p.Technologies)
	if err != nil {
		return fmt.Errorf("failed to encode player technologies: %w", err)
	}
	if p.Version == 0 {
		p.Version = 1
	}
	p.CreatedAt = time.Now().Unix()

	query := r.db.Rebind(`INSERT INTO users (id, name, technologies, version, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Name, string(techs), p.Version, p.CreatedAt); err != nil {
		logger.Error("Failed to create player", "error", err)
		return fmt.Errorf("failed to create player: %w", err)
	}

	logger.Info("Player created successfully", "name", p.Name)
	return nil
}

func (r *Repository) GetPlayerByID(ctx context.Context, id string) (*Player, error) {
	logger := r.logger.With("component", "player_repository", "operation", "get_by_id", "player_id", id)

	query := r.db.Rebind(`SELECT id, name, technologies, version, created_at FROM users WHERE id = ?`)

	var p Player
	var techs string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &techs, &p.Version, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Debug("Player not found")
		return nil, apperrors.NotFoundf("player %s not found", id)
	}
	if err != nil {
		logger.Error("Database error getting player", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}
	if err := json.Unmarshal([]byte(techs), &p.Technologies); err != nil {
		return nil, fmt.Errorf("failed to decode player technologies: %w", err)
	}
	if p.Technologies == nil {
		p.Technologies = map[string]int{}
	}
	return &p, nil
}

// SavePlayer stores the technology counts if the version is unchanged and
// bumps it; otherwise it returns a Conflict error.
func (r *Repository) SavePlayer(ctx context.Context, p *Player, tx *database.Tx) error {
	exec := r.getExecutor(tx)

	techs, err := json.Marshal(p.Technologies)
	if err != nil {
		return fmt.Errorf("failed to encode player technologies: %w", err)
	}
	query := exec.Rebind(`UPDATE users SET technologies = ?, version = ? WHERE id = ? AND version = ?`)
	res, err := exec.ExecContext(ctx, query, string(techs), p.Version+1, p.ID, p.Version)
	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	if n == 0 {
		return apperrors.Conflictf("player %s was modified concurrently", p.ID)
	}
	p.Version++
	return nil
}
