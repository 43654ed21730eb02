package system

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
	logger.Debug("Initializing system repository")

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

// CreateSystems inserts a freshly generated galaxy.
func (r *Repository) CreateSystems(ctx context.Context, systems []*System, tx *database.Tx) error {
	exec := r.getExecutor(tx)
	logger := r.logger.With("component", "system_repository", "operation", "create_systems", "count", len(systems))
	logger.Debug("Creating systems")

	query := exec.Rebind(`
		INSERT INTO systems (id, game_id, owner, body, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	now := time.Now().Unix()
	for _, s := range systems {
		s.UpdatedAt = now
		body, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to encode system %s: %w", s.ID, err)
		}
		if _, err := exec.ExecContext(ctx, query, s.ID, s.GameID, nullable(s.Owner), string(body), s.Version, now); err != nil {
			logger.Error("Failed to create system", "system_id", s.ID, "error", err)
			return fmt.Errorf("failed to create system %s: %w", s.ID, err)
		}
	}

	logger.Info("Systems created")
	return nil
}

func (r *Repository) GetByID(ctx context.Context, gameID, systemID string) (*System, error) {
	query := r.db.Rebind(`SELECT body, version FROM systems WHERE game_id = ? AND id = ?`)
	s, err := scanSystem(r.db.QueryRowContext(ctx, query, gameID, systemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("system %s not found", systemID)
	}
	if err != nil {
		r.logger.Error("Failed to get system", "component", "system_repository", "system_id", systemID, "error", err)
		return nil, fmt.Errorf("failed to get system: %w", err)
	}
	return s, nil
}

// ListByGames loads every system of the given games.
func (r *Repository) ListByGames(ctx context.Context, gameIDs []string) ([]*System, error) {
	if len(gameIDs) == 0 {
		return nil, nil
	}
	in, args := database.In(gameIDs)
	return r.list(ctx, `SELECT body, version FROM systems WHERE game_id IN `+in+` ORDER BY id`, args...)
}

// ListByOwner loads the systems an empire owns.
func (r *Repository) ListByOwner(ctx context.Context, gameID, empireID string) ([]*System, error) {
	return r.list(ctx, `SELECT body, version FROM systems WHERE game_id = ? AND owner = ? ORDER BY id`, gameID, empireID)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*System, error) {
	logger := r.logger.With("component", "system_repository", "operation", "list")

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		logger.Error("Failed to query systems", "error", err)
		return nil, fmt.Errorf("failed to query systems: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var systems []*System
	for rows.Next() {
		s, err := scanSystem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan system: %w", err)
		}
		systems = append(systems, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating systems: %w", err)
	}

	logger.Debug("Systems loaded", "count", len(systems))
	return systems, nil
}

// Save writes s when its version is still current and bumps it.
func (r *Repository) Save(ctx context.Context, s *System, tx *database.Tx) error {
	exec := r.getExecutor(tx)

	next := *s
	next.Version++
	next.UpdatedAt = time.Now().Unix()
	body, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode system: %w", err)
	}

	query := exec.Rebind(`
		UPDATE systems SET owner = ?, body = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`)
	res, err := exec.ExecContext(ctx, query, nullable(s.Owner), string(body), next.Version, next.UpdatedAt, s.ID, s.Version)
	if err != nil {
		return fmt.Errorf("failed to save system: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save system: %w", err)
	}
	if n == 0 {
		return apperrors.Conflictf("system %s was modified concurrently", s.ID)
	}

	s.Version = next.Version
	s.UpdatedAt = next.UpdatedAt
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSystem(row scanner) (*System, error) {
	var body string
	var version int64
	if err := row.Scan(&body, &version); err != nil {
		return nil, err
	}
	var s System
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		return nil, fmt.Errorf("failed to decode system: %w", err)
	}
	s.Version = version
	if s.Districts == nil {
		s.Districts = map[string]int{}
	}
	if s.DistrictSlots == nil {
		s.DistrictSlots = map[string]int{}
	}
	if s.Links == nil {
		s.Links = map[string]float64{}
	}
	return &s, nil
}
