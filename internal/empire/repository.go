package empire

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
	logger.Debug("Initializing empire repository")

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

func (r *Repository) Create(ctx context.Context, e *Empire, tx *database.Tx) error {
	exec := r.getExecutor(tx)
	logger := r.logger.With(
		"component", "empire_repository",
		"operation", "create",
		"game_id", e.GameID,
		"user_id", e.UserID,
	)

	e.UpdatedAt = time.Now().Unix()
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode empire: %w", err)
	}

	query := exec.Rebind(`
		INSERT INTO empires (id, game_id, user_id, body, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if _, err := exec.ExecContext(ctx, query, e.ID, e.GameID, e.UserID, string(body), e.Version, e.UpdatedAt); err != nil {
		logger.Error("Failed to create empire", "error", err)
		return fmt.Errorf("failed to create empire: %w", err)
	}

	logger.Info("Empire created", "empire_id", e.ID, "name", e.Name)
	return nil
}

func (r *Repository) GetByID(ctx context.Context, gameID, empireID string) (*Empire, error) {
	query := r.db.Rebind(`SELECT body, version FROM empires WHERE game_id = ? AND id = ?`)
	e, err := scanEmpire(r.db.QueryRowContext(ctx, query, gameID, empireID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("empire %s not found", empireID)
	}
	if err != nil {
		r.logger.Error("Failed to get empire", "component", "empire_repository", "empire_id", empireID, "error", err)
		return nil, fmt.Errorf("failed to get empire: %w", err)
	}
	return e, nil
}

func (r *Repository) GetByUser(ctx context.Context, gameID, userID string) (*Empire, error) {
	query := r.db.Rebind(`SELECT body, version FROM empires WHERE game_id = ? AND user_id = ?`)
	e, err := scanEmpire(r.db.QueryRowContext(ctx, query, gameID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("no empire for user %s in game %s", userID, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get empire: %w", err)
	}
	return e, nil
}

// ListByGames loads every empire of the given games.
func (r *Repository) ListByGames(ctx context.Context, gameIDs []string) ([]*Empire, error) {
	logger := r.logger.With("component", "empire_repository", "operation", "list_by_games", "games", len(gameIDs))
	if len(gameIDs) == 0 {
		return nil, nil
	}

	in, args := database.In(gameIDs)
	query := r.db.Rebind(`SELECT body, version FROM empires WHERE game_id IN ` + in + ` ORDER BY id`)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Failed to query empires", "error", err)
		return nil, fmt.Errorf("failed to query empires: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var empires []*Empire
	for rows.Next() {
		e, err := scanEmpire(rows)
		if err != nil {
			logger.Error("Failed to scan empire", "error", err)
			return nil, fmt.Errorf("failed to scan empire: %w", err)
		}
		empires = append(empires, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating empires: %w", err)
	}

	logger.Debug("Empires loaded", "count", len(empires))
	return empires, nil
}

// Save writes e if nobody else has written it since it was loaded, then
// bumps its version. A stale version yields a Conflict error.
func (r *Repository) Save(ctx context.Context, e *Empire, tx *database.Tx) error {
	exec := r.getExecutor(tx)

	next := *e
	next.Version++
	next.UpdatedAt = time.Now().Unix()
	body, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to encode empire: %w", err)
	}

	query := exec.Rebind(`
		UPDATE empires SET body = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`)
	res, err := exec.ExecContext(ctx, query, string(body), next.Version, next.UpdatedAt, e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("failed to save empire: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to save empire: %w", err)
	} else if n == 0 {
		return apperrors.Conflictf("empire %s was modified concurrently", e.ID)
	}

	e.Version = next.Version
	e.UpdatedAt = next.UpdatedAt
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEmpire(row scanner) (*Empire, error) {
	var body string
	var version int64
	if err := row.Scan(&body, &version); err != nil {
		return nil, err
	}
	var e Empire
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return nil, fmt.Errorf("failed to decode empire: %w", err)
	}
	e.Version = version
	return &e, nil
}
