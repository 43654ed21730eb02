package spatial

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"galactic-server/internal/shared/database"
	apperrors "galactic-server/internal/shared/errors"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing spatial repository")
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// MemberEmpire returns the empire userID plays in gameID. A user who has not
// joined gets a Forbidden error.
func (r *Repository) MemberEmpire(ctx context.Context, gameID, userID string) (string, error) {
	logger := r.logger.With("component", "spatial_repository", "operation", "member_empire",
		"game_id", gameID, "user_id", userID)

	var empire sql.NullString
	query := r.db.Rebind(`SELECT empire FROM members WHERE game_id = ? AND user_id = ?`)
	err := r.db.QueryRowContext(ctx, query, gameID, userID).Scan(&empire)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.Forbidden("game access required")
	}
	if err != nil {
		logger.Error("Failed to check game membership", "error", err)
		return "", fmt.Errorf("failed to check game membership: %w", err)
	}
	return empire.String, nil
}
