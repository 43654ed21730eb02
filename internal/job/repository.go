package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"galactic-server/internal/shared/database"
	apperrors "galactic-server/internal/shared/errors"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing job repository")

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

func (r *Repository) Create(ctx context.Context, j *Job, tx *database.Tx) error {
	exec := r.getExecutor(tx)

	body, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	query := exec.Rebind(`
		INSERT INTO jobs (id, game_id, empire_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := exec.ExecContext(ctx, query, j.ID, j.GameID, j.EmpireID, string(body), j.CreatedAt); err != nil {
		r.logger.Error("Failed to create job", "component", "job_repository", "job_id", j.ID, "error", err)
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, gameID, jobID string) (*Job, error) {
	query := r.db.Rebind(`SELECT body FROM jobs WHERE game_id = ? AND id = ?`)
	var body string
	err := r.db.QueryRowContext(ctx, query, gameID, jobID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return decodeJob(body)
}

// List returns the jobs matching f, oldest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]*Job, error) {
	logger := r.logger.With("component", "job_repository", "operation", "list")

	var where []string
	var args []interface{}
	if len(f.GameIDs) > 0 {
		in, inArgs := database.In(f.GameIDs)
		where = append(where, "game_id IN "+in)
		args = append(args, inArgs...)
	}
	if f.EmpireID != "" {
		where = append(where, "empire_id = ?")
		args = append(args, f.EmpireID)
	}

	query := `SELECT body FROM jobs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		logger.Error("Failed to query jobs", "error", err)
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var jobs []*Job
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		j, err := decodeJob(body)
		if err != nil {
			return nil, err
		}
		// the system lives in the body, so it is filtered here
		if f.System != "" && j.System != f.System {
			continue
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}

// UpdateProgress stores a job's progress. A job deleted in the meantime
// yields a Conflict error.
func (r *Repository) UpdateProgress(ctx context.Context, j *Job, tx *database.Tx) error {
	exec := r.getExecutor(tx)

	body, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	res, err := exec.ExecContext(ctx, exec.Rebind(`UPDATE jobs SET body = ? WHERE id = ?`), string(body), j.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.Conflictf("job %s no longer exists", j.ID)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, jobID string, tx *database.Tx) error {
	exec := r.getExecutor(tx)
	res, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM jobs WHERE id = ?`), jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.Conflictf("job %s no longer exists", jobID)
	}
	return nil
}

func decodeJob(body string) (*Job, error) {
	var j Job
	if err := json.Unmarshal([]byte(body), &j); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &j, nil
}
