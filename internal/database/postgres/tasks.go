package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/google/uuid"
)

// TaskRepository provides PostgreSQL-backed task audit storage.
type TaskRepository struct {
	pool *Pool
}

// NewTaskRepository creates a new PostgreSQL task repository.
func NewTaskRepository(pool *Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// Create records a dispatched unit of work in the queued state.
func (r *TaskRepository) Create(ctx context.Context, t *database.TaskRecord) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = database.TaskStatusQueued
	}

	var imageID sql.NullString
	if t.ImageID != "" {
		imageID = sql.NullString{String: t.ImageID, Valid: true}
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, project_id, user_id, image_id, kind, status, progress, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`,
		t.ID,
		t.ProjectID,
		t.UserID,
		imageID,
		t.Kind,
		t.Status,
		t.Progress,
		nullableJSON(t.Result),
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Get retrieves a task by ID. Returns ErrNotFound when missing.
func (r *TaskRepository) Get(ctx context.Context, id string) (*database.TaskRecord, error) {
	var t database.TaskRecord
	var imageID sql.NullString
	var result []byte

	err := r.pool.QueryRow(ctx, `
		SELECT id, project_id, user_id, image_id, kind, status, progress, result, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`, id).Scan(
		&t.ID,
		&t.ProjectID,
		&t.UserID,
		&imageID,
		&t.Kind,
		&t.Status,
		&t.Progress,
		&result,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	if imageID.Valid {
		t.ImageID = imageID.String
	}
	t.Result = result
	return &t, nil
}

// UpdateStatus sets the task status, progress and optional result payload.
func (r *TaskRepository) UpdateStatus(
	ctx context.Context, id string, status database.TaskStatus, progress int, result []byte,
) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = $1, progress = $2, result = COALESCE($3, result), updated_at = NOW()
		WHERE id = $4
	`, status, progress, nullableJSON(result), id)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("task %s: %w", id, database.ErrNotFound)
	}
	return nil
}

// nullableJSON passes NULL to JSONB columns for empty payloads.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// Verify interface compliance.
var _ database.TaskStore = (*TaskRepository)(nil)
