package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RishabhDotasara/Photoflow/internal/database"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ProjectRepository provides PostgreSQL-backed project storage.
type ProjectRepository struct {
	pool *Pool
}

// NewProjectRepository creates a new PostgreSQL project repository.
func NewProjectRepository(pool *Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

const projectColumns = "id, user_id, name, storage_prefix, config, status, created_at, updated_at"

// Create stores a new project. The ID is generated when empty.
// Returns ErrConflict when the user already has a project with the same name.
func (r *ProjectRepository) Create(ctx context.Context, project *database.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Status == "" {
		project.Status = database.ProjectStatusWaiting
	}
	if len(project.Config) == 0 {
		project.Config = []byte("{}")
	}

	now := time.Now()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO projects (id, user_id, name, storage_prefix, config, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING created_at, updated_at
	`,
		project.ID,
		project.UserID,
		project.Name,
		project.StoragePrefix,
		project.Config,
		project.Status,
		now,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("project %q for user %s: %w", project.Name, project.UserID, database.ErrConflict)
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// Get retrieves a project by ID. Returns ErrNotFound when missing.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*database.Project, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1", id)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, database.ErrNotFound)
		}
		return nil, err
	}
	return project, nil
}

// ListByUser retrieves all projects owned by a user, newest first.
func (r *ProjectRepository) ListByUser(ctx context.Context, userID string) ([]database.Project, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []database.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// ExistsByName checks whether a user already has a project with the given name.
func (r *ProjectRepository) ExistsByName(ctx context.Context, userID, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM projects WHERE user_id = $1 AND name = $2)", userID, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check project exists: %w", err)
	}
	return exists, nil
}

// SetStoragePrefix points the project at a new storage folder and resets
// its status to waiting. Previously ingested images must be cleared by the
// caller in the same flow.
func (r *ProjectRepository) SetStoragePrefix(ctx context.Context, id, prefix string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET storage_prefix = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`, prefix, database.ProjectStatusWaiting, id)
	if err != nil {
		return fmt.Errorf("update storage prefix: %w", err)
	}
	return requireRowAffected(result, id)
}

// UpdateStatus sets the project status unconditionally.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id string, status database.ProjectStatus) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE projects SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	return requireRowAffected(result, id)
}

// CompleteIfNotCompleted transitions the project to completed unless it
// already is. Returns true only for the call that performed the transition,
// so concurrent workers finishing the last images cannot double-fire
// completion side effects.
func (r *ProjectRepository) CompleteIfNotCompleted(ctx context.Context, id string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE projects
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status <> $1
	`, database.ProjectStatusCompleted, id)
	if err != nil {
		return false, fmt.Errorf("complete project: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanProject(scanner interface{ Scan(...any) error }) (*database.Project, error) {
	var project database.Project
	err := scanner.Scan(
		&project.ID,
		&project.UserID,
		&project.Name,
		&project.StoragePrefix,
		&project.Config,
		&project.Status,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	return &project, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// requireRowAffected maps a zero-row UPDATE to ErrNotFound.
func requireRowAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("project %s: %w", id, database.ErrNotFound)
	}
	return nil
}

// Verify interface compliance.
var _ database.ProjectStore = (*ProjectRepository)(nil)
