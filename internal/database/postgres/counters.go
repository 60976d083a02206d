package postgres

import (
	"context"
	"fmt"

	"github.com/RishabhDotasara/Photoflow/internal/database"
)

// CounterRepository provides PostgreSQL-backed shared counters. Increments
// happen in a single statement, so concurrent workers never lose updates.
type CounterRepository struct {
	pool *Pool
}

// NewCounterRepository creates a new PostgreSQL counter repository.
func NewCounterRepository(pool *Pool) *CounterRepository {
	return &CounterRepository{pool: pool}
}

// Set stores a counter value, creating the counter if needed.
func (r *CounterRepository) Set(ctx context.Context, projectID, name string, value int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO progress_counters (project_id, name, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (project_id, name) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`, projectID, name, value)
	if err != nil {
		return fmt.Errorf("set counter %s: %w", name, err)
	}
	return nil
}

// Increment atomically adds one and returns the new value. A missing
// counter starts at zero.
func (r *CounterRepository) Increment(ctx context.Context, projectID, name string) (int64, error) {
	var value int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO progress_counters (project_id, name, value, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (project_id, name) DO UPDATE SET
			value = progress_counters.value + 1,
			updated_at = NOW()
		RETURNING value
	`, projectID, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return value, nil
}

// Get returns the counter value, zero when the counter does not exist.
func (r *CounterRepository) Get(ctx context.Context, projectID, name string) (int64, error) {
	var value int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT value FROM progress_counters WHERE project_id = $1 AND name = $2), 0
		)
	`, projectID, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("get counter %s: %w", name, err)
	}
	return value, nil
}

// Verify interface compliance.
var _ database.CounterStore = (*CounterRepository)(nil)
