// Package progress tracks per-project ingestion counters. The counters are
// advisory: they feed the progress endpoint, while completion is decided
// from the durable unprocessed-image count.
package progress

import (
	"context"
	"fmt"

	"github.com/RishabhDotasara/Photoflow/internal/database"
)

// Counter names.
const (
	CounterTotal      = "total_images"
	CounterProcessed  = "processed_images"
	CounterThumbnails = "thumbnails_generated"
)

// Progress is a snapshot of a project's counters.
type Progress struct {
	Total          int64
	Processed      int64
	ThumbnailsDone int64
}

// PercentComplete returns the processed percentage, zero for an empty project.
func (p Progress) PercentComplete() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Processed) / float64(p.Total) * 100
}

// PercentThumbnails returns the thumbnail percentage, zero for an empty project.
func (p Progress) PercentThumbnails() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.ThumbnailsDone) / float64(p.Total) * 100
}

// Tracker wraps a CounterStore with the pipeline's counter vocabulary.
type Tracker struct {
	counters database.CounterStore
}

// NewTracker creates a progress tracker.
func NewTracker(counters database.CounterStore) *Tracker {
	return &Tracker{counters: counters}
}

// Reset starts a fresh ingestion run: total is set to the enumerated image
// count and both progress counters return to zero.
func (t *Tracker) Reset(ctx context.Context, projectID string, total int64) error {
	if err := t.counters.Set(ctx, projectID, CounterTotal, total); err != nil {
		return fmt.Errorf("reset total counter: %w", err)
	}
	if err := t.counters.Set(ctx, projectID, CounterProcessed, 0); err != nil {
		return fmt.Errorf("reset processed counter: %w", err)
	}
	if err := t.counters.Set(ctx, projectID, CounterThumbnails, 0); err != nil {
		return fmt.Errorf("reset thumbnails counter: %w", err)
	}
	return nil
}

// IncrementProcessed bumps the processed counter and returns the new value.
func (t *Tracker) IncrementProcessed(ctx context.Context, projectID string) (int64, error) {
	return t.counters.Increment(ctx, projectID, CounterProcessed)
}

// IncrementThumbnails bumps the thumbnail counter and returns the new value.
func (t *Tracker) IncrementThumbnails(ctx context.Context, projectID string) (int64, error) {
	return t.counters.Increment(ctx, projectID, CounterThumbnails)
}

// Read returns a best-effort snapshot. The three reads are not atomic
// with respect to each other, which is fine for a progress display.
func (t *Tracker) Read(ctx context.Context, projectID string) (Progress, error) {
	var p Progress
	var err error
	if p.Total, err = t.counters.Get(ctx, projectID, CounterTotal); err != nil {
		return p, fmt.Errorf("read total counter: %w", err)
	}
	if p.Processed, err = t.counters.Get(ctx, projectID, CounterProcessed); err != nil {
		return p, fmt.Errorf("read processed counter: %w", err)
	}
	if p.ThumbnailsDone, err = t.counters.Get(ctx, projectID, CounterThumbnails); err != nil {
		return p, fmt.Errorf("read thumbnails counter: %w", err)
	}
	return p, nil
}
