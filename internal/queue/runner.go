package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/segmentio/kafka-go"
)

// readRetryDelay is how long a consumer waits after a failed read
// before trying the broker again.
const readRetryDelay = time.Second

// Handler processes one decoded envelope. Delivery is at-least-once, so
// handlers must be idempotent.
type Handler func(ctx context.Context, env *Envelope) error

// Runner consumes both lanes with a pool of handler goroutines per lane.
type Runner struct {
	cfg     *config.QueueConfig
	handler Handler
	workers int
}

// NewRunner creates a consumer for both lanes.
func NewRunner(cfg *config.QueueConfig, workers int, handler Handler) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		cfg:     cfg,
		handler: handler,
		workers: workers,
	}
}

// Run consumes messages until the context is cancelled. Handler errors
// are logged; the message is still committed, since the pipeline recovers
// skipped work through resync rather than redelivery storms.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, topic := range []string{r.cfg.FolderTopic, r.cfg.ImageTopic} {
		for range r.workers {
			wg.Add(1)
			go func(topic string) {
				defer wg.Done()
				r.consume(ctx, topic)
			}(topic)
		}
	}
	wg.Wait()
}

func (r *Runner) consume(ctx context.Context, topic string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: r.cfg.Brokers,
		Topic:   topic,
		GroupID: r.cfg.GroupID,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			log.Printf("queue: reading from %s: %v", topic, err)
			// A broken broker connection fails instantly, so back off
			// before retrying instead of spinning on the error.
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		var env Envelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			log.Printf("queue: malformed message on %s: %v", topic, err)
			continue
		}

		if err := r.handler(ctx, &env); err != nil {
			log.Printf("queue: task %s (%s) failed: %v", env.TaskID, env.Task, err)
		}
	}
}
