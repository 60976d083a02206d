package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/segmentio/kafka-go"
)

// Dispatcher enqueues jobs onto a lane.
type Dispatcher interface {
	Dispatch(ctx context.Context, env *Envelope) error
	Close() error
}

// KafkaDispatcher writes envelopes to the two lane topics.
type KafkaDispatcher struct {
	folder *kafka.Writer
	image  *kafka.Writer
}

// NewKafkaDispatcher creates writers for both lanes.
func NewKafkaDispatcher(cfg *config.QueueConfig) *KafkaDispatcher {
	return &KafkaDispatcher{
		folder: kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.FolderTopic,
		}),
		image: kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.ImageTopic,
		}),
	}
}

// Dispatch routes an envelope to its stage's lane. Messages are keyed by
// task ID so retries of the same task land on the same partition.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, env *Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	writer := d.image
	if env.Task.Lane() == LaneFolder {
		writer = d.folder
	}

	msg := kafka.Message{
		Key:   []byte(env.TaskID),
		Value: value,
	}
	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s message: %w", env.Task, err)
	}
	return nil
}

// Close closes both lane writers.
func (d *KafkaDispatcher) Close() error {
	folderErr := d.folder.Close()
	imageErr := d.image.Close()
	if folderErr != nil {
		return fmt.Errorf("close folder writer: %w", folderErr)
	}
	if imageErr != nil {
		return fmt.Errorf("close image writer: %w", imageErr)
	}
	return nil
}

// Verify interface compliance.
var _ Dispatcher = (*KafkaDispatcher)(nil)
