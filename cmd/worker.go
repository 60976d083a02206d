package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/RishabhDotasara/Photoflow/internal/database/postgres"
	"github.com/RishabhDotasara/Photoflow/internal/detector"
	"github.com/RishabhDotasara/Photoflow/internal/pipeline"
	"github.com/RishabhDotasara/Photoflow/internal/progress"
	"github.com/RishabhDotasara/Photoflow/internal/queue"
	"github.com/RishabhDotasara/Photoflow/internal/storage"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run pipeline queue workers",
	Long: `Consume the folder and image lanes and run the ingestion
pipeline: folder enumeration, thumbnail generation and face embedding
extraction. Handlers are idempotent, so re-delivered messages are safe.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().Int("concurrency", 0, "Handler goroutines per lane (defaults to PIPELINE_WORKERS_PER_LANE)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()

	store, err := storage.NewSupabaseStore(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	dispatcher := queue.NewKafkaDispatcher(&cfg.Queue)
	defer dispatcher.Close()

	// One detector client for the whole worker process.
	det := detector.NewClient(cfg.Detector.URL)

	worker := pipeline.NewWorker(pipeline.Deps{
		Projects:   postgres.NewProjectRepository(pool),
		Images:     postgres.NewImageRepository(pool),
		Faces:      postgres.NewFaceRepository(pool),
		Tasks:      postgres.NewTaskRepository(pool),
		Store:      store,
		Detector:   det,
		Dispatcher: dispatcher,
		Tracker:    progress.NewTracker(postgres.NewCounterRepository(pool)),
		Formats:    &cfg.Formats,
		Pipeline:   &cfg.Pipeline,
		ThumbsDir:  cfg.Storage.ThumbnailsDir,
	})

	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Pipeline.WorkersPerLane
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping workers...")
		cancel()
	}()

	fmt.Printf("Consuming %s and %s with %d workers per lane\n",
		cfg.Queue.FolderTopic, cfg.Queue.ImageTopic, concurrency)

	runner := queue.NewRunner(&cfg.Queue, concurrency, worker.Handle)
	runner.Run(ctx)

	fmt.Println("Workers stopped")
	return nil
}
