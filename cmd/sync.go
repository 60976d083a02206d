package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/RishabhDotasara/Photoflow/internal/database/postgres"
	"github.com/RishabhDotasara/Photoflow/internal/detector"
	"github.com/RishabhDotasara/Photoflow/internal/pipeline"
	"github.com/RishabhDotasara/Photoflow/internal/progress"
	"github.com/RishabhDotasara/Photoflow/internal/queue"
	"github.com/RishabhDotasara/Photoflow/internal/storage"
)

var syncCmd = &cobra.Command{
	Use:   "sync <project-id>",
	Short: "Run folder enumeration for a project and watch its progress",
	Long: `Enumerate the project's storage folder inline, dispatch the
per-image work to the queue and poll the progress counters until the
pipeline drains. Safe to re-run; already ingested images are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("user", "cli", "User ID recorded on the run")
	syncCmd.Flags().Int("poll-interval", 2, "Progress poll interval in seconds")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	projectID := args[0]

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
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

	tracker := progress.NewTracker(postgres.NewCounterRepository(pool))
	worker := pipeline.NewWorker(pipeline.Deps{
		Projects:   postgres.NewProjectRepository(pool),
		Images:     postgres.NewImageRepository(pool),
		Faces:      postgres.NewFaceRepository(pool),
		Tasks:      postgres.NewTaskRepository(pool),
		Store:      store,
		Detector:   detector.NewClient(cfg.Detector.URL),
		Dispatcher: dispatcher,
		Tracker:    tracker,
		Formats:    &cfg.Formats,
		Pipeline:   &cfg.Pipeline,
		ThumbsDir:  cfg.Storage.ThumbnailsDir,
	})

	ctx := context.Background()
	userID := mustGetString(cmd, "user")

	fmt.Printf("Enumerating storage folder for project %s...\n", projectID)
	if err := worker.RunFolderJob(ctx, projectID, userID); err != nil {
		return fmt.Errorf("folder enumeration failed: %w", err)
	}

	p, err := tracker.Read(ctx, projectID)
	if err != nil {
		return fmt.Errorf("reading progress: %w", err)
	}
	if p.Total == 0 {
		fmt.Println("Nothing to process, project is up to date")
		return nil
	}

	fmt.Printf("Dispatched %d images to the pipeline\n\n", p.Total)

	bar := progressbar.NewOptions(int(p.Total),
		progressbar.OptionSetDescription("Extracting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	interval := time.Duration(mustGetInt(cmd, "poll-interval")) * time.Second
	for {
		time.Sleep(interval)

		p, err = tracker.Read(ctx, projectID)
		if err != nil {
			return fmt.Errorf("reading progress: %w", err)
		}
		bar.Set64(p.Processed)

		if p.Processed >= p.Total {
			break
		}
	}

	fmt.Printf("\nDone: %d images processed, %d thumbnails generated\n",
		p.Processed, p.ThumbnailsDone)
	return nil
}
