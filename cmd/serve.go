package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/RishabhDotasara/Photoflow/internal/database/postgres"
	"github.com/RishabhDotasara/Photoflow/internal/detector"
	"github.com/RishabhDotasara/Photoflow/internal/pipeline"
	"github.com/RishabhDotasara/Photoflow/internal/progress"
	"github.com/RishabhDotasara/Photoflow/internal/queue"
	"github.com/RishabhDotasara/Photoflow/internal/search"
	"github.com/RishabhDotasara/Photoflow/internal/storage"
	"github.com/RishabhDotasara/Photoflow/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Photoflow API server. The server manages projects,
dispatches analysis runs to the queue and answers guest selfie matches.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("hnsw", false, "Warm up an in-memory HNSW index for selfie matching")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	if err := postgres.Initialize(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	pool := postgres.GetGlobalPool()

	projects := postgres.NewProjectRepository(pool)
	images := postgres.NewImageRepository(pool)
	faces := postgres.NewFaceRepository(pool)
	tasks := postgres.NewTaskRepository(pool)
	counters := postgres.NewCounterRepository(pool)

	store, err := storage.NewSupabaseStore(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	dispatcher := queue.NewKafkaDispatcher(&cfg.Queue)
	defer dispatcher.Close()

	tracker := progress.NewTracker(counters)
	det := detector.NewClient(cfg.Detector.URL)

	worker := pipeline.NewWorker(pipeline.Deps{
		Projects:   projects,
		Images:     images,
		Faces:      faces,
		Tasks:      tasks,
		Store:      store,
		Detector:   det,
		Dispatcher: dispatcher,
		Tracker:    tracker,
		Formats:    &cfg.Formats,
		Pipeline:   &cfg.Pipeline,
		ThumbsDir:  cfg.Storage.ThumbnailsDir,
	})

	engine := search.NewEngine(faces, images)
	if mustGetBool(cmd, "hnsw") {
		fmt.Printf("Building in-memory HNSW index for selfie matching...\n")
		if err := engine.EnableHNSW(context.Background(), ""); err != nil {
			fmt.Printf("Warning: failed to build HNSW index: %v\n", err)
			fmt.Printf("Selfie matching will use PostgreSQL queries (slower)\n")
		}
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(cfg, port, host, web.Deps{
		Projects: projects,
		Images:   images,
		Tasks:    tasks,
		Store:    store,
		Worker:   worker,
		Tracker:  tracker,
		Engine:   engine,
		Detector: det,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photoflow API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
