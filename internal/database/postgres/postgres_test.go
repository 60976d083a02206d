//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RishabhDotasara/Photoflow/internal/config"
	"github.com/RishabhDotasara/Photoflow/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func testEmbedding(fill float32) []float32 {
	v := make([]float32, database.FaceEmbeddingDim)
	for i := range v {
		v[i] = fill
	}
	v[0] = 1 // non-degenerate direction
	return v
}

func TestProjectRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewProjectRepository(pool)

	t.Run("CreateAndGet", func(t *testing.T) {
		p := &database.Project{UserID: "u1", Name: "Wedding"}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if p.ID == "" {
			t.Fatal("expected generated ID")
		}

		got, err := repo.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != database.ProjectStatusWaiting {
			t.Errorf("status = %s; want waiting", got.Status)
		}
	})

	t.Run("DuplicateNameConflicts", func(t *testing.T) {
		if err := repo.Create(ctx, &database.Project{UserID: "u2", Name: "Dup"}); err != nil {
			t.Fatalf("first Create failed: %v", err)
		}
		err := repo.Create(ctx, &database.Project{UserID: "u2", Name: "Dup"})
		if !errors.Is(err, database.ErrConflict) {
			t.Errorf("expected ErrConflict, got: %v", err)
		}
		// Same name for another user is fine.
		if err := repo.Create(ctx, &database.Project{UserID: "u3", Name: "Dup"}); err != nil {
			t.Errorf("cross-user name should not conflict: %v", err)
		}
	})

	t.Run("CompleteIfNotCompletedFiresOnce", func(t *testing.T) {
		p := &database.Project{UserID: "u4", Name: "CAS"}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		fired, err := repo.CompleteIfNotCompleted(ctx, p.ID)
		if err != nil {
			t.Fatalf("first CAS failed: %v", err)
		}
		if !fired {
			t.Error("first transition should fire")
		}

		fired, err = repo.CompleteIfNotCompleted(ctx, p.ID)
		if err != nil {
			t.Fatalf("second CAS failed: %v", err)
		}
		if fired {
			t.Error("second transition must not fire")
		}
	})

	t.Run("SetStoragePrefixResetsStatus", func(t *testing.T) {
		p := &database.Project{UserID: "u5", Name: "Reset", Status: database.ProjectStatusCompleted}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := repo.SetStoragePrefix(ctx, p.ID, "folder"); err != nil {
			t.Fatalf("SetStoragePrefix failed: %v", err)
		}
		got, err := repo.Get(ctx, p.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != database.ProjectStatusWaiting {
			t.Errorf("status = %s; want waiting after folder change", got.Status)
		}
	})
}

func TestImageRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	projects := NewProjectRepository(pool)
	images := NewImageRepository(pool)

	project := &database.Project{UserID: "u1", Name: "Images"}
	if err := projects.Create(ctx, project); err != nil {
		t.Fatalf("creating project: %v", err)
	}

	t.Run("DedupOnObjectKey", func(t *testing.T) {
		img := &database.Image{ProjectID: project.ID, ObjectKey: "folder/a.jpg", Name: "a.jpg"}
		if err := images.Create(ctx, img); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		err := images.Create(ctx, &database.Image{ProjectID: project.ID, ObjectKey: "folder/a.jpg", Name: "a.jpg"})
		if !errors.Is(err, database.ErrConflict) {
			t.Errorf("expected ErrConflict for duplicate object key, got: %v", err)
		}
	})

	t.Run("UnprocessedTracking", func(t *testing.T) {
		img := &database.Image{ProjectID: project.ID, ObjectKey: "folder/b.jpg", Name: "b.jpg"}
		if err := images.Create(ctx, img); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		count, err := images.CountUnprocessed(ctx, project.ID)
		if err != nil {
			t.Fatalf("CountUnprocessed failed: %v", err)
		}
		if count != 2 {
			t.Errorf("unprocessed = %d; want 2", count)
		}

		unprocessed, err := images.Unprocessed(ctx, project.ID)
		if err != nil {
			t.Fatalf("Unprocessed failed: %v", err)
		}
		if len(unprocessed) != 2 || unprocessed[0].ObjectKey != "folder/a.jpg" {
			t.Errorf("unprocessed set wrong: %+v", unprocessed)
		}
	})
}

func TestFaceRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	projects := NewProjectRepository(pool)
	images := NewImageRepository(pool)
	faces := NewFaceRepository(pool)

	project := &database.Project{UserID: "u1", Name: "Faces"}
	if err := projects.Create(ctx, project); err != nil {
		t.Fatalf("creating project: %v", err)
	}

	newImage := func(key string) *database.Image {
		img := &database.Image{ProjectID: project.ID, ObjectKey: key, Name: key}
		if err := images.Create(ctx, img); err != nil {
			t.Fatalf("creating image %s: %v", key, err)
		}
		return img
	}

	t.Run("SaveDetectionsMarksProcessed", func(t *testing.T) {
		img := newImage("f/a.jpg")
		err := faces.SaveDetections(ctx, img.ID, []database.StoredFace{
			{ImageID: img.ID, FaceIndex: 0, Embedding: testEmbedding(0.1), BBox: []float64{1, 2, 3, 4}, DetScore: 0.97},
		})
		if err != nil {
			t.Fatalf("SaveDetections failed: %v", err)
		}

		got, err := images.Get(ctx, img.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.Processed {
			t.Error("image should be processed after saving detections")
		}

		count, err := faces.CountByProject(ctx, project.ID)
		if err != nil {
			t.Fatalf("CountByProject failed: %v", err)
		}
		if count != 1 {
			t.Errorf("face count = %d; want 1", count)
		}
	})

	t.Run("EmptyDetectionsStillMarkProcessed", func(t *testing.T) {
		img := newImage("f/empty.jpg")
		if err := faces.SaveDetections(ctx, img.ID, nil); err != nil {
			t.Fatalf("SaveDetections failed: %v", err)
		}
		got, err := images.Get(ctx, img.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.Processed {
			t.Error("image with zero faces should still be processed")
		}
	})

	t.Run("SaveDetectionsReplacesOldFaces", func(t *testing.T) {
		img := newImage("f/redo.jpg")
		first := []database.StoredFace{
			{ImageID: img.ID, FaceIndex: 0, Embedding: testEmbedding(0.2), BBox: []float64{0, 0, 1, 1}},
			{ImageID: img.ID, FaceIndex: 1, Embedding: testEmbedding(0.3), BBox: []float64{1, 1, 2, 2}},
		}
		if err := faces.SaveDetections(ctx, img.ID, first); err != nil {
			t.Fatalf("first SaveDetections failed: %v", err)
		}

		// Redelivered message with a different result must not stack rows.
		second := []database.StoredFace{
			{ImageID: img.ID, FaceIndex: 0, Embedding: testEmbedding(0.4), BBox: []float64{0, 0, 1, 1}},
		}
		if err := faces.SaveDetections(ctx, img.ID, second); err != nil {
			t.Fatalf("second SaveDetections failed: %v", err)
		}

		all, err := faces.AllFaces(ctx, project.ID)
		if err != nil {
			t.Fatalf("AllFaces failed: %v", err)
		}
		perImage := 0
		for _, f := range all {
			if f.ImageID == img.ID {
				perImage++
			}
		}
		if perImage != 1 {
			t.Errorf("faces for redone image = %d; want 1", perImage)
		}
	})

	t.Run("FindSimilarImages", func(t *testing.T) {
		near := newImage("f/near.jpg")
		far := newImage("f/far.jpg")

		query := testEmbedding(0.5)
		if err := faces.SaveDetections(ctx, near.ID, []database.StoredFace{
			{ImageID: near.ID, FaceIndex: 0, Embedding: query, BBox: []float64{0, 0, 1, 1}},
		}); err != nil {
			t.Fatalf("seeding near: %v", err)
		}
		opposite := testEmbedding(-0.5)
		opposite[0] = -1
		if err := faces.SaveDetections(ctx, far.ID, []database.StoredFace{
			{ImageID: far.ID, FaceIndex: 0, Embedding: opposite, BBox: []float64{0, 0, 1, 1}},
		}); err != nil {
			t.Fatalf("seeding far: %v", err)
		}

		matches, err := faces.FindSimilarImages(ctx, query, database.DefaultDistanceThreshold, database.DefaultSearchLimit, project.ID)
		if err != nil {
			t.Fatalf("FindSimilarImages failed: %v", err)
		}
		for _, m := range matches {
			if m.Image.ID == far.ID {
				t.Error("opposite embedding should be outside the threshold")
			}
		}
		if len(matches) == 0 || matches[0].Image.ID != near.ID {
			t.Errorf("matches = %+v; want near.jpg first", matches)
		}
		if matches[0].Distance > 1e-4 {
			t.Errorf("identical embedding distance = %f; want ~0", matches[0].Distance)
		}
	})
}

func TestCounterRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	projects := NewProjectRepository(pool)
	counters := NewCounterRepository(pool)

	project := &database.Project{UserID: "u1", Name: "Counters"}
	if err := projects.Create(ctx, project); err != nil {
		t.Fatalf("creating project: %v", err)
	}

	t.Run("IncrementCreatesAndCounts", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			v, err := counters.Increment(ctx, project.ID, "processed_images")
			if err != nil {
				t.Fatalf("Increment failed: %v", err)
			}
			if v != int64(i) {
				t.Errorf("increment %d returned %d", i, v)
			}
		}
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		if err := counters.Set(ctx, project.ID, "total_images", 42); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, err := counters.Get(ctx, project.ID, "total_images")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if v != 42 {
			t.Errorf("value = %d; want 42", v)
		}
	})

	t.Run("MissingCounterIsZero", func(t *testing.T) {
		v, err := counters.Get(ctx, project.ID, "does_not_exist")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if v != 0 {
			t.Errorf("value = %d; want 0", v)
		}
	})
}
