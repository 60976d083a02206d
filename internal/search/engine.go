package search

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/RishabhDotasara/Photoflow/internal/database"
)

// Options tune a single similarity query. Zero values fall back to the
// defaults used by the guest selfie endpoint.
type Options struct {
	// Threshold is the maximum cosine distance for an image to match.
	Threshold float64
	// Limit caps the number of returned images.
	Limit int
	// ProjectID restricts the search to a single project; empty
	// searches all projects.
	ProjectID string
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = database.DefaultDistanceThreshold
	}
	if o.Limit <= 0 {
		o.Limit = database.DefaultSearchLimit
	}
	return o
}

// Engine answers face similarity queries. The default path delegates to
// the database (pgvector with its own HNSW index); EnableHNSW switches
// to an in-memory graph for read-heavy deployments.
type Engine struct {
	faces  database.FaceStore
	images database.ImageStore
	index  *database.HNSWIndex
}

func NewEngine(faces database.FaceStore, images database.ImageStore) *Engine {
	return &Engine{faces: faces, images: images}
}

// EnableHNSW loads all stored faces of the given project (empty for
// everything) into an in-memory HNSW index and routes subsequent
// queries through it. Faces stored after this call are not visible
// until the next EnableHNSW.
func (e *Engine) EnableHNSW(ctx context.Context, projectID string) error {
	faces, err := e.faces.AllFaces(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load faces for index: %w", err)
	}

	index := database.NewHNSWIndex()
	if err := index.BuildFromFaces(faces); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	e.index = index
	log.Printf("search: in-memory index ready with %d faces", index.Count())
	return nil
}

// DisableHNSW drops the in-memory index; queries go back to the
// database path.
func (e *Engine) DisableHNSW() {
	e.index = nil
}

// FindSimilarImages returns the images whose closest face is within the
// distance threshold of the query embedding, ascending by that minimum
// distance.
func (e *Engine) FindSimilarImages(ctx context.Context, embedding []float32, opts Options) ([]database.ImageMatch, error) {
	if len(embedding) != database.FaceEmbeddingDim {
		return nil, fmt.Errorf("query embedding has dimension %d, want %d", len(embedding), database.FaceEmbeddingDim)
	}
	opts = opts.withDefaults()

	if e.index != nil && !e.index.IsEmpty() {
		return e.searchIndex(ctx, embedding, opts)
	}
	return e.faces.FindSimilarImages(ctx, embedding, opts.Threshold, opts.Limit, opts.ProjectID)
}

// searchIndex over-fetches nearest faces from the HNSW graph, keeps the
// minimum distance per image, filters by threshold and truncates.
func (e *Engine) searchIndex(ctx context.Context, embedding []float32, opts Options) ([]database.ImageMatch, error) {
	k := opts.Limit * database.HNSWSearchMultiplier
	ids, distances, err := e.index.Search(embedding, k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	minByImage := make(map[string]float64)
	var imageIDs []string
	for i, id := range ids {
		face := e.index.GetFace(id)
		if face == nil {
			continue
		}
		d := distances[i]
		if d > opts.Threshold {
			continue
		}
		if prev, seen := minByImage[face.ImageID]; !seen || d < prev {
			if !seen {
				imageIDs = append(imageIDs, face.ImageID)
			}
			minByImage[face.ImageID] = d
		}
	}

	if len(imageIDs) == 0 {
		return []database.ImageMatch{}, nil
	}

	images, err := e.images.ByIDs(ctx, imageIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve matched images: %w", err)
	}

	// ByIDs returns insertion order, which doubles as the tie-break
	// for equal distances.
	matches := make([]database.ImageMatch, 0, len(images))
	for _, img := range images {
		if opts.ProjectID != "" && img.ProjectID != opts.ProjectID {
			continue
		}
		matches = append(matches, database.ImageMatch{Image: img, Distance: minByImage[img.ID]})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}
	return matches, nil
}
