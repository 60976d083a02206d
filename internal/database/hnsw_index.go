package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex wraps an in-memory HNSW graph over face embeddings for
// O(log N) nearest-neighbor search. The graph stores face IDs; the
// index keeps a side map to resolve them back to faces.
type HNSWIndex struct {
	graph    *hnsw.Graph[int64]
	idToFace map[int64]*StoredFace
	mu       sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		idToFace: make(map[int64]*StoredFace),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // standard HNSW level formula
	g.Distance = hnsw.CosineDistance
	return g
}

// BuildFromFaces replaces the index content with the given faces.
func (h *HNSWIndex) BuildFromFaces(faces []StoredFace) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(faces) == 0 {
		h.graph = nil
		h.idToFace = make(map[int64]*StoredFace)
		return nil
	}

	g := newGraph()
	h.idToFace = make(map[int64]*StoredFace, len(faces))

	for i := range faces {
		face := &faces[i]
		if len(face.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(face.ID, face.Embedding))
		h.idToFace[face.ID] = face
	}

	h.graph = g
	return nil
}

// Add inserts a single face into the index.
func (h *HNSWIndex) Add(face *StoredFace) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(face.Embedding) == 0 {
		return
	}
	if h.graph == nil {
		h.graph = newGraph()
	}
	h.graph.Add(hnsw.MakeNode(face.ID, face.Embedding))
	h.idToFace[face.ID] = face
}

// Delete removes a face from the index by ID.
func (h *HNSWIndex) Delete(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.graph != nil {
		h.graph.Delete(id)
	}
	delete(h.idToFace, id)
}

// Search finds the k nearest faces to the query embedding. Returns face
// IDs and their exact cosine distances, recomputed from the node
// vectors so results do not depend on graph internals.
func (h *HNSWIndex) Search(query []float32, k int) ([]int64, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := h.graph.Search(query, k)

	ids := make([]int64, len(neighbors))
	distances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
		if len(n.Value) > 0 {
			distances[i] = CosineDistance(query, n.Value)
		}
	}

	return ids, distances, nil
}

// GetFace returns the face for a given ID, nil when unknown.
func (h *HNSWIndex) GetFace(id int64) *StoredFace {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idToFace[id]
}

// Count returns the number of faces in the index.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToFace)
}

// IsEmpty reports whether the index holds no faces.
func (h *HNSWIndex) IsEmpty() bool {
	return h.Count() == 0
}
