package database

// FaceEmbeddingDim is the fixed dimension of face embeddings (512 for
// the buffalo_l detection/recognition model family).
const FaceEmbeddingDim = 512

// HNSW tuning shared between the in-memory index and the pgvector
// queries, so both paths have comparable recall.
const (
	// HNSWMaxNeighbors is the M parameter of the HNSW graph.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the ef_search value applied to pgvector queries.
	HNSWEfSearch = 200

	// HNSWSearchMultiplier over-fetches candidates before the
	// per-image aggregation and distance filtering.
	HNSWSearchMultiplier = 4
)

// DefaultDistanceThreshold is the maximum cosine distance for a face to
// count as a match. Cosine distance lives in [0, 2]; lower is closer.
const DefaultDistanceThreshold = 0.6

// DefaultSearchLimit caps the number of images returned by a
// similarity search when the caller does not set a limit.
const DefaultSearchLimit = 10
