// Package vectorstore implements C2: by-id storage and retrieval for
// the three collections the matching core persists (document records,
// structured info, and embedding bundles), plus an auxiliary HNSW index
// for semantic title-vector lookups. Generalized from the authorization
// engine's vector package, which provided only the HNSW-backed
// similarity search half of this surface.
package vectorstore

import (
	"context"
	"time"
)

// SemanticIndex provides approximate nearest-neighbor search over a
// single float32 vector space. It is an auxiliary index only: the
// authoritative embedding bundle is always the float64 copy held by
// Store, since an HNSW index built on float32 cannot satisfy the
// bit-equivalent round-trip required of a Bundle.
type SemanticIndex interface {
	Insert(ctx context.Context, id string, vector []float32, metadata map[string]interface{}) error
	Search(ctx context.Context, query []float32, k int) ([]*SearchResult, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*StoreStats, error)
	Close() error
}

// SearchResult represents a nearest neighbor result
type SearchResult struct {
	ID       string                 // Vector ID
	Score    float32                // Similarity score (higher = more similar)
	Distance float32                // Distance metric (lower = more similar)
	Vector   []float32              // Original vector
	Metadata map[string]interface{} // Associated metadata
}

// StoreStats provides store statistics
type StoreStats struct {
	TotalVectors     int64
	Dimension        int
	IndexType        string
	MemoryUsageBytes int64
	LastInsertTime   time.Time
}

// Config configures the auxiliary semantic index.
type Config struct {
	// Backend type: NewSemanticIndex accepts only "memory" and returns an
	// error for any other value.
	Backend string

	// Vector dimension of the index (the title vector's 768 dims)
	Dimension int

	// HNSW parameters
	HNSW HNSWConfig

	// PostgreSQL config; NewSemanticIndex does not read it.
	Postgres *PostgresConfig

	// Metrics implementation to record insert/search/delete ops.
	// Accepts the metrics.Metrics interface via an empty interface to
	// avoid importing internal/metrics here; callers pass it through.
	Metrics interface{}
}

// HNSWConfig configures HNSW indexing
type HNSWConfig struct {
	// M: number of bi-directional links per layer (default: 16)
	M int

	// EfConstruction: size of dynamic candidate list during construction (default: 200)
	EfConstruction int

	// EfSearch: size of dynamic candidate list during search (default: 50)
	EfSearch int

	// MaxLayers: maximum number of layers (default: auto-calculated)
	MaxLayers int
}

// PostgresConfig configures the PostgreSQL-backed document/structured
// collections (C2's persistent store for non-vector records).
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DefaultConfig returns sensible defaults for the auxiliary index.
func DefaultConfig() Config {
	return Config{
		Backend:   "memory",
		Dimension: 768,
		HNSW: HNSWConfig{
			M:              16,
			EfConstruction: 200,
			EfSearch:       50,
		},
	}
}
