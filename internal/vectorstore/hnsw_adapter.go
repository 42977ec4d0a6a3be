// Package vectorstore's HNSW-based auxiliary semantic index.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/alphacv/matchcore/internal/vectorstore/backends"
	"github.com/fogfish/hnsw"
	hnswvector "github.com/kshard/vector"
)

// HNSWAdapter wraps fogfish/hnsw index behind the SemanticIndex interface.
type HNSWAdapter struct {
	index     *hnsw.HNSW[[]float32]
	backend   *backends.MemoryBackend
	dimension int
	efSearch  int
	config    HNSWConfig

	lastInsert time.Time
	mu         sync.RWMutex
}

// NewHNSWAdapter creates a new HNSW index using fogfish/hnsw
func NewHNSWAdapter(dimension int, cfg HNSWConfig) (*HNSWAdapter, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}

	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfConstruction <= 0 {
		cfg.EfConstruction = 200
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 50
	}

	cosineFunc := hnswvector.Cosine()
	surface := hnswvector.Surface[[]float32]{
		Distance: func(a, b []float32) float32 {
			f32a := hnswvector.F32(a)
			f32b := hnswvector.F32(b)
			return cosineFunc.Distance(f32a, f32b)
		},
		Equal: func(a, b []float32) bool {
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
	}

	index := hnsw.New[[]float32](
		surface,
		hnsw.WithM(cfg.M),
		hnsw.WithM0(cfg.M*2),
		hnsw.WithEfConstruction(cfg.EfConstruction),
	)

	backend := backends.NewMemoryBackend()

	return &HNSWAdapter{
		index:     index,
		backend:   backend,
		dimension: dimension,
		efSearch:  cfg.EfSearch,
		config:    cfg,
	}, nil
}

// Insert adds a vector to the HNSW index
func (a *HNSWAdapter) Insert(ctx context.Context, id string, vec []float32, metadata map[string]interface{}) error {
	if len(vec) != a.dimension {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), a.dimension)
	}
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	if err := a.backend.Insert(id, vec, metadata); err != nil {
		return fmt.Errorf("backend insert failed: %w", err)
	}

	a.index.Insert(vec)

	a.mu.Lock()
	a.lastInsert = time.Now()
	a.mu.Unlock()

	return nil
}

// Search finds k nearest neighbors
func (a *HNSWAdapter) Search(ctx context.Context, query []float32, k int) ([]*SearchResult, error) {
	if len(query) != a.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), a.dimension)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	neighbors := a.index.Search(query, k, a.efSearch)

	results := make([]*SearchResult, 0, len(neighbors))

	a.backend.Mu.RLock()
	for _, neighborVec := range neighbors {
		bestID := ""
		var bestDistance float32 = math.MaxFloat32

		for id, storedVec := range a.backend.Vectors {
			dist := euclideanDistance(neighborVec, storedVec)
			if dist < bestDistance {
				bestDistance = dist
				bestID = id
			}
			if dist < 0.0001 {
				bestID = id
				break
			}
		}

		if bestID != "" && bestDistance < 0.0001 {
			score := cosineSimilarity(query, neighborVec)
			distance := euclideanDistance(query, neighborVec)

			results = append(results, &SearchResult{
				ID:       bestID,
				Score:    score,
				Distance: distance,
				Vector:   neighborVec,
				Metadata: a.backend.Metadata[bestID],
			})
		}
	}
	a.backend.Mu.RUnlock()

	return results, nil
}

// Delete removes a vector. fogfish/hnsw doesn't support deletion from
// the graph, so the vector only disappears from the backend and is
// filtered at result-resolution time.
func (a *HNSWAdapter) Delete(ctx context.Context, id string) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	err := a.backend.Delete(id)
	if err != nil {
		return fmt.Errorf("backend delete failed: %w", err)
	}

	return nil
}

// Stats returns index statistics
func (a *HNSWAdapter) Stats(ctx context.Context) (*StoreStats, error) {
	a.mu.RLock()
	lastInsert := a.lastInsert
	a.mu.RUnlock()

	return &StoreStats{
		TotalVectors:     a.backend.Count(),
		Dimension:        a.dimension,
		IndexType:        "hnsw-fogfish",
		MemoryUsageBytes: a.backend.MemoryUsage(a.dimension),
		LastInsertTime:   lastInsert,
	}, nil
}

// Close releases resources
func (a *HNSWAdapter) Close() error {
	return nil
}

func euclideanDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return float32(math.Sqrt(float64(sum)))
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
