package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/alphacv/matchcore/internal/metrics"
)

// MemoryIndex implements SemanticIndex using the fogfish/hnsw in-memory index.
type MemoryIndex struct {
	adapter *HNSWAdapter
	config  Config
	metrics metrics.Metrics
}

// NewMemoryIndex creates an in-memory semantic index.
func NewMemoryIndex(config Config) (*MemoryIndex, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", config.Dimension)
	}

	adapter, err := NewHNSWAdapter(config.Dimension, config.HNSW)
	if err != nil {
		return nil, fmt.Errorf("failed to create HNSW adapter: %w", err)
	}

	var m metrics.Metrics = metrics.NewNoOpMetrics()
	if config.Metrics != nil {
		if metricsImpl, ok := config.Metrics.(metrics.Metrics); ok {
			m = metricsImpl
		}
	}

	return &MemoryIndex{
		adapter: adapter,
		config:  config,
		metrics: m,
	}, nil
}

func (s *MemoryIndex) Insert(ctx context.Context, id string, vec []float32, metadata map[string]interface{}) error {
	start := time.Now()
	err := s.adapter.Insert(ctx, id, vec, metadata)
	duration := time.Since(start)

	if err == nil {
		s.metrics.RecordVectorOp("insert", duration)
		if stats, statErr := s.adapter.Stats(ctx); statErr == nil {
			s.metrics.UpdateVectorStoreSize(int(stats.TotalVectors))
			s.metrics.UpdateIndexSize(stats.MemoryUsageBytes)
		}
	} else {
		s.metrics.RecordVectorError("insert_failed")
	}

	return err
}

func (s *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*SearchResult, error) {
	start := time.Now()
	results, err := s.adapter.Search(ctx, query, k)
	duration := time.Since(start)

	if err == nil {
		s.metrics.RecordVectorOp("search", duration)
	} else {
		s.metrics.RecordVectorError("search_failed")
	}

	return results, err
}

func (s *MemoryIndex) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.adapter.Delete(ctx, id)
	duration := time.Since(start)

	if err == nil {
		s.metrics.RecordVectorOp("delete", duration)
		if stats, statErr := s.adapter.Stats(ctx); statErr == nil {
			s.metrics.UpdateVectorStoreSize(int(stats.TotalVectors))
			s.metrics.UpdateIndexSize(stats.MemoryUsageBytes)
		}
	} else {
		s.metrics.RecordVectorError("delete_failed")
	}

	return err
}

func (s *MemoryIndex) Stats(ctx context.Context) (*StoreStats, error) {
	return s.adapter.Stats(ctx)
}

func (s *MemoryIndex) Close() error {
	return s.adapter.Close()
}

// NewSemanticIndex creates a semantic index based on configuration.
func NewSemanticIndex(config Config) (SemanticIndex, error) {
	switch config.Backend {
	case "memory":
		return NewMemoryIndex(config)
	default:
		return nil, fmt.Errorf("unknown semantic index backend: %s", config.Backend)
	}
}
