// Package backends provides storage backends for vector metadata
package backends

import (
	"fmt"
	"sync"
)

// MemoryBackend provides in-memory storage for vector metadata
type MemoryBackend struct {
	// Metadata storage: string ID → metadata (exported for HNSW adapter)
	Metadata map[string]map[string]interface{}

	// Vector storage: string ID → vector (exported for HNSW adapter)
	Vectors map[string][]float32

	// Thread safety (exported for HNSW adapter)
	Mu sync.RWMutex
}

// NewMemoryBackend creates a new in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		Metadata: make(map[string]map[string]interface{}),
		Vectors:  make(map[string][]float32),
	}
}

// Insert stores vector and metadata
func (b *MemoryBackend) Insert(id string, vec []float32, metadata map[string]interface{}) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()

	b.Vectors[id] = vec
	b.Metadata[id] = metadata
	return nil
}

// Delete removes vector and metadata
func (b *MemoryBackend) Delete(id string) error {
	b.Mu.Lock()
	defer b.Mu.Unlock()

	if _, exists := b.Vectors[id]; !exists {
		return fmt.Errorf("vector not found: %s", id)
	}

	delete(b.Vectors, id)
	delete(b.Metadata, id)

	return nil
}

// Count returns total number of vectors
func (b *MemoryBackend) Count() int64 {
	b.Mu.RLock()
	defer b.Mu.RUnlock()

	return int64(len(b.Vectors))
}

// MemoryUsage estimates memory usage in bytes
func (b *MemoryBackend) MemoryUsage(dimension int) int64 {
	b.Mu.RLock()
	defer b.Mu.RUnlock()

	// Rough estimate:
	// - Vector data: count × dimension × 4 bytes (float32)
	// - Metadata: count × 200 bytes (average)
	// - Map overhead: count × 100 bytes (average)

	count := int64(len(b.Vectors))
	vectorBytes := count * int64(dimension) * 4
	metadataBytes := count * 200
	mapBytes := count * 100

	return vectorBytes + metadataBytes + mapBytes
}
