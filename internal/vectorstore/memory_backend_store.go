package vectorstore

import (
	"context"
	"sync"

	"github.com/alphacv/matchcore/pkg/coreerr"
	"github.com/alphacv/matchcore/pkg/types"
)

// InMemoryBackend implements Backend with plain maps, used by tests and
// by deployments that do not need cross-process document persistence.
type InMemoryBackend struct {
	mu         sync.RWMutex
	documents  map[string]types.DocumentRecord
	structured map[string]types.StructuredRecord
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		documents:  make(map[string]types.DocumentRecord),
		structured: make(map[string]types.StructuredRecord),
	}
}

func (b *InMemoryBackend) PutDocument(_ context.Context, rec types.DocumentRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.documents[collectionKey(rec.ID, rec.Kind)] = rec
	return nil
}

func (b *InMemoryBackend) GetDocument(_ context.Context, id string, kind types.DocKind) (*types.DocumentRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.documents[collectionKey(id, kind)]
	if !ok {
		return nil, coreerr.NotFound("document not found: " + id)
	}
	return &rec, nil
}

func (b *InMemoryBackend) DeleteDocument(_ context.Context, id string, kind types.DocKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.documents, collectionKey(id, kind))
	return nil
}

func (b *InMemoryBackend) PutStructured(_ context.Context, rec types.StructuredRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.structured[collectionKey(rec.ID, rec.Kind)] = rec
	return nil
}

func (b *InMemoryBackend) GetStructured(_ context.Context, id string, kind types.DocKind) (*types.StructuredRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.structured[collectionKey(id, kind)]
	if !ok {
		return nil, coreerr.NotFound("structured record not found: " + id)
	}
	return &rec, nil
}

func (b *InMemoryBackend) DeleteStructured(_ context.Context, id string, kind types.DocKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.structured, collectionKey(id, kind))
	return nil
}

func (b *InMemoryBackend) Scroll(_ context.Context, kind types.DocKind) ([]ScrollEntry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := make([]ScrollEntry, 0)
	for _, rec := range b.documents {
		if rec.Kind != kind {
			continue
		}
		entries = append(entries, ScrollEntry{ID: rec.ID, Kind: rec.Kind, Summary: rec.Filename})
	}
	return entries, nil
}
