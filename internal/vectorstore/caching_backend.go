package vectorstore

import (
	"context"
	"time"

	"github.com/alphacv/matchcore/internal/cache"
	"github.com/alphacv/matchcore/pkg/types"
)

// CachingBackend decorates a Backend with an in-process LRU read-through
// cache, grounded in the authorization engine's generic cache.LRU
// building block. It exists for the PostgresBackend deployment where a
// round trip to the database is comparatively expensive; InMemoryBackend
// deployments (tests, single-process dev) have no need for it.
type CachingBackend struct {
	inner      Backend
	documents  *cache.LRU
	structured *cache.LRU
}

// NewCachingBackend wraps inner with two independent LRUs (documents,
// structured records), each entry evicted after ttl.
func NewCachingBackend(inner Backend, capacity int, ttl time.Duration) *CachingBackend {
	return &CachingBackend{
		inner:      inner,
		documents:  cache.NewLRU(capacity, ttl),
		structured: cache.NewLRU(capacity, ttl),
	}
}

func (b *CachingBackend) PutDocument(ctx context.Context, rec types.DocumentRecord) error {
	if err := b.inner.PutDocument(ctx, rec); err != nil {
		return err
	}
	b.documents.Set(collectionKey(rec.ID, rec.Kind), rec)
	return nil
}

func (b *CachingBackend) GetDocument(ctx context.Context, id string, kind types.DocKind) (*types.DocumentRecord, error) {
	if v, ok := b.documents.Get(collectionKey(id, kind)); ok {
		rec := v.(types.DocumentRecord)
		return &rec, nil
	}
	rec, err := b.inner.GetDocument(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	b.documents.Set(collectionKey(id, kind), *rec)
	return rec, nil
}

func (b *CachingBackend) DeleteDocument(ctx context.Context, id string, kind types.DocKind) error {
	b.documents.Delete(collectionKey(id, kind))
	return b.inner.DeleteDocument(ctx, id, kind)
}

func (b *CachingBackend) PutStructured(ctx context.Context, rec types.StructuredRecord) error {
	if err := b.inner.PutStructured(ctx, rec); err != nil {
		return err
	}
	b.structured.Set(collectionKey(rec.ID, rec.Kind), rec)
	return nil
}

func (b *CachingBackend) GetStructured(ctx context.Context, id string, kind types.DocKind) (*types.StructuredRecord, error) {
	if v, ok := b.structured.Get(collectionKey(id, kind)); ok {
		rec := v.(types.StructuredRecord)
		return &rec, nil
	}
	rec, err := b.inner.GetStructured(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	b.structured.Set(collectionKey(id, kind), *rec)
	return rec, nil
}

func (b *CachingBackend) DeleteStructured(ctx context.Context, id string, kind types.DocKind) error {
	b.structured.Delete(collectionKey(id, kind))
	return b.inner.DeleteStructured(ctx, id, kind)
}

// Scroll bypasses the cache: listing is infrequent (admin/operator use)
// and must reflect the backend's current contents exactly.
func (b *CachingBackend) Scroll(ctx context.Context, kind types.DocKind) ([]ScrollEntry, error) {
	return b.inner.Scroll(ctx, kind)
}
