package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alphacv/matchcore/internal/metrics"
	"github.com/alphacv/matchcore/pkg/coreerr"
	"github.com/alphacv/matchcore/pkg/types"
	"github.com/google/uuid"
)

// collectionKey scopes an id by document kind so a CV and a JD can
// reuse the same uuid space without colliding across collections.
func collectionKey(id string, kind types.DocKind) string {
	return string(kind) + ":" + id
}

// Backend is the persistence surface for the documents/structured
// collections. InMemoryBackend and PostgresBackend both implement it;
// the bundle collection is handled separately since it is keyed by
// fixed-shape float64 vectors rather than arbitrary JSON payloads.
type Backend interface {
	PutDocument(ctx context.Context, rec types.DocumentRecord) error
	GetDocument(ctx context.Context, id string, kind types.DocKind) (*types.DocumentRecord, error)
	DeleteDocument(ctx context.Context, id string, kind types.DocKind) error

	PutStructured(ctx context.Context, rec types.StructuredRecord) error
	GetStructured(ctx context.Context, id string, kind types.DocKind) (*types.StructuredRecord, error)
	DeleteStructured(ctx context.Context, id string, kind types.DocKind) error

	Scroll(ctx context.Context, kind types.DocKind) ([]ScrollEntry, error)
}

// ScrollEntry is one row returned by Scroll for listing/admin queries.
type ScrollEntry struct {
	ID      string
	Kind    types.DocKind
	Summary string
}

// Store is the composite C2 adapter: a thin by-id key/value interface
// over three logical collections (documents, structured, embeddings),
// backed by a pluggable Backend for the first two and a float64 bundle
// map plus an auxiliary HNSW SemanticIndex for the third. The bundle
// map is the source of truth for matching: it satisfies the
// bit-equivalent round-trip invariant that the float32 HNSW index
// cannot.
type Store struct {
	backend Backend
	index   SemanticIndex
	metrics metrics.Metrics

	mu      sync.RWMutex
	bundles map[string]*types.Bundle

	maxRetries int
	retryBase  time.Duration
}

// StoreConfig wires the composite store's two persistence tiers.
type StoreConfig struct {
	Backend    Backend
	Index      SemanticIndex
	Metrics    metrics.Metrics
	MaxRetries int
	RetryBase  time.Duration
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("vectorstore: backend is required")
	}
	if cfg.Index == nil {
		idx, err := NewSemanticIndex(DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("vectorstore: default semantic index: %w", err)
		}
		cfg.Index = idx
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoOpMetrics()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 50 * time.Millisecond
	}

	return &Store{
		backend:    cfg.Backend,
		index:      cfg.Index,
		metrics:    cfg.Metrics,
		bundles:    make(map[string]*types.Bundle),
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
	}, nil
}

// withRetry retries transient backend failures with exponential
// backoff up to a small bound, per C2's failure semantics. A
// coreerr.Error of kind Transient or Upstream is considered
// retryable; anything else is returned immediately.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			s.metrics.RecordVectorOp(op, 0)
			return nil
		}
		kind, ok := coreerr.KindOf(lastErr)
		if !ok || (kind != coreerr.KindTransient && kind != coreerr.KindUpstream) {
			s.metrics.RecordVectorError(op)
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryBase * time.Duration(1<<attempt)):
		}
	}
	s.metrics.RecordVectorError(op)
	return lastErr
}

func (s *Store) PutDocument(ctx context.Context, rec types.DocumentRecord) error {
	return s.withRetry(ctx, "put_document", func() error {
		return s.backend.PutDocument(ctx, rec)
	})
}

func (s *Store) GetDocument(ctx context.Context, id string, kind types.DocKind) (*types.DocumentRecord, error) {
	return s.backend.GetDocument(ctx, id, kind)
}

func (s *Store) PutStructured(ctx context.Context, rec types.StructuredRecord) error {
	return s.withRetry(ctx, "put_structured", func() error {
		return s.backend.PutStructured(ctx, rec)
	})
}

func (s *Store) GetStructured(ctx context.Context, id string, kind types.DocKind) (*types.StructuredRecord, error) {
	return s.backend.GetStructured(ctx, id, kind)
}

// PutBundle stores all 32 vectors as the float64 source of truth and
// indexes the job title vector in the auxiliary semantic index for
// optional collection-level queries.
func (s *Store) PutBundle(ctx context.Context, id string, kind types.DocKind, bundle types.Bundle) error {
	if len(bundle.SkillVectors) != types.SkillsCount || len(bundle.ResponsibilityVectors) != types.RespCount ||
		len(bundle.ExperienceVector) != types.VectorDim || len(bundle.JobTitleVector) != types.VectorDim {
		return coreerr.Shape(fmt.Sprintf("bundle for %s has wrong shape", id))
	}

	key := collectionKey(id, kind)

	s.mu.Lock()
	stored := bundle
	s.bundles[key] = &stored
	s.mu.Unlock()

	titleF32 := make([]float32, len(bundle.JobTitleVector))
	for i, v := range bundle.JobTitleVector {
		titleF32[i] = float32(v)
	}

	return s.withRetry(ctx, "put_bundle", func() error {
		return s.index.Insert(ctx, key, titleF32, map[string]interface{}{"id": id, "kind": string(kind)})
	})
}

// GetBundle returns exactly (20, 10, 1, 1) vectors in stored order.
func (s *Store) GetBundle(ctx context.Context, id string, kind types.DocKind) (*types.Bundle, error) {
	key := collectionKey(id, kind)

	s.mu.RLock()
	b, ok := s.bundles[key]
	s.mu.RUnlock()
	if !ok {
		return nil, coreerr.NotFound(fmt.Sprintf("bundle not found for id=%s kind=%s", id, kind))
	}
	if len(b.SkillVectors) != types.SkillsCount || len(b.ResponsibilityVectors) != types.RespCount {
		return nil, coreerr.Shape(fmt.Sprintf("stored bundle for %s has wrong shape", id))
	}

	out := *b
	return &out, nil
}

// Delete removes a document's records across all three collections.
// Per-collection failures are logged by the caller via the returned
// multi-error; overall success is reported only if all three succeed.
func (s *Store) Delete(ctx context.Context, id string, kind types.DocKind) error {
	key := collectionKey(id, kind)

	var errs []error
	if err := s.backend.DeleteDocument(ctx, id, kind); err != nil {
		errs = append(errs, fmt.Errorf("document: %w", err))
	}
	if err := s.backend.DeleteStructured(ctx, id, kind); err != nil {
		errs = append(errs, fmt.Errorf("structured: %w", err))
	}

	s.mu.Lock()
	delete(s.bundles, key)
	s.mu.Unlock()
	if err := s.index.Delete(ctx, key); err != nil {
		errs = append(errs, fmt.Errorf("embeddings: %w", err))
	}

	if len(errs) > 0 {
		return coreerr.Internal(fmt.Sprintf("delete(%s) had %d partial failures", id, len(errs)), combineErrors(errs))
	}
	return nil
}

// Scroll lists (id, summary) pairs for a document kind for listing and
// administrative queries.
func (s *Store) Scroll(ctx context.Context, kind types.DocKind) ([]ScrollEntry, error) {
	return s.backend.Scroll(ctx, kind)
}

// SimilarDocuments returns up to k other documents of the same kind as
// id, ranked by title-vector similarity via the auxiliary HNSW index
// populated in PutBundle. This is the scroll-with-similarity
// administrative query: an operator comparing job postings or
// candidates by title rather than listing every row in the collection.
func (s *Store) SimilarDocuments(ctx context.Context, id string, kind types.DocKind, k int) ([]ScrollEntry, error) {
	if k <= 0 {
		k = 5
	}

	bundle, err := s.GetBundle(ctx, id, kind)
	if err != nil {
		return nil, err
	}

	query := make([]float32, len(bundle.JobTitleVector))
	for i, v := range bundle.JobTitleVector {
		query[i] = float32(v)
	}

	results, err := s.index.Search(ctx, query, k+1)
	if err != nil {
		return nil, err
	}

	selfKey := collectionKey(id, kind)
	out := make([]ScrollEntry, 0, k)
	for _, r := range results {
		if r.ID == selfKey {
			continue
		}
		rkind, _ := r.Metadata["kind"].(string)
		if types.DocKind(rkind) != kind {
			continue
		}
		rid, _ := r.Metadata["id"].(string)
		rec, err := s.backend.GetDocument(ctx, rid, kind)
		if err != nil || rec == nil {
			continue
		}
		out = append(out, ScrollEntry{ID: rid, Kind: kind, Summary: rec.Filename})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// NewDocumentID mints a fresh document id, used by the ingestion
// pipeline when no application-supplied id exists yet.
func NewDocumentID() string {
	return uuid.NewString()
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
