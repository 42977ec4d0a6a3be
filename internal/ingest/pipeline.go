// Package ingest implements C4: per-application orchestration from a
// raw upload to a persisted standardized-info + embedding bundle pair,
// modeled on the authorization engine's Check()-style sequential
// resolve -> evaluate -> cache -> respond orchestration
// (internal/engine/engine.go), generalized to this pipeline's
// parse -> standardize -> embed -> persist -> link shape. The queue
// (C5) invokes Pipeline.Process as its Handler; the pipeline itself
// never retries — that is the queue's responsibility per §4.4.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/alphacv/matchcore/internal/embedding"
	"github.com/alphacv/matchcore/internal/metrics"
	"github.com/alphacv/matchcore/internal/vectorstore"
	"github.com/alphacv/matchcore/pkg/coreerr"
	"github.com/alphacv/matchcore/pkg/types"
	"go.uber.org/zap"
)

// Config holds the per-external-call deadlines the concurrency model
// requires (§5: "each external call ... runs under a configurable
// deadline; deadline expiry raises a retryable error").
type Config struct {
	ParseTimeout       time.Duration
	StandardizeTimeout time.Duration
	EmbedTimeout       time.Duration
	PersistTimeout     time.Duration
	LinkTimeout        time.Duration
}

func DefaultConfig() Config {
	return Config{
		ParseTimeout:       30 * time.Second,
		StandardizeTimeout: 60 * time.Second,
		EmbedTimeout:       15 * time.Second,
		PersistTimeout:     10 * time.Second,
		LinkTimeout:        5 * time.Second,
	}
}

// Pipeline is the C4 ingestion pipeline.
type Pipeline struct {
	cfg          Config
	parser       Parser
	standardizer Standardizer
	embedder     *embedding.Engine
	store        *vectorstore.Store
	jd           JDLookup
	metrics      metrics.Metrics
	logger       *zap.Logger
}

func New(cfg Config, parser Parser, standardizer Standardizer, embedder *embedding.Engine, store *vectorstore.Store, jd JDLookup, m metrics.Metrics, logger *zap.Logger) *Pipeline {
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:          cfg,
		parser:       parser,
		standardizer: standardizer,
		embedder:     embedder,
		store:        store,
		jd:           jd,
		metrics:      m,
		logger:       logger,
	}
}

// Process runs one application through the full pipeline. It is
// idempotent: re-processing the same application_id overwrites prior
// partial state under the same document id rather than creating
// duplicates, since every downstream write is keyed by that id.
func (p *Pipeline) Process(ctx context.Context, job *types.Job) (*types.IngestResult, error) {
	app := job.Application
	docID := app.ApplicationID
	if docID == "" {
		docID = vectorstore.NewDocumentID()
	}

	step := func(name string, d time.Duration, fn func(ctx context.Context) error) error {
		stepCtx := ctx
		var cancel context.CancelFunc
		if d > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		start := time.Now()
		err := fn(stepCtx)
		status := "ok"
		if err != nil {
			status = "error"
		}
		p.metrics.RecordIngestStep(name, status, time.Since(start))
		if err != nil {
			if ce, ok := err.(*coreerr.Error); ok {
				return coreerr.WithStep(ce, name)
			}
			return coreerr.WithStep(coreerr.Upstream(fmt.Sprintf("%s failed", name), err), name)
		}
		return nil
	}

	// Step 1: resolve the target JD and verify acceptance is open.
	var jdID string
	if err := step("resolve_jd", p.cfg.LinkTimeout, func(ctx context.Context) error {
		id, open, err := p.jd.ResolveJD(ctx, app.JDToken)
		if err != nil {
			return err
		}
		if !open {
			return coreerr.InvalidInput(fmt.Sprintf("jd %s is not accepting applications", app.JDToken))
		}
		jdID = id
		return nil
	}); err != nil {
		return nil, err
	}

	// Step 2: parse the uploaded file.
	var parsed ParseResult
	if err := step("parse", p.cfg.ParseTimeout, func(ctx context.Context) error {
		var err error
		parsed, err = p.parser.Process(ctx, app.FileURI, types.KindCV)
		return err
	}); err != nil {
		return nil, err
	}

	// Step 3: standardize the clean text, merging extracted PII into
	// contact_info.
	var info types.StandardizedInfo
	if err := step("standardize", p.cfg.StandardizeTimeout, func(ctx context.Context) error {
		var err error
		info, err = p.standardizer.Standardize(ctx, parsed.CleanText, app.Filename, types.KindCV)
		return err
	}); err != nil {
		return nil, err
	}
	if len(parsed.ExtractedPII) > 0 {
		if info.ContactInfo == nil {
			info.ContactInfo = make(map[string]string, len(parsed.ExtractedPII))
		}
		for k, v := range parsed.ExtractedPII {
			info.ContactInfo[k] = v
		}
	}

	// Step 4: embed the standardized document into a 32-vector bundle.
	var bundle *types.Bundle
	if err := step("embed", p.cfg.EmbedTimeout, func(ctx context.Context) error {
		var err error
		bundle, err = p.embedder.EmbedDocument(ctx, info)
		return err
	}); err != nil {
		return nil, err
	}

	// Step 5: persist document/structured/bundle concurrently. A
	// partial failure fails the whole step; best-effort cleanup removes
	// whatever did land so a retry starts from a clean slate instead of
	// accumulating orphaned partial records.
	if err := step("persist", p.cfg.PersistTimeout, func(ctx context.Context) error {
		return p.persistConcurrently(ctx, docID, app, parsed, info, *bundle)
	}); err != nil {
		return nil, err
	}

	// Step 6: link the application to the JD in the metadata store.
	if err := step("link", p.cfg.LinkTimeout, func(ctx context.Context) error {
		return p.jd.LinkApplication(ctx, app.ApplicationID, jdID)
	}); err != nil {
		return nil, err
	}

	return &types.IngestResult{DocumentID: docID}, nil
}

// persistConcurrently issues the three independent C2 writes in
// parallel, per §4.4's concurrency note that only steps 2->3->4 are
// sequential. On any failure it best-effort deletes whatever already
// landed so a subsequent retry does not build on inconsistent partial
// state, then returns the first error observed.
func (p *Pipeline) persistConcurrently(ctx context.Context, docID string, app types.ApplicationData, parsed ParseResult, info types.StandardizedInfo, bundle types.Bundle) error {
	type outcome struct {
		name string
		err  error
	}
	results := make(chan outcome, 3)

	go func() {
		results <- outcome{"document", p.store.PutDocument(ctx, types.DocumentRecord{
			ID:         docID,
			Kind:       types.KindCV,
			Filename:   app.Filename,
			Format:     app.Format,
			RawText:    parsed.RawText,
			UploadedAt: time.Now(),
			FileURI:    app.FileURI,
		})}
	}()
	go func() {
		results <- outcome{"structured", p.store.PutStructured(ctx, types.StructuredRecord{
			ID:      docID,
			Kind:    types.KindCV,
			Payload: info,
			Side:    app.Extra,
		})}
	}()
	go func() {
		results <- outcome{"bundle", p.store.PutBundle(ctx, docID, types.KindCV, bundle)}
	}()

	var firstErr error
	failed := make(map[string]bool)
	for i := 0; i < 3; i++ {
		o := <-results
		if o.err != nil {
			failed[o.name] = true
			if firstErr == nil {
				firstErr = o.err
			}
		}
	}
	if firstErr != nil {
		p.logger.Warn("ingest: partial persist failure, cleaning up", zap.String("document_id", docID), zap.Error(firstErr))
		if cleanupErr := p.store.Delete(ctx, docID, types.KindCV); cleanupErr != nil {
			p.logger.Warn("ingest: best-effort cleanup after partial failure also failed", zap.String("document_id", docID), zap.Error(cleanupErr))
		}
		return firstErr
	}
	return nil
}
