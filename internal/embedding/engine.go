// Package embedding implements C1: a process-wide embedding model that
// turns standardized document info into a 32-vector bundle and provides
// the cosine-similarity primitives the match engine builds on.
//
// The shared-instance and content-hash-keyed LRU cache pattern is
// carried over from the background policy-embedding worker this engine
// was generalized from; the per-request dynamic model reconfiguration
// and decorator-based caching it also supported are dropped, per the
// fixed-at-startup model design note.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/alphacv/matchcore/internal/metrics"
	"github.com/alphacv/matchcore/pkg/coreerr"
	"github.com/alphacv/matchcore/pkg/types"
)

// Function produces a unit-norm vector of Dimension floats for a single
// non-empty string. It is the seam a real model implementation plugs
// into; DefaultFunction below is the deterministic placeholder.
type Function func(text string) ([]float64, error)

// Config configures the embedding engine.
type Config struct {
	Dimension    int
	ModelVersion string
	Func         Function
	Cache        *CacheConfig // nil disables caching
	Metrics      metrics.Metrics
}

func DefaultConfig() Config {
	return Config{
		Dimension:    types.VectorDim,
		ModelVersion: "hashvec-v1",
		Func:         DefaultFunction,
		Cache:        &CacheConfig{MaxEntries: 50000, TTL: 0},
	}
}

// Engine is the process-wide singleton described in the design notes:
// one model instance, shared across all workers, initialized once at
// startup and passed by reference thereafter.
type Engine struct {
	dimension    int
	modelVersion string
	fn           Function
	cache        *Cache
	metrics      metrics.Metrics

	// fnMu guards reads of the fn field; calls to fn are not serialized.
	// The placeholder function is purely computational and safe for
	// concurrent use, so this is an RWMutex held only for the rare case
	// fn itself is swapped (never, post-construction) rather than
	// per-call serialization.
	fnMu sync.RWMutex
}

// New creates the shared embedding engine. Initialization is meant to
// be called exactly once at process startup; a failure here is fatal
// per the ModelInit error kind.
func New(cfg Config) (*Engine, error) {
	if cfg.Dimension <= 0 {
		cfg.Dimension = types.VectorDim
	}
	if cfg.Func == nil {
		cfg.Func = DefaultFunction
	}
	if cfg.ModelVersion == "" {
		return nil, coreerr.ModelInit("model version must not be empty", nil)
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}

	e := &Engine{
		dimension:    cfg.Dimension,
		modelVersion: cfg.ModelVersion,
		fn:           cfg.Func,
		metrics:      m,
	}
	if cfg.Cache != nil {
		e.cache = NewCache(*cfg.Cache)
	}

	// Smoke-test the model so a broken Func fails fast at startup
	// instead of on the first real request.
	if _, err := e.EmbedText("startup-probe"); err != nil {
		return nil, coreerr.ModelInit("embedding model failed self-test", err)
	}
	return e, nil
}

func (e *Engine) ModelVersion() string { return e.modelVersion }
func (e *Engine) Dimension() int       { return e.dimension }

// EmbedText produces a unit-norm vector for a single non-empty string.
func (e *Engine) EmbedText(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, coreerr.InvalidInput("embed_text: empty input")
	}

	hash := ComputeHash(s)
	if e.cache != nil {
		if v, ok := e.cache.GetWithVersion(hash, e.modelVersion); ok {
			e.metrics.RecordCacheOperation("hit")
			return v, nil
		}
		e.metrics.RecordCacheOperation("miss")
	}

	e.fnMu.RLock()
	fn := e.fn
	e.fnMu.RUnlock()

	vec, err := fn(s)
	if err != nil {
		return nil, coreerr.Upstream("embedding function failed", err)
	}
	if len(vec) != e.dimension {
		return nil, coreerr.Shape(fmt.Sprintf("embedding function returned dimension %d, want %d", len(vec), e.dimension))
	}

	if e.cache != nil {
		e.cache.PutWithVersion(hash, vec, e.modelVersion)
	}
	return vec, nil
}

// fillerSkill, fillerResp and fillerTitle are substituted for
// empty/whitespace-only inputs so the bundle shape is always
// (20, 10, 1, 1); the experience vector always has text to embed.
const (
	fillerSkill = "General professional skills"
	fillerResp  = "General professional responsibilities"
	fillerTitle = "Professional"
)

func nonEmpty(s, filler string) string {
	if strings.TrimSpace(s) == "" {
		return filler
	}
	return s
}

// EmbedDocument embeds a standardized document into a 32-vector bundle,
// defensively re-normalizing the skill/responsibility counts to exactly
// 20/10 regardless of what the (out-of-scope) standardizer returned.
func (e *Engine) EmbedDocument(ctx context.Context, info types.StandardizedInfo) (*types.Bundle, error) {
	skills := padOrTruncate(info.Skills, types.SkillsCount, fillerSkill)
	resp := padOrTruncate(info.Responsibilities, types.RespCount, fillerResp)

	b := &types.Bundle{
		SkillVectors:          make([][]float64, types.SkillsCount),
		ResponsibilityVectors: make([][]float64, types.RespCount),
		ModelVersion:          e.modelVersion,
	}

	for i, s := range skills {
		if ctx.Err() != nil {
			return nil, coreerr.Transient("embed_document cancelled", ctx.Err())
		}
		v, err := e.EmbedText(nonEmpty(s, fillerSkill))
		if err != nil {
			return nil, err
		}
		b.SkillVectors[i] = v
	}
	for i, r := range resp {
		if ctx.Err() != nil {
			return nil, coreerr.Transient("embed_document cancelled", ctx.Err())
		}
		v, err := e.EmbedText(nonEmpty(r, fillerResp))
		if err != nil {
			return nil, err
		}
		b.ResponsibilityVectors[i] = v
	}

	expVec, err := e.EmbedText(experienceText(info.ExperienceYears))
	if err != nil {
		return nil, err
	}
	b.ExperienceVector = expVec

	titleVec, err := e.EmbedText(nonEmpty(info.JobTitle, fillerTitle))
	if err != nil {
		return nil, err
	}
	b.JobTitleVector = titleVec

	return b, nil
}

func experienceText(years int) string {
	return fmt.Sprintf("%d years of experience", years)
}

func padOrTruncate(items []string, n int, filler string) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		if i < len(items) {
			out[i] = items[i]
		} else {
			out[i] = filler
		}
	}
	return out
}

// Cos returns the clamped-non-negative cosine similarity of a and b.
// Operands may be non-unit; zero vectors yield 0.
func Cos(a, b []float64) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// CosMatrix computes the clamped cosine similarity of every row of A
// against every row of B, returning an m×n matrix.
func CosMatrix(a, b [][]float64) [][]float64 {
	m := make([][]float64, len(a))
	for i := range a {
		row := make([]float64, len(b))
		for j := range b {
			row[j] = Cos(a[i], b[j])
		}
		m[i] = row
	}
	return m
}
