package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/alphacv/matchcore/pkg/types"
)

// NoOpParser is a pass-through Parser stand-in for local development
// and tests, grounded in the teacher's NoOpMetrics fake pattern: it
// treats fileURI as already-clean text instead of invoking a real
// PDF/DOCX/OCR pipeline.
type NoOpParser struct{}

func (NoOpParser) Process(_ context.Context, fileURI string, _ types.DocKind) (ParseResult, error) {
	return ParseResult{RawText: fileURI, CleanText: fileURI}, nil
}

// NoOpStandardizer is a Standardizer stand-in that returns a minimal,
// already-conformant StandardizedInfo (defensive padding in C1 handles
// the rest regardless).
type NoOpStandardizer struct{}

func (NoOpStandardizer) Standardize(_ context.Context, cleanText, filename string, _ types.DocKind) (types.StandardizedInfo, error) {
	return types.StandardizedInfo{JobTitle: "Professional", Skills: nil, Responsibilities: nil}, nil
}

// InMemoryJDLookup is a fake metadata-store collaborator for tests and
// single-process deployments: JD tokens map directly to document ids
// and acceptance is always open unless explicitly closed.
type InMemoryJDLookup struct {
	mu     sync.Mutex
	open   map[string]bool
	links  map[string]string
}

func NewInMemoryJDLookup() *InMemoryJDLookup {
	return &InMemoryJDLookup{open: make(map[string]bool), links: make(map[string]string)}
}

// SetOpen marks a JD token's acceptance state; tokens default to open
// the first time they're resolved.
func (l *InMemoryJDLookup) SetOpen(jdToken string, open bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open[jdToken] = open
}

func (l *InMemoryJDLookup) ResolveJD(_ context.Context, jdToken string) (string, bool, error) {
	if jdToken == "" {
		return "", false, fmt.Errorf("ingest: empty jd token")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	open, known := l.open[jdToken]
	if !known {
		open = true
		l.open[jdToken] = true
	}
	return jdToken, open, nil
}

func (l *InMemoryJDLookup) LinkApplication(_ context.Context, applicationID, jdID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.links[applicationID] = jdID
	return nil
}

// LinkedJD returns which JD an application was linked to, for tests.
func (l *InMemoryJDLookup) LinkedJD(applicationID string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	jdID, ok := l.links[applicationID]
	return jdID, ok
}
