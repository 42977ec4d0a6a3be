package ingest

import (
	"context"

	"github.com/alphacv/matchcore/pkg/types"
)

// ParseResult is the external parser's output: plain text extracted
// from the uploaded file, plus any PII the parser redacted out of the
// clean text on the way.
type ParseResult struct {
	RawText      string
	CleanText    string
	ExtractedPII map[string]string
}

// Parser is the out-of-scope file-parsing collaborator (§6): PDF/DOCX/
// OCR extraction and PII redaction. The core only depends on this
// interface; the real implementation (and its PII-redaction logic)
// lives outside the core per §1's scope boundary. Parser.Process must
// be pure with respect to the input bytes.
type Parser interface {
	Process(ctx context.Context, fileURI string, kind types.DocKind) (ParseResult, error)
}

// Standardizer is the out-of-scope LLM-based text-to-structured-JSON
// collaborator (§6). It must always return exactly 20 skills and 10
// responsibilities; the core re-normalizes defensively in C1 regardless.
type Standardizer interface {
	Standardize(ctx context.Context, cleanText, filename string, kind types.DocKind) (types.StandardizedInfo, error)
}

// JDLookup is the out-of-scope persistent metadata store's interface
// with the core: resolving a JD's public token to its document id and
// verifying that application acceptance is currently open, plus
// linking a completed application to that JD once ingestion succeeds.
type JDLookup interface {
	ResolveJD(ctx context.Context, jdToken string) (jdID string, acceptanceOpen bool, err error)
	LinkApplication(ctx context.Context, applicationID, jdID string) error
}
