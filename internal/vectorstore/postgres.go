package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/alphacv/matchcore/pkg/coreerr"
	"github.com/alphacv/matchcore/pkg/types"
	_ "github.com/lib/pq"
)

// PostgresBackend implements Backend over the documents/structured
// tables, generalized from the audit log's PostgreSQL store: same
// sql.DB + context-scoped ExecContext/QueryRowContext pattern, same
// nullString convention for optional columns.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// InitializeSchema creates the documents and structured tables if they
// don't exist. Production deployments should prefer the golang-migrate
// migrations under migrations/ instead of calling this directly; it
// exists for local/dev bring-up.
func (pb *PostgresBackend) InitializeSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id VARCHAR(64) NOT NULL,
		kind VARCHAR(8) NOT NULL,
		filename TEXT NOT NULL,
		format VARCHAR(32) NOT NULL,
		raw_text TEXT NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL,
		file_uri TEXT,
		mime VARCHAR(128),
		PRIMARY KEY (id, kind)
	);

	CREATE TABLE IF NOT EXISTS structured_records (
		id VARCHAR(64) NOT NULL,
		kind VARCHAR(8) NOT NULL,
		payload JSONB NOT NULL,
		side JSONB,
		PRIMARY KEY (id, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_kind ON documents(kind);
	CREATE INDEX IF NOT EXISTS idx_structured_kind ON structured_records(kind);
	`
	_, err := pb.db.ExecContext(ctx, schema)
	return err
}

func (pb *PostgresBackend) PutDocument(ctx context.Context, rec types.DocumentRecord) error {
	query := `
		INSERT INTO documents (id, kind, filename, format, raw_text, uploaded_at, file_uri, mime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id, kind) DO UPDATE SET
			filename = EXCLUDED.filename,
			format = EXCLUDED.format,
			raw_text = EXCLUDED.raw_text,
			uploaded_at = EXCLUDED.uploaded_at,
			file_uri = EXCLUDED.file_uri,
			mime = EXCLUDED.mime
	`
	_, err := pb.db.ExecContext(ctx, query,
		rec.ID, rec.Kind, rec.Filename, rec.Format, rec.RawText, rec.UploadedAt,
		nullString(rec.FileURI), nullString(rec.Mime),
	)
	if err != nil {
		return coreerr.Transient("put_document failed", err)
	}
	return nil
}

func (pb *PostgresBackend) GetDocument(ctx context.Context, id string, kind types.DocKind) (*types.DocumentRecord, error) {
	query := `
		SELECT id, kind, filename, format, raw_text, uploaded_at, file_uri, mime
		FROM documents WHERE id = $1 AND kind = $2
	`
	var rec types.DocumentRecord
	var fileURI, mime sql.NullString
	err := pb.db.QueryRowContext(ctx, query, id, kind).Scan(
		&rec.ID, &rec.Kind, &rec.Filename, &rec.Format, &rec.RawText, &rec.UploadedAt, &fileURI, &mime,
	)
	if err == sql.ErrNoRows {
		return nil, coreerr.NotFound("document not found: " + id)
	}
	if err != nil {
		return nil, coreerr.Transient("get_document failed", err)
	}
	rec.FileURI = fileURI.String
	rec.Mime = mime.String
	return &rec, nil
}

func (pb *PostgresBackend) DeleteDocument(ctx context.Context, id string, kind types.DocKind) error {
	_, err := pb.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND kind = $2`, id, kind)
	if err != nil {
		return coreerr.Transient("delete_document failed", err)
	}
	return nil
}

func (pb *PostgresBackend) PutStructured(ctx context.Context, rec types.StructuredRecord) error {
	payloadJSON, err := json.Marshal(rec.Payload)
	if err != nil {
		return coreerr.Internal("marshal structured payload", err)
	}
	var sideJSON []byte
	if len(rec.Side) > 0 {
		sideJSON, err = json.Marshal(rec.Side)
		if err != nil {
			return coreerr.Internal("marshal structured side channel", err)
		}
	}

	query := `
		INSERT INTO structured_records (id, kind, payload, side)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id, kind) DO UPDATE SET
			payload = EXCLUDED.payload,
			side = EXCLUDED.side
	`
	_, err = pb.db.ExecContext(ctx, query, rec.ID, rec.Kind, payloadJSON, sideJSON)
	if err != nil {
		return coreerr.Transient("put_structured failed", err)
	}
	return nil
}

func (pb *PostgresBackend) GetStructured(ctx context.Context, id string, kind types.DocKind) (*types.StructuredRecord, error) {
	query := `SELECT id, kind, payload, side FROM structured_records WHERE id = $1 AND kind = $2`
	var rec types.StructuredRecord
	var payloadJSON, sideJSON []byte
	err := pb.db.QueryRowContext(ctx, query, id, kind).Scan(&rec.ID, &rec.Kind, &payloadJSON, &sideJSON)
	if err == sql.ErrNoRows {
		return nil, coreerr.NotFound("structured record not found: " + id)
	}
	if err != nil {
		return nil, coreerr.Transient("get_structured failed", err)
	}
	if err := json.Unmarshal(payloadJSON, &rec.Payload); err != nil {
		return nil, coreerr.Internal("unmarshal structured payload", err)
	}
	if len(sideJSON) > 0 {
		rec.Side = make(map[string]any)
		if err := json.Unmarshal(sideJSON, &rec.Side); err != nil {
			return nil, coreerr.Internal("unmarshal structured side channel", err)
		}
	}
	return &rec, nil
}

func (pb *PostgresBackend) DeleteStructured(ctx context.Context, id string, kind types.DocKind) error {
	_, err := pb.db.ExecContext(ctx, `DELETE FROM structured_records WHERE id = $1 AND kind = $2`, id, kind)
	if err != nil {
		return coreerr.Transient("delete_structured failed", err)
	}
	return nil
}

func (pb *PostgresBackend) Scroll(ctx context.Context, kind types.DocKind) ([]ScrollEntry, error) {
	rows, err := pb.db.QueryContext(ctx, `SELECT id, kind, filename FROM documents WHERE kind = $1 ORDER BY uploaded_at DESC`, kind)
	if err != nil {
		return nil, coreerr.Transient("scroll failed", err)
	}
	defer rows.Close()

	entries := make([]ScrollEntry, 0)
	for rows.Next() {
		var e ScrollEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Summary); err != nil {
			return nil, fmt.Errorf("scan scroll row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scroll rows: %w", err)
	}
	return entries, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
