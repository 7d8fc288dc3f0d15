// Package pgvector is a store.Store implementation backed by PostgreSQL
// and the pgvector extension, for deployments that need a durable,
// concurrently-writable store rather than the in-process memdb.
//
// Grounded on TicoDavid-RAGbox.co's internal/repository/chunk.go for the
// pgxpool.Pool + pgvector.Vector + cosine-distance-operator query shape,
// and on the teacher's contrib/vector/pg/pg.go and contrib/memory/pg/
// postgres.go for the connection-config/DSN/table-bootstrap conventions
// this package otherwise follows (JSONB metadata column, tsvector GIN
// index for full text, $N placeholders).
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/ggozad/haikurag-core/config"
	"github.com/ggozad/haikurag-core/document"
	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/fusion"
	"github.com/ggozad/haikurag-core/pkg/logging"
	"github.com/ggozad/haikurag-core/store"
)

// Config holds connection and schema configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	Dimension int
}

// DefaultConfig returns sane local-development defaults.
func DefaultConfig() Config {
	return Config{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		Password:  "postgres",
		DBName:    "haikurag",
		SSLMode:   "disable",
		Dimension: 1536,
	}
}

// Validate checks the connection and schema fields before New opens a
// pool, using the shared config.Validator other provider configs in
// this tree validate with.
func (c Config) Validate() error {
	return config.ValidatePGVectorConfig(c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.Dimension)
}

func (c Config) dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Store is a store.Store backed by a pgxpool.Pool.
type Store struct {
	pool      *pgxpool.Pool
	dimension int
}

// New connects to Postgres, enables the pgvector extension, and creates
// the documents/chunks schema if it does not already exist.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.dsn())
	if err != nil {
		return nil, coreerrors.StoreUnavailable("connect to postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, coreerrors.StoreUnavailable("ping postgres", err)
	}
	s := &Store{pool: pool, dimension: cfg.Dimension}
	if err := s.setup(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) setup(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id VARCHAR(255) PRIMARY KEY,
			uri TEXT NOT NULL,
			title TEXT,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id VARCHAR(255) PRIMARY KEY,
			document_id VARCHAR(255) NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_order INT NOT NULL,
			content TEXT NOT NULL,
			label TEXT NOT NULL,
			structural_unit_id TEXT,
			headings JSONB NOT NULL DEFAULT '[]',
			page_numbers JSONB NOT NULL DEFAULT '[]',
			embedding vector(%d)
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS idx_chunks_document_order ON chunks(document_id, chunk_order)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_content_fts ON chunks USING GIN (to_tsvector('english', content))`,
		`CREATE INDEX IF NOT EXISTS idx_documents_metadata ON documents USING GIN (metadata)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return coreerrors.StoreUnavailable("schema setup: "+stmt, err)
		}
	}
	return nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Dimension() int { return s.dimension }

// IndexDocument upserts a document and (re-)inserts its chunks in a
// single transaction via pgx batching.
func (s *Store) IndexDocument(ctx context.Context, doc document.Document, chunks []document.Chunk) error {
	logger := logging.WithComponent("pgvector")
	for _, c := range chunks {
		if len(c.Embedding) != 0 && len(c.Embedding) != s.dimension {
			return coreerrors.DimensionMismatch("chunk embedding dimension does not match store dimension", nil)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return coreerrors.StoreUnavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO documents (id, uri, title, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			uri = EXCLUDED.uri, title = EXCLUDED.title, metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`,
		doc.ID, doc.URI, doc.Title, metaJSON, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return coreerrors.StoreUnavailable("upsert document", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, doc.ID); err != nil {
		return coreerrors.StoreUnavailable("clear existing chunks", err)
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		headingsJSON, _ := json.Marshal(c.Headings)
		pagesJSON, _ := json.Marshal(c.PageNumbers)
		var embedding any
		if len(c.Embedding) > 0 {
			embedding = pgv.NewVector(c.Embedding)
		}
		batch.Queue(`
			INSERT INTO chunks (id, document_id, chunk_order, content, label, structural_unit_id, headings, page_numbers, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, doc.ID, c.Order, c.Content, string(c.Label), c.StructuralUnitID, headingsJSON, pagesJSON, embedding)
	}
	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return coreerrors.StoreUnavailable("insert chunk", err)
		}
	}
	if err := br.Close(); err != nil {
		return coreerrors.StoreUnavailable("close batch", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return coreerrors.StoreUnavailable("commit transaction", err)
	}
	logger.Info("indexed document", "document_id", doc.ID, "chunks", len(chunks))
	return nil
}

func (s *Store) SearchVector(ctx context.Context, queryEmbedding []float32, limit int, filter *store.Filter) ([]store.ScoredChunk, error) {
	if len(queryEmbedding) != s.dimension {
		return nil, coreerrors.DimensionMismatch("query embedding dimension does not match store dimension", nil)
	}
	if limit <= 0 {
		limit = 10
	}
	where, args, err := filterSQL(filter, "d")
	if err != nil {
		return nil, err
	}
	args = append([]any{pgv.NewVector(queryEmbedding)}, args...)
	query := fmt.Sprintf(`
		SELECT c.id, c.document_id, c.chunk_order, c.content, c.label, c.structural_unit_id,
		       c.headings, c.page_numbers, 1 - (c.embedding <=> $1) AS score
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL AND %s
		ORDER BY c.embedding <=> $1
		LIMIT %d`, where, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, coreerrors.StoreUnavailable("vector search", err)
	}
	defer rows.Close()
	return scanScoredChunks(rows)
}

func (s *Store) SearchFTS(ctx context.Context, queryText string, limit int, filter *store.Filter) ([]store.ScoredChunk, error) {
	if limit <= 0 {
		limit = 10
	}
	where, args, err := filterSQL(filter, "d")
	if err != nil {
		return nil, err
	}
	args = append([]any{queryText}, args...)
	query := fmt.Sprintf(`
		SELECT c.id, c.document_id, c.chunk_order, c.content, c.label, c.structural_unit_id,
		       c.headings, c.page_numbers,
		       ts_rank(to_tsvector('english', c.content), plainto_tsquery('english', $1)) AS score
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE to_tsvector('english', c.content) @@ plainto_tsquery('english', $1) AND %s
		ORDER BY score DESC
		LIMIT %d`, where, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, coreerrors.StoreUnavailable("full-text search", err)
	}
	defer rows.Close()
	return scanScoredChunks(rows)
}

func (s *Store) SearchHybrid(ctx context.Context, queryText string, queryEmbedding []float32, limit int, filter *store.Filter) ([]store.ScoredChunk, error) {
	vecLimit := limit
	if vecLimit <= 0 {
		vecLimit = 10
	}
	vec, err := s.SearchVector(ctx, queryEmbedding, vecLimit*2, filter)
	if err != nil {
		return nil, err
	}
	fts, err := s.SearchFTS(ctx, queryText, vecLimit*2, filter)
	if err != nil {
		return nil, err
	}
	return fusion.RRF([][]store.ScoredChunk{vec, fts}, fusion.DefaultK, limit), nil
}

func scanScoredChunks(rows pgx.Rows) ([]store.ScoredChunk, error) {
	var out []store.ScoredChunk
	for rows.Next() {
		var c document.Chunk
		var headingsJSON, pagesJSON []byte
		var score float64
		var structuralUnitID *string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Order, &c.Content, &c.Label, &structuralUnitID,
			&headingsJSON, &pagesJSON, &score); err != nil {
			return nil, coreerrors.StoreUnavailable("scan chunk row", err)
		}
		if structuralUnitID != nil {
			c.StructuralUnitID = *structuralUnitID
		}
		_ = json.Unmarshal(headingsJSON, &c.Headings)
		_ = json.Unmarshal(pagesJSON, &c.PageNumbers)
		out = append(out, store.ScoredChunk{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, coreerrors.StoreUnavailable("iterate chunk rows", err)
	}
	return out, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (document.Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, uri, title, metadata, created_at, updated_at FROM documents WHERE id = $1`, id)
	return scanDocument(row, id)
}

func scanDocument(row pgx.Row, ref string) (document.Document, error) {
	var d document.Document
	var title *string
	var metaJSON []byte
	if err := row.Scan(&d.ID, &d.URI, &title, &metaJSON, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return document.Document{}, coreerrors.NotFound("document not found: "+ref, nil)
		}
		return document.Document{}, coreerrors.StoreUnavailable("scan document", err)
	}
	if title != nil {
		d.Title = *title
	}
	_ = json.Unmarshal(metaJSON, &d.Metadata)
	return d, nil
}

func (s *Store) FindDocument(ctx context.Context, nameOrURI string) (document.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, uri, title, metadata, created_at, updated_at FROM documents
		WHERE uri = $1
		   OR uri LIKE $1 || '%'
		   OR uri LIKE '%' || $1 || '%'
		   OR title LIKE '%' || $1 || '%'
		ORDER BY
			(uri = $1) DESC,
			(uri LIKE $1 || '%') DESC,
			length(uri) ASC, id ASC
		LIMIT 1`, nameOrURI)
	return scanDocument(row, nameOrURI)
}

func (s *Store) AdjacentChunks(ctx context.Context, documentID string, orderFrom, orderTo int) ([]document.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, chunk_order, content, label, structural_unit_id, headings, page_numbers
		FROM chunks WHERE document_id = $1 AND chunk_order BETWEEN $2 AND $3
		ORDER BY chunk_order ASC`, documentID, orderFrom, orderTo)
	if err != nil {
		return nil, coreerrors.StoreUnavailable("adjacent chunks", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func scanChunks(rows pgx.Rows) ([]document.Chunk, error) {
	var out []document.Chunk
	for rows.Next() {
		var c document.Chunk
		var headingsJSON, pagesJSON []byte
		var structuralUnitID *string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Order, &c.Content, &c.Label, &structuralUnitID,
			&headingsJSON, &pagesJSON); err != nil {
			return nil, coreerrors.StoreUnavailable("scan chunk", err)
		}
		if structuralUnitID != nil {
			c.StructuralUnitID = *structuralUnitID
		}
		_ = json.Unmarshal(headingsJSON, &c.Headings)
		_ = json.Unmarshal(pagesJSON, &c.PageNumbers)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerrors.StoreUnavailable("iterate chunks", err)
	}
	return out, nil
}

func (s *Store) GetChunk(ctx context.Context, chunkID string) (document.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, chunk_order, content, label, structural_unit_id, headings, page_numbers
		FROM chunks WHERE id = $1`, chunkID)
	if err != nil {
		return document.Chunk{}, coreerrors.StoreUnavailable("get chunk", err)
	}
	defer rows.Close()
	chunks, err := scanChunks(rows)
	if err != nil {
		return document.Chunk{}, err
	}
	if len(chunks) == 0 {
		return document.Chunk{}, coreerrors.NotFound("chunk not found: "+chunkID, nil)
	}
	return chunks[0], nil
}

func (s *Store) GetChunksBulk(ctx context.Context, chunkIDs []string) ([]document.Chunk, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, chunk_order, content, label, structural_unit_id, headings, page_numbers
		FROM chunks WHERE id = ANY($1)`, chunkIDs)
	if err != nil {
		return nil, coreerrors.StoreUnavailable("get chunks bulk", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *Store) ListDocuments(ctx context.Context, offset, limit int, filter *store.Filter) ([]document.Document, error) {
	where, args, err := filterSQL(filter, "")
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`
		SELECT id, uri, title, metadata, created_at, updated_at
		FROM documents WHERE %s
		ORDER BY id ASC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, coreerrors.StoreUnavailable("list documents", err)
	}
	defer rows.Close()
	var out []document.Document
	for rows.Next() {
		var d document.Document
		var title *string
		var metaJSON []byte
		if err := rows.Scan(&d.ID, &d.URI, &title, &metaJSON, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, coreerrors.StoreUnavailable("scan document", err)
		}
		if title != nil {
			d.Title = *title
		}
		_ = json.Unmarshal(metaJSON, &d.Metadata)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerrors.StoreUnavailable("iterate documents", err)
	}
	return out, nil
}
