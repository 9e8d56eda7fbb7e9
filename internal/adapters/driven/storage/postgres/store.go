// Package postgres provides the production vector store backed by Postgres
// with the pgvector extension. Records live in one append-only table with
// jsonb metadata; nearest-neighbour queries use the L2 operator, accelerated
// by an ivfflat index. The index is a performance aid only, it never changes
// which records exist.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Postgres driver

	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Connection pool defaults. Query-time requests acquire a pooled connection
// for the duration of a single statement, so many short-lived acquisitions
// must coexist.
const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
)

// Config holds connection and schema settings for the Postgres store.
type Config struct {
	// DatabaseURL is the Postgres connection string (required).
	DatabaseURL string

	// VectorDim is the embedding dimension the documents table is
	// declared with.
	VectorDim int

	// IVFFlatLists is the candidate-list parameter of the ivfflat index
	// (default 100).
	IVFFlatLists int
}

// Store is a Postgres-backed vector store.
type Store struct {
	db    *sqlx.DB
	dim   int
	lists int
}

// NewStore connects to Postgres and verifies the connection.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: database URL is required", domain.ErrInvalidConfig)
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive", domain.ErrInvalidConfig)
	}
	if cfg.IVFFlatLists <= 0 {
		cfg.IVFFlatLists = 100
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	return &Store{db: db, dim: cfg.VectorDim, lists: cfg.IVFFlatLists}, nil
}

// newStoreWithDB wraps an existing handle. Used by tests.
func newStoreWithDB(db *sqlx.DB, dim, lists int) *Store {
	return &Store{db: db, dim: dim, lists: lists}
}

// EnsureSchema creates the extensions, the documents table and the ivfflat
// index if they do not exist. Idempotent; called at startup and before
// ingestion.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			text text NOT NULL,
			metadata jsonb,
			embedding vector(%d)
		)`, s.dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS documents_embedding_idx
			ON documents USING ivfflat (embedding vector_l2_ops)
			WITH (lists = %d)`, s.lists),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Insert appends one record and returns the generated uuid.
func (s *Store) Insert(ctx context.Context, text string, meta domain.Metadata, embedding []float32) (string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	var id string
	err = s.db.GetContext(ctx, &id,
		`INSERT INTO documents (text, metadata, embedding) VALUES ($1, $2::jsonb, $3::vector) RETURNING id`,
		text, metaJSON, vectorLiteral(embedding),
	)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// recordRow is the scan target for retrieval queries.
type recordRow struct {
	ID       string  `db:"id"`
	Text     string  `db:"text"`
	Metadata []byte  `db:"metadata"`
	Distance float64 `db:"distance"`
}

// Search returns the k nearest records by L2 distance, ascending.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]domain.RetrievedSource, error) {
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, text, metadata, (embedding <-> $1::vector) AS distance
		 FROM documents
		 ORDER BY embedding <-> $1::vector
		 LIMIT $2`,
		vectorLiteral(embedding), k,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest-neighbour query: %w", err)
	}

	results := make([]domain.RetrievedSource, 0, len(rows))
	for _, row := range rows {
		meta, err := unmarshalMetadata(row.Metadata)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.RetrievedSource{
			ID:       row.ID,
			Text:     row.Text,
			Metadata: meta,
			Distance: row.Distance,
		})
	}
	return results, nil
}

// GetDocument retrieves a record by uuid. Unparseable IDs cannot exist in
// the store, so they short-circuit to not-found instead of a driver error.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	var row struct {
		ID       string `db:"id"`
		Text     string `db:"text"`
		Metadata []byte `db:"metadata"`
	}
	err := s.db.GetContext(ctx, &row,
		`SELECT id, text, metadata FROM documents WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	meta, err := unmarshalMetadata(row.Metadata)
	if err != nil {
		return nil, err
	}
	return &domain.Record{ID: row.ID, Text: row.Text, Metadata: meta}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// vectorLiteral renders a float32 slice in pgvector's input syntax, e.g.
// "[0.1,0.2,0.3]".
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec)*10 + 2)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func unmarshalMetadata(raw []byte) (domain.Metadata, error) {
	var meta domain.Metadata
	if len(raw) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}
