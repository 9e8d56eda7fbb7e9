// Package sqlite provides a local vector store for small corpora. Embeddings
// are stored as little-endian float32 blobs and nearest-neighbour search is
// an exact scan, which keeps the backend dependency-free on the database
// side at the cost of O(n) queries.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	metadata TEXT,
	embedding BLOB NOT NULL
);`

// Store is a SQLite-backed vector store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates or opens the database under dataDir.
// If dataDir is empty, defaults to ~/.corpusqa/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".corpusqa", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "corpus.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Insert appends a record with a generated UUID.
func (s *Store) Insert(ctx context.Context, text string, meta domain.Metadata, embedding []float32) (string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, text, metadata, embedding) VALUES (?, ?, ?, ?)`,
		id, text, string(metaJSON), float32SliceToBytes(embedding),
	)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

// Search scans every stored embedding and returns the k closest by exact
// L2 distance, ascending.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]domain.RetrievedSource, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, metadata, embedding FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	defer rows.Close()

	var results []domain.RetrievedSource
	for rows.Next() {
		var (
			id, text string
			metaJSON sql.NullString
			blob     []byte
		)
		if err := rows.Scan(&id, &text, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		meta, err := unmarshalMetadata(metaJSON)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.RetrievedSource{
			ID:       id,
			Text:     text,
			Metadata: meta,
			Distance: l2Distance(embedding, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// GetDocument retrieves a record by ID without its embedding.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Record, error) {
	var (
		text     string
		metaJSON sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT text, metadata FROM documents WHERE id = ?`, id,
	).Scan(&text, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	meta, err := unmarshalMetadata(metaJSON)
	if err != nil {
		return nil, err
	}
	return &domain.Record{ID: id, Text: text, Metadata: meta}, nil
}

func unmarshalMetadata(raw sql.NullString) (domain.Metadata, error) {
	var meta domain.Metadata
	if !raw.Valid || raw.String == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &meta); err != nil {
		return meta, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}

// float32SliceToBytes converts a vector to its little-endian blob form.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func l2Distance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
