package driven

import (
	"context"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
)

// VectorStore persists embedded chunks and answers nearest-neighbour queries.
// The store exclusively owns persisted records; callers never cache them
// beyond a single retrieval.
//
// Implementations:
//   - Postgres with the pgvector extension (production)
//   - SQLite with an exact scan (local, small corpora)
//   - In-memory (tests)
type VectorStore interface {
	// Insert appends a record and returns its store-generated ID.
	// The store never deduplicates: inserting the same text twice
	// creates two records.
	Insert(ctx context.Context, text string, meta domain.Metadata, embedding []float32) (string, error)

	// Search returns up to k records ranked by ascending L2 distance to
	// the query vector. An empty store yields an empty result, not an error.
	Search(ctx context.Context, embedding []float32, k int) ([]domain.RetrievedSource, error)

	// GetDocument retrieves a record by ID without its embedding.
	// Returns domain.ErrNotFound if no record has that ID.
	GetDocument(ctx context.Context, id string) (*domain.Record, error)

	// Close releases the underlying connections.
	Close() error
}
