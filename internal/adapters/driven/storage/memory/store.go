// Package memory provides an in-memory vector store used in tests and as a
// throwaway backend for local experiments. Search is an exact L2 scan.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store keeps records in a slice guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	records []domain.Record
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Insert appends a record with a generated UUID.
func (s *Store) Insert(ctx context.Context, text string, meta domain.Metadata, embedding []float32) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	rec := domain.Record{
		ID:        uuid.New().String(),
		Text:      text,
		Metadata:  meta,
		Embedding: vec,
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	return rec.ID, nil
}

// Search scans every record, computing exact L2 distances, and returns the
// k closest in ascending order.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]domain.RetrievedSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	results := make([]domain.RetrievedSource, 0, len(s.records))
	for _, rec := range s.records {
		results = append(results, domain.RetrievedSource{
			ID:       rec.ID,
			Text:     rec.Text,
			Metadata: rec.Metadata,
			Distance: l2Distance(embedding, rec.Embedding),
		})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// GetDocument returns a record by ID without its embedding.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return &domain.Record{ID: rec.ID, Text: rec.Text, Metadata: rec.Metadata}, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored records. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns a copy of all stored records in insertion order. Test helper.
func (s *Store) Records() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Record, len(s.records))
	copy(out, s.records)
	return out
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
