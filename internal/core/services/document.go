package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService looks up stored records by ID.
type DocumentService struct {
	store driven.VectorStore
}

// NewDocumentService creates a document lookup service.
func NewDocumentService(store driven.VectorStore) *DocumentService {
	return &DocumentService{store: store}
}

// Get returns the record with the given ID. A missing record surfaces as
// domain.ErrNotFound, an expected outcome rather than a failure.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}

	rec, err := s.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get document %s: %v", domain.ErrStore, id, err)
	}
	return rec, nil
}
