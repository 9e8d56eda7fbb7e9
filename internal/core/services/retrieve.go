package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
	"github.com/parchment-labs/corpusqa/internal/logger"
)

// Retriever embeds a query and ranks stored records by vector distance.
// Pure read path: safe to call concurrently with ingestion and with other
// retrievals.
type Retriever struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	dim      int
	defaultK int
}

// NewRetriever creates a retriever. defaultK is used when a caller passes
// k <= 0.
func NewRetriever(embedder driven.EmbeddingService, store driven.VectorStore, dim, defaultK int) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		dim:      dim,
		defaultK: defaultK,
	}
}

// Retrieve returns up to k sources ranked by ascending distance to the
// query. An empty store yields an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]domain.RetrievedSource, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if k <= 0 {
		k = r.defaultK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrUpstream, err)
	}
	if len(vec) != r.dim {
		return nil, fmt.Errorf("%w: query embedding length %d != configured dimension %d",
			domain.ErrInvalidConfig, len(vec), r.dim)
	}

	sources, err := r.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: nearest-neighbour search: %v", domain.ErrStore, err)
	}
	logger.Debug("retrieved %d sources for query (k=%d)", len(sources), k)
	return sources, nil
}
