package services

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/parchment-labs/corpusqa/internal/chunker"
	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driving"
	"github.com/parchment-labs/corpusqa/internal/logger"
	"github.com/parchment-labs/corpusqa/internal/normalise"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestService = (*Ingestor)(nil)

// progressEvery is how many chunks pass between progress callbacks.
const progressEvery = 10

// IngestorOptions configures the ingestion pipeline.
type IngestorOptions struct {
	// VectorDim is the expected embedding dimension D.
	VectorDim int

	// TargetTokens and OverlapTokens configure the chunker.
	TargetTokens  int
	OverlapTokens int

	// EmbedRPS throttles embedding requests. Zero disables throttling.
	EmbedRPS float64
}

// Ingestor drives clean → chunk → embed → store for a batch of documents.
// Processing is sequential per chunk and fails fast on the first error.
type Ingestor struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	opts     IngestorOptions
	limiter  *rate.Limiter
}

// NewIngestor creates the ingestion pipeline. Chunking parameters are
// validated here so a misconfigured overlap is rejected before any work.
func NewIngestor(embedder driven.EmbeddingService, store driven.VectorStore, opts IngestorOptions) (*Ingestor, error) {
	if err := chunker.Validate(opts.TargetTokens, opts.OverlapTokens); err != nil {
		return nil, err
	}
	if opts.VectorDim <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive, got %d", domain.ErrInvalidConfig, opts.VectorDim)
	}

	var limiter *rate.Limiter
	if opts.EmbedRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.EmbedRPS), 1)
	}

	return &Ingestor{
		embedder: embedder,
		store:    store,
		opts:     opts,
		limiter:  limiter,
	}, nil
}

// Ingest processes the documents in order. Any embedding failure, dimension
// mismatch or store-write error aborts the whole run with no partial
// continuation; the progress returned alongside the error reflects how far
// the run got.
func (s *Ingestor) Ingest(
	ctx context.Context, docs []driving.SourceDocument, onProgress driving.ProgressFunc,
) (domain.IngestionProgress, error) {
	logger.Section("Ingestion")

	// Chunk everything up front so TotalChunks is known from the first
	// progress update.
	chunked := make([][]domain.Chunk, len(docs))
	progress := domain.IngestionProgress{}
	for i, doc := range docs {
		chunks, err := s.chunkDocument(doc)
		if err != nil {
			return progress, err
		}
		chunked[i] = chunks
		progress.TotalChunks += len(chunks)
	}
	logger.Info("%d documents, %d chunks total", len(docs), progress.TotalChunks)

	for i, doc := range docs {
		progress.CurrentFile = doc.Filename
		logger.Debug("processing %s (%d chunks)", doc.Filename, len(chunked[i]))

		for _, chunk := range chunked[i] {
			if err := ctx.Err(); err != nil {
				return progress, err
			}
			if err := s.ingestChunk(ctx, chunk); err != nil {
				return progress, err
			}
			progress.ChunksProcessed++
			if progress.ChunksProcessed%progressEvery == 0 {
				emit(onProgress, progress)
			}
		}
		logger.Info("finished %s: %d chunks", doc.Filename, len(chunked[i]))
	}

	emit(onProgress, progress)
	return progress, nil
}

// chunkDocument cleans a document's text and cuts it into indexed chunks.
func (s *Ingestor) chunkDocument(doc driving.SourceDocument) ([]domain.Chunk, error) {
	text := normalise.Clean(doc.Text)
	year := normalise.YearFromFilename(doc.Filename)

	pieces, err := chunker.Split(text, s.opts.TargetTokens, s.opts.OverlapTokens)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			Text:     piece,
			Filename: doc.Filename,
			Year:     year,
			Index:    i,
		}
	}
	return chunks, nil
}

// ingestChunk embeds one chunk, verifies the vector dimension and writes the
// record. Nothing is written when any step fails.
func (s *Ingestor) ingestChunk(ctx context.Context, chunk domain.Chunk) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	vec, err := s.embedder.Embed(ctx, chunk.Text)
	if err != nil {
		return fmt.Errorf("%w: embed chunk %d of %s: %v", domain.ErrUpstream, chunk.Index, chunk.Filename, err)
	}
	if len(vec) != s.opts.VectorDim {
		return fmt.Errorf("%w: embedding length %d != configured dimension %d (chunk %d of %s)",
			domain.ErrInvalidConfig, len(vec), s.opts.VectorDim, chunk.Index, chunk.Filename)
	}

	meta := domain.Metadata{
		Filename:   chunk.Filename,
		Year:       chunk.Year,
		ChunkIndex: chunk.Index,
	}
	if _, err := s.store.Insert(ctx, chunk.Text, meta, vec); err != nil {
		return fmt.Errorf("%w: insert chunk %d of %s: %v", domain.ErrStore, chunk.Index, chunk.Filename, err)
	}
	return nil
}

func emit(onProgress driving.ProgressFunc, p domain.IngestionProgress) {
	if onProgress != nil {
		onProgress(p)
	}
}
