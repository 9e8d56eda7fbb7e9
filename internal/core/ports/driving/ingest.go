package driving

import (
	"context"

	"github.com/parchment-labs/corpusqa/internal/core/domain"
)

// SourceDocument is one raw text document handed to the ingestion pipeline.
// Text extraction (PDF parsing etc.) happens upstream of this contract.
type SourceDocument struct {
	// Filename is the original file name, used for provenance metadata
	// and year derivation.
	Filename string

	// Text is the raw extracted text, cleaned by the pipeline before chunking.
	Text string
}

// ProgressFunc receives coarse-grained progress updates during ingestion.
// It is called for observability only; implementations must not block.
type ProgressFunc func(domain.IngestionProgress)

// IngestService chunks, embeds and persists a batch of source documents.
type IngestService interface {
	// Ingest processes documents sequentially and fails fast: the first
	// embedding error, dimension mismatch or store-write error aborts the
	// whole run. Re-running after a failure appends records, it does not
	// deduplicate. The returned progress reflects the final counters.
	Ingest(ctx context.Context, docs []SourceDocument, onProgress ProgressFunc) (domain.IngestionProgress, error)
}
