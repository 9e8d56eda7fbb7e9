package domain

// Chunk is a contiguous slice of a source document's cleaned text.
// It is the unit of embedding and retrieval.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// Filename is the source document's file name.
	Filename string

	// Year is parsed from the filename when present (e.g. "1999letter.pdf").
	Year *int

	// Index is the zero-based position of this chunk within its document.
	// Indexes are contiguous per document starting at 0.
	Index int
}

// Metadata is the structured metadata persisted alongside each record.
type Metadata struct {
	// Filename is the source document's file name.
	Filename string `json:"filename"`

	// Year is the document year when one could be derived, nil otherwise.
	Year *int `json:"year,omitempty"`

	// ChunkIndex is the chunk's position within its source document.
	ChunkIndex int `json:"chunk_index"`
}

// Record is the persisted unit in the vector store.
// Records are append-only: once written, text and embedding never change.
// Re-ingesting a document creates new records rather than updating old ones.
type Record struct {
	// ID is the store-generated unique identifier.
	ID string `json:"id"`

	// Text is the chunk text.
	Text string `json:"text"`

	// Metadata describes the chunk's provenance.
	Metadata Metadata `json:"metadata"`

	// Embedding is the vector representation of Text.
	// It is not serialized on API responses.
	Embedding []float32 `json:"-"`
}

// RetrievedSource is a Record annotated with its distance to a query vector.
// Lower distance means higher relevance.
type RetrievedSource struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Distance float64  `json:"distance"`
}

// IngestionProgress carries transient counters for operator visibility.
// It is not persisted and is not part of any stable contract.
type IngestionProgress struct {
	// ChunksProcessed is the number of chunks embedded and stored so far.
	ChunksProcessed int

	// TotalChunks is the total number of chunks in the current run,
	// counted after chunking all documents.
	TotalChunks int

	// CurrentFile is the file currently being processed.
	CurrentFile string
}
