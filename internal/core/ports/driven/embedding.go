package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Ingestion-time and query-time vectors must come from the same model for
// distances to be comparable; Dimensions is the contract both sides of the
// pipeline validate against.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Any OpenAI-compatible inference server
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 1536, 3072).
	// This must match the vector store's configured dimension.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
