package cli

import (
	"context"
	"fmt"

	"github.com/parchment-labs/corpusqa/internal/adapters/driven/embedding/openai"
	"github.com/parchment-labs/corpusqa/internal/adapters/driven/storage/postgres"
	"github.com/parchment-labs/corpusqa/internal/adapters/driven/storage/sqlite"
	"github.com/parchment-labs/corpusqa/internal/config"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
	"github.com/parchment-labs/corpusqa/internal/logger"
)

// buildStore opens the configured vector store backend. The Postgres
// backend also ensures the schema so a fresh database works immediately.
func buildStore(ctx context.Context, cfg *config.Config) (driven.VectorStore, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		store, err := postgres.NewStore(ctx, postgres.Config{
			DatabaseURL:  cfg.DatabaseURL,
			VectorDim:    cfg.VectorDim,
			IVFFlatLists: cfg.IVFFlatLists,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensuring schema: %w", err)
		}
		logger.Debug("using postgres store")
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Debug("using sqlite store at %s", store.Path())
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	svc, err := openai.NewEmbeddingService(openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.VectorDim,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}
	return svc, nil
}
