package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/parchment-labs/corpusqa/internal/config"
	"github.com/parchment-labs/corpusqa/internal/core/domain"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driven"
	"github.com/parchment-labs/corpusqa/internal/core/ports/driving"
	"github.com/parchment-labs/corpusqa/internal/core/services"
	"github.com/parchment-labs/corpusqa/internal/logger"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest a directory of text documents into the vector store",
	Long: `Reads every .txt, .md and .text file in the directory, splits the
contents into overlapping chunks, embeds them and writes the records to
the vector store.

Ingestion is append-only: re-running it over the same files stores the
chunks again.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory and ingest new files")
	rootCmd.AddCommand(ingestCmd)
}

// textExtensions lists the file types read from the corpus directory.
var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".text": true,
}

// collectSources reads every supported file in dir, sorted by filename.
func collectSources(dir string) ([]driving.SourceDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var docs []driving.SourceDocument
	for _, entry := range entries {
		if entry.IsDir() || !textExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		docs = append(docs, driving.SourceDocument{
			Filename: entry.Name(),
			Text:     string(data),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer embedder.Close()

	ingestor, err := newIngestor(cfg, embedder, store)
	if err != nil {
		return err
	}

	docs, err := collectSources(dir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		logger.Warn("no .txt, .md or .text files found in %s", dir)
	} else {
		if err := ingestDocs(ctx, cmd, ingestor, docs); err != nil {
			return err
		}
	}

	if !ingestWatch {
		return nil
	}
	return watchAndIngest(ctx, cmd, ingestor, dir)
}

func newIngestor(cfg *config.Config, embedder driven.EmbeddingService, store driven.VectorStore) (*services.Ingestor, error) {
	ingestor, err := services.NewIngestor(embedder, store, services.IngestorOptions{
		VectorDim:     cfg.VectorDim,
		TargetTokens:  cfg.ChunkTargetTokens,
		OverlapTokens: cfg.ChunkOverlapTokens,
		EmbedRPS:      cfg.EmbedRPS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating ingestor: %w", err)
	}
	return ingestor, nil
}

func ingestDocs(ctx context.Context, cmd *cobra.Command, ingestor *services.Ingestor, docs []driving.SourceDocument) error {
	progress, err := ingestor.Ingest(ctx, docs, func(p domain.IngestionProgress) {
		cmd.Printf("  %d/%d chunks (%s)\n", p.ChunksProcessed, p.TotalChunks, p.CurrentFile)
	})
	if err != nil {
		return fmt.Errorf("ingestion failed after %d/%d chunks: %w",
			progress.ChunksProcessed, progress.TotalChunks, err)
	}
	cmd.Printf("Ingested %d chunks from %d files\n", progress.ChunksProcessed, len(docs))
	return nil
}

// watchAndIngest blocks ingesting files as they appear in dir.
func watchAndIngest(ctx context.Context, cmd *cobra.Command, ingestor *services.Ingestor, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("watching %s for new documents", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(event.Name)
			if !textExtensions[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			data, err := os.ReadFile(event.Name)
			if err != nil {
				logger.Warn("reading %s: %v", name, err)
				continue
			}
			logger.Info("ingesting %s", name)
			doc := driving.SourceDocument{Filename: name, Text: string(data)}
			if err := ingestDocs(ctx, cmd, ingestor, []driving.SourceDocument{doc}); err != nil {
				logger.Warn("ingesting %s: %v", name, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}
