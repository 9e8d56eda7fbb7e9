package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	llmopenai "github.com/parchment-labs/corpusqa/internal/adapters/driven/llm/openai"
	"github.com/parchment-labs/corpusqa/internal/adapters/driving/httpapi"
	"github.com/parchment-labs/corpusqa/internal/core/services"
	"github.com/parchment-labs/corpusqa/internal/logger"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP question-answering server",
	Long: `Starts the HTTP server. POST /chat streams grounded answers as
server-sent events; GET /document/:id returns a stored chunk.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
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

	generator, err := llmopenai.NewGenerationService(llmopenai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.LLMModel,
	})
	if err != nil {
		return fmt.Errorf("creating generation service: %w", err)
	}
	defer generator.Close()

	retriever := services.NewRetriever(embedder, store, cfg.VectorDim, cfg.RetrieveK)
	answerer := services.NewSynthesizer(retriever, generator, cfg.RetrieveK)
	documents := services.NewDocumentService(store)

	server := httpapi.NewServer(httpapi.Config{Port: cfg.Port}, answerer, documents)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
