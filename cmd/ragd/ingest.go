package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ragd/internal/config"
	"ragd/internal/ingest"
	"ragd/internal/ollama"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed the document directory into the vector index",
	Long: `Embed the document directory into the vector index.

Reads every supported file (.txt, .md, .pdf, .html) under index.docs_dir,
chunks it, embeds each chunk with the configured embedding model, and
writes the result to index.path. The inference runtime must be running.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest()
	},
}

func runIngest() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := ollama.New(cfg.Ollama.BaseURL)
	embedder := ingest.NewOllamaEmbedder(client, cfg.Ollama.EmbedModel)
	pipeline := ingest.NewPipeline(cfg.Index.DocsDir, embedder)

	printPhase("ingest", "embedding %s into %s", cfg.Index.DocsDir, cfg.Index.Path)
	stats, err := pipeline.Run(ctx, cfg.Index.Path)
	if err != nil {
		return err
	}

	if stats.Documents == 0 {
		printWarning("no documents found in %s; index left untouched", cfg.Index.DocsDir)
		return nil
	}

	printSuccess("Embedded %d chunks from %d documents in %s", stats.Chunks, stats.Documents, stats.Elapsed.Round(time.Millisecond))
	return nil
}
