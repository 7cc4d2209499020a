// Package ingest populates the vector index from source documents: load,
// chunk, embed, persist. It is the in-process implementation of the
// document-ingestion step the index builder invokes.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ragd/internal/vectorstore"
)

// Embedder turns a text chunk into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// modelEmbedder is the slice of the Ollama client the pipeline needs.
type modelEmbedder interface {
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// OllamaEmbedder binds a model name to an Ollama-style embedding client.
type OllamaEmbedder struct {
	client modelEmbedder
	model  string
}

// NewOllamaEmbedder creates an Embedder using the given client and model name.
func NewOllamaEmbedder(client modelEmbedder, model string) *OllamaEmbedder {
	return &OllamaEmbedder{client: client, model: model}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.client.Embed(ctx, e.model, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// Stats summarizes one pipeline run.
type Stats struct {
	Documents int
	Chunks    int
	Elapsed   time.Duration
}

// Pipeline loads documents from DocsDir, embeds their chunks, and writes
// them into the vector store inside the target index directory.
type Pipeline struct {
	DocsDir      string
	Embedder     Embedder
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int

	logger *slog.Logger
}

// NewPipeline creates a Pipeline with default chunking parameters.
func NewPipeline(docsDir string, embedder Embedder) *Pipeline {
	return &Pipeline{
		DocsDir:     docsDir,
		Embedder:    embedder,
		Concurrency: 4,
		logger:      slog.Default(),
	}
}

// Run executes the pipeline against indexPath. When no source documents
// are found, nothing is written (the index directory is left untouched)
// and Stats.Documents is 0; the caller decides whether that is fatal.
func (p *Pipeline) Run(ctx context.Context, indexPath string) (Stats, error) {
	start := time.Now()

	docs, err := LoadDir(p.DocsDir)
	if err != nil {
		return Stats{}, err
	}
	if len(docs) == 0 {
		p.logger.Warn("no source documents found", "docs_dir", p.DocsDir)
		return Stats{Elapsed: time.Since(start)}, nil
	}

	var records []vectorstore.Record
	for _, doc := range docs {
		for _, chunk := range Chunk(doc.Text, p.ChunkSize, p.ChunkOverlap) {
			records = append(records, vectorstore.Record{
				ID:        uuid.NewString(),
				Source:    doc.Source,
				TextChunk: chunk,
			})
		}
	}

	if err := p.embedAll(ctx, records); err != nil {
		return Stats{}, err
	}

	store, err := vectorstore.Open(indexPath)
	if err != nil {
		return Stats{}, err
	}
	defer store.Close()

	if err := store.Insert(records); err != nil {
		return Stats{}, fmt.Errorf("storing vectors: %w", err)
	}

	stats := Stats{Documents: len(docs), Chunks: len(records), Elapsed: time.Since(start)}
	p.logger.Info("index built", "documents", stats.Documents, "chunks", stats.Chunks, "elapsed", stats.Elapsed)
	return stats, nil
}

// Ingest satisfies the index builder's Ingestor interface.
func (p *Pipeline) Ingest(ctx context.Context, indexPath string) error {
	_, err := p.Run(ctx, indexPath)
	return err
}

// embedAll fills in the Embedding field of each record concurrently.
func (p *Pipeline) embedAll(ctx context.Context, records []vectorstore.Record) error {
	g, gCtx := errgroup.WithContext(ctx)
	limit := p.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for i := range records {
		g.Go(func() error {
			vec, err := p.Embedder.Embed(gCtx, records[i].TextChunk)
			if err != nil {
				return fmt.Errorf("embedding chunk %d of %s: %w", i, records[i].Source, err)
			}
			records[i].Embedding = vec
			return nil
		})
	}

	return g.Wait()
}
