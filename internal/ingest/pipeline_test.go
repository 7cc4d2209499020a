package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ragd/internal/vectorstore"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestPipelineRun(t *testing.T) {
	docsDir := t.TempDir()
	writeFile(t, docsDir, "faq.txt", "What is ragd?\n\nA bootstrap daemon.")
	writeFile(t, docsDir, "status.md", "All systems go.")
	indexPath := filepath.Join(t.TempDir(), "vector_store")

	emb := &fakeEmbedder{}
	p := NewPipeline(docsDir, emb)

	stats, err := p.Run(context.Background(), indexPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Documents != 2 {
		t.Errorf("Documents = %d, want 2", stats.Documents)
	}
	if stats.Chunks == 0 {
		t.Error("Chunks = 0, want > 0")
	}
	if emb.calls != stats.Chunks {
		t.Errorf("embedder called %d times, want %d", emb.calls, stats.Chunks)
	}

	store, err := vectorstore.Open(indexPath)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()
	n, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != stats.Chunks {
		t.Errorf("stored %d chunks, want %d", n, stats.Chunks)
	}
}

func TestPipelineRun_NoDocumentsLeavesIndexUntouched(t *testing.T) {
	docsDir := t.TempDir() // empty
	indexPath := filepath.Join(t.TempDir(), "vector_store")

	p := NewPipeline(docsDir, &fakeEmbedder{})
	stats, err := p.Run(context.Background(), indexPath)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Documents != 0 {
		t.Errorf("Documents = %d, want 0", stats.Documents)
	}
	if _, err := os.Stat(indexPath); !os.IsNotExist(err) {
		t.Error("index directory was created despite no documents")
	}
}

func TestPipelineRun_EmbedFailure(t *testing.T) {
	docsDir := t.TempDir()
	writeFile(t, docsDir, "doc.txt", "some text")
	indexPath := filepath.Join(t.TempDir(), "vector_store")

	p := NewPipeline(docsDir, &fakeEmbedder{err: errors.New("embed backend down")})
	if _, err := p.Run(context.Background(), indexPath); err == nil {
		t.Fatal("expected error when embedding fails")
	}
	if _, err := os.Stat(indexPath); !os.IsNotExist(err) {
		t.Error("index directory was created despite embed failure")
	}
}
