// Package index lazily materializes the persistent vector index: if the
// index directory already holds data the build is skipped, otherwise the
// document-ingestion step runs and the result is re-checked.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Outcome reports how Ensure satisfied the index requirement.
type Outcome string

const (
	// AlreadyReady means the index directory existed and was non-empty.
	AlreadyReady Outcome = "already-ready"
	// Built means ingestion ran and produced a usable index.
	Built Outcome = "built"
)

// ErrNoDocuments marks a build that completed without error yet left the
// index empty: there was nothing to ingest. Distinct from an ingestion
// crash.
var ErrNoDocuments = errors.New("no source documents found")

// BuildError reports a failed index build for a given path.
type BuildError struct {
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building index at %s: %v", e.Path, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Ingestor populates the index directory as a side effect. The builder
// only consumes its success or failure.
type Ingestor interface {
	Ingest(ctx context.Context, indexPath string) error
}

// Ready reports whether the index at path is usable: the directory exists
// and contains at least one entry.
func Ready(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

// Builder ensures the index at Path is ready, running the Ingestor when it
// is not.
type Builder struct {
	Path     string
	Ingestor Ingestor

	logger *slog.Logger
}

// NewBuilder creates a Builder for the given index path.
func NewBuilder(path string, ing Ingestor) *Builder {
	return &Builder{Path: path, Ingestor: ing, logger: slog.Default()}
}

// Ensure makes the index ready. A ready index is never rebuilt; the
// readiness predicate is re-evaluated after ingestion so an ingest run
// that produced nothing fails with ErrNoDocuments.
//
// Assumes at most one bootstrap run per index path at a time; concurrent
// writers are unsupported.
func (b *Builder) Ensure(ctx context.Context) (Outcome, error) {
	if Ready(b.Path) {
		b.logger.Debug("index already ready", "path", b.Path)
		return AlreadyReady, nil
	}

	b.logger.Info("building index", "path", b.Path)
	if err := b.Ingestor.Ingest(ctx, b.Path); err != nil {
		return "", &BuildError{Path: b.Path, Err: err}
	}

	if !Ready(b.Path) {
		return "", &BuildError{Path: b.Path, Err: ErrNoDocuments}
	}
	return Built, nil
}
