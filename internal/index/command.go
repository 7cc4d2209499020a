package index

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// CommandIngestor runs an external ingestion command with the index path
// appended as the final argument. Used when ingestion is handled by a
// separate tool rather than the built-in pipeline.
type CommandIngestor struct {
	Argv []string
}

func (c *CommandIngestor) Ingest(ctx context.Context, indexPath string) error {
	if len(c.Argv) == 0 {
		return fmt.Errorf("empty ingest command")
	}
	args := append(append([]string{}, c.Argv[1:]...), indexPath)
	cmd := exec.CommandContext(ctx, c.Argv[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", c.Argv[0], err)
	}
	return nil
}
