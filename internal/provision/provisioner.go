// Package provision ensures named inference models are present in the
// local model source before anything depends on them.
package provision

import (
	"context"
	"fmt"
	"io"

	"ragd/internal/ollama"
)

// Outcome reports how Ensure satisfied a model requirement.
type Outcome string

const (
	// AlreadyPresent means the model was found in the local inventory and
	// no fetch happened.
	AlreadyPresent Outcome = "already-present"
	// Fetched means the model was pulled from the configured source.
	Fetched Outcome = "fetched"
)

// Inventory is the bootstrap's view of the model source: local inventory
// lookup plus fetch-by-name. *ollama.Client satisfies it.
type Inventory interface {
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(ollama.PullProgress)) error
}

// ModelError reports which model could not be provisioned.
type ModelError struct {
	Model string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("provisioning model %s: %v", e.Model, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// Provisioner pulls missing models with progress output written to w.
type Provisioner struct {
	inv Inventory
	w   io.Writer
}

// New creates a Provisioner. Pass io.Discard as w to silence progress.
func New(inv Inventory, w io.Writer) *Provisioner {
	if w == nil {
		w = io.Discard
	}
	return &Provisioner{inv: inv, w: w}
}

// Ensure makes the named model available. A model already in inventory is
// never re-fetched.
func (p *Provisioner) Ensure(ctx context.Context, model string) (Outcome, error) {
	if p.inv.HasModel(ctx, model) {
		fmt.Fprintf(p.w, "model %s: ready\n", model)
		return AlreadyPresent, nil
	}

	fmt.Fprintf(p.w, "model %s: pulling...\n", model)
	err := p.inv.PullModel(ctx, model, func(pr ollama.PullProgress) {
		if pr.Total > 0 {
			pct := float64(pr.Completed) / float64(pr.Total) * 100
			fmt.Fprintf(p.w, "  %s %.0f%%\n", pr.Status, pct)
		} else {
			fmt.Fprintf(p.w, "  %s\n", pr.Status)
		}
	})
	if err != nil {
		return "", &ModelError{Model: model, Err: err}
	}
	fmt.Fprintf(p.w, "model %s: ready\n", model)
	return Fetched, nil
}

// EnsureAll provisions each model sequentially, skipping empty names and
// duplicates. The first failure aborts and identifies the failing model.
func (p *Provisioner) EnsureAll(ctx context.Context, models []string) (map[string]Outcome, error) {
	outcomes := make(map[string]Outcome, len(models))
	for _, m := range models {
		if m == "" {
			continue
		}
		if _, done := outcomes[m]; done {
			continue
		}
		out, err := p.Ensure(ctx, m)
		if err != nil {
			return outcomes, err
		}
		outcomes[m] = out
	}
	return outcomes, nil
}
