// Package bootstrap sequences the one-shot run that brings the service
// from cold start to ready-to-serve: install host dependencies, start the
// inference runtime, provision models, build the vector index, then hand
// every child over to the process supervisor.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Phase names, in execution order.
const (
	PhaseInstall        = "install"
	PhaseStartRuntime   = "start-runtime"
	PhaseProvisionModel = "provision-model"
	PhaseBuildIndex     = "build-index"
	PhaseLaunch         = "launch-supervisor"
)

// Outcome of one phase.
type Outcome string

const (
	// Skipped means the phase's readiness predicate was already satisfied.
	Skipped Outcome = "skipped"
	// Executed means the phase performed work.
	Executed Outcome = "executed"
)

// PhaseResult records how one phase went.
type PhaseResult struct {
	Name    string        `json:"name"`
	Outcome Outcome       `json:"outcome"`
	Detail  string        `json:"detail,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

// Run is the record of a single bootstrap execution.
type Run struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Phases    []PhaseResult `json:"phases"`
}

// PhaseError wraps a phase failure with the phase name, so the final
// diagnostic identifies where the run died.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("bootstrap phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Phase is one step of the run. Execute returns the outcome and an
// optional human-readable detail.
type Phase struct {
	Name    string
	Execute func(ctx context.Context) (Outcome, string, error)
}

// Orchestrator executes phases strictly in order. It holds no long-lived
// state once the run finishes; supervision continues elsewhere.
type Orchestrator struct {
	phases []Phase
	logger *slog.Logger
}

// New creates an Orchestrator over the given phases.
func New(phases ...Phase) *Orchestrator {
	return &Orchestrator{phases: phases, logger: slog.Default()}
}

// Execute runs every phase in order, stopping at the first failure. The
// returned Run always covers the phases that ran, including the failed
// one.
func (o *Orchestrator) Execute(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), StartedAt: time.Now()}

	for _, phase := range o.phases {
		if err := ctx.Err(); err != nil {
			return run, &PhaseError{Phase: phase.Name, Err: err}
		}

		start := time.Now()
		o.logger.Info("bootstrap phase starting", "phase", phase.Name, "run", run.ID)
		outcome, detail, err := phase.Execute(ctx)
		elapsed := time.Since(start)

		if err != nil {
			run.Phases = append(run.Phases, PhaseResult{Name: phase.Name, Elapsed: elapsed})
			o.logger.Error("bootstrap phase failed", "phase", phase.Name, "error", err)
			return run, &PhaseError{Phase: phase.Name, Err: err}
		}

		run.Phases = append(run.Phases, PhaseResult{
			Name:    phase.Name,
			Outcome: outcome,
			Detail:  detail,
			Elapsed: elapsed,
		})
		o.logger.Info("bootstrap phase done", "phase", phase.Name, "outcome", outcome, "detail", detail)
	}

	return run, nil
}
