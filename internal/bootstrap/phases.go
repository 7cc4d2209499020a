package bootstrap

import (
	"context"
	"fmt"

	"ragd/internal/index"
	"ragd/internal/provision"
)

// depInstaller installs missing host packages and reports how many it
// installed. *deps.Installer satisfies it.
type depInstaller interface {
	Ensure(ctx context.Context) (int, error)
}

// runtimePinger reports whether the inference runtime answers at its
// configured address. *ollama.Client satisfies it.
type runtimePinger interface {
	IsRunning(ctx context.Context) bool
}

// processStarter launches a named supervised process and blocks until it
// is ready. *supervise.Supervisor satisfies it.
type processStarter interface {
	Start(ctx context.Context, name string) error
}

// runtimeStarter additionally lets the phase record that the runtime is
// provided externally, so later launches leave it alone.
type runtimeStarter interface {
	processStarter
	MarkExternal(name string) error
}

// modelProvisioner makes a set of models available locally.
// *provision.Provisioner satisfies it.
type modelProvisioner interface {
	EnsureAll(ctx context.Context, models []string) (map[string]provision.Outcome, error)
}

// indexBuilder builds the vector index when it is absent or empty.
// *index.Builder satisfies it.
type indexBuilder interface {
	Ensure(ctx context.Context) (index.Outcome, error)
}

// InstallPhase ensures required host packages are installed.
func InstallPhase(inst depInstaller) Phase {
	return Phase{
		Name: PhaseInstall,
		Execute: func(ctx context.Context) (Outcome, string, error) {
			installed, err := inst.Ensure(ctx)
			if err != nil {
				return "", "", err
			}
			if installed == 0 {
				return Skipped, "all packages present", nil
			}
			return Executed, fmt.Sprintf("installed %d packages", installed), nil
		},
	}
}

// StartRuntimePhase starts the supervised inference runtime unless one is
// already answering at the configured address, in which case the external
// instance is honored and never relaunched.
func StartRuntimePhase(ping runtimePinger, starter runtimeStarter, name string) Phase {
	return Phase{
		Name: PhaseStartRuntime,
		Execute: func(ctx context.Context) (Outcome, string, error) {
			if ping.IsRunning(ctx) {
				if err := starter.MarkExternal(name); err != nil {
					return "", "", err
				}
				return Skipped, "runtime already reachable", nil
			}
			if err := starter.Start(ctx, name); err != nil {
				return "", "", err
			}
			return Executed, fmt.Sprintf("started %s", name), nil
		},
	}
}

// ProvisionPhase ensures every named model is present locally.
func ProvisionPhase(prov modelProvisioner, models []string) Phase {
	return Phase{
		Name: PhaseProvisionModel,
		Execute: func(ctx context.Context) (Outcome, string, error) {
			outcomes, err := prov.EnsureAll(ctx, models)
			if err != nil {
				return "", "", err
			}
			fetched := 0
			for _, out := range outcomes {
				if out == provision.Fetched {
					fetched++
				}
			}
			if fetched == 0 {
				return Skipped, "all models present", nil
			}
			return Executed, fmt.Sprintf("fetched %d models", fetched), nil
		},
	}
}

// BuildIndexPhase ensures the vector index exists and is non-empty.
func BuildIndexPhase(b indexBuilder) Phase {
	return Phase{
		Name: PhaseBuildIndex,
		Execute: func(ctx context.Context) (Outcome, string, error) {
			out, err := b.Ensure(ctx)
			if err != nil {
				return "", "", err
			}
			if out == index.AlreadyReady {
				return Skipped, "index already built", nil
			}
			return Executed, "index built", nil
		},
	}
}

// LaunchPhase starts every remaining supervised process. Processes
// already running from an earlier phase are not launched twice.
func LaunchPhase(starter processStarter, names []string) Phase {
	return Phase{
		Name: PhaseLaunch,
		Execute: func(ctx context.Context) (Outcome, string, error) {
			for _, name := range names {
				if err := starter.Start(ctx, name); err != nil {
					return "", "", err
				}
			}
			return Executed, fmt.Sprintf("supervising %d processes", len(names)), nil
		},
	}
}
