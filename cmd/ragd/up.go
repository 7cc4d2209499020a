package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ragd/internal/adminapi"
	"ragd/internal/bootstrap"
	"ragd/internal/config"
	"ragd/internal/deps"
	"ragd/internal/index"
	"ragd/internal/ingest"
	"ragd/internal/ollama"
	"ragd/internal/provision"
	"ragd/internal/supervise"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap the host and run the service under supervision (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUp()
	},
}

const runtimeProcess = "runtime"
const apiProcess = "api"

// buildSpecs turns the process config into supervisor specs. The API
// process is optional; when configured it depends on the runtime.
func buildSpecs(cfg config.Config) ([]supervise.Spec, error) {
	runtimePolicy, err := supervise.ParsePolicy(cfg.Runtime.Restart)
	if err != nil {
		return nil, fmt.Errorf("runtime: %w", err)
	}
	argv := cfg.Runtime.Argv()
	if len(argv) == 0 {
		argv = []string{"ollama", "serve"}
	}
	specs := []supervise.Spec{{
		Name:      runtimeProcess,
		Argv:      argv,
		Restart:   runtimePolicy,
		ReadyAddr: net.JoinHostPort(cfg.Ollama.Host(), strconv.Itoa(cfg.Ollama.Port())),
	}}

	if cfg.API.Command != "" {
		apiPolicy, err := supervise.ParsePolicy(cfg.API.Restart)
		if err != nil {
			return nil, fmt.Errorf("api: %w", err)
		}
		spec := supervise.Spec{
			Name:      apiProcess,
			Argv:      cfg.API.Argv(),
			Restart:   apiPolicy,
			DependsOn: []string{runtimeProcess},
		}
		if cfg.API.Port > 0 {
			spec.ReadyAddr = fmt.Sprintf("127.0.0.1:%d", cfg.API.Port)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// newIngestor picks how the index gets built: an external ingest command
// when configured, the built-in embedding pipeline otherwise.
func newIngestor(cfg config.Config, client *ollama.Client) index.Ingestor {
	if cfg.Index.IngestCommand != "" {
		return &index.CommandIngestor{Argv: strings.Fields(cfg.Index.IngestCommand)}
	}
	embedder := ingest.NewOllamaEmbedder(client, cfg.Ollama.EmbedModel)
	return ingest.NewPipeline(cfg.Index.DocsDir, embedder)
}

func runUp() error {
	fmt.Fprintf(os.Stderr, "ragd version %s\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := ollama.New(cfg.Ollama.BaseURL)
	installer := deps.New(deps.ParseManifest(cfg.Packages.Required), cfg.Packages.Manager, nil)
	provisioner := provision.New(client, os.Stderr)
	builder := index.NewBuilder(cfg.Index.Path, newIngestor(cfg, client))

	if cfg.API.Command == "" {
		printWarning("no api.command configured; supervising the runtime only")
	}
	specs, err := buildSpecs(cfg)
	if err != nil {
		return err
	}
	sup, err := supervise.New(supervise.Options{
		ReadyTimeout: cfg.Supervisor.ReadyTimeoutDuration(60 * time.Second),
		GracePeriod:  cfg.Supervisor.GracePeriodDuration(10 * time.Second),
	}, specs...)
	if err != nil {
		return err
	}

	// The admin endpoint comes up before bootstrap so the run is
	// observable while phases execute.
	var runMu sync.Mutex
	var bootRun *bootstrap.Run
	handler := adminapi.NewHandler(adminapi.Deps{
		Supervisor: sup,
		Run: func() *bootstrap.Run {
			runMu.Lock()
			defer runMu.Unlock()
			return bootRun
		},
	})
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Admin.Port)
	srv := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "ragd admin listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	orch := bootstrap.New(
		bootstrap.InstallPhase(installer),
		bootstrap.StartRuntimePhase(client, sup, runtimeProcess),
		bootstrap.ProvisionPhase(provisioner, []string{cfg.Ollama.Model, cfg.Ollama.EmbedModel}),
		bootstrap.BuildIndexPhase(builder),
		bootstrap.LaunchPhase(sup, names),
	)

	run, err := orch.Execute(ctx)
	runMu.Lock()
	bootRun = run
	runMu.Unlock()
	if err != nil {
		sup.Shutdown()
		return err
	}

	for _, p := range run.Phases {
		printPhase(p.Name, "%s (%s)", p.Outcome, p.Detail)
	}
	printSuccess("bootstrap complete (run %s)", run.ID)

	// Wait for signal or admin server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			sup.Shutdown()
			return fmt.Errorf("admin server error: %w", err)
		}
	}

	sup.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
