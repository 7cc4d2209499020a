package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ragd/internal/config"
	"ragd/internal/index"
	"ragd/internal/ingest"
	"ragd/internal/ollama"
	"ragd/internal/supervise"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func TestBuildSpecs_RuntimeOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.Command = ""

	specs, err := buildSpecs(cfg)
	if err != nil {
		t.Fatalf("buildSpecs() error = %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("specs = %d, want 1", len(specs))
	}

	rt := specs[0]
	if rt.Name != runtimeProcess {
		t.Errorf("name = %q, want runtime", rt.Name)
	}
	if len(rt.Argv) != 2 || rt.Argv[0] != "ollama" || rt.Argv[1] != "serve" {
		t.Errorf("argv = %v, want [ollama serve]", rt.Argv)
	}
	if rt.ReadyAddr != "127.0.0.1:11434" {
		t.Errorf("ready addr = %q, want 127.0.0.1:11434", rt.ReadyAddr)
	}
	if rt.Restart != supervise.RestartOnFailure {
		t.Errorf("restart = %q, want on-failure", rt.Restart)
	}
}

func TestBuildSpecs_RemoteRuntimeHost(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.Command = ""
	cfg.Ollama.BaseURL = "http://ollama.internal:4222"

	specs, err := buildSpecs(cfg)
	if err != nil {
		t.Fatalf("buildSpecs() error = %v", err)
	}
	if specs[0].ReadyAddr != "ollama.internal:4222" {
		t.Errorf("ready addr = %q, want ollama.internal:4222", specs[0].ReadyAddr)
	}
}

func TestBuildSpecs_APIDependsOnRuntime(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.Command = "uvicorn app:app --port 8000"
	cfg.API.Port = 8000

	specs, err := buildSpecs(cfg)
	if err != nil {
		t.Fatalf("buildSpecs() error = %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}

	api := specs[1]
	if api.Name != apiProcess {
		t.Errorf("name = %q, want api", api.Name)
	}
	if len(api.DependsOn) != 1 || api.DependsOn[0] != runtimeProcess {
		t.Errorf("depends on = %v, want [runtime]", api.DependsOn)
	}
	if api.ReadyAddr != "127.0.0.1:8000" {
		t.Errorf("ready addr = %q, want 127.0.0.1:8000", api.ReadyAddr)
	}
	if api.Argv[0] != "uvicorn" {
		t.Errorf("argv = %v, want uvicorn first", api.Argv)
	}
}

func TestBuildSpecs_InvalidRestart(t *testing.T) {
	cfg := testConfig(t)
	cfg.Runtime.Restart = "always"

	if _, err := buildSpecs(cfg); err == nil {
		t.Fatal("expected error for unknown restart policy")
	}
}

func TestNewIngestor_CommandWins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Index.IngestCommand = "python ingest.py"

	ing := newIngestor(cfg, ollama.New("http://127.0.0.1:11434"))
	ci, ok := ing.(*index.CommandIngestor)
	if !ok {
		t.Fatalf("ingestor = %T, want *index.CommandIngestor", ing)
	}
	if len(ci.Argv) != 2 || ci.Argv[0] != "python" {
		t.Errorf("argv = %v, want [python ingest.py]", ci.Argv)
	}
}

func TestNewIngestor_DefaultPipeline(t *testing.T) {
	cfg := testConfig(t)
	cfg.Index.IngestCommand = ""

	ing := newIngestor(cfg, ollama.New("http://127.0.0.1:11434"))
	if _, ok := ing.(*ingest.Pipeline); !ok {
		t.Fatalf("ingestor = %T, want *ingest.Pipeline", ing)
	}
}

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			w.WriteHeader(404)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"bootstrap": {"id": "run-9", "phases": [{"name": "install", "outcome": "skipped"}]},
			"processes": [{"name": "runtime", "state": "running", "pid": 42, "restarts": 1}]
		}`))
	}))
	defer srv.Close()

	payload, err := fetchStatus(srv.URL)
	if err != nil {
		t.Fatalf("fetchStatus() error = %v", err)
	}

	if payload.Bootstrap == nil || payload.Bootstrap.ID != "run-9" {
		t.Errorf("bootstrap = %+v, want run-9", payload.Bootstrap)
	}
	if len(payload.Processes) != 1 {
		t.Fatalf("processes = %d, want 1", len(payload.Processes))
	}
	p := payload.Processes[0]
	if p.Name != "runtime" || p.State != supervise.StateRunning || p.PID != 42 || p.Restarts != 1 {
		t.Errorf("process = %+v", p)
	}
}

func TestFetchStatus_ServerDown(t *testing.T) {
	if _, err := fetchStatus("http://127.0.0.1:1"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestShowStatus_StoppedServerIsNotAnError(t *testing.T) {
	if err := showStatus("http://127.0.0.1:1"); err != nil {
		t.Fatalf("showStatus() error = %v, want nil for stopped server", err)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := paint(ansiGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("paint with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = paint(ansiGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("paint with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestOutputHelpers(t *testing.T) {
	var buf bytes.Buffer
	oldW, oldC := feedback, noColor
	defer func() { feedback, noColor = oldW, oldC }()
	feedback = &buf
	noColor = true

	printPhase("build-index", "%s", "executed")
	printSuccess("bootstrap complete")
	printWarning("no api.command configured")
	printStatus("runtime", "running (PID %d)", 42)

	want := "build-index: executed\n" +
		"✔ bootstrap complete\n" +
		"! no api.command configured\n" +
		"  runtime: running (PID 42)\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
