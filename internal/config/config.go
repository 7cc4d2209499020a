package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the bootstrap consumes. It is built from
// defaults, optionally a config file, then RAGD_* environment overrides.
// Nothing reads ambient state after Load returns.
type Config struct {
	Log        LogConfig        `json:"log" yaml:"log" toml:"log"`
	Admin      AdminConfig      `json:"admin" yaml:"admin" toml:"admin"`
	Ollama     OllamaConfig     `json:"ollama" yaml:"ollama" toml:"ollama"`
	Index      IndexConfig      `json:"index" yaml:"index" toml:"index"`
	Packages   PackagesConfig   `json:"packages" yaml:"packages" toml:"packages"`
	Runtime    ProcessConfig    `json:"runtime" yaml:"runtime" toml:"runtime"`
	API        ProcessConfig    `json:"api" yaml:"api" toml:"api"`
	Supervisor SupervisorConfig `json:"supervisor" yaml:"supervisor" toml:"supervisor"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level"`
}

// AdminConfig configures the loopback endpoint that exposes bootstrap and
// supervision status.
type AdminConfig struct {
	Port int `json:"port" yaml:"port" toml:"port"`
}

type OllamaConfig struct {
	BaseURL    string `json:"base_url" yaml:"base_url" toml:"base_url"`
	Model      string `json:"model" yaml:"model" toml:"model"`
	EmbedModel string `json:"embed_model" yaml:"embed_model" toml:"embed_model"`
}

// Host extracts the hostname from BaseURL, falling back to 127.0.0.1 when
// the URL carries none.
func (c OllamaConfig) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "127.0.0.1"
	}
	if h := u.Hostname(); h != "" {
		return h
	}
	return "127.0.0.1"
}

// Port extracts the TCP port from BaseURL, falling back to 11434 when the
// URL carries none.
func (c OllamaConfig) Port() int {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return 11434
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}
	return 11434
}

type IndexConfig struct {
	Path          string `json:"path" yaml:"path" toml:"path"`
	DocsDir       string `json:"docs_dir" yaml:"docs_dir" toml:"docs_dir"`
	IngestCommand string `json:"ingest_command" yaml:"ingest_command" toml:"ingest_command"`
}

type PackagesConfig struct {
	Manager  string   `json:"manager" yaml:"manager" toml:"manager"`
	Required []string `json:"required" yaml:"required" toml:"required"`
}

// ProcessConfig describes a supervised child process. Command is the full
// command line (split on whitespace); Port is the local port probed for
// readiness; Restart is "on-failure" or "never".
type ProcessConfig struct {
	Command string `json:"command" yaml:"command" toml:"command"`
	Port    int    `json:"port" yaml:"port" toml:"port"`
	Restart string `json:"restart" yaml:"restart" toml:"restart"`
}

// Argv splits Command into an argv slice.
func (c ProcessConfig) Argv() []string {
	return strings.Fields(c.Command)
}

type SupervisorConfig struct {
	ReadyTimeout string `json:"ready_timeout" yaml:"ready_timeout" toml:"ready_timeout"`
	GracePeriod  string `json:"grace_period" yaml:"grace_period" toml:"grace_period"`
}

// ReadyTimeoutDuration parses ReadyTimeout, returning fallback on error.
func (c SupervisorConfig) ReadyTimeoutDuration(fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(c.ReadyTimeout)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GracePeriodDuration parses GracePeriod, returning fallback on error.
func (c SupervisorConfig) GracePeriodDuration(fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(c.GracePeriod)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func defaults() Config {
	return Config{
		Log:   LogConfig{Level: "info"},
		Admin: AdminConfig{Port: 4600},
		Ollama: OllamaConfig{
			BaseURL:    "http://127.0.0.1:11434",
			Model:      "mistral",
			EmbedModel: "all-minilm",
		},
		Index: IndexConfig{
			Path:    filepath.Join(defaultDataDir(), "vector_store"),
			DocsDir: "documents",
		},
		Packages: PackagesConfig{
			Required: []string{"ollama"},
		},
		Runtime: ProcessConfig{
			Command: "ollama serve",
			Restart: "on-failure",
		},
		API: ProcessConfig{
			Port:    8000,
			Restart: "on-failure",
		},
		Supervisor: SupervisorConfig{
			ReadyTimeout: "60s",
			GracePeriod:  "10s",
		},
	}
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "ragd-data"
		}
	}
	return filepath.Join(dir, "ragd")
}

// Load builds the configuration: defaults, then the config file at path
// (optional; pass "" to skip), then environment overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile reads a configuration file based on its extension.
// Supports .json, .yaml/.yml, and .toml.
func loadFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(env string, dst *string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	setInt := func(env string, dst *int) {
		raw := os.Getenv(env)
		if raw == "" {
			return
		}
		if i, err := strconv.Atoi(raw); err == nil {
			*dst = i
		} else {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", env, raw, err)
		}
	}

	setString("RAGD_LOG_LEVEL", &cfg.Log.Level)
	setInt("RAGD_ADMIN_PORT", &cfg.Admin.Port)
	setString("RAGD_OLLAMA_BASE_URL", &cfg.Ollama.BaseURL)
	setString("RAGD_MODEL", &cfg.Ollama.Model)
	setString("RAGD_EMBED_MODEL", &cfg.Ollama.EmbedModel)
	setString("RAGD_INDEX_PATH", &cfg.Index.Path)
	setString("RAGD_DOCS_DIR", &cfg.Index.DocsDir)
	setString("RAGD_API_COMMAND", &cfg.API.Command)
	setInt("RAGD_API_PORT", &cfg.API.Port)
}

func (c Config) validate() error {
	for _, p := range []struct {
		name    string
		restart string
	}{
		{"runtime", c.Runtime.Restart},
		{"api", c.API.Restart},
	} {
		switch p.restart {
		case "", "on-failure", "never":
		default:
			return fmt.Errorf("invalid restart policy %q for %s (want on-failure or never)", p.restart, p.name)
		}
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("missing required config: ollama.model")
	}
	if c.Index.Path == "" {
		return fmt.Errorf("missing required config: index.path")
	}
	return nil
}
