package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:           "ragd",
	Short:         "Bootstrap and supervise a local retrieval-augmented inference service",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (.json, .yaml, or .toml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
