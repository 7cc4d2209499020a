package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ragd/internal/bootstrap"
	"ragd/internal/config"
	"ragd/internal/supervise"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bootstrap and process status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return showStatus(fmt.Sprintf("http://127.0.0.1:%d", cfg.Admin.Port))
	},
}

type statusPayload struct {
	Bootstrap *bootstrap.Run     `json:"bootstrap"`
	Processes []supervise.Status `json:"processes"`
}

func fetchStatus(baseURL string) (*statusPayload, error) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("admin endpoint returned %d", resp.StatusCode)
	}
	var payload statusPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding status: %w", err)
	}
	return &payload, nil
}

func showStatus(baseURL string) error {
	payload, err := fetchStatus(baseURL)
	if err != nil {
		printStatus("Server", "stopped")
		return nil
	}

	printStatus("Server", "running at %s", baseURL)

	if payload.Bootstrap != nil {
		printStatus("Bootstrap", "run %s", payload.Bootstrap.ID)
		for _, p := range payload.Bootstrap.Phases {
			printStatus("  "+p.Name, "%s", p.Outcome)
		}
	} else {
		printStatus("Bootstrap", "in progress")
	}

	for _, p := range payload.Processes {
		detail := p.State.String()
		if p.PID != 0 {
			detail = fmt.Sprintf("%s (PID %d)", detail, p.PID)
		}
		if p.Restarts > 0 {
			detail = fmt.Sprintf("%s, %d restarts", detail, p.Restarts)
		}
		if p.LastError != "" {
			detail = fmt.Sprintf("%s: %s", detail, p.LastError)
		}
		printStatus(p.Name, "%s", detail)
	}
	return nil
}
