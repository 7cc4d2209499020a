// Package adminapi exposes the local admin surface: liveness and a
// snapshot of the bootstrap run plus every supervised process.
package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ragd/internal/bootstrap"
	"ragd/internal/supervise"
)

// StatusSource yields the current state of the supervised processes.
// *supervise.Supervisor satisfies it.
type StatusSource interface {
	Status() []supervise.Status
}

// Deps carries what the handler reads. Run may be nil until bootstrap
// finishes.
type Deps struct {
	Supervisor StatusSource
	Run        func() *bootstrap.Run
}

type statusResponse struct {
	Bootstrap *bootstrap.Run     `json:"bootstrap,omitempty"`
	Processes []supervise.Status `json:"processes"`
}

// NewHandler builds the admin router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/status", handleStatus(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{Processes: []supervise.Status{}}
		if deps.Supervisor != nil {
			if sts := deps.Supervisor.Status(); sts != nil {
				resp.Processes = sts
			}
		}
		if deps.Run != nil {
			resp.Bootstrap = deps.Run()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
