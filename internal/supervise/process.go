package supervise

import (
	"fmt"
	"time"
)

// RestartPolicy controls what happens when a supervised process exits
// unexpectedly.
type RestartPolicy string

const (
	// RestartOnFailure relaunches the process with backoff after an
	// unexpected exit.
	RestartOnFailure RestartPolicy = "on-failure"
	// RestartNever leaves the process down after it exits.
	RestartNever RestartPolicy = "never"
)

// ParsePolicy maps a config string to a RestartPolicy; "" defaults to
// on-failure.
func ParsePolicy(s string) (RestartPolicy, error) {
	switch s {
	case "", string(RestartOnFailure):
		return RestartOnFailure, nil
	case string(RestartNever):
		return RestartNever, nil
	default:
		return "", fmt.Errorf("unknown restart policy %q", s)
	}
}

// State is the liveness state of a supervised process.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets State serialize as its name in JSON status payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText, for consumers of the
// status payload.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "starting":
		*s = StateStarting
	case "running":
		*s = StateRunning
	case "stopped":
		*s = StateStopped
	case "failed":
		*s = StateFailed
	default:
		return fmt.Errorf("unknown process state %q", text)
	}
	return nil
}

// Spec declares a long-running child process.
type Spec struct {
	Name      string
	Argv      []string
	Dir       string
	Env       []string // extra KEY=VALUE entries appended to the environment
	Restart   RestartPolicy
	ReadyAddr string // host:port probed for readiness; empty means ready at launch
	DependsOn []string
}

// Status is a point-in-time snapshot of one process.
type Status struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	PID       int       `json:"pid,omitempty"`
	Restarts  int       `json:"restarts"`
	StartedAt time.Time `json:"started_at,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// process is the supervisor's mutable record for one Spec. All fields are
// guarded by the supervisor's mutex except exitCh, which is owned by the
// monitor goroutine.
type process struct {
	spec      Spec
	state     State
	handle    Handle
	restarts  int
	startedAt time.Time
	lastErr   error
	exitCh    chan error
	launched  bool
}
