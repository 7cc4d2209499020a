package supervise

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Handle is a live child process. Wait may be called exactly once.
type Handle interface {
	PID() int
	Wait() error
	Signal(sig os.Signal) error
	Kill() error
}

// Launcher starts child processes. Production uses ExecLauncher; tests
// substitute fakes so no real processes are needed.
type Launcher interface {
	Launch(spec Spec) (Handle, error)
}

// ExecLauncher starts children via os/exec with stdio passed through, so
// child output lands in the supervisor's own streams.
type ExecLauncher struct{}

func (ExecLauncher) Launch(spec Spec) (Handle, error) {
	if len(spec.Argv) == 0 {
		return nil, fmt.Errorf("process %s: empty command", spec.Name)
	}
	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Own process group, so terminal signals hit the supervisor, which
	// then stops children in order instead of the shell killing everyone.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", spec.Name, err)
	}
	return &execHandle{cmd: cmd}, nil
}

type execHandle struct {
	cmd *exec.Cmd
}

func (h *execHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *execHandle) Wait() error { return h.cmd.Wait() }

func (h *execHandle) Signal(sig os.Signal) error {
	if h.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return h.cmd.Process.Signal(sig)
}

func (h *execHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}
