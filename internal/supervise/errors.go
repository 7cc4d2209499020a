package supervise

import "fmt"

// ReadinessTimeoutError reports a process that never became reachable on
// its readiness address within the bound. Any process depending on it is
// not launched.
type ReadinessTimeoutError struct {
	Name string
	Addr string
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("process %s did not become ready on %s within the timeout", e.Name, e.Addr)
}

// ExitError reports an unexpected exit of a supervised process.
type ExitError struct {
	Name string
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("process %s exited unexpectedly", e.Name)
	}
	return fmt.Sprintf("process %s exited unexpectedly: %v", e.Name, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }
