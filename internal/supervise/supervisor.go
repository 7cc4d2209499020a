// Package supervise launches and monitors the long-running child
// processes of the service: launch in dependency order gated on readiness
// probes, restart on unexpected exit per policy, and stop in reverse order
// on shutdown.
package supervise

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"
)

// Options tune the supervisor. Zero values fall back to the defaults
// below.
type Options struct {
	Launcher      Launcher
	Probe         Probe
	ProbeInterval time.Duration
	ReadyTimeout  time.Duration
	GracePeriod   time.Duration
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	Logger        *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Launcher == nil {
		o.Launcher = ExecLauncher{}
	}
	if o.Probe == nil {
		o.Probe = TCPProbe
	}
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = 250 * time.Millisecond
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 60 * time.Second
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = 10 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Supervisor owns the runtime state of every registered process.
type Supervisor struct {
	opts Options

	mu      sync.Mutex
	procs   map[string]*process
	order   []string // registration order
	started []string // actual start order, for reverse-order shutdown

	stopping chan struct{}
	stopOnce sync.Once
	monitors sync.WaitGroup
}

// New registers the given specs. Dependency references must name
// registered specs; cycles are rejected.
func New(opts Options, specs ...Spec) (*Supervisor, error) {
	s := &Supervisor{
		opts:     opts.withDefaults(),
		procs:    make(map[string]*process, len(specs)),
		stopping: make(chan struct{}),
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("process spec with empty name")
		}
		if _, dup := s.procs[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate process name %q", spec.Name)
		}
		if spec.Restart == "" {
			spec.Restart = RestartOnFailure
		}
		s.procs[spec.Name] = &process{spec: spec}
		s.order = append(s.order, spec.Name)
	}
	for _, spec := range specs {
		for _, dep := range spec.DependsOn {
			if _, ok := s.procs[dep]; !ok {
				return nil, fmt.Errorf("process %s depends on unknown process %s", spec.Name, dep)
			}
		}
	}
	if err := s.checkCycles(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Supervisor) checkCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(s.procs))
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case gray:
			return fmt.Errorf("dependency cycle involving process %s", name)
		case black:
			return nil
		}
		color[name] = gray
		for _, dep := range s.procs[name].spec.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}
	for _, name := range s.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the named process, starting its declared dependencies
// first and waiting for each readiness probe. A process whose dependency
// never becomes ready is not launched.
func (s *Supervisor) Start(ctx context.Context, name string) error {
	p, ok := s.procs[name]
	if !ok {
		return fmt.Errorf("unknown process %s", name)
	}
	for _, dep := range p.spec.DependsOn {
		if err := s.Start(ctx, dep); err != nil {
			return fmt.Errorf("dependency of %s: %w", name, err)
		}
	}
	return s.launch(ctx, p)
}

// MarkExternal records that the named process is already provided by an
// externally managed instance. Start becomes a no-op for it, dependents
// treat it as ready, and the supervisor neither monitors nor stops it.
func (s *Supervisor) MarkExternal(name string) error {
	p, ok := s.procs[name]
	if !ok {
		return fmt.Errorf("unknown process %s", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.launched {
		return fmt.Errorf("process %s already started", name)
	}
	p.launched = true
	p.state = StateRunning
	return nil
}

// StartAll launches every registered process in registration order,
// honoring declared dependencies.
func (s *Supervisor) StartAll(ctx context.Context) error {
	for _, name := range s.order {
		if err := s.Start(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Supervisor) launch(ctx context.Context, p *process) error {
	s.mu.Lock()
	if p.launched {
		s.mu.Unlock()
		return nil
	}
	p.launched = true
	p.state = StateStarting
	s.mu.Unlock()

	s.opts.Logger.Info("starting process", "name", p.spec.Name)
	if err := s.launchOnce(p); err != nil {
		s.setTerminal(p, StateFailed, err)
		return err
	}
	s.mu.Lock()
	s.started = append(s.started, p.spec.Name)
	s.mu.Unlock()

	if err := s.awaitReady(ctx, p); err != nil {
		p.handle.Kill()
		s.reap(p.exitCh, 2*time.Second)
		s.setTerminal(p, StateFailed, err)
		return err
	}

	s.mu.Lock()
	p.state = StateRunning
	s.mu.Unlock()
	s.opts.Logger.Info("process running", "name", p.spec.Name, "pid", p.handle.PID())

	s.monitors.Add(1)
	go s.monitor(p)
	return nil
}

// launchOnce replaces the process handle and exit channel with a fresh
// child. The single Wait call for that child happens in the goroutine
// spawned here.
func (s *Supervisor) launchOnce(p *process) error {
	handle, err := s.opts.Launcher.Launch(p.spec)
	if err != nil {
		return fmt.Errorf("launching %s: %w", p.spec.Name, err)
	}
	exitCh := make(chan error, 1)
	go func() { exitCh <- handle.Wait() }()

	s.mu.Lock()
	p.handle = handle
	p.exitCh = exitCh
	p.startedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// awaitReady polls the readiness address until it accepts connections,
// the process dies, or the bound elapses.
func (s *Supervisor) awaitReady(ctx context.Context, p *process) error {
	if p.spec.ReadyAddr == "" {
		return nil
	}

	deadline := time.NewTimer(s.opts.ReadyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		if err := s.opts.Probe(ctx, p.spec.ReadyAddr); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopping:
			return fmt.Errorf("supervisor stopping")
		case err := <-p.exitCh:
			return &ExitError{Name: p.spec.Name, Err: err}
		case <-deadline.C:
			return &ReadinessTimeoutError{Name: p.spec.Name, Addr: p.spec.ReadyAddr}
		case <-ticker.C:
		}
	}
}

// monitor watches one running process for the lifetime of the supervisor,
// applying the restart policy on unexpected exits.
func (s *Supervisor) monitor(p *process) {
	defer s.monitors.Done()
	for {
		s.mu.Lock()
		exitCh := p.exitCh
		s.mu.Unlock()

		select {
		case <-s.stopping:
			return
		case err := <-exitCh:
			if s.isStopping() {
				// Hand the exit event back for the shutdown path.
				exitCh <- err
				return
			}
			s.mu.Lock()
			if err != nil {
				p.lastErr = &ExitError{Name: p.spec.Name, Err: err}
			}
			if p.spec.Restart != RestartOnFailure {
				if err != nil {
					p.state = StateFailed
				} else {
					p.state = StateStopped
				}
				s.mu.Unlock()
				if err != nil {
					s.opts.Logger.Warn("process exited unexpectedly", "name", p.spec.Name, "error", err)
				} else {
					s.opts.Logger.Info("process exited", "name", p.spec.Name)
				}
				return
			}
			p.state = StateFailed
			s.mu.Unlock()
			s.opts.Logger.Warn("process exited unexpectedly", "name", p.spec.Name, "error", err)

			if !s.relaunch(p) {
				return
			}
		}
	}
}

// relaunch retries the process with exponential backoff until it is
// running again or the supervisor stops. Returns false when stopping.
func (s *Supervisor) relaunch(p *process) bool {
	for {
		s.mu.Lock()
		delay := backoffDelay(s.opts.BackoffBase, s.opts.BackoffMax, p.restarts)
		s.mu.Unlock()

		select {
		case <-s.stopping:
			return false
		case <-time.After(delay):
		}

		s.mu.Lock()
		p.state = StateStarting
		p.restarts++
		attempt := p.restarts
		s.mu.Unlock()
		s.opts.Logger.Info("restarting process", "name", p.spec.Name, "attempt", attempt)

		if err := s.launchOnce(p); err != nil {
			s.setTerminal(p, StateFailed, err)
			continue
		}
		if s.isStopping() {
			// Shutdown raced the relaunch; the shutdown path no longer
			// tracks this child, so stop it here.
			p.handle.Kill()
			s.reap(p.exitCh, 2*time.Second)
			return false
		}
		if err := s.awaitReady(context.Background(), p); err != nil {
			if s.isStopping() {
				return false
			}
			p.handle.Kill()
			s.reap(p.exitCh, 2*time.Second)
			s.setTerminal(p, StateFailed, err)
			continue
		}

		s.mu.Lock()
		p.state = StateRunning
		s.mu.Unlock()
		s.opts.Logger.Info("process running", "name", p.spec.Name, "pid", p.handle.PID())
		return true
	}
}

func backoffDelay(base, max time.Duration, restarts int) time.Duration {
	d := base
	for i := 0; i < restarts && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}

// Wait blocks until ctx is cancelled, then stops all children in reverse
// start order.
func (s *Supervisor) Wait(ctx context.Context) {
	<-ctx.Done()
	s.Shutdown()
}

// Shutdown stops children in reverse start order: SIGTERM, a bounded
// grace wait, then SIGKILL. Safe to call more than once.
func (s *Supervisor) Shutdown() {
	s.stopOnce.Do(func() { close(s.stopping) })

	s.mu.Lock()
	order := append([]string(nil), s.started...)
	s.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		s.stopProcess(s.procs[order[i]])
	}
	s.monitors.Wait()
}

func (s *Supervisor) stopProcess(p *process) {
	// Snapshot under the lock: a relaunch racing this shutdown may still
	// swap the handle and exit channel.
	s.mu.Lock()
	state := p.state
	handle := p.handle
	exitCh := p.exitCh
	s.mu.Unlock()

	if state != StateRunning && state != StateStarting {
		return
	}
	if handle == nil {
		return
	}

	s.opts.Logger.Info("stopping process", "name", p.spec.Name)
	handle.Signal(syscall.SIGTERM)

	select {
	case <-exitCh:
	case <-time.After(s.opts.GracePeriod):
		s.opts.Logger.Warn("grace period elapsed, killing process", "name", p.spec.Name)
		handle.Kill()
		s.reap(exitCh, 2*time.Second)
	}

	s.mu.Lock()
	p.state = StateStopped
	s.mu.Unlock()
}

// reap waits briefly for the exit notification of a killed child.
func (s *Supervisor) reap(exitCh <-chan error, bound time.Duration) {
	select {
	case <-exitCh:
	case <-time.After(bound):
	}
}

func (s *Supervisor) setTerminal(p *process, state State, err error) {
	s.mu.Lock()
	p.state = state
	p.lastErr = err
	s.mu.Unlock()
}

func (s *Supervisor) isStopping() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

// Status returns a snapshot of every registered process in registration
// order.
func (s *Supervisor) Status() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(s.order))
	for _, name := range s.order {
		p := s.procs[name]
		st := Status{
			Name:      name,
			State:     p.state,
			Restarts:  p.restarts,
			StartedAt: p.startedAt,
		}
		if p.handle != nil && (p.state == StateRunning || p.state == StateStarting) {
			st.PID = p.handle.PID()
		}
		if p.lastErr != nil {
			st.LastError = p.lastErr.Error()
		}
		out = append(out, st)
	}
	return out
}
