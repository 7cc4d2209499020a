// Package deps ensures required host packages are present before the
// bootstrap proceeds. Every check is re-run on every bootstrap, so a fully
// provisioned host installs nothing.
package deps

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Package is one entry of the requirement manifest. Binary is the
// executable probed on PATH; when empty, Name is probed instead.
type Package struct {
	Name   string
	Binary string
}

// ParseManifest converts config entries of the form "name" or
// "name:binary" into Packages.
func ParseManifest(entries []string) []Package {
	pkgs := make([]Package, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		name, binary, found := strings.Cut(e, ":")
		if !found {
			binary = ""
		}
		pkgs = append(pkgs, Package{Name: name, Binary: binary})
	}
	return pkgs
}

// InstallError reports a package that could not be installed.
type InstallError struct {
	Package string
	Err     error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installing package %s: %v", e.Package, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// Runner executes an install command. Production uses CommandRunner;
// tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, name string, args ...string) error

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) error {
	return f(ctx, name, args...)
}

// CommandRunner runs commands through os/exec, inheriting stdio so package
// manager output stays visible. Non-root invocations go through sudo when
// available.
type CommandRunner struct{}

func (CommandRunner) Run(ctx context.Context, name string, args ...string) error {
	if os.Geteuid() != 0 {
		if _, err := exec.LookPath("sudo"); err == nil {
			args = append([]string{name}, args...)
			name = "sudo"
		}
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// manager describes how a system package manager installs one package
// non-interactively.
type manager struct {
	bin  string
	args []string
}

var managers = []manager{
	{"apt-get", []string{"install", "-y"}},
	{"pacman", []string{"-S", "--needed", "--noconfirm"}},
	{"dnf", []string{"install", "-y"}},
	{"brew", []string{"install"}},
}

// detectManager returns the first package manager found on PATH, or the
// override when set.
func detectManager(override string, lookPath func(string) (string, error)) (manager, error) {
	if override != "" {
		for _, m := range managers {
			if m.bin == override {
				return m, nil
			}
		}
		return manager{}, fmt.Errorf("unsupported package manager: %s", override)
	}
	for _, m := range managers {
		if _, err := lookPath(m.bin); err == nil {
			return m, nil
		}
	}
	return manager{}, fmt.Errorf("no supported package manager found (tried apt-get, pacman, dnf, brew)")
}

// Installer checks the manifest against the host and installs what is
// missing.
type Installer struct {
	packages []Package
	manager  string
	runner   Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

// New creates an Installer for the given manifest. managerOverride forces a
// specific package manager; pass "" to auto-detect.
func New(packages []Package, managerOverride string, runner Runner) *Installer {
	if runner == nil {
		runner = CommandRunner{}
	}
	return &Installer{
		packages: packages,
		manager:  managerOverride,
		runner:   runner,
		lookPath: exec.LookPath,
		logger:   slog.Default(),
	}
}

// Ensure installs any manifest package whose binary is not on PATH.
// Returns the number of packages actually installed; 0 means the host was
// already satisfied. Any failure is an *InstallError and fatal to the
// bootstrap.
func (i *Installer) Ensure(ctx context.Context) (int, error) {
	installed := 0
	for _, pkg := range i.packages {
		binary := pkg.Binary
		if binary == "" {
			binary = pkg.Name
		}
		if _, err := i.lookPath(binary); err == nil {
			i.logger.Debug("package already installed", "package", pkg.Name)
			continue
		}

		mgr, err := detectManager(i.manager, i.lookPath)
		if err != nil {
			return installed, &InstallError{Package: pkg.Name, Err: err}
		}

		i.logger.Info("installing package", "package", pkg.Name, "manager", mgr.bin)
		args := append(append([]string{}, mgr.args...), pkg.Name)
		if err := i.runner.Run(ctx, mgr.bin, args...); err != nil {
			return installed, &InstallError{Package: pkg.Name, Err: err}
		}

		// Confirm the install actually produced the binary.
		if _, err := i.lookPath(binary); err != nil {
			return installed, &InstallError{Package: pkg.Name, Err: fmt.Errorf("binary %s still missing after install", binary)}
		}
		installed++
	}
	return installed, nil
}
