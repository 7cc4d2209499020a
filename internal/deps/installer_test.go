package deps

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeHost simulates PATH lookups and records install commands.
type fakeHost struct {
	present  map[string]bool
	installs []string
	fail     error
}

func (h *fakeHost) lookPath(bin string) (string, error) {
	if h.present[bin] {
		return "/usr/bin/" + bin, nil
	}
	return "", errors.New("not found")
}

func (h *fakeHost) Run(_ context.Context, name string, args ...string) error {
	pkg := args[len(args)-1]
	h.installs = append(h.installs, fmt.Sprintf("%s %s", name, pkg))
	if h.fail != nil {
		return h.fail
	}
	// Installing makes the binary appear.
	h.present[pkg] = true
	return nil
}

func newTestInstaller(pkgs []Package, host *fakeHost) *Installer {
	inst := New(pkgs, "", host)
	inst.lookPath = host.lookPath
	return inst
}

func TestParseManifest(t *testing.T) {
	pkgs := ParseManifest([]string{"ollama", "python3-pip:pip3", "", " curl "})
	want := []Package{
		{Name: "ollama"},
		{Name: "python3-pip", Binary: "pip3"},
		{Name: "curl"},
	}
	if len(pkgs) != len(want) {
		t.Fatalf("got %d packages, want %d", len(pkgs), len(want))
	}
	for i, w := range want {
		if pkgs[i] != w {
			t.Errorf("pkgs[%d] = %+v, want %+v", i, pkgs[i], w)
		}
	}
}

func TestEnsure_AllPresent(t *testing.T) {
	host := &fakeHost{present: map[string]bool{"ollama": true, "curl": true, "apt-get": true}}
	inst := newTestInstaller([]Package{{Name: "ollama"}, {Name: "curl"}}, host)

	n, err := inst.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if n != 0 {
		t.Errorf("installed %d packages, want 0", n)
	}
	if len(host.installs) != 0 {
		t.Errorf("unexpected install commands: %v", host.installs)
	}
}

func TestEnsure_InstallsMissing(t *testing.T) {
	host := &fakeHost{present: map[string]bool{"apt-get": true, "curl": true}}
	inst := newTestInstaller([]Package{{Name: "curl"}, {Name: "ollama"}}, host)

	n, err := inst.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if n != 1 {
		t.Errorf("installed %d packages, want 1", n)
	}
	if len(host.installs) != 1 || host.installs[0] != "apt-get ollama" {
		t.Errorf("install commands = %v, want [apt-get ollama]", host.installs)
	}
}

func TestEnsure_IdempotentSecondRun(t *testing.T) {
	host := &fakeHost{present: map[string]bool{"apt-get": true}}
	inst := newTestInstaller([]Package{{Name: "ollama"}}, host)

	if _, err := inst.Ensure(context.Background()); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}
	n, err := inst.Ensure(context.Background())
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if n != 0 {
		t.Errorf("second run installed %d packages, want 0", n)
	}
	if len(host.installs) != 1 {
		t.Errorf("install ran %d times, want 1", len(host.installs))
	}
}

func TestEnsure_InstallFailure(t *testing.T) {
	host := &fakeHost{
		present: map[string]bool{"apt-get": true},
		fail:    errors.New("network unreachable"),
	}
	inst := newTestInstaller([]Package{{Name: "ollama"}}, host)

	_, err := inst.Ensure(context.Background())
	if err == nil {
		t.Fatal("expected error when install fails")
	}
	var instErr *InstallError
	if !errors.As(err, &instErr) {
		t.Fatalf("error type = %T, want *InstallError", err)
	}
	if instErr.Package != "ollama" {
		t.Errorf("failed package = %q, want ollama", instErr.Package)
	}
}

func TestEnsure_NoPackageManager(t *testing.T) {
	host := &fakeHost{present: map[string]bool{}}
	inst := newTestInstaller([]Package{{Name: "ollama"}}, host)

	_, err := inst.Ensure(context.Background())
	if err == nil {
		t.Fatal("expected error when no package manager is available")
	}
	var instErr *InstallError
	if !errors.As(err, &instErr) {
		t.Fatalf("error type = %T, want *InstallError", err)
	}
}

func TestEnsure_BinaryOverride(t *testing.T) {
	// python3-pip installs the pip3 binary, not python3-pip.
	host := &fakeHost{present: map[string]bool{"apt-get": true, "pip3": true}}
	inst := newTestInstaller([]Package{{Name: "python3-pip", Binary: "pip3"}}, host)

	n, err := inst.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if n != 0 {
		t.Errorf("installed %d packages, want 0", n)
	}
}

func TestDetectManager_Override(t *testing.T) {
	host := &fakeHost{present: map[string]bool{"pacman": true, "apt-get": true}}

	m, err := detectManager("pacman", host.lookPath)
	if err != nil {
		t.Fatalf("detectManager: %v", err)
	}
	if m.bin != "pacman" {
		t.Errorf("manager = %q, want pacman", m.bin)
	}

	if _, err := detectManager("nix-env", host.lookPath); err == nil {
		t.Error("expected error for unsupported manager override")
	}
}
