package pyenv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"

	"sciview/internal/pyexec"
)

var findSpecArg = regexp.MustCompile(`find_spec\('([^']+)'\)`)

// fakeRunner answers --version and find_spec probes from static tables.
type fakeRunner struct {
	valid     map[string]bool
	available map[string]bool
	failProbe map[string]error

	mu    sync.Mutex
	calls int
}

func (f *fakeRunner) Run(_ context.Context, executable string, args []string, _ pyexec.Options) (pyexec.Output, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if len(args) == 1 && args[0] == "--version" {
		if f.valid[executable] {
			return pyexec.Output{Text: "Python 3.12.1"}, nil
		}
		return pyexec.Output{}, &pyexec.ExecError{Kind: pyexec.KindInterpreterNotFound, Executable: executable}
	}
	if len(args) == 2 && args[0] == "-c" {
		m := findSpecArg.FindStringSubmatch(args[1])
		if m == nil {
			return pyexec.Output{}, errors.New("unexpected script")
		}
		if err := f.failProbe[m[1]]; err != nil {
			return pyexec.Output{}, err
		}
		if f.available[m[1]] {
			return pyexec.Output{}, nil
		}
		return pyexec.Output{}, &pyexec.ExecError{Kind: pyexec.KindUnknown, Executable: executable, ExitCode: 1}
	}
	return pyexec.Output{}, errors.New("unexpected invocation")
}

func (f *fakeRunner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// stubChecker implements Checker from static tables and counts calls.
type stubChecker struct {
	valid    map[string]bool
	packages PackageAvailabilityMap

	validations atomic.Int32
	checks      atomic.Int32
}

func (s *stubChecker) ValidateInterpreter(_ context.Context, path string) bool {
	s.validations.Add(1)
	return s.valid[path]
}

func (s *stubChecker) CheckPackages(_ context.Context, _ string, names []string) PackageAvailabilityMap {
	s.checks.Add(1)
	out := make(PackageAvailabilityMap, len(names))
	for _, name := range names {
		out[name] = s.packages[name]
	}
	return out
}

func noLookPath(string) (string, error) { return "", errors.New("not found") }

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// makeEnv creates an environment directory with a marker and interpreter.
func makeEnv(t *testing.T, dir, marker, markerContents string) string {
	t.Helper()
	if marker == "conda-meta" {
		if err := os.MkdirAll(filepath.Join(dir, marker), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	} else if marker != "" {
		writeFile(t, filepath.Join(dir, marker), markerContents)
	}
	interp := InterpreterPath(dir)
	writeFile(t, interp, "")
	return interp
}
