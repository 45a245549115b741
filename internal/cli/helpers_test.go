package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"sciview/internal/app"
	"sciview/internal/config"
	"sciview/internal/dataset"
	"sciview/internal/pyexec"
)

// pythonPlaceholder in a test config is replaced with the fake interpreter
// path, which exists on disk so config validation accepts it.
const pythonPlaceholder = "{{python}}"

var findSpecArg = regexp.MustCompile(`find_spec\('([^']+)'\)`)

// fakePython stands in for the interpreter at path and the helper scripts
// it runs.
type fakePython struct {
	mu        sync.Mutex
	path      string
	installed map[string]bool
	info      string
	plot      string
	slice     string
	versions  string

	calls    int
	infoCtxs []context.Context
}

func newFakePython(installed ...string) *fakePython {
	f := &fakePython{installed: map[string]bool{}, versions: "INSTALLED VERSIONS\nxarray: 2024.6.0"}
	for _, name := range installed {
		f.installed[name] = true
	}
	return f
}

func (f *fakePython) Run(ctx context.Context, executable string, args []string, _ pyexec.Options) (pyexec.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if executable != f.path {
		return pyexec.Output{}, &pyexec.ExecError{Kind: pyexec.KindInterpreterNotFound, Executable: executable}
	}
	switch {
	case len(args) == 1 && args[0] == "--version":
		return pyexec.Output{Text: "Python 3.12.4"}, nil
	case len(args) == 2 && args[0] == "-c":
		if m := findSpecArg.FindStringSubmatch(args[1]); m != nil && f.installed[m[1]] {
			return pyexec.Output{}, nil
		}
		return pyexec.Output{}, &pyexec.ExecError{Kind: pyexec.KindUnknown, Executable: executable, ExitCode: 1}
	case len(args) >= 2 && strings.HasSuffix(args[0], dataset.InfoScript) && args[1] == "info":
		f.infoCtxs = append(f.infoCtxs, ctx)
		return pyexec.Output{Text: f.info}, nil
	case len(args) >= 2 && strings.HasSuffix(args[0], dataset.InfoScript) && args[1] == "plot":
		return pyexec.Output{Text: f.plot}, nil
	case len(args) >= 3 && strings.HasSuffix(args[0], dataset.SliceScript):
		return pyexec.Output{Text: f.slice}, nil
	case len(args) == 1 && strings.HasSuffix(args[0], dataset.VersionsScript):
		return pyexec.Output{JSON: map[string]any{"versions": f.versions}}, nil
	}
	return pyexec.Output{}, errors.New("unexpected invocation")
}

// snapshot returns the number of invocations so far and the contexts of
// the info requests.
func (f *fakePython) snapshot() (int, []context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]context.Context(nil), f.infoCtxs...)
}

const testConfig = `python:
  path: {{python}}
  auto_detect_venvs: false
packages:
  core: [xarray]
  optional: [matplotlib, netCDF4]
`

const airInfo = `{"result": {"format_info": {"extension": ".nc", "display_name": "NetCDF", "available_engines": ["netcdf4"], "missing_packages": []},
 "used_engine": "netcdf4", "fileSize": 2048,
 "dimensions_flattened": {"/": {"time": 4, "lat": 2}},
 "coordinates_flattened": {"/": [{"name": "time", "dtype": "datetime64[ns]", "shape": [4], "dimensions": ["time"], "size_bytes": 32}]},
 "variables_flattened": {"/": [{"name": "air", "dtype": "float32", "shape": [4, 2], "dimensions": ["time", "lat"], "size_bytes": 32}]}}}`

// setupWorkspace points the package-level flags at a fresh workspace served
// by runner and restores them when the test ends.
func setupWorkspace(t *testing.T, cfg string, runner *fakePython) string {
	t.Helper()

	prevProject, prevConfig, prevJSON, prevOptions := projectDir, configFile, outputJSON, appOptions
	prevForce, prevNoProgress, prevSave := envForce, envNoProgress, envSave
	prevStyle, prevOut, prevTimeout := plotStyle, plotOut, plotTimeout
	prevDim, prevStart, prevStop := sliceDim, sliceStart, sliceStop
	t.Cleanup(func() {
		projectDir, configFile, outputJSON, appOptions = prevProject, prevConfig, prevJSON, prevOptions
		envForce, envNoProgress, envSave = prevForce, prevNoProgress, prevSave
		plotStyle, plotOut, plotTimeout = prevStyle, prevOut, prevTimeout
		sliceDim, sliceStart, sliceStop = prevDim, prevStart, prevStop
	})

	root := t.TempDir()
	runner.path = filepath.Join(root, "bin", "python")
	if err := os.MkdirAll(filepath.Dir(runner.path), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(runner.path, nil, 0o755); err != nil {
		t.Fatalf("write interpreter: %v", err)
	}
	cfg = strings.ReplaceAll(cfg, pythonPlaceholder, runner.path)
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	scripts := filepath.Join(root, "python")
	if err := os.MkdirAll(scripts, 0o755); err != nil {
		t.Fatalf("mkdir scripts: %v", err)
	}
	for _, name := range []string{dataset.InfoScript, dataset.VersionsScript, dataset.SliceScript} {
		if err := os.WriteFile(filepath.Join(scripts, name), []byte("# stand-in\n"), 0o644); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}

	projectDir = root
	configFile = ""
	outputJSON = false
	appOptions = func() app.Options {
		return app.Options{
			Getenv:        func(string) string { return "" },
			Runner:        runner,
			LogWriter:     io.Discard,
			ManagedEnvDir: filepath.Join(root, "managed-env"),
		}
	}
	return root
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
