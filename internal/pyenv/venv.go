package pyenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"sciview/internal/pyexec"
)

// ManagedEnv creates and inspects the environment owned by sciview.
type ManagedEnv struct {
	Dir      string
	Runner   pyexec.Runner
	LookPath func(string) (string, error)
}

// Interpreter returns the environment's interpreter path if it exists.
func (m ManagedEnv) Interpreter() (string, bool) {
	path := findInterpreter(m.Dir)
	return path, path != ""
}

// Create builds the environment with "uv venv" when uv is available, and
// with "<basePython> -m venv" otherwise. An existing environment is left
// untouched.
func (m ManagedEnv) Create(ctx context.Context, basePython string) (string, error) {
	if path, ok := m.Interpreter(); ok {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(m.Dir), 0o755); err != nil {
		return "", fmt.Errorf("prepare managed env parent: %w", err)
	}

	runner := m.Runner
	if runner == nil {
		runner = pyexec.CmdRunner{}
	}
	lookPath := m.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var (
		executable string
		args       []string
	)
	if uv, err := lookPath("uv"); err == nil {
		executable = uv
		args = []string{"venv", m.Dir}
		if basePython != "" {
			args = append(args, "--python", basePython)
		}
	} else {
		if basePython == "" {
			return "", ErrNoInterpreterFound
		}
		executable = basePython
		args = []string{"-m", "venv", m.Dir}
	}

	if _, err := runner.Run(ctx, executable, args, pyexec.Options{}); err != nil {
		return "", fmt.Errorf("create managed env: %w", err)
	}

	path, ok := m.Interpreter()
	if !ok {
		return "", fmt.Errorf("create managed env: interpreter missing under %s", m.Dir)
	}
	return path, nil
}
