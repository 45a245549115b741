package pyenv

import (
	"context"
	"os"
	"strings"
)

// Host integrations expose the interpreter chosen by surrounding tooling. A
// host may implement any subset of the interfaces below; newer shapes are
// preferred over older ones.

// EnvironmentResolverHost resolves the host's selected environment to an
// interpreter path.
type EnvironmentResolverHost interface {
	ResolveEnvironment(ctx context.Context) (string, error)
}

// ActiveEnvironmentHost reports the currently active environment.
type ActiveEnvironmentHost interface {
	ActiveEnvironment(ctx context.Context) (string, error)
}

// InterpreterDetailsHost is the legacy shape; it returns the interpreter
// command line, whose first element is the executable.
type InterpreterDetailsHost interface {
	InterpreterDetails(ctx context.Context) ([]string, error)
}

// HostStrategy is one way of asking the host for an interpreter path.
type HostStrategy struct {
	Name  string
	Probe func(ctx context.Context) (string, bool)
}

// HostStrategies returns the probing strategies host supports, in priority
// order. A nil host yields none.
func HostStrategies(host any) []HostStrategy {
	if host == nil {
		return nil
	}
	var strategies []HostStrategy
	if h, ok := host.(EnvironmentResolverHost); ok {
		strategies = append(strategies, HostStrategy{
			Name: "resolveEnvironment",
			Probe: func(ctx context.Context) (string, bool) {
				return usablePath(h.ResolveEnvironment(ctx))
			},
		})
	}
	if h, ok := host.(ActiveEnvironmentHost); ok {
		strategies = append(strategies, HostStrategy{
			Name: "getActiveEnvironment",
			Probe: func(ctx context.Context) (string, bool) {
				return usablePath(h.ActiveEnvironment(ctx))
			},
		})
	}
	if h, ok := host.(InterpreterDetailsHost); ok {
		strategies = append(strategies, HostStrategy{
			Name: "getInterpreterDetails",
			Probe: func(ctx context.Context) (string, bool) {
				cmd, err := h.InterpreterDetails(ctx)
				if err != nil || len(cmd) == 0 {
					return "", false
				}
				return usablePath(cmd[0], nil)
			},
		})
	}
	return strategies
}

func usablePath(path string, err error) (string, bool) {
	if err != nil {
		return "", false
	}
	path = strings.TrimSpace(path)
	return path, path != ""
}

// EnvHost reads the environment activated in the calling shell, the
// command-line counterpart of an editor's Python integration.
type EnvHost struct {
	Getenv func(string) string
}

// ActiveEnvironment returns the interpreter of an activated virtualenv or
// conda environment.
func (h EnvHost) ActiveEnvironment(context.Context) (string, error) {
	getenv := h.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	for _, key := range []string{"VIRTUAL_ENV", "CONDA_PREFIX"} {
		prefix := strings.TrimSpace(getenv(key))
		if prefix == "" {
			continue
		}
		if path := findInterpreter(prefix); path != "" {
			return path, nil
		}
	}
	return "", nil
}

var _ ActiveEnvironmentHost = EnvHost{}
