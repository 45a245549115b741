package pyenv

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// ResolverConfig holds the user inputs to the resolution chain.
type ResolverConfig struct {
	// OverridePath is an explicitly configured interpreter.
	OverridePath string
	// UseManagedEnv enables the environment owned by sciview.
	UseManagedEnv bool
	ManagedEnvDir string
	// AutoDetectVenvs enables scanning WorkspaceRoots.
	AutoDetectVenvs bool
	WorkspaceRoots  []string
	// SystemCandidates overrides DefaultSystemCandidates when non-empty.
	SystemCandidates []string
}

// DefaultSystemCandidates lists the fallback interpreters tried last.
func DefaultSystemCandidates() []string {
	if runtime.GOOS == "windows" {
		return []string{"python", "py", "python3"}
	}
	return []string{
		"python3",
		"python",
		"py",
		"/usr/bin/python3",
		"/usr/local/bin/python3",
		"/opt/homebrew/bin/python3",
	}
}

// Resolver picks an interpreter from the configured sources in priority
// order: override, managed environment, host integration, detected workspace
// environments, system.
type Resolver struct {
	cfg      ResolverConfig
	checker  Checker
	host     any
	logger   logrus.FieldLogger
	lookPath func(string) (string, error)
}

// NewResolver builds a Resolver. host may implement any of the host
// interfaces in this package, or be nil.
func NewResolver(cfg ResolverConfig, checker Checker, host any, logger logrus.FieldLogger) *Resolver {
	if logger == nil {
		logger = discardLogger()
	}
	return &Resolver{
		cfg:      cfg,
		checker:  checker,
		host:     host,
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

// Resolve walks the chain and returns the first validated candidate, or
// ErrNoInterpreterFound.
func (r *Resolver) Resolve(ctx context.Context) (InterpreterCandidate, error) {
	steps := []func(context.Context) (InterpreterCandidate, bool){
		r.fromOverride,
		r.fromManagedEnv,
		r.fromHost,
		r.fromWorkspace,
		r.fromSystem,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return InterpreterCandidate{}, err
		}
		if cand, ok := step(ctx); ok {
			r.logger.WithFields(logrus.Fields{"path": cand.Path, "source": cand.Source}).Info("resolved python interpreter")
			return cand, nil
		}
	}
	return InterpreterCandidate{}, ErrNoInterpreterFound
}

func (r *Resolver) fromOverride(ctx context.Context) (InterpreterCandidate, bool) {
	path := strings.TrimSpace(r.cfg.OverridePath)
	if path == "" {
		return InterpreterCandidate{}, false
	}
	if !r.checker.ValidateInterpreter(ctx, path) {
		r.logger.WithField("path", path).Warn("configured python.path is not a working interpreter; trying other sources")
		return InterpreterCandidate{}, false
	}
	return InterpreterCandidate{Path: path, Source: SourceOverride, Valid: true}, true
}

func (r *Resolver) fromManagedEnv(ctx context.Context) (InterpreterCandidate, bool) {
	if !r.cfg.UseManagedEnv || strings.TrimSpace(r.cfg.ManagedEnvDir) == "" {
		return InterpreterCandidate{}, false
	}
	// Checked on every call; the environment may have been deleted.
	path := findInterpreter(r.cfg.ManagedEnvDir)
	if path == "" {
		r.logger.WithField("dir", r.cfg.ManagedEnvDir).Debug("managed environment not present")
		return InterpreterCandidate{}, false
	}
	if !r.checker.ValidateInterpreter(ctx, path) {
		r.logger.WithField("path", path).Warn("managed environment interpreter failed validation")
		return InterpreterCandidate{}, false
	}
	return InterpreterCandidate{Path: path, Source: SourceManaged, Valid: true}, true
}

func (r *Resolver) fromHost(ctx context.Context) (InterpreterCandidate, bool) {
	for _, strategy := range HostStrategies(r.host) {
		path, ok := strategy.Probe(ctx)
		if !ok {
			continue
		}
		log := r.logger.WithFields(logrus.Fields{"strategy": strategy.Name, "path": path})
		if !r.checker.ValidateInterpreter(ctx, path) {
			log.Warn("host interpreter failed validation")
			continue
		}
		log.Debug("host reported interpreter")
		return InterpreterCandidate{Path: path, Source: SourceHostAPI, Valid: true}, true
	}
	return InterpreterCandidate{}, false
}

func (r *Resolver) fromWorkspace(ctx context.Context) (InterpreterCandidate, bool) {
	if !r.cfg.AutoDetectVenvs {
		return InterpreterCandidate{}, false
	}
	for _, venv := range DetectWorkspaceVenvs(r.cfg.WorkspaceRoots) {
		if !r.checker.ValidateInterpreter(ctx, venv.Interpreter) {
			continue
		}
		return InterpreterCandidate{Path: venv.Interpreter, Source: SourceDetectedVenv, Valid: true, Kind: venv.Kind}, true
	}
	return InterpreterCandidate{}, false
}

func (r *Resolver) fromSystem(ctx context.Context) (InterpreterCandidate, bool) {
	candidates := r.cfg.SystemCandidates
	if len(candidates) == 0 {
		candidates = DefaultSystemCandidates()
	}
	for _, name := range candidates {
		path := name
		if !filepath.IsAbs(name) {
			resolved, err := r.lookPath(name)
			if err != nil {
				continue
			}
			path = resolved
		} else if _, err := os.Stat(name); err != nil {
			continue
		}
		if r.checker.ValidateInterpreter(ctx, path) {
			return InterpreterCandidate{Path: path, Source: SourceSystem, Valid: true}, true
		}
	}
	return InterpreterCandidate{}, false
}
