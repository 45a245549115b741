// Package app wires configuration, logging and the Python environment
// lifecycle into one value shared by the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"sciview/internal/config"
	"sciview/internal/dataset"
	"sciview/internal/logx"
	"sciview/internal/panels"
	"sciview/internal/paths"
	"sciview/internal/pyenv"
	"sciview/internal/pyexec"
)

// Options controls how New builds an App.
type Options struct {
	ProjectDir string
	ConfigFile string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// Host is handed to the resolver; it defaults to pyenv.EnvHost.
	Host any
	// Runner defaults to a pyexec.CmdRunner that forwards stderr to the logger.
	Runner pyexec.Runner
	// LogWriter sends log records to w instead of a file under the logs dir.
	LogWriter io.Writer
	// ManagedEnvDir overrides the user-level managed environment location.
	ManagedEnvDir string
}

// App holds the long-lived services of a sciview session.
type App struct {
	Paths      paths.ProjectPaths
	Logger     *logrus.Logger
	Runner     pyexec.Runner
	Panels     *panels.Registry
	Dispatcher *panels.Dispatcher
	Installer  *pyenv.Installer
	ManagedEnv pyenv.ManagedEnv

	ctx    context.Context
	host   any
	closer io.Closer
	relay  *probeRelay

	mu      sync.RWMutex
	cfg     config.Config
	manager atomic.Pointer[pyenv.Manager]
	dataset atomic.Pointer[dataset.Service]
}

// New loads the configuration and builds every service. ctx scopes panel
// reloads triggered by environment changes.
func New(ctx context.Context, opts Options) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pp, err := paths.Resolve(opts.ProjectDir)
	if err != nil {
		return nil, err
	}
	pp = pp.WithConfigFile(opts.ConfigFile)

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)

	var (
		logger *logrus.Logger
		closer io.Closer
	)
	if opts.LogWriter != nil {
		logger = logx.NewWriter(opts.LogWriter, cfg.Log.Level)
	} else {
		logger, closer, err = logx.New(pp, cfg.Log.Level)
		if err != nil {
			return nil, err
		}
	}

	runner := opts.Runner
	if runner == nil {
		runner = pyexec.CmdRunner{Sink: logger}
	}

	envDir := opts.ManagedEnvDir
	if envDir == "" {
		envDir, err = paths.ManagedEnvDir()
		if err != nil {
			logger.WithError(err).Warn("user data dir unavailable, keeping managed env in the project")
			envDir = filepath.Join(pp.MetaDir, "python-env")
		}
	}

	host := opts.Host
	if host == nil {
		host = pyenv.EnvHost{Getenv: getenv}
	}

	registry := panels.NewRegistry()
	a := &App{
		Paths:      pp,
		Logger:     logger,
		Runner:     runner,
		Panels:     registry,
		Dispatcher: panels.NewDispatcher(registry, logger),
		Installer:  &pyenv.Installer{Runner: runner, Logger: logger},
		ManagedEnv: pyenv.ManagedEnv{Dir: envDir, Runner: runner},
		ctx:        ctx,
		host:       host,
		closer:     closer,
		relay:      &probeRelay{},
		cfg:        cfg,
	}
	a.manager.Store(a.newManager(cfg))
	a.dataset.Store(a.newDataset(cfg))

	logger.WithFields(logrus.Fields{
		"project": pp.Root,
		"config":  pp.ConfigFile,
	}).Debug("sciview session started")
	return a, nil
}

// Close releases the log file.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Config returns the active configuration.
func (a *App) Config() config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Manager returns the current readiness state machine.
func (a *App) Manager() *pyenv.Manager {
	return a.manager.Load()
}

// Dataset returns the current data operation service.
func (a *App) Dataset() *dataset.Service {
	return a.dataset.Load()
}

// Info returns the current environment snapshot.
func (a *App) Info() pyenv.EnvironmentInfo {
	return a.Manager().Info()
}

// RequireReady delegates to the current manager.
func (a *App) RequireReady(ctx context.Context) (string, error) {
	return a.Manager().RequireReady(ctx)
}

// Initialize runs the first initialization cycle.
func (a *App) Initialize(ctx context.Context) (pyenv.EnvironmentInfo, error) {
	return a.Manager().Initialize(ctx)
}

// ForceInitialize re-resolves the interpreter from scratch.
func (a *App) ForceInitialize(ctx context.Context) (pyenv.EnvironmentInfo, error) {
	return a.Manager().ForceInitialize(ctx)
}

// SetProbeObserver routes package probe events to obs. A nil obs detaches
// the current observer.
func (a *App) SetProbeObserver(obs pyenv.ProbeObserver) {
	a.relay.set(obs)
}

// Reload applies cfg. When interpreter selection or the package tiers
// changed, a fresh manager replaces the current one and is force
// initialized; reinitialized reports whether that happened.
func (a *App) Reload(ctx context.Context, cfg config.Config) (reinitialized bool, err error) {
	a.mu.Lock()
	previous := a.cfg
	a.cfg = cfg
	a.mu.Unlock()

	a.Logger.SetLevel(logx.ParseLevel(cfg.Log.Level))
	a.dataset.Store(a.newDataset(cfg))

	if !previous.PythonChanged(cfg) {
		a.Logger.Debug("configuration reloaded, python settings unchanged")
		return false, nil
	}
	a.Logger.Info("python settings changed, re-initializing environment")
	a.manager.Store(a.newManager(cfg))
	_, err = a.ForceInitialize(ctx)
	return true, err
}

// InstallPackages installs packages into the resolved interpreter and
// re-initializes. With no packages it installs everything the last cycle
// reported missing.
func (a *App) InstallPackages(ctx context.Context, packages []string) ([]string, pyenv.EnvironmentInfo, error) {
	info, _ := a.Initialize(ctx)
	python := info.PathValue()
	if python == "" {
		return nil, info, fmt.Errorf("install packages: %w", pyenv.ErrNoInterpreterFound)
	}
	if len(packages) == 0 {
		packages = append(append([]string(nil), info.MissingCore...), info.MissingOptional...)
	}
	if len(packages) == 0 {
		return nil, info, nil
	}

	if err := a.Installer.Install(ctx, python, packages); err != nil {
		return packages, info, err
	}
	info, err := a.ForceInitialize(ctx)
	return packages, info, err
}

// CreateManagedEnv creates the managed environment, enables it, and
// re-initializes. The interpreter from the current cycle, if any, seeds the
// environment.
func (a *App) CreateManagedEnv(ctx context.Context) (string, pyenv.EnvironmentInfo, error) {
	var base string
	if info, _ := a.Initialize(ctx); info.PathValue() != "" {
		base = info.PathValue()
	}

	python, err := a.ManagedEnv.Create(ctx, base)
	if err != nil {
		if errors.Is(err, pyenv.ErrNoInterpreterFound) {
			return "", a.Info(), fmt.Errorf("create managed env: no base interpreter and uv is not installed: %w", err)
		}
		return "", a.Info(), err
	}
	a.Logger.WithField("python", python).Info("managed environment ready")

	cfg := a.Config()
	cfg.Python.UseManagedEnv = true
	reinitialized, err := a.Reload(ctx, cfg)
	if !reinitialized {
		_, err = a.ForceInitialize(ctx)
	}
	return python, a.Info(), err
}

func (a *App) newManager(cfg config.Config) *pyenv.Manager {
	prober := pyenv.NewProber(a.Runner)
	prober.VersionTimeout = cfg.Python.ProbeTimeout
	prober.PackageTimeout = cfg.Python.PackageTimeout
	prober.Observer = a.relay

	resolver := pyenv.NewResolver(pyenv.ResolverConfig{
		OverridePath:    cfg.Python.Path,
		UseManagedEnv:   cfg.Python.UseManagedEnv,
		ManagedEnvDir:   a.ManagedEnv.Dir,
		AutoDetectVenvs: cfg.Python.AutoDetectEnabled(),
		WorkspaceRoots:  []string{a.Paths.Root},
	}, prober, a.host, a.Logger)

	m := pyenv.NewManager(resolver, prober, pyenv.PackageSets{
		Core:     cfg.Packages.Core,
		Optional: cfg.Packages.Optional,
	}, a.Logger)
	m.OnChange(a.Dispatcher.EnvironmentListener(a.ctx))
	return m
}

func (a *App) newDataset(cfg config.Config) *dataset.Service {
	return &dataset.Service{
		Env:         a,
		Runner:      a.Runner,
		ScriptsDir:  cfg.ScriptsDirPath(a.Paths.Root),
		PlotTimeout: cfg.Plot.Timeout,
		PlotStyle:   cfg.Plot.Style,
		Logger:      a.Logger,
	}
}

var _ dataset.Environment = (*App)(nil)

// probeRelay forwards probe events to a swappable observer.
type probeRelay struct {
	mu  sync.RWMutex
	obs pyenv.ProbeObserver
}

func (r *probeRelay) set(obs pyenv.ProbeObserver) {
	r.mu.Lock()
	r.obs = obs
	r.mu.Unlock()
}

func (r *probeRelay) ProbeStarted(pkg string) {
	r.mu.RLock()
	obs := r.obs
	r.mu.RUnlock()
	if obs != nil {
		obs.ProbeStarted(pkg)
	}
}

func (r *probeRelay) ProbeFinished(pkg string, available bool) {
	r.mu.RLock()
	obs := r.obs
	r.mu.RUnlock()
	if obs != nil {
		obs.ProbeFinished(pkg, available)
	}
}
