package pyenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"sciview/internal/pyexec"
)

// InterpreterResolver picks the interpreter for a cycle.
type InterpreterResolver interface {
	Resolve(ctx context.Context) (InterpreterCandidate, error)
}

// Versioner is optionally implemented by a Checker to report the interpreter
// version for display.
type Versioner interface {
	Version(ctx context.Context, path string) (string, error)
}

// cycle is the shared handle for an in-flight initialization. done is closed
// once info is final.
type cycle struct {
	done chan struct{}
	info EnvironmentInfo
}

// Manager owns the readiness state machine. It runs at most one
// initialization cycle at a time; concurrent callers join the running cycle
// and observe its result.
type Manager struct {
	resolver InterpreterResolver
	checker  Checker
	packages PackageSets
	logger   logrus.FieldLogger

	info atomic.Pointer[EnvironmentInfo]

	mu        sync.Mutex
	inflight  *cycle
	listeners []func(EnvironmentInfo)

	now func() time.Time
}

// NewManager returns a Manager in the not-initialized state.
func NewManager(resolver InterpreterResolver, checker Checker, packages PackageSets, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = discardLogger()
	}
	m := &Manager{
		resolver: resolver,
		checker:  checker,
		packages: packages,
		logger:   logger,
		now:      time.Now,
	}
	m.info.Store(&EnvironmentInfo{State: StateNotInitialized})
	return m
}

// Info returns the current snapshot.
func (m *Manager) Info() EnvironmentInfo {
	return *m.info.Load()
}

// Packages returns the configured package tiers.
func (m *Manager) Packages() PackageSets {
	return m.packages
}

// OnChange registers fn to be called with the final snapshot after every
// completed cycle.
func (m *Manager) OnChange(fn func(EnvironmentInfo)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Initialize runs the first cycle. Once a cycle has completed it returns the
// current snapshot without starting another; use ForceInitialize to
// re-resolve.
func (m *Manager) Initialize(ctx context.Context) (EnvironmentInfo, error) {
	if info := m.Info(); info.State != StateNotInitialized && info.State != StateInitializing {
		return info, info.Err
	}
	return m.run(ctx)
}

// ForceInitialize discards the current interpreter and state and resolves
// from scratch. A call made while a cycle is running joins that cycle.
func (m *Manager) ForceInitialize(ctx context.Context) (EnvironmentInfo, error) {
	return m.run(ctx)
}

// WaitForInitialization blocks while a cycle is in flight. With no cycle
// running it returns immediately, even before the first initialization.
func (m *Manager) WaitForInitialization(ctx context.Context) error {
	m.mu.Lock()
	c := m.inflight
	m.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequireReady waits for any in-flight cycle and returns the interpreter path
// when the environment can run data operations.
func (m *Manager) RequireReady(ctx context.Context) (string, error) {
	if err := m.WaitForInitialization(ctx); err != nil {
		return "", err
	}
	info := m.Info()
	if info.Ready && info.Path != nil {
		return *info.Path, nil
	}
	if info.Err != nil {
		return "", fmt.Errorf("%w: %w", ErrEnvironmentNotReady, info.Err)
	}
	return "", fmt.Errorf("%w (state %s)", ErrEnvironmentNotReady, info.State)
}

func (m *Manager) run(ctx context.Context) (EnvironmentInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	m.mu.Lock()
	c := m.inflight
	if c == nil {
		c = &cycle{done: make(chan struct{})}
		m.inflight = c
		m.info.Store(&EnvironmentInfo{State: StateInitializing})
		// The cycle is shared, so it must outlive the caller that started it.
		go m.complete(context.WithoutCancel(ctx), c)
	} else {
		m.logger.Debug("joining in-flight environment initialization")
	}
	m.mu.Unlock()

	select {
	case <-c.done:
		return c.info, c.info.Err
	case <-ctx.Done():
		return m.Info(), ctx.Err()
	}
}

func (m *Manager) complete(ctx context.Context, c *cycle) {
	info := m.resolveCycle(ctx)

	m.mu.Lock()
	c.info = info
	m.info.Store(&info)
	m.inflight = nil
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	// Listeners run before waiters are released so a caller of
	// ForceInitialize observes their effects. A listener must not wait for
	// a later cycle.
	for _, fn := range listeners {
		fn(info)
	}
	close(c.done)
}

func (m *Manager) resolveCycle(ctx context.Context) EnvironmentInfo {
	started := m.now()
	cand, err := m.resolver.Resolve(ctx)
	if err != nil {
		m.logger.WithError(err).Error("python interpreter resolution failed")
		return EnvironmentInfo{
			State:      StateError,
			Error:      err.Error(),
			Hint:       remediation(err, nil),
			Err:        err,
			ResolvedAt: started,
		}
	}

	path := cand.Path
	source := cand.Source
	info := EnvironmentInfo{
		Initialized: true,
		Path:        &path,
		Source:      &source,
		ResolvedAt:  started,
	}

	if v, ok := m.checker.(Versioner); ok {
		if version, verr := v.Version(ctx, path); verr == nil {
			info.Version = version
		}
	}

	info.Packages = m.checker.CheckPackages(ctx, path, m.packages.All())
	info.MissingCore = info.Packages.Missing(m.packages.Core)
	info.MissingOptional = info.Packages.Missing(m.packages.Optional)

	log := m.logger.WithFields(logrus.Fields{"path": path, "source": source})
	switch {
	case len(info.MissingCore) > 0:
		info.State = StateError
		info.Err = fmt.Errorf("%w: %s", ErrCorePackageMissing, strings.Join(info.MissingCore, ", "))
		info.Error = info.Err.Error()
		info.Hint = remediation(info.Err, info.MissingCore)
		log.WithField("missing", info.MissingCore).Error("core python packages missing")
	case len(info.MissingOptional) > 0:
		info.State = StateReadyWithWarnings
		info.Ready = true
		info.Hint = fmt.Sprintf("Some formats or plotting are unavailable. Install with: sciview env install %s", strings.Join(info.MissingOptional, " "))
		log.WithField("missing", info.MissingOptional).Warn("optional python packages missing")
	default:
		info.State = StateReady
		info.Ready = true
		log.Info("python environment ready")
	}
	return info
}

func remediation(err error, missing []string) string {
	switch {
	case errors.Is(err, ErrNoInterpreterFound):
		return "Install Python 3, activate a virtual environment, set python.path in sciview.yaml, or run: sciview env create"
	case errors.Is(err, ErrCorePackageMissing):
		return fmt.Sprintf("Install the required packages with: sciview env install %s", strings.Join(missing, " "))
	}
	var execErr *pyexec.ExecError
	if errors.As(err, &execErr) && execErr.Hint != "" {
		return execErr.Hint
	}
	return ""
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
