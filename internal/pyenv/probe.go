package pyenv

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sciview/internal/pyexec"
)

const (
	DefaultVersionTimeout = 5 * time.Second
	DefaultPackageTimeout = 10 * time.Second
	defaultProbeLimit     = 4
)

// Checker validates interpreters and probes package availability.
type Checker interface {
	ValidateInterpreter(ctx context.Context, path string) bool
	CheckPackages(ctx context.Context, path string, names []string) PackageAvailabilityMap
}

// ProbeObserver is notified as individual package probes start and finish.
// Calls may arrive from several goroutines.
type ProbeObserver interface {
	ProbeStarted(pkg string)
	ProbeFinished(pkg string, available bool)
}

// Prober implements Checker by running short-lived interpreter processes.
type Prober struct {
	Runner         pyexec.Runner
	VersionTimeout time.Duration
	PackageTimeout time.Duration
	// Limit caps concurrently running package probes.
	Limit    int
	Observer ProbeObserver
}

// NewProber returns a Prober with default timeouts.
func NewProber(runner pyexec.Runner) *Prober {
	if runner == nil {
		runner = pyexec.CmdRunner{}
	}
	return &Prober{
		Runner:         runner,
		VersionTimeout: DefaultVersionTimeout,
		PackageTimeout: DefaultPackageTimeout,
		Limit:          defaultProbeLimit,
	}
}

// ValidateInterpreter reports whether path answers --version with exit 0
// within the version timeout. All failures resolve to false.
func (p *Prober) ValidateInterpreter(ctx context.Context, path string) bool {
	_, err := p.Version(ctx, path)
	return err == nil
}

// Version returns the interpreter's version line, e.g. "Python 3.12.1".
func (p *Prober) Version(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", pyexec.ErrEmptyExecutable
	}
	out, err := p.Runner.Run(ctx, path, []string{"--version"}, pyexec.Options{Timeout: p.versionTimeout()})
	if err != nil {
		if pyexec.KindOf(err) == pyexec.KindTimeout {
			return "", fmt.Errorf("%s: %w", path, ErrValidationTimeout)
		}
		return "", err
	}
	// Python 2 printed the version on stderr.
	version := firstLine(out.Text)
	if version == "" {
		version = firstLine(strings.TrimSpace(string(out.Stderr)))
	}
	return version, nil
}

// CheckPackages probes every name in its own process. The returned map holds
// exactly one entry per distinct name and is only returned once every probe
// has settled.
func (p *Prober) CheckPackages(ctx context.Context, path string, names []string) PackageAvailabilityMap {
	results := make([]bool, len(names))

	var g errgroup.Group
	g.SetLimit(p.limit())
	for i, name := range names {
		g.Go(func() error {
			results[i] = p.checkPackage(ctx, path, name)
			return nil
		})
	}
	_ = g.Wait()

	availability := make(PackageAvailabilityMap, len(names))
	for i, name := range names {
		availability[name] = results[i]
	}
	return availability
}

func (p *Prober) checkPackage(ctx context.Context, path, name string) (available bool) {
	if p.Observer != nil {
		p.Observer.ProbeStarted(name)
		defer func() { p.Observer.ProbeFinished(name, available) }()
	}
	script, ok := PackageProbeScript(name)
	if !ok {
		return false
	}
	_, err := p.Runner.Run(ctx, path, []string{"-c", script}, pyexec.Options{Timeout: p.packageTimeout()})
	return err == nil
}

var packageNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// PackageProbeScript returns the -c program that exits 0 when name can be
// found by importlib. Names that are not valid module paths are rejected so
// they are never interpolated into Python source.
func PackageProbeScript(name string) (string, bool) {
	if !packageNameRegex.MatchString(name) {
		return "", false
	}
	return fmt.Sprintf("from importlib.util import find_spec; exit(1 if find_spec('%s') is None else 0)", name), true
}

func (p *Prober) versionTimeout() time.Duration {
	if p.VersionTimeout > 0 {
		return p.VersionTimeout
	}
	return DefaultVersionTimeout
}

func (p *Prober) packageTimeout() time.Duration {
	if p.PackageTimeout > 0 {
		return p.PackageTimeout
	}
	return DefaultPackageTimeout
}

func (p *Prober) limit() int {
	if p.Limit > 0 {
		return p.Limit
	}
	return defaultProbeLimit
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return strings.TrimSpace(text)
}

var _ Checker = (*Prober)(nil)
