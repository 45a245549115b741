package panels

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"sciview/internal/pyenv"
)

// Dispatcher reloads errored panels.
type Dispatcher struct {
	registry *Registry
	logger   logrus.FieldLogger

	mu sync.Mutex
	// running is set while a refresh pass is in progress. A refresh
	// requested meanwhile sets pending and returns at once; the running
	// pass then makes one more sweep.
	running bool
	pending bool
}

// NewDispatcher returns a Dispatcher over registry.
func NewDispatcher(registry *Registry, logger logrus.FieldLogger) *Dispatcher {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// RefreshErroredConsumers re-runs Load on every panel currently flagged as
// errored and returns how many were reloaded. Only the flag is consulted.
// With no errored panels it does nothing. A call made while another refresh
// is running does not wait for it: it returns 0 and the running refresh
// sweeps the registry again before finishing.
func (d *Dispatcher) RefreshErroredConsumers(ctx context.Context) int {
	d.mu.Lock()
	if d.running {
		d.pending = true
		d.mu.Unlock()
		d.logger.Debug("panel refresh already running, coalescing")
		return 0
	}
	d.running = true
	d.mu.Unlock()

	reloaded := 0
	for {
		reloaded += d.sweep(ctx)

		d.mu.Lock()
		if !d.pending || ctx.Err() != nil {
			d.running, d.pending = false, false
			d.mu.Unlock()
			return reloaded
		}
		d.pending = false
		d.mu.Unlock()
	}
}

func (d *Dispatcher) sweep(ctx context.Context) int {
	errored := d.registry.Errored()
	if len(errored) == 0 {
		return 0
	}
	d.logger.WithField("count", len(errored)).Info("reloading errored panels")

	reloaded := 0
	for _, p := range errored {
		if ctx.Err() != nil {
			break
		}
		// The flag may have cleared while an earlier panel was loading.
		if !p.Errored() {
			continue
		}
		reloaded++
		if err := p.Load(ctx); err != nil {
			d.logger.WithFields(logrus.Fields{"panel": p.Name, "id": p.ID}).WithError(err).Warn("panel reload failed")
		}
	}
	return reloaded
}

// EnvironmentListener returns a callback for pyenv.Manager.OnChange that
// refreshes errored panels whenever the environment becomes ready.
func (d *Dispatcher) EnvironmentListener(ctx context.Context) func(pyenv.EnvironmentInfo) {
	return func(info pyenv.EnvironmentInfo) {
		if !info.Ready {
			return
		}
		d.RefreshErroredConsumers(ctx)
	}
}
