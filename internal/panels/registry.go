package panels

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Loader fetches and renders a panel's data. A non-nil error marks the panel
// as errored.
type Loader func(ctx context.Context) error

// Panel is one registered consumer.
type Panel struct {
	ID   uuid.UUID
	Name string

	load Loader

	mu        sync.Mutex
	errored   bool
	lastErr   error
	onError   func(error)
	onSuccess func()
}

// RegisterErrorCallback sets the callbacks invoked after each load attempt.
// Either may be nil.
func (p *Panel) RegisterErrorCallback(onError func(error), onSuccess func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = onError
	p.onSuccess = onSuccess
}

// Load runs the panel's loader and records the outcome.
func (p *Panel) Load(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panel %s: loader panicked: %v", p.Name, r)
		}
		p.report(err)
	}()
	return p.load(ctx)
}

// Errored reports whether the last load failed.
func (p *Panel) Errored() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errored
}

// LastError returns the error from the last failed load, or nil.
func (p *Panel) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Panel) report(err error) {
	p.mu.Lock()
	p.errored = err != nil
	p.lastErr = err
	onError, onSuccess := p.onError, p.onSuccess
	p.mu.Unlock()

	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	if onSuccess != nil {
		onSuccess()
	}
}

// Registry holds the live panels in registration order. It is owned by the
// application and passed to the Dispatcher.
type Registry struct {
	mu     sync.RWMutex
	panels []*Panel
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a panel backed by loader. The panel starts out not errored;
// callers run the first Load themselves.
func (r *Registry) Register(name string, loader Loader) *Panel {
	if loader == nil {
		loader = func(context.Context) error { return nil }
	}
	p := &Panel{ID: uuid.New(), Name: name, load: loader}
	r.mu.Lock()
	r.panels = append(r.panels, p)
	r.mu.Unlock()
	return p
}

// Unregister removes the panel with id. Unknown ids are ignored.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.panels {
		if p.ID == id {
			r.panels = append(r.panels[:i], r.panels[i+1:]...)
			return
		}
	}
}

// Get returns the panel with id.
func (r *Registry) Get(id uuid.UUID) (*Panel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.panels {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Panels returns a copy of the registered panels.
func (r *Registry) Panels() []*Panel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Panel(nil), r.panels...)
}

// Errored returns the panels whose last load failed.
func (r *Registry) Errored() []*Panel {
	var out []*Panel
	for _, p := range r.Panels() {
		if p.Errored() {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of registered panels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.panels)
}
