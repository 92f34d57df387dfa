// Package registry owns the set of loaded model adapters and the single
// "active" selection that serves prediction traffic. The mapping is
// populated once at startup and never changes afterwards; only the active
// pointer mutates, through a single atomic swap.
package registry

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/modguard-io/modguard/internal/domain/entity"
	"github.com/modguard-io/modguard/internal/domain/service"
)

// Error definitions for registry operations
var (
	ErrUnknownModel  = errors.New("unknown model")
	ErrNoModelLoaded = errors.New("no model loaded")
	ErrDuplicateName = errors.New("duplicate model name")
)

// Descriptor pairs a registered name with its loaded predictor. Descriptors
// are immutable once registered.
type Descriptor struct {
	Name      string
	Kind      entity.ModelKind
	Predictor service.Predictor
}

// Info returns the client-facing description of this model.
func (d *Descriptor) Info() entity.ModelInfo {
	labels := d.Predictor.Labels()
	return entity.ModelInfo{
		Name:       d.Name,
		Kind:       d.Kind,
		Labels:     labels,
		NumClasses: len(labels),
	}
}

// Registry maps model names to descriptors and tracks the active one.
// Register is startup-only; Active, SetActive and Names are safe to call
// concurrently with each other once registration is done.
type Registry struct {
	entries map[string]*Descriptor
	order   []string
	active  atomic.Pointer[Descriptor]
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Descriptor)}
}

// Register adds a loaded predictor under name. The first registered model
// becomes active. Names must be unique.
func (r *Registry) Register(name string, kind entity.ModelKind, p service.Predictor) error {
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	d := &Descriptor{Name: name, Kind: kind, Predictor: p}
	r.entries[name] = d
	r.order = append(r.order, name)
	if r.active.Load() == nil {
		r.active.Store(d)
	}
	return nil
}

// Active returns the descriptor currently serving traffic, or an error when
// nothing has been registered.
func (r *Registry) Active() (*Descriptor, error) {
	d := r.active.Load()
	if d == nil {
		return nil, ErrNoModelLoaded
	}
	return d, nil
}

// SetActive atomically repoints the active selection. An unknown name
// leaves the current selection untouched.
func (r *Registry) SetActive(name string) error {
	d, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	r.active.Store(d)
	return nil
}

// Get looks up a descriptor by name.
func (r *Registry) Get(name string) (*Descriptor, error) {
	d, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return d, nil
}

// Names returns all registered model names in registration order. The order
// is stable for the lifetime of the process.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.entries)
}
