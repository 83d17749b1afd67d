// Package alert fans drift alerts out to registered sinks.
package alert

import (
	"fmt"
	"sync"

	"github.com/verdictlabs/verdict/internal/core"
)

// Sink delivers drift alerts to one destination.
type Sink interface {
	// Name returns the unique identifier for this sink
	Name() string

	// Send delivers a single alert
	Send(alert core.DriftAlert) error
}

// Registry manages alert sinks.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewRegistry creates an empty sink registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Register adds a sink to the registry.
func (r *Registry) Register(s Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.sinks[name]; exists {
		return fmt.Errorf("alert sink %s already registered", name)
	}
	r.sinks[name] = s
	return nil
}

// Get retrieves a sink by name.
func (r *Registry) Get(name string) (Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.sinks[name]
	if !exists {
		return nil, fmt.Errorf("alert sink %s not found", name)
	}
	return s, nil
}

// NotifyAll sends an alert to every registered sink, returning the
// per-sink failures. A failing sink never blocks the others.
func (r *Registry) NotifyAll(alert core.DriftAlert) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errors := make(map[string]error)
	for name, s := range r.sinks {
		if err := s.Send(alert); err != nil {
			errors[name] = err
		}
	}
	return errors
}
