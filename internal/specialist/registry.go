package specialist

import (
	"sync"

	"github.com/verdictlabs/verdict/internal/core"
)

// Registry holds registered specialists keyed by kind.
type Registry struct {
	mu          sync.RWMutex
	specialists map[core.SpecialistKind]Specialist
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specialists: make(map[core.SpecialistKind]Specialist),
	}
}

// Register adds a specialist. A later registration for the same kind
// replaces the earlier one.
func (r *Registry) Register(s Specialist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specialists[s.Kind()] = s
}

// Get retrieves a specialist by kind.
func (r *Registry) Get(kind core.SpecialistKind) (Specialist, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specialists[kind]
	return s, ok
}

// Enabled returns the registered specialists the task requested, in
// dispatch order.
func (r *Registry) Enabled(task core.AnalysisTask) []Specialist {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Specialist
	for _, kind := range core.AllSpecialistKinds {
		if !task.Wants(kind) {
			continue
		}
		if s, ok := r.specialists[kind]; ok {
			out = append(out, s)
		}
	}
	return out
}
