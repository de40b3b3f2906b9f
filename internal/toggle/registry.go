package toggle

import (
	"context"
	"log/slog"
	"sync"
)

// EntityApplyFunc sends the desired value for entity id.
type EntityApplyFunc func(ctx context.Context, id string, desired bool) error

// EntityListener observes state changes of any toggle in a registry.
type EntityListener func(id string, state State, phase Phase)

// Registry keeps one Toggle per entity id so single-flight holds across callers.
type Registry struct {
	mu        sync.Mutex
	kind      string
	apply     EntityApplyFunc
	toggles   map[string]*Toggle
	listeners []EntityListener
	logger    *slog.Logger
}

// NewRegistry creates a registry for kind (like, follow).
func NewRegistry(kind string, apply EntityApplyFunc, logger *slog.Logger) *Registry {
	return &Registry{
		kind:    kind,
		apply:   apply,
		toggles: make(map[string]*Toggle),
		logger:  logger,
	}
}

// Get returns the toggle for id, creating it at initial if it is new.
func (r *Registry) Get(id string, initial State) *Toggle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.toggles[id]; ok {
		return t
	}
	t := New(r.kind, id, initial, func(ctx context.Context, desired bool) error {
		return r.apply(ctx, id, desired)
	}, r.logger)
	t.OnChange(func(state State, phase Phase) {
		r.notify(id, state, phase)
	})
	r.toggles[id] = t
	return t
}

// OnChange registers l for changes of every toggle in the registry.
func (r *Registry) OnChange(l EntityListener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

func (r *Registry) notify(id string, state State, phase Phase) {
	r.mu.Lock()
	listeners := append([]EntityListener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l(id, state, phase)
	}
}

// Lookup returns the toggle for id if one exists.
func (r *Registry) Lookup(id string) (*Toggle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.toggles[id]
	return t, ok
}

// Len returns the number of tracked entities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toggles)
}
