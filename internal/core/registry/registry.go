// Package registry is the type-keyed service locator handed to every
// GameObject and component. Systems are looked up by their concrete type or
// by any interface they implement, so components never reach for globals.
package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
)

type Registry struct {
	mu       sync.RWMutex
	systems  []System
	byType   map[reflect.Type]System
	services map[reflect.Type]any
	shutdown bool
}

func New() *Registry {
	return &Registry{
		byType:   make(map[reflect.Type]System),
		services: make(map[reflect.Type]any),
	}
}

// Register adds a system. Only one system per concrete type is allowed.
// Systems keep registration order within a phase.
func (r *Registry) Register(s System) error {
	if s == nil {
		return ErrNilSystem
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return ErrRegistryShutdown
	}
	t := reflect.TypeOf(s)
	if _, exists := r.byType[t]; exists {
		return fmt.Errorf("%w: %s", ErrSystemExists, t)
	}

	r.byType[t] = s
	r.systems = append(r.systems, s)
	slices.SortStableFunc(r.systems, func(a, b System) int {
		return int(a.Phase()) - int(b.Phase())
	})
	return nil
}

// Systems returns the registered systems in phase order.
func (r *Registry) Systems() []System {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.systems)
}

// Len reports how many systems are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.systems)
}

// Provide registers a non-system service under the static type T, which is
// usually an interface.
func Provide[T any](r *Registry, svc T) error {
	t := reflect.TypeFor[T]()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[t]; exists {
		return fmt.Errorf("%w: %s", ErrServiceExists, t)
	}
	r.services[t] = svc
	return nil
}

// Get resolves T: first a system whose concrete type is exactly T, then a
// provided service keyed by T, then the first system (in phase order) that
// is assignable to T.
func Get[T any](r *Registry) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}

	t := reflect.TypeFor[T]()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.byType[t]; ok {
		return s.(T), true
	}
	if svc, ok := r.services[t]; ok {
		return svc.(T), true
	}
	for _, s := range r.systems {
		if v, ok := s.(T); ok {
			return v, true
		}
	}
	return zero, false
}

// MustGet is Get for systems the caller cannot run without.
func MustGet[T any](r *Registry) T {
	v, ok := Get[T](r)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrSystemNotFound, reflect.TypeFor[T]()))
	}
	return v
}

// Initialize runs every Initializer in phase order and stops at the first error.
func (r *Registry) Initialize(ctx context.Context) error {
	for _, s := range r.Systems() {
		init, ok := s.(Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(ctx, r); err != nil {
			return fmt.Errorf("initialize %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Shutdown runs every Shutdowner in reverse phase order and joins their
// errors. The registry refuses new systems afterwards.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil
	}
	r.shutdown = true
	systems := slices.Clone(r.systems)
	r.mu.Unlock()

	var all error
	for _, s := range slices.Backward(systems) {
		sd, ok := s.(Shutdowner)
		if !ok {
			continue
		}
		if err := sd.Shutdown(ctx); err != nil {
			all = errors.Join(all, fmt.Errorf("shutdown %s: %w", s.Name(), err))
		}
	}
	return all
}
