package scene

import (
	"reflect"

	"github.com/zeusync/engine/internal/core/registry"
)

// Component is a unit of behavior attached to exactly one GameObject.
// Concrete components embed BaseComponent and implement any of the hook
// interfaces below; capability interfaces (render items, colliders, ...)
// are discovered with GetComponentsByInterface.
//
// A component must not be added to a second GameObject while it is still
// attached to the first.
type Component interface {
	// GameObject returns the owner, or nil while detached.
	GameObject() *GameObject
	// AttachToGameObject is called once per attachment, after the component
	// has been stored on owner.
	AttachToGameObject(owner *GameObject, reg *registry.Registry)
	// InternalRemoved is called once per detachment, including owner
	// destruction. It must tolerate being called without a prior attach.
	InternalRemoved(reg *registry.Registry)
	// HierarchyEnabledStateChanged is called whenever the owner's effective
	// enabled state flips.
	HierarchyEnabledStateChanged()
}

// AttachHook is implemented by components that acquire resources on attach.
type AttachHook interface {
	OnAttached(reg *registry.Registry)
}

// RemoveHook is implemented by components that release resources when they
// are removed or their owner is destroyed. The owner is still set while the
// hook runs.
type RemoveHook interface {
	OnRemoved(reg *registry.Registry)
}

// EnabledHook observes the owner's effective enabled state.
type EnabledHook interface {
	OnHierarchyEnabledChanged(enabled bool)
}

// BaseComponent carries the owner bookkeeping every component needs.
type BaseComponent struct {
	owner    *GameObject
	registry *registry.Registry
}

func (b *BaseComponent) GameObject() *GameObject { return b.owner }

// Transform is a shortcut to the owner's transform.
func (b *BaseComponent) Transform() *Transform {
	if b.owner == nil {
		return nil
	}
	return b.owner.transform
}

// Registry returns the owner's current registry, falling back to the one
// handed over at attach time.
func (b *BaseComponent) Registry() *registry.Registry {
	if b.owner != nil && b.owner.registry != nil {
		return b.owner.registry
	}
	return b.registry
}

// EnabledInHierarchy reports the owner's effective state; false while detached.
func (b *BaseComponent) EnabledInHierarchy() bool {
	return b.owner != nil && b.owner.EnabledInHierarchy()
}

func (b *BaseComponent) AttachToGameObject(owner *GameObject, reg *registry.Registry) {
	b.owner = owner
	b.registry = reg
}

func (b *BaseComponent) InternalRemoved(*registry.Registry) {
	b.owner = nil
	b.registry = nil
}

func (b *BaseComponent) HierarchyEnabledStateChanged() {}

func attach(c Component, owner *GameObject, reg *registry.Registry) {
	c.AttachToGameObject(owner, reg)
	if h, ok := c.(AttachHook); ok {
		h.OnAttached(reg)
	}
}

func detach(c Component, reg *registry.Registry) {
	if h, ok := c.(RemoveHook); ok {
		h.OnRemoved(reg)
	}
	c.InternalRemoved(reg)
}

func notifyEnabled(c Component, enabled bool) {
	c.HierarchyEnabledStateChanged()
	if h, ok := c.(EnabledHook); ok {
		h.OnHierarchyEnabledChanged(enabled)
	}
}

// isNil catches typed nil pointers hidden in a non-nil interface.
func isNil(c Component) bool {
	if c == nil {
		return true
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
