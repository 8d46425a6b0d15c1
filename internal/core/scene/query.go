package scene

import (
	"iter"
	"reflect"
)

// Component lookups. Buckets are keyed by concrete type, so an exact lookup
// is a single map access; anything else scans the buckets in creation order.
// Every bucket holds one concrete type, which makes its first element
// representative for assignability.

// GetComponent returns the first component stored under exactly T, or else
// the first component, in bucket order, assignable to T.
func GetComponent[T any](g *GameObject) (T, bool) {
	if list := g.buckets[reflect.TypeFor[T]()]; len(list) > 0 {
		if v, ok := list[0].(T); ok {
			return v, true
		}
	}
	for _, key := range g.order {
		if v, ok := g.buckets[key][0].(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// GetComponentOfType is GetComponent for a type only known at runtime.
func (g *GameObject) GetComponentOfType(t reflect.Type) (Component, bool) {
	if t == nil {
		return nil, false
	}
	if list := g.buckets[t]; len(list) > 0 {
		return list[0], true
	}
	for _, key := range g.order {
		if key.AssignableTo(t) {
			return g.buckets[key][0], true
		}
	}
	return nil, false
}

// GetComponents yields the exact bucket of T, then every other bucket whose
// components are assignable to T. Each call to the returned sequence
// enumerates afresh.
func GetComponents[T any](g *GameObject) iter.Seq[T] {
	return func(yield func(T) bool) {
		exact := reflect.TypeFor[T]()
		for _, c := range g.buckets[exact] {
			if !yield(c.(T)) {
				return
			}
		}
		for _, key := range g.order {
			list := g.buckets[key]
			if key == exact {
				continue
			}
			if _, ok := list[0].(T); !ok {
				continue
			}
			for _, c := range list {
				if !yield(c.(T)) {
					return
				}
			}
		}
	}
}

// GetComponentsByInterface yields every component implementing the
// capability interface T, in bucket order. Results are cached per interface
// until a matching bucket changes.
func GetComponentsByInterface[T any](g *GameObject) iter.Seq[T] {
	iface := reflect.TypeFor[T]()
	if iface.Kind() != reflect.Interface {
		return GetComponents[T](g)
	}
	return func(yield func(T) bool) {
		for _, c := range g.capability(iface) {
			if !yield(c.(T)) {
				return
			}
		}
	}
}

// GetComponentByInterface returns the first component implementing T.
func GetComponentByInterface[T any](g *GameObject) (T, bool) {
	for v := range GetComponentsByInterface[T](g) {
		return v, true
	}
	var zero T
	return zero, false
}

// GetComponentInParent searches strict ancestors, nearest first.
func GetComponentInParent[T any](g *GameObject) (T, bool) {
	for p := g.Parent(); p != nil; p = p.Parent() {
		if v, ok := GetComponent[T](p); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// GetComponentInParentOrSelf searches the ancestors first and falls back to
// g itself.
func GetComponentInParentOrSelf[T any](g *GameObject) (T, bool) {
	if v, ok := GetComponentInParent[T](g); ok {
		return v, true
	}
	return GetComponent[T](g)
}

// GetComponentInChildren searches strict descendants depth-first: each child,
// then that child's subtree, before the next child.
func GetComponentInChildren[T any](g *GameObject) (T, bool) {
	for _, child := range g.Children() {
		if v, ok := GetComponent[T](child); ok {
			return v, true
		}
		if v, ok := GetComponentInChildren[T](child); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// GetComponentInChildrenOfType is GetComponentInChildren for a runtime type.
func (g *GameObject) GetComponentInChildrenOfType(t reflect.Type) (Component, bool) {
	for _, child := range g.Children() {
		if c, ok := child.GetComponentOfType(t); ok {
			return c, true
		}
		if c, ok := child.GetComponentInChildrenOfType(t); ok {
			return c, true
		}
	}
	return nil, false
}

func (g *GameObject) capability(iface reflect.Type) []Component {
	if list, ok := g.capabilities[iface]; ok {
		return list
	}
	var list []Component
	for _, key := range g.order {
		if key.Implements(iface) {
			list = append(list, g.buckets[key]...)
		}
	}
	if g.capabilities == nil {
		g.capabilities = make(map[reflect.Type][]Component)
	}
	g.capabilities[iface] = list
	return list
}
