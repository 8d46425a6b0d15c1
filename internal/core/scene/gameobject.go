// Package scene is the object hierarchy of the engine: GameObjects owning
// typed component buckets and a Transform, hierarchical enabled state, and
// two-phase destruction announced through Signals.
//
// The package is single-threaded by contract. Only id assignment (and
// therefore New) is safe to call from several goroutines; every other
// mutation belongs to the update goroutine.
package scene

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/zeusync/engine/internal/core/registry"
)

// State is the destruction stage of a GameObject.
type State uint8

const (
	StateLive State = iota
	StatePendingDestroy
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StatePendingDestroy:
		return "pending-destroy"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

var transformType = reflect.TypeFor[*Transform]()

type GameObject struct {
	id        uint64
	name      string
	transform *Transform

	// buckets holds components keyed by their dynamic type; order keeps the
	// bucket creation order so lookups are deterministic. Bucket slices are
	// never edited in place on removal, so a running iteration keeps its view.
	buckets map[reflect.Type][]Component
	order   []reflect.Type

	// capabilities caches, per interface type, the components implementing
	// it in bucket order. Entries are dropped when a matching bucket changes.
	capabilities map[reflect.Type][]Component

	registry *registry.Registry
	signals  *Signals

	enabled            bool
	enabledInHierarchy bool

	state      State
	committing bool
	onDestroy  []func(*GameObject)
}

type options struct {
	name     string
	registry *registry.Registry
	signals  *Signals
}

type Option func(*options)

func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithSignals routes the object's lifecycle events to s instead of
// DefaultSignals.
func WithSignals(s *Signals) Option {
	return func(o *options) { o.signals = s }
}

// New creates a live, enabled GameObject at the root of the hierarchy with a
// fresh Transform, then announces it on the lifecycle signals.
func New(opts ...Option) *GameObject {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = uuid.NewString()
	}
	if o.signals == nil {
		o.signals = DefaultSignals()
	}

	g := &GameObject{
		id:                 nextID(),
		name:               o.name,
		buckets:            make(map[reflect.Type][]Component),
		registry:           o.registry,
		signals:            o.signals,
		enabled:            true,
		enabledInHierarchy: true,
	}

	t := newTransform()
	t.OnParentChanged(g.onTransformParentChanged)
	g.store(transformType, t)
	attach(t, g, g.registry)
	g.transform = t

	g.signals.publish(EventConstructed, g)
	return g
}

func (g *GameObject) ID() uint64               { return g.id }
func (g *GameObject) Name() string             { return g.name }
func (g *GameObject) SetName(name string)      { g.name = name }
func (g *GameObject) Transform() *Transform    { return g.transform }
func (g *GameObject) State() State             { return g.state }
func (g *GameObject) Signals() *Signals        { return g.signals }
func (g *GameObject) Enabled() bool            { return g.enabled }
func (g *GameObject) EnabledInHierarchy() bool { return g.enabledInHierarchy }

// Registry is the service registry handed to components attached from now on.
func (g *GameObject) Registry() *registry.Registry { return g.registry }

// SetRegistry replaces the registry. Components attached earlier see the new
// one through BaseComponent.Registry.
func (g *GameObject) SetRegistry(r *registry.Registry) { g.registry = r }

// Parent is a shortcut for the owner of the transform's parent.
func (g *GameObject) Parent() *GameObject {
	if p := g.transform.parent; p != nil {
		return p.GameObject()
	}
	return nil
}

// SetParent reparents g under parent, or to the root when parent is nil.
func (g *GameObject) SetParent(parent *GameObject) error {
	if parent == nil {
		return g.transform.SetParent(nil)
	}
	return g.transform.SetParent(parent.transform)
}

// Children returns the owners of the transform's children in order.
func (g *GameObject) Children() []*GameObject {
	out := make([]*GameObject, 0, len(g.transform.children))
	for _, c := range g.transform.children {
		if owner := c.GameObject(); owner != nil {
			out = append(out, owner)
		}
	}
	return out
}

// AddComponent stores c in the bucket of its dynamic type, after any
// existing instances, then attaches it. Several instances of one type are
// allowed.
func (g *GameObject) AddComponent(c Component) error {
	if isNil(c) {
		return ErrNilComponent
	}
	if g.state == StateDestroyed || g.committing {
		return fmt.Errorf("%w: %s", ErrDestroyed, g)
	}
	if owner := c.GameObject(); owner != nil {
		return fmt.Errorf("%w: %T is owned by game object %d", ErrComponentAttached, c, owner.id)
	}

	g.store(reflect.TypeOf(c), c)
	attach(c, g, g.registry)
	return nil
}

// RemoveComponent detaches c and drops it from its bucket. The detach hook
// runs while c is still stored. It reports false, and runs no hook, when c
// is not attached to g.
func (g *GameObject) RemoveComponent(c Component) (bool, error) {
	if isNil(c) {
		return false, ErrNilComponent
	}
	if c == Component(g.transform) {
		return false, ErrTransformRemoval
	}

	t := reflect.TypeOf(c)
	if !slices.Contains(g.buckets[t], c) {
		return false, nil
	}

	detach(c, g.registry)
	g.unstore(t, c)
	return true, nil
}

// RemoveAll detaches and removes every component whose dynamic type is
// exactly T. It returns how many were removed. The transform is never
// removed.
func RemoveAll[T Component](g *GameObject) int {
	t := reflect.TypeFor[T]()
	if t == transformType {
		return 0
	}

	removed := g.buckets[t]
	for _, c := range removed {
		detach(c, g.registry)
	}
	for _, c := range removed {
		g.unstore(t, c)
	}
	return len(removed)
}

// ComponentCount counts every attached component, the transform included.
func (g *GameObject) ComponentCount() int {
	n := 0
	for _, list := range g.buckets {
		n += len(list)
	}
	return n
}

// Components yields every component in bucket order, then insertion order.
func (g *GameObject) Components() iter.Seq[Component] {
	return func(yield func(Component) bool) {
		for _, key := range g.order {
			for _, c := range g.buckets[key] {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// SetEnabled changes the local flag. On change, g and every descendant
// recompute their effective state top-down before SetEnabled returns.
func (g *GameObject) SetEnabled(enabled bool) {
	if g.enabled == enabled {
		return
	}
	g.enabled = enabled
	g.refreshHierarchyEnabled()
}

func (g *GameObject) onTransformParentChanged(_, _, _ *Transform) {
	g.refreshHierarchyEnabled()
}

func (g *GameObject) refreshHierarchyEnabled() {
	parentEnabled := true
	if p := g.Parent(); p != nil {
		parentEnabled = p.enabledInHierarchy
	}

	if state := g.enabled && parentEnabled; state != g.enabledInHierarchy {
		g.enabledInHierarchy = state
		for _, c := range slices.Collect(g.Components()) {
			notifyEnabled(c, state)
		}
	}

	for _, child := range g.transform.children {
		if owner := child.GameObject(); owner != nil {
			owner.refreshHierarchyEnabled()
		}
	}
}

// OnDestroyed registers fn to run when g's destruction is committed, before
// the process-wide destroy_committed signal.
func (g *GameObject) OnDestroyed(fn func(*GameObject)) {
	if fn != nil {
		g.onDestroy = append(g.onDestroy, fn)
	}
}

// Destroy requests destruction. The object stays usable until an external
// owner calls CommitDestroy, usually at the end of the frame. Repeated
// requests are ignored.
func (g *GameObject) Destroy() {
	if g.state != StateLive {
		return
	}
	g.state = StatePendingDestroy
	g.signals.publish(EventDestroyRequested, g)
}

// CommitDestroy tears g down: every descendant first (depth-first, children
// before parents), then g's components with the transform last. g is
// unlinked from its parent, its Destroyed listeners run, and finally the
// destroy_committed signal fires. Objects that were never requested for
// destruction may be committed directly.
func (g *GameObject) CommitDestroy() error {
	switch {
	case g.state == StateDestroyed:
		return fmt.Errorf("%w: %s", ErrAlreadyDestroyed, g)
	case g.committing:
		return fmt.Errorf("%w: %s", ErrDestroyInProgress, g)
	}
	g.committing = true

	var errs error
	for _, child := range slices.Clone(g.transform.children) {
		owner := child.GameObject()
		if owner == nil || owner.state == StateDestroyed {
			continue
		}
		if err := owner.CommitDestroy(); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	for _, c := range slices.Collect(g.Components()) {
		if c != Component(g.transform) {
			detach(c, g.registry)
		}
	}
	g.transform.unlink()
	detach(g.transform, g.registry)

	clear(g.buckets)
	clear(g.capabilities)
	g.order = nil
	g.state = StateDestroyed
	g.committing = false

	listeners := g.onDestroy
	g.onDestroy = nil
	for _, fn := range listeners {
		fn(g)
	}

	g.signals.publish(EventDestroyCommitted, g)
	return errs
}

func (g *GameObject) String() string {
	return fmt.Sprintf("%s, %d components", g.name, g.ComponentCount())
}

func (g *GameObject) store(t reflect.Type, c Component) {
	g.invalidate(t)
	list, ok := g.buckets[t]
	if !ok {
		g.order = append(g.order, t)
	}
	g.buckets[t] = append(list, c)
}

func (g *GameObject) unstore(t reflect.Type, c Component) {
	list := g.buckets[t]
	i := slices.Index(list, c)
	if i < 0 {
		return
	}
	g.invalidate(t)
	if len(list) == 1 {
		delete(g.buckets, t)
		g.order = slices.DeleteFunc(slices.Clone(g.order), func(k reflect.Type) bool { return k == t })
		return
	}
	g.buckets[t] = slices.Delete(slices.Clone(list), i, i+1)
}

func (g *GameObject) invalidate(t reflect.Type) {
	for iface := range g.capabilities {
		if t.Implements(iface) {
			delete(g.capabilities, iface)
		}
	}
}
