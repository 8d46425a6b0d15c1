package scene

import (
	"errors"
	"fmt"

	"github.com/zeusync/engine/internal/core/spatial"
)

// ComponentFactory makes a fresh component for every instantiation.
type ComponentFactory func() Component

// Blueprint describes a small subtree to instantiate in one go: a named
// object with a pose, its component factories and child blueprints. A
// blueprint holds no live state and may be instantiated any number of times.
type Blueprint struct {
	Name       string
	Parent     *GameObject
	Enabled    *bool
	Position   spatial.Vec3
	Components []ComponentFactory
	Children   []Blueprint
}

// Instantiate builds a new subtree from the blueprint. On failure every
// object created so far is committed for destruction and the error is
// returned.
func (b Blueprint) Instantiate(opts ...Option) (*GameObject, error) {
	return b.build(b.Parent, opts)
}

func (b Blueprint) build(parent *GameObject, opts []Option) (*GameObject, error) {
	all := opts
	if b.Name != "" {
		all = append(append([]Option(nil), opts...), WithName(b.Name))
	}
	g := New(all...)
	g.transform.SetLocalPosition(b.Position)

	fail := func(err error) (*GameObject, error) {
		return nil, errors.Join(err, g.CommitDestroy())
	}

	if parent != nil {
		if err := g.SetParent(parent); err != nil {
			return fail(fmt.Errorf("blueprint %q: %w", g.name, err))
		}
	}
	for _, factory := range b.Components {
		var c Component
		if factory != nil {
			c = factory()
		}
		if err := g.AddComponent(c); err != nil {
			return fail(fmt.Errorf("blueprint %q: %w", g.name, err))
		}
	}
	for _, child := range b.Children {
		if _, err := child.build(g, opts); err != nil {
			return fail(err)
		}
	}
	if b.Enabled != nil {
		g.SetEnabled(*b.Enabled)
	}
	return g, nil
}
