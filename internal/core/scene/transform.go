package scene

import (
	"slices"

	"github.com/zeusync/engine/internal/core/spatial"
)

// ParentChangedFunc receives the transform that moved and its old and new
// parents; either parent may be nil.
type ParentChangedFunc func(t, oldParent, newParent *Transform)

// Transform is the hierarchy node and local pose of a GameObject. Every
// GameObject owns exactly one, created by New. The children list is the
// only source of truth for descendant relationships.
type Transform struct {
	BaseComponent

	parent   *Transform
	children []*Transform

	position spatial.Vec3
	rotation spatial.Quat
	scale    spatial.Vec3

	parentChanged []ParentChangedFunc
}

func newTransform() *Transform {
	return &Transform{
		rotation: spatial.Identity,
		scale:    spatial.One,
	}
}

func (t *Transform) Parent() *Transform { return t.parent }

// Children returns a copy of the ordered children list.
func (t *Transform) Children() []*Transform { return slices.Clone(t.children) }

func (t *Transform) ChildCount() int { return len(t.children) }

// Root walks up to the top of the hierarchy.
func (t *Transform) Root() *Transform {
	root := t
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// IsDescendantOf reports whether ancestor appears on t's parent chain.
// A transform is not its own descendant.
func (t *Transform) IsDescendantOf(ancestor *Transform) bool {
	if ancestor == nil {
		return false
	}
	for p := t.parent; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// OnParentChanged registers fn to run after every successful reparent.
func (t *Transform) OnParentChanged(fn ParentChangedFunc) {
	if fn != nil {
		t.parentChanged = append(t.parentChanged, fn)
	}
}

// SetParent moves t under parent; nil detaches it to the root. Cycles and
// destroyed endpoints are rejected and leave the hierarchy untouched.
func (t *Transform) SetParent(parent *Transform) error {
	if parent == t.parent {
		return nil
	}
	if !t.live() {
		return ErrDestroyed
	}
	if parent != nil {
		if parent == t || parent.IsDescendantOf(t) {
			return ErrHierarchyCycle
		}
		if !parent.live() {
			return ErrDestroyed
		}
	}

	oldParent := t.parent
	t.unlink()
	if parent != nil {
		t.parent = parent
		parent.children = append(parent.children, t)
	}

	for _, fn := range t.parentChanged {
		fn(t, oldParent, parent)
	}
	return nil
}

// SetSiblingIndex moves t within its parent's children list.
func (t *Transform) SetSiblingIndex(i int) {
	if t.parent == nil {
		return
	}
	siblings := t.parent.children
	cur := slices.Index(siblings, t)
	i = max(0, min(i, len(siblings)-1))
	if cur == i {
		return
	}
	siblings = slices.Delete(slices.Clone(siblings), cur, cur+1)
	t.parent.children = slices.Insert(siblings, i, t)
}

// SiblingIndex is t's position in its parent's children list, or -1 at the root.
func (t *Transform) SiblingIndex() int {
	if t.parent == nil {
		return -1
	}
	return slices.Index(t.parent.children, t)
}

// unlink removes t from its parent without notifying listeners. The parent's
// list is replaced rather than edited in place so slices handed out earlier
// stay intact.
func (t *Transform) unlink() {
	if t.parent == nil {
		return
	}
	t.parent.children = slices.DeleteFunc(slices.Clone(t.parent.children), func(c *Transform) bool { return c == t })
	t.parent = nil
}

// live reports whether t may gain or change links. An owner whose
// destruction is being committed counts as gone.
func (t *Transform) live() bool {
	g := t.GameObject()
	return g != nil && g.state != StateDestroyed && !g.committing
}

// Local pose

func (t *Transform) LocalPosition() spatial.Vec3 { return t.position }
func (t *Transform) LocalRotation() spatial.Quat { return t.rotation }
func (t *Transform) LocalScale() spatial.Vec3    { return t.scale }

func (t *Transform) SetLocalPosition(p spatial.Vec3) { t.position = p }
func (t *Transform) SetLocalRotation(q spatial.Quat) { t.rotation = q.Normalize() }
func (t *Transform) SetLocalScale(s spatial.Vec3)    { t.scale = s }

// Translate moves the transform in its parent's space.
func (t *Transform) Translate(delta spatial.Vec3) { t.position = t.position.Add(delta) }

// World pose, composed up the parent chain.

func (t *Transform) WorldRotation() spatial.Quat {
	if t.parent == nil {
		return t.rotation
	}
	return t.parent.WorldRotation().Mul(t.rotation)
}

func (t *Transform) WorldScale() spatial.Vec3 {
	if t.parent == nil {
		return t.scale
	}
	return t.parent.WorldScale().Mul(t.scale)
}

func (t *Transform) WorldPosition() spatial.Vec3 {
	if t.parent == nil {
		return t.position
	}
	p := t.parent
	return p.WorldPosition().Add(p.WorldRotation().Rotate(p.WorldScale().Mul(t.position)))
}
