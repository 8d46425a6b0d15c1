package scene

import (
	"iter"
	"math"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/registry"
	"github.com/zeusync/engine/internal/core/spatial"
)

type labeled interface {
	Label() string
}

type foo struct {
	BaseComponent
	label string

	attachedWith *registry.Registry
	attached     int
	removed      int
	enabled      []bool
}

func (f *foo) Label() string { return f.label }

func (f *foo) OnAttached(reg *registry.Registry) {
	f.attached++
	f.attachedWith = reg
}

func (f *foo) OnRemoved(*registry.Registry) { f.removed++ }

func (f *foo) OnHierarchyEnabledChanged(enabled bool) { f.enabled = append(f.enabled, enabled) }

type bar struct {
	BaseComponent
	label string
}

func (b *bar) Label() string { return b.label }

type plain struct{ BaseComponent }

func testSignals() *Signals {
	return NewSignals(bus.New(), log.NewNop())
}

func newObject(t *testing.T, s *Signals, name string) *GameObject {
	t.Helper()
	return New(WithName(name), WithSignals(s))
}

func labels[T labeled](seq iter.Seq[T]) []string {
	var out []string
	for c := range seq {
		out = append(out, c.Label())
	}
	return out
}

func TestIDsAreIncreasingAndNonZero(t *testing.T) {
	s := testSignals()
	a, b, c := New(WithSignals(s)), New(WithSignals(s)), New(WithSignals(s))

	assert.NotZero(t, a.ID())
	assert.Less(t, a.ID(), b.ID())
	assert.Less(t, b.ID(), c.ID())
}

func TestConcurrentConstructionYieldsUniqueIDs(t *testing.T) {
	s := testSignals()
	const workers, perWorker = 8, 200

	var (
		mu  sync.Mutex
		ids = make(map[uint64]struct{}, workers*perWorker)
		wg  sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				id := New(WithSignals(s)).ID()
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, workers*perWorker)
	assert.NotContains(t, ids, uint64(0))
}

func TestIDOverflowPanics(t *testing.T) {
	saved := lastID.Load()
	t.Cleanup(func() { lastID.Store(saved) })

	lastID.Store(math.MaxUint64)
	assert.PanicsWithValue(t, ErrIDOverflow, func() { nextID() })
	assert.PanicsWithValue(t, ErrIDOverflow, func() { nextID() }, "exhaustion sticks after a recovered panic")
	assert.Equal(t, uint64(math.MaxUint64), lastID.Load())
}

func TestNewDefaults(t *testing.T) {
	g := New(WithSignals(testSignals()))

	assert.NotEmpty(t, g.Name())
	assert.True(t, g.Enabled())
	assert.True(t, g.EnabledInHierarchy())
	assert.Equal(t, StateLive, g.State())
	require.NotNil(t, g.Transform())
	assert.Same(t, g, g.Transform().GameObject())
	assert.Equal(t, 1, g.ComponentCount())

	tr, ok := GetComponent[*Transform](g)
	require.True(t, ok)
	assert.Same(t, g.Transform(), tr)
}

func TestGetComponentsKeepsInsertionOrder(t *testing.T) {
	g := newObject(t, testSignals(), "g1")
	c1, c2 := &foo{label: "c1"}, &foo{label: "c2"}
	require.NoError(t, g.AddComponent(c1))
	require.NoError(t, g.AddComponent(c2))

	got := slices.Collect(GetComponents[*foo](g))
	assert.Equal(t, []*foo{c1, c2}, got)

	// restartable
	assert.Equal(t, got, slices.Collect(GetComponents[*foo](g)))
}

func TestGetComponentsByInterfaceSpansBuckets(t *testing.T) {
	g := newObject(t, testSignals(), "g")
	require.NoError(t, g.AddComponent(&foo{label: "f1"}))
	require.NoError(t, g.AddComponent(&bar{label: "b1"}))
	require.NoError(t, g.AddComponent(&plain{}))
	require.NoError(t, g.AddComponent(&foo{label: "f2"}))

	assert.Equal(t, []string{"f1", "f2", "b1"}, labels(GetComponentsByInterface[labeled](g)))
	assert.Equal(t, []string{"f1", "f2", "b1"}, labels(GetComponents[labeled](g)))

	first, ok := GetComponentByInterface[labeled](g)
	require.True(t, ok)
	assert.Equal(t, "f1", first.Label())

	_, ok = GetComponentByInterface[interface{ Missing() }](g)
	assert.False(t, ok)
}

func TestCapabilityCacheFollowsMutations(t *testing.T) {
	g := newObject(t, testSignals(), "g")
	f := &foo{label: "f"}
	require.NoError(t, g.AddComponent(f))
	assert.Equal(t, []string{"f"}, labels(GetComponentsByInterface[labeled](g)))

	b := &bar{label: "b"}
	require.NoError(t, g.AddComponent(b))
	assert.Equal(t, []string{"f", "b"}, labels(GetComponentsByInterface[labeled](g)))

	removed, err := g.RemoveComponent(f)
	require.NoError(t, err)
	require.True(t, removed)
	assert.Equal(t, []string{"b"}, labels(GetComponentsByInterface[labeled](g)))
}

func TestIterationSurvivesRemoval(t *testing.T) {
	g := newObject(t, testSignals(), "g")
	for _, l := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddComponent(&foo{label: l}))
	}

	var seen []string
	for c := range GetComponents[*foo](g) {
		seen = append(seen, c.label)
		_, err := g.RemoveComponent(c)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, 1, g.ComponentCount())
}

func TestGetComponentFallsBackToAssignable(t *testing.T) {
	g := newObject(t, testSignals(), "g")
	_, ok := GetComponent[labeled](g)
	assert.False(t, ok)

	b := &bar{label: "b"}
	require.NoError(t, g.AddComponent(b))
	got, ok := GetComponent[labeled](g)
	require.True(t, ok)
	assert.Same(t, b, got)

	c, ok := g.GetComponentOfType(reflect.TypeFor[labeled]())
	require.True(t, ok)
	assert.Same(t, b, c)

	_, ok = GetComponent[*foo](g)
	assert.False(t, ok)
}

func TestAddRemoveRoundTrip(t *testing.T) {
	g := newObject(t, testSignals(), "g")
	c1, c2 := &foo{label: "c1"}, &foo{label: "c2"}
	require.NoError(t, g.AddComponent(c1))
	require.NoError(t, g.AddComponent(c2))

	removed, err := g.RemoveComponent(c1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 1, c1.removed)
	assert.Nil(t, c1.GameObject())

	next, ok := GetComponent[*foo](g)
	require.True(t, ok)
	assert.Same(t, c2, next)

	_, err = g.RemoveComponent(c2)
	require.NoError(t, err)
	_, ok = GetComponent[*foo](g)
	assert.False(t, ok)
	assert.NotContains(t, g.order, reflect.TypeFor[*foo]())
	assert.Equal(t, 1, g.ComponentCount())
}

func TestRemoveAbsentComponentIsNoop(t *testing.T) {
	g := newObject(t, testSignals(), "g")
	c := &foo{}

	removed, err := g.RemoveComponent(c)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Zero(t, c.removed)

	// detaching a never-attached component is tolerated
	assert.NotPanics(t, func() { c.InternalRemoved(nil) })
}

func TestAttachHandsOverRegistry(t *testing.T) {
	reg := registry.New()
	g := New(WithSignals(testSignals()), WithRegistry(reg))
	c := &foo{}
	require.NoError(t, g.AddComponent(c))

	assert.Equal(t, 1, c.attached)
	assert.Same(t, reg, c.attachedWith)
	assert.Same(t, reg, c.Registry())
	assert.Same(t, g.Transform(), c.Transform())

	other := registry.New()
	g.SetRegistry(other)
	assert.Same(t, other, c.Registry())
}

func TestAddComponentErrors(t *testing.T) {
	s := testSignals()
	g, h := newObject(t, s, "g"), newObject(t, s, "h")

	assert.ErrorIs(t, g.AddComponent(nil), ErrNilComponent)
	var typedNil *foo
	assert.ErrorIs(t, g.AddComponent(typedNil), ErrNilComponent)

	c := &foo{}
	require.NoError(t, g.AddComponent(c))
	assert.ErrorIs(t, h.AddComponent(c), ErrComponentAttached)
	assert.ErrorIs(t, g.AddComponent(c), ErrComponentAttached)

	_, err := g.RemoveComponent(g.Transform())
	assert.ErrorIs(t, err, ErrTransformRemoval)

	require.NoError(t, h.CommitDestroy())
	assert.ErrorIs(t, h.AddComponent(&foo{}), ErrDestroyed)
}

func TestRemoveAll(t *testing.T) {
	g := newObject(t, testSignals(), "g")
	a, b := &foo{}, &foo{}
	require.NoError(t, g.AddComponent(a))
	require.NoError(t, g.AddComponent(&bar{}))
	require.NoError(t, g.AddComponent(b))

	assert.Equal(t, 2, RemoveAll[*foo](g))
	assert.Equal(t, 1, a.removed)
	assert.Equal(t, 1, b.removed)
	assert.Equal(t, 2, g.ComponentCount())
	assert.Zero(t, RemoveAll[*foo](g))
	assert.Zero(t, RemoveAll[*Transform](g))
}

func TestDisabledParentPropagatesOnReparent(t *testing.T) {
	s := testSignals()
	g1 := newObject(t, s, "g1")
	c1, c2 := &foo{label: "c1"}, &foo{label: "c2"}
	require.NoError(t, g1.AddComponent(c1))
	require.NoError(t, g1.AddComponent(c2))
	assert.Equal(t, []*foo{c1, c2}, slices.Collect(GetComponents[*foo](g1)))

	g1.SetEnabled(false)
	assert.False(t, g1.EnabledInHierarchy())
	assert.Equal(t, []bool{false}, c1.enabled)

	g2 := newObject(t, s, "g2")
	watcher := &foo{}
	require.NoError(t, g2.AddComponent(watcher))
	require.NoError(t, g2.Transform().SetParent(g1.Transform()))

	assert.True(t, g2.Enabled())
	assert.False(t, g2.EnabledInHierarchy())
	assert.Equal(t, []bool{false}, watcher.enabled)

	g1.SetEnabled(true)
	assert.True(t, g2.EnabledInHierarchy())
	assert.Equal(t, []bool{false, true}, watcher.enabled)

	require.NoError(t, g2.SetParent(nil))
	g1.SetEnabled(false)
	assert.True(t, g2.EnabledInHierarchy())
}

func TestEnabledInHierarchyIsConjunctionOfChain(t *testing.T) {
	s := testSignals()
	chain := make([]*GameObject, 5)
	for i := range chain {
		chain[i] = New(WithSignals(s))
		if i > 0 {
			require.NoError(t, chain[i].SetParent(chain[i-1]))
		}
	}

	check := func() {
		t.Helper()
		want := true
		for _, g := range chain {
			want = want && g.Enabled()
			assert.Equal(t, want, g.EnabledInHierarchy(), "object %d", g.ID())
		}
	}

	toggles := []int{2, 0, 4, 2, 1, 0, 3, 4, 1, 3}
	for _, i := range toggles {
		chain[i].SetEnabled(!chain[i].Enabled())
		check()
	}
}

func TestReparentMovesChildExactlyOnce(t *testing.T) {
	s := testSignals()
	x, y, c := newObject(t, s, "x"), newObject(t, s, "y"), newObject(t, s, "c")
	tr := c.Transform()

	var changes [][2]*Transform
	tr.OnParentChanged(func(_, oldParent, newParent *Transform) {
		changes = append(changes, [2]*Transform{oldParent, newParent})
	})

	require.NoError(t, tr.SetParent(x.Transform()))
	require.NoError(t, tr.SetParent(y.Transform()))
	require.NoError(t, tr.SetParent(y.Transform()))

	assert.Empty(t, x.Transform().Children())
	assert.Equal(t, []*Transform{tr}, y.Transform().Children())
	assert.Same(t, y.Transform(), tr.Parent())
	assert.Equal(t, [][2]*Transform{{nil, x.Transform()}, {x.Transform(), y.Transform()}}, changes)
	assert.Equal(t, []*GameObject{c}, y.Children())
}

func TestSetParentRejectsCycles(t *testing.T) {
	s := testSignals()
	a, b, c := newObject(t, s, "a"), newObject(t, s, "b"), newObject(t, s, "c")
	require.NoError(t, b.SetParent(a))
	require.NoError(t, c.SetParent(b))

	assert.ErrorIs(t, a.SetParent(c), ErrHierarchyCycle)
	assert.ErrorIs(t, a.SetParent(a), ErrHierarchyCycle)
	assert.Nil(t, a.Parent())
	assert.True(t, c.Transform().IsDescendantOf(a.Transform()))
	assert.Same(t, a.Transform(), c.Transform().Root())
}

func TestSiblingIndex(t *testing.T) {
	s := testSignals()
	p := newObject(t, s, "p")
	kids := []*GameObject{newObject(t, s, "a"), newObject(t, s, "b"), newObject(t, s, "c")}
	for _, k := range kids {
		require.NoError(t, k.SetParent(p))
	}

	kids[2].Transform().SetSiblingIndex(0)
	assert.Equal(t, []*GameObject{kids[2], kids[0], kids[1]}, p.Children())
	assert.Equal(t, 0, kids[2].Transform().SiblingIndex())
	assert.Equal(t, -1, p.Transform().SiblingIndex())
}

func TestWorldPose(t *testing.T) {
	s := testSignals()
	parent, child := newObject(t, s, "parent"), newObject(t, s, "child")
	require.NoError(t, child.SetParent(parent))

	parent.Transform().SetLocalPosition(spatial.V3(1, 0, 0))
	parent.Transform().SetLocalScale(spatial.V3(2, 2, 2))
	child.Transform().SetLocalPosition(spatial.V3(1, 0, 0))
	assert.True(t, child.Transform().WorldPosition().ApproxEqual(spatial.V3(3, 0, 0), 1e-9))

	parent.Transform().SetLocalRotation(spatial.AxisAngle(spatial.V3(0, 0, 1), math.Pi/2))
	assert.True(t, child.Transform().WorldPosition().ApproxEqual(spatial.V3(1, 2, 0), 1e-9))
	assert.True(t, child.Transform().WorldScale().ApproxEqual(spatial.V3(2, 2, 2), 1e-9))
}

func TestHierarchyLookups(t *testing.T) {
	s := testSignals()
	root, mid, leaf, other := newObject(t, s, "root"), newObject(t, s, "mid"), newObject(t, s, "leaf"), newObject(t, s, "other")
	require.NoError(t, mid.SetParent(root))
	require.NoError(t, leaf.SetParent(mid))
	require.NoError(t, other.SetParent(root))

	rootFoo, leafFoo, otherFoo := &foo{label: "root"}, &foo{label: "leaf"}, &foo{label: "other"}
	require.NoError(t, root.AddComponent(rootFoo))
	require.NoError(t, leaf.AddComponent(leafFoo))
	require.NoError(t, other.AddComponent(otherFoo))

	got, ok := GetComponentInParent[*foo](leaf)
	require.True(t, ok)
	assert.Same(t, rootFoo, got)

	_, ok = GetComponentInParent[*foo](root)
	assert.False(t, ok)

	got, ok = GetComponentInParentOrSelf[*foo](leaf)
	require.True(t, ok)
	assert.Same(t, rootFoo, got, "ancestors win over self")

	got, ok = GetComponentInParentOrSelf[*foo](root)
	require.True(t, ok)
	assert.Same(t, rootFoo, got)

	got, ok = GetComponentInChildren[*foo](root)
	require.True(t, ok)
	assert.Same(t, leafFoo, got, "first child's subtree is searched before the next child")

	_, ok = GetComponentInChildren[*foo](leaf)
	assert.False(t, ok)

	c, ok := root.GetComponentInChildrenOfType(reflect.TypeFor[labeled]())
	require.True(t, ok)
	assert.Same(t, leafFoo, c)
}

func TestDestroyRequestsOnce(t *testing.T) {
	s := testSignals()
	var requested []uint64
	_, err := s.OnDestroyRequested(func(g *GameObject) { requested = append(requested, g.ID()) })
	require.NoError(t, err)

	g := newObject(t, s, "g")
	g.Destroy()
	g.Destroy()

	assert.Equal(t, StatePendingDestroy, g.State())
	assert.Equal(t, []uint64{g.ID()}, requested)
	assert.True(t, g.EnabledInHierarchy(), "still usable until committed")
}

func TestCommitDestroyTearsDownChildrenFirst(t *testing.T) {
	s := testSignals()
	var committed []string
	_, err := s.OnDestroyCommitted(func(g *GameObject) { committed = append(committed, g.Name()) })
	require.NoError(t, err)

	holder := newObject(t, s, "holder")
	root := newObject(t, s, "root")
	a, a1, b := newObject(t, s, "a"), newObject(t, s, "a1"), newObject(t, s, "b")
	require.NoError(t, root.SetParent(holder))
	require.NoError(t, a.SetParent(root))
	require.NoError(t, a1.SetParent(a))
	require.NoError(t, b.SetParent(root))

	all := []*GameObject{root, a, a1, b}
	comps := make([]*foo, 0, len(all)*2)
	for _, g := range all {
		for range 2 {
			c := &foo{}
			require.NoError(t, g.AddComponent(c))
			comps = append(comps, c)
		}
	}

	var local []string
	root.OnDestroyed(func(g *GameObject) {
		local = append(local, g.Name())
		assert.NotContains(t, committed, "root")
	})

	require.NoError(t, root.CommitDestroy())

	assert.Equal(t, []string{"a1", "a", "b", "root"}, committed)
	assert.Equal(t, []string{"root"}, local)
	for _, c := range comps {
		assert.Equal(t, 1, c.removed)
		assert.Nil(t, c.GameObject())
	}
	for _, g := range all {
		assert.Equal(t, StateDestroyed, g.State())
		assert.Zero(t, g.ComponentCount())
	}
	assert.Empty(t, holder.Children())
	assert.Nil(t, root.Transform().GameObject())

	assert.ErrorIs(t, root.CommitDestroy(), ErrAlreadyDestroyed)
	assert.ErrorIs(t, a.CommitDestroy(), ErrAlreadyDestroyed)
	assert.Equal(t, []string{"a1", "a", "b", "root"}, committed)
}

func TestCommitDestroyRejectsReentry(t *testing.T) {
	g := newObject(t, testSignals(), "g")
	var reentry error
	require.NoError(t, g.AddComponent(&hookFunc{onRemoved: func() { reentry = g.CommitDestroy() }}))

	require.NoError(t, g.CommitDestroy())
	assert.ErrorIs(t, reentry, ErrDestroyInProgress)
}

func TestCommittingObjectRejectsNewChildren(t *testing.T) {
	s := testSignals()
	p, x := newObject(t, s, "p"), newObject(t, s, "x")
	var reparent error
	require.NoError(t, p.AddComponent(&hookFunc{onRemoved: func() { reparent = x.SetParent(p) }}))

	require.NoError(t, p.CommitDestroy())

	assert.ErrorIs(t, reparent, ErrDestroyed)
	assert.Nil(t, x.Parent())
	assert.Nil(t, x.Transform().Parent())
	assert.Zero(t, p.Transform().ChildCount())
	assert.Equal(t, StateLive, x.State())
}

func TestDestroyedTransformCannotBeReparented(t *testing.T) {
	s := testSignals()
	g, p := newObject(t, s, "g"), newObject(t, s, "p")
	tr := g.Transform()
	require.NoError(t, p.CommitDestroy())

	assert.ErrorIs(t, g.SetParent(p), ErrDestroyed)

	require.NoError(t, g.CommitDestroy())
	assert.ErrorIs(t, tr.SetParent(newObject(t, s, "live").Transform()), ErrDestroyed)
}

func TestConstructedSignal(t *testing.T) {
	s := testSignals()
	var seen []uint64
	sub, err := s.OnConstructed(func(g *GameObject) {
		assert.NotZero(t, g.ID())
		assert.NotNil(t, g.Transform())
		seen = append(seen, g.ID())
	})
	require.NoError(t, err)

	g := New(WithSignals(s))
	require.NoError(t, sub.Cancel())
	New(WithSignals(s))

	assert.Equal(t, []uint64{g.ID()}, seen)
}

func TestString(t *testing.T) {
	g := newObject(t, testSignals(), "player")
	require.NoError(t, g.AddComponent(&foo{}))
	assert.Equal(t, "player, 2 components", g.String())
}

type hookFunc struct {
	BaseComponent
	onRemoved func()
}

func (h *hookFunc) OnRemoved(*registry.Registry) { h.onRemoved() }
