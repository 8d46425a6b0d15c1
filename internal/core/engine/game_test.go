package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/engine/internal/config"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/registry"
	"github.com/zeusync/engine/internal/core/render"
	"github.com/zeusync/engine/internal/core/scene"
	"github.com/zeusync/engine/internal/core/spatial"
)

type spinner struct {
	scene.BaseComponent
	speed float64
}

// spinSystem turns every spinner once per frame.
type spinSystem struct {
	game   *Game
	frames int
	fail   error
}

func (s *spinSystem) Name() string          { return "spin" }
func (s *spinSystem) Phase() registry.Phase { return registry.PhaseUpdate }

func (s *spinSystem) Update(dt time.Duration) error {
	s.frames++
	for _, g := range s.game.Query().Objects() {
		for sp := range scene.GetComponents[*spinner](g) {
			t := sp.Transform()
			t.Translate(spatial.V3(sp.speed*dt.Seconds(), 0, 0))
		}
	}
	return s.fail
}

func newGame(t *testing.T, renderer render.Renderer) *Game {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.TickRate = 100
	g, err := New(cfg, log.NewNop(), renderer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Shutdown(context.Background()) })
	return g
}

func TestGameWiresBuiltInSystems(t *testing.T) {
	g := newGame(t, nil)

	names := make([]string, 0, g.Registry().Len())
	for _, s := range g.Registry().Systems() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"sync-helper", "render-sweep", "gameobject-query"}, names)

	signals, ok := registry.Get[*scene.Signals](g.Registry())
	require.True(t, ok)
	assert.Same(t, g.Signals(), signals)

	_, ok = registry.Get[log.Log](g.Registry())
	assert.True(t, ok)
}

func TestTickRequiresStart(t *testing.T) {
	g := newGame(t, nil)
	assert.ErrorIs(t, g.Tick(time.Millisecond), ErrNotStarted)
}

func TestFrameLoopDrivesSystemsAndDestroySweep(t *testing.T) {
	var drawn []int
	g := newGame(t, render.RendererFunc(func(_ render.Stage, items []render.Item) error {
		drawn = append(drawn, len(items))
		return nil
	}))
	spin := &spinSystem{game: g}
	require.NoError(t, g.Register(spin))
	require.NoError(t, g.Start(context.Background()))

	obj := g.NewObject("spinner")
	assert.Same(t, g.Registry(), obj.Registry())
	sp := &spinner{speed: 100}
	require.NoError(t, obj.AddComponent(sp))
	require.NoError(t, obj.AddComponent(render.NewBox(spatial.One, render.StageOpaque)))

	require.NoError(t, g.RunFrames(3))
	assert.Equal(t, uint64(3), g.Frame())
	assert.Equal(t, 3, spin.frames)
	assert.InDelta(t, 3.0, obj.Transform().LocalPosition().X, 1e-9)
	assert.Equal(t, []int{1, 1, 1}, drawn)

	obj.Destroy()
	assert.Equal(t, 1, g.Query().Count())
	require.NoError(t, g.Tick(time.Millisecond))
	assert.Equal(t, scene.StateDestroyed, obj.State())
	assert.Zero(t, g.Query().Count())
}

func TestTickJoinsSystemErrors(t *testing.T) {
	g := newGame(t, nil)
	boom := errors.New("boom")
	spin := &spinSystem{game: g, fail: boom}
	require.NoError(t, g.Register(spin))
	require.NoError(t, g.Start(context.Background()))

	err := g.Tick(time.Millisecond)
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "spin")
}

func TestRunStopsAtFrameLimit(t *testing.T) {
	g := newGame(t, nil)
	g.Config().Engine.MaxFrames = 5

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, g.Run(ctx))
	assert.Equal(t, uint64(5), g.Frame())
}

func TestRunStopsOnCancel(t *testing.T) {
	g := newGame(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, g.Run(ctx))
}

func TestLoadConcurrentInstantiatesOnNextFrame(t *testing.T) {
	g := newGame(t, nil)
	require.NoError(t, g.Start(context.Background()))

	loaders := make([]Loader, 6)
	for i := range loaders {
		loaders[i] = func(context.Context) (scene.Blueprint, error) {
			return scene.Blueprint{
				Name:       fmt.Sprintf("crate-%d", i),
				Position:   spatial.V3(float64(i), 0, 0),
				Components: []scene.ComponentFactory{func() scene.Component {
					return render.NewBox(spatial.One, render.StageOpaque)
				}},
				Children:   []scene.Blueprint{{Name: fmt.Sprintf("crate-%d-lid", i)}},
			}, nil
		}
	}

	var loaded []string
	require.NoError(t, g.LoadConcurrent(context.Background(), loaders, func(o *scene.GameObject) {
		loaded = append(loaded, o.Name())
	}))
	assert.Zero(t, g.Query().Count(), "nothing is built before the next frame")

	require.NoError(t, g.Tick(time.Millisecond))
	assert.Equal(t, []string{"crate-0", "crate-1", "crate-2", "crate-3", "crate-4", "crate-5"}, loaded)
	assert.Equal(t, 12, g.Query().Count())

	lid, ok := g.Query().FindByName("crate-3-lid")
	require.True(t, ok)
	assert.Equal(t, "crate-3", lid.Parent().Name())
	assert.Same(t, g.Registry(), lid.Registry())
	assert.True(t, slices.Contains(g.Query().Objects(), lid))
}

func TestLoadConcurrentFailureQueuesNothing(t *testing.T) {
	g := newGame(t, nil)
	boom := errors.New("missing asset")
	loaders := []Loader{
		func(context.Context) (scene.Blueprint, error) { return scene.Blueprint{Name: "ok"}, nil },
		func(context.Context) (scene.Blueprint, error) { return scene.Blueprint{}, boom },
	}

	err := g.LoadConcurrent(context.Background(), loaders, nil)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, g.SyncHelper().Pending())
}

func TestSignalMetricsTrackLifecycle(t *testing.T) {
	g := newGame(t, nil)
	require.NoError(t, g.Start(context.Background()))

	obj := g.NewObject("short-lived")
	obj.Destroy()
	require.NoError(t, g.Tick(time.Millisecond))

	m := g.SignalMetrics()
	assert.EqualValues(t, 3, m.Published, "constructed, destroy requested, destroy committed")
	assert.EqualValues(t, 3, m.DeliveredHandlers)
	assert.Zero(t, m.Errors)

	require.NoError(t, g.Shutdown(context.Background()))
	g.NewObject("after-shutdown")
	assert.EqualValues(t, 3, g.SignalMetrics().Published, "tracing stops with the game")
}
