package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/zeusync/engine/internal/core/engine"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/registry"
	"github.com/zeusync/engine/internal/core/render"
	"github.com/zeusync/engine/internal/core/scene"
	"github.com/zeusync/engine/internal/core/spatial"
	"github.com/zeusync/engine/internal/core/systems"
)

var up = spatial.V3(0, 1, 0)

// orbit spins its owner around the Y axis; children follow through their
// world pose.
type orbit struct {
	scene.BaseComponent
	speed float64 // radians per second
	angle float64
}

// lifetime requests destruction of its owner after ttl frames.
type lifetime struct {
	scene.BaseComponent
	ttl int
}

type animationSystem struct {
	query *systems.QuerySystem
}

func (s *animationSystem) Name() string          { return "demo-animation" }
func (s *animationSystem) Phase() registry.Phase { return registry.PhaseUpdate }

func (s *animationSystem) Update(dt time.Duration) error {
	for o := range systems.ComponentsOf[*orbit](s.query).Seq() {
		if !o.EnabledInHierarchy() {
			continue
		}
		o.angle = math.Mod(o.angle+o.speed*dt.Seconds(), 2*math.Pi)
		o.Transform().SetLocalRotation(spatial.AxisAngle(up, o.angle))
	}
	for l := range systems.ComponentsOf[*lifetime](s.query).Seq() {
		if l.ttl--; l.ttl <= 0 {
			l.GameObject().Destroy()
		}
	}
	return nil
}

// logRenderer stands in for a graphics backend. Its logger is swapped in
// once the game's logger exists.
type logRenderer struct {
	logger log.Log
}

func newLogRenderer() *logRenderer {
	return &logRenderer{logger: log.NewNop()}
}

func (r *logRenderer) Draw(stage render.Stage, items []render.Item) error {
	r.logger.Debug("draw", log.String("stage", stage.String()), log.Int("items", len(items)))
	return nil
}

func setupDemo(game *engine.Game, logger log.Log) error {
	if err := game.Register(&animationSystem{query: game.Query()}); err != nil {
		return err
	}

	demo := game.Config().Demo
	game.Sweep().SetView(render.View{
		Position: spatial.V3(0, 0, -demo.ViewRange),
		Frustum: render.BoxFrustum(render.BoxAt(spatial.Zero, spatial.V3(
			demo.ViewRange, demo.ViewRange, demo.ViewRange,
		))),
	})
	logger.Debug("demo configured", log.Int("rings", demo.Rings), log.Int("per_ring", demo.PerRing))
	return nil
}

// loadDemo builds one blueprint per ring on the loader goroutines.
func loadDemo(ctx context.Context, game *engine.Game, logger log.Log) error {
	demo := game.Config().Demo
	loaders := make([]engine.Loader, demo.Rings)
	for ring := range loaders {
		loaders[ring] = func(context.Context) (scene.Blueprint, error) {
			return ringBlueprint(ring, demo.PerRing, demo.Radius*float64(ring+1)), nil
		}
	}

	return game.LoadConcurrent(ctx, loaders, func(g *scene.GameObject) {
		logger.Info("ring loaded",
			log.String("name", g.Name()),
			log.Int("children", len(g.Children())),
		)
	})
}

func ringBlueprint(ring, count int, radius float64) scene.Blueprint {
	b := scene.Blueprint{
		Name:       fmt.Sprintf("ring-%d", ring),
		Components: []scene.ComponentFactory{func() scene.Component {
			return &orbit{speed: 0.5 / float64(ring+1)}
		}},
	}

	for i := range count {
		angle := 2 * math.Pi * float64(i) / float64(count)
		stage := render.StageOpaque
		if i%2 == 1 {
			stage = render.StageTransparent
		}
		child := scene.Blueprint{
			Name:       fmt.Sprintf("ring-%d-box-%d", ring, i),
			Position:   spatial.V3(radius*math.Cos(angle), 0, radius*math.Sin(angle)),
			Components: []scene.ComponentFactory{func() scene.Component {
				return render.NewBox(spatial.One, stage)
			}},
		}
		// every fourth box on the outer rings is short-lived
		if ring > 0 && i%4 == 0 {
			child.Components = append(child.Components, func() scene.Component {
				return &lifetime{ttl: 30 * ring}
			})
		}
		b.Children = append(b.Children, child)
	}
	return b
}
