package render

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/registry"
	"github.com/zeusync/engine/internal/core/scene"
	"github.com/zeusync/engine/internal/core/spatial"
	"github.com/zeusync/engine/internal/core/systems"
	"github.com/zeusync/engine/pkg/generic"
	"github.com/zeusync/engine/pkg/sequence"
)

const SweepName = "render-sweep"

var _ registry.System = (*Sweep)(nil)

// View is the camera the sweep culls and orders against. A view without
// planes sees everything.
type View struct {
	Position spatial.Vec3
	Frustum  Frustum
}

// Stats describes the last frame handed to the renderer.
type Stats struct {
	Collected int
	Culled    int
	Drawn     map[Stage]int
}

// Sweep collects every Item on live, enabled-in-hierarchy objects once per
// frame, culls it against the view, orders each stage by OrderKey and hands
// the result to the renderer.
type Sweep struct {
	query    *systems.QuerySystem
	renderer Renderer
	logger   log.Log
	scratch  *generic.Pool[*[]Item]

	mu    sync.RWMutex
	view  View
	stats Stats
}

func NewSweep(query *systems.QuerySystem, renderer Renderer, logger log.Log) *Sweep {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Sweep{
		query:    query,
		renderer: renderer,
		logger:   logger.Named(SweepName),
		scratch:  generic.NewSlicePool[Item](64),
	}
}

func (s *Sweep) Name() string          { return SweepName }
func (s *Sweep) Phase() registry.Phase { return registry.PhaseRender }

func (s *Sweep) SetView(v View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

func (s *Sweep) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *Sweep) LastStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Update runs one collection pass. Stages are drawn in the order of Stages;
// a failing stage does not prevent the next one from being drawn.
func (s *Sweep) Update(time.Duration) error {
	view := s.View()
	stats := Stats{Drawn: make(map[Stage]int, len(Stages))}

	buf := s.scratch.Get()
	defer s.scratch.Put(buf)
	for it := range s.items().Seq() {
		stats.Collected++
		if it.Cull(view.Frustum) {
			*buf = append(*buf, it)
		}
	}
	visible := *buf
	stats.Culled = stats.Collected - len(visible)

	var errs error
	for _, stage := range Stages {
		batch := sequence.From(visible).
			Filter(func(it Item) bool { return slices.Contains(it.Stages(), stage) }).
			Sort(func(a, b Item) int {
				return a.RenderOrderKey(view.Position).Compare(b.RenderOrderKey(view.Position))
			}).
			Collect()
		if len(batch) == 0 {
			continue
		}
		stats.Drawn[stage] = len(batch)
		if s.renderer == nil {
			continue
		}
		if err := s.renderer.Draw(stage, batch); err != nil {
			errs = errors.Join(errs, fmt.Errorf("draw %s: %w", stage, err))
		}
	}

	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()

	if errs != nil {
		s.logger.Warn("render sweep failed", log.Error(errs))
	}
	return errs
}

// Pick returns the nearest BoundsItem hit by r on an enabled object.
func (s *Sweep) Pick(r Ray) (BoundsItem, float64, bool) {
	var (
		best BoundsItem
		dist float64
	)
	for it := range s.items().Seq() {
		bi, ok := it.(BoundsItem)
		if !ok {
			continue
		}
		if _, hit := bi.Bounds().Intersect(r); !hit {
			continue
		}
		d, hit := bi.RayCast(r)
		if hit && (best == nil || d < dist) {
			best, dist = bi, d
		}
	}
	return best, dist, best != nil
}

func (s *Sweep) items() *sequence.Iterator[Item] {
	return sequence.FromSeq(func(yield func(Item) bool) {
		for _, g := range s.query.Objects() {
			if g.State() == scene.StateDestroyed || !g.EnabledInHierarchy() {
				continue
			}
			for it := range scene.GetComponentsByInterface[Item](g) {
				if !yield(it) {
					return
				}
			}
		}
	})
}
