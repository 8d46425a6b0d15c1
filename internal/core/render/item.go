// Package render defines what the scene exposes to a rendering backend:
// render item capabilities discovered on components, the geometry used to
// cull and pick them, and the per-frame sweep that hands the visible items
// to a Renderer.
package render

import (
	"cmp"

	"github.com/zeusync/engine/internal/core/spatial"
)

type Stage uint8

const (
	StageOpaque Stage = iota
	StageTransparent
	StageOverlay
)

// Stages lists every stage in draw order.
var Stages = []Stage{StageOpaque, StageTransparent, StageOverlay}

func (s Stage) String() string {
	switch s {
	case StageOpaque:
		return "opaque"
	case StageTransparent:
		return "transparent"
	case StageOverlay:
		return "overlay"
	default:
		return "unknown"
	}
}

// OrderKey sorts items within a stage: lower priority first, then lower
// depth.
type OrderKey struct {
	Priority int32
	Depth    float64
}

func (k OrderKey) Compare(o OrderKey) int {
	if c := cmp.Compare(k.Priority, o.Priority); c != 0 {
		return c
	}
	return cmp.Compare(k.Depth, o.Depth)
}

// Item is the capability a component implements to be drawn.
type Item interface {
	// Stages the item is drawn in.
	Stages() []Stage
	// RenderOrderKey positions the item relative to a viewer at viewPos.
	RenderOrderKey(viewPos spatial.Vec3) OrderKey
	// Cull reports whether the item is visible in f.
	Cull(f Frustum) bool
}

// BoundsItem is an Item with a world-space bounding box that can be picked.
type BoundsItem interface {
	Item
	Bounds() AABB
	// RayCast returns the hit distance along r.
	RayCast(r Ray) (float64, bool)
}

// Renderer is the backend the sweep hands visible items to.
type Renderer interface {
	Draw(stage Stage, items []Item) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(stage Stage, items []Item) error

func (f RendererFunc) Draw(stage Stage, items []Item) error { return f(stage, items) }
