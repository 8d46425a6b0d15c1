package render

import (
	"github.com/zeusync/engine/internal/core/scene"
	"github.com/zeusync/engine/internal/core/spatial"
)

var _ BoundsItem = (*Box)(nil)

// Box is a render item shaped as an axis-aligned box around its owner's
// world position, scaled by the owner's world scale.
type Box struct {
	scene.BaseComponent

	Size     spatial.Vec3
	Stage    Stage
	Priority int32
}

func NewBox(size spatial.Vec3, stage Stage) *Box {
	return &Box{Size: size, Stage: stage}
}

func (b *Box) Stages() []Stage { return []Stage{b.Stage} }

// Bounds is empty while the box is detached.
func (b *Box) Bounds() AABB {
	t := b.Transform()
	if t == nil {
		return AABB{}
	}
	half := b.Size.Mul(t.WorldScale()).Scale(0.5)
	return BoxAt(t.WorldPosition(), half)
}

func (b *Box) RenderOrderKey(viewPos spatial.Vec3) OrderKey {
	depth := b.Bounds().Center().Distance(viewPos)
	// transparent geometry is drawn back to front
	if b.Stage == StageTransparent {
		depth = -depth
	}
	return OrderKey{Priority: b.Priority, Depth: depth}
}

func (b *Box) Cull(f Frustum) bool           { return f.IntersectsAABB(b.Bounds()) }
func (b *Box) RayCast(r Ray) (float64, bool) { return b.Bounds().Intersect(r) }
