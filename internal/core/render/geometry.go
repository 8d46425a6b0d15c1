package render

import (
	"math"

	"github.com/zeusync/engine/internal/core/spatial"
)

// AABB is an axis-aligned box given by its two extreme corners.
type AABB struct {
	Min spatial.Vec3
	Max spatial.Vec3
}

// BoxAt builds the box centered on center with the given half extents.
func BoxAt(center, halfExtents spatial.Vec3) AABB {
	return AABB{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
}

func (b AABB) Center() spatial.Vec3  { return b.Min.Add(b.Max).Scale(0.5) }
func (b AABB) Extents() spatial.Vec3 { return b.Max.Sub(b.Min).Scale(0.5) }

func (b AABB) Contains(p spatial.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b AABB) Intersects(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Union is the smallest box enclosing both.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: spatial.Min(b.Min, o.Min), Max: spatial.Max(b.Max, o.Max)}
}

// Intersect runs the slab test and returns the distance along r to the
// nearest hit in front of the origin. An origin inside the box hits at 0.
func (b AABB) Intersect(r Ray) (float64, bool) {
	tMin, tMax := 0.0, math.Inf(1)

	axes := [3][2]float64{
		{r.Origin.X, r.Direction.X},
		{r.Origin.Y, r.Direction.Y},
		{r.Origin.Z, r.Direction.Z},
	}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}

	for i, a := range axes {
		origin, dir := a[0], a[1]
		if dir == 0 {
			if origin < lo[i] || origin > hi[i] {
				return 0, false
			}
			continue
		}
		t1, t2 := (lo[i]-origin)/dir, (hi[i]-origin)/dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin, tMax = max(tMin, t1), min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// Ray is a half-line. Direction need not be normalized; hit distances are
// expressed in multiples of it.
type Ray struct {
	Origin    spatial.Vec3
	Direction spatial.Vec3
}

func (r Ray) At(t float64) spatial.Vec3 { return r.Origin.Add(r.Direction.Scale(t)) }

// Plane keeps the points p with Normal·p + D >= 0 on its inner side.
type Plane struct {
	Normal spatial.Vec3
	D      float64
}

func (p Plane) Distance(v spatial.Vec3) float64 { return p.Normal.Dot(v) + p.D }

// Frustum is a convex view volume bounded by inward-facing planes.
type Frustum struct {
	Planes []Plane
}

// BoxFrustum is the orthographic view volume covering b.
func BoxFrustum(b AABB) Frustum {
	return Frustum{Planes: []Plane{
		{Normal: spatial.V3(1, 0, 0), D: -b.Min.X},
		{Normal: spatial.V3(-1, 0, 0), D: b.Max.X},
		{Normal: spatial.V3(0, 1, 0), D: -b.Min.Y},
		{Normal: spatial.V3(0, -1, 0), D: b.Max.Y},
		{Normal: spatial.V3(0, 0, 1), D: -b.Min.Z},
		{Normal: spatial.V3(0, 0, -1), D: b.Max.Z},
	}}
}

func (f Frustum) ContainsPoint(p spatial.Vec3) bool {
	for _, pl := range f.Planes {
		if pl.Distance(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectsAABB is conservative: it may keep a box that only touches the
// volume near an edge, never drops one that overlaps it.
func (f Frustum) IntersectsAABB(b AABB) bool {
	for _, pl := range f.Planes {
		// corner furthest along the plane normal
		p := b.Min
		if pl.Normal.X >= 0 {
			p.X = b.Max.X
		}
		if pl.Normal.Y >= 0 {
			p.Y = b.Max.Y
		}
		if pl.Normal.Z >= 0 {
			p.Z = b.Max.Z
		}
		if pl.Distance(p) < 0 {
			return false
		}
	}
	return true
}
