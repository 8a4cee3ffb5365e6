package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Box returns the AABB of the given size centered on the origin.
func Box(size mgl32.Vec3) AABB {
	h := size.Mul(0.5)
	return AABB{Min: h.Mul(-1), Max: h}
}

// Center returns the midpoint of the box.
func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Overlaps reports whether the boxes intersect with positive volume. Touching faces do not overlap.
func (a AABB) Overlaps(b AABB) bool {
	return a.Min[0] < b.Max[0] && a.Max[0] > b.Min[0] &&
		a.Min[1] < b.Max[1] && a.Max[1] > b.Min[1] &&
		a.Min[2] < b.Max[2] && a.Max[2] > b.Min[2]
}

// Translate returns the box moved by d.
func (a AABB) Translate(d mgl32.Vec3) AABB {
	return AABB{Min: a.Min.Add(d), Max: a.Max.Add(d)}
}

// Transform returns the box enclosing the eight corners of a transformed by m.
func (a AABB) Transform(m mgl32.Mat4) AABB {
	inf := float32(math.Inf(1))
	out := AABB{Min: mgl32.Vec3{inf, inf, inf}, Max: mgl32.Vec3{-inf, -inf, -inf}}
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{a.Min[0], a.Min[1], a.Min[2]}
		if i&1 != 0 {
			corner[0] = a.Max[0]
		}
		if i&2 != 0 {
			corner[1] = a.Max[1]
		}
		if i&4 != 0 {
			corner[2] = a.Max[2]
		}
		p := mgl32.TransformCoordinate(corner, m)
		for k := 0; k < 3; k++ {
			out.Min[k] = min(out.Min[k], p[k])
			out.Max[k] = max(out.Max[k], p[k])
		}
	}
	return out
}

// Penetration returns the smallest translation that moves a out of b along a single axis. The zero vector is
// returned when the boxes do not overlap.
func (a AABB) Penetration(b AABB) mgl32.Vec3 {
	if !a.Overlaps(b) {
		return mgl32.Vec3{}
	}
	var (
		best    float32 = float32(math.Inf(1))
		bestAx  int
		bestDir float32
	)
	for k := 0; k < 3; k++ {
		// push toward -k or +k, whichever is shorter
		neg := a.Max[k] - b.Min[k]
		pos := b.Max[k] - a.Min[k]
		if neg < best {
			best, bestAx, bestDir = neg, k, -1
		}
		if pos < best {
			best, bestAx, bestDir = pos, k, 1
		}
	}
	var out mgl32.Vec3
	out[bestAx] = best * bestDir
	return out
}
