package common

import "math"

// Plane is ax + by + cz + d = 0 with (a, b, c) the unit normal. Points with a positive distance are in front.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// SignedDistance returns the distance from the plane to p, positive on the normal side.
func (p Plane) SignedDistance(x, y, z float32) float32 {
	return p.Normal[0]*x + p.Normal[1]*y + p.Normal[2]*z + p.Distance
}

// Frustum holds the six inward-facing planes of a view volume in the order left, right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// ExtractFrustum extracts the planes of a column-major view-projection matrix. Clip space depth is WebGPU's [0, w],
// so the near plane is the third row alone rather than row3 + row2.
//
// Parameters:
//   - viewProj: 16 float32 values, column-major
//
// Returns:
//   - Frustum: the frustum with normalized planes
func ExtractFrustum(viewProj []float32) Frustum {
	// row(i) returns row i of the matrix as (x, y, z, w).
	row := func(i int) [4]float32 {
		return [4]float32{viewProj[i], viewProj[4+i], viewProj[8+i], viewProj[12+i]}
	}
	combine := func(a, b [4]float32, sign float32) Plane {
		return Plane{
			Normal:   [3]float32{a[0] + sign*b[0], a[1] + sign*b[1], a[2] + sign*b[2]},
			Distance: a[3] + sign*b[3],
		}
	}

	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	f := Frustum{Planes: [6]Plane{
		combine(r3, r0, 1),
		combine(r3, r0, -1),
		combine(r3, r1, 1),
		combine(r3, r1, -1),
		combine(r2, r2, 0),
		combine(r3, r2, -1),
	}}
	for i := range f.Planes {
		p := &f.Planes[i]
		length := float32(math.Sqrt(float64(p.Normal[0]*p.Normal[0] + p.Normal[1]*p.Normal[1] + p.Normal[2]*p.Normal[2])))
		if length > 0 {
			inv := 1 / length
			p.Normal[0] *= inv
			p.Normal[1] *= inv
			p.Normal[2] *= inv
			p.Distance *= inv
		}
	}
	return f
}

// IntersectsSphere reports whether a sphere overlaps the frustum. Spheres near a corner may pass without
// overlapping, never the other way round.
//
// Parameters:
//   - center: the sphere center in world space
//   - radius: the sphere radius
//
// Returns:
//   - bool: false only when the sphere is entirely outside one plane
func (f *Frustum) IntersectsSphere(center [3]float32, radius float32) bool {
	for _, p := range f.Planes {
		if p.SignedDistance(center[0], center[1], center[2]) < -radius {
			return false
		}
	}
	return true
}
