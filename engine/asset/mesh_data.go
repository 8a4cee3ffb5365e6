// Package asset turns files and procedural descriptions into the data the engine consumes: interleaved mesh vertices,
// decoded images with sampler settings, and glTF models that can be instantiated as scene subtrees. Image decoding runs
// on a worker pool at setup time; nothing here runs during a frame.
package asset

import (
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/physics"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshData is a decoded triangle mesh ready to be turned into a mesh.Mesh.
type MeshData struct {
	Name     string
	Vertices []mesh.GPUVertex
	Indices  []uint32
	// HasTangents is true when the tangents in Vertices were read from the source or generated.
	HasTangents bool
	// MaterialIndex selects a material of the owning Model, or -1.
	MaterialIndex int
}

// Mesh creates the engine mesh for this data.
//
// Returns:
//   - mesh.Mesh: the new mesh
func (d *MeshData) Mesh() mesh.Mesh {
	vertices := make([]mesh.GPUVertex, len(d.Vertices))
	copy(vertices, d.Vertices)
	return mesh.NewMesh(d.Name, vertices, d.Indices, d.HasTangents)
}

// Bounds returns the axis-aligned box enclosing every vertex position. Empty data reports a zero box.
//
// Returns:
//   - physics.AABB: the bounding box in mesh space
func (d *MeshData) Bounds() physics.AABB {
	if len(d.Vertices) == 0 {
		return physics.AABB{}
	}
	lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := lo.Mul(-1)
	for i := range d.Vertices {
		p := d.Vertices[i].Position
		for j := 0; j < 3; j++ {
			lo[j] = min(lo[j], p[j])
			hi[j] = max(hi[j], p[j])
		}
	}
	return physics.AABB{Min: lo, Max: hi}
}

// Cube builds an axis-aligned cube centered on the origin with four vertices per face so each face has a flat normal.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - *MeshData: the cube with generated tangents
func Cube(size float32) *MeshData {
	faces := [6][3]mgl32.Vec3{
		// normal, u axis, v axis with u × v = normal
		{{1, 0, 0}, {0, 0, -1}, {0, 1, 0}},
		{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
		{{0, 1, 0}, {1, 0, 0}, {0, 0, -1}},
		{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
		{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, -1}, {-1, 0, 0}, {0, 1, 0}},
	}
	h := size / 2
	d := &MeshData{Name: "cube", MaterialIndex: -1}
	for _, f := range faces {
		n, u, v := f[0], f[1], f[2]
		c := n.Mul(h)
		base := uint32(len(d.Vertices))
		corners := [4]struct {
			su, sv float32
			uv     [2]float32
		}{
			{-1, -1, [2]float32{0, 1}},
			{1, -1, [2]float32{1, 1}},
			{1, 1, [2]float32{1, 0}},
			{-1, 1, [2]float32{0, 0}},
		}
		for _, k := range corners {
			p := c.Add(u.Mul(k.su * h)).Add(v.Mul(k.sv * h))
			d.Vertices = append(d.Vertices, mesh.GPUVertex{
				Position: p,
				Normal:   n,
				TexCoord: k.uv,
				Color:    [4]float32{1, 1, 1, 1},
			})
		}
		d.Indices = append(d.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	GenerateTangents(d.Vertices, d.Indices)
	d.HasTangents = true
	return d
}

// Plane builds a square on the XZ plane facing +Y.
//
// Parameters:
//   - size: the edge length
//   - subdivisions: quads per edge, at least 1
//
// Returns:
//   - *MeshData: the plane with generated tangents
func Plane(size float32, subdivisions int) *MeshData {
	n := max(subdivisions, 1)
	h := size / 2
	step := size / float32(n)
	d := &MeshData{Name: "plane", MaterialIndex: -1}
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			d.Vertices = append(d.Vertices, mesh.GPUVertex{
				Position: [3]float32{-h + float32(i)*step, 0, -h + float32(j)*step},
				Normal:   [3]float32{0, 1, 0},
				TexCoord: [2]float32{float32(i) / float32(n), float32(j) / float32(n)},
				Color:    [4]float32{1, 1, 1, 1},
			})
		}
	}
	row := uint32(n + 1)
	for j := uint32(0); j < uint32(n); j++ {
		for i := uint32(0); i < uint32(n); i++ {
			a := j*row + i
			b, c, e := a+1, a+row+1, a+row
			d.Indices = append(d.Indices, a, e, c, a, c, b)
		}
	}
	GenerateTangents(d.Vertices, d.Indices)
	d.HasTangents = true
	return d
}

// Sphere builds a UV sphere centered on the origin.
//
// Parameters:
//   - radius: the sphere radius
//   - segments: divisions around the Y axis, at least 3
//   - rings: divisions from pole to pole, at least 2
//
// Returns:
//   - *MeshData: the sphere with generated tangents
func Sphere(radius float32, segments, rings int) *MeshData {
	segments, rings = max(segments, 3), max(rings, 2)
	d := &MeshData{Name: "sphere", MaterialIndex: -1}
	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		for s := 0; s <= segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			n := mgl32.Vec3{
				float32(math.Sin(phi) * math.Cos(theta)),
				float32(math.Cos(phi)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}
			d.Vertices = append(d.Vertices, mesh.GPUVertex{
				Position: n.Mul(radius),
				Normal:   n,
				TexCoord: [2]float32{float32(s) / float32(segments), float32(r) / float32(rings)},
				Color:    [4]float32{1, 1, 1, 1},
			})
		}
	}
	row := uint32(segments + 1)
	for r := uint32(0); r < uint32(rings); r++ {
		for s := uint32(0); s < uint32(segments); s++ {
			a := r*row + s
			if r != 0 {
				d.Indices = append(d.Indices, a, a+1, a+row)
			}
			if r != uint32(rings)-1 {
				d.Indices = append(d.Indices, a+1, a+row+1, a+row)
			}
		}
	}
	GenerateTangents(d.Vertices, d.Indices)
	d.HasTangents = true
	return d
}

// GenerateNormals writes smooth per-vertex normals accumulated from area-weighted face normals. Vertices touched by no
// triangle get +Y.
//
// Parameters:
//   - vertices: the vertices to update
//   - indices: the triangle list
func GenerateNormals(vertices []mesh.GPUVertex, indices []uint32) {
	accum := make([]mgl32.Vec3, len(vertices))
	eachTriangle(vertices, indices, func(i0, i1, i2 uint32) {
		p0 := mgl32.Vec3(vertices[i0].Position)
		face := mgl32.Vec3(vertices[i1].Position).Sub(p0).Cross(mgl32.Vec3(vertices[i2].Position).Sub(p0))
		for _, idx := range [3]uint32{i0, i1, i2} {
			accum[idx] = accum[idx].Add(face)
		}
	})
	for i, n := range accum {
		if n.Len() < 1e-6 {
			vertices[i].Normal = [3]float32{0, 1, 0}
			continue
		}
		vertices[i].Normal = n.Normalize()
	}
}

// GenerateTangents writes per-vertex tangents from UV gradients, orthonormalized against the vertex normal. W holds the
// bitangent handedness. Vertices without a usable gradient get +X.
//
// Parameters:
//   - vertices: the vertices to update; normals must already be set
//   - indices: the triangle list
func GenerateTangents(vertices []mesh.GPUVertex, indices []uint32) {
	tan := make([]mgl32.Vec3, len(vertices))
	btan := make([]mgl32.Vec3, len(vertices))
	eachTriangle(vertices, indices, func(i0, i1, i2 uint32) {
		p0 := mgl32.Vec3(vertices[i0].Position)
		e1 := mgl32.Vec3(vertices[i1].Position).Sub(p0)
		e2 := mgl32.Vec3(vertices[i2].Position).Sub(p0)
		uv0 := mgl32.Vec2(vertices[i0].TexCoord)
		d1 := mgl32.Vec2(vertices[i1].TexCoord).Sub(uv0)
		d2 := mgl32.Vec2(vertices[i2].TexCoord).Sub(uv0)

		det := d1[0]*d2[1] - d1[1]*d2[0]
		if det == 0 {
			return
		}
		inv := 1 / det
		t := e1.Mul(d2[1]).Sub(e2.Mul(d1[1])).Mul(inv)
		b := e2.Mul(d1[0]).Sub(e1.Mul(d2[0])).Mul(inv)
		for _, idx := range [3]uint32{i0, i1, i2} {
			tan[idx] = tan[idx].Add(t)
			btan[idx] = btan[idx].Add(b)
		}
	})
	for i := range vertices {
		n := mgl32.Vec3(vertices[i].Normal)
		ortho := tan[i].Sub(n.Mul(n.Dot(tan[i])))
		if ortho.Len() < 1e-6 {
			vertices[i].Tangent = [4]float32{1, 0, 0, 1}
			continue
		}
		ortho = ortho.Normalize()
		w := float32(1)
		if n.Cross(ortho).Dot(btan[i]) < 0 {
			w = -1
		}
		vertices[i].Tangent = ortho.Vec4(w)
	}
}

func eachTriangle(vertices []mesh.GPUVertex, indices []uint32, fn func(i0, i1, i2 uint32)) {
	n := uint32(len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		fn(i0, i1, i2)
	}
}
