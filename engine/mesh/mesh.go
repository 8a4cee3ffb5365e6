// Package mesh holds CPU-side mesh data, the Renderer component that pairs a mesh with a material on a scene node, and the
// observer system that turns every tracked renderer into a sorted, batched draw list each frame.
package mesh

import (
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
)

// meshCount hands out mesh identities in creation order.
var meshCount atomic.Uint64

type meshImpl struct {
	id          uint64
	name        string
	vertices    []byte
	vertexCount int
	indices     []uint32
	hasTangents bool
	provider    bind_group_provider.BindGroupProvider
}

// Mesh is an indexed triangle mesh with interleaved GPUVertex data. GPU buffers are created lazily the first time the mesh
// is drawn.
type Mesh interface {
	// ID returns the mesh identity. Identities are unique and increase in creation order.
	//
	// Returns:
	//   - uint64: the mesh identity
	ID() uint64

	// Name returns the mesh name.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// VertexData returns the interleaved vertex bytes, VertexStride bytes per vertex.
	//
	// Returns:
	//   - []byte: the vertex data
	VertexData() []byte

	// VertexCount returns the number of vertices.
	VertexCount() int

	// IndexData returns the triangle indices as little-endian bytes for upload.
	//
	// Returns:
	//   - []byte: the index data
	IndexData() []byte

	// IndexCount returns the number of indices.
	IndexCount() int

	// HasTangents reports whether the vertex data carries valid tangents. Normal-mapped materials require them.
	//
	// Returns:
	//   - bool: true if tangents are present
	HasTangents() bool

	// BindGroupProvider returns the provider holding the GPU vertex and index buffers, created on first access.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh buffer provider
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Uploaded reports whether GPU buffers exist for this mesh.
	Uploaded() bool

	// Destroy releases the GPU buffers.
	Destroy()
}

var _ Mesh = &meshImpl{}

// NewMesh creates a mesh from vertices and indices.
//
// Parameters:
//   - name: the mesh name
//   - vertices: the vertex list
//   - indices: triangle indices into vertices
//   - hasTangents: whether the tangents in vertices are meaningful
//
// Returns:
//   - Mesh: the new mesh
func NewMesh(name string, vertices []GPUVertex, indices []uint32, hasTangents bool) Mesh {
	data := make([]byte, len(vertices)*VertexStride)
	for i := range vertices {
		vertices[i].MarshalTo(data[i*VertexStride:])
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			panic(fmt.Sprintf("mesh: %s index %d out of range for %d vertices", name, idx, len(vertices)))
		}
	}
	return &meshImpl{
		id:          meshCount.Add(1),
		name:        name,
		vertices:    data,
		vertexCount: len(vertices),
		indices:     indices,
		hasTangents: hasTangents,
	}
}

func (m *meshImpl) ID() uint64 {
	return m.id
}

func (m *meshImpl) Name() string {
	return m.name
}

func (m *meshImpl) VertexData() []byte {
	return m.vertices
}

func (m *meshImpl) VertexCount() int {
	return m.vertexCount
}

func (m *meshImpl) IndexData() []byte {
	return common.SliceToBytes(m.indices)
}

func (m *meshImpl) IndexCount() int {
	return len(m.indices)
}

func (m *meshImpl) HasTangents() bool {
	return m.hasTangents
}

func (m *meshImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	if m.provider == nil {
		m.provider = bind_group_provider.NewBindGroupProvider("mesh:"+m.name, bind_group_provider.WithIndexCount(len(m.indices)))
	}
	return m.provider
}

func (m *meshImpl) Uploaded() bool {
	return m.provider != nil && m.provider.VertexBuffer() != nil
}

func (m *meshImpl) Destroy() {
	if m.provider != nil {
		m.provider.Release()
		m.provider = nil
	}
}
