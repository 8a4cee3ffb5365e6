package mesh

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
)

// GPUVertexSource is the WGSL definition of the VertexInput struct for mesh pipelines.
// Matches GPUVertex layout exactly (64 bytes).
const GPUVertexSource = `struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
    @location(3) color: vec4<f32>,
    @location(4) tangent: vec4<f32>,
};`

// VertexStride is the size of one interleaved vertex in bytes.
const VertexStride = 64

// VertexFloats is the number of float32 values in one interleaved vertex.
const VertexFloats = VertexStride / 4

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Matches the WGSL VertexInput struct layout exactly (see GPUVertexSource).
// Size: 64 bytes (no padding required).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
	Color    [4]float32 // offset 32: per-vertex RGBA color (16 bytes)
	Tangent  [4]float32 // offset 48: tangent vector (xyz) + handedness (w) for normal mapping (16 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, VertexStride)
	g.MarshalTo(buf)
	return buf
}

// MarshalTo writes the vertex into buf, which must hold at least VertexStride bytes.
func (g *GPUVertex) MarshalTo(buf []byte) {
	off := 0
	put := func(vs ...float32) {
		for _, v := range vs {
			binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
			off += 4
		}
	}
	put(g.Position[:]...)
	put(g.Normal[:]...)
	put(g.TexCoord[:]...)
	put(g.Color[:]...)
	put(g.Tangent[:]...)
}

// VertexBufferLayout returns the vertex buffer layout matching GPUVertex for pipeline creation.
//
// Returns:
//   - wgpu.VertexBufferLayout: the per-vertex layout
func VertexBufferLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: VertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 4},
		},
	}
}

// InstanceFloats is the number of float32 values per instance in the instance buffer: the global matrix followed by its inverse.
const InstanceFloats = 32

// InstanceStride is the size of one instance record in bytes.
const InstanceStride = InstanceFloats * 4

// GPUInstanceSource is the WGSL definition of one instance record in the instance storage buffer.
const GPUInstanceSource = `struct Instance {
    model: mat4x4<f32>,
    model_inverse: mat4x4<f32>,
};`
