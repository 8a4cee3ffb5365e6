package camera

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (416 bytes, uniform aligned).
const GPUCameraUniformSource = `struct CameraUniform {
    view_proj: mat4x4<f32>,
    view: mat4x4<f32>,
    proj: mat4x4<f32>,
    inv_proj: mat4x4<f32>,
    inv_view_proj: mat4x4<f32>,
    sky_view_proj: mat4x4<f32>,
    position: vec3<f32>,
    near: f32,
    far: f32,
    _pad: f32,
    screen_size: vec2<f32>,
};`

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer shared by every pass.
// Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
// Size: 416 bytes.
type GPUCameraUniform struct {
	ViewProj    [16]float32 // offset   0
	View        [16]float32 // offset  64
	Proj        [16]float32 // offset 128
	InvProj     [16]float32 // offset 192
	InvViewProj [16]float32 // offset 256
	SkyViewProj [16]float32 // offset 320
	Position    [3]float32  // offset 384
	Near        float32     // offset 396
	Far         float32     // offset 400
	_pad        float32     // offset 404
	ScreenSize  [2]float32  // offset 408
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (416)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	off := 0
	put := func(vs ...float32) {
		for _, v := range vs {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
			off += 4
		}
	}
	put(g.ViewProj[:]...)
	put(g.View[:]...)
	put(g.Proj[:]...)
	put(g.InvProj[:]...)
	put(g.InvViewProj[:]...)
	put(g.SkyViewProj[:]...)
	put(g.Position[:]...)
	put(g.Near, g.Far, 0)
	put(g.ScreenSize[:]...)
	return buf
}

// Uniform packs the matrices and projection parameters for upload.
//
// Parameters:
//   - m: the frame's camera matrices
//   - c: the camera
//   - width, height: the surface size in pixels
//
// Returns:
//   - GPUCameraUniform: the uniform contents
func Uniform(m Matrices, c Camera, width, height int) GPUCameraUniform {
	return GPUCameraUniform{
		ViewProj:    m.ViewProjection,
		View:        m.View,
		Proj:        m.Projection,
		InvProj:     m.InverseProjection,
		InvViewProj: m.InverseViewProjection,
		SkyViewProj: m.SkyViewProjection,
		Position:    m.Position,
		Near:        c.Near(),
		Far:         c.Far(),
		ScreenSize:  [2]float32{float32(width), float32(height)},
	}
}
