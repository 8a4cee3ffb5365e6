package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParamsSource is the WGSL definition matching GPUMaterialParams.
const GPUMaterialParamsSource = `struct MaterialParams {
    base_color: vec4<f32>,
    emissive: vec3<f32>,
    metallic: f32,
    roughness: f32,
    flags: u32,
    _pad: vec2<f32>,
};`

// GPUMaterialParams is the GPU-aligned uniform for the geometry pass material bind group.
// Size: 48 bytes (std140 aligned).
type GPUMaterialParams struct {
	BaseColor [4]float32 // offset  0: RGBA albedo (16 bytes)
	Emissive  [3]float32 // offset 16: emitted radiance (12 bytes)
	Metallic  float32    // offset 28: metallic factor (4 bytes)
	Roughness float32    // offset 32: roughness factor (4 bytes)
	Flags     uint32     // offset 36: TypeBits (4 bytes)
	_         [2]float32 // offset 40: padding to 48 (8 bytes)
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 48)
	for i, v := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range g.Emissive {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[36:40], g.Flags)
	return buf
}
