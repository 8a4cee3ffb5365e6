package material

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
)

// materialCount hands out material identities in creation order.
var materialCount atomic.Uint64

// TypeBits classifies a material for pipeline selection. Draw lists sort on these bits first so materials sharing a pipeline
// variant are drawn together.
type TypeBits uint32

const (
	// TypeNormalMapped selects the normal-mapped geometry pipeline. Meshes drawn with it must carry tangents.
	TypeNormalMapped TypeBits = 1 << iota
	// TypeEmissive marks materials with a non-zero emission term.
	TypeEmissive
	// TypeUnlit writes base color straight to emission and skips lighting.
	TypeUnlit
)

// Has reports whether every bit in flag is set.
func (t TypeBits) Has(flag TypeBits) bool {
	return t&flag == flag
}

// material is the implementation of the Material interface.
type material struct {
	id       uint64
	name     string
	typeBits TypeBits

	baseColor [4]float32
	emissive  [3]float32
	metallic  float32
	roughness float32

	diffuseTexture           *common.TextureStagingData
	normalTexture            *common.TextureStagingData
	metallicRoughnessTexture *common.TextureStagingData
	sampler                  *common.SamplerStagingData

	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Material defines the interface for a render material, encapsulating surface
// properties, texture references, and GPU resource bindings needed for draw calls.
//
// Surface properties are set at construction and are read-only through this interface.
// The bind group provider is created lazily by the render graph the first time the
// material is drawn.
type Material interface {
	// ID retrieves the material identity. Identities are unique and increase in creation order.
	//
	// Returns:
	//   - uint64: the material identity
	ID() uint64

	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// TypeBits retrieves the pipeline classification bits.
	//
	// Returns:
	//   - TypeBits: the material type bits
	TypeBits() TypeBits

	// BaseColor retrieves the albedo/diffuse RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Emissive retrieves the emitted RGB radiance.
	//
	// Returns:
	//   - [3]float32: the emissive color
	Emissive() [3]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// DiffuseTexture retrieves the decoded diffuse/albedo texture, or nil if none is set.
	//
	// Returns:
	//   - *common.TextureStagingData: the diffuse texture, or nil
	DiffuseTexture() *common.TextureStagingData

	// NormalTexture retrieves the decoded normal map, or nil if none is set.
	//
	// Returns:
	//   - *common.TextureStagingData: the normal texture, or nil
	NormalTexture() *common.TextureStagingData

	// MetallicRoughnessTexture retrieves the decoded metallic-roughness texture, or nil if none is set.
	//
	// Returns:
	//   - *common.TextureStagingData: the metallic-roughness texture, or nil
	MetallicRoughnessTexture() *common.TextureStagingData

	// Sampler retrieves the sampler configuration for the material textures.
	//
	// Returns:
	//   - *common.SamplerStagingData: the sampler configuration
	Sampler() *common.SamplerStagingData

	// Params returns the GPU uniform block for this material.
	//
	// Returns:
	//   - GPUMaterialParams: the uniform data
	Params() GPUMaterialParams

	// BindGroupProvider retrieves the bind group provider holding GPU-side resources for this material.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bind group provider, or nil if not yet initialized
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetBindGroupProvider sets the bind group provider for this material.
	//
	// Parameters:
	//   - provider: the bind group provider containing GPU resources for this material
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)

	// Destroy releases the GPU resources held by the material.
	Destroy()
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		id:        materialCount.Add(1),
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
		sampler:   common.LinearRepeatSampler(),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.emissive != [3]float32{} {
		m.typeBits |= TypeEmissive
	}
	return m
}

func (m *material) ID() uint64 {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) TypeBits() TypeBits {
	return m.typeBits
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Emissive() [3]float32 {
	return m.emissive
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) DiffuseTexture() *common.TextureStagingData {
	return m.diffuseTexture
}

func (m *material) NormalTexture() *common.TextureStagingData {
	return m.normalTexture
}

func (m *material) MetallicRoughnessTexture() *common.TextureStagingData {
	return m.metallicRoughnessTexture
}

func (m *material) Sampler() *common.SamplerStagingData {
	return m.sampler
}

func (m *material) Params() GPUMaterialParams {
	return GPUMaterialParams{
		BaseColor: m.baseColor,
		Emissive:  m.emissive,
		Metallic:  m.metallic,
		Roughness: m.roughness,
		Flags:     uint32(m.typeBits),
	}
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.bindGroupProvider
}

func (m *material) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.bindGroupProvider = provider
}

func (m *material) Destroy() {
	if m.bindGroupProvider != nil {
		m.bindGroupProvider.Release()
		m.bindGroupProvider = nil
	}
}
