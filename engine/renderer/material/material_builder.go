package material

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithTypeBits is an option builder that adds pipeline classification bits.
//
// Parameters:
//   - bits: the bits to set
//
// Returns:
//   - MaterialBuilderOption: a function that applies the type bits to a material
func WithTypeBits(bits TypeBits) MaterialBuilderOption {
	return func(m *material) {
		m.typeBits |= bits
	}
}

// WithBaseColor is an option builder that sets the albedo/diffuse RGBA color of the material.
//
// Parameters:
//   - color: the base color as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithEmissive is an option builder that sets the emitted radiance. A non-zero value also sets TypeEmissive.
//
// Parameters:
//   - color: the emissive RGB color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive option to a material
func WithEmissive(color [3]float32) MaterialBuilderOption {
	return func(m *material) {
		m.emissive = color
	}
}

// WithMetallic is an option builder that sets the metallic factor of the material.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithDiffuseTexture is an option builder that sets the diffuse/albedo texture.
//
// Parameters:
//   - tex: the decoded diffuse texture
//
// Returns:
//   - MaterialBuilderOption: a function that applies the diffuse texture option to a material
func WithDiffuseTexture(tex *common.TextureStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.diffuseTexture = tex
	}
}

// WithNormalTexture is an option builder that sets the normal map and marks the material normal-mapped.
//
// Parameters:
//   - tex: the decoded normal map
//
// Returns:
//   - MaterialBuilderOption: a function that applies the normal texture option to a material
func WithNormalTexture(tex *common.TextureStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.normalTexture = tex
		if tex != nil {
			m.typeBits |= TypeNormalMapped
		}
	}
}

// WithMetallicRoughnessTexture is an option builder that sets the metallic-roughness texture.
//
// Parameters:
//   - tex: the decoded metallic-roughness map
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic-roughness texture option to a material
func WithMetallicRoughnessTexture(tex *common.TextureStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.metallicRoughnessTexture = tex
	}
}

// WithSampler is an option builder that overrides the texture sampler configuration.
//
// Parameters:
//   - s: the sampler configuration
//
// Returns:
//   - MaterialBuilderOption: a function that applies the sampler option to a material
func WithSampler(s *common.SamplerStagingData) MaterialBuilderOption {
	return func(m *material) {
		if s != nil {
			m.sampler = s
		}
	}
}
