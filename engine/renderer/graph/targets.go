package graph

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// Intermediate render target names.
const (
	TargetBaseColor  = "gbuffer_base_color"
	TargetNormal     = "gbuffer_normal"
	TargetMetalRough = "gbuffer_metal_rough"
	TargetEmission   = "gbuffer_emission"
	TargetDepth      = "gbuffer_depth"
	TargetSSAO       = "ssao"
	TargetHDR        = "hdr"
	TargetBloom      = "bloom"
	TargetShadow     = "shadow_map"
)

var (
	gbufferFormats = []wgpu.TextureFormat{
		wgpu.TextureFormatRGBA8UnormSrgb,
		wgpu.TextureFormatRGBA16Float,
		wgpu.TextureFormatRGBA8Unorm,
		wgpu.TextureFormatRGBA16Float,
	}
	gbufferTargets = []string{TargetBaseColor, TargetNormal, TargetMetalRough, TargetEmission}
)

const (
	depthFormat = wgpu.TextureFormatDepth32Float
	ssaoFormat  = wgpu.TextureFormatR8Unorm
	hdrFormat   = wgpu.TextureFormatRGBA16Float
)

// targetDescriptors lists every intermediate target. The bloom texture has two layers for the blur ping-pong; the
// shadow map is a fixed-size array with one layer per shadow slot.
func targetDescriptors(shadowResolution uint32) []renderer.TargetDescriptor {
	descs := make([]renderer.TargetDescriptor, 0, 9)
	for i, name := range gbufferTargets {
		descs = append(descs, renderer.TargetDescriptor{Name: name, Format: gbufferFormats[i]})
	}
	return append(descs,
		renderer.TargetDescriptor{Name: TargetDepth, Format: depthFormat},
		renderer.TargetDescriptor{Name: TargetSSAO, Format: ssaoFormat},
		renderer.TargetDescriptor{Name: TargetHDR, Format: hdrFormat},
		renderer.TargetDescriptor{Name: TargetBloom, Format: hdrFormat, Layers: 2},
		renderer.TargetDescriptor{
			Name:   TargetShadow,
			Format: depthFormat,
			Layers: light.MaxShadowSlots,
			Array:  true,
			Size:   shadowResolution,
		},
	)
}
