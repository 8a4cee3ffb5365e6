package graph

import (
	"io/fs"

	"go.uber.org/zap"
)

// GraphBuilderOption is a functional option applied to a graph during construction via NewGraph.
type GraphBuilderOption func(*graph)

// WithLogger sets the logger for pass diagnostics.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - GraphBuilderOption: a function that applies the logger option
func WithLogger(log *zap.Logger) GraphBuilderOption {
	return func(g *graph) {
		if log != nil {
			g.log = log
		}
	}
}

// WithShaderSources replaces the embedded shaders, for example with os.DirFS while editing them.
//
// Parameters:
//   - sources: a file system laid out like ShaderSources
//
// Returns:
//   - GraphBuilderOption: a function that applies the shader source option
func WithShaderSources(sources fs.FS) GraphBuilderOption {
	return func(g *graph) {
		g.sources = sources
	}
}

// WithTimingRecorder sets where GPU pass timings are reported.
func WithTimingRecorder(r TimingRecorder) GraphBuilderOption {
	return func(g *graph) {
		g.recorder = r
	}
}

// WithFog sets the initial fog settings.
func WithFog(fog Fog) GraphBuilderOption {
	return func(g *graph) {
		g.fog = fog
	}
}

// WithBloom sets the initial bloom settings.
func WithBloom(bloom Bloom) GraphBuilderOption {
	return func(g *graph) {
		g.bloom = bloom
	}
}

// WithSSAO sets the initial SSAO settings.
func WithSSAO(ssao SSAO) GraphBuilderOption {
	return func(g *graph) {
		g.ssao = ssao
	}
}

// WithSky sets the sky colors and the fallback sun direction.
func WithSky(sky Sky) GraphBuilderOption {
	return func(g *graph) {
		g.sky = sky
	}
}

// WithExposure sets the initial exposure multiplier.
func WithExposure(exposure float32) GraphBuilderOption {
	return func(g *graph) {
		g.exposure = exposure
	}
}

// WithShadowResolution sets the shadow map size in texels. It must match the light system's resolution so shadow
// texel sizes agree.
//
// Parameters:
//   - resolution: the width and height of each shadow map layer
//
// Returns:
//   - GraphBuilderOption: a function that applies the resolution option
func WithShadowResolution(resolution int) GraphBuilderOption {
	return func(g *graph) {
		if resolution > 0 {
			g.shadowResolution = uint32(resolution)
		}
	}
}
