package renderer

import "go.uber.org/zap"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLogger sets the logger for device warnings and shader validation issues.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger option to a renderer
func WithLogger(log *zap.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.log = log
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithTimestampPairs enables GPU pass timings with room for n passes per frame. Each pass uses two queries. Zero
// disables timestamps, which is also what happens on adapters without timestamp query support.
//
// Parameters:
//   - n: the number of begin/end query pairs per frame
//
// Returns:
//   - RendererBuilderOption: a function that applies the timestamp option to a renderer
func WithTimestampPairs(n uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.timestampPairs = n
	}
}

// WithTimestampPeriod sets the nanoseconds per timestamp tick. The default of 1 matches wgpu-native on most
// backends, which reports timestamps already in nanoseconds.
//
// Parameters:
//   - ns: nanoseconds per tick
//
// Returns:
//   - RendererBuilderOption: a function that applies the period option to a renderer
func WithTimestampPeriod(ns float32) RendererBuilderOption {
	return func(r *renderer) {
		r.timestampPeriod = ns
	}
}

// WithShaderValidation toggles naga validation at pipeline registration. It is on by default.
func WithShaderValidation(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.validateShaders = enabled
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
