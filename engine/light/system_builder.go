package light

import "go.uber.org/zap"

// SystemBuilderOption is a function that configures a light System during construction.
type SystemBuilderOption func(*System)

// WithLogger sets the logger used for light diagnostics.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - SystemBuilderOption: a function that applies the logger option
func WithLogger(log *zap.Logger) SystemBuilderOption {
	return func(s *System) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMaxShadowSlots sets how many shadow map layers may be assigned per frame.
//
// Parameters:
//   - n: the slot count, clamped to [0, MaxShadowSlots] since the shadow atlas has a fixed layer count
//
// Returns:
//   - SystemBuilderOption: a function that applies the slot count option
func WithMaxShadowSlots(n int) SystemBuilderOption {
	return func(s *System) {
		s.maxSlots = min(max(n, 0), MaxShadowSlots)
	}
}

// WithShadowMapResolution sets the shadow map resolution used for texel size and normal bias.
//
// Parameters:
//   - resolution: width and height in texels
//
// Returns:
//   - SystemBuilderOption: a function that applies the resolution option
func WithShadowMapResolution(resolution int) SystemBuilderOption {
	return func(s *System) {
		if resolution > 0 {
			s.resolution = resolution
		}
	}
}

// WithShadowHalfExtent sets the half-size of directional shadow frusta.
//
// Parameters:
//   - halfExtent: half-extent in world units
//
// Returns:
//   - SystemBuilderOption: a function that applies the half-extent option
func WithShadowHalfExtent(halfExtent float32) SystemBuilderOption {
	return func(s *System) {
		s.halfExtent = halfExtent
	}
}

// WithShadowDepthRange sets the near and far planes of directional shadow frusta.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - SystemBuilderOption: a function that applies the depth range option
func WithShadowDepthRange(near, far float32) SystemBuilderOption {
	return func(s *System) {
		s.near = near
		s.far = far
	}
}

// WithShadowBias sets the constant depth bias and the normal bias scale.
//
// Parameters:
//   - bias: constant depth bias
//   - normalBiasScale: multiplier on the texel world size for the normal offset
//
// Returns:
//   - SystemBuilderOption: a function that applies the bias option
func WithShadowBias(bias, normalBiasScale float32) SystemBuilderOption {
	return func(s *System) {
		s.bias = bias
		s.normalBiasScale = normalBiasScale
	}
}

// WithAmbient sets the ambient color written into the light buffer header.
//
// Parameters:
//   - ambient: linear RGB ambient color
//
// Returns:
//   - SystemBuilderOption: a function that applies the ambient option
func WithAmbient(ambient [3]float32) SystemBuilderOption {
	return func(s *System) {
		s.frame.Ambient = ambient
	}
}
