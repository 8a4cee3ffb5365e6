package graph

// FogMode selects the distance fog curve applied by the postprocess pass.
type FogMode uint32

const (
	FogNone FogMode = iota
	FogLinear
	FogExponential
	FogExponentialSquared
)

// Fog configures distance fog. Linear fog ramps from Start to End; the exponential curves start at Start and grow with
// Density.
type Fog struct {
	Mode    FogMode
	Color   [3]float32
	Start   float32
	End     float32
	Density float32
}

// Bloom configures the bright-pass extraction and the separable blur.
type Bloom struct {
	Enabled   bool
	Threshold float32
	// Knee softens the threshold over [Threshold-Knee, Threshold+Knee].
	Knee      float32
	Intensity float32
	// Radius is the blur radius in texels, clamped to MaxBloomRadius.
	Radius int
}

// SSAO configures screen-space ambient occlusion. A disabled SSAO pass only clears the occlusion target to 1.
type SSAO struct {
	Enabled   bool
	Radius    float32
	Bias      float32
	Intensity float32
	// Samples is the hemisphere sample count, clamped to MaxSSAOSamples.
	Samples int
}

// Sky configures the procedural gradient sky. The sun follows the first directional light of the frame and falls back
// to SunDirection when there is none.
type Sky struct {
	Zenith       [3]float32
	Horizon      [3]float32
	Ground       [3]float32
	SunDirection [3]float32
	// SunSize is the angular radius of the sun disc in radians.
	SunSize      float32
	SunIntensity float32
}

// MaxBloomRadius is the largest blur radius the bloom uniform can carry.
const MaxBloomRadius = 31

// MaxSSAOSamples is the size of the SSAO hemisphere kernel.
const MaxSSAOSamples = 32

// DefaultFog returns fog disabled.
func DefaultFog() Fog {
	return Fog{Mode: FogNone, Color: [3]float32{0.6, 0.65, 0.7}, Start: 20, End: 150, Density: 0.02}
}

// DefaultBloom returns the bloom settings used when none are configured.
func DefaultBloom() Bloom {
	return Bloom{Enabled: true, Threshold: 1.0, Knee: 0.5, Intensity: 0.6, Radius: 8}
}

// DefaultSSAO returns the SSAO settings used when none are configured.
func DefaultSSAO() SSAO {
	return SSAO{Enabled: true, Radius: 0.5, Bias: 0.025, Intensity: 1.0, Samples: 16}
}

// DefaultSky returns a clear daytime sky.
func DefaultSky() Sky {
	return Sky{
		Zenith:       [3]float32{0.18, 0.36, 0.72},
		Horizon:      [3]float32{0.62, 0.74, 0.86},
		Ground:       [3]float32{0.22, 0.2, 0.18},
		SunDirection: [3]float32{-0.4, -1, -0.3},
		SunSize:      0.03,
		SunIntensity: 8,
	}
}
