// Package light provides the Light node component and the observer system that turns tracked lights into the per-frame
// light array and shadow view-projections consumed by the shade and shadow passes.
package light

import "fmt"

// LightType identifies the kind of light source.
type LightType uint32

const (
	// LightTypeDirectional is an infinitely distant light that illuminates along the owning node's forward axis.
	LightTypeDirectional LightType = iota
	// LightTypePoint is an omnidirectional light at the owning node's position with range-based attenuation.
	LightTypePoint
	// LightTypeSpot is a cone-shaped light at the owning node's position aimed along its forward axis.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	}
	return fmt.Sprintf("LightType(%d)", uint32(t))
}

type lightImpl struct {
	lightType    LightType
	color        [3]float32
	intensity    float32
	lightRange   float32
	innerCone    float32 // cosine of inner half-angle
	outerCone    float32 // cosine of outer half-angle
	enabled      bool
	castsShadows bool
}

// Light is a light source component. Position and direction are not stored on the light; they come from the global
// transform of the node the light is attached to.
type Light interface {
	// Type returns the kind of light.
	//
	// Returns:
	//   - LightType: the light type
	Type() LightType

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - [3]float32: linear RGB color
	Color() [3]float32

	// Intensity returns the scalar intensity multiplier. Lights with near-zero intensity are skipped each frame.
	//
	// Returns:
	//   - float32: the intensity
	Intensity() float32

	// Range returns the attenuation cutoff distance for point and spot lights. For spot lights it is also the far plane
	// of the shadow projection.
	//
	// Returns:
	//   - float32: the range in world units
	Range() float32

	// InnerCone returns the cosine of the inner cone half-angle of a spot light.
	//
	// Returns:
	//   - float32: cos(inner half-angle)
	InnerCone() float32

	// OuterCone returns the cosine of the outer cone half-angle of a spot light.
	//
	// Returns:
	//   - float32: cos(outer half-angle)
	OuterCone() float32

	// Enabled returns whether the light contributes to the frame.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// CastsShadows returns whether the light requests a shadow map slot. Point lights never receive one.
	//
	// Returns:
	//   - bool: true if shadows are requested
	CastsShadows() bool

	// Name returns a display name for scene dumps.
	//
	// Returns:
	//   - string: the display name
	Name() string

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// SetRange sets the attenuation cutoff distance.
	//
	// Parameters:
	//   - lightRange: the range value
	SetRange(lightRange float32)

	// SetSpotCone sets the inner and outer cone half-angles in degrees.
	//
	// Parameters:
	//   - innerDeg: inner cone half-angle in degrees
	//   - outerDeg: outer cone half-angle in degrees
	SetSpotCone(innerDeg, outerDeg float32)

	// SetEnabled enables or disables the light.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetCastsShadows sets whether the light requests a shadow map slot.
	//
	// Parameters:
	//   - castsShadows: true to request shadows
	SetCastsShadows(castsShadows bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with defaults and any provided options applied.
//
// Parameters:
//   - lightType: the kind of light to create
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:  lightType,
		color:      [3]float32{1, 1, 1},
		intensity:  1.0,
		lightRange: 10.0,
		innerCone:  0.9063, // cos(25°)
		outerCone:  0.8192, // cos(35°)
		enabled:    true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) CastsShadows() bool {
	return l.castsShadows
}

func (l *lightImpl) Name() string {
	return "Light(" + l.lightType.String() + ")"
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.lightRange = lightRange
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.castsShadows = castsShadows
}
