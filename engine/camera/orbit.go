package camera

import (
	"math"
	"reflect"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/input"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Orbit places its node on a sphere around a target and aims it at the target.
type Orbit struct {
	Target    mgl32.Vec3
	Radius    float32
	Azimuth   float32 // horizontal angle around Y
	Elevation float32 // vertical angle from the horizontal plane

	MinRadius    float32
	MaxRadius    float32
	MinElevation float32
	MaxElevation float32

	OrbitSpeed float32 // radians per second
	ZoomSpeed  float32
	PanSpeed   float32 // world units per second
}

// NewOrbit creates an orbit controller with the given radius and default bounds.
//
// Parameters:
//   - target: the point to orbit
//   - radius: the distance from the target
//
// Returns:
//   - *Orbit: the orbit component
func NewOrbit(target mgl32.Vec3, radius float32) *Orbit {
	return &Orbit{
		Target:       target,
		Radius:       radius,
		Elevation:    float32(math.Pi / 6),
		MinRadius:    1.0,
		MaxRadius:    500.0,
		MinElevation: -float32(math.Pi/2 - 0.1),
		MaxElevation: float32(math.Pi/2 - 0.1),
		OrbitSpeed:   1.8,
		ZoomSpeed:    1.5,
		PanSpeed:     10.0,
	}
}

func (o *Orbit) Name() string {
	return "Orbit"
}

// Position returns the point on the orbit sphere for the current angles.
func (o *Orbit) Position() mgl32.Vec3 {
	cosElev := float32(math.Cos(float64(o.Elevation)))
	sinElev := float32(math.Sin(float64(o.Elevation)))
	cosAzim := float32(math.Cos(float64(o.Azimuth)))
	sinAzim := float32(math.Sin(float64(o.Azimuth)))
	return mgl32.Vec3{
		o.Target[0] + o.Radius*cosElev*sinAzim,
		o.Target[1] + o.Radius*sinElev,
		o.Target[2] + o.Radius*cosElev*cosAzim,
	}
}

// Zoom moves toward the target for positive delta, clamped to the radius bounds.
func (o *Orbit) Zoom(delta float32) {
	o.Radius = mgl32.Clamp(o.Radius-delta*o.ZoomSpeed, o.MinRadius, o.MaxRadius)
}

// Rotate changes the azimuth and elevation, clamping the elevation.
func (o *Orbit) Rotate(dAzimuth, dElevation float32) {
	o.Azimuth += dAzimuth
	o.Elevation = mgl32.Clamp(o.Elevation+dElevation, o.MinElevation, o.MaxElevation)
}

// Pan shifts the target along the horizontal right and forward axes of the current view.
func (o *Orbit) Pan(right, forward float32) {
	sinAzim := float32(math.Sin(float64(o.Azimuth)))
	cosAzim := float32(math.Cos(float64(o.Azimuth)))
	// forward points from the eye toward the target, flattened onto XZ
	fwd := mgl32.Vec3{-sinAzim, 0, -cosAzim}
	rgt := mgl32.Vec3{cosAzim, 0, -sinAzim}
	o.Target = o.Target.Add(rgt.Mul(right)).Add(fwd.Mul(forward))
}

// Apply writes the orbit position and a rotation facing the target into t.
func (o *Orbit) Apply(t transform.Transform) {
	eye := o.Position()
	view := mgl32.LookAtV(eye, o.Target, mgl32.Vec3{0, 1, 0})
	t.SetTranslation(eye)
	t.SetRotation(mgl32.Mat4ToQuat(view.Inv()).Normalize())
}

// OrbitSystem drives Orbit components from input during early update: arrow keys rotate, the wheel zooms, and
// control plus arrows pans.
type OrbitSystem struct {
	in      input.Input
	tracker *scene.Tracker[*Orbit]
}

var _ scene.NodeSystem = &OrbitSystem{}
var _ scene.EarlyUpdater = &OrbitSystem{}

// NewOrbitSystem creates an orbit system reading the given input.
//
// Parameters:
//   - in: the frame input
//   - log: the logger for diagnostics, or nil
//
// Returns:
//   - *OrbitSystem: the new system
func NewOrbitSystem(in input.Input, log *zap.Logger) *OrbitSystem {
	return &OrbitSystem{in: in, tracker: scene.NewTracker[*Orbit](log, "orbit")}
}

func (s *OrbitSystem) ComponentType() reflect.Type {
	return reflect.TypeFor[*Orbit]()
}

func (s *OrbitSystem) OnCreate(n scene.Node, c any) {
	o := c.(*Orbit)
	s.tracker.Track(n, o)
	o.Apply(n.Transform())
}

func (s *OrbitSystem) OnDestroy(n scene.Node, c any) {
	s.tracker.Untrack(c.(*Orbit))
}

func (s *OrbitSystem) EarlyUpdate(dt float32) {
	st := s.in.Current()
	h := st.Axis(common.KeyLeft, common.KeyRight)
	v := st.Axis(common.KeyDown, common.KeyUp)
	pan := st.Held(common.KeyLeftControl)

	s.tracker.Each(func(n scene.Node, o *Orbit) {
		if pan {
			o.Pan(h*o.PanSpeed*dt, v*o.PanSpeed*dt)
		} else {
			o.Rotate(h*o.OrbitSpeed*dt, v*o.OrbitSpeed*dt)
		}
		if st.Scroll != 0 {
			o.Zoom(st.Scroll)
		}
		o.Apply(n.Transform())
	})
}
