package light

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Entry is one light that contributes to the current frame.
type Entry struct {
	Light Light
	Node  scene.Node
	GPU   GPULight
}

// Shadow is one assigned shadow map slot.
type Shadow struct {
	Slot     int
	Light    Light
	ViewProj mgl32.Mat4
	Data     GPUShadowData
}

// Frame is the per-frame output of the light system.
type Frame struct {
	Ambient [3]float32
	// Lights are in tracking order with disabled and near-zero lights removed.
	Lights []Entry
	// Shadows[i].Slot == i.
	Shadows []Shadow
}

// LightBuffer marshals the frame's lights as a GPULightHeader followed by one GPULight per entry.
//
// Returns:
//   - []byte: the light storage buffer contents
func (f *Frame) LightBuffer() []byte {
	headerSize := (&GPULightHeader{}).Size()
	lightSize := (&GPULight{}).Size()
	buf := make([]byte, headerSize+len(f.Lights)*lightSize)

	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(f.Ambient[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(f.Ambient[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(f.Ambient[2]))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(f.Lights)))

	offset := headerSize
	for i := range f.Lights {
		f.Lights[i].GPU.marshalTo(buf[offset : offset+lightSize])
		offset += lightSize
	}
	return buf
}

// ShadowBuffer marshals one GPUShadowData per assigned slot, in slot order.
//
// Returns:
//   - []byte: the shadow storage buffer contents
func (f *Frame) ShadowBuffer() []byte {
	size := (&GPUShadowData{}).Size()
	buf := make([]byte, len(f.Shadows)*size)
	for i := range f.Shadows {
		f.Shadows[i].Data.marshalTo(buf[i*size : (i+1)*size])
	}
	return buf
}

// System tracks Light components and rebuilds the frame's light array and shadow slots after propagation.
type System struct {
	log             *zap.Logger
	tracker         *scene.Tracker[Light]
	maxSlots        int
	resolution      int
	halfExtent      float32
	near            float32
	far             float32
	bias            float32
	normalBiasScale float32
	pointWarned     map[Light]struct{}
	view            *common.Frustum
	frame           Frame
}

var _ scene.NodeSystem = &System{}

// NewSystem creates a light system.
//
// Parameters:
//   - opts: variadic list of SystemBuilderOption functions
//
// Returns:
//   - *System: the new system
func NewSystem(opts ...SystemBuilderOption) *System {
	s := &System{
		log:             zap.NewNop(),
		maxSlots:        MaxShadowSlots,
		resolution:      ShadowMapResolution,
		halfExtent:      DefaultShadowHalfExtent,
		near:            DefaultShadowNear,
		far:             DefaultShadowFar,
		bias:            DefaultShadowBias,
		normalBiasScale: DefaultShadowNormalBiasScale,
		pointWarned:     make(map[Light]struct{}),
		frame: Frame{
			Ambient: [3]float32{0.03, 0.03, 0.03},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracker = scene.NewTracker[Light](s.log, "light")
	return s
}

func (s *System) ComponentType() reflect.Type {
	return reflect.TypeFor[*lightImpl]()
}

func (s *System) OnCreate(n scene.Node, c any) {
	s.tracker.Track(n, c.(Light))
}

func (s *System) OnDestroy(n scene.Node, c any) {
	l := c.(Light)
	s.tracker.Untrack(l)
	delete(s.pointWarned, l)
}

// Len returns the number of tracked lights.
func (s *System) Len() int {
	return s.tracker.Len()
}

// MaxShadowSlots returns the number of shadow map layers the system may assign.
func (s *System) MaxShadowSlots() int {
	return s.maxSlots
}

// ShadowMapResolution returns the shadow map resolution in texels.
func (s *System) ShadowMapResolution() int {
	return s.resolution
}

// SetView restricts point and spot lights to those whose range sphere touches the view frustum of viewProj. A light
// entirely outside the view cannot light a visible pixel.
func (s *System) SetView(viewProj mgl32.Mat4) {
	f := common.ExtractFrustum(viewProj[:])
	s.view = &f
}

// ClearView removes the view set by SetView so every light is kept.
func (s *System) ClearView() {
	s.view = nil
}

// Rebuild walks tracked lights in tracking order, skips disabled and near-zero ones as well as lights outside the view,
// and assigns shadow slots to shadow-casting directional and spot lights until the slots run out. Directional frusta
// are centered on focus. Must run after the scene propagated the current frame. The returned frame is reused by the next call.
//
// Parameters:
//   - focus: world-space center for directional shadow frusta, usually the camera position
//
// Returns:
//   - *Frame: the frame's lights and shadows
func (s *System) Rebuild(focus mgl32.Vec3) *Frame {
	s.frame.Lights = s.frame.Lights[:0]
	s.frame.Shadows = s.frame.Shadows[:0]
	dropped, truncated := 0, 0

	s.tracker.Each(func(n scene.Node, l Light) {
		if !l.Enabled() || absF32(l.Intensity()) < MinIntensity {
			return
		}
		if !n.Propagated() {
			s.log.Debug("light skipped, node not under the root", zap.String("node", n.String()))
			return
		}
		global := n.Global()
		position := global.Col(3).Vec3()
		if s.view != nil && l.Type() != LightTypeDirectional && !s.view.IntersectsSphere(position, l.Range()) {
			return
		}
		if len(s.frame.Lights) >= MaxGPULights {
			truncated++
			return
		}
		direction := global.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()
		if direction.Len() == 0 {
			direction = mgl32.Vec3{0, 0, -1}
		}
		direction = direction.Normalize()

		gpu := GPULight{
			Position:   position,
			LightType:  uint32(l.Type()),
			Color:      l.Color(),
			Intensity:  l.Intensity(),
			Direction:  direction,
			LightRange: l.Range(),
			InnerCone:  l.InnerCone(),
			OuterCone:  l.OuterCone(),
			ShadowSlot: NoShadow,
		}

		if l.CastsShadows() {
			switch {
			case l.Type() == LightTypePoint:
				if _, ok := s.pointWarned[l]; !ok {
					s.pointWarned[l] = struct{}{}
					s.log.Warn("point lights cannot cast shadows; shadows skipped",
						zap.String("node", n.String()),
					)
				}
			case len(s.frame.Shadows) >= s.maxSlots:
				dropped++
			default:
				gpu.ShadowSlot = int32(len(s.frame.Shadows))
				s.frame.Shadows = append(s.frame.Shadows, s.shadowFor(l, position, direction, focus))
			}
		}

		s.frame.Lights = append(s.frame.Lights, Entry{Light: l, Node: n, GPU: gpu})
	})

	if dropped > 0 {
		s.log.Warn("shadow slots exhausted",
			zap.Int("slots", s.maxSlots),
			zap.Int("dropped", dropped),
		)
	}
	if truncated > 0 {
		s.log.Warn("light budget exceeded",
			zap.Int("max", MaxGPULights),
			zap.Int("dropped", truncated),
		)
	}
	return &s.frame
}

func (s *System) shadowFor(l Light, position, direction, focus mgl32.Vec3) Shadow {
	sh := Shadow{Slot: len(s.frame.Shadows), Light: l}
	texel := 1 / float32(s.resolution)
	sh.Data.TexelSize = [2]float32{texel, texel}
	sh.Data.Bias = s.bias

	if l.Type() == LightTypeSpot {
		sh.Data.ComputeSpotLightVP(position, direction, l.OuterCone(), DefaultSpotShadowNear, l.Range())
		// texel footprint at the far plane
		half := l.Range() * float32(math.Tan(float64(SpotFOV(l.OuterCone()))/2))
		sh.Data.ComputeNormalBias(half, s.normalBiasScale, s.resolution)
	} else {
		sh.Data.ComputeDirectionalLightVP(direction, focus, s.halfExtent, s.near, s.far)
		sh.Data.ComputeNormalBias(s.halfExtent, s.normalBiasScale, s.resolution)
	}
	sh.ViewProj = mgl32.Mat4(sh.Data.LightVP)
	return sh
}
