package audio

import (
	"math"
	"reflect"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"go.uber.org/zap"
)

// System plays Source components through one mixer and updates their gain and pan during late update, before the
// frame's propagation.
type System struct {
	log      *zap.Logger
	bank     *Bank
	out      Output
	mixer    *beep.Mixer
	tracker  *scene.Tracker[*Source]
	listener scene.Node
	missing  map[*Source]struct{}
	master   float64
}

var _ scene.NodeSystem = &System{}
var _ scene.LateUpdater = &System{}

// NewSystem creates a sound system and starts its mixer on out.
//
// Parameters:
//   - bank: the sound bank
//   - out: where the mixer is played
//   - opts: variadic list of SystemBuilderOption functions
//
// Returns:
//   - *System: the new system
func NewSystem(bank *Bank, out Output, opts ...SystemBuilderOption) *System {
	s := &System{
		log:     zap.NewNop(),
		bank:    bank,
		out:     out,
		mixer:   &beep.Mixer{},
		missing: make(map[*Source]struct{}),
		master:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracker = scene.NewTracker[*Source](s.log, "sound source")
	out.Play(s.mixer)
	return s
}

// SetListener sets the node sources are spatialized against. A zero node disables spatialization.
//
// Parameters:
//   - n: the listener node, usually the camera
func (s *System) SetListener(n scene.Node) {
	s.listener = n
}

// Len returns the number of tracked sources.
func (s *System) Len() int {
	return s.tracker.Len()
}

func (s *System) ComponentType() reflect.Type {
	return reflect.TypeFor[*Source]()
}

func (s *System) OnCreate(n scene.Node, c any) {
	src := c.(*Source)
	s.tracker.Track(n, src)
	if src.Autoplay {
		src.pending = true
	}
}

func (s *System) OnDestroy(n scene.Node, c any) {
	src := c.(*Source)
	s.out.Lock()
	src.stop()
	s.out.Unlock()
	s.tracker.Untrack(src)
	delete(s.missing, src)
}

// Close stops every source and the output.
func (s *System) Close() {
	s.out.Lock()
	s.tracker.Each(func(_ scene.Node, src *Source) {
		src.stop()
	})
	s.mixer.Clear()
	s.out.Unlock()
	s.out.Close()
}

func (s *System) LateUpdate(dt float32) {
	var listener mgl32.Mat4
	spatial := s.listener.Valid()
	if spatial {
		listener = s.listener.PreviousGlobal()
	}

	s.out.Lock()
	defer s.out.Unlock()

	s.tracker.Each(func(n scene.Node, src *Source) {
		if src.pending {
			src.pending = false
			s.start(n, src)
		}
		if src.ctrl == nil {
			return
		}
		gain, pan := src.Volume*s.master, 0.0
		if src.Spatial && spatial {
			g, p := spatialize(listener, n.PreviousGlobal().Col(3).Vec3(), src.MaxDistance)
			gain *= g
			pan = p
		}
		src.gain = gain
		src.pan.Pan = pan
		if gain <= 0 {
			src.volume.Silent = true
		} else {
			src.volume.Silent = false
			src.volume.Volume = math.Log2(gain)
		}
	})
}

// start must run with the output locked.
func (s *System) start(n scene.Node, src *Source) {
	src.stop()
	stream, ok := s.bank.Streamer(src.Sound)
	if !ok {
		if _, warned := s.missing[src]; !warned {
			s.missing[src] = struct{}{}
			s.log.Warn("sound not in bank",
				zap.String("sound", src.Sound),
				zap.String("node", n.String()),
			)
		}
		return
	}

	var body beep.Streamer = stream
	if src.Loop {
		body = beep.Loop(-1, stream)
	}
	done := &atomic.Bool{}
	src.done = done
	src.pan = &effects.Pan{Streamer: body}
	src.volume = &effects.Volume{Streamer: src.pan, Base: 2}
	src.ctrl = &beep.Ctrl{Streamer: beep.Seq(src.volume, beep.Callback(func() { done.Store(true) }))}
	s.mixer.Add(src.ctrl)
}

// spatialize returns the distance gain and stereo pan of a source at p heard by a listener with global matrix l.
func spatialize(l mgl32.Mat4, p mgl32.Vec3, maxDistance float32) (gain, pan float64) {
	rel := p.Sub(l.Col(3).Vec3())
	d := rel.Len()
	gain = 1
	if maxDistance > 0 {
		gain = float64(mgl32.Clamp(1-d/maxDistance, 0, 1))
	}
	if d < 1e-4 {
		return gain, 0
	}
	right := l.Col(0).Vec3()
	if right.Len() == 0 {
		return gain, 0
	}
	pan = float64(mgl32.Clamp(rel.Normalize().Dot(right.Normalize()), -1, 1))
	return gain, pan
}
