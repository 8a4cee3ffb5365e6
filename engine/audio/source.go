package audio

import (
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Source is a node component that plays one sound from the bank at the node's position.
type Source struct {
	Sound string
	// Volume is a linear gain applied before attenuation.
	Volume   float64
	Loop     bool
	Autoplay bool
	// Spatial sources are attenuated by distance and panned relative to the listener.
	Spatial bool
	// MaxDistance is where attenuation reaches silence.
	MaxDistance float32

	pending bool
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	pan     *effects.Pan
	done    *atomic.Bool
	gain    float64
}

// NewSource creates a spatial source at full volume.
//
// Parameters:
//   - sound: the bank id to play
//
// Returns:
//   - *Source: the source component
func NewSource(sound string) *Source {
	return &Source{
		Sound:       sound,
		Volume:      1,
		Spatial:     true,
		MaxDistance: 30,
	}
}

func (s *Source) Name() string {
	return "Sound(" + s.Sound + ")"
}

// Play requests playback from the start on the next late update.
func (s *Source) Play() {
	s.pending = true
}

// Playing reports whether the source is currently producing sound.
func (s *Source) Playing() bool {
	return s.ctrl != nil && !s.done.Load()
}

// Gain returns the linear gain applied on the last late update.
func (s *Source) Gain() float64 {
	return s.gain
}

// PanValue returns the stereo pan applied on the last late update, -1 left to +1 right.
func (s *Source) PanValue() float64 {
	if s.pan == nil {
		return 0
	}
	return s.pan.Pan
}

func (s *Source) stop() {
	if s.ctrl != nil {
		// a nil streamer drains the ctrl so the mixer drops it
		s.ctrl.Streamer = nil
		s.done.Store(true)
		s.ctrl = nil
	}
}
