package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Output is where the system's mixer is played. Lock and Unlock guard changes to streamers the output is reading.
type Output interface {
	// Play starts streaming s.
	//
	// Parameters:
	//   - s: the streamer to play
	Play(s beep.Streamer)

	// Lock blocks the output from reading streamers.
	Lock()

	// Unlock resumes reading.
	Unlock()

	// Close stops playback.
	Close()
}

type speakerOutput struct{}

// NewSpeakerOutput initializes the system audio device.
//
// Parameters:
//   - rate: the sample rate
//   - latency: the device buffer duration
//
// Returns:
//   - Output: the speaker output
//   - error: if the device cannot be opened
func NewSpeakerOutput(rate beep.SampleRate, latency time.Duration) (Output, error) {
	if err := speaker.Init(rate, rate.N(latency)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return speakerOutput{}, nil
}

func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }
func (speakerOutput) Close()               { speaker.Close() }

// ManualOutput is an Output that nothing reads from until Pull is called. Used headless and in tests.
type ManualOutput struct {
	mu      sync.Mutex
	mixer   beep.Mixer
	samples [][2]float64
}

var _ Output = &ManualOutput{}

func (m *ManualOutput) Play(s beep.Streamer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mixer.Add(s)
}

func (m *ManualOutput) Lock()   { m.mu.Lock() }
func (m *ManualOutput) Unlock() { m.mu.Unlock() }
func (m *ManualOutput) Close()  {}

// Pull streams n samples from everything playing.
//
// Parameters:
//   - n: the number of samples
//
// Returns:
//   - [][2]float64: the mixed stereo samples
func (m *ManualOutput) Pull(n int) [][2]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cap(m.samples) < n {
		m.samples = make([][2]float64, n)
	}
	out := m.samples[:n]
	m.mixer.Stream(out)
	return out
}
