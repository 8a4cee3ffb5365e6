// Package audio provides a sound bank keyed by string ids, the Source component, and the system that plays sources
// through one mixer and spatializes them against a listener node.
package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/wav"
)

// DefaultSampleRate is the output rate every sound is resampled to.
const DefaultSampleRate = beep.SampleRate(44100)

// Bank holds decoded sounds in memory at the output sample rate.
type Bank struct {
	mu      sync.RWMutex
	format  beep.Format
	buffers map[string]*beep.Buffer
}

// NewBank creates an empty bank producing stereo sounds at rate.
//
// Parameters:
//   - rate: the output sample rate
//
// Returns:
//   - *Bank: the new bank
func NewBank(rate beep.SampleRate) *Bank {
	return &Bank{
		format:  beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2},
		buffers: make(map[string]*beep.Buffer),
	}
}

// SampleRate returns the bank's output sample rate.
func (b *Bank) SampleRate() beep.SampleRate {
	return b.format.SampleRate
}

// LoadWAV decodes a WAV stream into the bank under id, replacing any previous sound with that id.
//
// Parameters:
//   - id: the sound id
//   - r: the WAV data
//
// Returns:
//   - error: if decoding fails
func (b *Bank) LoadWAV(id string, r io.Reader) error {
	s, format, err := wav.Decode(r)
	if err != nil {
		return fmt.Errorf("decode sound %s: %w", id, err)
	}
	defer s.Close()

	var src beep.Streamer = s
	if format.SampleRate != b.format.SampleRate {
		src = beep.Resample(4, format.SampleRate, b.format.SampleRate, s)
	}
	buf := beep.NewBuffer(b.format)
	buf.Append(src)
	if err := s.Err(); err != nil {
		return fmt.Errorf("decode sound %s: %w", id, err)
	}
	b.put(id, buf)
	return nil
}

// LoadFile decodes a WAV file into the bank under id.
//
// Parameters:
//   - id: the sound id
//   - path: the file path
//
// Returns:
//   - error: if the file cannot be opened or decoded
func (b *Bank) LoadFile(id, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open sound %s: %w", id, err)
	}
	defer f.Close()
	return b.LoadWAV(id, f)
}

// LoadDir loads every .wav file in dir under its base name without the extension. A missing directory is not an
// error.
//
// Parameters:
//   - dir: the sound directory
//
// Returns:
//   - int: the number of sounds loaded
//   - error: the first read or decode error
func (b *Bank) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read sound dir %s: %w", dir, err)
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if err := b.LoadFile(id, filepath.Join(dir, entry.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// AddTone generates a sine tone and stores it under id.
//
// Parameters:
//   - id: the sound id
//   - freq: tone frequency in Hz
//   - d: tone duration
//
// Returns:
//   - error: if the frequency is not representable at the bank's rate
func (b *Bank) AddTone(id string, freq float64, d time.Duration) error {
	tone, err := generators.SineTone(b.format.SampleRate, freq)
	if err != nil {
		return fmt.Errorf("generate tone %s: %w", id, err)
	}
	buf := beep.NewBuffer(b.format)
	buf.Append(beep.Take(b.format.SampleRate.N(d), tone))
	b.put(id, buf)
	return nil
}

// Has reports whether a sound is loaded under id.
func (b *Bank) Has(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.buffers[id]
	return ok
}

// Len returns the number of samples in a sound, or 0 if id is unknown.
func (b *Bank) Len(id string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if buf, ok := b.buffers[id]; ok {
		return buf.Len()
	}
	return 0
}

// Streamer returns a new independent playback cursor over the sound.
//
// Parameters:
//   - id: the sound id
//
// Returns:
//   - beep.StreamSeeker: the playback stream
//   - bool: false if id is unknown
func (b *Bank) Streamer(id string) (beep.StreamSeeker, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	buf, ok := b.buffers[id]
	if !ok {
		return nil, false
	}
	return buf.Streamer(0, buf.Len()), true
}

func (b *Bank) put(id string, buf *beep.Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffers[id] = buf
}
