package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/wav"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestSystem(t *testing.T, opts ...SystemBuilderOption) (scene.Scene, *System, *ManualOutput) {
	t.Helper()
	bank := NewBank(DefaultSampleRate)
	if err := bank.AddTone("beep", 440, 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	out := &ManualOutput{}
	sys := NewSystem(bank, out, opts...)
	s := scene.NewScene()
	s.AddSystem(sys)
	return s, sys, out
}

// frame runs the phases the sound system takes part in.
func frame(s scene.Scene) {
	s.BeginFrame()
	s.LateUpdate(1.0 / 60)
	s.Propagate()
}

func peak(samples [][2]float64) float64 {
	var p float64
	for _, s := range samples {
		p = math.Max(p, math.Max(math.Abs(s[0]), math.Abs(s[1])))
	}
	return p
}

func TestToneLength(t *testing.T) {
	b := NewBank(DefaultSampleRate)
	if err := b.AddTone("a", 440, time.Second); err != nil {
		t.Fatal(err)
	}
	if got := b.Len("a"); got != int(DefaultSampleRate) {
		t.Fatalf("Len = %d, want %d", got, int(DefaultSampleRate))
	}
	if b.Len("missing") != 0 || b.Has("missing") {
		t.Fatal("unknown id reported as loaded")
	}
}

func TestAutoplaySourcePlaysAndFinishes(t *testing.T) {
	s, _, out := newTestSystem(t)
	src := NewSource("beep")
	src.Autoplay = true
	src.Spatial = false
	s.Root().NewChild("emitter").AddComponent(src)
	frame(s)

	if !src.Playing() {
		t.Fatal("autoplay source not playing after late update")
	}
	if p := peak(out.Pull(1024)); p < 0.1 {
		t.Fatalf("peak = %f, want audible output", p)
	}
	out.Pull(DefaultSampleRate.N(200 * time.Millisecond))
	if src.Playing() {
		t.Fatal("one-shot source still playing after its sound ended")
	}
	if p := peak(out.Pull(256)); p != 0 {
		t.Fatalf("peak after end = %f, want silence", p)
	}
}

func TestLoopingSourceKeepsPlaying(t *testing.T) {
	s, _, out := newTestSystem(t)
	src := NewSource("beep")
	src.Loop = true
	src.Spatial = false
	s.Root().NewChild("emitter").AddComponent(src)
	src.Play()
	frame(s)

	out.Pull(DefaultSampleRate.N(300 * time.Millisecond))
	if !src.Playing() {
		t.Fatal("looping source stopped")
	}
	if p := peak(out.Pull(1024)); p < 0.1 {
		t.Fatalf("peak = %f, want audible output", p)
	}
}

func TestDistanceAttenuationAndPan(t *testing.T) {
	s, sys, _ := newTestSystem(t)
	listener := s.Root().NewChild("listener")
	sys.SetListener(listener)

	near := NewSource("beep")
	near.Autoplay = true
	s.Root().NewChild("right", transform.WithTranslation(15, 0, 0)).AddComponent(near)

	far := NewSource("beep")
	far.Autoplay = true
	s.Root().NewChild("far", transform.WithTranslation(0, 0, -40)).AddComponent(far)

	s.Propagate()
	frame(s)

	if math.Abs(near.Gain()-0.5) > 1e-5 {
		t.Fatalf("gain at half max distance = %f, want 0.5", near.Gain())
	}
	if math.Abs(near.PanValue()-1) > 1e-5 {
		t.Fatalf("pan of source on the right = %f, want 1", near.PanValue())
	}
	if far.Gain() != 0 {
		t.Fatalf("gain beyond max distance = %f, want 0", far.Gain())
	}
	if math.Abs(far.PanValue()) > 1e-5 {
		t.Fatalf("pan of source straight ahead = %f, want 0", far.PanValue())
	}
}

func TestListenerRotationFlipsPan(t *testing.T) {
	s, sys, _ := newTestSystem(t)
	listener := s.Root().NewChild("listener", transform.WithRotation(mgl32.QuatRotate(math.Pi, mgl32.Vec3{0, 1, 0})))
	sys.SetListener(listener)

	src := NewSource("beep")
	src.Autoplay = true
	s.Root().NewChild("east", transform.WithTranslation(5, 0, 0)).AddComponent(src)
	s.Propagate()
	frame(s)

	if math.Abs(src.PanValue()+1) > 1e-4 {
		t.Fatalf("pan with listener turned around = %f, want -1", src.PanValue())
	}
}

func TestMissingSoundWarnsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s, _, _ := newTestSystem(t, WithLogger(zap.New(core)))
	src := NewSource("nope")
	s.Root().NewChild("emitter").AddComponent(src)

	for range 3 {
		src.Play()
		frame(s)
	}
	if src.Playing() {
		t.Fatal("source with a missing sound is playing")
	}
	if n := logs.FilterMessage("sound not in bank").Len(); n != 1 {
		t.Fatalf("warnings = %d, want 1", n)
	}
}

func TestDestroyStopsSource(t *testing.T) {
	s, sys, out := newTestSystem(t)
	src := NewSource("beep")
	src.Loop = true
	src.Spatial = false
	n := s.Root().NewChild("emitter")
	n.AddComponent(src)
	src.Play()
	frame(s)

	n.Destroy()
	if sys.Len() != 0 {
		t.Fatalf("tracked = %d, want 0", sys.Len())
	}
	if src.Playing() {
		t.Fatal("destroyed source still playing")
	}
	if p := peak(out.Pull(1024)); p != 0 {
		t.Fatalf("peak = %f, want silence", p)
	}
}

func TestMasterVolumeScalesGain(t *testing.T) {
	s, _, _ := newTestSystem(t, WithMasterVolume(0.25))
	src := NewSource("beep")
	src.Autoplay = true
	src.Spatial = false
	src.Volume = 0.8
	s.Root().NewChild("emitter").AddComponent(src)
	frame(s)

	if math.Abs(src.Gain()-0.2) > 1e-9 {
		t.Fatalf("gain = %f, want 0.2", src.Gain())
	}
}

func TestLoadDirRegistersWavFiles(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "blip.wav"))
	if err != nil {
		t.Fatal(err)
	}
	format := beep.Format{SampleRate: DefaultSampleRate, NumChannels: 2, Precision: 2}
	tone, err := generators.SineTone(DefaultSampleRate, 880)
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.Encode(f, beep.Take(DefaultSampleRate.N(50*time.Millisecond), tone), format); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a sound"), 0o644); err != nil {
		t.Fatal(err)
	}

	bank := NewBank(DefaultSampleRate)
	n, err := bank.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if n != 1 || !bank.Has("blip") {
		t.Fatalf("loaded %d sounds, has blip = %v", n, bank.Has("blip"))
	}

	if n, err := bank.LoadDir(filepath.Join(dir, "missing")); err != nil || n != 0 {
		t.Fatalf("missing dir: n=%d err=%v", n, err)
	}
}
