package input

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

func TestSampleEdges(t *testing.T) {
	in := NewInput()
	in.KeyDown(common.KeyW)
	in.KeyDown(common.KeyW) // key repeat

	s := in.Sample()
	if !s.Held(common.KeyW) || !s.Pressed(common.KeyW) {
		t.Fatal("W should be held and pressed on the first sample")
	}

	s = in.Sample()
	if !s.Held(common.KeyW) || s.Pressed(common.KeyW) {
		t.Fatal("W should be held without a new press on the second sample")
	}

	in.KeyUp(common.KeyW)
	s = in.Sample()
	if s.Held(common.KeyW) || !s.Released(common.KeyW) {
		t.Fatal("W should be released")
	}
}

func TestTapBetweenSamplesIsSeen(t *testing.T) {
	in := NewInput()
	in.KeyDown(common.KeySpace)
	in.KeyUp(common.KeySpace)

	s := in.Sample()
	if s.Held(common.KeySpace) || !s.Pressed(common.KeySpace) || !s.Released(common.KeySpace) {
		t.Fatal("a tap between samples should register as pressed and released")
	}
}

func TestScrollAndMouseDelta(t *testing.T) {
	in := NewInput()
	in.MouseMove(10, 10)
	in.Sample()

	in.Scroll(1)
	in.Scroll(0.5)
	in.MouseMove(15, 7)
	s := in.Sample()
	if s.Scroll != 1.5 || s.MouseDX != 5 || s.MouseDY != -3 {
		t.Fatalf("scroll = %v delta = (%d, %d)", s.Scroll, s.MouseDX, s.MouseDY)
	}
	if s = in.Sample(); s.Scroll != 0 || s.MouseDX != 0 {
		t.Fatal("accumulators not reset")
	}
}

func TestOutOfRangeKeysIgnored(t *testing.T) {
	in := NewInput()
	in.KeyDown(MaxKeyCode + 3)
	in.MouseButton(MaxMouseButtons, true)
	s := in.Sample()
	if s.Held(MaxKeyCode+3) || s.Button(MaxMouseButtons) {
		t.Fatal("out-of-range codes should be ignored")
	}
}

func TestAxis(t *testing.T) {
	in := NewInput()
	in.KeyDown(common.KeyD)
	s := in.Sample()
	if got := s.Axis(common.KeyA, common.KeyD); got != 1 {
		t.Fatalf("axis = %v, want 1", got)
	}
	in.KeyDown(common.KeyA)
	s = in.Sample()
	if got := s.Axis(common.KeyA, common.KeyD); got != 0 {
		t.Fatalf("axis = %v, want 0", got)
	}
}

func TestDebugModeFromHeldKeys(t *testing.T) {
	tests := []struct {
		name string
		keys []uint32
		want DebugMode
	}{
		{"none", nil, DebugNone},
		{"F1", []uint32{common.KeyF1}, DebugBaseColor},
		{"F6", []uint32{common.KeyF6}, DebugSSAO},
		{"F8", []uint32{common.KeyF8}, DebugShadow},
		{"lowest wins", []uint32{common.KeyF7, common.KeyF2}, DebugNormals},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInput()
			for _, k := range tt.keys {
				in.KeyDown(k)
			}
			s := in.Sample()
			if got := s.DebugMode(); got != tt.want {
				t.Fatalf("mode = %v, want %v", got, tt.want)
			}
		})
	}
}
