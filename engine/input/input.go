// Package input collects window key and mouse callbacks and exposes them to the frame as an immutable snapshot taken
// once at the start of each tick.
package input

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// MaxKeyCode bounds the key codes tracked. GLFW key codes stay below it.
const MaxKeyCode = 512

// MaxMouseButtons bounds the mouse buttons tracked.
const MaxMouseButtons = 8

type keySet [MaxKeyCode / 64]uint64

func (k *keySet) set(code uint32, on bool) {
	if code >= MaxKeyCode {
		return
	}
	if on {
		k[code/64] |= 1 << (code % 64)
	} else {
		k[code/64] &^= 1 << (code % 64)
	}
}

func (k *keySet) has(code uint32) bool {
	return code < MaxKeyCode && k[code/64]&(1<<(code%64)) != 0
}

// State is the input snapshot for one frame.
type State struct {
	held     keySet
	pressed  keySet
	released keySet
	buttons  [MaxMouseButtons]bool

	// MouseX and MouseY are the cursor position in window pixels.
	MouseX, MouseY int32
	// MouseDX and MouseDY are the cursor movement since the previous sample.
	MouseDX, MouseDY int32
	// Scroll is the wheel movement accumulated since the previous sample. Positive is up.
	Scroll float32
}

// Held reports whether the key is down.
func (s *State) Held(code uint32) bool {
	return s.held.has(code)
}

// Pressed reports whether the key went down since the previous sample.
func (s *State) Pressed(code uint32) bool {
	return s.pressed.has(code)
}

// Released reports whether the key went up since the previous sample.
func (s *State) Released(code uint32) bool {
	return s.released.has(code)
}

// Button reports whether the mouse button is down.
func (s *State) Button(button int) bool {
	return button >= 0 && button < MaxMouseButtons && s.buttons[button]
}

// Axis returns +1 if positive is held, -1 if negative is held, and 0 if neither or both are.
func (s *State) Axis(negative, positive uint32) float32 {
	var v float32
	if s.Held(positive) {
		v++
	}
	if s.Held(negative) {
		v--
	}
	return v
}

// DebugMode returns the visualization mode selected by the held function keys. The lowest held key wins.
func (s *State) DebugMode() DebugMode {
	for i := uint32(0); i < uint32(DebugModeCount)-1; i++ {
		if s.Held(common.KeyF1 + i) {
			return DebugMode(i + 1)
		}
	}
	return DebugNone
}

// Input receives window callbacks from the window thread and hands out per-frame snapshots to the tick.
type Input interface {
	// KeyDown records a key press.
	//
	// Parameters:
	//   - code: the GLFW key code
	KeyDown(code uint32)

	// KeyUp records a key release.
	//
	// Parameters:
	//   - code: the GLFW key code
	KeyUp(code uint32)

	// MouseButton records a mouse button transition.
	//
	// Parameters:
	//   - button: the GLFW mouse button index
	//   - down: true on press
	MouseButton(button int, down bool)

	// MouseMove records the cursor position.
	//
	// Parameters:
	//   - x, y: cursor position in window pixels
	MouseMove(x, y int32)

	// Scroll accumulates wheel movement.
	//
	// Parameters:
	//   - delta: wheel delta, positive is up
	Scroll(delta float32)

	// Sample returns the state since the previous call and resets the per-frame edges and accumulators. Called once per
	// tick before any update phase.
	//
	// Returns:
	//   - State: the frame snapshot
	Sample() State

	// Current returns the most recent snapshot without sampling.
	//
	// Returns:
	//   - *State: the current frame's snapshot
	Current() *State
}

type inputImpl struct {
	mu      sync.Mutex
	pending State
	lastX   int32
	lastY   int32
	current State
}

var _ Input = &inputImpl{}

// NewInput creates an Input with nothing held.
//
// Returns:
//   - Input: the new input collector
func NewInput() Input {
	return &inputImpl{}
}

func (in *inputImpl) KeyDown(code uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.pending.held.has(code) {
		in.pending.pressed.set(code, true)
	}
	in.pending.held.set(code, true)
}

func (in *inputImpl) KeyUp(code uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.pending.held.has(code) {
		in.pending.released.set(code, true)
	}
	in.pending.held.set(code, false)
}

func (in *inputImpl) MouseButton(button int, down bool) {
	if button < 0 || button >= MaxMouseButtons {
		return
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pending.buttons[button] = down
}

func (in *inputImpl) MouseMove(x, y int32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pending.MouseX, in.pending.MouseY = x, y
}

func (in *inputImpl) Scroll(delta float32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.pending.Scroll += delta
}

func (in *inputImpl) Sample() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	s := in.pending
	s.MouseDX = s.MouseX - in.lastX
	s.MouseDY = s.MouseY - in.lastY
	in.lastX, in.lastY = s.MouseX, s.MouseY

	in.pending.pressed = keySet{}
	in.pending.released = keySet{}
	in.pending.Scroll = 0
	in.current = s
	return s
}

func (in *inputImpl) Current() *State {
	return &in.current
}
