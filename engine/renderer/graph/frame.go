package graph

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/input"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
)

// Frame is everything the passes consume for one frame, derived after transform propagation.
type Frame struct {
	Camera camera.GPUCameraUniform
	// Draws may be nil when nothing is visible.
	Draws *mesh.DrawList
	// Lights may be nil, which renders with no lights and no ambient term.
	Lights    *light.Frame
	DebugMode input.DebugMode
}

// TimingRecorder receives GPU pass timings when a timestamp readback arrives. *profiler.Profiler implements it.
type TimingRecorder interface {
	// RecordPassTimings stores the timings of one frame, in pass order.
	//
	// Parameters:
	//   - timings: the pass timings
	RecordPassTimings(timings []profiler.PassTiming)
}

var _ TimingRecorder = &profiler.Profiler{}
