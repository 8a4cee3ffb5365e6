package camera

import (
	"reflect"

	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"go.uber.org/zap"
)

// System tracks Camera components. The first tracked camera is the active one.
type System struct {
	tracker *scene.Tracker[Camera]
}

var _ scene.NodeSystem = &System{}

// NewSystem creates a camera system.
//
// Parameters:
//   - log: the logger for diagnostics, or nil
//
// Returns:
//   - *System: the new system
func NewSystem(log *zap.Logger) *System {
	return &System{tracker: scene.NewTracker[Camera](log, "camera")}
}

func (s *System) ComponentType() reflect.Type {
	return reflect.TypeFor[*cameraImpl]()
}

func (s *System) OnCreate(n scene.Node, c any) {
	s.tracker.Track(n, c.(Camera))
}

func (s *System) OnDestroy(n scene.Node, c any) {
	s.tracker.Untrack(c.(Camera))
}

// Active returns the first tracked camera and its node.
//
// Returns:
//   - Camera: the active camera
//   - scene.Node: the node it is attached to
//   - bool: false if no camera is tracked
func (s *System) Active() (Camera, scene.Node, bool) {
	var (
		cam  Camera
		node scene.Node
	)
	s.tracker.Each(func(n scene.Node, c Camera) {
		if cam == nil {
			cam, node = c, n
		}
	})
	return cam, node, cam != nil
}

// Resize updates the aspect ratio of every tracked camera.
//
// Parameters:
//   - width, height: the new surface size in pixels
func (s *System) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	aspect := float32(width) / float32(height)
	s.tracker.Each(func(_ scene.Node, c Camera) {
		c.SetAspect(aspect)
	})
}
