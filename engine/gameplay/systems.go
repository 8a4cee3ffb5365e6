package gameplay

import (
	"reflect"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"github.com/Carmen-Shannon/oxy-deferred/engine/input"
	"github.com/Carmen-Shannon/oxy-deferred/engine/navigation"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// MovementSystem applies Velocity to the entity's node.
type MovementSystem struct{}

var _ ecs.System = &MovementSystem{}

func (s *MovementSystem) Requires() []reflect.Type {
	return ecs.Types(&NodeRef{}, &Velocity{})
}

func (s *MovementSystem) Update(w ecs.World, entities []ecs.Entity, dt float32) {
	for _, e := range entities {
		ref := ecs.MustGet[*NodeRef](w, e)
		if !ref.Node.Valid() {
			continue
		}
		v := ecs.MustGet[*Velocity](w, e)
		t := ref.Node.Transform()
		if v.Linear != (mgl32.Vec3{}) {
			t.Translate(v.Linear.Mul(dt))
		}
		if a := v.Angular.Mul(dt); a != (mgl32.Vec3{}) {
			t.Rotate(mgl32.AnglesToQuat(a[0], a[1], a[2], mgl32.XYZ))
		}
	}
}

// PlayerControlSystem writes keyboard intent into Velocity during early update.
type PlayerControlSystem struct {
	in input.Input
}

var _ ecs.EarlyUpdater = &PlayerControlSystem{}

// NewPlayerControlSystem creates the system reading in.
func NewPlayerControlSystem(in input.Input) *PlayerControlSystem {
	return &PlayerControlSystem{in: in}
}

func (s *PlayerControlSystem) Requires() []reflect.Type {
	return ecs.Types(&PlayerControl{}, &Velocity{})
}

func (s *PlayerControlSystem) EarlyUpdate(w ecs.World, entities []ecs.Entity, dt float32) {
	st := s.in.Current()
	dir := mgl32.Vec3{
		st.Axis(common.KeyA, common.KeyD),
		st.Axis(common.KeyLeftShift, common.KeySpace),
		st.Axis(common.KeyW, common.KeyS),
	}
	if l := dir.Len(); l > 1 {
		dir = dir.Mul(1 / l)
	}
	for _, e := range entities {
		pc := ecs.MustGet[*PlayerControl](w, e)
		ecs.MustGet[*Velocity](w, e).Linear = dir.Mul(pc.Speed)
	}
}

func (s *PlayerControlSystem) Update(ecs.World, []ecs.Entity, float32) {}

// PathFollowSystem plans paths for PathFollower components and steers Velocity along them.
type PathFollowSystem struct {
	nav navigation.Navigator
	log *zap.Logger
}

var _ ecs.System = &PathFollowSystem{}

// NewPathFollowSystem creates the system planning on nav.
func NewPathFollowSystem(nav navigation.Navigator, log *zap.Logger) *PathFollowSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &PathFollowSystem{nav: nav, log: log}
}

func (s *PathFollowSystem) Requires() []reflect.Type {
	return ecs.Types(&NodeRef{}, &PathFollower{}, &Velocity{})
}

func (s *PathFollowSystem) Update(w ecs.World, entities []ecs.Entity, dt float32) {
	for _, e := range entities {
		ref := ecs.MustGet[*NodeRef](w, e)
		if !ref.Node.Valid() {
			continue
		}
		f := ecs.MustGet[*PathFollower](w, e)
		v := ecs.MustGet[*Velocity](w, e)
		pos := ref.Node.PreviousGlobal().Col(3).Vec3()

		if f.path == nil || f.planned != f.Target {
			f.planned = f.Target
			f.next = 0
			path, ok := s.nav.FindPath(pos, f.Target)
			f.path, f.active, f.failed = path, ok, !ok
			if !ok {
				s.log.Warn("no path to target",
					zap.Stringer("entity", e),
					zap.Float32s("target", f.Target[:]),
				)
				f.path = []mgl32.Vec3{}
			}
		}
		if !f.active {
			v.Linear = mgl32.Vec3{}
			continue
		}

		for f.next < len(f.path) && f.path[f.next].Sub(pos).Len() <= f.Arrive {
			f.next++
		}
		if f.next == len(f.path) {
			f.active = false
			v.Linear = mgl32.Vec3{}
			continue
		}
		to := f.path[f.next].Sub(pos)
		d := to.Len()
		speed := f.Speed
		// don't overshoot the waypoint in one step
		if dt > 0 && speed*dt > d {
			speed = d / dt
		}
		v.Linear = to.Mul(speed / d)
	}
}

// LifetimeSystem counts down Lifetime and queues expired entities for destruction.
type LifetimeSystem struct{}

var _ ecs.System = &LifetimeSystem{}

func (s *LifetimeSystem) Requires() []reflect.Type {
	return ecs.Types(&Lifetime{})
}

func (s *LifetimeSystem) Update(w ecs.World, entities []ecs.Entity, dt float32) {
	for _, e := range entities {
		l := ecs.MustGet[*Lifetime](w, e)
		l.Remaining -= dt
		if l.Remaining <= 0 {
			w.DestroyEntity(e)
		}
	}
}

// Register adds the gameplay systems to w in the order they must run. nav may be nil when nothing follows paths.
//
// Parameters:
//   - w: the world
//   - in: the input source for player control
//   - nav: the navigator for path following
//   - log: the logger for diagnostics
func Register(w ecs.World, in input.Input, nav navigation.Navigator, log *zap.Logger) {
	w.AddSystem(NewPlayerControlSystem(in))
	if nav != nil {
		w.AddSystem(NewPathFollowSystem(nav, log))
	}
	w.AddSystem(&MovementSystem{})
	w.AddSystem(&LifetimeSystem{})
}
