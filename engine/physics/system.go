package physics

import (
	"reflect"
	"slices"

	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Pair is two colliders whose world boxes overlapped during the last update.
type Pair struct {
	A, B   scene.Node
	CA, CB *Collider
}

type body struct {
	node     scene.Node
	collider *Collider
	world    AABB
	moved    mgl32.Vec3
}

// System integrates dynamic colliders during the update phase and separates overlapping bodies. It runs before the
// frame's propagation, so world boxes are built from each node's previously committed global matrix plus the motion
// applied this update.
type System struct {
	log       *zap.Logger
	tracker   *scene.Tracker[*Collider]
	gravity   mgl32.Vec3
	onContact func(Pair)
	bodies    []body
	pairs     []Pair
}

var _ scene.NodeSystem = &System{}
var _ scene.Updater = &System{}

// NewSystem creates a physics system with gravity -9.81 on Y.
//
// Parameters:
//   - opts: variadic list of SystemBuilderOption functions
//
// Returns:
//   - *System: the new system
func NewSystem(opts ...SystemBuilderOption) *System {
	s := &System{
		log:     zap.NewNop(),
		gravity: mgl32.Vec3{0, -9.81, 0},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracker = scene.NewTracker[*Collider](s.log, "collider")
	return s
}

func (s *System) ComponentType() reflect.Type {
	return reflect.TypeFor[*Collider]()
}

func (s *System) OnCreate(n scene.Node, c any) {
	s.tracker.Track(n, c.(*Collider))
}

func (s *System) OnDestroy(n scene.Node, c any) {
	s.tracker.Untrack(c.(*Collider))
}

// Len returns the number of tracked colliders.
func (s *System) Len() int {
	return s.tracker.Len()
}

// Pairs returns the pairs found by the last update, ordered by the minimum X of their first body. The slice is
// reused by the next update.
//
// Returns:
//   - []Pair: the overlapping pairs
func (s *System) Pairs() []Pair {
	return s.pairs
}

func (s *System) Update(dt float32) {
	s.bodies = s.bodies[:0]
	s.pairs = s.pairs[:0]

	s.tracker.Each(func(n scene.Node, c *Collider) {
		b := body{node: n, collider: c}
		if !c.Static {
			accel := c.Force.Mul(1 / c.mass()).Add(s.gravity.Mul(c.GravityScale))
			c.Velocity = c.Velocity.Add(accel.Mul(dt))
			c.Force = mgl32.Vec3{}
			b.moved = c.Velocity.Mul(dt)
		}
		b.world = c.Bounds.Transform(n.PreviousGlobal()).Translate(b.moved)
		s.bodies = append(s.bodies, b)
	})

	slices.SortStableFunc(s.bodies, func(a, b body) int {
		switch {
		case a.world.Min[0] < b.world.Min[0]:
			return -1
		case a.world.Min[0] > b.world.Min[0]:
			return 1
		}
		return 0
	})

	// sweep along X: only bodies whose X intervals overlap are tested
	for i := range s.bodies {
		a := &s.bodies[i]
		for j := i + 1; j < len(s.bodies); j++ {
			b := &s.bodies[j]
			if b.world.Min[0] >= a.world.Max[0] {
				break
			}
			if a.collider.Static && b.collider.Static {
				continue
			}
			if !a.world.Overlaps(b.world) {
				continue
			}
			if !a.collider.Trigger && !b.collider.Trigger {
				separate(a, b)
			}
			s.pairs = append(s.pairs, Pair{A: a.node, B: b.node, CA: a.collider, CB: b.collider})
		}
	}

	for i := range s.bodies {
		b := &s.bodies[i]
		if b.collider.Static || b.moved == (mgl32.Vec3{}) {
			continue
		}
		b.node.Transform().Translate(toParentSpace(b.node, b.moved))
	}

	if s.onContact != nil {
		for _, p := range s.pairs {
			s.onContact(p)
		}
	}
}

// separate pushes dynamic bodies apart along the axis of least penetration and removes the velocity component that
// drives them together.
func separate(a, b *body) {
	mtv := a.world.Penetration(b.world)
	if mtv == (mgl32.Vec3{}) {
		return
	}
	axis := 0
	for k := 1; k < 3; k++ {
		if mtv[k] != 0 {
			axis = k
		}
	}

	shareA, shareB := float32(0.5), float32(0.5)
	switch {
	case a.collider.Static:
		shareA, shareB = 0, 1
	case b.collider.Static:
		shareA, shareB = 1, 0
	}

	if shareA > 0 {
		push := mtv.Mul(shareA)
		a.moved = a.moved.Add(push)
		a.world = a.world.Translate(push)
		if v := a.collider.Velocity[axis]; v*mtv[axis] < 0 {
			a.collider.Velocity[axis] = 0
		}
	}
	if shareB > 0 {
		push := mtv.Mul(-shareB)
		b.moved = b.moved.Add(push)
		b.world = b.world.Translate(push)
		if v := b.collider.Velocity[axis]; v*mtv[axis] > 0 {
			b.collider.Velocity[axis] = 0
		}
	}
}

// toParentSpace converts a world-space displacement into the node's parent space.
func toParentSpace(n scene.Node, d mgl32.Vec3) mgl32.Vec3 {
	parent, ok := n.Parent()
	if !ok {
		return d
	}
	return parent.PreviousGlobal().Inv().Mul4x1(d.Vec4(0)).Vec3()
}
