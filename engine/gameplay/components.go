// Package gameplay holds the ECS components and systems that drive scene nodes: movement, player input, path following
// and timed despawns. Entities reach their node through a NodeRef component.
package gameplay

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeRef links an entity to the scene node it controls. An owned node is destroyed with the entity.
type NodeRef struct {
	Node  scene.Node
	Owned bool
}

func (r *NodeRef) Name() string {
	return "NodeRef(" + r.Node.String() + ")"
}

func (r *NodeRef) Destroy() {
	if r.Owned && r.Node.Valid() {
		r.Node.Destroy()
	}
}

// Velocity moves a node every update. Angular is in radians per second around each local axis.
type Velocity struct {
	Linear  mgl32.Vec3
	Angular mgl32.Vec3
}

// PlayerControl steers an entity's Velocity from the keyboard. WASD moves on the XZ plane, space and shift move up and
// down.
type PlayerControl struct {
	Speed float32
}

// PathFollower walks an entity toward Target along a path from the navigator. Setting a new Target replans.
type PathFollower struct {
	Target mgl32.Vec3
	Speed  float32
	// Arrive is the distance at which a waypoint counts as reached.
	Arrive float32

	path    []mgl32.Vec3
	next    int
	planned mgl32.Vec3
	active  bool
	failed  bool
}

// NewPathFollower creates a follower heading for target.
func NewPathFollower(target mgl32.Vec3, speed float32) *PathFollower {
	return &PathFollower{Target: target, Speed: speed, Arrive: 0.1}
}

// Path returns the remaining waypoints.
func (p *PathFollower) Path() []mgl32.Vec3 {
	if !p.active {
		return nil
	}
	return p.path[p.next:]
}

// Arrived reports whether the last waypoint was reached.
func (p *PathFollower) Arrived() bool {
	return !p.active && !p.failed && p.planned == p.Target && p.path != nil
}

// Unreachable reports whether the navigator found no path to the current target.
func (p *PathFollower) Unreachable() bool {
	return p.failed
}

// Lifetime despawns its entity once Remaining reaches zero.
type Lifetime struct {
	Remaining float32
}

// Spawn creates an entity that owns a new node under parent.
//
// Parameters:
//   - w: the world
//   - parent: the node the new node is attached to
//   - name: the node name
//   - opts: initial transform options
//
// Returns:
//   - ecs.Entity: the new entity
//   - scene.Node: its node
func Spawn(w ecs.World, parent scene.Node, name string, opts ...transform.TransformBuilderOption) (ecs.Entity, scene.Node) {
	e := w.CreateEntity()
	n := parent.NewChild(name, opts...)
	ecs.Add(w, e, &NodeRef{Node: n, Owned: true})
	return e, n
}
