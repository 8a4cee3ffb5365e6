// Package physics provides the AABB Collider component and the system that integrates velocities, finds overlapping
// pairs, and separates dynamic bodies from what they hit.
package physics

import "github.com/go-gl/mathgl/mgl32"

// Collider is a node component with an axis-aligned box in node-local space.
type Collider struct {
	Bounds   AABB
	Velocity mgl32.Vec3
	// Force is accumulated by gameplay during the frame and cleared after integration.
	Force mgl32.Vec3
	Mass  float32
	// GravityScale multiplies the system gravity for this body.
	GravityScale float32
	// Static bodies never move and are not integrated.
	Static bool
	// Trigger bodies report pairs but are never separated.
	Trigger bool
}

// NewCollider creates a dynamic collider with unit mass and full gravity.
//
// Parameters:
//   - bounds: the local-space box
//
// Returns:
//   - *Collider: the collider component
func NewCollider(bounds AABB) *Collider {
	return &Collider{Bounds: bounds, Mass: 1, GravityScale: 1}
}

// NewStaticCollider creates a collider that never moves.
//
// Parameters:
//   - bounds: the local-space box
//
// Returns:
//   - *Collider: the collider component
func NewStaticCollider(bounds AABB) *Collider {
	return &Collider{Bounds: bounds, Static: true}
}

func (c *Collider) Name() string {
	if c.Static {
		return "Collider(static)"
	}
	return "Collider"
}

// AddForce accumulates a force for the next integration step.
func (c *Collider) AddForce(f mgl32.Vec3) {
	c.Force = c.Force.Add(f)
}

// AddImpulse changes the velocity immediately by impulse / mass.
func (c *Collider) AddImpulse(impulse mgl32.Vec3) {
	c.Velocity = c.Velocity.Add(impulse.Mul(1 / c.mass()))
}

func (c *Collider) mass() float32 {
	if c.Mass <= 0 {
		return 1
	}
	return c.Mass
}
