// Package camera provides the Camera node component, the system that picks the active camera, and an orbit controller
// that drives a camera node from input.
package camera

import (
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	fov    float32
	aspect float32
	near   float32
	far    float32

	projection        mgl32.Mat4
	inverseProjection mgl32.Mat4
	dirty             bool
}

// Matrices are the per-frame camera matrices derived from the owning node's propagated transform.
type Matrices struct {
	View              mgl32.Mat4
	Projection        mgl32.Mat4
	ViewProjection    mgl32.Mat4
	InverseProjection mgl32.Mat4
	// InverseViewProjection reconstructs world positions from depth in the shade pass.
	InverseViewProjection mgl32.Mat4
	// SkyViewProjection is the projection times the view with its translation zeroed.
	SkyViewProjection mgl32.Mat4
	Position          mgl32.Vec3
}

// Camera holds projection parameters. The view matrix is the global inverse of the node the camera is attached to.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: the field of view
	Fov() float32

	// Aspect returns the viewport aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: the near plane
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: the far plane
	Far() float32

	// Projection returns the perspective projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Projection() mgl32.Mat4

	// Matrices derives the frame's view matrices from the owning node. The node must have been propagated this frame.
	//
	// Parameters:
	//   - n: the node the camera is attached to
	//
	// Returns:
	//   - Matrices: the camera matrices
	Matrices(n scene.Node) Matrices

	// Name returns a display name for scene dumps.
	Name() string

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the viewport aspect ratio.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with the provided options.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the new camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		fov:    45.0 * (math.Pi / 180.0), // radians
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
		dirty:  true,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Fov() float32 {
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	return c.near
}

func (c *cameraImpl) Far() float32 {
	return c.far
}

func (c *cameraImpl) Name() string {
	return "Camera"
}

func (c *cameraImpl) SetFov(fov float32) {
	c.fov = fov
	c.dirty = true
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.aspect = aspect
	c.dirty = true
}

func (c *cameraImpl) SetNear(near float32) {
	c.near = near
	c.dirty = true
}

func (c *cameraImpl) SetFar(far float32) {
	c.far = far
	c.dirty = true
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.updateProjection()
	return c.projection
}

func (c *cameraImpl) Matrices(n scene.Node) Matrices {
	c.updateProjection()
	m := Matrices{
		View:              n.GlobalInverse(),
		Projection:        c.projection,
		InverseProjection: c.inverseProjection,
		Position:          n.Global().Col(3).Vec3(),
	}
	m.ViewProjection = m.Projection.Mul4(m.View)
	m.InverseViewProjection = n.Global().Mul4(m.InverseProjection)

	var sky mgl32.Mat4
	common.StripTranslation(sky[:], m.View[:])
	m.SkyViewProjection = m.Projection.Mul4(sky)
	return m
}

func (c *cameraImpl) updateProjection() {
	if !c.dirty {
		return
	}
	common.Perspective(c.projection[:], c.fov, c.aspect, c.near, c.far)
	common.Invert4(c.inverseProjection[:], c.projection[:])
	c.dirty = false
}
