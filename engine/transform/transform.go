// Package transform holds the translation, rotation and scale of a scene node together with its cached local matrices and the
// global matrices written by the scene's propagation pass.
package transform

import (
	"github.com/go-gl/mathgl/mgl32"
)

type transformImpl struct {
	translation mgl32.Vec3
	rotation    mgl32.Quat
	scale       mgl32.Vec3

	dirty        bool
	local        mgl32.Mat4
	localInverse mgl32.Mat4

	global          mgl32.Mat4
	globalInverse   mgl32.Mat4
	previousGlobal  mgl32.Mat4
	propagatedFrame uint64
}

// Transform is the spatial state of a scene node.
// Local matrices are recomputed on read when a setter has marked them dirty. Global matrices are never computed lazily: they
// are written once per frame by the owning scene's propagation pass and are only meaningful after it.
type Transform interface {
	// Translation returns the local translation.
	//
	// Returns:
	//   - mgl32.Vec3: the translation
	Translation() mgl32.Vec3

	// Rotation returns the local rotation.
	//
	// Returns:
	//   - mgl32.Quat: the rotation
	Rotation() mgl32.Quat

	// Scale returns the local scale.
	//
	// Returns:
	//   - mgl32.Vec3: the scale
	Scale() mgl32.Vec3

	// SetTranslation sets the local translation and marks the local matrices dirty.
	//
	// Parameters:
	//   - v: the new translation
	SetTranslation(v mgl32.Vec3)

	// SetRotation sets the local rotation and marks the local matrices dirty.
	//
	// Parameters:
	//   - q: the new rotation, normalized on write
	SetRotation(q mgl32.Quat)

	// SetScale sets the local scale and marks the local matrices dirty.
	//
	// Parameters:
	//   - v: the new scale, which need not be uniform
	SetScale(v mgl32.Vec3)

	// Translate offsets the local translation by d.
	//
	// Parameters:
	//   - d: the offset
	Translate(d mgl32.Vec3)

	// Rotate applies q after the current local rotation.
	//
	// Parameters:
	//   - q: the rotation to apply
	Rotate(q mgl32.Quat)

	// Update marks the local matrices dirty. Every setter calls it; callers that mutate state through other means must too.
	Update()

	// Dirty reports whether the local matrices are stale.
	Dirty() bool

	// Local returns the local matrix T·R·S, recomputing it first if dirty.
	//
	// Returns:
	//   - mgl32.Mat4: the local matrix
	Local() mgl32.Mat4

	// LocalInverse returns the inverse of the local matrix, recomputing it first if dirty.
	//
	// Returns:
	//   - mgl32.Mat4: the local inverse
	LocalInverse() mgl32.Mat4

	// SetGlobal commits the propagated global matrices for a frame. Called by the scene's propagation pass.
	//
	// Parameters:
	//   - global: parentGlobal · local
	//   - inverse: localInverse · parentGlobalInverse
	//   - frame: the frame number being propagated
	SetGlobal(global, inverse mgl32.Mat4, frame uint64)

	// Global returns the last propagated global matrix.
	Global() mgl32.Mat4

	// GlobalInverse returns the last propagated global inverse matrix.
	GlobalInverse() mgl32.Mat4

	// PreviousGlobal returns the global matrix committed by the previous propagation, for readers that run before this frame's
	// propagation.
	PreviousGlobal() mgl32.Mat4

	// PropagatedFrame returns the frame number of the last propagation, or zero if the transform was never propagated.
	PropagatedFrame() uint64

	// Position returns the world-space translation from the last propagated global matrix.
	Position() mgl32.Vec3

	// Forward returns the world-space -Z axis from the last propagated global matrix.
	Forward() mgl32.Vec3
}

var _ Transform = &transformImpl{}

// NewTransform creates an identity transform.
//
// Parameters:
//   - options: optional transform builder options
//
// Returns:
//   - Transform: the new transform
func NewTransform(options ...TransformBuilderOption) Transform {
	t := &transformImpl{
		rotation:       mgl32.QuatIdent(),
		scale:          mgl32.Vec3{1, 1, 1},
		dirty:          true,
		global:         mgl32.Ident4(),
		globalInverse:  mgl32.Ident4(),
		previousGlobal: mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *transformImpl) Translation() mgl32.Vec3 {
	return t.translation
}

func (t *transformImpl) Rotation() mgl32.Quat {
	return t.rotation
}

func (t *transformImpl) Scale() mgl32.Vec3 {
	return t.scale
}

func (t *transformImpl) SetTranslation(v mgl32.Vec3) {
	t.translation = v
	t.Update()
}

func (t *transformImpl) SetRotation(q mgl32.Quat) {
	t.rotation = q.Normalize()
	t.Update()
}

func (t *transformImpl) SetScale(v mgl32.Vec3) {
	t.scale = v
	t.Update()
}

func (t *transformImpl) Translate(d mgl32.Vec3) {
	t.translation = t.translation.Add(d)
	t.Update()
}

func (t *transformImpl) Rotate(q mgl32.Quat) {
	t.rotation = q.Mul(t.rotation).Normalize()
	t.Update()
}

func (t *transformImpl) Update() {
	t.dirty = true
}

func (t *transformImpl) Dirty() bool {
	return t.dirty
}

func (t *transformImpl) Local() mgl32.Mat4 {
	t.recomputeIfDirty()
	return t.local
}

func (t *transformImpl) LocalInverse() mgl32.Mat4 {
	t.recomputeIfDirty()
	return t.localInverse
}

func (t *transformImpl) SetGlobal(global, inverse mgl32.Mat4, frame uint64) {
	t.previousGlobal = t.global
	t.global = global
	t.globalInverse = inverse
	t.propagatedFrame = frame
}

func (t *transformImpl) Global() mgl32.Mat4 {
	return t.global
}

func (t *transformImpl) GlobalInverse() mgl32.Mat4 {
	return t.globalInverse
}

func (t *transformImpl) PreviousGlobal() mgl32.Mat4 {
	return t.previousGlobal
}

func (t *transformImpl) PropagatedFrame() uint64 {
	return t.propagatedFrame
}

func (t *transformImpl) Position() mgl32.Vec3 {
	return t.global.Col(3).Vec3()
}

func (t *transformImpl) Forward() mgl32.Vec3 {
	f := t.global.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()
	if f.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return f.Normalize()
}

// recomputeIfDirty rebuilds local = T·R·S and its inverse. The inverse is a full 4x4 inversion since scale may be non-uniform.
func (t *transformImpl) recomputeIfDirty() {
	if !t.dirty {
		return
	}
	tr := mgl32.Translate3D(t.translation[0], t.translation[1], t.translation[2])
	sc := mgl32.Scale3D(t.scale[0], t.scale[1], t.scale[2])
	t.local = tr.Mul4(t.rotation.Mat4()).Mul4(sc)
	t.localInverse = t.local.Inv()
	t.dirty = false
}
