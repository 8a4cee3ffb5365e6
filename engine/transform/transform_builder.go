package transform

import "github.com/go-gl/mathgl/mgl32"

type TransformBuilderOption func(*transformImpl)

// WithTranslation sets the initial local translation.
//
// Parameters:
//   - x, y, z: translation components
//
// Returns:
//   - TransformBuilderOption: a function that sets the translation
func WithTranslation(x, y, z float32) TransformBuilderOption {
	return func(t *transformImpl) {
		t.translation = mgl32.Vec3{x, y, z}
	}
}

// WithRotation sets the initial local rotation.
//
// Parameters:
//   - q: the rotation
//
// Returns:
//   - TransformBuilderOption: a function that sets the rotation
func WithRotation(q mgl32.Quat) TransformBuilderOption {
	return func(t *transformImpl) {
		t.rotation = q.Normalize()
	}
}

// WithEuler sets the initial local rotation from angles in radians applied in X, Y, Z order.
//
// Parameters:
//   - x, y, z: rotation angles in radians
//
// Returns:
//   - TransformBuilderOption: a function that sets the rotation
func WithEuler(x, y, z float32) TransformBuilderOption {
	return func(t *transformImpl) {
		t.rotation = mgl32.AnglesToQuat(x, y, z, mgl32.XYZ).Normalize()
	}
}

// WithScale sets the initial local scale.
//
// Parameters:
//   - x, y, z: scale factors
//
// Returns:
//   - TransformBuilderOption: a function that sets the scale
func WithScale(x, y, z float32) TransformBuilderOption {
	return func(t *transformImpl) {
		t.scale = mgl32.Vec3{x, y, z}
	}
}
