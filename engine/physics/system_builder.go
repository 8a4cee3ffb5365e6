package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// SystemBuilderOption is a function that configures a physics System during construction.
type SystemBuilderOption func(*System)

// WithLogger sets the logger used for physics diagnostics.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - SystemBuilderOption: a function that applies the logger option
func WithLogger(log *zap.Logger) SystemBuilderOption {
	return func(s *System) {
		if log != nil {
			s.log = log
		}
	}
}

// WithGravity sets the world gravity acceleration.
//
// Parameters:
//   - g: acceleration in world units per second squared
//
// Returns:
//   - SystemBuilderOption: a function that applies the gravity option
func WithGravity(g mgl32.Vec3) SystemBuilderOption {
	return func(s *System) {
		s.gravity = g
	}
}

// WithContactHandler sets a callback invoked once per overlapping pair per update, after separation.
//
// Parameters:
//   - fn: the contact callback
//
// Returns:
//   - SystemBuilderOption: a function that applies the handler option
func WithContactHandler(fn func(Pair)) SystemBuilderOption {
	return func(s *System) {
		s.onContact = fn
	}
}
