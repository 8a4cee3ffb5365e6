package scene

import (
	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"go.uber.org/zap"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene name.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithLogger sets the logger used for scene diagnostics.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(log *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTypeRegistry shares a component type registry, typically the one owned by the ECS world.
//
// Parameters:
//   - types: the registry
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTypeRegistry(types *ecs.TypeRegistry) SceneBuilderOption {
	return func(s *scene) {
		s.types = types
	}
}
