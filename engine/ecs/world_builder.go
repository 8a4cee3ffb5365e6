package ecs

import "go.uber.org/zap"

type WorldBuilderOption func(*world)

// WithLogger sets the logger used for world diagnostics.
//
// Parameters:
//   - log: the logger to use
//
// Returns:
//   - WorldBuilderOption: a function that sets the world's logger
func WithLogger(log *zap.Logger) WorldBuilderOption {
	return func(w *world) {
		if log != nil {
			w.log = log
		}
	}
}

// WithTypeRegistry shares an existing component type registry with the world.
//
// Parameters:
//   - types: the registry to use
//
// Returns:
//   - WorldBuilderOption: a function that sets the world's registry
func WithTypeRegistry(types *TypeRegistry) WorldBuilderOption {
	return func(w *world) {
		w.types = types
	}
}
