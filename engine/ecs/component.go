package ecs

import (
	"reflect"
)

// Named is implemented by components that want a display name in diagnostics and tree dumps.
type Named interface {
	Name() string
}

// Destroyer is implemented by components that release resources when their owner is destroyed.
type Destroyer interface {
	Destroy()
}

// Add attaches c to e, replacing any existing component of type T.
func Add[T any](w World, e Entity, c T) {
	w.AddComponent(e, c)
}

// Get returns the component of type T attached to e.
//
// Parameters:
//   - w: the world to query
//   - e: the entity
//
// Returns:
//   - T: the component, or the zero value
//   - bool: true if e holds a component of type T
func Get[T any](w World, e Entity) (T, bool) {
	c, ok := w.Component(e, reflect.TypeFor[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return c.(T), true
}

// MustGet returns the component of type T attached to e and panics if e does not hold one.
func MustGet[T any](w World, e Entity) T {
	c, ok := Get[T](w, e)
	if !ok {
		panic("ecs: entity " + e.String() + " missing component " + reflect.TypeFor[T]().String())
	}
	return c
}

// Has reports whether e holds a component of type T.
func Has[T any](w World, e Entity) bool {
	_, ok := w.Component(e, reflect.TypeFor[T]())
	return ok
}

// Remove detaches the component of type T from e.
func Remove[T any](w World, e Entity) bool {
	return w.RemoveComponent(e, reflect.TypeFor[T]())
}

// Types is a convenience for building a requirement list.
//
// Parameters:
//   - values: one sample value per component type, typically typed nil pointers or zero values
//
// Returns:
//   - []reflect.Type: the dynamic types of values in order
func Types(values ...any) []reflect.Type {
	out := make([]reflect.Type, len(values))
	for i, v := range values {
		out[i] = reflect.TypeOf(v)
	}
	return out
}
