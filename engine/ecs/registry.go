// Package ecs is the entity-component-system container used for gameplay state. Entities are plain ids, components are any
// Go value keyed by their dynamic type, and systems declare the set of component types they require.
package ecs

import (
	"fmt"
	"reflect"
)

// MaxComponentTypes is the number of distinct component types a registry can hold.
const MaxComponentTypes = 256

// ComponentType is the stable per-registry identifier of a component type.
type ComponentType uint8

// TypeRegistry assigns sequential ComponentType ids to Go types. A registry may be shared between a World and a scene so both
// subsystems agree on component identity.
type TypeRegistry struct {
	ids   map[reflect.Type]ComponentType
	types []reflect.Type
}

// NewTypeRegistry creates an empty registry.
//
// Returns:
//   - *TypeRegistry: the new registry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		ids:   make(map[reflect.Type]ComponentType, 32),
		types: make([]reflect.Type, 0, 32),
	}
}

// ID returns the id of t, registering it on first use. Registering more than MaxComponentTypes types panics.
//
// Parameters:
//   - t: the component type
//
// Returns:
//   - ComponentType: the id assigned to t
func (r *TypeRegistry) ID(t reflect.Type) ComponentType {
	if t == nil {
		panic("ecs: nil component type")
	}
	if id, ok := r.ids[t]; ok {
		return id
	}
	if len(r.types) >= MaxComponentTypes {
		panic("ecs: too many component types")
	}
	id := ComponentType(len(r.types))
	r.ids[t] = id
	r.types = append(r.types, t)
	return id
}

// Lookup returns the id of t without registering it.
func (r *TypeRegistry) Lookup(t reflect.Type) (ComponentType, bool) {
	id, ok := r.ids[t]
	return id, ok
}

// Type returns the Go type registered under id.
func (r *TypeRegistry) Type(id ComponentType) reflect.Type {
	if int(id) >= len(r.types) {
		panic(fmt.Sprintf("ecs: unregistered component type id %d", id))
	}
	return r.types[id]
}

// Len returns the number of registered types.
func (r *TypeRegistry) Len() int {
	return len(r.types)
}

// IDOf returns the id of the dynamic type of c.
func (r *TypeRegistry) IDOf(c any) ComponentType {
	return r.ID(reflect.TypeOf(c))
}

// TypeName returns a short display name for a component value: Named components report their own name, everything else
// reports its Go type without the package path.
func TypeName(c any) string {
	if n, ok := c.(Named); ok {
		return n.Name()
	}
	t := reflect.TypeOf(c)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
