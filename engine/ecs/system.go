package ecs

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrSystemNotFound is returned by GetSystem when no system of the requested type is registered.
var ErrSystemNotFound = errors.New("system not found")

// Phase selects which hook a World invokes on its systems.
type Phase int

const (
	PhaseEarlyUpdate Phase = iota
	PhaseUpdate
	PhaseLateUpdate
)

func (p Phase) String() string {
	switch p {
	case PhaseEarlyUpdate:
		return "early_update"
	case PhaseUpdate:
		return "update"
	case PhaseLateUpdate:
		return "late_update"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// System processes every entity holding its full set of required component types.
type System interface {
	// Requires returns the component types an entity must hold to be processed by this system.
	// An empty set is rejected at registration.
	//
	// Returns:
	//   - []reflect.Type: the required component types
	Requires() []reflect.Type

	// Update processes the matched entities for one tick.
	//
	// Parameters:
	//   - w: the owning world
	//   - entities: a snapshot of the matched set, valid for the duration of the call
	//   - dt: elapsed time in seconds
	Update(w World, entities []Entity, dt float32)
}

// EarlyUpdater is implemented by systems that also run before the update phase.
type EarlyUpdater interface {
	EarlyUpdate(w World, entities []Entity, dt float32)
}

// LateUpdater is implemented by systems that also run after the update phase.
type LateUpdater interface {
	LateUpdate(w World, entities []Entity, dt float32)
}

// GetSystem returns the registered system of type T.
//
// Parameters:
//   - w: the world to search
//
// Returns:
//   - T: the registered system
//   - error: ErrSystemNotFound when no system of type T is registered
func GetSystem[T System](w World) (T, error) {
	for _, s := range w.Systems() {
		if t, ok := s.(T); ok {
			return t, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s", ErrSystemNotFound, reflect.TypeFor[T]())
}

// MustGetSystem returns the registered system of type T and panics if none is registered.
func MustGetSystem[T System](w World) T {
	s, err := GetSystem[T](w)
	if err != nil {
		panic("ecs: " + err.Error())
	}
	return s
}

// systemEntry tracks a registered system and its matched entity set. The set is kept as a dense slice with an index map so
// membership changes are O(1).
type systemEntry struct {
	system   System
	required Signature
	members  []Entity
	index    map[Entity]int
	scratch  []Entity
}

func (s *systemEntry) add(e Entity) {
	if _, ok := s.index[e]; ok {
		return
	}
	s.index[e] = len(s.members)
	s.members = append(s.members, e)
}

func (s *systemEntry) remove(e Entity) {
	i, ok := s.index[e]
	if !ok {
		return
	}
	last := len(s.members) - 1
	moved := s.members[last]
	s.members[i] = moved
	s.index[moved] = i
	s.members = s.members[:last]
	delete(s.index, e)
}

// snapshot copies the member set so systems may add or remove components while iterating.
func (s *systemEntry) snapshot() []Entity {
	s.scratch = append(s.scratch[:0], s.members...)
	return s.scratch
}
