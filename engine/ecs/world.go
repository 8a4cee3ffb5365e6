package ecs

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

type world struct {
	log   *zap.Logger
	types *TypeRegistry

	next     Entity
	entities map[Entity]*entityRecord
	stores   [MaxComponentTypes]map[Entity]any

	systems      []*systemEntry
	destroyQueue []Entity
}

// World is the ECS container. It owns entities, their components, the registered systems and the deferred destruction queue.
// A World is not safe for concurrent use; it is driven from the frame loop.
type World interface {
	// CreateEntity allocates the next sequential entity id with an empty component set.
	//
	// Returns:
	//   - Entity: the new entity
	CreateEntity() Entity

	// DestroyEntity queues e for removal at the end of the current tick. The entity stays in every matched set until Flush runs.
	// Destroying an entity twice in one tick is a no-op.
	//
	// Parameters:
	//   - e: the entity to destroy
	DestroyEntity(e Entity)

	// Alive reports whether e exists and has not been flushed.
	//
	// Parameters:
	//   - e: the entity to check
	//
	// Returns:
	//   - bool: true if e exists
	Alive(e Entity) bool

	// AddComponent attaches c to e keyed by its dynamic type, replacing an existing component of the same type,
	// then re-evaluates e's membership in every system. A replaced component that implements Destroyer is destroyed
	// unless it is c itself.
	//
	// Parameters:
	//   - e: the target entity
	//   - c: the component value
	AddComponent(e Entity, c any)

	// RemoveComponent detaches the component of type t from e and re-evaluates membership.
	//
	// Parameters:
	//   - e: the target entity
	//   - t: the component type to remove
	//
	// Returns:
	//   - bool: true if a component was removed
	RemoveComponent(e Entity, t reflect.Type) bool

	// Component returns the component of type t attached to e.
	//
	// Parameters:
	//   - e: the entity to query
	//   - t: the component type
	//
	// Returns:
	//   - any: the component value
	//   - bool: true if present
	Component(e Entity, t reflect.Type) (any, bool)

	// Components returns every component attached to e ordered by component type id.
	Components(e Entity) []any

	// AddSystem registers s and computes its initial membership. Systems with an empty requirement set are rejected
	// with a warning.
	//
	// Parameters:
	//   - s: the system to register
	//
	// Returns:
	//   - bool: true if the system was registered
	AddSystem(s System) bool

	// Systems returns the registered systems in registration order.
	Systems() []System

	// Matched returns a copy of the entity set currently matched by s.
	Matched(s System) []Entity

	// Update runs the update phase of every system in registration order, then flushes deferred destructions.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Update(dt float32)

	// RunPhase runs one phase of every system without flushing.
	//
	// Parameters:
	//   - p: the phase to run
	//   - dt: elapsed time in seconds
	RunPhase(p Phase, dt float32)

	// Flush removes every entity queued by DestroyEntity.
	//
	// Returns:
	//   - int: the number of entities removed
	Flush() int

	// Types returns the component type registry.
	Types() *TypeRegistry

	// EntityCount returns the number of live entities.
	EntityCount() int
}

var _ World = &world{}

// NewWorld creates an empty world.
//
// Parameters:
//   - options: optional world builder options
//
// Returns:
//   - World: the new world
func NewWorld(options ...WorldBuilderOption) World {
	w := &world{
		log:          zap.NewNop(),
		entities:     make(map[Entity]*entityRecord, 256),
		destroyQueue: make([]Entity, 0, 64),
	}
	for _, opt := range options {
		opt(w)
	}
	if w.types == nil {
		w.types = NewTypeRegistry()
	}
	return w
}

func (w *world) CreateEntity() Entity {
	w.next++
	w.entities[w.next] = &entityRecord{}
	return w.next
}

func (w *world) DestroyEntity(e Entity) {
	rec := w.mustRecord(e)
	if rec.pending {
		return
	}
	rec.pending = true
	w.destroyQueue = append(w.destroyQueue, e)
}

func (w *world) Alive(e Entity) bool {
	_, ok := w.entities[e]
	return ok
}

func (w *world) AddComponent(e Entity, c any) {
	rec := w.mustRecord(e)
	if c == nil {
		panic(fmt.Sprintf("ecs: nil component for entity %d", e))
	}
	id := w.types.IDOf(c)
	store := w.stores[id]
	if store == nil {
		store = make(map[Entity]any, 64)
		w.stores[id] = store
	}
	if prev, ok := store[e]; ok && !sameComponent(prev, c) {
		if d, ok := prev.(Destroyer); ok {
			d.Destroy()
		}
	}
	store[e] = c
	rec.signature.Set(id)
	w.evaluate(e, rec)
}

// sameComponent reports whether a and b, which share a dynamic type, are the same value. Uncomparable values are always
// distinct.
func sameComponent(a, b any) bool {
	if !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

func (w *world) RemoveComponent(e Entity, t reflect.Type) bool {
	rec := w.mustRecord(e)
	id, ok := w.types.Lookup(t)
	if !ok || !rec.signature.Has(id) {
		return false
	}
	delete(w.stores[id], e)
	rec.signature.Unset(id)
	w.evaluate(e, rec)
	return true
}

func (w *world) Component(e Entity, t reflect.Type) (any, bool) {
	rec := w.mustRecord(e)
	id, ok := w.types.Lookup(t)
	if !ok || !rec.signature.Has(id) {
		return nil, false
	}
	c, ok := w.stores[id][e]
	return c, ok
}

func (w *world) Components(e Entity) []any {
	rec := w.mustRecord(e)
	out := make([]any, 0, 4)
	for id := 0; id < w.types.Len(); id++ {
		if rec.signature.Has(ComponentType(id)) {
			out = append(out, w.stores[id][e])
		}
	}
	return out
}

func (w *world) AddSystem(s System) bool {
	required := s.Requires()
	if len(required) == 0 {
		w.log.Warn("rejecting system with empty requirement set", zap.String("system", reflect.TypeOf(s).String()))
		return false
	}

	entry := &systemEntry{
		system:  s,
		members: make([]Entity, 0, 64),
		index:   make(map[Entity]int, 64),
	}
	for _, t := range required {
		entry.required.Set(w.types.ID(t))
	}

	for e := Entity(1); e <= w.next; e++ {
		if rec, ok := w.entities[e]; ok && rec.signature.Contains(entry.required) {
			entry.add(e)
		}
	}
	w.systems = append(w.systems, entry)
	return true
}

func (w *world) Systems() []System {
	out := make([]System, len(w.systems))
	for i, entry := range w.systems {
		out[i] = entry.system
	}
	return out
}

func (w *world) Matched(s System) []Entity {
	for _, entry := range w.systems {
		if entry.system == s {
			return append([]Entity(nil), entry.members...)
		}
	}
	return nil
}

func (w *world) Update(dt float32) {
	w.RunPhase(PhaseUpdate, dt)
	w.Flush()
}

func (w *world) RunPhase(p Phase, dt float32) {
	for _, entry := range w.systems {
		switch p {
		case PhaseEarlyUpdate:
			if s, ok := entry.system.(EarlyUpdater); ok {
				s.EarlyUpdate(w, entry.snapshot(), dt)
			}
		case PhaseUpdate:
			entry.system.Update(w, entry.snapshot(), dt)
		case PhaseLateUpdate:
			if s, ok := entry.system.(LateUpdater); ok {
				s.LateUpdate(w, entry.snapshot(), dt)
			}
		}
	}
}

func (w *world) Flush() int {
	total := 0
	// Destroy hooks may queue more entities; those are flushed in the same call.
	for len(w.destroyQueue) > 0 {
		queue := w.destroyQueue
		w.destroyQueue = nil
		total += len(queue)
		for i := len(queue) - 1; i >= 0; i-- {
			w.destroy(queue[i])
		}
	}
	return total
}

func (w *world) destroy(e Entity) {
	rec, ok := w.entities[e]
	if !ok {
		return
	}
	for _, entry := range w.systems {
		entry.remove(e)
	}
	for id := 0; id < w.types.Len(); id++ {
		if !rec.signature.Has(ComponentType(id)) {
			continue
		}
		if d, ok := w.stores[id][e].(Destroyer); ok {
			d.Destroy()
		}
		delete(w.stores[id], e)
	}
	delete(w.entities, e)
}

func (w *world) Types() *TypeRegistry {
	return w.types
}

func (w *world) EntityCount() int {
	return len(w.entities)
}

// evaluate updates e's membership in every system after its signature changed.
func (w *world) evaluate(e Entity, rec *entityRecord) {
	for _, entry := range w.systems {
		if rec.signature.Contains(entry.required) {
			entry.add(e)
		} else {
			entry.remove(e)
		}
	}
}

func (w *world) mustRecord(e Entity) *entityRecord {
	rec, ok := w.entities[e]
	if !ok {
		panic(fmt.Sprintf("ecs: unknown entity %d", e))
	}
	return rec
}
