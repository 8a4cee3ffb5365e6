package gameplay

import (
	"reflect"

	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"go.uber.org/zap"
)

// Actor is a node component that gives its node an entity. When the actor is attached the entity is created with an
// owning NodeRef to the node plus Components. The two live and die together: destroying the entity destroys the node,
// and destroying the node or removing the actor queues the entity for destruction.
type Actor struct {
	Components []any

	entity ecs.Entity
}

func (a *Actor) Name() string {
	return "Actor"
}

// Entity returns the actor's entity, or ecs.InvalidEntity before it is attached.
func (a *Actor) Entity() ecs.Entity {
	return a.entity
}

// ActorSystem creates and destroys the entities of Actor components.
type ActorSystem struct {
	w       ecs.World
	tracker *scene.Tracker[*Actor]
}

var _ scene.NodeSystem = &ActorSystem{}

// NewActorSystem creates an actor system spawning into w.
//
// Parameters:
//   - w: the world entities are created in
//   - log: the logger for diagnostics, or nil
//
// Returns:
//   - *ActorSystem: the new system
func NewActorSystem(w ecs.World, log *zap.Logger) *ActorSystem {
	return &ActorSystem{w: w, tracker: scene.NewTracker[*Actor](log, "actor")}
}

func (s *ActorSystem) ComponentType() reflect.Type {
	return reflect.TypeFor[*Actor]()
}

func (s *ActorSystem) OnCreate(n scene.Node, c any) {
	a := c.(*Actor)
	s.tracker.Track(n, a)
	a.entity = s.w.CreateEntity()
	ecs.Add(s.w, a.entity, &NodeRef{Node: n, Owned: true})
	for _, comp := range a.Components {
		s.w.AddComponent(a.entity, comp)
	}
}

func (s *ActorSystem) OnDestroy(_ scene.Node, c any) {
	a := c.(*Actor)
	s.tracker.Untrack(a)
	if a.entity != ecs.InvalidEntity && s.w.Alive(a.entity) {
		s.w.DestroyEntity(a.entity)
	}
}

// Len returns the number of tracked actors.
func (s *ActorSystem) Len() int {
	return s.tracker.Len()
}
