package ecs

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type position struct{ X, Y float32 }
type velocity struct{ X, Y float32 }
type tag struct{}

type closer struct{ closed *int }

func (c *closer) Destroy() { *c.closed++ }

// recordingSystem records every matched set it is handed.
type recordingSystem struct {
	requires []reflect.Type
	seen     [][]Entity
	onUpdate func(w World, entities []Entity)
}

func (s *recordingSystem) Requires() []reflect.Type { return s.requires }

func (s *recordingSystem) Update(w World, entities []Entity, dt float32) {
	s.seen = append(s.seen, append([]Entity(nil), entities...))
	if s.onUpdate != nil {
		s.onUpdate(w, entities)
	}
}

type movementSystem struct {
	recordingSystem
	early, late int
}

func (s *movementSystem) EarlyUpdate(w World, entities []Entity, dt float32) { s.early++ }
func (s *movementSystem) LateUpdate(w World, entities []Entity, dt float32)  { s.late++ }

func newTestWorld(t *testing.T) (World, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return NewWorld(WithLogger(zap.New(core))), logs
}

func TestCreateEntitySequential(t *testing.T) {
	w, _ := newTestWorld(t)
	for want := Entity(1); want <= 5; want++ {
		if got := w.CreateEntity(); got != want {
			t.Fatalf("CreateEntity = %d, want %d", got, want)
		}
	}
	if w.EntityCount() != 5 {
		t.Fatalf("EntityCount = %d, want 5", w.EntityCount())
	}
}

func TestMembershipReevaluation(t *testing.T) {
	w, _ := newTestWorld(t)
	sys := &recordingSystem{requires: Types(&position{}, &velocity{})}
	if !w.AddSystem(sys) {
		t.Fatal("AddSystem rejected a valid system")
	}

	e := w.CreateEntity()
	w.AddComponent(e, &position{})
	if len(w.Matched(sys)) != 0 {
		t.Fatal("entity matched with only one of two required components")
	}

	w.AddComponent(e, &velocity{X: 1})
	if got := w.Matched(sys); !slices.Equal(got, []Entity{e}) {
		t.Fatalf("Matched = %v, want [%d]", got, e)
	}

	Remove[*position](w, e)
	if len(w.Matched(sys)) != 0 {
		t.Fatal("entity still matched after removing a required component")
	}
}

func TestAddComponentReplacesSameType(t *testing.T) {
	w, _ := newTestWorld(t)
	e := w.CreateEntity()
	Add(w, e, &velocity{X: 1})
	Add(w, e, &velocity{X: 2})

	v := MustGet[*velocity](w, e)
	if v.X != 2 {
		t.Fatalf("velocity = %v, want replaced value 2", v.X)
	}
	if n := len(w.Components(e)); n != 1 {
		t.Fatalf("component count = %d, want 1", n)
	}
}

func TestAddComponentDestroysReplaced(t *testing.T) {
	w, _ := newTestWorld(t)
	e := w.CreateEntity()
	var first, second int
	a := &closer{closed: &first}
	Add(w, e, a)
	Add(w, e, a)
	if first != 0 {
		t.Fatalf("re-adding the same component destroyed it %d times", first)
	}

	Add(w, e, &closer{closed: &second})
	if first != 1 {
		t.Fatalf("replaced component destroyed %d times, want 1", first)
	}
	w.DestroyEntity(e)
	w.Flush()
	if first != 1 || second != 1 {
		t.Fatalf("after destroying the entity: first = %d second = %d, want 1 1", first, second)
	}
}

func TestAddSystemRejectsEmptyRequirements(t *testing.T) {
	w, logs := newTestWorld(t)
	if w.AddSystem(&recordingSystem{}) {
		t.Fatal("AddSystem accepted an empty requirement set")
	}
	if len(w.Systems()) != 0 {
		t.Fatal("rejected system was registered")
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 1 {
		t.Fatalf("expected exactly one warning, got %d", logs.Len())
	}
}

func TestAddSystemComputesInitialMembership(t *testing.T) {
	w, _ := newTestWorld(t)
	a := w.CreateEntity()
	b := w.CreateEntity()
	Add(w, a, &position{})
	Add(w, b, &velocity{})

	sys := &recordingSystem{requires: Types(&position{})}
	w.AddSystem(sys)
	if got := w.Matched(sys); !slices.Equal(got, []Entity{a}) {
		t.Fatalf("initial membership = %v, want [%d]", got, a)
	}
}

func TestDeferredDestruction(t *testing.T) {
	w, _ := newTestWorld(t)
	e := w.CreateEntity()
	other := w.CreateEntity()
	closed := 0
	for _, ent := range []Entity{e, other} {
		Add(w, ent, &position{})
		Add(w, ent, &closer{closed: &closed})
	}

	first := &recordingSystem{requires: Types(&position{})}
	first.onUpdate = func(w World, entities []Entity) {
		if len(first.seen) == 1 {
			w.DestroyEntity(e)
			w.DestroyEntity(e)
		}
	}
	second := &recordingSystem{requires: Types(&position{})}
	w.AddSystem(first)
	w.AddSystem(second)

	w.Update(0.016)
	for name, sys := range map[string]*recordingSystem{"first": first, "second": second} {
		if !slices.Contains(sys.seen[0], e) {
			t.Errorf("%s system did not see entity destroyed during the tick", name)
		}
	}
	if w.Alive(e) {
		t.Fatal("entity still alive after Update returned")
	}
	if closed != 1 {
		t.Fatalf("destroy hooks run = %d, want 1", closed)
	}

	w.Update(0.016)
	for name, sys := range map[string]*recordingSystem{"first": first, "second": second} {
		if slices.Contains(sys.seen[1], e) {
			t.Errorf("%s system saw entity on the following tick", name)
		}
		if !slices.Contains(sys.seen[1], other) {
			t.Errorf("%s system lost a surviving entity", name)
		}
	}
}

func TestUpdateRunsInRegistrationOrder(t *testing.T) {
	w, _ := newTestWorld(t)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		w.AddSystem(&recordingSystem{
			requires: Types(tag{}),
			onUpdate: func(World, []Entity) { order = append(order, i) },
		})
	}
	w.Update(0)
	if !slices.Equal(order, []int{0, 1, 2}) {
		t.Fatalf("order = %v, want [0 1 2]", order)
	}
}

func TestRunPhaseHooks(t *testing.T) {
	w, _ := newTestWorld(t)
	sys := &movementSystem{recordingSystem: recordingSystem{requires: Types(&velocity{})}}
	w.AddSystem(sys)

	w.RunPhase(PhaseEarlyUpdate, 0)
	w.RunPhase(PhaseUpdate, 0)
	w.RunPhase(PhaseLateUpdate, 0)
	if sys.early != 1 || sys.late != 1 || len(sys.seen) != 1 {
		t.Fatalf("early=%d update=%d late=%d, want 1 each", sys.early, len(sys.seen), sys.late)
	}
}

func TestGetSystem(t *testing.T) {
	w, _ := newTestWorld(t)
	if _, err := GetSystem[*movementSystem](w); !errors.Is(err, ErrSystemNotFound) {
		t.Fatalf("GetSystem error = %v, want ErrSystemNotFound", err)
	}

	sys := &movementSystem{recordingSystem: recordingSystem{requires: Types(&velocity{})}}
	w.AddSystem(sys)
	got, err := GetSystem[*movementSystem](w)
	if err != nil || got != sys {
		t.Fatalf("GetSystem = %v, %v", got, err)
	}
}

func TestUnknownEntityPanics(t *testing.T) {
	w, _ := newTestWorld(t)
	cases := map[string]func(){
		"add":     func() { w.AddComponent(99, &position{}) },
		"remove":  func() { Remove[*position](w, 99) },
		"get":     func() { Get[*position](w, 99) },
		"destroy": func() { w.DestroyEntity(99) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestSharedTypeRegistry(t *testing.T) {
	types := NewTypeRegistry()
	id := types.ID(reflect.TypeFor[*velocity]())
	w := NewWorld(WithTypeRegistry(types))
	if got := w.Types().IDOf(&velocity{}); got != id {
		t.Fatalf("shared registry id = %d, want %d", got, id)
	}
}
