package gameplay

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"github.com/Carmen-Shannon/oxy-deferred/engine/input"
	"github.com/Carmen-Shannon/oxy-deferred/engine/navigation"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type harness struct {
	w    ecs.World
	sc   scene.Scene
	in   input.Input
	logs *observer.ObservedLogs
}

func newHarness(t *testing.T, nav navigation.Navigator) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	h := &harness{
		w:    ecs.NewWorld(ecs.WithLogger(log)),
		sc:   scene.NewScene(),
		in:   input.NewInput(),
		logs: logs,
	}
	Register(h.w, h.in, nav, log)
	return h
}

func (h *harness) frame(dt float32) {
	h.sc.BeginFrame()
	h.in.Sample()
	h.w.RunPhase(ecs.PhaseEarlyUpdate, dt)
	h.w.RunPhase(ecs.PhaseUpdate, dt)
	h.w.RunPhase(ecs.PhaseLateUpdate, dt)
	h.w.Flush()
	h.sc.Propagate()
}

func TestMovementTranslatesNode(t *testing.T) {
	h := newHarness(t, nil)
	e, n := Spawn(h.w, h.sc.Root(), "mover")
	ecs.Add(h.w, e, &Velocity{Linear: mgl32.Vec3{2, 0, 0}})

	h.frame(0.5)
	h.frame(0.5)
	if got := n.Global().Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{2, 0, 0}) {
		t.Fatalf("position = %v, want (2, 0, 0)", got)
	}
}

func TestMovementRotatesNode(t *testing.T) {
	h := newHarness(t, nil)
	e, n := Spawn(h.w, h.sc.Root(), "spinner")
	ecs.Add(h.w, e, &Velocity{Angular: mgl32.Vec3{0, mgl32.DegToRad(90), 0}})

	h.frame(1)
	want := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	if got := n.Transform().Rotation(); !got.ApproxEqualThreshold(want, 1e-5) {
		t.Fatalf("rotation = %v, want %v", got, want)
	}
}

func TestPlayerControlSetsVelocity(t *testing.T) {
	h := newHarness(t, nil)
	e := h.w.CreateEntity()
	v := &Velocity{}
	ecs.Add(h.w, e, &PlayerControl{Speed: 4})
	ecs.Add(h.w, e, v)

	h.in.KeyDown(common.KeyW)
	h.frame(0.1)
	if v.Linear != (mgl32.Vec3{0, 0, -4}) {
		t.Fatalf("velocity = %v, want forward at speed 4", v.Linear)
	}

	h.in.KeyDown(common.KeyD)
	h.frame(0.1)
	if l := v.Linear.Len(); mgl32.Abs(l-4) > 1e-5 {
		t.Fatalf("diagonal speed = %v, want 4", l)
	}

	h.in.KeyUp(common.KeyW)
	h.in.KeyUp(common.KeyD)
	h.in.KeyDown(common.KeySpace)
	h.frame(0.1)
	if v.Linear != (mgl32.Vec3{0, 4, 0}) {
		t.Fatalf("velocity = %v, want up", v.Linear)
	}
}

func TestPathFollowerReachesTarget(t *testing.T) {
	grid := navigation.NewGrid(mgl32.Vec3{}, 1, 10, 10)
	h := newHarness(t, grid)
	e, n := Spawn(h.w, h.sc.Root(), "walker", transform.WithTranslation(0.5, 0, 0.5))
	h.sc.Propagate()

	target := mgl32.Vec3{3.5, 0, 0.5}
	f := NewPathFollower(target, 1)
	ecs.Add(h.w, e, f)
	ecs.Add(h.w, e, &Velocity{})

	for i := 0; i < 20 && !f.Arrived(); i++ {
		h.frame(0.5)
	}
	if !f.Arrived() {
		t.Fatalf("follower did not arrive, remaining path %v", f.Path())
	}
	if got := n.Global().Col(3).Vec3(); got.Sub(target).Len() > f.Arrive {
		t.Fatalf("position = %v, want near %v", got, target)
	}
}

func TestPathFollowerUnreachableTarget(t *testing.T) {
	grid := navigation.NewGrid(mgl32.Vec3{}, 1, 10, 10, navigation.WithBlocked([2]int{5, 5}))
	h := newHarness(t, grid)
	e, _ := Spawn(h.w, h.sc.Root(), "walker", transform.WithTranslation(0.5, 0, 0.5))
	h.sc.Propagate()

	f := NewPathFollower(mgl32.Vec3{5.5, 0, 5.5}, 1)
	v := &Velocity{Linear: mgl32.Vec3{1, 0, 0}}
	ecs.Add(h.w, e, f)
	ecs.Add(h.w, e, v)

	h.frame(0.1)
	h.frame(0.1)
	if !f.Unreachable() || f.Arrived() {
		t.Fatal("blocked target not reported unreachable")
	}
	if v.Linear != (mgl32.Vec3{}) {
		t.Fatalf("velocity = %v, want zero", v.Linear)
	}
	if got := h.logs.FilterMessage("no path to target").Len(); got != 1 {
		t.Fatalf("warnings = %d, want 1", got)
	}
}

func TestLifetimeDestroysEntityAndNode(t *testing.T) {
	h := newHarness(t, nil)
	e, n := Spawn(h.w, h.sc.Root(), "spark")
	ecs.Add(h.w, e, &Lifetime{Remaining: 1})

	h.frame(0.6)
	if !h.w.Alive(e) || !n.Valid() {
		t.Fatal("entity expired early")
	}
	h.frame(0.6)
	if h.w.Alive(e) {
		t.Fatal("entity alive after its lifetime")
	}
	if n.Valid() {
		t.Fatal("owned node survived its entity")
	}
}

func TestBorrowedNodeSurvivesEntity(t *testing.T) {
	h := newHarness(t, nil)
	n := h.sc.Root().NewChild("shared")
	e := h.w.CreateEntity()
	ecs.Add(h.w, e, &NodeRef{Node: n})

	h.w.DestroyEntity(e)
	h.w.Flush()
	if !n.Valid() {
		t.Fatal("borrowed node destroyed with entity")
	}
}

func TestActorBridgesNodeToEntity(t *testing.T) {
	h := newHarness(t, nil)
	h.sc.AddSystem(NewActorSystem(h.w, nil))

	actor := &Actor{Components: []any{&Velocity{Linear: mgl32.Vec3{0, 0, -1}}}}
	n := h.sc.Root().NewChild("walker")
	n.AddComponent(actor)

	e := actor.Entity()
	if e == ecs.InvalidEntity || !h.w.Alive(e) {
		t.Fatal("actor entity not created")
	}
	if ref, ok := ecs.Get[*NodeRef](h.w, e); !ok || ref.Node.ID() != n.ID() || !ref.Owned {
		t.Fatalf("node ref = %+v, %v", ref, ok)
	}

	h.frame(1)
	if got := n.Global().Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{0, 0, -1}) {
		t.Fatalf("position = %v, want (0, 0, -1)", got)
	}

	n.Destroy()
	if !h.w.Alive(e) {
		t.Fatal("entity removed before the flush")
	}
	h.frame(1)
	if h.w.Alive(e) {
		t.Fatal("entity survived its node")
	}
}

func TestOwnedNodeDestroyedWithActorEntity(t *testing.T) {
	h := newHarness(t, nil)
	h.sc.AddSystem(NewActorSystem(h.w, nil))

	e, n := Spawn(h.w, h.sc.Root(), "spawned")
	child := n.NewChild("tagged")
	actor := &Actor{}
	child.AddComponent(actor)

	h.w.DestroyEntity(e)
	h.w.Flush()
	if n.Valid() || child.Valid() {
		t.Fatal("owned node survived")
	}
	if h.w.Alive(actor.Entity()) {
		t.Fatal("cascaded actor entity survived the flush")
	}
}

func TestExpiredActorTakesItsNode(t *testing.T) {
	h := newHarness(t, nil)
	h.sc.AddSystem(NewActorSystem(h.w, nil))

	n := h.sc.Root().NewChild("spark")
	n.AddComponent(&Actor{Components: []any{&Lifetime{Remaining: 0.25}}})

	h.frame(0.2)
	if !n.Valid() {
		t.Fatal("node destroyed before its lifetime ran out")
	}
	h.frame(0.2)
	if n.Valid() {
		t.Fatal("node survived its actor's lifetime")
	}
}
