package physics

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
)

func newTestWorld(t *testing.T, opts ...SystemBuilderOption) (scene.Scene, *System) {
	t.Helper()
	s := scene.NewScene()
	sys := NewSystem(opts...)
	s.AddSystem(sys)
	s.Propagate()
	return s, sys
}

func step(s scene.Scene, dt float32) {
	s.BeginFrame()
	s.Update(dt)
	s.Propagate()
}

func TestAABBOverlapAndPenetration(t *testing.T) {
	a := Box(mgl32.Vec3{2, 2, 2})
	if !a.Overlaps(a.Translate(mgl32.Vec3{1.5, 0, 0})) {
		t.Fatal("boxes sharing volume should overlap")
	}
	if a.Overlaps(a.Translate(mgl32.Vec3{2, 0, 0})) {
		t.Fatal("touching boxes should not overlap")
	}
	got := a.Penetration(a.Translate(mgl32.Vec3{0, 1.75, 0.5}))
	if !got.ApproxEqual(mgl32.Vec3{0, -0.25, 0}) {
		t.Fatalf("penetration = %v", got)
	}
}

func TestAABBTransformEnclosesRotatedBox(t *testing.T) {
	a := AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{2, 1, 1}}
	m := mgl32.Translate3D(10, 0, 0).Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(90)))
	got := a.Transform(m)
	if !got.Min.ApproxEqualThreshold(mgl32.Vec3{9, 0, 0}, 1e-5) || !got.Max.ApproxEqualThreshold(mgl32.Vec3{10, 2, 1}, 1e-5) {
		t.Fatalf("transformed = %+v", got)
	}
}

func TestBodyComesToRestOnGround(t *testing.T) {
	s, sys := newTestWorld(t)
	s.Root().NewChild("ground").AddComponent(NewStaticCollider(Box(mgl32.Vec3{10, 1, 10})))
	ball := s.Root().NewChild("ball", transform.WithTranslation(0, 3, 0))
	c := NewCollider(Box(mgl32.Vec3{1, 1, 1}))
	ball.AddComponent(c)
	s.Propagate()

	for i := 0; i < 60; i++ {
		step(s, 1.0/30)
		if y := ball.Global().Col(3).Y(); y < 0.999 {
			t.Fatalf("frame %d: ball sank to %v", i, y)
		}
	}
	if y := ball.Global().Col(3).Y(); y > 1.001 {
		t.Fatalf("ball rests at %v, want 1", y)
	}
	if c.Velocity.Y() != 0 {
		t.Fatalf("resting velocity = %v", c.Velocity)
	}
	if len(sys.Pairs()) != 1 {
		t.Fatalf("pairs = %d, want 1", len(sys.Pairs()))
	}
}

func TestTriggerReportsWithoutSeparating(t *testing.T) {
	s, sys := newTestWorld(t, WithGravity(mgl32.Vec3{}))
	zone := NewStaticCollider(Box(mgl32.Vec3{4, 4, 4}))
	zone.Trigger = true
	s.Root().NewChild("zone").AddComponent(zone)
	body := s.Root().NewChild("body")
	body.AddComponent(NewCollider(Box(mgl32.Vec3{1, 1, 1})))
	s.Propagate()

	var contacts int
	sys.onContact = func(p Pair) { contacts++ }
	step(s, 0.1)

	if len(sys.Pairs()) != 1 || contacts != 1 {
		t.Fatalf("pairs = %d contacts = %d, want 1", len(sys.Pairs()), contacts)
	}
	if got := body.Global().Col(3).Vec3(); got != (mgl32.Vec3{}) {
		t.Fatalf("trigger moved the body to %v", got)
	}
}

func TestStaticPairsIgnored(t *testing.T) {
	s, sys := newTestWorld(t)
	s.Root().NewChild("a").AddComponent(NewStaticCollider(Box(mgl32.Vec3{1, 1, 1})))
	s.Root().NewChild("b").AddComponent(NewStaticCollider(Box(mgl32.Vec3{1, 1, 1})))
	s.Propagate()
	step(s, 0.1)
	if len(sys.Pairs()) != 0 {
		t.Fatal("static bodies should never pair")
	}
}

func TestDynamicBodiesSplitSeparation(t *testing.T) {
	s, _ := newTestWorld(t, WithGravity(mgl32.Vec3{}))
	left := s.Root().NewChild("left", transform.WithTranslation(-0.4, 0, 0))
	right := s.Root().NewChild("right", transform.WithTranslation(0.4, 0, 0))
	left.AddComponent(NewCollider(Box(mgl32.Vec3{1, 1, 1})))
	right.AddComponent(NewCollider(Box(mgl32.Vec3{1, 1, 1})))
	s.Propagate()

	step(s, 0.1)
	l, r := left.Global().Col(3).X(), right.Global().Col(3).X()
	if r-l < 0.999 {
		t.Fatalf("bodies still overlap: %v and %v", l, r)
	}
	if l+r > 1e-5 || l+r < -1e-5 {
		t.Fatalf("separation not split evenly: %v and %v", l, r)
	}
}

func TestForceClearedAfterIntegration(t *testing.T) {
	s, _ := newTestWorld(t, WithGravity(mgl32.Vec3{}))
	c := NewCollider(Box(mgl32.Vec3{1, 1, 1}))
	c.Mass = 2
	s.Root().NewChild("body").AddComponent(c)
	s.Propagate()

	c.AddForce(mgl32.Vec3{4, 0, 0})
	step(s, 0.5)
	if c.Velocity.X() != 1 {
		t.Fatalf("velocity = %v, want 1", c.Velocity.X())
	}
	if c.Force != (mgl32.Vec3{}) {
		t.Fatal("force not cleared")
	}
	c.AddImpulse(mgl32.Vec3{0, 2, 0})
	if c.Velocity.Y() != 1 {
		t.Fatalf("impulse velocity = %v, want 1", c.Velocity.Y())
	}
}

func TestMotionConvertedToParentSpace(t *testing.T) {
	s, _ := newTestWorld(t, WithGravity(mgl32.Vec3{}))
	parent := s.Root().NewChild("parent", transform.WithScale(2, 2, 2))
	child := parent.NewChild("child")
	c := NewCollider(Box(mgl32.Vec3{1, 1, 1}))
	c.Velocity = mgl32.Vec3{2, 0, 0}
	child.AddComponent(c)
	s.Propagate()

	step(s, 1)
	if got := child.Transform().Translation().X(); got != 1 {
		t.Fatalf("local x = %v, want 1", got)
	}
	if got := child.Global().Col(3).X(); got != 2 {
		t.Fatalf("world x = %v, want 2", got)
	}
}
