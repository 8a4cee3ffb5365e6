package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/input"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
)

func TestMatricesFollowNode(t *testing.T) {
	s := scene.NewScene()
	cam := NewCamera(WithAspect(16.0/9.0), WithFar(50))
	n := s.Root().NewChild("eye", transform.WithTranslation(0, 0, 5))
	n.AddComponent(cam)
	s.Propagate()

	m := cam.Matrices(n)
	if got := m.View.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3(); !got.ApproxEqual(mgl32.Vec3{0, 0, -5}) {
		t.Fatalf("origin in view space = %v", got)
	}
	if !m.Position.ApproxEqual(mgl32.Vec3{0, 0, 5}) {
		t.Fatalf("position = %v", m.Position)
	}
	product, ident := m.ViewProjection.Mul4(m.InverseViewProjection), mgl32.Ident4()
	if !common.ApproxEqual(product[:], ident[:], 1e-4) {
		t.Fatal("inverse view-projection does not invert view-projection")
	}
}

func TestSkyDropsTranslation(t *testing.T) {
	s := scene.NewScene()
	cam := NewCamera()
	near := s.Root().NewChild("near")
	far := s.Root().NewChild("far", transform.WithTranslation(100, -20, 3))
	near.AddComponent(cam)
	s.Propagate()
	a := cam.Matrices(near).SkyViewProjection
	b := cam.Matrices(far).SkyViewProjection
	if !common.ApproxEqual(a[:], b[:], 1e-6) {
		t.Fatal("sky matrix depends on camera position")
	}
}

func TestProjectionRecomputedOnChange(t *testing.T) {
	cam := NewCamera()
	before := cam.Projection()
	cam.SetAspect(2)
	after := cam.Projection()
	if before == after {
		t.Fatal("projection unchanged after aspect change")
	}
	if after[0]*2 != after[5] {
		t.Fatalf("x scale %v is not y scale %v / aspect", after[0], after[5])
	}
}

func TestSystemActiveAndResize(t *testing.T) {
	s := scene.NewScene()
	sys := NewSystem(nil)
	s.AddSystem(sys)

	if _, _, ok := sys.Active(); ok {
		t.Fatal("active camera with none attached")
	}
	first, second := NewCamera(), NewCamera()
	a := s.Root().NewChild("a")
	a.AddComponent(first)
	s.Root().NewChild("b").AddComponent(second)

	cam, n, ok := sys.Active()
	if !ok || cam != first || n.ID() != a.ID() {
		t.Fatal("first attached camera should be active")
	}
	sys.Resize(800, 400)
	if first.Aspect() != 2 || second.Aspect() != 2 {
		t.Fatal("resize did not update aspect")
	}

	a.Destroy()
	if cam, _, _ := sys.Active(); cam != second {
		t.Fatal("second camera should become active")
	}
}

func TestOrbitFacesTarget(t *testing.T) {
	s := scene.NewScene()
	in := input.NewInput()
	s.AddSystem(NewOrbitSystem(in, nil))

	target := mgl32.Vec3{1, 2, 3}
	o := NewOrbit(target, 10)
	o.Azimuth = 0.7
	n := s.Root().NewChild("eye")
	n.AddComponent(o)
	s.Propagate()

	pos := n.Transform().Position()
	if d := pos.Sub(target).Len(); d < 9.999 || d > 10.001 {
		t.Fatalf("distance to target = %v", d)
	}
	want := target.Sub(pos).Normalize()
	if got := n.Transform().Forward(); !got.ApproxEqualThreshold(want, 1e-4) {
		t.Fatalf("forward = %v, want %v", got, want)
	}
}

func TestOrbitSystemReadsInput(t *testing.T) {
	s := scene.NewScene()
	in := input.NewInput()
	s.AddSystem(NewOrbitSystem(in, nil))
	o := NewOrbit(mgl32.Vec3{}, 10)
	s.Root().NewChild("eye").AddComponent(o)

	in.KeyDown(common.KeyRight)
	in.Scroll(2)
	in.Sample()
	s.EarlyUpdate(0.5)

	if o.Azimuth <= 0 {
		t.Fatalf("azimuth = %v, want positive", o.Azimuth)
	}
	if o.Radius != 10-2*o.ZoomSpeed {
		t.Fatalf("radius = %v", o.Radius)
	}

	o.Elevation = o.MaxElevation
	in.KeyUp(common.KeyRight)
	in.KeyDown(common.KeyUp)
	in.Sample()
	s.EarlyUpdate(1)
	if o.Elevation != o.MaxElevation {
		t.Fatal("elevation not clamped")
	}
}
