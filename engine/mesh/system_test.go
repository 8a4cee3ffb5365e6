package mesh

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestTriangle(name string) Mesh {
	return NewMesh(name, []GPUVertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 1, 0}},
	}, []uint32{0, 1, 2}, false)
}

func newTestScene(t *testing.T) (scene.Scene, *System) {
	t.Helper()
	s := scene.NewScene()
	sys := NewSystem(nil)
	s.AddSystem(sys)
	return s, sys
}

func TestRebuildBatchesIdenticalInstances(t *testing.T) {
	s, sys := newTestScene(t)
	m := newTestTriangle("tri")
	mat := material.NewMaterial()
	const n = 5
	for i := 0; i < n; i++ {
		s.Root().NewChild("inst", transform.WithTranslation(float32(i), 0, 0)).AddComponent(NewRenderer(m, mat))
	}
	s.Propagate()

	list := sys.Rebuild()
	if len(list.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(list.Calls))
	}
	if list.Calls[0].InstanceCount != n || list.Calls[0].FirstInstance != 0 {
		t.Fatalf("call = %+v, want %d instances from 0", list.Calls[0], n)
	}
	if list.InstanceCount() != n {
		t.Fatalf("instance buffer holds %d instances, want %d", list.InstanceCount(), n)
	}
}

func TestRebuildGroupsAlternatingMaterials(t *testing.T) {
	s, sys := newTestScene(t)
	m := newTestTriangle("tri")
	a := material.NewMaterial(material.WithName("a"))
	b := material.NewMaterial(material.WithName("b"))
	for i := 0; i < 8; i++ {
		mat := a
		if i%2 == 1 {
			mat = b
		}
		s.Root().NewChild("inst").AddComponent(NewRenderer(m, mat))
	}
	s.Propagate()

	list := sys.Rebuild()
	if len(list.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(list.Calls))
	}
	if list.Calls[0].Material != a || list.Calls[1].Material != b {
		t.Fatal("calls not ordered by material identity")
	}
	if list.Calls[0].InstanceCount != 4 || list.Calls[1].FirstInstance != 4 || list.Calls[1].InstanceCount != 4 {
		t.Fatalf("calls = %+v", list.Calls)
	}
}

func TestRebuildSortsByTypeBitsFirst(t *testing.T) {
	s, sys := newTestScene(t)
	m := newTestTriangle("tri")
	normalMapped := material.NewMaterial(material.WithTypeBits(material.TypeNormalMapped))
	plain := material.NewMaterial()

	s.Root().NewChild("nm").AddComponent(NewRenderer(m, normalMapped))
	s.Root().NewChild("plain").AddComponent(NewRenderer(m, plain))
	s.Propagate()

	list := sys.Rebuild()
	if list.Calls[0].Material != plain {
		t.Fatal("material with lower type bits not drawn first despite higher identity")
	}
}

func TestRebuildSplitsOnMeshChange(t *testing.T) {
	s, sys := newTestScene(t)
	mat := material.NewMaterial()
	m1, m2 := newTestTriangle("one"), newTestTriangle("two")
	s.Root().NewChild("a").AddComponent(NewRenderer(m2, mat))
	s.Root().NewChild("b").AddComponent(NewRenderer(m1, mat))
	s.Root().NewChild("c").AddComponent(NewRenderer(m2, mat))
	s.Propagate()

	list := sys.Rebuild()
	if len(list.Calls) != 2 || list.Calls[0].Mesh != m1 || list.Calls[1].InstanceCount != 2 {
		t.Fatalf("calls = %+v", list.Calls)
	}
}

func TestRebuildWritesGlobalAndInverse(t *testing.T) {
	s, sys := newTestScene(t)
	parent := s.Root().NewChild("parent", transform.WithTranslation(1, 0, 0))
	parent.NewChild("child", transform.WithTranslation(0, 2, 0), transform.WithScale(2, 2, 2)).
		AddComponent(NewRenderer(newTestTriangle("tri"), material.NewMaterial()))
	s.Propagate()

	list := sys.Rebuild()
	var global, inverse mgl32.Mat4
	copy(global[:], list.Instances[0:16])
	copy(inverse[:], list.Instances[16:32])
	if got := global.Col(3).Vec3(); got != (mgl32.Vec3{1, 2, 0}) {
		t.Fatalf("instance translation = %v", got)
	}
	product, ident := global.Mul4(inverse), mgl32.Ident4()
	if !common.ApproxEqual(product[:], ident[:], 1e-5) {
		t.Fatal("instance inverse does not invert global")
	}
}

func TestDestroyedRenderersLeaveDrawList(t *testing.T) {
	s, sys := newTestScene(t)
	m := newTestTriangle("tri")
	mat := material.NewMaterial()
	keep := s.Root().NewChild("keep")
	keep.AddComponent(NewRenderer(m, mat))
	gone := s.Root().NewChild("gone")
	gone.AddComponent(NewRenderer(m, mat))

	gone.Destroy()
	s.Propagate()
	if list := sys.Rebuild(); list.InstanceCount() != 1 {
		t.Fatalf("instances = %d, want 1", list.InstanceCount())
	}
}

func TestShadowCastersLeadEachCall(t *testing.T) {
	s, sys := newTestScene(t)
	m := newTestTriangle("tri")
	mat := material.NewMaterial()
	noShadow := NewRenderer(m, mat)
	noShadow.CastShadows = false
	s.Root().NewChild("a").AddComponent(noShadow)
	s.Root().NewChild("b").AddComponent(NewRenderer(m, mat))
	s.Propagate()

	list := sys.Rebuild()
	if len(list.Calls) != 1 || list.Calls[0].ShadowCasters != 1 {
		t.Fatalf("calls = %+v", list.Calls)
	}
}

func TestMovedRendererDiagnostic(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := scene.NewScene()
	sys := NewSystem(zap.New(core))
	s.AddSystem(sys)

	r := NewRenderer(newTestTriangle("tri"), material.NewMaterial())
	s.Root().NewChild("a").AddComponent(r)
	s.Root().NewChild("b").AddComponent(r)
	if logs.Len() != 1 {
		t.Fatalf("diagnostics = %d, want 1", logs.Len())
	}
	if sys.Len() != 1 {
		t.Fatalf("tracked = %d, want 1", sys.Len())
	}

	a, _ := s.Root().FindChild(func(n scene.Node) bool { return n.Name() == "a" }, 1)
	b, _ := s.Root().FindChild(func(n scene.Node) bool { return n.Name() == "b" }, 1)
	a.Destroy()
	if sys.Len() != 1 || len(b.Components()) != 1 {
		t.Fatalf("after destroying the old node: tracked = %d, b components = %d", sys.Len(), len(b.Components()))
	}
	s.Propagate()
	if list := sys.Rebuild(); list.InstanceCount() != 1 {
		t.Fatalf("instances = %d, want the moved renderer", list.InstanceCount())
	}
}

func TestDetachedRenderersAreSkipped(t *testing.T) {
	s, sys := newTestScene(t)
	m := newTestTriangle("tri")
	mat := material.NewMaterial()
	parent := s.Root().NewChild("parent")
	pickup := parent.NewChild("pickup")
	pickup.AddComponent(NewRenderer(m, mat))
	s.Root().NewChild("wall").AddComponent(NewRenderer(m, mat))

	s.BeginFrame()
	s.Propagate()
	if list := sys.Rebuild(); list.InstanceCount() != 2 {
		t.Fatalf("instances = %d, want 2", list.InstanceCount())
	}

	parent.RemoveChild(pickup)
	spawned := s.CreateNode("spawned")
	spawned.AddComponent(NewRenderer(m, mat))

	s.BeginFrame()
	s.Propagate()
	if list := sys.Rebuild(); list.InstanceCount() != 1 {
		t.Fatalf("instances = %d, want only the attached wall", list.InstanceCount())
	}

	s.Root().AddChild(pickup)
	s.Root().AddChild(spawned)
	s.BeginFrame()
	s.Propagate()
	if list := sys.Rebuild(); list.InstanceCount() != 3 {
		t.Fatalf("instances after reattaching = %d, want 3", list.InstanceCount())
	}
}

func TestProviderKnowsIndexCountBeforeUpload(t *testing.T) {
	m := newTestTriangle("tri")
	p := m.BindGroupProvider()
	if p.IndexCount() != 3 {
		t.Fatalf("index count = %d, want 3", p.IndexCount())
	}
	if m.Uploaded() {
		t.Fatal("mesh reports uploaded without a vertex buffer")
	}
	m.Destroy()
	if m.BindGroupProvider() == p {
		t.Fatal("destroy kept the released provider")
	}
}
