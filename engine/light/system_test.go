package light

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestScene(t *testing.T, opts ...SystemBuilderOption) (scene.Scene, *System, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	sys := NewSystem(append([]SystemBuilderOption{WithLogger(zap.New(core))}, opts...)...)
	s := scene.NewScene()
	s.AddSystem(sys)
	return s, sys, logs
}

func TestRebuildSkipsNearZeroAndDisabled(t *testing.T) {
	s, sys, _ := newTestScene(t)
	s.Root().NewChild("on").AddComponent(NewLight(LightTypePoint))
	s.Root().NewChild("dim").AddComponent(NewLight(LightTypePoint, WithIntensity(1e-6)))
	s.Root().NewChild("negative").AddComponent(NewLight(LightTypePoint, WithIntensity(-2)))
	s.Root().NewChild("off").AddComponent(NewLight(LightTypePoint, WithEnabled(false)))
	s.Propagate()

	f := sys.Rebuild(mgl32.Vec3{})
	if len(f.Lights) != 2 {
		t.Fatalf("lights = %d, want 2", len(f.Lights))
	}
}

func TestRebuildDerivesPositionAndDirectionFromNode(t *testing.T) {
	s, sys, _ := newTestScene(t)
	parent := s.Root().NewChild("rig", transform.WithTranslation(0, 5, 0))
	// -90° about X turns -Z into -Y
	parent.NewChild("spot",
		transform.WithTranslation(1, 0, 0),
		transform.WithRotation(mgl32.QuatRotate(mgl32.DegToRad(-90), mgl32.Vec3{1, 0, 0})),
	).AddComponent(NewLight(LightTypeSpot))
	s.Propagate()

	gpu := sys.Rebuild(mgl32.Vec3{}).Lights[0].GPU
	if got := mgl32.Vec3(gpu.Position); !got.ApproxEqual(mgl32.Vec3{1, 5, 0}) {
		t.Fatalf("position = %v", got)
	}
	if got := mgl32.Vec3(gpu.Direction); !got.ApproxEqualThreshold(mgl32.Vec3{0, -1, 0}, 1e-5) {
		t.Fatalf("direction = %v", got)
	}
}

func TestShadowSlotExhaustion(t *testing.T) {
	s, sys, logs := newTestScene(t, WithMaxShadowSlots(2))
	var lights []Light
	for i := 0; i < 5; i++ {
		l := NewLight(LightTypeDirectional, WithCastsShadows(true))
		lights = append(lights, l)
		s.Root().NewChild("sun").AddComponent(l)
	}
	s.Propagate()

	f := sys.Rebuild(mgl32.Vec3{})
	if len(f.Shadows) != 2 {
		t.Fatalf("shadows = %d, want 2", len(f.Shadows))
	}
	for i, e := range f.Lights {
		want := NoShadow
		if i < 2 {
			want = int32(i)
		}
		if e.Light != lights[i] || e.GPU.ShadowSlot != want {
			t.Fatalf("light %d slot = %d, want %d", i, e.GPU.ShadowSlot, want)
		}
	}
	if n := logs.FilterMessage("shadow slots exhausted").Len(); n != 1 {
		t.Fatalf("exhaustion diagnostics = %d, want 1", n)
	}
	if got := logs.All()[0].ContextMap()["dropped"]; got != int64(3) {
		t.Fatalf("dropped = %v, want 3", got)
	}

	sys.Rebuild(mgl32.Vec3{})
	if n := logs.FilterMessage("shadow slots exhausted").Len(); n != 2 {
		t.Fatalf("exhaustion diagnostics after second rebuild = %d, want 2", n)
	}
}

func TestPointShadowRequestWarnsOnce(t *testing.T) {
	s, sys, logs := newTestScene(t)
	s.Root().NewChild("bulb").AddComponent(NewLight(LightTypePoint, WithCastsShadows(true)))
	s.Propagate()

	for i := 0; i < 3; i++ {
		f := sys.Rebuild(mgl32.Vec3{})
		if len(f.Shadows) != 0 || f.Lights[0].GPU.ShadowSlot != NoShadow {
			t.Fatal("point light received a shadow slot")
		}
	}
	if logs.Len() != 1 {
		t.Fatalf("diagnostics = %d, want 1", logs.Len())
	}
}

func TestSpotShadowUsesConeFOV(t *testing.T) {
	if got, want := SpotFOV(cosDeg(30)), float32(math.Pi/3); math.Abs(float64(got-want)) > 1e-5 {
		t.Fatalf("fov = %v, want %v", got, want)
	}

	s, sys, _ := newTestScene(t)
	s.Root().NewChild("spot").AddComponent(NewLight(LightTypeSpot, WithCastsShadows(true), WithRange(20)))
	s.Propagate()

	f := sys.Rebuild(mgl32.Vec3{})
	if len(f.Shadows) != 1 {
		t.Fatalf("shadows = %d, want 1", len(f.Shadows))
	}
	// a point on the axis inside the range projects to the clip-space center with depth in (0, 1)
	clip := f.Shadows[0].ViewProj.Mul4x1(mgl32.Vec4{0, 0, -10, 1})
	ndc := clip.Vec3().Mul(1 / clip.W())
	if absF32(ndc.X()) > 1e-4 || absF32(ndc.Y()) > 1e-4 || ndc.Z() <= 0 || ndc.Z() >= 1 {
		t.Fatalf("axis point ndc = %v", ndc)
	}
}

func TestDirectionalShadowCentersOnFocus(t *testing.T) {
	s, sys, _ := newTestScene(t)
	s.Root().NewChild("sun",
		transform.WithRotation(mgl32.QuatRotate(mgl32.DegToRad(-90), mgl32.Vec3{1, 0, 0})),
	).AddComponent(NewLight(LightTypeDirectional, WithCastsShadows(true)))
	s.Propagate()

	focus := mgl32.Vec3{10, 0, -4}
	f := sys.Rebuild(focus)
	clip := f.Shadows[0].ViewProj.Mul4x1(focus.Vec4(1))
	if absF32(clip.X()) > 1e-4 || absF32(clip.Y()) > 1e-4 {
		t.Fatalf("focus projects to %v, want the center", clip)
	}
	if clip.W() != 1 {
		t.Fatalf("w = %v, want orthographic 1", clip.W())
	}
}

func TestDestroyedLightLeavesFrame(t *testing.T) {
	s, sys, _ := newTestScene(t)
	n := s.Root().NewChild("lamp")
	n.AddComponent(NewLight(LightTypePoint))
	n.Destroy()
	s.Propagate()

	if f := sys.Rebuild(mgl32.Vec3{}); len(f.Lights) != 0 || sys.Len() != 0 {
		t.Fatalf("lights = %d tracked = %d, want 0", len(f.Lights), sys.Len())
	}
}

func TestLightBufferLayout(t *testing.T) {
	s, sys, _ := newTestScene(t, WithAmbient([3]float32{0.1, 0.2, 0.3}))
	s.Root().NewChild("a").AddComponent(NewLight(LightTypePoint))
	s.Root().NewChild("b").AddComponent(NewLight(LightTypeDirectional, WithCastsShadows(true)))
	s.Propagate()

	f := sys.Rebuild(mgl32.Vec3{})
	buf := f.LightBuffer()
	if len(buf) != 16+2*64 {
		t.Fatalf("light buffer = %d bytes", len(buf))
	}
	if len(f.ShadowBuffer()) != 80 {
		t.Fatalf("shadow buffer = %d bytes", len(f.ShadowBuffer()))
	}
	header := GPULightHeader{AmbientColor: f.Ambient, LightCount: 2}
	if string(buf[:16]) != string(header.Marshal()) {
		t.Fatal("header mismatch")
	}
	second := f.Lights[1].GPU
	if string(buf[80:144]) != string(second.Marshal()) {
		t.Fatal("second light mismatch")
	}
}

func TestViewCullsOutOfRangeLocalLights(t *testing.T) {
	s, sys, _ := newTestScene(t)
	s.Root().NewChild("sun").AddComponent(NewLight(LightTypeDirectional))
	s.Root().NewChild("ahead", transform.WithTranslation(0, 0, -10)).AddComponent(NewLight(LightTypePoint))
	s.Root().NewChild("behind", transform.WithTranslation(0, 0, 30)).AddComponent(NewLight(LightTypePoint, WithRange(5)))
	s.Root().NewChild("reaches", transform.WithTranslation(0, 0, 8)).AddComponent(NewLight(LightTypePoint, WithRange(10)))
	s.Propagate()

	var viewProj mgl32.Mat4
	common.Perspective(viewProj[:], mgl32.DegToRad(90), 1, 0.1, 100)
	sys.SetView(viewProj)
	if n := len(sys.Rebuild(mgl32.Vec3{}).Lights); n != 3 {
		t.Fatalf("lights in view = %d, want 3", n)
	}

	sys.ClearView()
	if n := len(sys.Rebuild(mgl32.Vec3{}).Lights); n != 4 {
		t.Fatalf("lights without a view = %d, want 4", n)
	}
}

func TestDetachedLightsAreSkipped(t *testing.T) {
	s, sys, logs := newTestScene(t)
	rig := s.Root().NewChild("rig")
	lamp := rig.NewChild("lamp")
	lamp.AddComponent(NewLight(LightTypePoint))
	s.Root().NewChild("sun").AddComponent(NewLight(LightTypeDirectional, WithCastsShadows(true)))

	rig.RemoveChild(lamp)
	s.BeginFrame()
	s.Propagate()

	f := sys.Rebuild(mgl32.Vec3{})
	if len(f.Lights) != 1 || len(f.Shadows) != 1 {
		t.Fatalf("lights = %d shadows = %d, want the sun only", len(f.Lights), len(f.Shadows))
	}
	if logs.Len() != 0 {
		t.Fatalf("skipping a detached light logged %d warnings", logs.Len())
	}
}

func TestMaxShadowSlotsClamped(t *testing.T) {
	_, sys, _ := newTestScene(t, WithMaxShadowSlots(6))
	if sys.MaxShadowSlots() != MaxShadowSlots {
		t.Fatalf("MaxShadowSlots = %d, want %d", sys.MaxShadowSlots(), MaxShadowSlots)
	}

	s, sys, _ := newTestScene(t, WithMaxShadowSlots(6))
	for i := 0; i < 6; i++ {
		s.Root().NewChild("sun").AddComponent(NewLight(LightTypeDirectional, WithCastsShadows(true)))
	}
	s.Propagate()
	if f := sys.Rebuild(mgl32.Vec3{}); len(f.Shadows) != MaxShadowSlots {
		t.Fatalf("shadows = %d, want %d", len(f.Shadows), MaxShadowSlots)
	}
}
