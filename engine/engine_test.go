package engine

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"github.com/Carmen-Shannon/oxy-deferred/engine/input"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/graph"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/script"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recordingGraph keeps the frames the engine hands to the render graph.
type recordingGraph struct {
	frames     []graph.Frame
	submits    int
	resizes    [][2]int
	executeErr error
}

var _ graph.Graph = &recordingGraph{}

func (g *recordingGraph) Execute(f *graph.Frame) error {
	g.frames = append(g.frames, *f)
	return g.executeErr
}

func (g *recordingGraph) Submit() error {
	g.submits++
	return nil
}

func (g *recordingGraph) Resize(width, height int) {
	g.resizes = append(g.resizes, [2]int{width, height})
}

func (g *recordingGraph) Pipelines() []pipeline.Pipeline { return nil }
func (g *recordingGraph) SetFog(graph.Fog)               {}
func (g *recordingGraph) SetBloom(graph.Bloom)           {}
func (g *recordingGraph) SetSSAO(graph.SSAO)             {}
func (g *recordingGraph) SetExposure(float32)            {}

func newTestEngine(t *testing.T, opts ...EngineBuilderOption) (Engine, *recordingGraph, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	g := &recordingGraph{}
	base := []EngineBuilderOption{
		WithLogger(zap.New(core)),
		WithGraph(g),
		WithSurfaceSize(640, 480),
	}
	e, err := NewEngine(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, g, logs
}

func writeScene(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testScene = `
nodes:
  - name: camera
    translation: [0, 2, 8]
    components:
      - type: camera
        fov: 60
  - name: sun
    rotation: [-60, 30, 0]
    components:
      - type: light
        kind: directional
        intensity: 3
        shadows: true
  - name: crates
    children:
      - name: crate_a
        translation: [-1, 0, 0]
        components:
          - {type: mesh, shape: cube, material: crate, roughness: 0.8}
      - name: crate_b
        translation: [1, 0, 0]
        components:
          - {type: mesh, shape: cube, material: crate, roughness: 0.8}
  - name: drifter
    components:
      - type: actor
        velocity: [1, 0, 0]
`

func TestTickRendersLoadedScene(t *testing.T) {
	e, g, _ := newTestEngine(t)
	if _, err := e.LoadScene(writeScene(t, testScene)); err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	if err := e.Tick(0.016); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if len(g.frames) != 1 || g.submits != 1 {
		t.Fatalf("frames=%d submits=%d, want 1 and 1", len(g.frames), g.submits)
	}
	f := g.frames[0]
	if len(f.Draws.Calls) != 1 || f.Draws.Calls[0].InstanceCount != 2 {
		t.Fatalf("draw calls = %+v, want one call with two instances", f.Draws.Calls)
	}
	if len(f.Lights.Lights) != 1 || len(f.Lights.Shadows) != 1 {
		t.Fatalf("lights=%d shadows=%d, want 1 and 1", len(f.Lights.Lights), len(f.Lights.Shadows))
	}
	if f.Camera.ScreenSize != [2]float32{640, 480} {
		t.Fatalf("screen size = %v", f.Camera.ScreenSize)
	}
	if pos := mgl32.Vec3(f.Camera.Position); !pos.ApproxEqual(mgl32.Vec3{0, 2, 8}) {
		t.Fatalf("camera position = %v", pos)
	}
	if e.World().EntityCount() != 1 {
		t.Fatalf("entities = %d, want the drifter", e.World().EntityCount())
	}
}

func TestTickClampsDt(t *testing.T) {
	e, _, _ := newTestEngine(t, WithMaxFrameTime(100*time.Millisecond))
	nodes, err := e.LoadScene(writeScene(t, testScene))
	if err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	drifter := nodes[3]

	if err := e.Tick(5); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := drifter.Global().Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{0.1, 0, 0}) {
		t.Fatalf("position after a stalled frame = %v, want (0.1, 0, 0)", got)
	}
}

type panicSystem struct{}

func (panicSystem) Requires() []reflect.Type { return ecs.Types(&panicTag{}) }
func (panicSystem) Update(ecs.World, []ecs.Entity, float32) {
	panic("boom")
}

type panicTag struct{}

func TestTickRecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	e, err := NewEngine(WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	e.World().AddSystem(panicSystem{})
	ent := e.World().CreateEntity()
	ecs.Add(e.World(), ent, &panicTag{})

	if err := e.Tick(0.016); err == nil {
		t.Fatal("Tick swallowed a panic")
	}
	if logs.FilterMessage("tick panicked").Len() != 1 {
		t.Fatal("panic not logged")
	}

	e.World().DestroyEntity(ent)
	e.World().Flush()
	if err := e.Tick(0.016); err != nil {
		t.Fatalf("Tick after recovery: %v", err)
	}
	if e.Frames() != 2 {
		t.Fatalf("frames = %d, want 2", e.Frames())
	}
}

func TestRenderErrorStillSubmits(t *testing.T) {
	e, g, _ := newTestEngine(t)
	g.executeErr = errors.New("surface lost")

	err := e.Tick(0.016)
	if err == nil || !errors.Is(err, g.executeErr) {
		t.Fatalf("Tick error = %v, want the execute error", err)
	}
	if g.submits != 1 {
		t.Fatalf("submits = %d, want 1", g.submits)
	}
}

func TestMissingCameraWarnsOnce(t *testing.T) {
	e, g, logs := newTestEngine(t)
	for range 3 {
		if err := e.Tick(0.016); err != nil {
			t.Fatal(err)
		}
	}
	if n := logs.FilterMessage("no camera in scene, drawing with an identity view").Len(); n != 1 {
		t.Fatalf("warnings = %d, want 1", n)
	}
	if g.frames[2].Camera.ViewProj != mgl32.Ident4() {
		t.Fatal("frame without a camera did not use an identity view")
	}
}

func TestDebugModeFromHeldKeys(t *testing.T) {
	in := input.NewInput()
	e, g, _ := newTestEngine(t, WithInput(in))
	in.KeyDown(common.KeyF2)
	if err := e.Tick(0.016); err != nil {
		t.Fatal(err)
	}
	if g.frames[0].DebugMode != input.DebugNormals {
		t.Fatalf("debug mode = %v, want normals", g.frames[0].DebugMode)
	}
}

func TestResizeReachesCamerasAndGraph(t *testing.T) {
	e, g, _ := newTestEngine(t)
	if _, err := e.LoadScene(writeScene(t, testScene)); err != nil {
		t.Fatal(err)
	}
	e.Resize(1000, 500)

	cam, _, ok := e.Cameras().Active()
	if !ok || cam.Aspect() != 2 {
		t.Fatalf("camera aspect = %v, want 2", cam.Aspect())
	}
	if len(g.resizes) != 1 || g.resizes[0] != [2]int{1000, 500} {
		t.Fatalf("graph resizes = %v", g.resizes)
	}
}

func TestLoadSceneErrors(t *testing.T) {
	e, _, _ := newTestEngine(t)
	cases := map[string]struct {
		doc    string
		target error
	}{
		"unknown type":   {doc: "nodes:\n  - name: a\n    components:\n      - type: laser\n", target: scene.ErrUnknownComponentType},
		"unknown shape":  {doc: "nodes:\n  - name: a\n    components:\n      - {type: mesh, shape: torus}\n"},
		"script missing": {doc: "nodes:\n  - name: a\n    components:\n      - {type: actor, script: wander}\n"},
		"material clash": {doc: "nodes:\n  - name: a\n    components:\n      - {type: mesh, material: m, metallic: 1}\n      - {type: mesh, material: m, metallic: 0}\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.LoadScene(writeScene(t, tc.doc))
			if err == nil {
				t.Fatal("LoadScene succeeded")
			}
			if tc.target != nil && !errors.Is(err, tc.target) {
				t.Fatalf("error = %v, want %v", err, tc.target)
			}
		})
	}
}

func TestConfigMapsOntoSubsystems(t *testing.T) {
	cfg := config.Default()
	cfg.Shadow.MaxSlots = 2
	cfg.Window.Width, cfg.Window.Height = 800, 600
	e, _, _ := newTestEngine(t, WithConfig(cfg))

	if e.Lights().MaxShadowSlots() != 2 {
		t.Fatalf("shadow slots = %d, want 2", e.Lights().MaxShadowSlots())
	}
	if got := fogMode("exp2"); got != graph.FogExponentialSquared {
		t.Fatalf("fog mode = %v", got)
	}
	if got := fogMode("none"); got != graph.FogNone {
		t.Fatalf("fog mode = %v", got)
	}
	if n := len(GraphOptions(cfg)); n != 5 {
		t.Fatalf("graph options = %d, want 5", n)
	}
}

func TestExampleSceneLoadsAndRuns(t *testing.T) {
	dir := filepath.Join("..", "examples", "courtyard")
	cfg, err := config.Load(filepath.Join(dir, "oxy.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Scripts.Dir = filepath.Join(dir, "scripts")

	scripts := script.NewSystem()
	e, g, logs := newTestEngine(t, WithConfig(cfg), WithScripts(scripts))
	defer e.Close()

	if _, err := e.LoadScene(filepath.Join(dir, "scene.yaml")); err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	for range 3 {
		if err := e.Tick(1.0 / 60); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if n := logs.Len(); n != 0 {
		t.Fatalf("example logged %d warnings, first: %s", n, logs.All()[0].Message)
	}
	f := g.frames[len(g.frames)-1]
	if len(f.Lights.Shadows) != 2 {
		t.Fatalf("shadows = %d, want the sun and the spot", len(f.Lights.Shadows))
	}
}
