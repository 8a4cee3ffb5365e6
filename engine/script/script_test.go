package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gameplay"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const mover = `
local m = {}
function m.start(self)
  self.ticks = 0
end
function m.update(self, dt)
  self.ticks = self.ticks + 1
  self:translate(dt, 0, 0)
end
return m
`

type harness struct {
	w    ecs.World
	sc   scene.Scene
	sys  *System
	logs *observer.ObservedLogs
}

func newTestHarness(t *testing.T) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	h := &harness{
		w:    ecs.NewWorld(ecs.WithLogger(log)),
		sc:   scene.NewScene(),
		sys:  NewSystem(WithLogger(log)),
		logs: logs,
	}
	h.w.AddSystem(h.sys)
	t.Cleanup(h.sys.Close)
	return h
}

func (h *harness) spawn(name string, opts ...transform.TransformBuilderOption) (ecs.Entity, scene.Node) {
	e, n := gameplay.Spawn(h.w, h.sc.Root(), "scripted", opts...)
	ecs.Add(h.w, e, &Script{Name: name})
	return e, n
}

func (h *harness) frame(dt float32) {
	h.sc.BeginFrame()
	h.w.Update(dt)
	h.sc.Propagate()
}

func TestScriptMovesNode(t *testing.T) {
	h := newTestHarness(t)
	if err := h.sys.Register("mover", mover); err != nil {
		t.Fatal(err)
	}
	_, n := h.spawn("mover")

	for i := 0; i < 4; i++ {
		h.frame(0.25)
	}
	if got := n.Global().Col(3).Vec3(); !got.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Fatalf("position = %v, want (1, 0, 0)", got)
	}
	if h.sys.Len() != 1 {
		t.Fatalf("instances = %d, want 1", h.sys.Len())
	}
}

func TestScriptReadsPositionAndDestroys(t *testing.T) {
	h := newTestHarness(t)
	err := h.sys.Register("fall", `
local m = {}
function m.update(self, dt)
  local x, y, z = self:position()
  if y <= 0 then
    self:log("landed")
    self:destroy()
  else
    self:translate(0, -1, 0)
  end
end
return m
`)
	if err != nil {
		t.Fatal(err)
	}
	e, n := h.spawn("fall", transform.WithTranslation(0, 2, 0))
	h.sc.Propagate()

	for i := 0; i < 10 && h.w.Alive(e); i++ {
		h.frame(0.1)
	}
	if h.w.Alive(e) || n.Valid() {
		t.Fatal("script did not destroy its entity")
	}
	if h.logs.FilterMessage("landed").Len() != 1 {
		t.Fatal("script log not recorded")
	}
	h.frame(0.1)
	if h.sys.Len() != 0 {
		t.Fatalf("instances = %d after destruction, want 0", h.sys.Len())
	}
}

func TestScriptRuntimeErrorDisablesInstance(t *testing.T) {
	h := newTestHarness(t)
	err := h.sys.Register("broken", `
local m = {}
function m.update(self, dt)
  self:translate(1, 0, 0)
  error("boom")
end
return m
`)
	if err != nil {
		t.Fatal(err)
	}
	_, n := h.spawn("broken")
	h.frame(0.1)
	h.frame(0.1)
	h.frame(0.1)

	if got := h.logs.FilterMessage("script disabled after error").Len(); got != 1 {
		t.Fatalf("errors logged = %d, want 1", got)
	}
	if got := n.Global().Col(3).X(); got != 1 {
		t.Fatalf("x = %v, want 1 from the single run", got)
	}
}

func TestScriptMustReturnTable(t *testing.T) {
	h := newTestHarness(t)
	if err := h.sys.Register("bare", `return 42`); err != nil {
		t.Fatal(err)
	}
	h.spawn("bare")
	h.frame(0.1)
	if h.logs.FilterMessage("script disabled after error").Len() != 1 {
		t.Fatal("non-table script not reported")
	}
}

func TestUnknownScriptWarnsOnce(t *testing.T) {
	h := newTestHarness(t)
	h.spawn("nope")
	h.frame(0.1)
	h.frame(0.1)
	if got := h.logs.FilterMessage("script not registered").Len(); got != 1 {
		t.Fatalf("warnings = %d, want 1", got)
	}
}

func TestRegisterSyntaxError(t *testing.T) {
	h := newTestHarness(t)
	if err := h.sys.Register("bad", "local = ="); err == nil {
		t.Fatal("Register accepted invalid Lua")
	}
}

func TestLoadDir(t *testing.T) {
	h := newTestHarness(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mover.lua"), []byte(mover), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not lua"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.sys.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if !h.sys.Has("mover") || h.sys.Has("notes") {
		t.Fatal("LoadDir registered the wrong files")
	}
	if err := h.sys.LoadDir(filepath.Join(dir, "missing")); err != nil {
		t.Fatalf("missing dir: %v", err)
	}
}
