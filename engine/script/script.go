// Package script runs Lua gameplay scripts against ECS entities. A script is a chunk that returns a table; its optional
// start(self) runs once when the entity first matches and update(self, dt) runs every update phase. self exposes the
// entity's node:
//
//	self.entity, self.name
//	self:translate(x, y, z)   move the node in its parent's space
//	self:rotate(x, y, z)      rotate by euler degrees
//	self:position()           world position as of the last propagation
//	self:destroy()            queue the entity for destruction
//	self:log(msg)             info log tagged with the entity
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gameplay"
	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 1

// Script attaches a registered script to an entity by name.
type Script struct {
	Name string
}

func (s *Script) String() string {
	return "Script(" + s.Name + ")"
}

type instance struct {
	name   string
	module *lua.LTable
	self   *lua.LTable
	failed bool
	sweep  uint64
}

// System owns one Lua state and runs every entity holding a NodeRef and a Script. Access is single-goroutine, from the
// frame driver.
type System struct {
	log       *zap.Logger
	vm        *lua.LState
	protos    map[string]*lua.FunctionProto
	instances map[ecs.Entity]*instance
	missing   map[ecs.Entity]string
	sweep     uint64
}

var _ ecs.System = &System{}

// NewSystem creates a script system with an empty registry.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - *System: the new system
func NewSystem(options ...SystemBuilderOption) *System {
	s := &System{
		log:       zap.NewNop(),
		protos:    make(map[string]*lua.FunctionProto),
		instances: make(map[ecs.Entity]*instance),
		missing:   make(map[ecs.Entity]string),
	}
	for _, opt := range options {
		opt(s)
	}
	s.vm = lua.NewState(lua.Options{SkipOpenLibs: false})
	s.vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))
	return s
}

// Register compiles src under name, replacing any previous script of that name. Entities already running the old version
// keep it.
//
// Parameters:
//   - name: the script name referenced by Script components
//   - src: the Lua source
//
// Returns:
//   - error: a syntax or compile error
func (s *System) Register(name, src string) error {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("parse script %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return fmt.Errorf("compile script %s: %w", name, err)
	}
	s.protos[name] = proto
	return nil
}

// LoadDir registers every .lua file in dir under its base name without the extension. A missing directory is not an error.
//
// Parameters:
//   - dir: the script directory
//
// Returns:
//   - error: the first read or compile error
func (s *System) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read script dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read script %s: %w", path, err)
		}
		if err := s.Register(strings.TrimSuffix(entry.Name(), ".lua"), string(src)); err != nil {
			return err
		}
		s.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Has reports whether a script is registered under name.
func (s *System) Has(name string) bool {
	_, ok := s.protos[name]
	return ok
}

// Len returns the number of live script instances.
func (s *System) Len() int {
	return len(s.instances)
}

// Close releases the Lua state.
func (s *System) Close() {
	s.vm.Close()
}

func (s *System) Requires() []reflect.Type {
	return ecs.Types(&gameplay.NodeRef{}, &Script{})
}

func (s *System) Update(w ecs.World, entities []ecs.Entity, dt float32) {
	s.sweep++
	for _, e := range entities {
		sc := ecs.MustGet[*Script](w, e)
		inst := s.instances[e]
		if inst == nil || inst.name != sc.Name {
			inst = s.instantiate(w, e, sc.Name)
			if inst == nil {
				continue
			}
		}
		inst.sweep = s.sweep
		if !inst.failed {
			s.call(e, inst, "update", lua.LNumber(dt))
		}
	}
	for e, inst := range s.instances {
		if inst.sweep != s.sweep {
			delete(s.instances, e)
		}
	}
	for e := range s.missing {
		if !w.Alive(e) {
			delete(s.missing, e)
		}
	}
}

func (s *System) instantiate(w ecs.World, e ecs.Entity, name string) *instance {
	proto, ok := s.protos[name]
	if !ok {
		if s.missing[e] != name {
			s.missing[e] = name
			s.log.Warn("script not registered", zap.Stringer("entity", e), zap.String("script", name))
		}
		return nil
	}
	delete(s.missing, e)

	inst := &instance{name: name, sweep: s.sweep}
	s.instances[e] = inst

	s.vm.Push(s.vm.NewFunctionFromProto(proto))
	if err := s.vm.PCall(0, 1, nil); err != nil {
		s.fail(e, inst, err)
		return inst
	}
	ret := s.vm.Get(-1)
	s.vm.Pop(1)
	module, ok := ret.(*lua.LTable)
	if !ok {
		s.fail(e, inst, fmt.Errorf("script returned %s, want a table", ret.Type()))
		return inst
	}
	inst.module = module
	inst.self = s.newSelf(w, e, name)
	s.call(e, inst, "start")
	return inst
}

func (s *System) call(e ecs.Entity, inst *instance, fn string, args ...lua.LValue) {
	f := inst.module.RawGetString(fn)
	if f == lua.LNil {
		return
	}
	if err := s.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    0,
		Protect: true,
	}, append([]lua.LValue{inst.self}, args...)...); err != nil {
		s.fail(e, inst, err)
	}
}

func (s *System) fail(e ecs.Entity, inst *instance, err error) {
	inst.failed = true
	s.log.Warn("script disabled after error",
		zap.Stringer("entity", e),
		zap.String("script", inst.name),
		zap.Error(err),
	)
}

func (s *System) newSelf(w ecs.World, e ecs.Entity, name string) *lua.LTable {
	L := s.vm
	self := L.NewTable()
	self.RawSetString("entity", lua.LNumber(e))
	self.RawSetString("name", lua.LString(name))

	node := func() *gameplay.NodeRef {
		ref, ok := ecs.Get[*gameplay.NodeRef](w, e)
		if !ok || !ref.Node.Valid() {
			L.RaiseError("entity %d has no live node", e)
		}
		return ref
	}
	vec := func(L *lua.LState) mgl32.Vec3 {
		return mgl32.Vec3{float32(L.CheckNumber(2)), float32(L.CheckNumber(3)), float32(L.CheckNumber(4))}
	}

	L.SetFuncs(self, map[string]lua.LGFunction{
		"translate": func(L *lua.LState) int {
			node().Node.Transform().Translate(vec(L))
			return 0
		},
		"rotate": func(L *lua.LState) int {
			d := vec(L)
			q := mgl32.AnglesToQuat(mgl32.DegToRad(d[0]), mgl32.DegToRad(d[1]), mgl32.DegToRad(d[2]), mgl32.XYZ)
			node().Node.Transform().Rotate(q)
			return 0
		},
		"position": func(L *lua.LState) int {
			p := node().Node.PreviousGlobal().Col(3)
			L.Push(lua.LNumber(p[0]))
			L.Push(lua.LNumber(p[1]))
			L.Push(lua.LNumber(p[2]))
			return 3
		},
		"destroy": func(L *lua.LState) int {
			w.DestroyEntity(e)
			return 0
		},
		"log": func(L *lua.LState) int {
			s.log.Info(L.CheckString(2), zap.Stringer("entity", e), zap.String("script", name))
			return 0
		},
	})
	return self
}
