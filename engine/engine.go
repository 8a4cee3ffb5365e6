// Package engine drives a frame: input sampling, the update phases of the world and the scene, transform propagation,
// the derived draw and light data, the render graph, and the end-of-tick destruction flush. The engine owns every
// subsystem explicitly; nothing is reached through package globals.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/asset"
	"github.com/Carmen-Shannon/oxy-deferred/engine/audio"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/ecs"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gameplay"
	"github.com/Carmen-Shannon/oxy-deferred/engine/input"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/navigation"
	"github.com/Carmen-Shannon/oxy-deferred/engine/physics"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/graph"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/script"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var errNoWindow = errors.New("engine has no window")

type engine struct {
	log      *zap.Logger
	cfg      *config.Config
	window   window.Window
	graph    graph.Graph
	profiler *profiler.Profiler
	preparer *asset.Preparer

	in    input.Input
	types *ecs.TypeRegistry
	world ecs.World
	scene scene.Scene

	cameras *camera.System
	orbits  *camera.OrbitSystem
	meshes  *mesh.System
	lights  *light.System
	physics *physics.System
	actors  *gameplay.ActorSystem
	models  *modelSystem
	audio   *audio.System
	scripts *script.System
	nav     navigation.Navigator

	lightOptions   []light.SystemBuilderOption
	physicsOptions []physics.SystemBuilderOption
	bank           *audio.Bank
	output         audio.Output

	width, height int
	maxFrameTime  time.Duration
	frames        uint64
	cameraWarned  bool

	primitives map[primitiveKey]mesh.Mesh
	materials  map[string]materialEntry
	models3d   map[string]*asset.Model
}

// Engine is the frame driver. It is not safe for concurrent use; Tick, Run and every scene mutation happen on the
// goroutine that created the window.
type Engine interface {
	// Tick runs one frame with the given elapsed time. dt is clamped to the configured maximum frame time. A panic
	// raised by a system during the tick is recovered, logged and returned as an error.
	//
	// Parameters:
	//   - dt: elapsed time since the previous tick in seconds
	//
	// Returns:
	//   - error: a render error or a recovered panic
	Tick(dt float32) error

	// Run ticks once per window message loop iteration until the window closes or a tick fails.
	//
	// Returns:
	//   - error: the error that stopped the loop, or nil when the window was closed
	Run() error

	// Resize updates the surface size, the camera aspect ratios and the render graph.
	//
	// Parameters:
	//   - width, height: the new framebuffer size in pixels
	Resize(width, height int)

	// LoadScene reads a YAML scene description and attaches its nodes under the scene root.
	//
	// Parameters:
	//   - path: the scene description file
	//
	// Returns:
	//   - []scene.Node: the created top-level nodes
	//   - error: a read, parse or component error
	LoadScene(path string) ([]scene.Node, error)

	// Factories returns the component factories used by LoadScene, for hosts that parse descriptions themselves.
	//
	// Returns:
	//   - scene.Factories: factories keyed by component type name
	Factories() scene.Factories

	// World returns the entity container.
	World() ecs.World

	// Scene returns the scene graph.
	Scene() scene.Scene

	// Input returns the input collector fed by the window.
	Input() input.Input

	// Cameras returns the camera observer.
	Cameras() *camera.System

	// Meshes returns the mesh observer.
	Meshes() *mesh.System

	// Lights returns the light observer.
	Lights() *light.System

	// Physics returns the physics observer.
	Physics() *physics.System

	// Frames returns the number of ticks run so far.
	Frames() uint64

	// Close stops audio, releases the script VM and closes the window.
	//
	// Returns:
	//   - error: an error from closing the window
	Close() error
}

var _ Engine = &engine{}

// NewEngine builds the world, the scene and every observer system and wires them to the window, the render graph and
// the profiler given as options. Without a graph the engine runs headless: every phase runs but nothing is drawn.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the engine
//   - error: an error if the script directory cannot be loaded
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		log:          zap.NewNop(),
		cfg:          config.Default(),
		width:        1280,
		height:       720,
		maxFrameTime: 100 * time.Millisecond,
		primitives:   make(map[primitiveKey]mesh.Mesh),
		materials:    make(map[string]materialEntry),
		models3d:     make(map[string]*asset.Model),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.in == nil {
		e.in = input.NewInput()
	}
	if e.preparer == nil {
		e.preparer = asset.NewPreparer(asset.WithWorkers(e.cfg.Engine.Workers), asset.WithPreparerLogger(e.log))
	}

	e.types = ecs.NewTypeRegistry()
	e.world = ecs.NewWorld(ecs.WithLogger(e.log), ecs.WithTypeRegistry(e.types))
	e.scene = scene.NewScene(scene.WithName("main"), scene.WithLogger(e.log), scene.WithTypeRegistry(e.types))

	e.cameras = camera.NewSystem(e.log)
	e.orbits = camera.NewOrbitSystem(e.in, e.log)
	e.meshes = mesh.NewSystem(e.log)
	e.lights = light.NewSystem(append([]light.SystemBuilderOption{light.WithLogger(e.log)}, e.lightOptions...)...)
	e.physics = physics.NewSystem(append([]physics.SystemBuilderOption{physics.WithLogger(e.log)}, e.physicsOptions...)...)
	e.actors = gameplay.NewActorSystem(e.world, e.log)
	e.models = &modelSystem{}
	for _, sys := range []scene.NodeSystem{e.orbits, e.cameras, e.meshes, e.lights, e.physics, e.actors, e.models} {
		e.scene.AddSystem(sys)
	}
	if e.bank != nil && e.output != nil {
		e.audio = audio.NewSystem(e.bank, e.output, audio.WithLogger(e.log), audio.WithMasterVolume(e.cfg.Audio.Volume))
		e.scene.AddSystem(e.audio)
	}

	gameplay.Register(e.world, e.in, e.nav, e.log)
	if e.scripts != nil {
		if err := e.scripts.LoadDir(e.cfg.Scripts.Dir); err != nil {
			return nil, fmt.Errorf("load scripts: %w", err)
		}
		e.world.AddSystem(e.scripts)
	}

	if e.window != nil {
		e.window.AttachInput(e.in)
		e.window.SetResizeCallback(e.Resize)
		e.width, e.height = e.window.Width(), e.window.Height()
	}
	e.cameras.Resize(e.width, e.height)
	return e, nil
}

func (e *engine) Tick(dt float32) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("tick panicked", zap.Uint64("frame", e.frames), zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("frame %d panicked: %v", e.frames, r)
		}
	}()

	if limit := float32(e.maxFrameTime.Seconds()); limit > 0 && dt > limit {
		dt = limit
	}
	if dt < 0 {
		dt = 0
	}
	e.frames++

	state := e.in.Sample()
	e.scene.BeginFrame()
	if e.audio != nil {
		if _, n, ok := e.cameras.Active(); ok {
			e.audio.SetListener(n)
		}
	}

	e.world.RunPhase(ecs.PhaseEarlyUpdate, dt)
	e.scene.EarlyUpdate(dt)
	e.world.RunPhase(ecs.PhaseUpdate, dt)
	e.scene.Update(dt)
	e.world.RunPhase(ecs.PhaseLateUpdate, dt)
	e.scene.LateUpdate(dt)
	e.scene.Propagate()

	renderErr := e.render(state.DebugMode())

	e.world.Flush()
	if e.profiler != nil {
		e.profiler.Tick()
	}
	return renderErr
}

// render derives the frame's draw list, lights and camera uniform and records the graph. Submit runs even when
// Execute fails so the frame's encoder is never left open.
func (e *engine) render(mode input.DebugMode) error {
	if e.graph == nil {
		return nil
	}

	f := graph.Frame{DebugMode: mode}
	var focus mgl32.Vec3
	if cam, n, ok := e.cameras.Active(); ok && n.Propagated() {
		m := cam.Matrices(n)
		f.Camera = camera.Uniform(m, cam, e.width, e.height)
		focus = m.Position
		e.lights.SetView(m.ViewProjection)
	} else {
		e.lights.ClearView()
		if !e.cameraWarned {
			e.cameraWarned = true
			e.log.Warn("no camera in scene, drawing with an identity view")
		}
		id := mgl32.Ident4()
		f.Camera = camera.GPUCameraUniform{ViewProj: id, View: id, Proj: id, InvProj: id, InvViewProj: id, SkyViewProj: id}
	}
	f.Draws = e.meshes.Rebuild()
	f.Lights = e.lights.Rebuild(focus)

	execErr := e.graph.Execute(&f)
	submitErr := e.graph.Submit()
	if err := errors.Join(execErr, submitErr); err != nil {
		return fmt.Errorf("render frame %d: %w", e.frames, err)
	}
	return nil
}

func (e *engine) Run() error {
	if e.window == nil {
		return fmt.Errorf("run: %w", errNoWindow)
	}
	var runErr error
	last := time.Now()
	e.window.SetUpdateCallback(func() {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		if err := e.Tick(dt); err != nil {
			runErr = err
			e.window.RequestClose()
		}
	})
	e.window.ProcessMessages()
	return runErr
}

func (e *engine) Resize(width, height int) {
	e.width, e.height = width, height
	e.cameras.Resize(width, height)
	if e.graph != nil {
		e.graph.Resize(width, height)
	}
}

func (e *engine) LoadScene(path string) ([]scene.Node, error) {
	nodes, err := scene.LoadYAMLFile(path, e.scene.Root(), e.Factories())
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	e.log.Info("scene loaded",
		zap.String("path", path),
		zap.Int("nodes", e.scene.NodeCount()),
		zap.Int("entities", e.world.EntityCount()),
	)
	return nodes, nil
}

func (e *engine) World() ecs.World {
	return e.world
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Input() input.Input {
	return e.in
}

func (e *engine) Cameras() *camera.System {
	return e.cameras
}

func (e *engine) Meshes() *mesh.System {
	return e.meshes
}

func (e *engine) Lights() *light.System {
	return e.lights
}

func (e *engine) Physics() *physics.System {
	return e.physics
}

func (e *engine) Frames() uint64 {
	return e.frames
}

func (e *engine) Close() error {
	if e.scripts != nil {
		e.scripts.Close()
	}
	if e.audio != nil {
		e.audio.Close()
	}
	if e.window != nil {
		return e.window.Close()
	}
	return nil
}
