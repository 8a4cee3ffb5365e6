// Package graph executes the deferred renderer's fixed pass sequence: geometry, shadow, ssao, sky, shade, bloom and
// postprocess. All passes record into the renderer's single per-frame command encoder; per-frame buffer data is
// uploaded in one batch before the first pass.
package graph

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"go.uber.org/zap"
)

// PassOrder is the execution order of the passes. Sub-passes (one per shadow slot, the three bloom steps) run inside
// their parent's position.
var PassOrder = [...]string{"geometry", "shadow", "ssao", "sky", "shade", "bloom", "postprocess"}

var errFrameOpen = errors.New("previous frame not submitted")

type pass struct {
	name string
	run  func(f *Frame) error
}

type graph struct {
	log      *zap.Logger
	gpu      GPU
	sources  fs.FS
	recorder TimingRecorder

	fog              Fog
	bloom            Bloom
	ssao             SSAO
	sky              Sky
	exposure         float32
	shadowResolution uint32

	pipelines []pipeline.Pipeline
	passes    []pass

	camera          *targetGroup
	instances       *targetGroup
	shadowSlots     [light.MaxShadowSlots]*targetGroup
	ssaoGroup       *targetGroup
	skyGroup        *targetGroup
	gbufferGroup    *targetGroup
	lighting        *targetGroup
	bloomExtract    *targetGroup
	bloomHorizontal *targetGroup
	bloomVertical   *targetGroup
	post            *targetGroup

	writes        []bind_group_provider.BufferWrite
	paramsDirty   bool
	frameOpen     bool
	stamps        timestampAllocator
	tangentWarned map[uint64]struct{}
}

// Graph records the frame's passes and submits them.
type Graph interface {
	// Execute uploads the frame's buffers and records every pass in PassOrder. A zero-sized surface records nothing.
	// On error the frame stays open and Submit still has to be called.
	//
	// Parameters:
	//   - f: the frame's derived data
	//
	// Returns:
	//   - error: an error if a resource could not be created or a pass could not begin
	Execute(f *Frame) error

	// Submit finishes the frame's command encoder, submits it and presents the surface. It does nothing when no frame
	// was recorded.
	//
	// Returns:
	//   - error: an error if the encoder could not be finished
	Submit() error

	// Resize resizes the surface and its render targets. Bind groups that borrow target views are rebuilt by each pass
	// the next time it runs.
	//
	// Parameters:
	//   - width, height: the new surface size in pixels
	Resize(width, height int)

	// Pipelines returns the registered pipelines in pass order.
	//
	// Returns:
	//   - []pipeline.Pipeline: the pipelines
	Pipelines() []pipeline.Pipeline

	// SetFog replaces the fog settings.
	SetFog(fog Fog)

	// SetBloom replaces the bloom settings.
	SetBloom(bloom Bloom)

	// SetSSAO replaces the SSAO settings.
	SetSSAO(ssao SSAO)

	// SetExposure sets the exposure multiplier applied before tone mapping.
	SetExposure(exposure float32)
}

var _ Graph = &graph{}

// NewGraph registers the graph's pipelines, creates the intermediate render targets and builds every bind group.
//
// Parameters:
//   - gpu: the renderer to record into
//   - options: variadic list of GraphBuilderOption functions
//
// Returns:
//   - Graph: the graph
//   - error: an error if a shader is missing or pipeline, target or bind group creation fails
func NewGraph(gpu GPU, options ...GraphBuilderOption) (Graph, error) {
	g := &graph{
		log:              zap.NewNop(),
		gpu:              gpu,
		sources:          ShaderSources(),
		fog:              DefaultFog(),
		bloom:            DefaultBloom(),
		ssao:             DefaultSSAO(),
		sky:              DefaultSky(),
		exposure:         1,
		shadowResolution: light.ShadowMapResolution,
		paramsDirty:      true,
		tangentWarned:    make(map[uint64]struct{}),
	}
	for _, opt := range options {
		opt(g)
	}
	g.stamps.log = g.log

	pipelines, err := Pipelines(g.sources)
	if err != nil {
		return nil, err
	}
	if err := gpu.RegisterPipelines(pipelines...); err != nil {
		return nil, fmt.Errorf("register graph pipelines: %w", err)
	}
	g.pipelines = pipelines

	if err := gpu.CreateTargets(targetDescriptors(g.shadowResolution)...); err != nil {
		return nil, fmt.Errorf("create render targets: %w", err)
	}
	if err := g.buildResources(); err != nil {
		return nil, fmt.Errorf("graph resources: %w", err)
	}

	g.passes = []pass{
		{name: "geometry", run: g.geometryPass},
		{name: "shadow", run: g.shadowPass},
		{name: "ssao", run: g.ssaoPass},
		{name: "sky", run: g.skyPass},
		{name: "shade", run: g.shadePass},
		{name: "bloom", run: g.bloomPass},
		{name: "postprocess", run: g.postprocessPass},
	}
	return g, nil
}

func (g *graph) Execute(f *Frame) error {
	if g.frameOpen {
		return fmt.Errorf("graph: %w", errFrameOpen)
	}
	if w, h := g.gpu.SurfaceSize(); w <= 0 || h <= 0 {
		return nil
	}

	g.collectTimings()
	if err := g.prepare(f); err != nil {
		return err
	}

	if err := g.gpu.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	g.frameOpen = true

	g.stamps.begin(g.gpu.TimestampCapacity(), !g.gpu.TimestampsPending())
	defer g.stamps.end()

	for _, p := range g.passes {
		if err := p.run(f); err != nil {
			return fmt.Errorf("%s pass: %w", p.name, err)
		}
	}
	return nil
}

func (g *graph) Submit() error {
	if !g.frameOpen {
		return nil
	}
	g.frameOpen = false
	if err := g.gpu.EndFrame(); err != nil {
		return fmt.Errorf("submit frame: %w", err)
	}
	g.gpu.Present()
	return nil
}

func (g *graph) Resize(width, height int) {
	g.gpu.Resize(width, height)
}

func (g *graph) Pipelines() []pipeline.Pipeline {
	out := make([]pipeline.Pipeline, len(g.pipelines))
	copy(out, g.pipelines)
	return out
}

func (g *graph) SetFog(fog Fog) {
	g.fog = fog
}

func (g *graph) SetBloom(bloom Bloom) {
	g.bloom = bloom
	g.paramsDirty = true
}

func (g *graph) SetSSAO(ssao SSAO) {
	g.ssao = ssao
	g.paramsDirty = true
}

func (g *graph) SetExposure(exposure float32) {
	g.exposure = exposure
}

// collectTimings polls the readback of an earlier frame and forwards it to the recorder.
func (g *graph) collectTimings() {
	if g.gpu.TimestampCapacity() == 0 {
		return
	}
	ticks, ok := g.gpu.CollectTimestamps()
	if !ok {
		return
	}
	timings := g.stamps.timings(ticks, g.gpu.TimestampPeriod())
	if g.recorder != nil && len(timings) > 0 {
		g.recorder.RecordPassTimings(timings)
	}
}

// prepare uploads missing meshes and materials, grows storage buffers, and writes all of the frame's buffer data in
// one batch.
func (g *graph) prepare(f *Frame) error {
	g.writes = g.writes[:0]
	g.writes = append(g.writes, bind_group_provider.BufferWrite{Provider: g.camera.provider, Binding: 0, Data: f.Camera.Marshal()})

	if d := f.Draws; d != nil && len(d.Calls) > 0 {
		for _, call := range d.Calls {
			if !call.Mesh.Uploaded() {
				if err := g.uploadMesh(call.Mesh); err != nil {
					return err
				}
			}
			if call.Material.BindGroupProvider() == nil {
				if err := g.uploadMaterial(call.Material); err != nil {
					return err
				}
			}
		}
		data := common.SliceToBytes(d.Instances)
		if err := g.growBuffer(g.instances, 0, uint64(len(data))); err != nil {
			return fmt.Errorf("grow instance buffer: %w", err)
		}
		g.writes = append(g.writes, bind_group_provider.BufferWrite{Provider: g.instances.provider, Binding: 0, Data: data})
	}

	lights := f.Lights
	if lights == nil {
		lights = &light.Frame{}
	}
	lightData := lights.LightBuffer()
	if err := g.growBuffer(g.lighting, 0, uint64(len(lightData))); err != nil {
		return fmt.Errorf("grow light buffer: %w", err)
	}
	g.writes = append(g.writes, bind_group_provider.BufferWrite{Provider: g.lighting.provider, Binding: 0, Data: lightData})
	if len(lights.Shadows) > 0 {
		g.writes = append(g.writes, bind_group_provider.BufferWrite{Provider: g.lighting.provider, Binding: 1, Data: lights.ShadowBuffer()})
	}
	for _, s := range lights.Shadows {
		u := light.GPUShadowUniform{LightVP: s.ViewProj}
		g.writes = append(g.writes, bind_group_provider.BufferWrite{Provider: g.shadowSlots[s.Slot].provider, Binding: 0, Data: u.Marshal()})
	}

	g.writes = append(g.writes,
		bind_group_provider.BufferWrite{Provider: g.skyGroup.provider, Binding: 0, Data: skyUniform(g.sky, sunDirection(lights, g.sky))},
		bind_group_provider.BufferWrite{Provider: g.post.provider, Binding: 10, Data: postUniform(g.fog, g.exposure, g.bloomIntensity(), f.DebugMode)},
	)
	if g.paramsDirty {
		bloom := bloomUniform(g.bloom)
		g.writes = append(g.writes,
			bind_group_provider.BufferWrite{Provider: g.ssaoGroup.provider, Binding: 2, Data: ssaoUniform(g.ssao)},
			bind_group_provider.BufferWrite{Provider: g.bloomExtract.provider, Binding: 2, Data: bloom},
			bind_group_provider.BufferWrite{Provider: g.bloomHorizontal.provider, Binding: 2, Data: bloom},
			bind_group_provider.BufferWrite{Provider: g.bloomVertical.provider, Binding: 2, Data: bloom},
		)
		g.paramsDirty = false
	}

	g.gpu.WriteBuffers(g.writes)
	return nil
}

func (g *graph) bloomIntensity() float32 {
	if !g.bloom.Enabled {
		return 0
	}
	return g.bloom.Intensity
}

// sunDirection returns the direction of the first directional light, or the sky's configured direction.
func sunDirection(lights *light.Frame, sky Sky) [3]float32 {
	for _, e := range lights.Lights {
		if e.GPU.LightType == uint32(light.LightTypeDirectional) {
			return e.GPU.Direction
		}
	}
	return sky.SunDirection
}

// warnMissingTangents logs once per mesh that a normal-mapped draw was skipped.
func (g *graph) warnMissingTangents(call mesh.DrawCall) {
	id := call.Mesh.ID()
	if _, ok := g.tangentWarned[id]; ok {
		return
	}
	g.tangentWarned[id] = struct{}{}
	g.log.Warn("normal-mapped draw skipped, mesh has no tangents",
		zap.String("mesh", call.Mesh.Name()),
		zap.String("material", call.Material.Name()),
		zap.Uint32("instances", call.InstanceCount),
	)
}
