// Package renderer wraps the WebGPU device behind the operations the render graph needs: pipeline registration,
// resource initialization, named intermediate render targets, a single command encoder per frame with explicit passes,
// and GPU timestamp queries that are read back without stalling.
package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu  *sync.Mutex
	log *zap.Logger

	pipelineCache map[string]pipeline.Pipeline
	validated     map[string]bool

	backend RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	presentMode          PresentMode
	timestampPairs       uint32
	timestampPeriod      float32
	validateShaders      bool
}

// Renderer is the GPU facade used by the render graph. A frame is one BeginFrame, any number of passes, one EndFrame
// and one Present; everything between BeginFrame and EndFrame is recorded into a single command encoder.
type Renderer interface {
	// Pipeline retrieves the registered Pipeline associated with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves every registered pipeline keyed by PipelineKey.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a copy of the pipeline cache
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines validates the WGSL of each pipeline with naga, creates its GPU objects and caches it by
	// PipelineKey. Keys that are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: a WGSL syntax error or a GPU creation error
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface and recreates surface-sized render targets.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SurfaceSize returns the configured surface size in pixels.
	SurfaceSize() (int, int)

	// InitMeshBuffers creates GPU vertex and index buffers from raw byte data and stores them
	// on the given BindGroupProvider for later use in draw calls.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates the bind group for one group of a registered pipeline and stores it on the provider.
	// Textures and samplers must be on the provider first; missing buffers are created.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - pipelineKey: the registered pipeline whose layout is used
	//   - group: the bind group index
	//   - bufferUsageOverrides: additional buffer usage flags keyed by binding index (nil safe)
	//   - bufferSizeOverrides: buffer sizes keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: ErrPipelineNotFound for an unknown key, or a creation error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, pipelineKey string, group int, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView creates a GPU texture from staging data and stores its view on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture view on
	//   - bindingKey: the binding index for this texture
	//   - stagingData: the pixel data, dimensions and format for the texture
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a GPU sampler from staging data and stores it on the provider.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index for this sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers uploads one frame's batch of buffer writes.
	//
	// Parameters:
	//   - writes: the buffer writes
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// CreateTargets creates named intermediate render targets.
	//
	// Parameters:
	//   - descs: the target descriptors
	//
	// Returns:
	//   - error: an error if creation fails
	CreateTargets(descs ...TargetDescriptor) error

	// TargetView returns the view of a whole target, a 2D array view for array targets.
	//
	// Parameters:
	//   - name: the target name
	//
	// Returns:
	//   - *wgpu.TextureView: the view, or nil for an unknown target
	TargetView(name string) *wgpu.TextureView

	// TargetLayerView returns a 2D view of one layer of a target.
	//
	// Parameters:
	//   - name: the target name
	//   - layer: the array layer
	//
	// Returns:
	//   - *wgpu.TextureView: the view, or nil for an unknown target or layer
	TargetLayerView(name string, layer uint32) *wgpu.TextureView

	// TargetGeneration returns a counter that advances whenever target views are recreated. Bind groups built
	// against an older generation reference released views.
	//
	// Returns:
	//   - uint64: the current generation
	TargetGeneration() uint64

	// BeginFrame acquires the swapchain texture and opens the frame's command encoder.
	//
	// Returns:
	//   - error: an error if the surface texture could not be acquired
	BeginFrame() error

	// BeginPass opens a render pass on the frame encoder.
	//
	// Parameters:
	//   - desc: the pass attachments and timestamp queries
	//
	// Returns:
	//   - error: an error if no frame is open or an attachment is unknown
	BeginPass(desc PassDescriptor) error

	// SetPipeline selects a registered pipeline for the following draws.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - error: ErrPipelineNotFound for an unknown key
	SetPipeline(key string) error

	// SetBindGroup binds a provider's bind group at a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//   - provider: the provider holding the bind group
	SetBindGroup(group int, provider bind_group_provider.BindGroupProvider)

	// DrawIndexed draws a mesh's index buffer for a run of instances.
	//
	// Parameters:
	//   - meshProvider: the provider holding vertex and index buffers
	//   - instanceCount: the number of instances
	//   - firstInstance: the first instance index, an offset into the instance storage buffer
	DrawIndexed(meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32)

	// DrawFullscreen draws one triangle covering the viewport, generated in the vertex shader from vertex_index.
	DrawFullscreen()

	// Draw issues a non-indexed draw of vertexCount vertices with no vertex buffers bound.
	Draw(vertexCount uint32)

	// EndPass closes the open pass.
	EndPass()

	// EndFrame resolves timestamp queries, then finishes and submits the frame encoder.
	//
	// Returns:
	//   - error: an error if the encoder could not be finished
	EndFrame() error

	// Present presents the surface to the display.
	Present()

	// TimestampCapacity returns the number of timestamp queries available per frame, zero when disabled.
	TimestampCapacity() uint32

	// TimestampPeriod returns the nanoseconds per timestamp tick.
	TimestampPeriod() float32

	// TimestampsPending reports whether the previous readback is still in flight.
	TimestampsPending() bool

	// CollectTimestamps returns the raw ticks of the pending readback once it has arrived. It never blocks.
	//
	// Returns:
	//   - []uint64: the ticks indexed by query
	//   - bool: false if nothing arrived yet
	CollectTimestamps() ([]uint64, bool)
}

var _ Renderer = &renderer{}

// NewRenderer creates the WebGPU device for a window surface and configures the surface at the window's size.
//
// Parameters:
//   - source: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if no adapter or device could be acquired
func NewRenderer(source SurfaceSource, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:              &sync.Mutex{},
		log:             zap.NewNop(),
		pipelineCache:   make(map[string]pipeline.Pipeline),
		validated:       make(map[string]bool),
		presentMode:     PresentModeVSync,
		timestampPeriod: 1,
		validateShaders: true,
	}
	for _, opt := range options {
		opt(r)
	}

	backend, err := newWGPURendererBackend(source, wgpuBackendConfig{
		forceFallbackAdapter: r.forceFallbackAdapter,
		presentMode:          r.presentMode,
		timestampPairs:       r.timestampPairs,
		log:                  r.log,
	})
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	r.backend = backend
	r.backend.ConfigureSurface(source.Width(), source.Height())
	return r, nil
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SurfaceSize() (int, int) {
	return r.backend.SurfaceSize()
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]pipeline.Pipeline, len(r.pipelineCache))
	for k, p := range r.pipelineCache {
		out[k] = p
	}
	return out
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.validate(p); err != nil {
			return err
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return err
		}
		r.pipelineCache[key] = p
	}
	return nil
}

// validate runs each not yet validated shader of p through naga. Syntax errors fail registration; deeper issues are
// logged and left to the driver.
func (r *renderer) validate(p pipeline.Pipeline) error {
	if !r.validateShaders {
		return nil
	}
	for _, st := range []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment} {
		s := p.Shader(st)
		if s == nil || r.validated[s.Key()] {
			continue
		}
		issues, err := shader.Validate(s.Source())
		if err != nil {
			return fmt.Errorf("pipeline %s: shader %s: %w", p.PipelineKey(), s.Key(), err)
		}
		if len(issues) > 0 {
			r.log.Warn("shader validation issues",
				zap.String("pipeline", p.PipelineKey()),
				zap.String("shader", s.Key()),
				zap.Error(errors.Join(issues...)),
			)
		}
		r.validated[s.Key()] = true
	}
	return nil
}

func (r *renderer) lookup(key string) (pipeline.Pipeline, error) {
	r.mu.Lock()
	p, exists := r.pipelineCache[key]
	r.mu.Unlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPipelineNotFound, key)
	}
	return p, nil
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, pipelineKey string, group int, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	p, err := r.lookup(pipelineKey)
	if err != nil {
		return err
	}
	return r.backend.InitBindGroup(provider, p, group, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) CreateTargets(descs ...TargetDescriptor) error {
	return r.backend.CreateTargets(descs)
}

func (r *renderer) TargetView(name string) *wgpu.TextureView {
	return r.backend.TargetView(name)
}

func (r *renderer) TargetLayerView(name string, layer uint32) *wgpu.TextureView {
	return r.backend.TargetLayerView(name, layer)
}

func (r *renderer) TargetGeneration() uint64 {
	return r.backend.TargetGeneration()
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) BeginPass(desc PassDescriptor) error {
	return r.backend.BeginPass(desc)
}

func (r *renderer) SetPipeline(key string) error {
	p, err := r.lookup(key)
	if err != nil {
		return err
	}
	r.backend.SetPipeline(p)
	return nil
}

func (r *renderer) SetBindGroup(group int, provider bind_group_provider.BindGroupProvider) {
	r.backend.SetBindGroup(group, provider)
}

func (r *renderer) DrawIndexed(meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32) {
	r.backend.DrawIndexed(meshProvider, instanceCount, firstInstance)
}

func (r *renderer) DrawFullscreen() {
	r.backend.Draw(3)
}

func (r *renderer) Draw(vertexCount uint32) {
	r.backend.Draw(vertexCount)
}

func (r *renderer) EndPass() {
	r.backend.EndPass()
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) TimestampCapacity() uint32 {
	return r.backend.TimestampCapacity()
}

func (r *renderer) TimestampPeriod() float32 {
	return r.timestampPeriod
}

func (r *renderer) TimestampsPending() bool {
	return r.backend.TimestampsPending()
}

func (r *renderer) CollectTimestamps() ([]uint64, bool) {
	return r.backend.CollectTimestamps()
}
