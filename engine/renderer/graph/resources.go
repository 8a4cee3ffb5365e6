package graph

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	initialInstanceCapacity = 1024
	initialLightCapacity    = 64
	lightHeaderSize         = 16
	lightSize               = 64
	shadowDataSize          = 80
)

// viewRef names the render target view a binding borrows.
type viewRef struct {
	target  string
	layer   uint32
	layered bool
}

// targetGroup is a bind group that borrows render target views. It is rebuilt the first time it is used after the
// renderer's target generation changed; its own buffers and samplers survive the rebuild.
type targetGroup struct {
	provider   bind_group_provider.BindGroupProvider
	pipeline   string
	group      int
	views      map[int]viewRef
	samplers   map[int]*common.SamplerStagingData
	sizes      map[int]uint64
	generation uint64
	built      bool
	sampled    bool
}

func newTargetGroup(label, pipelineKey string, group int) *targetGroup {
	return &targetGroup{
		provider: bind_group_provider.NewBindGroupProvider(label),
		pipeline: pipelineKey,
		group:    group,
		views:    make(map[int]viewRef),
		samplers: make(map[int]*common.SamplerStagingData),
		sizes:    make(map[int]uint64),
	}
}

func (t *targetGroup) view(binding int, target string) *targetGroup {
	t.views[binding] = viewRef{target: target}
	return t
}

func (t *targetGroup) layerView(binding int, target string, layer uint32) *targetGroup {
	t.views[binding] = viewRef{target: target, layer: layer, layered: true}
	return t
}

func (t *targetGroup) sampler(binding int, s *common.SamplerStagingData) *targetGroup {
	t.samplers[binding] = s
	return t
}

// ensure rebuilds the bind group when it was never built or the target generation moved.
func (g *graph) ensure(t *targetGroup) error {
	gen := g.gpu.TargetGeneration()
	if t.built && t.generation == gen {
		return nil
	}
	for binding, ref := range t.views {
		var view *wgpu.TextureView
		if ref.layered {
			view = g.gpu.TargetLayerView(ref.target, ref.layer)
		} else {
			view = g.gpu.TargetView(ref.target)
		}
		t.provider.SetBorrowedTextureView(binding, view)
	}
	if !t.sampled {
		for binding, s := range t.samplers {
			if err := g.gpu.InitSampler(t.provider, binding, *s); err != nil {
				return fmt.Errorf("%s: %w", t.provider.Label(), err)
			}
		}
		t.sampled = true
	}
	t.provider.ReleaseBindGroup()
	if err := g.gpu.InitBindGroup(t.provider, t.pipeline, t.group, nil, t.sizes); err != nil {
		return fmt.Errorf("%s: %w", t.provider.Label(), err)
	}
	t.generation = gen
	t.built = true
	return nil
}

// growBuffer replaces a storage buffer that is too small for size bytes, doubling the capacity until it fits, and
// rebuilds the group around the new buffer.
func (g *graph) growBuffer(t *targetGroup, binding int, size uint64) error {
	current := t.sizes[binding]
	if size <= current {
		return nil
	}
	for current < size {
		current *= 2
	}
	t.sizes[binding] = current
	t.provider.ReleaseBuffer(binding)
	t.built = false
	return g.ensure(t)
}

// buildResources creates every bind group the passes use and their uniform and storage buffers.
func (g *graph) buildResources() error {
	g.camera = newTargetGroup("graph:camera", PipelineGeometry, 0)

	g.instances = newTargetGroup("graph:instances", PipelineGeometry, 2)
	g.instances.sizes[0] = initialInstanceCapacity * mesh.InstanceStride

	for i := range g.shadowSlots {
		g.shadowSlots[i] = newTargetGroup(fmt.Sprintf("graph:shadow[%d]", i), PipelineShadow, 0)
	}

	g.ssaoGroup = newTargetGroup("graph:ssao", PipelineSSAO, 1).
		view(0, TargetDepth).
		view(1, TargetNormal)

	g.skyGroup = newTargetGroup("graph:sky", PipelineSky, 1).
		view(1, TargetDepth)

	g.gbufferGroup = newTargetGroup("graph:gbuffer", PipelineShade, 1).
		view(0, TargetBaseColor).
		view(1, TargetNormal).
		view(2, TargetMetalRough).
		view(3, TargetEmission).
		view(4, TargetDepth).
		view(5, TargetSSAO)

	g.lighting = newTargetGroup("graph:lighting", PipelineShade, 2).
		view(2, TargetShadow).
		sampler(3, common.ShadowCompareSampler())
	g.lighting.sizes[0] = lightHeaderSize + initialLightCapacity*lightSize
	g.lighting.sizes[1] = light.MaxShadowSlots * shadowDataSize

	clamp := common.LinearClampSampler()
	g.bloomExtract = newTargetGroup("graph:bloom_extract", PipelineBloomExtract, 0).
		view(0, TargetHDR).
		sampler(1, clamp)
	g.bloomHorizontal = newTargetGroup("graph:bloom_h", PipelineBloomHorizontal, 0).
		layerView(0, TargetBloom, 0).
		sampler(1, clamp)
	g.bloomVertical = newTargetGroup("graph:bloom_v", PipelineBloomVertical, 0).
		layerView(0, TargetBloom, 1).
		sampler(1, clamp)

	g.post = newTargetGroup("graph:postprocess", PipelinePostprocess, 1).
		view(0, TargetHDR).
		layerView(1, TargetBloom, 0).
		sampler(2, clamp).
		view(3, TargetBaseColor).
		view(4, TargetNormal).
		view(5, TargetMetalRough).
		view(6, TargetEmission).
		view(7, TargetDepth).
		view(8, TargetSSAO).
		view(9, TargetShadow)

	for _, t := range g.groups() {
		if err := g.ensure(t); err != nil {
			return err
		}
	}
	return nil
}

func (g *graph) groups() []*targetGroup {
	groups := []*targetGroup{g.camera, g.instances}
	for _, s := range g.shadowSlots {
		groups = append(groups, s)
	}
	return append(groups,
		g.ssaoGroup, g.skyGroup, g.gbufferGroup, g.lighting,
		g.bloomExtract, g.bloomHorizontal, g.bloomVertical, g.post,
	)
}

var (
	whitePixel      = []byte{255, 255, 255, 255}
	flatNormalPixel = []byte{128, 128, 255, 255}
)

// materialTextures returns the base color, metal/rough and normal textures with 1x1 defaults for missing maps.
// Metal/rough and normal data are linear.
func materialTextures(m material.Material) [3]common.TextureStagingData {
	pick := func(t *common.TextureStagingData, fallback []byte, format wgpu.TextureFormat) common.TextureStagingData {
		if t == nil || len(t.Pixels) == 0 {
			return common.TextureStagingData{Pixels: fallback, Width: 1, Height: 1, Format: format}
		}
		out := *t
		out.Format = common.Coalesce(out.Format, format)
		return out
	}
	return [3]common.TextureStagingData{
		pick(m.DiffuseTexture(), whitePixel, wgpu.TextureFormatRGBA8UnormSrgb),
		pick(m.MetallicRoughnessTexture(), whitePixel, wgpu.TextureFormatRGBA8Unorm),
		pick(m.NormalTexture(), flatNormalPixel, wgpu.TextureFormatRGBA8Unorm),
	}
}

// uploadMaterial creates the material's group 1 resources. The params uniform is written with the frame's batch.
func (g *graph) uploadMaterial(m material.Material) error {
	provider := bind_group_provider.NewBindGroupProvider("material:" + m.Name())
	for i, tex := range materialTextures(m) {
		if err := g.gpu.InitTextureView(provider, i+1, tex); err != nil {
			return fmt.Errorf("material %s: %w", m.Name(), err)
		}
	}
	sampler := m.Sampler()
	if sampler == nil {
		sampler = common.LinearRepeatSampler()
	}
	if err := g.gpu.InitSampler(provider, 4, *sampler); err != nil {
		return fmt.Errorf("material %s: %w", m.Name(), err)
	}
	if err := g.gpu.InitBindGroup(provider, PipelineGeometry, 1, nil, nil); err != nil {
		return fmt.Errorf("material %s: %w", m.Name(), err)
	}
	m.SetBindGroupProvider(provider)
	params := m.Params()
	g.writes = append(g.writes, bind_group_provider.BufferWrite{Provider: provider, Binding: 0, Data: params.Marshal()})
	return nil
}

func (g *graph) uploadMesh(m mesh.Mesh) error {
	if err := g.gpu.InitMeshBuffers(m.BindGroupProvider(), m.VertexData(), m.IndexData(), m.IndexCount()); err != nil {
		return fmt.Errorf("mesh %s: %w", m.Name(), err)
	}
	return nil
}
