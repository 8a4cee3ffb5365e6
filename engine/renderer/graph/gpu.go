package graph

import (
	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPU is the part of the renderer the graph drives. Every method has the meaning documented on renderer.Renderer.
type GPU interface {
	RegisterPipelines(pipelines ...pipeline.Pipeline) error
	Resize(width, height int)
	SurfaceSize() (int, int)

	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, pipelineKey string, group int, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	CreateTargets(descs ...renderer.TargetDescriptor) error
	TargetView(name string) *wgpu.TextureView
	TargetLayerView(name string, layer uint32) *wgpu.TextureView
	TargetGeneration() uint64

	BeginFrame() error
	BeginPass(desc renderer.PassDescriptor) error
	SetPipeline(key string) error
	SetBindGroup(group int, provider bind_group_provider.BindGroupProvider)
	DrawIndexed(meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32)
	DrawFullscreen()
	Draw(vertexCount uint32)
	EndPass()
	EndFrame() error
	Present()

	TimestampCapacity() uint32
	TimestampPeriod() float32
	TimestampsPending() bool
	CollectTimestamps() ([]uint64, bool)
}

var _ GPU = renderer.Renderer(nil)
