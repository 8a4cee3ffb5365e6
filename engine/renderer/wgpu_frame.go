package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

var errNoFrame = errors.New("no frame in progress")

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.surface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("surface view: %w", err)
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return fmt.Errorf("command encoder: %w", err)
	}

	b.frame = frameState{
		encoder: encoder,
		surface: surfaceTexture,
		view:    view,
	}
	return nil
}

func (b *wgpuRendererBackendImpl) BeginPass(desc PassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.encoder == nil {
		return fmt.Errorf("begin pass %s: %w", desc.Label, errNoFrame)
	}
	if b.frame.pass != nil {
		return fmt.Errorf("begin pass %s: previous pass still open", desc.Label)
	}

	rp := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: make([]wgpu.RenderPassColorAttachment, len(desc.Color)),
	}
	for i, c := range desc.Color {
		view := b.frame.view
		if !c.Surface {
			if view = b.layerView(c.Target, c.Layer); view == nil {
				return fmt.Errorf("begin pass %s: unknown color target %s[%d]", desc.Label, c.Target, c.Layer)
			}
		}
		att := wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if c.Clear != nil {
			att.LoadOp = wgpu.LoadOpClear
			att.ClearValue = *c.Clear
		}
		rp.ColorAttachments[i] = att
	}

	if d := desc.Depth; d != nil {
		view := b.layerView(d.Target, d.Layer)
		if view == nil {
			return fmt.Errorf("begin pass %s: unknown depth target %s[%d]", desc.Label, d.Target, d.Layer)
		}
		att := &wgpu.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
		if d.Clear {
			att.DepthLoadOp = wgpu.LoadOpClear
		}
		rp.DepthStencilAttachment = att
	}

	if pair, ok := b.timestamps.span(desc.Timestamps); ok {
		if err := b.frame.encoder.WriteTimestamp(b.timestamps.querySet, pair.Begin); err != nil {
			b.log.Warn("pass timestamp", zap.String("pass", desc.Label), zap.Error(err))
		} else {
			b.frame.passEnd = pair.End
			b.frame.timed = true
			b.frame.queries = max(b.frame.queries, pair.End+1)
		}
	}

	b.frame.pass = b.frame.encoder.BeginRenderPass(rp)
	return nil
}

func (b *wgpuRendererBackendImpl) SetPipeline(p pipeline.Pipeline) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame.pass == nil {
		return
	}
	b.frame.pass.SetPipeline(p.RenderPipeline())
}

func (b *wgpuRendererBackendImpl) SetBindGroup(group int, provider bind_group_provider.BindGroupProvider) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame.pass == nil {
		return
	}
	b.frame.pass.SetBindGroup(uint32(group), provider.BindGroup(), nil)
}

func (b *wgpuRendererBackendImpl) DrawIndexed(meshProvider bind_group_provider.BindGroupProvider, instanceCount, firstInstance uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame.pass == nil {
		return
	}
	b.frame.pass.SetVertexBuffer(0, meshProvider.VertexBuffer(), 0, wgpu.WholeSize)
	b.frame.pass.SetIndexBuffer(meshProvider.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.frame.pass.DrawIndexed(uint32(meshProvider.IndexCount()), instanceCount, 0, 0, firstInstance)
}

func (b *wgpuRendererBackendImpl) Draw(vertexCount uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame.pass == nil {
		return
	}
	b.frame.pass.Draw(vertexCount, 1, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endPass()
}

func (b *wgpuRendererBackendImpl) endPass() {
	if b.frame.pass == nil {
		return
	}
	b.frame.pass.End()
	b.frame.pass = nil
	if b.frame.timed {
		b.frame.timed = false
		if err := b.frame.encoder.WriteTimestamp(b.timestamps.querySet, b.frame.passEnd); err != nil {
			b.log.Warn("pass timestamp", zap.Error(err))
		}
	}
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.encoder == nil {
		return fmt.Errorf("end frame: %w", errNoFrame)
	}
	b.endPass()

	readback := false
	if ts := b.timestamps; ts != nil && b.frame.queries > 0 && !ts.pending {
		if err := ts.resolve(b.frame.encoder, b.frame.queries); err != nil {
			b.log.Warn("resolve pass timestamps", zap.Error(err))
		} else {
			readback = true
		}
	}

	encoder := b.frame.encoder
	b.frame.encoder = nil
	defer encoder.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish frame: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	if readback {
		if err := b.timestamps.mapReadback(); err != nil {
			return fmt.Errorf("timestamp readback: %w", err)
		}
	}
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame.surface == nil {
		return
	}
	b.surface.Present()

	if b.frame.view != nil {
		b.frame.view.Release()
		b.frame.view = nil
	}
	b.frame.surface.Release()
	b.frame.surface = nil
}
