package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// renderTarget is one named intermediate texture with its full view and one view per array layer.
type renderTarget struct {
	desc    TargetDescriptor
	texture *wgpu.Texture
	view    *wgpu.TextureView
	layers  []*wgpu.TextureView
}

func (b *wgpuRendererBackendImpl) CreateTargets(descs []TargetDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, desc := range descs {
		if desc.Layers == 0 {
			desc.Layers = 1
		}
		t := &renderTarget{desc: desc}
		if old, ok := b.targets[desc.Name]; ok {
			old.release()
		}
		if err := b.recreateTarget(t); err != nil {
			return err
		}
		b.targets[desc.Name] = t
	}
	b.generation++
	return nil
}

// recreateTarget (re)allocates the texture and views of t at its current size. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) recreateTarget(t *renderTarget) error {
	t.release()

	width, height := uint32(b.width), uint32(b.height)
	if t.desc.Size != 0 {
		width, height = t.desc.Size, t.desc.Size
	}
	width, height = max(width, 1), max(height, 1)

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: t.desc.Name,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: t.desc.Layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        t.desc.Format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("render target %s: %w", t.desc.Name, err)
	}
	t.texture = tex

	full := &wgpu.TextureViewDescriptor{
		Label:           t.desc.Name + " view",
		Format:          t.desc.Format,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	}
	if t.desc.Array || t.desc.Layers > 1 {
		full.Dimension = wgpu.TextureViewDimension2DArray
		full.ArrayLayerCount = t.desc.Layers
	}
	if t.view, err = tex.CreateView(full); err != nil {
		return fmt.Errorf("render target %s view: %w", t.desc.Name, err)
	}

	t.layers = make([]*wgpu.TextureView, t.desc.Layers)
	for layer := range t.layers {
		lv, lerr := tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("%s layer %d", t.desc.Name, layer),
			Format:          t.desc.Format,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(layer),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if lerr != nil {
			return fmt.Errorf("render target %s layer %d: %w", t.desc.Name, layer, lerr)
		}
		t.layers[layer] = lv
	}
	return nil
}

func (t *renderTarget) release() {
	for _, lv := range t.layers {
		if lv != nil {
			lv.Release()
		}
	}
	t.layers = nil
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

func (b *wgpuRendererBackendImpl) TargetView(name string) *wgpu.TextureView {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.targets[name]; ok {
		return t.view
	}
	return nil
}

func (b *wgpuRendererBackendImpl) TargetLayerView(name string, layer uint32) *wgpu.TextureView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.layerView(name, layer)
}

func (b *wgpuRendererBackendImpl) layerView(name string, layer uint32) *wgpu.TextureView {
	t, ok := b.targets[name]
	if !ok || int(layer) >= len(t.layers) {
		return nil
	}
	return t.layers[layer]
}

func (b *wgpuRendererBackendImpl) TargetGeneration() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}
