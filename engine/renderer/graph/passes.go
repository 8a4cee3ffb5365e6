package graph

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	clearBlack = &wgpu.Color{R: 0, G: 0, B: 0, A: 1}
	clearWhite = &wgpu.Color{R: 1, G: 1, B: 1, A: 1}
	clearZero  = &wgpu.Color{}
)

func (g *graph) geometryPass(f *Frame) error {
	color := make([]renderer.ColorAttachment, len(gbufferTargets))
	for i, name := range gbufferTargets {
		color[i] = renderer.ColorAttachment{Target: name, Clear: clearZero}
	}
	err := g.gpu.BeginPass(renderer.PassDescriptor{
		Label:      "geometry",
		Color:      color,
		Depth:      &renderer.DepthAttachment{Target: TargetDepth, Clear: true},
		Timestamps: g.stamps.pair("geometry"),
	})
	if err != nil {
		return err
	}
	defer g.gpu.EndPass()

	if f.Draws == nil {
		return nil
	}
	current := ""
	for _, call := range f.Draws.Calls {
		key := PipelineGeometry
		if call.Material.TypeBits().Has(material.TypeNormalMapped) {
			if !call.Mesh.HasTangents() {
				g.warnMissingTangents(call)
				continue
			}
			key = PipelineGeometryNormalMapped
		}
		if key != current {
			if err := g.gpu.SetPipeline(key); err != nil {
				return err
			}
			g.gpu.SetBindGroup(0, g.camera.provider)
			g.gpu.SetBindGroup(2, g.instances.provider)
			current = key
		}
		g.gpu.SetBindGroup(1, call.Material.BindGroupProvider())
		g.gpu.DrawIndexed(call.Mesh.BindGroupProvider(), call.InstanceCount, call.FirstInstance)
	}
	return nil
}

// shadowPass renders one depth-only sub-pass per assigned shadow slot from the geometry draw list. Only the leading
// shadow-casting instances of each call are drawn.
func (g *graph) shadowPass(f *Frame) error {
	if f.Lights == nil {
		return nil
	}
	for _, s := range f.Lights.Shadows {
		label := fmt.Sprintf("shadow[%d]", s.Slot)
		err := g.gpu.BeginPass(renderer.PassDescriptor{
			Label:      label,
			Depth:      &renderer.DepthAttachment{Target: TargetShadow, Layer: uint32(s.Slot), Clear: true},
			Timestamps: g.stamps.pair(label),
		})
		if err != nil {
			return err
		}
		if err := g.gpu.SetPipeline(PipelineShadow); err != nil {
			g.gpu.EndPass()
			return err
		}
		g.gpu.SetBindGroup(0, g.shadowSlots[s.Slot].provider)
		g.gpu.SetBindGroup(1, g.instances.provider)
		if f.Draws != nil {
			for _, call := range f.Draws.Calls {
				if call.ShadowCasters == 0 {
					continue
				}
				g.gpu.DrawIndexed(call.Mesh.BindGroupProvider(), call.ShadowCasters, call.FirstInstance)
			}
		}
		g.gpu.EndPass()
	}
	return nil
}

// ssaoPass writes the occlusion target. When disabled it only clears the target to 1 so shading sees no occlusion.
func (g *graph) ssaoPass(f *Frame) error {
	desc := renderer.PassDescriptor{
		Label:      "ssao",
		Color:      []renderer.ColorAttachment{{Target: TargetSSAO, Clear: clearWhite}},
		Timestamps: g.stamps.pair("ssao"),
	}
	if !g.ssao.Enabled {
		if err := g.gpu.BeginPass(desc); err != nil {
			return err
		}
		g.gpu.EndPass()
		return nil
	}
	return g.fullscreenPass(desc, PipelineSSAO, g.ssaoGroup)
}

// skyPass clears the HDR target and draws the sky cube with the translation-free view projection. Fragments covered
// by geometry are discarded against the G-buffer depth.
func (g *graph) skyPass(f *Frame) error {
	if err := g.ensure(g.skyGroup); err != nil {
		return err
	}
	err := g.gpu.BeginPass(renderer.PassDescriptor{
		Label:      "sky",
		Color:      []renderer.ColorAttachment{{Target: TargetHDR, Clear: clearBlack}},
		Timestamps: g.stamps.pair("sky"),
	})
	if err != nil {
		return err
	}
	defer g.gpu.EndPass()
	if err := g.gpu.SetPipeline(PipelineSky); err != nil {
		return err
	}
	g.gpu.SetBindGroup(0, g.camera.provider)
	g.gpu.SetBindGroup(1, g.skyGroup.provider)
	g.gpu.Draw(skyVertexCount)
	return nil
}

func (g *graph) shadePass(f *Frame) error {
	return g.fullscreenPass(renderer.PassDescriptor{
		Label:      "shade",
		Color:      []renderer.ColorAttachment{{Target: TargetHDR}},
		Timestamps: g.stamps.pair("shade"),
	}, PipelineShade, g.gbufferGroup, g.lighting)
}

// bloomPass extracts bright pixels into bloom layer 0, blurs horizontally into layer 1 and vertically back into
// layer 0. Disabled bloom clears layer 0 so the composite adds nothing.
func (g *graph) bloomPass(f *Frame) error {
	if !g.bloom.Enabled {
		err := g.gpu.BeginPass(renderer.PassDescriptor{
			Label:      "bloom",
			Color:      []renderer.ColorAttachment{{Target: TargetBloom, Layer: 0, Clear: clearBlack}},
			Timestamps: g.stamps.pair("bloom"),
		})
		if err != nil {
			return err
		}
		g.gpu.EndPass()
		return nil
	}

	steps := []struct {
		label    string
		pipeline string
		group    *targetGroup
		layer    uint32
	}{
		{"bloom_extract", PipelineBloomExtract, g.bloomExtract, 0},
		{"bloom_h", PipelineBloomHorizontal, g.bloomHorizontal, 1},
		{"bloom_v", PipelineBloomVertical, g.bloomVertical, 0},
	}
	for _, s := range steps {
		err := g.fullscreenPassAt(renderer.PassDescriptor{
			Label:      s.label,
			Color:      []renderer.ColorAttachment{{Target: TargetBloom, Layer: s.layer, Clear: clearBlack}},
			Timestamps: g.stamps.pair(s.label),
		}, s.pipeline, 0, s.group)
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *graph) postprocessPass(f *Frame) error {
	return g.fullscreenPass(renderer.PassDescriptor{
		Label:      "postprocess",
		Color:      []renderer.ColorAttachment{{Surface: true, Clear: clearBlack}},
		Timestamps: g.stamps.pair("postprocess"),
	}, PipelinePostprocess, g.post)
}

// fullscreenPass draws the fullscreen triangle with the camera at group 0 and the given groups from group 1 on.
func (g *graph) fullscreenPass(desc renderer.PassDescriptor, pipelineKey string, groups ...*targetGroup) error {
	return g.fullscreenPassAt(desc, pipelineKey, 1, groups...)
}

// fullscreenPassAt draws the fullscreen triangle binding groups from index first on. With first > 0 the camera is
// bound at group 0.
func (g *graph) fullscreenPassAt(desc renderer.PassDescriptor, pipelineKey string, first int, groups ...*targetGroup) error {
	for _, t := range groups {
		if err := g.ensure(t); err != nil {
			return err
		}
	}
	if err := g.gpu.BeginPass(desc); err != nil {
		return err
	}
	defer g.gpu.EndPass()
	if err := g.gpu.SetPipeline(pipelineKey); err != nil {
		return err
	}
	if first > 0 {
		g.gpu.SetBindGroup(0, g.camera.provider)
	}
	for i, t := range groups {
		g.gpu.SetBindGroup(first+i, t.provider)
	}
	g.gpu.DrawFullscreen()
	return nil
}
