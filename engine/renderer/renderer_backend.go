package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrPipelineNotFound is returned when a pass selects a pipeline key that was never registered.
var ErrPipelineNotFound = errors.New("renderer: pipeline not found")

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// SurfaceSource is the window-side half of surface creation.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// TargetDescriptor describes an intermediate render target. Targets are addressed by name and recreated on resize
// unless their size is fixed.
type TargetDescriptor struct {
	// Name identifies the target for TargetView, TargetLayerView and pass attachments.
	Name string
	// Format is the texel format; depth formats make a depth target.
	Format wgpu.TextureFormat
	// Layers is the array layer count. Zero means one.
	Layers uint32
	// Array makes TargetView return a 2D array view even for a single layer.
	Array bool
	// Size fixes the width and height in texels. Zero follows the surface size.
	Size uint32
}

// ColorAttachment is one color output of a pass.
type ColorAttachment struct {
	// Target names the render target, ignored when Surface is set.
	Target string
	// Layer selects the array layer of Target.
	Layer uint32
	// Surface writes the swapchain texture acquired by BeginFrame.
	Surface bool
	// Clear, when set, clears the attachment first; otherwise its contents are loaded.
	Clear *wgpu.Color
}

// DepthAttachment is the depth output of a pass.
type DepthAttachment struct {
	Target string
	Layer  uint32
	// Clear clears depth to 1 before the pass; otherwise depth is loaded.
	Clear bool
}

// TimestampPair is the pair of query indices written at the beginning and end of a pass.
type TimestampPair struct {
	Begin, End uint32
}

// PassDescriptor describes one render pass within the frame's command encoder.
type PassDescriptor struct {
	Label      string
	Color      []ColorAttachment
	Depth      *DepthAttachment
	Timestamps *TimestampPair
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}

// frameState is what the backend holds between BeginFrame and EndFrame.
type frameState struct {
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	surface *wgpu.Texture
	view    *wgpu.TextureView

	// queries is one past the highest timestamp query index written this frame.
	queries uint32
	// passEnd is the query written when the open pass ends, valid while timed is set.
	passEnd uint32
	timed   bool
}

// mergeWrites groups consecutive writes to the same provider binding so each buffer is written once per batch when
// the ranges are contiguous.
func mergeWrites(writes []bind_group_provider.BufferWrite) []bind_group_provider.BufferWrite {
	if len(writes) < 2 {
		return writes
	}
	out := make([]bind_group_provider.BufferWrite, 0, len(writes))
	for _, w := range writes {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Provider == w.Provider && last.Binding == w.Binding && last.Offset+uint64(len(last.Data)) == w.Offset {
				merged := make([]byte, 0, len(last.Data)+len(w.Data))
				merged = append(append(merged, last.Data...), w.Data...)
				last.Data = merged
				continue
			}
		}
		out = append(out, w)
	}
	return out
}
