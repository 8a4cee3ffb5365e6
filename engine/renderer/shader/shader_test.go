package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const testShadeSource = `
struct CameraUniform {
    view_proj: mat4x4f,
    view: mat4x4f,
    proj: mat4x4f,
    inv_proj: mat4x4f,
    inv_view_proj: mat4x4f,
    sky_view_proj: mat4x4f,
    position: vec3f,
    near: f32,
    far: f32,
    _pad: f32,
    screen_size: vec2f,
}

struct Light {
    position: vec3f,
    kind: u32,
    direction: vec3f,
    range: f32,
    color: vec3f,
    intensity: f32,
    inner_cone: f32,
    outer_cone: f32,
    shadow_slot: i32,
    _pad: f32,
}

@group(0) @binding(0) var<uniform> camera: CameraUniform;
@group(1) @binding(2) var<storage, read> lights: array<Light>;
@group(1) @binding(0) var shadow_maps: texture_depth_2d_array;
@group(1) @binding(1) var shadow_sampler: sampler_comparison;
// @group(3) @binding(0) var ignored: texture_2d<f32>;
@group(2) @binding(0) var base_color: texture_2d<f32>;

@fragment
fn fs_main(@builtin(position) frag: vec4f) -> @location(0) vec4f {
    return vec4f(1.0);
}
`

func TestReflectsBindGroupLayouts(t *testing.T) {
	s := NewShader("shade", ShaderTypeFragment, testShadeSource)

	if s.EntryPoint() != "fs_main" {
		t.Fatalf("entry point = %q", s.EntryPoint())
	}
	if _, ok := s.BindGroupLayoutDescriptor(3); ok {
		t.Fatal("commented-out declaration was reflected")
	}

	g0, ok := s.BindGroupLayoutDescriptor(0)
	if !ok || len(g0.Entries) != 1 {
		t.Fatalf("group 0 = %+v", g0)
	}
	cam := g0.Entries[0]
	if cam.Buffer.Type != wgpu.BufferBindingTypeUniform {
		t.Errorf("camera buffer type = %v", cam.Buffer.Type)
	}
	if cam.Buffer.MinBindingSize != 416 {
		t.Errorf("camera min binding size = %d, want 416", cam.Buffer.MinBindingSize)
	}
	if cam.Visibility != wgpu.ShaderStageFragment {
		t.Errorf("visibility = %v", cam.Visibility)
	}

	g1, _ := s.BindGroupLayoutDescriptor(1)
	if len(g1.Entries) != 3 {
		t.Fatalf("group 1 entries = %d, want 3", len(g1.Entries))
	}
	for i, e := range g1.Entries {
		if e.Binding != uint32(i) {
			t.Fatalf("entries not sorted by binding: %d at %d", e.Binding, i)
		}
	}
	if g1.Entries[0].Texture.SampleType != wgpu.TextureSampleTypeDepth ||
		g1.Entries[0].Texture.ViewDimension != wgpu.TextureViewDimension2DArray {
		t.Errorf("shadow map entry = %+v", g1.Entries[0].Texture)
	}
	if g1.Entries[1].Sampler.Type != wgpu.SamplerBindingTypeComparison {
		t.Errorf("shadow sampler type = %v", g1.Entries[1].Sampler.Type)
	}
	if g1.Entries[2].Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage {
		t.Errorf("lights buffer type = %v", g1.Entries[2].Buffer.Type)
	}
	if g1.Entries[2].Buffer.MinBindingSize != 64 {
		t.Errorf("lights min binding size = %d, want one 64 byte element", g1.Entries[2].Buffer.MinBindingSize)
	}

	g2, _ := s.BindGroupLayoutDescriptor(2)
	if tex := g2.Entries[0].Texture; tex.SampleType != wgpu.TextureSampleTypeFloat || tex.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("base color entry = %+v", tex)
	}

	if b, ok := s.BindingFromVarName(1, "lights"); !ok || b != 2 {
		t.Errorf("BindingFromVarName(lights) = %d, %v", b, ok)
	}
	if _, ok := s.BindingFromVarName(0, "lights"); ok {
		t.Error("lights resolved in the wrong group")
	}
}

func TestEntryPointSelection(t *testing.T) {
	const src = `
@fragment
fn fs_horizontal() -> @location(0) vec4f { return vec4f(0.0); }
@fragment
fn fs_vertical() -> @location(0) vec4f { return vec4f(1.0); }
`
	if got := NewShader("blur", ShaderTypeFragment, src).EntryPoint(); got != "fs_horizontal" {
		t.Errorf("default entry point = %q", got)
	}
	if got := NewShader("blur", ShaderTypeFragment, src, WithEntryPoint("fs_vertical")).EntryPoint(); got != "fs_vertical" {
		t.Errorf("selected entry point = %q", got)
	}
}

func TestMissingEntryPointPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	NewShader("frag_only", ShaderTypeVertex, `@fragment fn fs_main() -> @location(0) vec4f { return vec4f(0.0); }`)
}

func TestStructLayoutNesting(t *testing.T) {
	structs := parseStructBlocks(`
struct Outer { inner: Inner, scale: f32, }
struct Inner { a: vec3f, b: f32, }
`)
	sizes := computeStructSizes(structs)
	if sizes["Inner"].size != 16 {
		t.Errorf("Inner size = %d, want 16", sizes["Inner"].size)
	}
	// 16 bytes of Inner, 4 of f32, rounded up to Inner's 16 byte alignment
	if sizes["Outer"].size != 32 {
		t.Errorf("Outer size = %d, want 32", sizes["Outer"].size)
	}
	if l, ok := resolveTypeLayout("array<Inner, 4>", sizes); !ok || l.size != 64 {
		t.Errorf("array<Inner, 4> = %+v, %v", l, ok)
	}
}

func TestValidate(t *testing.T) {
	const ok = `
@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}
`
	if _, err := Validate(ok); err != nil {
		t.Fatalf("Validate(valid) = %v", err)
	}

	const broken = `
@vertex
fn vs_main( {
    return vec4<f32>(0.0);
}
`
	if _, err := Validate(broken); err == nil {
		t.Fatal("expected a parse error")
	}
}
