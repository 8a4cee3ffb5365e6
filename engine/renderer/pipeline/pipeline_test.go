package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const testVertexSource = `
struct CameraUniform { view_proj: mat4x4f, }
@group(0) @binding(0) var<uniform> camera: CameraUniform;
@group(1) @binding(0) var<storage, read> instances: array<mat4x4f>;

@vertex
fn vs_main(@location(0) position: vec3f) -> @builtin(position) vec4f {
    return camera.view_proj * vec4f(position, 1.0);
}
`

const testFragmentSource = `
struct CameraUniform { view_proj: mat4x4f, }
@group(0) @binding(0) var<uniform> camera: CameraUniform;
@group(2) @binding(0) var base_color: texture_2d<f32>;
@group(2) @binding(1) var base_sampler: sampler;

@fragment
fn fs_main() -> @location(0) vec4f {
    return vec4f(1.0);
}
`

func newTestPipeline(opts ...PipelineBuilderOption) Pipeline {
	return NewPipeline("test", append([]PipelineBuilderOption{
		WithVertexShader(shader.NewShader("test_vs", shader.ShaderTypeVertex, testVertexSource)),
		WithFragmentShader(shader.NewShader("test_fs", shader.ShaderTypeFragment, testFragmentSource)),
	}, opts...)...)
}

func TestMergedBindGroupLayouts(t *testing.T) {
	p := newTestPipeline()
	layouts := p.BindGroupLayoutDescriptors()
	if len(layouts) != 3 {
		t.Fatalf("groups = %d, want 3", len(layouts))
	}

	cam := p.BindGroupLayoutDescriptor(0).Entries
	if len(cam) != 1 {
		t.Fatalf("group 0 entries = %d, want the shared binding once", len(cam))
	}
	if want := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment; cam[0].Visibility != want {
		t.Errorf("shared visibility = %v, want %v", cam[0].Visibility, want)
	}

	if v := p.BindGroupLayoutDescriptor(1).Entries[0].Visibility; v != wgpu.ShaderStageVertex {
		t.Errorf("vertex-only visibility = %v", v)
	}
	if n := len(p.BindGroupLayoutDescriptor(2).Entries); n != 2 {
		t.Errorf("fragment-only entries = %d, want 2", n)
	}
}

func TestMissingGroupPanics(t *testing.T) {
	p := newTestPipeline()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an undeclared group")
		}
	}()
	p.BindGroupLayoutDescriptor(5)
}

func TestDepthOnlyPipeline(t *testing.T) {
	p := NewPipeline("shadow",
		WithVertexShader(shader.NewShader("shadow_vs", shader.ShaderTypeVertex, testVertexSource)),
		WithDepthFormat(wgpu.TextureFormatDepth32Float),
		WithCullMode(wgpu.CullModeFront),
		WithDepthBias(2, 2.0),
	)
	if p.Shader(shader.ShaderTypeFragment) != nil {
		t.Error("depth-only pipeline has a fragment shader")
	}
	if len(p.BindGroupLayoutDescriptors()) != 2 {
		t.Errorf("groups = %d, want the vertex stage's 2", len(p.BindGroupLayoutDescriptors()))
	}
	if p.DepthFormat() != wgpu.TextureFormatDepth32Float || p.CullMode() != wgpu.CullModeFront || p.DepthBias() != 2 {
		t.Error("options not applied")
	}
}

func TestTargetOptionsAreExclusive(t *testing.T) {
	p := newTestPipeline(WithColorTargets(wgpu.TextureFormatRGBA8Unorm), WithSurfaceTarget())
	if !p.SurfaceTarget() || len(p.ColorTargets()) != 0 {
		t.Errorf("surface target = %v, color targets = %v", p.SurfaceTarget(), p.ColorTargets())
	}
	p = newTestPipeline(WithSurfaceTarget(), WithColorTargets(wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA8Unorm))
	if p.SurfaceTarget() || len(p.ColorTargets()) != 2 {
		t.Errorf("surface target = %v, color targets = %v", p.SurfaceTarget(), p.ColorTargets())
	}
}

func TestMissingVertexShaderPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic")
		}
	}()
	NewPipeline("empty")
}
