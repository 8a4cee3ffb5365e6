package graph

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Pipeline keys registered by the graph.
const (
	PipelineGeometry             = "geometry"
	PipelineGeometryNormalMapped = "geometry_normal_mapped"
	PipelineShadow               = "shadow"
	PipelineSSAO                 = "ssao"
	PipelineSky                  = "sky"
	PipelineShade                = "shade"
	PipelineBloomExtract         = "bloom_extract"
	PipelineBloomHorizontal      = "bloom_blur_h"
	PipelineBloomVertical        = "bloom_blur_v"
	PipelinePostprocess          = "postprocess"
)

const (
	shadowDepthBias      int32   = 2
	shadowSlopeBiasScale float32 = 2.0
	skyVertexCount       uint32  = 36
)

//go:embed shaders/*.wgsl
var embeddedShaders embed.FS

// ShaderSources returns the built-in WGSL sources, one file per pass.
//
// Returns:
//   - fs.FS: the shader file system rooted at the shader directory
func ShaderSources() fs.FS {
	sub, err := fs.Sub(embeddedShaders, "shaders")
	if err != nil {
		panic("graph: embedded shaders missing: " + err.Error())
	}
	return sub
}

// shaderPreludes are the struct definitions prepended to each shader file. They come from the Go types that marshal the
// matching buffers so the two layouts cannot drift apart.
var shaderPreludes = map[string][]string{
	"geometry.wgsl": {
		camera.GPUCameraUniformSource,
		material.GPUMaterialParamsSource,
		mesh.GPUVertexSource,
		mesh.GPUInstanceSource,
	},
	"shadow.wgsl": {
		light.GPUShadowUniformSource,
		mesh.GPUVertexSource,
		mesh.GPUInstanceSource,
	},
	"ssao.wgsl": {camera.GPUCameraUniformSource},
	"sky.wgsl":  {camera.GPUCameraUniformSource},
	"shade.wgsl": {
		camera.GPUCameraUniformSource,
		light.GPULightHeaderSource,
		light.GPULightSource,
		light.GPUShadowDataSource,
	},
	"bloom.wgsl":       nil,
	"postprocess.wgsl": {camera.GPUCameraUniformSource},
}

// fullscreenShaders use the shared fullscreen triangle vertex stage.
var fullscreenShaders = map[string]bool{
	"ssao.wgsl":        true,
	"shade.wgsl":       true,
	"bloom.wgsl":       true,
	"postprocess.wgsl": true,
}

// composeShader assembles the preludes, the fullscreen vertex stage if the file needs it, and the file body.
func composeShader(sources fs.FS, name string) (string, error) {
	body, err := fs.ReadFile(sources, name)
	if err != nil {
		return "", fmt.Errorf("read shader %s: %w", name, err)
	}

	var b strings.Builder
	for _, prelude := range shaderPreludes[name] {
		b.WriteString(prelude)
		b.WriteString("\n\n")
	}
	if fullscreenShaders[name] {
		fullscreen, err := fs.ReadFile(sources, "fullscreen.wgsl")
		if err != nil {
			return "", fmt.Errorf("read shader fullscreen.wgsl: %w", err)
		}
		b.Write(fullscreen)
		b.WriteString("\n")
	}
	b.Write(body)
	return b.String(), nil
}

// Pipelines builds every pipeline the graph executes from a shader file system laid out like ShaderSources. Hosts
// pass os.DirFS to iterate on shaders without rebuilding.
//
// Parameters:
//   - sources: the shader files
//
// Returns:
//   - []pipeline.Pipeline: the pipelines in pass order
//   - error: an error if a shader file is missing
func Pipelines(sources fs.FS) ([]pipeline.Pipeline, error) {
	src := make(map[string]string, len(shaderPreludes))
	for name := range shaderPreludes {
		s, err := composeShader(sources, name)
		if err != nil {
			return nil, err
		}
		src[name] = s
	}

	stages := func(key, file, fragmentEntry string) []pipeline.PipelineBuilderOption {
		var fsOpts []shader.ShaderBuilderOption
		if fragmentEntry != "" {
			fsOpts = append(fsOpts, shader.WithEntryPoint(fragmentEntry))
		}
		return []pipeline.PipelineBuilderOption{
			pipeline.WithVertexShader(shader.NewShader(key+"_vs", shader.ShaderTypeVertex, src[file])),
			pipeline.WithFragmentShader(shader.NewShader(key+"_fs", shader.ShaderTypeFragment, src[file], fsOpts...)),
		}
	}

	geometry := func(key, fragmentEntry string) pipeline.Pipeline {
		opts := append(stages(key, "geometry.wgsl", fragmentEntry),
			pipeline.WithVertexLayouts(mesh.VertexBufferLayout()),
			pipeline.WithColorTargets(gbufferFormats...),
			pipeline.WithDepthFormat(depthFormat),
			pipeline.WithDepthTestEnabled(true),
			pipeline.WithDepthWriteEnabled(true),
		)
		return pipeline.NewPipeline(key, opts...)
	}

	fullscreen := func(key, file, fragmentEntry string, format wgpu.TextureFormat) pipeline.Pipeline {
		opts := append(stages(key, file, fragmentEntry),
			pipeline.WithColorTargets(format),
			pipeline.WithCullMode(wgpu.CullModeNone),
		)
		return pipeline.NewPipeline(key, opts...)
	}

	shadow := pipeline.NewPipeline(PipelineShadow, append(stages(PipelineShadow, "shadow.wgsl", ""),
		pipeline.WithVertexLayouts(mesh.VertexBufferLayout()),
		pipeline.WithDepthFormat(depthFormat),
		pipeline.WithDepthTestEnabled(true),
		pipeline.WithDepthWriteEnabled(true),
		pipeline.WithDepthBias(shadowDepthBias, shadowSlopeBiasScale),
		pipeline.WithCullMode(wgpu.CullModeFront),
	)...)

	post := pipeline.NewPipeline(PipelinePostprocess, append(stages(PipelinePostprocess, "postprocess.wgsl", ""),
		pipeline.WithSurfaceTarget(),
		pipeline.WithCullMode(wgpu.CullModeNone),
	)...)

	return []pipeline.Pipeline{
		geometry(PipelineGeometry, "fs_main"),
		geometry(PipelineGeometryNormalMapped, "fs_normal_mapped"),
		shadow,
		fullscreen(PipelineSSAO, "ssao.wgsl", "", ssaoFormat),
		fullscreen(PipelineSky, "sky.wgsl", "", hdrFormat),
		fullscreen(PipelineShade, "shade.wgsl", "", hdrFormat),
		fullscreen(PipelineBloomExtract, "bloom.wgsl", "fs_extract", hdrFormat),
		fullscreen(PipelineBloomHorizontal, "bloom.wgsl", "fs_horizontal", hdrFormat),
		fullscreen(PipelineBloomVertical, "bloom.wgsl", "fs_vertical", hdrFormat),
		post,
	}, nil
}
