package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/asset"
	"github.com/Carmen-Shannon/oxy-deferred/engine/audio"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/input"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/navigation"
	"github.com/Carmen-Shannon/oxy-deferred/engine/physics"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/graph"
	"github.com/Carmen-Shannon/oxy-deferred/engine/script"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithLogger sets the logger handed to every subsystem the engine creates.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(log *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithConfig applies the engine, window size, shadow and audio sections of cfg. Options given after it override it.
//
// Parameters:
//   - cfg: the loaded configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
		e.maxFrameTime = cfg.Engine.MaxFrameTime.Duration
		e.width, e.height = cfg.Window.Width, cfg.Window.Height
		e.lightOptions = append(e.lightOptions,
			light.WithMaxShadowSlots(cfg.Shadow.MaxSlots),
			light.WithShadowMapResolution(cfg.Shadow.MapSize),
			light.WithShadowHalfExtent(cfg.Shadow.Extent),
		)
	}
}

// WithWindow sets the window the engine reads input from and runs its loop on.
//
// Parameters:
//   - w: an open Window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithGraph sets the render graph frames are recorded into.
//
// Parameters:
//   - g: the render graph
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithGraph(g graph.Graph) EngineBuilderOption {
	return func(e *engine) {
		e.graph = g
	}
}

// WithProfiler sets the profiler ticked at the end of every frame.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithInput replaces the input collector. Tests use it to feed keys without a window.
func WithInput(in input.Input) EngineBuilderOption {
	return func(e *engine) {
		e.in = in
	}
}

// WithNavigator enables path following for PathFollower components.
//
// Parameters:
//   - nav: the navigator
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithNavigator(nav navigation.Navigator) EngineBuilderOption {
	return func(e *engine) {
		e.nav = nav
	}
}

// WithAudio enables sound sources, played from bank through out.
//
// Parameters:
//   - bank: the sound bank
//   - out: the audio output
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAudio(bank *audio.Bank, out audio.Output) EngineBuilderOption {
	return func(e *engine) {
		e.bank = bank
		e.output = out
	}
}

// WithScripts enables Lua scripts. The configured script directory is loaded into s at construction.
func WithScripts(s *script.System) EngineBuilderOption {
	return func(e *engine) {
		e.scripts = s
	}
}

// WithPreparer sets the preparer used to decode model and texture images.
func WithPreparer(p *asset.Preparer) EngineBuilderOption {
	return func(e *engine) {
		e.preparer = p
	}
}

// WithPhysics passes options to the physics system.
func WithPhysics(options ...physics.SystemBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.physicsOptions = append(e.physicsOptions, options...)
	}
}

// WithSurfaceSize sets the surface size used before a window reports one. Headless engines keep it.
//
// Parameters:
//   - width, height: the size in pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSurfaceSize(width, height int) EngineBuilderOption {
	return func(e *engine) {
		e.width, e.height = width, height
	}
}

// WithMaxFrameTime clamps the dt of a single tick. Zero disables clamping.
func WithMaxFrameTime(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.maxFrameTime = d
	}
}

// GraphOptions maps the render, fog, bloom, ssao and shadow sections of cfg onto render graph options.
//
// Parameters:
//   - cfg: the loaded configuration
//
// Returns:
//   - []graph.GraphBuilderOption: the graph options
func GraphOptions(cfg *config.Config) []graph.GraphBuilderOption {
	fog := graph.Fog{
		Mode:    fogMode(cfg.Fog.Mode),
		Color:   cfg.Fog.Color,
		Start:   cfg.Fog.Start,
		End:     cfg.Fog.End,
		Density: cfg.Fog.Density,
	}

	bloom := graph.Bloom{
		Enabled:   cfg.Bloom.Enabled,
		Threshold: cfg.Bloom.Threshold,
		Knee:      cfg.Bloom.Knee,
		Intensity: cfg.Bloom.Intensity,
		Radius:    cfg.Bloom.Radius,
	}
	ssao := graph.SSAO{
		Enabled:   cfg.SSAO.Enabled,
		Radius:    cfg.SSAO.Radius,
		Bias:      cfg.SSAO.Bias,
		Intensity: cfg.SSAO.Intensity,
		Samples:   cfg.SSAO.Samples,
	}
	return []graph.GraphBuilderOption{
		graph.WithFog(fog),
		graph.WithBloom(bloom),
		graph.WithSSAO(ssao),
		graph.WithExposure(cfg.Render.Exposure),
		graph.WithShadowResolution(cfg.Shadow.MapSize),
	}
}

func fogMode(name string) graph.FogMode {
	switch name {
	case "linear":
		return graph.FogLinear
	case "exp":
		return graph.FogExponential
	case "exp2":
		return graph.FogExponentialSquared
	}
	return graph.FogNone
}
