// Package config loads the engine configuration from TOML. Every field has a default, so a file only needs the values it
// changes.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
)

type Config struct {
	Window  WindowConfig  `toml:"window"`
	Engine  EngineConfig  `toml:"engine"`
	Render  RenderConfig  `toml:"render"`
	Fog     FogConfig     `toml:"fog"`
	Bloom   BloomConfig   `toml:"bloom"`
	SSAO    SSAOConfig    `toml:"ssao"`
	Shadow  ShadowConfig  `toml:"shadow"`
	Audio   AudioConfig   `toml:"audio"`
	Scripts ScriptsConfig `toml:"scripts"`
	Logging LoggingConfig `toml:"logging"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

type EngineConfig struct {
	Scene string `toml:"scene"` // scene description file loaded at startup
	// MaxFrameTime clamps dt after a stall so one frame never integrates a huge step.
	MaxFrameTime    Duration `toml:"max_frame_time"`
	ProfileInterval Duration `toml:"profile_interval"` // 0 disables the profiler
	Workers         int      `toml:"workers"`          // setup-time asset decoders
}

type RenderConfig struct {
	Exposure       float32    `toml:"exposure"`
	ClearColor     [3]float32 `toml:"clear_color"`
	Timestamps     bool       `toml:"timestamps"`
	TimestampPairs int        `toml:"timestamp_pairs"`
}

type FogConfig struct {
	Mode    string     `toml:"mode"` // "none", "linear", "exp" or "exp2"
	Start   float32    `toml:"start"`
	End     float32    `toml:"end"`
	Density float32    `toml:"density"`
	Color   [3]float32 `toml:"color"`
}

type BloomConfig struct {
	Enabled   bool    `toml:"enabled"`
	Threshold float32 `toml:"threshold"`
	Knee      float32 `toml:"knee"`
	Intensity float32 `toml:"intensity"`
	Radius    int     `toml:"radius"`
}

type SSAOConfig struct {
	Enabled   bool    `toml:"enabled"`
	Radius    float32 `toml:"radius"`
	Bias      float32 `toml:"bias"`
	Intensity float32 `toml:"intensity"`
	Samples   int     `toml:"samples"`
}

type ShadowConfig struct {
	MapSize  int     `toml:"map_size"`
	MaxSlots int     `toml:"max_slots"`
	Extent   float32 `toml:"extent"` // half size of the directional shadow box
}

type AudioConfig struct {
	Enabled    bool     `toml:"enabled"`
	Dir        string   `toml:"dir"` // .wav files registered under their base name
	SampleRate int      `toml:"sample_rate"`
	Volume     float64  `toml:"volume"`
	BufferSize Duration `toml:"buffer_size"`
}

type ScriptsConfig struct {
	Dir string `toml:"dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Duration is a time.Duration written as a Go duration string ("250ms", "2s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Load reads the TOML file at path over the defaults.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - *Config: the loaded configuration
//   - error: a read or parse error
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	case c.Bloom.Radius < 0:
		return fmt.Errorf("bloom radius %d must not be negative", c.Bloom.Radius)
	case c.Shadow.MaxSlots < 0 || c.Shadow.MaxSlots > light.MaxShadowSlots:
		return fmt.Errorf("shadow max_slots %d must be between 0 and %d", c.Shadow.MaxSlots, light.MaxShadowSlots)
	case c.Shadow.MapSize <= 0:
		return fmt.Errorf("shadow map_size %d must be positive", c.Shadow.MapSize)
	case c.Fog.End < c.Fog.Start:
		return fmt.Errorf("fog end %v is before start %v", c.Fog.End, c.Fog.Start)
	}
	switch c.Fog.Mode {
	case "", "none", "linear", "exp", "exp2":
	default:
		return fmt.Errorf("fog mode %q is not one of none, linear, exp, exp2", c.Fog.Mode)
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "oxy",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Engine: EngineConfig{
			MaxFrameTime:    Duration{100 * time.Millisecond},
			ProfileInterval: Duration{5 * time.Second},
			Workers:         4,
		},
		Render: RenderConfig{
			Exposure:       1,
			ClearColor:     [3]float32{0.02, 0.02, 0.03},
			Timestamps:     true,
			TimestampPairs: 16,
		},
		Fog: FogConfig{
			Mode:    "none",
			Start:   20,
			End:     120,
			Density: 0.02,
			Color:   [3]float32{0.55, 0.6, 0.7},
		},
		Bloom: BloomConfig{
			Enabled:   true,
			Threshold: 1,
			Knee:      0.5,
			Intensity: 0.3,
			Radius:    6,
		},
		SSAO: SSAOConfig{
			Enabled:   true,
			Radius:    0.5,
			Bias:      0.025,
			Intensity: 1,
			Samples:   16,
		},
		Shadow: ShadowConfig{
			MapSize:  2048,
			MaxSlots: 4,
			Extent:   25,
		},
		Audio: AudioConfig{
			Enabled:    true,
			Dir:        "sounds",
			SampleRate: 44100,
			Volume:     1,
			BufferSize: Duration{50 * time.Millisecond},
		},
		Scripts: ScriptsConfig{
			Dir: "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
