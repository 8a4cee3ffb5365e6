package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
width = 800

[bloom]
radius = 3

[engine]
max_frame_time = "250ms"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 720 {
		t.Fatalf("window = %+v", cfg.Window)
	}
	if cfg.Bloom.Radius != 3 || cfg.Bloom.Threshold != 1 {
		t.Fatalf("bloom = %+v", cfg.Bloom)
	}
	if cfg.Engine.MaxFrameTime.Duration != 250*time.Millisecond {
		t.Fatalf("max_frame_time = %v", cfg.Engine.MaxFrameTime)
	}
	if cfg.Engine.ProfileInterval.Duration != 5*time.Second {
		t.Fatalf("profile_interval = %v, want default", cfg.Engine.ProfileInterval)
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"bad duration":    "[engine]\nmax_frame_time = \"soon\"",
		"zero width":      "[window]\nwidth = 0",
		"negative radius": "[bloom]\nradius = -1",
		"fog reversed":    "[fog]\nstart = 10.0\nend = 5.0",
		"syntax":          "[window",
		"fog mode":        "[fog]\nmode = \"cubic\"",
		"too many slots":  "[shadow]\nmax_slots = 6",
		"negative slots":  "[shadow]\nmax_slots = -1",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatal("Parse succeeded")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy.toml")
	if err := os.WriteFile(path, []byte("[ssao]\nenabled = false\n[logging]\nformat = \"json\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SSAO.Enabled || cfg.Logging.Format != "json" {
		t.Fatalf("cfg = %+v %+v", cfg.SSAO, cfg.Logging)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("Load of a missing file succeeded")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}
