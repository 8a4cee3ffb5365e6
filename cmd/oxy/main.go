// Command oxy opens a window, loads a scene description and runs it through the deferred renderer.
//
//	oxy -config oxy.toml -scene scenes/courtyard.yaml
//	oxy -scene scenes/courtyard.yaml -dump
//	oxy -profile cpu
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/audio"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logging"
	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/graph"
	"github.com/Carmen-Shannon/oxy-deferred/engine/script"
	"github.com/Carmen-Shannon/oxy-deferred/engine/window"
	"github.com/gopxl/beep"
	"github.com/pkg/profile"
	"go.uber.org/zap"
)

type options struct {
	config  string
	scene   string
	dump    bool
	profile string
}

func main() {
	var opts options
	flag.StringVar(&opts.config, "config", "", "TOML configuration file")
	flag.StringVar(&opts.scene, "scene", "", "scene description file, overrides engine.scene")
	flag.BoolVar(&opts.dump, "dump", false, "print the loaded scene tree and exit")
	flag.StringVar(&opts.profile, "profile", "", "write a pprof profile: cpu or mem")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "oxy:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg := config.Default()
	if opts.config != "" {
		loaded, err := config.Load(opts.config)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.scene != "" {
		cfg.Engine.Scene = opts.scene
	}
	if cfg.Engine.Scene == "" {
		return errors.New("no scene given, pass -scene or set engine.scene")
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	if opts.dump {
		return dump(cfg, log)
	}

	switch opts.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", opts.profile)
	}

	e, err := build(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			log.Warn("engine close", zap.Error(err))
		}
	}()

	if _, err := e.LoadScene(cfg.Engine.Scene); err != nil {
		return err
	}
	return e.Run()
}

// dump loads the scene into a headless engine and prints the tree.
func dump(cfg *config.Config, log *zap.Logger) error {
	e, err := engine.NewEngine(engine.WithLogger(log), engine.WithConfig(cfg), engine.WithScripts(script.NewSystem(script.WithLogger(log))))
	if err != nil {
		return err
	}
	defer e.Close()
	if _, err := e.LoadScene(cfg.Engine.Scene); err != nil {
		return err
	}
	return e.Scene().Dump(os.Stdout)
}

func build(cfg *config.Config, log *zap.Logger) (engine.Engine, error) {
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	if err != nil {
		return nil, err
	}

	presentMode := renderer.PresentModeVSync
	if !cfg.Window.VSync {
		presentMode = renderer.PresentModeUncapped
	}
	rendererOpts := []renderer.RendererBuilderOption{
		renderer.WithLogger(log),
		renderer.WithPresentMode(presentMode),
	}
	if cfg.Render.Timestamps {
		rendererOpts = append(rendererOpts, renderer.WithTimestampPairs(uint32(cfg.Render.TimestampPairs)))
	}
	r, err := renderer.NewRenderer(win, rendererOpts...)
	if err != nil {
		win.Close()
		return nil, err
	}

	engineOpts := []engine.EngineBuilderOption{
		engine.WithLogger(log),
		engine.WithConfig(cfg),
		engine.WithWindow(win),
		engine.WithScripts(script.NewSystem(script.WithLogger(log))),
	}

	graphOpts := append(engine.GraphOptions(cfg), graph.WithLogger(log))
	if cfg.Engine.ProfileInterval.Duration > 0 {
		prof := profiler.NewProfiler(profiler.WithLogger(log), profiler.WithInterval(cfg.Engine.ProfileInterval.Duration))
		graphOpts = append(graphOpts, graph.WithTimingRecorder(prof))
		engineOpts = append(engineOpts, engine.WithProfiler(prof))
	}
	g, err := graph.NewGraph(r, graphOpts...)
	if err != nil {
		win.Close()
		return nil, fmt.Errorf("build render graph: %w", err)
	}
	engineOpts = append(engineOpts, engine.WithGraph(g))

	if cfg.Audio.Enabled {
		if bank, out, ok := openAudio(cfg.Audio, log); ok {
			engineOpts = append(engineOpts, engine.WithAudio(bank, out))
		}
	}

	e, err := engine.NewEngine(engineOpts...)
	if err != nil {
		win.Close()
		return nil, err
	}
	return e, nil
}

// openAudio loads the sound directory and opens the speaker. A machine without an audio device runs silent.
func openAudio(cfg config.AudioConfig, log *zap.Logger) (*audio.Bank, audio.Output, bool) {
	rate := audio.DefaultSampleRate
	if cfg.SampleRate > 0 {
		rate = beep.SampleRate(cfg.SampleRate)
	}
	bank := audio.NewBank(rate)
	n, err := bank.LoadDir(cfg.Dir)
	if err != nil {
		log.Warn("sounds not loaded, audio disabled", zap.String("dir", cfg.Dir), zap.Error(err))
		return nil, nil, false
	}
	out, err := audio.NewSpeakerOutput(rate, cfg.BufferSize.Duration)
	if err != nil {
		log.Warn("no audio device, running silent", zap.Error(err))
		return nil, nil, false
	}
	log.Info("audio ready", zap.Int("sounds", n), zap.Int("rate", int(rate)))
	return bank, out, true
}
