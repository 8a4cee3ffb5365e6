// Command oxy-inspect loads a scene description the way oxy does and shows the resulting node tree in the terminal.
//
//	oxy-inspect scenes/courtyard.yaml
//
// Arrow keys, j/k, PgUp/PgDn, Home/End scroll. c toggles component lists. q or Esc quits.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/engine"
	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/Carmen-Shannon/oxy-deferred/engine/script"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "TOML configuration file, for the script directory")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: oxy-inspect [-config oxy.toml] scene.yaml")
		os.Exit(2)
	}

	lines, err := load(*configPath, flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "oxy-inspect:", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintln(os.Stderr, "oxy-inspect:", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "oxy-inspect:", err)
		os.Exit(1)
	}
	defer screen.Fini()

	newViewer(screen, flag.Arg(0), lines).run()
}

// load builds the scene in a headless engine so every component goes through the real factories.
func load(configPath, scenePath string) ([]string, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	log := zap.NewNop()
	e, err := engine.NewEngine(engine.WithLogger(log), engine.WithConfig(cfg), engine.WithScripts(script.NewSystem()))
	if err != nil {
		return nil, err
	}
	defer e.Close()

	if _, err := e.LoadScene(scenePath); err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimRight(e.Scene().DumpString(), "\n"), "\n"), nil
}
