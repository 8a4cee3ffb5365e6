package scene

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

const testSceneYAML = `
nodes:
  - name: player
    translation: [1, 0, 0]
    components:
      - type: mesh
        name: hero
    children:
      - name: lamp
        translation: [0, 2, 0]
        scale: [2, 2, 2]
        components:
          - type: light
  - name: floor
    rotation: [-90, 0, 0]
`

func testFactories() Factories {
	return Factories{
		"mesh": func(node *yaml.Node) (any, error) {
			var p struct {
				Name string `yaml:"name"`
			}
			if err := node.Decode(&p); err != nil {
				return nil, err
			}
			return &meshComp{name: p.Name}, nil
		},
		"light": func(node *yaml.Node) (any, error) { return &lightComp{}, nil },
	}
}

func TestLoadYAML(t *testing.T) {
	s, _ := newTestScene(t)
	nodes, err := LoadYAML(strings.NewReader(testSceneYAML), s.Root(), testFactories())
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("top-level nodes = %d, want 2", len(nodes))
	}

	player := nodes[0]
	m, ok := player.Components()[0].(*meshComp)
	if !ok || m.name != "hero" {
		t.Fatalf("player component = %#v", player.Components()[0])
	}

	lamp, ok := player.FindChild(func(n Node) bool { return n.Name() == "lamp" }, 1)
	if !ok {
		t.Fatal("lamp not attached under player")
	}
	s.Propagate()
	if got := lamp.Global().Col(3).Vec3(); got != (mgl32.Vec3{1, 2, 0}) {
		t.Fatalf("lamp global translation = %v, want (1,2,0)", got)
	}
	if got := lamp.Transform().Scale(); got != (mgl32.Vec3{2, 2, 2}) {
		t.Fatalf("lamp scale = %v", got)
	}
}

func TestLoadYAMLUnknownComponent(t *testing.T) {
	s, _ := newTestScene(t)
	src := "nodes:\n  - name: a\n    components:\n      - type: teleporter\n"
	_, err := LoadYAML(strings.NewReader(src), s.Root(), testFactories())
	if !errors.Is(err, ErrUnknownComponentType) {
		t.Fatalf("err = %v, want ErrUnknownComponentType", err)
	}
}

func TestLoadYAMLMalformed(t *testing.T) {
	s, _ := newTestScene(t)
	if _, err := LoadYAML(strings.NewReader("nodes: [\n"), s.Root(), nil); err == nil {
		t.Fatal("expected parse error")
	}
}
