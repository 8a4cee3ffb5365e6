package scene

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// ErrUnknownComponentType is returned when a scene description names a component type with no registered factory.
var ErrUnknownComponentType = errors.New("unknown component type")

// ComponentFactory builds a component from its YAML mapping. The mapping still contains the "type" key.
type ComponentFactory func(node *yaml.Node) (any, error)

// Factories maps component type names used in scene descriptions to their factories.
type Factories map[string]ComponentFactory

type sceneFile struct {
	Nodes []nodeDesc `yaml:"nodes"`
}

type nodeDesc struct {
	Name        string      `yaml:"name"`
	Translation []float32   `yaml:"translation"`
	Rotation    []float32   `yaml:"rotation"`
	Scale       []float32   `yaml:"scale"`
	Components  []yaml.Node `yaml:"components"`
	Children    []nodeDesc  `yaml:"children"`
}

type componentHeader struct {
	Type string `yaml:"type"`
}

// LoadYAMLFile reads a scene description from path and attaches its nodes under parent.
//
// Parameters:
//   - path: the scene description file
//   - parent: the node to attach top-level nodes to
//   - factories: component factories by type name
//
// Returns:
//   - []Node: the created top-level nodes
//   - error: read, parse or component construction errors
func LoadYAMLFile(path string, parent Node, factories Factories) ([]Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene %s: %w", path, err)
	}
	defer f.Close()

	nodes, err := LoadYAML(f, parent, factories)
	if err != nil {
		return nodes, fmt.Errorf("load scene %s: %w", path, err)
	}
	return nodes, nil
}

// LoadYAML decodes a scene description from r and attaches its nodes under parent. Nodes built before an error stay attached.
//
// Parameters:
//   - r: the YAML source
//   - parent: the node to attach top-level nodes to
//   - factories: component factories by type name
//
// Returns:
//   - []Node: the created top-level nodes
//   - error: parse or component construction errors
func LoadYAML(r io.Reader, parent Node, factories Factories) ([]Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	var f sceneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}

	out := make([]Node, 0, len(f.Nodes))
	for i := range f.Nodes {
		n, err := buildNode(&f.Nodes[i], parent, factories)
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, nil
}

func buildNode(d *nodeDesc, parent Node, factories Factories) (Node, error) {
	opts := make([]transform.TransformBuilderOption, 0, 3)
	if v, ok := vec3(d.Translation); ok {
		opts = append(opts, transform.WithTranslation(v[0], v[1], v[2]))
	}
	if v, ok := vec3(d.Rotation); ok {
		opts = append(opts, transform.WithEuler(mgl32.DegToRad(v[0]), mgl32.DegToRad(v[1]), mgl32.DegToRad(v[2])))
	}
	if v, ok := vec3(d.Scale); ok {
		opts = append(opts, transform.WithScale(v[0], v[1], v[2]))
	}

	n := parent.NewChild(d.Name, opts...)
	for i := range d.Components {
		c, err := buildComponent(&d.Components[i], factories)
		if err != nil {
			return n, fmt.Errorf("node %q: %w", d.Name, err)
		}
		n.AddComponent(c)
	}
	for i := range d.Children {
		if _, err := buildNode(&d.Children[i], n, factories); err != nil {
			return n, err
		}
	}
	return n, nil
}

func buildComponent(node *yaml.Node, factories Factories) (any, error) {
	var h componentHeader
	if err := node.Decode(&h); err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	factory, ok := factories[h.Type]
	if !ok {
		return nil, fmt.Errorf("line %d: %w %q", node.Line, ErrUnknownComponentType, h.Type)
	}
	c, err := factory(node)
	if err != nil {
		return nil, fmt.Errorf("line %d: component %s: %w", node.Line, h.Type, err)
	}
	return c, nil
}

func vec3(v []float32) (mgl32.Vec3, bool) {
	if len(v) != 3 {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{v[0], v[1], v[2]}, true
}
