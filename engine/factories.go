package engine

import (
	"fmt"
	"math"
	"path/filepath"
	"reflect"

	"github.com/Carmen-Shannon/oxy-deferred/engine/asset"
	"github.com/Carmen-Shannon/oxy-deferred/engine/audio"
	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gameplay"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/physics"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/script"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

type primitiveKey struct {
	shape    string
	size     float32
	segments int
}

type materialEntry struct {
	material material.Material
	spec     materialSpec
}

type materialSpec struct {
	Name      string     `yaml:"material"`
	Color     [4]float32 `yaml:"color"`
	Emissive  [3]float32 `yaml:"emissive"`
	Metallic  float32    `yaml:"metallic"`
	Roughness *float32   `yaml:"roughness"`
	Unlit     bool       `yaml:"unlit"`
	Texture   string     `yaml:"texture"`
	NormalMap string     `yaml:"normal_map"`
}

type meshSpec struct {
	materialSpec `yaml:",inline"`
	Shape        string  `yaml:"shape"`
	Size         float32 `yaml:"size"`
	Segments     int     `yaml:"segments"`
}

type lightSpec struct {
	Kind      string      `yaml:"kind"`
	Color     *[3]float32 `yaml:"color"`
	Intensity *float32    `yaml:"intensity"`
	Range     float32     `yaml:"range"`
	Inner     float32     `yaml:"inner_cone"`
	Outer     float32     `yaml:"outer_cone"`
	Shadows   bool        `yaml:"shadows"`
}

type cameraSpec struct {
	Fov  float32 `yaml:"fov"` // degrees
	Near float32 `yaml:"near"`
	Far  float32 `yaml:"far"`
}

type orbitSpec struct {
	Target [3]float32 `yaml:"target"`
	Radius float32    `yaml:"radius"`
}

type colliderSpec struct {
	Min     [3]float32 `yaml:"min"`
	Max     [3]float32 `yaml:"max"`
	Mass    float32    `yaml:"mass"`
	Static  bool       `yaml:"static"`
	Trigger bool       `yaml:"trigger"`
	Gravity *float32   `yaml:"gravity_scale"`
}

type soundSpec struct {
	Sound       string   `yaml:"sound"`
	Volume      *float64 `yaml:"volume"`
	Loop        bool     `yaml:"loop"`
	Autoplay    bool     `yaml:"autoplay"`
	Spatial     *bool    `yaml:"spatial"`
	MaxDistance float32  `yaml:"max_distance"`
}

type actorSpec struct {
	Velocity []float32 `yaml:"velocity"`
	Angular  []float32 `yaml:"angular"` // degrees per second
	Script   string    `yaml:"script"`
	Lifetime float32   `yaml:"lifetime"`
	Player   float32   `yaml:"player_speed"`
	Follow   []float32 `yaml:"follow"`
	Speed    float32   `yaml:"speed"`
}

type modelSpec struct {
	Path string `yaml:"path"`
}

func (e *engine) Factories() scene.Factories {
	return scene.Factories{
		"mesh":     e.meshFactory,
		"light":    lightFactory,
		"camera":   e.cameraFactory,
		"orbit":    orbitFactory,
		"collider": colliderFactory,
		"sound":    soundFactory,
		"actor":    e.actorFactory,
		"model":    e.modelFactory,
	}
}

func (e *engine) meshFactory(node *yaml.Node) (any, error) {
	spec := meshSpec{Shape: "cube", Size: 1, Segments: 16}
	spec.Color = [4]float32{1, 1, 1, 1}
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	m, err := e.primitive(spec.Shape, spec.Size, spec.Segments)
	if err != nil {
		return nil, err
	}
	mat, err := e.material(spec.materialSpec)
	if err != nil {
		return nil, err
	}
	return mesh.NewRenderer(m, mat), nil
}

// primitive returns a shared mesh per shape and size so identical primitives coalesce into one draw call.
func (e *engine) primitive(shape string, size float32, segments int) (mesh.Mesh, error) {
	key := primitiveKey{shape: shape, size: size, segments: segments}
	if m, ok := e.primitives[key]; ok {
		return m, nil
	}
	var data *asset.MeshData
	switch shape {
	case "cube":
		data = asset.Cube(size)
	case "plane":
		data = asset.Plane(size, max(segments/4, 1))
	case "sphere":
		data = asset.Sphere(size/2, segments, max(segments/2, 2))
	default:
		return nil, fmt.Errorf("unknown mesh shape %q", shape)
	}
	m := data.Mesh()
	e.primitives[key] = m
	return m, nil
}

// material builds the material a mesh component describes. Named materials are shared; reusing a name with different
// parameters is an error.
func (e *engine) material(spec materialSpec) (material.Material, error) {
	if spec.Name != "" {
		if entry, ok := e.materials[spec.Name]; ok {
			if !reflect.DeepEqual(entry.spec, spec) {
				return nil, fmt.Errorf("material %q redefined with different parameters", spec.Name)
			}
			return entry.material, nil
		}
	}

	opts := []material.MaterialBuilderOption{
		material.WithName(spec.Name),
		material.WithBaseColor(spec.Color),
		material.WithEmissive(spec.Emissive),
		material.WithMetallic(spec.Metallic),
	}
	if spec.Roughness != nil {
		opts = append(opts, material.WithRoughness(*spec.Roughness))
	}
	var bits material.TypeBits
	if spec.Unlit {
		bits |= material.TypeUnlit
	}
	if spec.Emissive != ([3]float32{}) {
		bits |= material.TypeEmissive
	}
	if spec.Texture != "" || spec.NormalMap != "" {
		images, err := e.decodeImages(spec.Texture, spec.NormalMap)
		if err != nil {
			return nil, err
		}
		if img := images[0]; img != nil {
			opts = append(opts, material.WithDiffuseTexture(&img.Texture), material.WithSampler(img.Sampler))
		}
		if img := images[1]; img != nil {
			opts = append(opts, material.WithNormalTexture(&img.Texture))
			bits |= material.TypeNormalMapped
		}
	}
	opts = append(opts, material.WithTypeBits(bits))

	mat := material.NewMaterial(opts...)
	if spec.Name != "" {
		e.materials[spec.Name] = materialEntry{material: mat, spec: spec}
	}
	return mat, nil
}

// decodeImages decodes the non-empty paths on the preparer's worker pool. The result has one entry per path, nil for
// empty ones.
func (e *engine) decodeImages(paths ...string) ([]*asset.ImageData, error) {
	var reqs []asset.ImageRequest
	var slots []int
	for i, p := range paths {
		if p == "" {
			continue
		}
		reqs = append(reqs, asset.ImageRequest{Name: filepath.Base(p), Path: p})
		slots = append(slots, i)
	}
	decoded, err := e.preparer.DecodeImages(reqs)
	if err != nil {
		return nil, err
	}
	out := make([]*asset.ImageData, len(paths))
	for i, img := range decoded {
		out[slots[i]] = img
	}
	return out, nil
}

func lightFactory(node *yaml.Node) (any, error) {
	var spec lightSpec
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	var kind light.LightType
	switch spec.Kind {
	case "", "directional":
		kind = light.LightTypeDirectional
	case "point":
		kind = light.LightTypePoint
	case "spot":
		kind = light.LightTypeSpot
	default:
		return nil, fmt.Errorf("unknown light kind %q", spec.Kind)
	}
	opts := []light.LightBuilderOption{light.WithCastsShadows(spec.Shadows)}
	if spec.Color != nil {
		opts = append(opts, light.WithColor(spec.Color[0], spec.Color[1], spec.Color[2]))
	}
	if spec.Intensity != nil {
		opts = append(opts, light.WithIntensity(*spec.Intensity))
	}
	if spec.Range > 0 {
		opts = append(opts, light.WithRange(spec.Range))
	}
	if spec.Outer > 0 {
		opts = append(opts, light.WithSpotCone(spec.Inner, spec.Outer))
	}
	return light.NewLight(kind, opts...), nil
}

func (e *engine) cameraFactory(node *yaml.Node) (any, error) {
	spec := cameraSpec{Fov: 60, Near: 0.1, Far: 200}
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	opts := []camera.CameraBuilderOption{
		camera.WithFov(mgl32.DegToRad(spec.Fov)),
		camera.WithNear(spec.Near),
		camera.WithFar(spec.Far),
	}
	if e.height > 0 {
		opts = append(opts, camera.WithAspect(float32(e.width)/float32(e.height)))
	}
	return camera.NewCamera(opts...), nil
}

func orbitFactory(node *yaml.Node) (any, error) {
	spec := orbitSpec{Radius: 10}
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	return camera.NewOrbit(mgl32.Vec3(spec.Target), spec.Radius), nil
}

func colliderFactory(node *yaml.Node) (any, error) {
	spec := colliderSpec{Min: [3]float32{-0.5, -0.5, -0.5}, Max: [3]float32{0.5, 0.5, 0.5}, Mass: 1}
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	c := physics.NewCollider(physics.AABB{Min: mgl32.Vec3(spec.Min), Max: mgl32.Vec3(spec.Max)})
	c.Mass = spec.Mass
	c.Static = spec.Static
	c.Trigger = spec.Trigger
	if spec.Gravity != nil {
		c.GravityScale = *spec.Gravity
	}
	return c, nil
}

func soundFactory(node *yaml.Node) (any, error) {
	var spec soundSpec
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	if spec.Sound == "" {
		return nil, fmt.Errorf("sound component needs a sound id")
	}
	src := audio.NewSource(spec.Sound)
	src.Loop = spec.Loop
	src.Autoplay = spec.Autoplay
	if spec.Volume != nil {
		src.Volume = *spec.Volume
	}
	if spec.Spatial != nil {
		src.Spatial = *spec.Spatial
	}
	if spec.MaxDistance > 0 {
		src.MaxDistance = spec.MaxDistance
	}
	return src, nil
}

func (e *engine) actorFactory(node *yaml.Node) (any, error) {
	var spec actorSpec
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	actor := &gameplay.Actor{}
	if len(spec.Velocity) > 0 || len(spec.Angular) > 0 || spec.Player > 0 || len(spec.Follow) > 0 {
		v := &gameplay.Velocity{}
		if lin, ok := vec3(spec.Velocity); ok {
			v.Linear = lin
		}
		if ang, ok := vec3(spec.Angular); ok {
			v.Angular = ang.Mul(math.Pi / 180)
		}
		actor.Components = append(actor.Components, v)
	}
	if spec.Player > 0 {
		actor.Components = append(actor.Components, &gameplay.PlayerControl{Speed: spec.Player})
	}
	if target, ok := vec3(spec.Follow); ok {
		speed := spec.Speed
		if speed <= 0 {
			speed = 1
		}
		actor.Components = append(actor.Components, gameplay.NewPathFollower(target, speed))
	}
	if spec.Lifetime > 0 {
		actor.Components = append(actor.Components, &gameplay.Lifetime{Remaining: spec.Lifetime})
	}
	if spec.Script != "" {
		if e.scripts == nil {
			return nil, fmt.Errorf("actor script %q: scripts are disabled", spec.Script)
		}
		if !e.scripts.Has(spec.Script) {
			return nil, fmt.Errorf("actor script %q is not loaded", spec.Script)
		}
		actor.Components = append(actor.Components, &script.Script{Name: spec.Script})
	}
	return actor, nil
}

func (e *engine) modelFactory(node *yaml.Node) (any, error) {
	var spec modelSpec
	if err := node.Decode(&spec); err != nil {
		return nil, err
	}
	if spec.Path == "" {
		return nil, fmt.Errorf("model component needs a path")
	}
	m, ok := e.models3d[spec.Path]
	if !ok {
		var err error
		if m, err = asset.LoadGLTF(spec.Path, asset.WithPreparer(e.preparer)); err != nil {
			return nil, err
		}
		e.models3d[spec.Path] = m
	}
	return &modelInstance{model: m}, nil
}

func vec3(v []float32) (mgl32.Vec3, bool) {
	if len(v) != 3 {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{v[0], v[1], v[2]}, true
}

// modelInstance places a loaded model's node hierarchy under the node it is attached to.
type modelInstance struct {
	model *asset.Model
	root  scene.Node
}

func (m *modelInstance) Name() string {
	return "Model(" + m.model.Name + ")"
}

// modelSystem instantiates models when their component is attached. The instantiated nodes are children of the owning
// node, so they go away with it.
type modelSystem struct{}

var _ scene.NodeSystem = &modelSystem{}

func (s *modelSystem) ComponentType() reflect.Type {
	return reflect.TypeFor[*modelInstance]()
}

func (s *modelSystem) OnCreate(n scene.Node, c any) {
	m := c.(*modelInstance)
	m.root = m.model.Instantiate(n)
}

func (s *modelSystem) OnDestroy(_ scene.Node, c any) {
	m := c.(*modelInstance)
	if m.root.Valid() {
		m.root.Destroy()
	}
}
