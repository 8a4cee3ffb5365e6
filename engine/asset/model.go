package asset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/Carmen-Shannon/oxy-deferred/engine/transform"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// TextureRef points at a decoded image of a Model and the sampler to read it with.
type TextureRef struct {
	Image   int
	Sampler *common.SamplerStagingData
}

// MaterialData is a metallic-roughness material read from a model file.
type MaterialData struct {
	Name      string
	BaseColor [4]float32
	Emissive  [3]float32
	Metallic  float32
	Roughness float32

	BaseColorTexture         *TextureRef
	NormalTexture            *TextureRef
	MetallicRoughnessTexture *TextureRef
}

// MeshGroup is one model mesh: a list of primitives, each with its own material.
type MeshGroup struct {
	Name       string
	Primitives []*MeshData
}

// NodeData is one node of a model's hierarchy.
type NodeData struct {
	Name        string
	Mesh        int
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
	Children    []int
}

// Model is a decoded glTF asset. Engine meshes and materials are created on first instantiation and shared by every
// instance, so repeated instances batch into the same draw calls.
type Model struct {
	Name      string
	Meshes    []MeshGroup
	Materials []MaterialData
	Images    []*ImageData
	Nodes     []NodeData
	Roots     []int

	meshes    map[*MeshData]mesh.Mesh
	materials []material.Material
	fallback  material.Material
}

type loadOptions struct {
	preparer *Preparer
	images   []ImageOption
}

// LoadOption configures model loading.
type LoadOption func(*loadOptions)

// WithPreparer decodes the model's images on p instead of a private preparer.
func WithPreparer(p *Preparer) LoadOption {
	return func(o *loadOptions) {
		o.preparer = p
	}
}

// WithModelImageOptions applies image options to every texture of the model.
func WithModelImageOptions(opts ...ImageOption) LoadOption {
	return func(o *loadOptions) {
		o.images = append(o.images, opts...)
	}
}

// LoadGLTF loads a .gltf or .glb file.
//
// Parameters:
//   - path: the model file
//   - opts: variadic list of LoadOption functions
//
// Returns:
//   - *Model: the decoded model
//   - error: if the file cannot be read or is malformed
func LoadGLTF(path string, opts ...LoadOption) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return LoadGLTFBytes(name, data, filepath.Dir(path), opts...)
}

// LoadGLTFBytes loads an in-memory .gltf or .glb document. External buffers and images resolve against baseDir.
//
// Parameters:
//   - name: the model name
//   - data: the document bytes
//   - baseDir: the directory external references are relative to
//   - opts: variadic list of LoadOption functions
//
// Returns:
//   - *Model: the decoded model
//   - error: if the document is malformed
func LoadGLTFBytes(name string, data []byte, baseDir string, opts ...LoadOption) (*Model, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.preparer == nil {
		o.preparer = NewPreparer()
	}

	f, err := parseGLTF(data, baseDir)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}

	m := &Model{Name: name}
	for i := range f.doc.Meshes {
		g, err := f.meshGroup(i)
		if err != nil {
			return nil, fmt.Errorf("model %s: mesh %d: %w", name, i, err)
		}
		m.Meshes = append(m.Meshes, g)
	}
	if err := m.readImages(f, o); err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	for i := range f.doc.Materials {
		mat, err := f.material(i)
		if err != nil {
			return nil, fmt.Errorf("model %s: material %d: %w", name, i, err)
		}
		m.Materials = append(m.Materials, mat)
	}
	if err := m.readNodes(f); err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}
	return m, nil
}

func (f *gltfFile) meshGroup(i int) (MeshGroup, error) {
	gm := &f.doc.Meshes[i]
	g := MeshGroup{Name: gm.Name}
	if g.Name == "" {
		g.Name = fmt.Sprintf("mesh_%d", i)
	}
	for p := range gm.Primitives {
		d, err := f.primitive(&gm.Primitives[p])
		if err != nil {
			return g, fmt.Errorf("primitive %d: %w", p, err)
		}
		d.Name = g.Name
		if len(gm.Primitives) > 1 {
			d.Name = fmt.Sprintf("%s_%d", g.Name, p)
		}
		g.Primitives = append(g.Primitives, d)
	}
	return g, nil
}

func (f *gltfFile) primitive(prim *gltfPrimitive) (*MeshData, error) {
	if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
		return nil, fmt.Errorf("primitive mode %d, only triangles are supported", *prim.Mode)
	}
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	pos, n, err := f.readFloats(posIdx)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	if n != 3 {
		return nil, fmt.Errorf("positions have %d components, want 3", n)
	}
	count := len(pos) / 3
	d := &MeshData{Vertices: make([]mesh.GPUVertex, count), MaterialIndex: -1}
	for k := range d.Vertices {
		d.Vertices[k].Position = [3]float32(pos[k*3 : k*3+3])
		d.Vertices[k].Color = [4]float32{1, 1, 1, 1}
	}

	// COLOR_0 may be RGB; alpha then keeps its default of 1
	read := func(name string, want int, set func(v *mesh.GPUVertex, c []float32)) (bool, error) {
		idx, ok := prim.Attributes[name]
		if !ok {
			return false, nil
		}
		vals, n, err := f.readFloats(idx)
		if err != nil {
			return false, fmt.Errorf("%s: %w", strings.ToLower(name), err)
		}
		if n != want && !(name == "COLOR_0" && n == 3) {
			return false, fmt.Errorf("%s has %d components, want %d", strings.ToLower(name), n, want)
		}
		for k := 0; k < count && (k+1)*n <= len(vals); k++ {
			set(&d.Vertices[k], vals[k*n:(k+1)*n])
		}
		return true, nil
	}

	hasNormals, err := read("NORMAL", 3, func(v *mesh.GPUVertex, c []float32) { copy(v.Normal[:], c) })
	if err != nil {
		return nil, err
	}
	if _, err := read("TEXCOORD_0", 2, func(v *mesh.GPUVertex, c []float32) { copy(v.TexCoord[:], c) }); err != nil {
		return nil, err
	}
	if _, err := read("COLOR_0", 4, func(v *mesh.GPUVertex, c []float32) { copy(v.Color[:], c) }); err != nil {
		return nil, err
	}
	hasTangents, err := read("TANGENT", 4, func(v *mesh.GPUVertex, c []float32) { copy(v.Tangent[:], c) })
	if err != nil {
		return nil, err
	}

	if prim.Indices != nil {
		if d.Indices, err = f.readIndices(*prim.Indices); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		for _, idx := range d.Indices {
			if int(idx) >= count {
				return nil, fmt.Errorf("index %d out of range for %d vertices", idx, count)
			}
		}
	} else {
		d.Indices = make([]uint32, count)
		for k := range d.Indices {
			d.Indices[k] = uint32(k)
		}
	}

	if !hasNormals {
		GenerateNormals(d.Vertices, d.Indices)
	}
	if !hasTangents {
		GenerateTangents(d.Vertices, d.Indices)
	}
	d.HasTangents = true
	if prim.Material != nil {
		d.MaterialIndex = *prim.Material
	}
	return d, nil
}

func (m *Model) readImages(f *gltfFile, o loadOptions) error {
	reqs := make([]ImageRequest, len(f.doc.Images))
	for i, img := range f.doc.Images {
		reqs[i] = ImageRequest{Name: img.Name, Options: o.images}
		if reqs[i].Name == "" {
			reqs[i].Name = fmt.Sprintf("%s_image_%d", m.Name, i)
		}
		switch {
		case img.BufferView != nil:
			data, err := f.bufferView(*img.BufferView)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			reqs[i].Data = data
		case img.URI != "":
			data, _, err := f.readURI(img.URI)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			reqs[i].Data = data
		default:
			return fmt.Errorf("image %d has neither a buffer view nor a uri", i)
		}
	}
	if len(reqs) == 0 {
		return nil
	}
	images, err := o.preparer.DecodeImages(reqs)
	if err != nil {
		return err
	}
	m.Images = images
	return nil
}

func (f *gltfFile) material(i int) (MaterialData, error) {
	gm := &f.doc.Materials[i]
	d := MaterialData{
		Name:      gm.Name,
		BaseColor: [4]float32{1, 1, 1, 1},
		Metallic:  1,
		Roughness: 1,
	}
	if d.Name == "" {
		d.Name = fmt.Sprintf("material_%d", i)
	}
	if gm.EmissiveFactor != nil {
		d.Emissive = *gm.EmissiveFactor
	}
	var err error
	if pbr := gm.PBR; pbr != nil {
		if pbr.BaseColorFactor != nil {
			d.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			d.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			d.Roughness = *pbr.RoughnessFactor
		}
		if d.BaseColorTexture, err = f.texture(pbr.BaseColorTexture); err != nil {
			return d, fmt.Errorf("base color texture: %w", err)
		}
		if d.MetallicRoughnessTexture, err = f.texture(pbr.MetallicRoughnessTexture); err != nil {
			return d, fmt.Errorf("metallic-roughness texture: %w", err)
		}
	}
	if d.NormalTexture, err = f.texture(gm.NormalTexture); err != nil {
		return d, fmt.Errorf("normal texture: %w", err)
	}
	return d, nil
}

func (f *gltfFile) texture(info *gltfTextureInfo) (*TextureRef, error) {
	if info == nil {
		return nil, nil
	}
	if info.Index < 0 || info.Index >= len(f.doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", info.Index)
	}
	t := f.doc.Textures[info.Index]
	if t.Source == nil {
		return nil, nil
	}
	if *t.Source < 0 || *t.Source >= len(f.doc.Images) {
		return nil, fmt.Errorf("image %d out of range", *t.Source)
	}
	ref := &TextureRef{Image: *t.Source, Sampler: common.LinearRepeatSampler()}
	if t.Sampler != nil && *t.Sampler >= 0 && *t.Sampler < len(f.doc.Samplers) {
		ref.Sampler = samplerData(&f.doc.Samplers[*t.Sampler])
	}
	return ref, nil
}

// samplerData converts a glTF sampler, falling back to linear filtering and repeat wrapping for unset fields.
func samplerData(s *gltfSampler) *common.SamplerStagingData {
	out := common.LinearRepeatSampler()
	if s.MagFilter != nil && *s.MagFilter == gltfNearest {
		out.MagFilter = wgpu.FilterModeNearest
	}
	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfNearest, gltfNearestMipmapNearest, gltfNearestMipmapLinear:
			out.MinFilter = wgpu.FilterModeNearest
		}
		switch *s.MinFilter {
		case gltfNearest, gltfLinear, gltfNearestMipmapNearest, gltfLinearMipmapNearest:
			out.MipmapFilter = wgpu.MipmapFilterModeNearest
		}
	}
	if s.WrapS != nil {
		out.AddressModeU = addressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		out.AddressModeV = addressMode(*s.WrapT)
	}
	return out
}

func addressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	}
	return wgpu.AddressModeRepeat
}

func (m *Model) readNodes(f *gltfFile) error {
	m.Nodes = make([]NodeData, len(f.doc.Nodes))
	hasParent := make([]bool, len(f.doc.Nodes))
	for i, gn := range f.doc.Nodes {
		n := NodeData{
			Name:     gn.Name,
			Mesh:     -1,
			Rotation: mgl32.QuatIdent(),
			Scale:    mgl32.Vec3{1, 1, 1},
			Children: gn.Children,
		}
		if n.Name == "" {
			n.Name = fmt.Sprintf("node_%d", i)
		}
		if gn.Mesh != nil {
			if *gn.Mesh < 0 || *gn.Mesh >= len(m.Meshes) {
				return fmt.Errorf("node %d: mesh %d out of range", i, *gn.Mesh)
			}
			n.Mesh = *gn.Mesh
		}
		switch {
		case gn.Matrix != nil:
			n.Translation, n.Rotation, n.Scale = decompose(mgl32.Mat4(*gn.Matrix))
		default:
			if gn.Translation != nil {
				n.Translation = *gn.Translation
			}
			if r := gn.Rotation; r != nil {
				n.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
			}
			if gn.Scale != nil {
				n.Scale = *gn.Scale
			}
		}
		for _, c := range gn.Children {
			if c < 0 || c >= len(f.doc.Nodes) || hasParent[c] {
				return fmt.Errorf("node %d: child %d is out of range or already parented", i, c)
			}
			hasParent[c] = true
		}
		m.Nodes[i] = n
	}

	if s := f.defaultScene(); s != nil {
		m.Roots = append(m.Roots, s.Nodes...)
		return nil
	}
	for i := range m.Nodes {
		if !hasParent[i] {
			m.Roots = append(m.Roots, i)
		}
	}
	return nil
}

func (f *gltfFile) defaultScene() *gltfScene {
	if len(f.doc.Scenes) == 0 {
		return nil
	}
	if f.doc.Scene != nil && *f.doc.Scene >= 0 && *f.doc.Scene < len(f.doc.Scenes) {
		return &f.doc.Scenes[*f.doc.Scene]
	}
	return &f.doc.Scenes[0]
}

// decompose splits an affine TRS matrix. Shear is discarded.
func decompose(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	t := m.Col(3).Vec3()
	s := mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
	r := mgl32.Ident4()
	for c := 0; c < 3; c++ {
		if s[c] == 0 {
			continue
		}
		col := m.Col(c).Vec3().Mul(1 / s[c])
		r.SetCol(c, col.Vec4(0))
	}
	return t, mgl32.Mat4ToQuat(r).Normalize(), s
}

// Instantiate builds the model's node hierarchy under parent and attaches a mesh.Renderer for every primitive.
//
// Parameters:
//   - parent: the node the model root is attached to
//
// Returns:
//   - scene.Node: the model root, named after the model
func (m *Model) Instantiate(parent scene.Node) scene.Node {
	root := parent.NewChild(m.Name)
	for _, i := range m.Roots {
		m.instantiate(root, i)
	}
	return root
}

func (m *Model) instantiate(parent scene.Node, i int) {
	nd := &m.Nodes[i]
	n := parent.NewChild(nd.Name,
		transform.WithTranslation(nd.Translation[0], nd.Translation[1], nd.Translation[2]),
		transform.WithRotation(nd.Rotation),
		transform.WithScale(nd.Scale[0], nd.Scale[1], nd.Scale[2]),
	)
	if nd.Mesh >= 0 {
		for _, prim := range m.Meshes[nd.Mesh].Primitives {
			n.AddComponent(mesh.NewRenderer(m.engineMesh(prim), m.engineMaterial(prim.MaterialIndex)))
		}
	}
	for _, c := range nd.Children {
		m.instantiate(n, c)
	}
}

func (m *Model) engineMesh(d *MeshData) mesh.Mesh {
	if m.meshes == nil {
		m.meshes = make(map[*MeshData]mesh.Mesh)
	}
	if em, ok := m.meshes[d]; ok {
		return em
	}
	em := d.Mesh()
	m.meshes[d] = em
	return em
}

func (m *Model) engineMaterial(i int) material.Material {
	if i < 0 || i >= len(m.Materials) {
		if m.fallback == nil {
			m.fallback = material.NewMaterial(material.WithName(m.Name + "_default"))
		}
		return m.fallback
	}
	if m.materials == nil {
		m.materials = make([]material.Material, len(m.Materials))
	}
	if m.materials[i] == nil {
		m.materials[i] = m.Materials[i].Material(m.Images)
	}
	return m.materials[i]
}

// Material creates the engine material, resolving texture references against images.
//
// Parameters:
//   - images: the decoded images of the owning model
//
// Returns:
//   - material.Material: the new material
func (d *MaterialData) Material(images []*ImageData) material.Material {
	opts := []material.MaterialBuilderOption{
		material.WithName(d.Name),
		material.WithBaseColor(d.BaseColor),
		material.WithMetallic(d.Metallic),
		material.WithRoughness(d.Roughness),
		material.WithEmissive(d.Emissive),
	}
	tex := func(ref *TextureRef) *common.TextureStagingData {
		if ref == nil || ref.Image < 0 || ref.Image >= len(images) || images[ref.Image] == nil {
			return nil
		}
		return &images[ref.Image].Texture
	}
	if t := tex(d.BaseColorTexture); t != nil {
		opts = append(opts, material.WithDiffuseTexture(t), material.WithSampler(d.BaseColorTexture.Sampler))
	}
	if t := tex(d.NormalTexture); t != nil {
		opts = append(opts, material.WithNormalTexture(t))
	}
	if t := tex(d.MetallicRoughnessTexture); t != nil {
		opts = append(opts, material.WithMetallicRoughnessTexture(t))
	}
	return material.NewMaterial(opts...)
}
