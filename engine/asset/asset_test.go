package asset

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"reflect"
	"testing"

	"github.com/Carmen-Shannon/oxy-deferred/engine/mesh"
	"github.com/Carmen-Shannon/oxy-deferred/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func checkWinding(t *testing.T, d *MeshData) {
	t.Helper()
	for i := 0; i+2 < len(d.Indices); i += 3 {
		a, b, c := d.Vertices[d.Indices[i]], d.Vertices[d.Indices[i+1]], d.Vertices[d.Indices[i+2]]
		p0 := mgl32.Vec3(a.Position)
		face := mgl32.Vec3(b.Position).Sub(p0).Cross(mgl32.Vec3(c.Position).Sub(p0))
		if face.Len() < 1e-9 {
			continue
		}
		if face.Dot(mgl32.Vec3(a.Normal)) <= 0 {
			t.Fatalf("%s triangle %d winds against its normal", d.Name, i/3)
		}
	}
}

func checkTangents(t *testing.T, d *MeshData) {
	t.Helper()
	for i, v := range d.Vertices {
		tan := mgl32.Vec3{v.Tangent[0], v.Tangent[1], v.Tangent[2]}
		if math.Abs(float64(tan.Len()-1)) > 1e-4 {
			t.Fatalf("%s vertex %d tangent length %f", d.Name, i, tan.Len())
		}
		if d := tan.Dot(mgl32.Vec3(v.Normal)); math.Abs(float64(d)) > 1e-4 {
			t.Fatalf("vertex %d tangent not perpendicular to normal: %f", i, d)
		}
		if v.Tangent[3] != 1 && v.Tangent[3] != -1 {
			t.Fatalf("vertex %d handedness %f", i, v.Tangent[3])
		}
	}
}

func TestPrimitives(t *testing.T) {
	cube := Cube(2)
	if len(cube.Vertices) != 24 || len(cube.Indices) != 36 {
		t.Fatalf("cube has %d vertices and %d indices", len(cube.Vertices), len(cube.Indices))
	}
	if b := cube.Bounds(); b.Min != (mgl32.Vec3{-1, -1, -1}) || b.Max != (mgl32.Vec3{1, 1, 1}) {
		t.Fatalf("cube bounds = %+v", b)
	}

	plane := Plane(4, 2)
	if len(plane.Vertices) != 9 || len(plane.Indices) != 24 {
		t.Fatalf("plane has %d vertices and %d indices", len(plane.Vertices), len(plane.Indices))
	}

	sphere := Sphere(1, 12, 8)
	for i, v := range sphere.Vertices {
		if l := mgl32.Vec3(v.Position).Len(); math.Abs(float64(l-1)) > 1e-5 {
			t.Fatalf("sphere vertex %d at radius %f", i, l)
		}
	}

	for _, d := range []*MeshData{cube, plane, sphere} {
		if !d.HasTangents {
			t.Fatalf("%s reports no tangents", d.Name)
		}
		checkWinding(t, d)
		checkTangents(t, d)
		if m := d.Mesh(); m.IndexCount() != len(d.Indices) || !m.HasTangents() {
			t.Fatalf("%s engine mesh mismatch", d.Name)
		}
	}
}

func TestGenerateNormalsFlatQuad(t *testing.T) {
	v := []mesh.GPUVertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{1, 1, 0}},
		{Position: [3]float32{0, 1, 0}},
		{Position: [3]float32{5, 5, 5}},
	}
	GenerateNormals(v, []uint32{0, 1, 2, 0, 2, 3})
	for i := 0; i < 4; i++ {
		if v[i].Normal != [3]float32{0, 0, 1} {
			t.Fatalf("vertex %d normal = %v", i, v[i].Normal)
		}
	}
	if v[4].Normal != [3]float32{0, 1, 0} {
		t.Fatalf("unreferenced vertex normal = %v, want +Y", v[4].Normal)
	}
}

func testImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	return img
}

func TestDecodeImageFormats(t *testing.T) {
	src := testImage(4, 3)
	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, src) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, src) },
		"tiff": func(b *bytes.Buffer) error { return tiff.Encode(b, src, nil) },
	}
	for format, encode := range encoders {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := encode(&buf); err != nil {
				t.Fatal(err)
			}
			img, err := DecodeImage("test", &buf)
			if err != nil {
				t.Fatal(err)
			}
			if img.Format != format {
				t.Fatalf("format = %q", img.Format)
			}
			tex := img.Texture
			if tex.Width != 4 || tex.Height != 3 || len(tex.Pixels) != 4*3*4 {
				t.Fatalf("decoded %dx%d with %d bytes", tex.Width, tex.Height, len(tex.Pixels))
			}
			// pixel (2,1)
			px := tex.Pixels[(1*4+2)*4 : (1*4+2)*4+4]
			if !bytes.Equal(px, []byte{80, 40, 200, 255}) {
				t.Fatalf("pixel = %v", px)
			}
			if img.Sampler == nil {
				t.Fatal("no default sampler")
			}
		})
	}
}

func TestDecodeImageMaxSize(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(64, 16)); err != nil {
		t.Fatal(err)
	}
	img, err := DecodeImage("big", &buf, WithMaxSize(16))
	if err != nil {
		t.Fatal(err)
	}
	if img.Texture.Width != 16 || img.Texture.Height != 4 {
		t.Fatalf("scaled to %dx%d, want 16x4", img.Texture.Width, img.Texture.Height)
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	if _, err := DecodeImageBytes("junk", []byte("not an image")); err == nil {
		t.Fatal("garbage decoded without error")
	}
}

func TestPreparerKeepsOrderAndJoinsErrors(t *testing.T) {
	var a, b bytes.Buffer
	if err := png.Encode(&a, testImage(2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(&b, testImage(3, 1)); err != nil {
		t.Fatal(err)
	}
	p := NewPreparer(WithWorkers(2))
	out, err := p.DecodeImages([]ImageRequest{
		{Name: "a", Data: a.Bytes()},
		{Name: "bad", Data: []byte{1, 2, 3}},
		{Name: "b", Data: b.Bytes()},
		{Name: "missing", Path: "does/not/exist.png"},
	})
	if err == nil {
		t.Fatal("expected joined error")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 2 {
		t.Fatalf("err = %v, want two joined failures", err)
	}
	if out[0] == nil || out[0].Texture.Width != 2 || out[2] == nil || out[2].Texture.Width != 3 {
		t.Fatal("successful decodes not returned in request order")
	}
	if out[1] != nil || out[3] != nil {
		t.Fatal("failed decodes returned images")
	}
}

// gltfTriangle returns the JSON document and binary buffer of a one-triangle model with a child node.
func gltfTriangle(t *testing.T, bufferURI string) ([]byte, []byte) {
	t.Helper()
	var bin bytes.Buffer
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		binary.Write(&bin, binary.LittleEndian, f)
	}
	for _, i := range []uint16{0, 1, 2} {
		binary.Write(&bin, binary.LittleEndian, i)
	}
	bin.Write([]byte{0, 0})

	buffer := map[string]any{"byteLength": bin.Len()}
	if bufferURI != "" {
		buffer["uri"] = bufferURI + base64.StdEncoding.EncodeToString(bin.Bytes())
	}
	doc := map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"nodes": []int{0}}},
		"nodes": []any{
			map[string]any{"name": "body", "translation": []float32{0, 2, 0}, "children": []int{1}},
			map[string]any{"name": "tri", "mesh": 0, "scale": []float32{2, 2, 2}},
		},
		"meshes": []any{map[string]any{
			"name": "triangle",
			"primitives": []any{map[string]any{
				"attributes": map[string]int{"POSITION": 0},
				"indices":    1,
				"material":   0,
			}},
		}},
		"materials": []any{map[string]any{
			"name":                 "red",
			"pbrMetallicRoughness": map[string]any{"baseColorFactor": []float32{1, 0, 0, 1}, "metallicFactor": 0},
		}},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": gltfFloat, "count": 3, "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": gltfUnsignedShort, "count": 3, "type": "SCALAR"},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": 36},
			map[string]any{"buffer": 0, "byteOffset": 36, "byteLength": 6},
		},
		"buffers": []any{buffer},
	}
	js, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	return js, bin.Bytes()
}

func glb(jsonChunk, binChunk []byte) []byte {
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	var out bytes.Buffer
	total := 12 + 8 + len(jsonChunk) + 8 + len(binChunk)
	binary.Write(&out, binary.LittleEndian, [3]uint32{glbMagic, glbVersion, uint32(total)})
	binary.Write(&out, binary.LittleEndian, [2]uint32{uint32(len(jsonChunk)), glbChunkJSON})
	out.Write(jsonChunk)
	binary.Write(&out, binary.LittleEndian, [2]uint32{uint32(len(binChunk)), glbChunkBIN})
	out.Write(binChunk)
	return out.Bytes()
}

func checkTriangleModel(t *testing.T, m *Model) {
	t.Helper()
	if len(m.Meshes) != 1 || len(m.Meshes[0].Primitives) != 1 {
		t.Fatalf("meshes = %+v", m.Meshes)
	}
	prim := m.Meshes[0].Primitives[0]
	if prim.Vertices[1].Position != [3]float32{1, 0, 0} || !reflect.DeepEqual(prim.Indices, []uint32{0, 1, 2}) {
		t.Fatalf("primitive = %+v", prim)
	}
	if prim.Vertices[0].Normal != [3]float32{0, 0, 1} {
		t.Fatalf("generated normal = %v", prim.Vertices[0].Normal)
	}
	if prim.MaterialIndex != 0 || m.Materials[0].BaseColor != [4]float32{1, 0, 0, 1} || m.Materials[0].Metallic != 0 {
		t.Fatalf("material = %+v", m.Materials[0])
	}
	if len(m.Roots) != 1 || m.Nodes[0].Translation != (mgl32.Vec3{0, 2, 0}) {
		t.Fatalf("nodes = %+v roots = %v", m.Nodes, m.Roots)
	}
}

func TestLoadGLTFEmbeddedBuffer(t *testing.T) {
	js, _ := gltfTriangle(t, "data:application/octet-stream;base64,")
	m, err := LoadGLTFBytes("tri", js, "")
	if err != nil {
		t.Fatal(err)
	}
	checkTriangleModel(t, m)
}

func TestLoadGLB(t *testing.T) {
	js, bin := gltfTriangle(t, "")
	m, err := LoadGLTFBytes("tri", glb(js, bin), "")
	if err != nil {
		t.Fatal(err)
	}
	checkTriangleModel(t, m)
}

func TestLoadGLTFErrors(t *testing.T) {
	cases := map[string][]byte{
		"version": []byte(`{"asset":{"version":"1.0"}}`),
		"json":    []byte(`{"asset":`),
		"glb":     {0x67, 0x6C, 0x54, 0x46, 9, 0, 0, 0, 0, 0, 0, 0},
		"buffer":  []byte(`{"asset":{"version":"2.0"},"buffers":[{"byteLength":4}]}`),
	}
	for name, data := range cases {
		if _, err := LoadGLTFBytes(name, data, ""); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestInstantiateSharesMeshesAcrossInstances(t *testing.T) {
	js, _ := gltfTriangle(t, "data:application/octet-stream;base64,")
	m, err := LoadGLTFBytes("tri", js, "")
	if err != nil {
		t.Fatal(err)
	}
	s := scene.NewScene()
	sys := mesh.NewSystem(nil)
	s.AddSystem(sys)

	first := m.Instantiate(s.Root())
	m.Instantiate(s.Root())
	s.Propagate()

	if first.Name() != "tri" {
		t.Fatalf("model root name = %q", first.Name())
	}
	tri, ok := first.FindChild(func(n scene.Node) bool { return n.Name() == "tri" }, 0)
	if !ok {
		t.Fatal("mesh node not instantiated")
	}
	if got := tri.Global().Col(3).Vec3(); got != (mgl32.Vec3{0, 2, 0}) {
		t.Fatalf("mesh node position = %v", got)
	}
	list := sys.Rebuild()
	if len(list.Calls) != 1 || list.Calls[0].InstanceCount != 2 {
		t.Fatalf("calls = %+v, want one call with two instances", list.Calls)
	}
}

func TestDecomposeMatrix(t *testing.T) {
	q := mgl32.QuatRotate(0.7, mgl32.Vec3{0, 1, 0})
	m := mgl32.Translate3D(1, 2, 3).Mul4(q.Mat4()).Mul4(mgl32.Scale3D(2, 3, 4))
	tr, rot, sc := decompose(m)
	if !tr.ApproxEqual(mgl32.Vec3{1, 2, 3}) || !sc.ApproxEqualThreshold(mgl32.Vec3{2, 3, 4}, 1e-5) {
		t.Fatalf("t = %v s = %v", tr, sc)
	}
	if !rot.ApproxEqualThreshold(q, 1e-5) && !rot.ApproxEqualThreshold(q.Scale(-1), 1e-5) {
		t.Fatalf("rotation = %v, want %v", rot, q)
	}
}
