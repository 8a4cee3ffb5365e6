package asset

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errGLTFVersion    = errors.New("unsupported glTF version, want 2.x")
	errGLBHeader      = errors.New("invalid GLB header")
	errGLBNoJSON      = errors.New("GLB has no JSON chunk")
	errBufferTooSmall = errors.New("buffer smaller than declared length")
)

type gltfFile struct {
	doc     gltfDocument
	baseDir string
}

// parseGLTF reads a .gltf JSON document or a .glb container. External buffers resolve against baseDir.
func parseGLTF(data []byte, baseDir string) (*gltfFile, error) {
	f := &gltfFile{baseDir: baseDir}
	var bin []byte
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic {
		var err error
		data, bin, err = splitGLB(data)
		if err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal(data, &f.doc); err != nil {
		return nil, fmt.Errorf("parse glTF json: %w", err)
	}
	if !strings.HasPrefix(f.doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w: %q", errGLTFVersion, f.doc.Asset.Version)
	}
	if err := f.loadBuffers(bin); err != nil {
		return nil, err
	}
	return f, nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	r := bytes.NewReader(data)
	var header struct{ Magic, Version, Length uint32 }
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errGLBHeader, err)
	}
	if header.Magic != glbMagic || header.Version != glbVersion {
		return nil, nil, errGLBHeader
	}
	for {
		var chunk struct{ Length, Type uint32 }
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read GLB chunk header: %w", err)
		}
		body := make([]byte, chunk.Length)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, nil, fmt.Errorf("read GLB chunk: %w", err)
		}
		switch chunk.Type {
		case glbChunkJSON:
			jsonChunk = body
		case glbChunkBIN:
			binChunk = body
		}
	}
	if jsonChunk == nil {
		return nil, nil, errGLBNoJSON
	}
	return jsonChunk, binChunk, nil
}

func (f *gltfFile) loadBuffers(bin []byte) error {
	for i := range f.doc.Buffers {
		b := &f.doc.Buffers[i]
		switch {
		case b.URI == "" && i == 0 && bin != nil:
			b.data = bin
		case b.URI == "":
			return fmt.Errorf("buffer %d has no uri and no GLB binary chunk", i)
		default:
			data, _, err := f.readURI(b.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			b.data = data
		}
		if len(b.data) < b.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferTooSmall)
		}
	}
	return nil
}

// readURI resolves a data: URI or a path relative to the document.
func (f *gltfFile) readURI(uri string) ([]byte, string, error) {
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", errors.New("malformed data uri")
		}
		mime, isBase64 := strings.CutSuffix(header, ";base64")
		if !isBase64 {
			return nil, "", fmt.Errorf("unsupported data uri encoding %q", header)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decode data uri: %w", err)
		}
		return data, mime, nil
	}
	data, err := os.ReadFile(filepath.Join(f.baseDir, filepath.FromSlash(uri)))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", uri, err)
	}
	return data, "", nil
}

// bufferView returns the raw bytes of a buffer view.
func (f *gltfFile) bufferView(i int) ([]byte, error) {
	if i < 0 || i >= len(f.doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range", i)
	}
	bv := &f.doc.BufferViews[i]
	if bv.Buffer < 0 || bv.Buffer >= len(f.doc.Buffers) {
		return nil, fmt.Errorf("buffer view %d: buffer %d out of range", i, bv.Buffer)
	}
	data := f.doc.Buffers[bv.Buffer].data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, fmt.Errorf("buffer view %d exceeds its buffer", i)
	}
	return data[bv.ByteOffset:end], nil
}

func componentCount(accessorType string) int {
	switch accessorType {
	case "SCALAR":
		return 1
	case "VEC2":
		return 2
	case "VEC3":
		return 3
	case "VEC4", "MAT2":
		return 4
	case "MAT3":
		return 9
	case "MAT4":
		return 16
	}
	return 0
}

func componentSize(componentType int) int {
	switch componentType {
	case gltfByte, gltfUnsignedByte:
		return 1
	case gltfShort, gltfUnsignedShort:
		return 2
	case gltfUnsignedInt, gltfFloat:
		return 4
	}
	return 0
}

// elements calls fn with the bytes of every element of accessor i.
func (f *gltfFile) elements(i int, fn func(k int, elem []byte)) (*gltfAccessor, error) {
	if i < 0 || i >= len(f.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", i)
	}
	acc := &f.doc.Accessors[i]
	if acc.Sparse != nil {
		return nil, fmt.Errorf("accessor %d: sparse accessors are not supported", i)
	}
	if acc.BufferView == nil {
		return nil, fmt.Errorf("accessor %d has no buffer view", i)
	}
	view, err := f.bufferView(*acc.BufferView)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", i, err)
	}
	size := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if size == 0 {
		return nil, fmt.Errorf("accessor %d: unsupported layout %s/%d", i, acc.Type, acc.ComponentType)
	}
	stride := size
	if bv := f.doc.BufferViews[*acc.BufferView]; bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	for k := 0; k < acc.Count; k++ {
		off := acc.ByteOffset + k*stride
		if off+size > len(view) {
			return nil, fmt.Errorf("accessor %d: element %d exceeds its buffer view", i, k)
		}
		fn(k, view[off:off+size])
	}
	return acc, nil
}

// readFloats reads accessor i as float vectors of its declared width. Integer components are converted, normalized ones to
// [0,1] or [-1,1].
func (f *gltfFile) readFloats(i int) ([]float32, int, error) {
	if i < 0 || i >= len(f.doc.Accessors) {
		return nil, 0, fmt.Errorf("accessor %d out of range", i)
	}
	acc := f.doc.Accessors[i]
	n := componentCount(acc.Type)
	out := make([]float32, 0, acc.Count*n)
	cs := componentSize(acc.ComponentType)
	_, err := f.elements(i, func(_ int, elem []byte) {
		for c := 0; c < n; c++ {
			out = append(out, component(elem[c*cs:], acc.ComponentType, acc.Normalized))
		}
	})
	if err != nil {
		return nil, 0, err
	}
	return out, n, nil
}

func component(b []byte, componentType int, normalized bool) float32 {
	switch componentType {
	case gltfFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case gltfUnsignedByte:
		if normalized {
			return float32(b[0]) / 255
		}
		return float32(b[0])
	case gltfByte:
		if normalized {
			return max(float32(int8(b[0]))/127, -1)
		}
		return float32(int8(b[0]))
	case gltfUnsignedShort:
		v := binary.LittleEndian.Uint16(b)
		if normalized {
			return float32(v) / 65535
		}
		return float32(v)
	case gltfShort:
		v := int16(binary.LittleEndian.Uint16(b))
		if normalized {
			return max(float32(v)/32767, -1)
		}
		return float32(v)
	case gltfUnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

// readIndices reads a scalar unsigned integer accessor.
func (f *gltfFile) readIndices(i int) ([]uint32, error) {
	if i < 0 || i >= len(f.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", i)
	}
	acc := f.doc.Accessors[i]
	if acc.Type != "SCALAR" {
		return nil, fmt.Errorf("index accessor %d is %s, want SCALAR", i, acc.Type)
	}
	out := make([]uint32, acc.Count)
	var read func(b []byte) uint32
	switch acc.ComponentType {
	case gltfUnsignedByte:
		read = func(b []byte) uint32 { return uint32(b[0]) }
	case gltfUnsignedShort:
		read = func(b []byte) uint32 { return uint32(binary.LittleEndian.Uint16(b)) }
	case gltfUnsignedInt:
		read = binary.LittleEndian.Uint32
	default:
		return nil, fmt.Errorf("index accessor %d has component type %d", i, acc.ComponentType)
	}
	if _, err := f.elements(i, func(k int, elem []byte) { out[k] = read(elem) }); err != nil {
		return nil, err
	}
	return out, nil
}
