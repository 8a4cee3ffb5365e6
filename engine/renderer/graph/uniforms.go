package graph

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/engine/input"
)

const (
	ssaoUniformSize  = 16 + MaxSSAOSamples*16
	bloomUniformSize = 16 + 8*16
	skyUniformSize   = 64
	postUniformSize  = 48
)

// uniformWriter appends little-endian 32-bit values to a fixed buffer.
type uniformWriter struct {
	buf []byte
	off int
}

func newUniformWriter(size int) *uniformWriter {
	return &uniformWriter{buf: make([]byte, size)}
}

func (w *uniformWriter) f32(vs ...float32) *uniformWriter {
	for _, v := range vs {
		binary.LittleEndian.PutUint32(w.buf[w.off:], math.Float32bits(v))
		w.off += 4
	}
	return w
}

func (w *uniformWriter) u32(v uint32) *uniformWriter {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
	return w
}

func ssaoSampleCount(s SSAO) int {
	return min(max(s.Samples, 1), MaxSSAOSamples)
}

// ssaoUniform matches SSAOParams in ssao.wgsl.
func ssaoUniform(s SSAO) []byte {
	w := newUniformWriter(ssaoUniformSize)
	w.f32(s.Radius, s.Bias, s.Intensity).u32(uint32(ssaoSampleCount(s)))
	for _, k := range ssaoKernel(MaxSSAOSamples) {
		w.f32(k[0], k[1], k[2], 0)
	}
	return w.buf
}

func bloomRadius(b Bloom) int {
	return min(max(b.Radius, 0), MaxBloomRadius)
}

// bloomUniform matches BloomParams in bloom.wgsl. Only the center tap and one side of the symmetric kernel are stored.
func bloomUniform(b Bloom) []byte {
	radius := bloomRadius(b)
	kernel := GaussianKernel(radius)
	w := newUniformWriter(bloomUniformSize)
	w.f32(b.Threshold, max(b.Knee, 0)).u32(uint32(radius)).f32(0)
	w.f32(kernel[radius:]...)
	return w.buf
}

// skyUniform matches SkyParams in sky.wgsl.
func skyUniform(s Sky, sun [3]float32) []byte {
	w := newUniformWriter(skyUniformSize)
	w.f32(s.Zenith[:]...).f32(s.SunSize)
	w.f32(s.Horizon[:]...).f32(s.SunIntensity)
	w.f32(s.Ground[:]...).f32(0)
	w.f32(sun[:]...).f32(0)
	return w.buf
}

// postUniform matches PostParams in postprocess.wgsl.
func postUniform(fog Fog, exposure, bloomIntensity float32, debug input.DebugMode) []byte {
	w := newUniformWriter(postUniformSize)
	w.f32(fog.Color[:]...).f32(fog.Density)
	w.f32(fog.Start, fog.End, exposure, bloomIntensity)
	w.u32(uint32(debug)).u32(uint32(fog.Mode))
	return w.buf
}
