package graph

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// GaussianKernel returns the 2*radius+1 weights of a discrete Gaussian with sigma = radius/2, normalized to sum to 1.
// Index radius is the center tap. A radius below 1 yields the identity kernel.
//
// Parameters:
//   - radius: the kernel radius in taps
//
// Returns:
//   - []float32: the normalized weights
func GaussianKernel(radius int) []float32 {
	if radius < 1 {
		return []float32{1}
	}
	sigma := float64(radius) / 2
	raw := make([]float64, 2*radius+1)
	var sum float64
	for i := range raw {
		x := float64(i - radius)
		raw[i] = math.Exp(-x * x / (2 * sigma * sigma))
		sum += raw[i]
	}
	weights := make([]float32, len(raw))
	for i, w := range raw {
		weights[i] = float32(w / sum)
	}
	return weights
}

// ssaoKernel returns n sample offsets in the +Z unit hemisphere, denser near the origin. The sequence is seeded so every
// run samples the same pattern.
func ssaoKernel(n int) []mgl32.Vec3 {
	rng := rand.New(rand.NewPCG(0x55a0, 0x1234))
	kernel := make([]mgl32.Vec3, n)
	for i := range kernel {
		v := mgl32.Vec3{
			rng.Float32()*2 - 1,
			rng.Float32()*2 - 1,
			rng.Float32(),
		}
		if v.Len() < 1e-4 {
			v = mgl32.Vec3{0, 0, 1}
		}
		v = v.Normalize().Mul(rng.Float32())
		scale := float32(i) / float32(n)
		v = v.Mul(0.1 + 0.9*scale*scale)
		kernel[i] = v
	}
	return kernel
}
