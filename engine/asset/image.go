package asset

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageData is a decoded RGBA image with the sampler it should be read with.
type ImageData struct {
	Name    string
	Texture common.TextureStagingData
	Sampler *common.SamplerStagingData
	// Format is the registered decoder name, e.g. "png" or "webp".
	Format string
}

type imageOptions struct {
	maxSize int
	sampler *common.SamplerStagingData
}

// ImageOption configures image decoding.
type ImageOption func(*imageOptions)

// WithMaxSize downscales images whose larger side exceeds size, keeping the aspect ratio.
//
// Parameters:
//   - size: the largest allowed side in pixels; zero disables scaling
//
// Returns:
//   - ImageOption: a function that applies the option
func WithMaxSize(size int) ImageOption {
	return func(o *imageOptions) {
		o.maxSize = size
	}
}

// WithImageSampler sets the sampler attached to decoded images. The default is common.LinearRepeatSampler.
//
// Parameters:
//   - s: the sampler configuration
//
// Returns:
//   - ImageOption: a function that applies the option
func WithImageSampler(s *common.SamplerStagingData) ImageOption {
	return func(o *imageOptions) {
		o.sampler = s
	}
}

// DecodeImage decodes a PNG, JPEG, BMP, TIFF or WebP stream into tightly packed RGBA8 pixels.
//
// Parameters:
//   - name: the image name used in errors
//   - r: the encoded image
//   - opts: variadic list of ImageOption functions
//
// Returns:
//   - *ImageData: the decoded image
//   - error: if the format is unknown or the data is corrupt
func DecodeImage(name string, r io.Reader, opts ...ImageOption) (*ImageData, error) {
	o := imageOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", name, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("decode image %s: empty image", name)
	}
	if o.maxSize > 0 && max(w, h) > o.maxSize {
		if w >= h {
			w, h = o.maxSize, max(1, h*o.maxSize/w)
		} else {
			w, h = max(1, w*o.maxSize/h), o.maxSize
		}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(rgba, rgba.Bounds(), src, bounds, draw.Src, nil)
	}

	sampler := o.sampler
	if sampler == nil {
		sampler = common.LinearRepeatSampler()
	}
	return &ImageData{
		Name: name,
		Texture: common.TextureStagingData{
			Pixels: rgba.Pix,
			Width:  uint32(w),
			Height: uint32(h),
		},
		Sampler: sampler,
		Format:  format,
	}, nil
}

// DecodeImageBytes decodes an in-memory image.
func DecodeImageBytes(name string, data []byte, opts ...ImageOption) (*ImageData, error) {
	return DecodeImage(name, bytes.NewReader(data), opts...)
}

// DecodeImageFile decodes the image at path. The path doubles as the image name.
func DecodeImageFile(path string, opts ...ImageOption) (*ImageData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()
	return DecodeImage(path, f, opts...)
}
