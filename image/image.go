package image

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Sample is the element type of a decoded pixel buffer: 8-bit samples for
// conventional images, float32 for high dynamic range ones.
type Sample interface {
	~uint8 | ~float32
}

// ErrShapeMismatch is returned when a buffer's length does not match the
// dimensions it is meant to describe.
var ErrShapeMismatch = errors.New("buffer length does not match width*height*depth")

// Image is a decoded, interleaved pixel buffer. Samples are stored row by row,
// with Depth samples per pixel. len(Data()) == Width()*Height()*Depth() always
// holds; an Image can only be built through NewImage.
type Image[T Sample] struct {
	width  int
	height int
	depth  int
	data   []T
}

// ImageU8 is an image with 8-bit samples.
type ImageU8 = Image[uint8]

// ImageF32 is an image with floating point samples.
type ImageF32 = Image[float32]

// NewImage wraps data as an Image. data is retained, not copied.
func NewImage[T Sample](width int, height int, depth int, data []T) (*Image[T], error) {
	n, err := SampleCount(width, height, depth)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != n {
		return nil, errors.Wrapf(ErrShapeMismatch, "%dx%dx%d needs %d samples, got %d", width, height, depth, n, len(data))
	}
	return &Image[T]{
		width:  width,
		height: height,
		depth:  depth,
		data:   data,
	}, nil
}

// SampleCount returns width*height*depth, failing on non-positive dimensions
// or if the product does not fit in an int64.
func SampleCount(width int, height int, depth int) (int64, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return 0, errors.Errorf("invalid dimensions %dx%dx%d", width, height, depth)
	}
	hi, pixels := bits.Mul64(uint64(width), uint64(height))
	if hi != 0 {
		return 0, errors.Errorf("dimensions %dx%d overflow", width, height)
	}
	hi, total := bits.Mul64(pixels, uint64(depth))
	if hi != 0 || total > uint64(maxInt) {
		return 0, errors.Errorf("dimensions %dx%dx%d overflow", width, height, depth)
	}
	return int64(total), nil
}

const maxInt = int(^uint(0) >> 1)

func (img *Image[T]) Width() int {
	return img.width
}

func (img *Image[T]) Height() int {
	return img.height
}

// Depth is the number of channels per pixel: 1 grey, 2 grey+alpha, 3 RGB,
// 4 RGBA.
func (img *Image[T]) Depth() int {
	return img.depth
}

// Data returns the interleaved samples. The slice is shared with the image
// and must be treated as read only.
func (img *Image[T]) Data() []T {
	return img.data
}

func (img *Image[T]) Len() int {
	return len(img.data)
}

// Stride is the number of samples in one row.
func (img *Image[T]) Stride() int {
	return img.width * img.depth
}

// Pixel returns the Depth() samples of the pixel at (x, y). It panics if the
// coordinates are out of range, as slice indexing does.
func (img *Image[T]) Pixel(x int, y int) []T {
	if x < 0 || x >= img.width || y < 0 || y >= img.height {
		panic(errors.Errorf("pixel (%d,%d) out of range %dx%d", x, y, img.width, img.height))
	}
	off := y*img.Stride() + x*img.depth
	return img.data[off : off+img.depth : off+img.depth]
}

// HasAlpha reports whether the last channel is alpha, which is the case for
// grey+alpha and RGBA images.
func (img *Image[T]) HasAlpha() bool {
	return img.depth == 2 || img.depth == 4
}

// Equals compares shape and every sample.
func (img *Image[T]) Equals(other *Image[T]) bool {
	if img == nil || other == nil {
		return img == other
	}
	if img.width != other.width || img.height != other.height || img.depth != other.depth {
		return false
	}
	for i := range img.data {
		if img.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

func (img *Image[T]) isLoadResult() {}
