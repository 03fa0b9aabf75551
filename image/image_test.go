package image

import (
	stdimage "image"
	"image/color"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImage(t *testing.T) {

	for _, tc := range []struct {
		name      string
		width     int
		height    int
		depth     int
		dataLen   int
		expectErr bool
	}{
		{name: "rgb", width: 3, height: 2, depth: 3, dataLen: 18},
		{name: "grey 1x1", width: 1, height: 1, depth: 1, dataLen: 1},
		{name: "short buffer", width: 3, height: 2, depth: 3, dataLen: 17, expectErr: true},
		{name: "long buffer", width: 3, height: 2, depth: 3, dataLen: 19, expectErr: true},
		{name: "zero width", width: 0, height: 2, depth: 3, dataLen: 0, expectErr: true},
		{name: "negative depth", width: 1, height: 1, depth: -1, dataLen: 0, expectErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img, err := NewImage(tc.width, tc.height, tc.depth, make([]uint8, tc.dataLen))
			if tc.expectErr {
				assert.Error(t, err)
				assert.Nil(t, img)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.width, img.Width())
			assert.Equal(t, tc.height, img.Height())
			assert.Equal(t, tc.depth, img.Depth())
			assert.Equal(t, img.Width()*img.Height()*img.Depth(), img.Len())
		})
	}
}

func TestNewImageShapeMismatchIs(t *testing.T) {
	_, err := NewImage(2, 2, 1, make([]float32, 3))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestSampleCountOverflow(t *testing.T) {
	_, err := SampleCount(math.MaxInt, math.MaxInt, 4)
	assert.Error(t, err)

	_, err = SampleCount(math.MaxInt/2, 3, 1)
	assert.Error(t, err)

	n, err := SampleCount(1<<16, 1<<16, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1)<<34, n)
}

func TestPixel(t *testing.T) {
	data := []uint8{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	img, err := NewImage(2, 2, 3, data)
	require.NoError(t, err)

	assert.Equal(t, []uint8{1, 2, 3}, img.Pixel(0, 0))
	assert.Equal(t, []uint8{10, 11, 12}, img.Pixel(1, 1))
	assert.Equal(t, 6, img.Stride())
	assert.False(t, img.HasAlpha())
	assert.Panics(t, func() { img.Pixel(2, 0) })
}

func TestEquals(t *testing.T) {
	a, _ := NewImage(2, 1, 1, []float32{0.5, 1.5})
	b, _ := NewImage(2, 1, 1, []float32{0.5, 1.5})
	c, _ := NewImage(1, 2, 1, []float32{0.5, 1.5})
	d, _ := NewImage(2, 1, 1, []float32{0.5, 2.5})

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(d))
	assert.False(t, a.Equals(nil))
}

func TestSplit(t *testing.T) {
	u8, _ := NewImage(1, 1, 1, []uint8{7})
	f32, _ := NewImage(1, 1, 1, []float32{7})

	gotU8, gotF32, err := Split(u8)
	assert.Same(t, u8, gotU8)
	assert.Nil(t, gotF32)
	assert.NoError(t, err)

	gotU8, gotF32, err = Split(f32)
	assert.Nil(t, gotU8)
	assert.Same(t, f32, gotF32)
	assert.NoError(t, err)

	_, _, err = Split(NewErrorResult(errors.New("boom")))
	assert.EqualError(t, err, "boom")

	_, _, err = Split(nil)
	assert.Error(t, err)
}

func TestErrorResult(t *testing.T) {
	cause := errors.New("integer decode failed")
	res := NewErrorResult(cause)
	assert.Equal(t, "integer decode failed", res.Message())
	assert.True(t, errors.Is(res, cause))
	assert.Equal(t, "unknown error", (&ErrorResult{}).Message())
}

func TestToImageU8(t *testing.T) {

	for _, tc := range []struct {
		name     string
		depth    int
		data     []uint8
		expected color.Color
	}{
		{name: "grey", depth: 1, data: []uint8{10, 20}, expected: color.Gray{Y: 20}},
		{name: "grey alpha", depth: 2, data: []uint8{10, 1, 20, 2}, expected: color.NRGBA{R: 20, G: 20, B: 20, A: 2}},
		{name: "rgb", depth: 3, data: []uint8{1, 2, 3, 4, 5, 6}, expected: color.NRGBA{R: 4, G: 5, B: 6, A: 255}},
		{name: "rgba", depth: 4, data: []uint8{1, 2, 3, 4, 5, 6, 7, 8}, expected: color.NRGBA{R: 5, G: 6, B: 7, A: 8}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			src, err := NewImage(2, 1, tc.depth, tc.data)
			require.NoError(t, err)

			img, err := ToImage(src)
			require.NoError(t, err)
			assert.Equal(t, stdimage.Rect(0, 0, 2, 1), img.Bounds())
			assert.Equal(t, tc.expected, img.At(1, 0))
		})
	}
}

func TestToImageF32(t *testing.T) {
	src, err := NewImage(3, 1, 4, []float32{
		0, 0, 0, 1,
		1, 1, 1, 0.5,
		4, -1, float32(math.NaN()), 0,
	})
	require.NoError(t, err)

	img, err := ToImage(src)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA64{R: 0, G: 0, B: 0, A: 0xFFFF}, img.At(0, 0))
	assert.Equal(t, color.NRGBA64{R: 0xFFFF, G: 0xFFFF, B: 0xFFFF, A: 0x8000}, img.At(1, 0))
	assert.Equal(t, color.NRGBA64{R: 0xFFFF, G: 0, B: 0, A: 0}, img.At(2, 0))
}

func TestToImageF32Grey(t *testing.T) {
	src, err := NewImage(1, 1, 1, []float32{0.5})
	require.NoError(t, err)

	img, err := ToImageWithToneMap(src, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, color.Gray16{Y: 0x8000}, img.At(0, 0))

	_, err = ToImageWithToneMap(src, 0, 1)
	assert.Error(t, err)
}

func TestToImageErrorResult(t *testing.T) {
	_, err := ToImage(NewErrorResult(errors.New("stbi_load failed")))
	assert.EqualError(t, err, "stbi_load failed")

	_, err = ToImage(nil)
	assert.Error(t, err)
}
