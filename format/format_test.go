package format

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {

	for _, tc := range []struct {
		name     string
		tag      int8
		expected ImageFormat
	}{
		{name: "jpeg", tag: 0, expected: JPEG},
		{name: "png", tag: 1, expected: PNG},
		{name: "bmp", tag: 2, expected: BMP},
		{name: "gif", tag: 3, expected: GIF},
		{name: "psd", tag: 4, expected: PSD},
		{name: "pic", tag: 5, expected: PIC},
		{name: "six", tag: 6, expected: Unknown},
		{name: "99", tag: 99, expected: Unknown},
		{name: "negative", tag: -1, expected: Unknown},
		{name: "min", tag: math.MinInt8, expected: Unknown},
		{name: "max", tag: math.MaxInt8, expected: Unknown},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Identify(tc.tag))
		})
	}
}

func TestIdentifyTotal(t *testing.T) {
	for tag := math.MinInt8; tag <= math.MaxInt8; tag++ {
		f := Identify(int8(tag))
		if tag >= 0 && tag <= 5 {
			assert.Equal(t, ImageFormat(tag), f)
		} else {
			assert.Equal(t, Unknown, f, "tag %d", tag)
		}
	}
}

func TestSniff(t *testing.T) {

	bmp := make([]byte, 54)
	bmp[0], bmp[1] = 'B', 'M'
	bmp[14] = 40

	pic := make([]byte, 92)
	copy(pic, picSignature)
	copy(pic[picTagOffset:], "PICT")

	for _, tc := range []struct {
		name     string
		data     []byte
		expected ImageFormat
	}{
		{name: "empty", data: nil, expected: Unknown},
		{name: "garbage", data: []byte("not an image at all"), expected: Unknown},
		{name: "jpeg", data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, expected: JPEG},
		{name: "png", data: append([]byte{}, pngSignature...), expected: PNG},
		{name: "truncated png", data: pngSignature[:4], expected: Unknown},
		{name: "bmp", data: bmp, expected: BMP},
		{name: "bm without dib header", data: []byte("BM"), expected: Unknown},
		{name: "gif87", data: []byte("GIF87a...."), expected: GIF},
		{name: "gif89", data: []byte("GIF89a...."), expected: GIF},
		{name: "gif bad version", data: []byte("GIF88a"), expected: Unknown},
		{name: "psd", data: []byte("8BPS\x00\x01"), expected: PSD},
		{name: "pic", data: pic, expected: PIC},
		{name: "pic short", data: picSignature, expected: Unknown},
		{name: "radiance is not a sniffed format", data: []byte("#?RADIANCE\n"), expected: Unknown},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Identify(Sniff(tc.data)))
		})
	}
}

func TestIsRadianceHDR(t *testing.T) {
	assert.True(t, IsRadianceHDR([]byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n")))
	assert.True(t, IsRadianceHDR([]byte("#?RGBE\n")))
	assert.False(t, IsRadianceHDR([]byte("#?RADIANCE")))
	assert.False(t, IsRadianceHDR(nil))
}

func TestString(t *testing.T) {
	assert.Equal(t, "PNG", PNG.String())
	assert.Equal(t, "Unknown", Unknown.String())
	assert.Equal(t, "Unknown", ImageFormat(42).String())
}
