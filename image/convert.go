package image

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/kpfaulkner/stbi-go/util"
)

// Default tone mapping applied when float samples are turned into integer
// samples. These match stb_image's hdr-to-ldr defaults.
const (
	DefaultGamma float32 = 2.2
	DefaultScale float32 = 1.0
)

// ToImage converts a successful LoadResult to a standard library image.Image.
// 8-bit images map to Gray or NRGBA; float images are tone mapped with the
// default gamma and scale into Gray16 or NRGBA64.
func ToImage(res LoadResult) (image.Image, error) {
	return ToImageWithToneMap(res, DefaultGamma, DefaultScale)
}

// ToImageWithToneMap is ToImage with an explicit gamma and scale for float
// images. Alpha channels are never gamma corrected.
func ToImageWithToneMap(res LoadResult, gamma float32, scale float32) (image.Image, error) {
	switch r := res.(type) {
	case *ImageU8:
		return u8ToImage(r)
	case *ImageF32:
		if gamma <= 0 {
			return nil, errors.Errorf("invalid gamma %v", gamma)
		}
		return f32ToImage(r, gamma, scale)
	case *ErrorResult:
		return nil, r
	}
	return nil, errors.New("nil load result")
}

func u8ToImage(src *ImageU8) (image.Image, error) {
	rect := image.Rect(0, 0, src.width, src.height)
	data := src.data

	switch src.depth {
	case 1:
		img := image.NewGray(rect)
		for y := 0; y < src.height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+src.width], data[y*src.width:(y+1)*src.width])
		}
		return img, nil
	case 2, 3, 4:
		img := image.NewNRGBA(rect)
		pos := 0
		for y := 0; y < src.height; y++ {
			row := img.Pix[y*img.Stride:]
			for x := 0; x < src.width; x++ {
				p := row[x*4 : x*4+4]
				switch src.depth {
				case 2:
					p[0], p[1], p[2], p[3] = data[pos], data[pos], data[pos], data[pos+1]
				case 3:
					p[0], p[1], p[2], p[3] = data[pos], data[pos+1], data[pos+2], 0xFF
				case 4:
					copy(p, data[pos:pos+4])
				}
				pos += src.depth
			}
		}
		return img, nil
	}
	return nil, errors.Errorf("unsupported depth %d", src.depth)
}

func f32ToImage(src *ImageF32, gamma float32, scale float32) (image.Image, error) {
	rect := image.Rect(0, 0, src.width, src.height)
	invGamma := 1 / gamma
	data := src.data

	toneMap := func(v float32) uint16 {
		v = math32.Pow(util.Clamp(v*scale, 0, 1), invGamma)
		return uint16(util.Clamp(v*65535+0.5, 0, 65535))
	}
	linear := func(v float32) uint16 {
		return uint16(util.Clamp(v, 0, 1)*65535 + 0.5)
	}

	switch src.depth {
	case 1:
		img := image.NewGray16(rect)
		for y := 0; y < src.height; y++ {
			for x := 0; x < src.width; x++ {
				img.SetGray16(x, y, color.Gray16{Y: toneMap(data[y*src.width+x])})
			}
		}
		return img, nil
	case 2, 3, 4:
		img := image.NewNRGBA64(rect)
		pos := 0
		for y := 0; y < src.height; y++ {
			for x := 0; x < src.width; x++ {
				var c color.NRGBA64
				switch src.depth {
				case 2:
					g := toneMap(data[pos])
					c = color.NRGBA64{R: g, G: g, B: g, A: linear(data[pos+1])}
				case 3:
					c = color.NRGBA64{R: toneMap(data[pos]), G: toneMap(data[pos+1]), B: toneMap(data[pos+2]), A: 0xFFFF}
				case 4:
					c = color.NRGBA64{R: toneMap(data[pos]), G: toneMap(data[pos+1]), B: toneMap(data[pos+2]), A: linear(data[pos+3])}
				}
				img.SetNRGBA64(x, y, c)
				pos += src.depth
			}
		}
		return img, nil
	}
	return nil, errors.Errorf("unsupported depth %d", src.depth)
}
