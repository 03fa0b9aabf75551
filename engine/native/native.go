// Package native is a pure Go engine.Engine built on the standard library
// decoders, gen2brain/jpegn and x/image/bmp. It needs no cgo, which makes it
// the engine of choice where stb_image or OpenCV are not available.
//
// Buffers are Go allocations pinned in a table until released, so the
// ownership rules are the same as for the cgo engines.
package native

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"sync"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/gen2brain/jpegn"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/bmp"

	"github.com/kpfaulkner/stbi-go/engine"
	"github.com/kpfaulkner/stbi-go/format"
)

var (
	ErrUnknownFormat = errors.New("unknown image type")
	ErrUnsupported   = errors.New("format not supported by the native engine")
)

type Option func(e *Engine)

// WithLDRToHDR sets the gamma and scale used when 8-bit images are decoded
// as floats. Defaults are 2.2 and 1.
func WithLDRToHDR(gamma float32, scale float32) Option {
	return func(e *Engine) {
		e.ldrToHDRGamma = gamma
		e.ldrToHDRScale = scale
	}
}

// Engine is safe for concurrent use.
type Engine struct {
	mu   sync.Mutex
	live map[unsafe.Pointer]any

	ldrToHDRGamma float32
	ldrToHDRScale float32
}

func New(opts ...Option) *Engine {
	e := &Engine{
		live:          make(map[unsafe.Pointer]any),
		ldrToHDRGamma: 2.2,
		ldrToHDRScale: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) IsHDR(src engine.Source) bool {
	data, err := readSource(src)
	if err != nil {
		return false
	}
	return format.IsRadianceHDR(data)
}

func (e *Engine) FormatTag(buf []byte) int8 {
	return format.Sniff(buf)
}

func (e *Engine) DecodeUint8(src engine.Source, channels int) (engine.Allocation, error) {
	pix, alloc, err := e.decode(src, channels)
	if err != nil {
		return engine.Allocation{}, err
	}

	alloc.Ptr = unsafe.Pointer(&pix[0])
	e.pin(alloc.Ptr, pix)
	return alloc, nil
}

// DecodeFloat32 decodes to 8-bit samples and expands them the way stb_image
// does: colour channels through pow(v/255, gamma)*scale, alpha linearly.
func (e *Engine) DecodeFloat32(src engine.Source, channels int) (engine.Allocation, error) {
	pix, alloc, err := e.decode(src, channels)
	if err != nil {
		return engine.Allocation{}, err
	}

	colour := alloc.Channels
	if colour%2 == 0 {
		colour--
	}
	out := make([]float32, len(pix))
	for i, v := range pix {
		f := float32(v) / 255
		if i%alloc.Channels < colour {
			f = math32.Pow(f, e.ldrToHDRGamma) * e.ldrToHDRScale
		}
		out[i] = f
	}

	alloc.Ptr = unsafe.Pointer(&out[0])
	e.pin(alloc.Ptr, out)
	return alloc, nil
}

func (e *Engine) Release(ptr unsafe.Pointer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.live[ptr]; !ok {
		log.Errorf("native: release of unknown or already released buffer %p", ptr)
		return
	}
	delete(e.live, ptr)
}

// Outstanding is the number of buffers handed out and not yet released.
func (e *Engine) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

func (e *Engine) Info(src engine.Source) (engine.Info, error) {
	data, err := readSource(src)
	if err != nil {
		return engine.Info{}, err
	}

	var cfg image.Config
	switch format.Identify(format.Sniff(data)) {
	case format.JPEG:
		cfg, err = jpegn.DecodeConfig(bytes.NewReader(data))
	case format.PNG:
		cfg, err = png.DecodeConfig(bytes.NewReader(data))
	case format.GIF:
		cfg, err = gif.DecodeConfig(bytes.NewReader(data))
	case format.BMP:
		cfg, err = bmp.DecodeConfig(bytes.NewReader(data))
	default:
		return engine.Info{}, unsupported(data)
	}
	if err != nil {
		return engine.Info{}, err
	}
	return engine.Info{Width: cfg.Width, Height: cfg.Height, Channels: modelChannels(cfg.ColorModel)}, nil
}

func (e *Engine) pin(ptr unsafe.Pointer, backing any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.live[ptr] = backing
}

func (e *Engine) decode(src engine.Source, channels int) ([]uint8, engine.Allocation, error) {
	if channels < 0 || channels > 4 {
		return nil, engine.Allocation{}, errors.Errorf("bad req_comp %d", channels)
	}
	data, err := readSource(src)
	if err != nil {
		return nil, engine.Allocation{}, err
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, engine.Allocation{}, err
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, engine.Allocation{}, errors.New("image has no pixels")
	}

	n := imageChannels(img)
	out := channels
	if out == 0 {
		out = n
	}
	pix := interleave(img, n, out)

	return pix, engine.Allocation{
		Width:          b.Dx(),
		Height:         b.Dy(),
		Channels:       out,
		SourceChannels: n,
	}, nil
}

func decodeImage(data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format.Identify(format.Sniff(data)) {
	case format.JPEG:
		return jpegn.Decode(r)
	case format.PNG:
		return png.Decode(r)
	case format.GIF:
		return gif.Decode(r)
	case format.BMP:
		return bmp.Decode(r)
	}
	return nil, unsupported(data)
}

func unsupported(data []byte) error {
	f := format.Identify(format.Sniff(data))
	switch {
	case f == format.PSD || f == format.PIC:
		return errors.Wrap(ErrUnsupported, f.String())
	case format.IsRadianceHDR(data):
		return errors.Wrap(ErrUnsupported, "radiance HDR")
	}
	return ErrUnknownFormat
}

func readSource(src engine.Source) ([]byte, error) {
	if !src.IsPath() {
		return src.Bytes(), nil
	}
	f, err := os.Open(src.Path())
	if err != nil {
		return nil, errors.Wrap(err, "can't fopen")
	}
	defer f.Close()
	return io.ReadAll(f)
}

// imageChannels is the channel count the encoded image carries, judged from
// the decoded type. Greyscale with alpha decodes to NRGBA and so reports 4.
func imageChannels(img image.Image) int {
	if p, ok := img.(*image.Paletted); ok {
		return paletteChannels(p.Palette)
	}
	return modelChannels(img.ColorModel())
}

func modelChannels(m color.Model) int {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return 4
	}
	if p, ok := m.(color.Palette); ok {
		return paletteChannels(p)
	}
	return 3
}

func paletteChannels(p color.Palette) int {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xFFFF {
			return 4
		}
	}
	return 3
}

// interleave converts img into out channels per pixel, n being the image's
// own channel count. Colour to grey uses stb_image's integer luma weights.
func interleave(img image.Image, n int, out int) []uint8 {
	b := img.Bounds()
	pix := make([]uint8, b.Dx()*b.Dy()*out)
	grey := n <= 2

	pos := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			var luma uint8
			if grey {
				luma = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			} else {
				luma = uint8((uint32(c.R)*77 + uint32(c.G)*150 + uint32(c.B)*29) >> 8)
			}

			switch out {
			case 1:
				pix[pos] = luma
			case 2:
				pix[pos], pix[pos+1] = luma, c.A
			case 3:
				if grey {
					pix[pos], pix[pos+1], pix[pos+2] = luma, luma, luma
				} else {
					pix[pos], pix[pos+1], pix[pos+2] = c.R, c.G, c.B
				}
			case 4:
				if grey {
					pix[pos], pix[pos+1], pix[pos+2] = luma, luma, luma
				} else {
					pix[pos], pix[pos+1], pix[pos+2] = c.R, c.G, c.B
				}
				pix[pos+3] = c.A
			}
			pos += out
		}
	}
	return pix
}
