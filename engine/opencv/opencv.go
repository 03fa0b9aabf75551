//go:build opencv

// Package opencv is an engine.Engine backed by OpenCV through gocv. Decoded
// buffers live inside gocv.Mat values; Release closes the Mat.
//
// OpenCV decodes to BGR order, so colour images are reordered to RGB before
// they are handed out. Floats are produced by linear scaling (v/255 for 8-bit,
// v/65535 for 16-bit); OpenCV applies no gamma.
package opencv

import (
	"os"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/kpfaulkner/stbi-go/engine"
	"github.com/kpfaulkner/stbi-go/format"
)

var ErrChannels = errors.New("opencv: unsupported channel conversion")

const depthMask = 7

type Engine struct {
	mu   sync.Mutex
	live map[unsafe.Pointer]*gocv.Mat
}

func New() *Engine {
	return &Engine{live: make(map[unsafe.Pointer]*gocv.Mat)}
}

func (e *Engine) IsHDR(src engine.Source) bool {
	return format.IsRadianceHDR(header(src))
}

func (e *Engine) FormatTag(buf []byte) int8 {
	return format.Sniff(buf)
}

func (e *Engine) DecodeUint8(src engine.Source, channels int) (engine.Allocation, error) {
	m, n, err := e.decode(src, channels)
	if err != nil {
		return engine.Allocation{}, err
	}

	switch m.Type() & depthMask {
	case gocv.MatTypeCV8U:
	case gocv.MatTypeCV16U:
		m = convert(m, gocv.MatTypeCV8U, 1.0/257)
	default:
		m = convert(m, gocv.MatTypeCV8U, 255)
	}

	pix, err := m.DataPtrUint8()
	if err != nil {
		m.Close()
		return engine.Allocation{}, errors.Wrap(err, "opencv: pixel data")
	}
	if len(pix) == 0 {
		m.Close()
		return engine.Allocation{}, errors.New("opencv: no pixel data")
	}
	return e.pin(unsafe.Pointer(&pix[0]), m, n), nil
}

func (e *Engine) DecodeFloat32(src engine.Source, channels int) (engine.Allocation, error) {
	m, n, err := e.decode(src, channels)
	if err != nil {
		return engine.Allocation{}, err
	}

	switch m.Type() & depthMask {
	case gocv.MatTypeCV32F:
	case gocv.MatTypeCV8U:
		m = convert(m, gocv.MatTypeCV32F, 1.0/255)
	case gocv.MatTypeCV16U:
		m = convert(m, gocv.MatTypeCV32F, 1.0/65535)
	default:
		m = convert(m, gocv.MatTypeCV32F, 1)
	}

	pix, err := m.DataPtrFloat32()
	if err != nil {
		m.Close()
		return engine.Allocation{}, errors.Wrap(err, "opencv: pixel data")
	}
	if len(pix) == 0 {
		m.Close()
		return engine.Allocation{}, errors.New("opencv: no pixel data")
	}
	return e.pin(unsafe.Pointer(&pix[0]), m, n), nil
}

func (e *Engine) Release(ptr unsafe.Pointer) {
	e.mu.Lock()
	m, ok := e.live[ptr]
	delete(e.live, ptr)
	e.mu.Unlock()

	if !ok {
		log.Errorf("opencv: release of unknown or already released buffer %p", ptr)
		return
	}
	if err := m.Close(); err != nil {
		log.Errorf("opencv: closing mat: %v", err)
	}
}

// Outstanding is the number of buffers handed out and not yet released.
func (e *Engine) Outstanding() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// Info decodes the whole image; OpenCV has no header only probe.
func (e *Engine) Info(src engine.Source) (engine.Info, error) {
	m, err := read(src)
	if err != nil {
		return engine.Info{}, err
	}
	defer m.Close()
	return engine.Info{Width: m.Cols(), Height: m.Rows(), Channels: m.Channels()}, nil
}

func (e *Engine) pin(ptr unsafe.Pointer, m gocv.Mat, source int) engine.Allocation {
	e.mu.Lock()
	e.live[ptr] = &m
	e.mu.Unlock()

	return engine.Allocation{
		Ptr:            ptr,
		Width:          m.Cols(),
		Height:         m.Rows(),
		Channels:       m.Channels(),
		SourceChannels: source,
	}
}

// decode reads src and brings it to the requested channel count in RGB
// order. It returns the file's own channel count alongside the Mat.
func (e *Engine) decode(src engine.Source, channels int) (gocv.Mat, int, error) {
	if channels < 0 || channels > 4 {
		return gocv.Mat{}, 0, errors.Errorf("bad req_comp %d", channels)
	}
	if channels == 2 {
		return gocv.Mat{}, 0, errors.Wrap(ErrChannels, "grey with alpha")
	}

	m, err := read(src)
	if err != nil {
		return gocv.Mat{}, 0, err
	}

	n := m.Channels()
	out := channels
	if out == 0 {
		out = n
	}

	code, ok := conversion(n, out)
	if !ok {
		m.Close()
		return gocv.Mat{}, 0, errors.Wrapf(ErrChannels, "%d to %d channels", n, out)
	}
	if code == noConversion {
		return m, n, nil
	}

	dst := gocv.NewMat()
	gocv.CvtColor(m, &dst, code)
	m.Close()
	if dst.Empty() {
		dst.Close()
		return gocv.Mat{}, 0, errors.Wrapf(ErrChannels, "%d to %d channels", n, out)
	}
	return dst, n, nil
}

const noConversion gocv.ColorConversionCode = -1

// conversion picks the colour conversion from an n channel BGR Mat to out
// channels in RGB order.
func conversion(n int, out int) (gocv.ColorConversionCode, bool) {
	switch {
	case n == 1 && out == 1:
		return noConversion, true
	case n == 1 && out == 3:
		return gocv.ColorGrayToBGR, true
	case n == 1 && out == 4:
		return gocv.ColorGrayToBGRA, true
	case n == 3 && out == 1:
		return gocv.ColorBGRToGray, true
	case n == 3 && out == 3:
		return gocv.ColorBGRToRGB, true
	case n == 3 && out == 4:
		return gocv.ColorBGRToRGBA, true
	case n == 4 && out == 1:
		return gocv.ColorBGRAToGray, true
	case n == 4 && out == 3:
		// same code as BGRA to RGB
		return gocv.ColorRGBAToBGR, true
	case n == 4 && out == 4:
		return gocv.ColorBGRAToRGBA, true
	}
	return 0, false
}

// convert changes the sample type of m, closing m.
func convert(m gocv.Mat, mt gocv.MatType, scale float32) gocv.Mat {
	dst := gocv.NewMat()
	m.ConvertToWithParams(&dst, mt, scale, 0)
	m.Close()
	return dst
}

func read(src engine.Source) (gocv.Mat, error) {
	if src.IsPath() {
		m := gocv.IMRead(src.Path(), gocv.IMReadUnchanged)
		if m.Empty() {
			m.Close()
			return gocv.Mat{}, errors.Errorf("can't read %s", src.Path())
		}
		return m, nil
	}

	if len(src.Bytes()) == 0 {
		return gocv.Mat{}, errors.New("empty buffer")
	}
	m, err := gocv.IMDecode(src.Bytes(), gocv.IMReadUnchanged)
	if err != nil {
		return gocv.Mat{}, errors.Wrap(err, "opencv: decode")
	}
	if m.Empty() {
		m.Close()
		return gocv.Mat{}, errors.New("unknown image type")
	}
	return m, nil
}

// header returns the first bytes of src, enough for format sniffing.
func header(src engine.Source) []byte {
	if !src.IsPath() {
		return src.Bytes()
	}
	f, err := os.Open(src.Path())
	if err != nil {
		return nil
	}
	defer f.Close()

	buf := make([]byte, 64)
	n, _ := f.Read(buf)
	return buf[:n]
}
