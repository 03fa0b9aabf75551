//go:build stbi

// Package stbi is an engine.Engine backed by stb_image through cgo. Pixel
// buffers are malloc'd by stb_image and must go back through Release.
//
// stb_image keeps its failure reason and its conversion settings in process
// globals, so every call into it is serialised behind one package level lock
// and each Engine re-applies its own settings under that lock.
package stbi

/*
#cgo CFLAGS: -I/usr/include/stb -I/usr/local/include/stb -O2
#cgo LDFLAGS: -lm

#define STB_IMAGE_IMPLEMENTATION
#include <stdlib.h>
#include "stb_image.h"

// Format sniffing using stb_image's own header tests. Tags match
// format.Identify.
static signed char stbi_get_image_format(stbi_uc const *buffer, int len) {
	stbi__context s;
	stbi__start_mem(&s, buffer, len);
	if (stbi__jpeg_test(&s)) return 0;
	if (stbi__png_test(&s)) return 1;
	if (stbi__bmp_test(&s)) return 2;
	if (stbi__gif_test(&s)) return 3;
	if (stbi__psd_test(&s)) return 4;
	if (stbi__pic_test(&s)) return 5;
	return -1;
}
*/
import "C"

import (
	"math"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/stbi-go/engine"
	"github.com/kpfaulkner/stbi-go/format"
)

// stbMu guards every call into stb_image.
var stbMu sync.Mutex

type Option func(e *Engine)

// WithHDRToLDR sets the gamma and scale stb_image uses when an HDR image is
// decoded to 8-bit samples. Defaults 2.2 and 1.
func WithHDRToLDR(gamma float32, scale float32) Option {
	return func(e *Engine) {
		e.hdrToLDRGamma = gamma
		e.hdrToLDRScale = scale
	}
}

// WithLDRToHDR sets the gamma and scale used when an 8-bit image is decoded
// as floats. Defaults 2.2 and 1.
func WithLDRToHDR(gamma float32, scale float32) Option {
	return func(e *Engine) {
		e.ldrToHDRGamma = gamma
		e.ldrToHDRScale = scale
	}
}

// WithFlipVertically makes the first row of every buffer the bottom of the
// image.
func WithFlipVertically() Option {
	return func(e *Engine) {
		e.flipVertically = true
	}
}

// WithUnpremultiply undoes premultiplied alpha in iPhone PNGs.
func WithUnpremultiply() Option {
	return func(e *Engine) {
		e.unpremultiply = true
	}
}

// WithIPhonePNGConversion converts iPhone PNGs from BGR to RGB.
func WithIPhonePNGConversion() Option {
	return func(e *Engine) {
		e.convertIPhonePNG = true
	}
}

// Engine is safe for concurrent use; calls are serialised.
type Engine struct {
	hdrToLDRGamma    float32
	hdrToLDRScale    float32
	ldrToHDRGamma    float32
	ldrToHDRScale    float32
	flipVertically   bool
	unpremultiply    bool
	convertIPhonePNG bool

	liveMu sync.Mutex
	live   map[unsafe.Pointer]struct{}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		hdrToLDRGamma: 2.2,
		hdrToLDRScale: 1,
		ldrToHDRGamma: 2.2,
		ldrToHDRScale: 1,
		live:          make(map[unsafe.Pointer]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// apply pushes this engine's settings into stb_image. Caller holds stbMu.
func (e *Engine) apply() {
	C.stbi_hdr_to_ldr_gamma(C.float(e.hdrToLDRGamma))
	C.stbi_hdr_to_ldr_scale(C.float(e.hdrToLDRScale))
	C.stbi_ldr_to_hdr_gamma(C.float(e.ldrToHDRGamma))
	C.stbi_ldr_to_hdr_scale(C.float(e.ldrToHDRScale))
	C.stbi_set_flip_vertically_on_load(cBool(e.flipVertically))
	C.stbi_set_unpremultiply_on_load(cBool(e.unpremultiply))
	C.stbi_convert_iphone_png_to_rgb(cBool(e.convertIPhonePNG))
}

func (e *Engine) IsHDR(src engine.Source) bool {
	stbMu.Lock()
	defer stbMu.Unlock()

	if src.IsPath() {
		path := C.CString(src.Path())
		defer C.free(unsafe.Pointer(path))
		return C.stbi_is_hdr(path) != 0
	}

	buf, n, err := memory(src.Bytes())
	if err != nil {
		return false
	}
	return C.stbi_is_hdr_from_memory(buf, n) != 0
}

func (e *Engine) FormatTag(buf []byte) int8 {
	p, n, err := memory(buf)
	if err != nil {
		return format.UnknownTag
	}

	stbMu.Lock()
	defer stbMu.Unlock()
	return int8(C.stbi_get_image_format(p, n))
}

func (e *Engine) DecodeUint8(src engine.Source, channels int) (engine.Allocation, error) {
	if err := checkChannels(channels); err != nil {
		return engine.Allocation{}, err
	}

	stbMu.Lock()
	defer stbMu.Unlock()
	e.apply()

	var x, y, comp C.int
	var pix *C.stbi_uc
	if src.IsPath() {
		path := C.CString(src.Path())
		defer C.free(unsafe.Pointer(path))
		pix = C.stbi_load(path, &x, &y, &comp, C.int(channels))
	} else {
		buf, n, err := memory(src.Bytes())
		if err != nil {
			return engine.Allocation{}, err
		}
		pix = C.stbi_load_from_memory(buf, n, &x, &y, &comp, C.int(channels))
	}
	if pix == nil {
		return engine.Allocation{}, failure()
	}

	return e.track(unsafe.Pointer(pix), x, y, comp, channels), nil
}

func (e *Engine) DecodeFloat32(src engine.Source, channels int) (engine.Allocation, error) {
	if err := checkChannels(channels); err != nil {
		return engine.Allocation{}, err
	}

	stbMu.Lock()
	defer stbMu.Unlock()
	e.apply()

	var x, y, comp C.int
	var pix *C.float
	if src.IsPath() {
		path := C.CString(src.Path())
		defer C.free(unsafe.Pointer(path))
		pix = C.stbi_loadf(path, &x, &y, &comp, C.int(channels))
	} else {
		buf, n, err := memory(src.Bytes())
		if err != nil {
			return engine.Allocation{}, err
		}
		pix = C.stbi_loadf_from_memory(buf, n, &x, &y, &comp, C.int(channels))
	}
	if pix == nil {
		return engine.Allocation{}, failure()
	}

	return e.track(unsafe.Pointer(pix), x, y, comp, channels), nil
}

// Release frees a buffer from DecodeUint8 or DecodeFloat32. Pointers this
// engine did not hand out, or already freed, are logged and left alone rather
// than passed to free.
func (e *Engine) Release(ptr unsafe.Pointer) {
	e.liveMu.Lock()
	_, ok := e.live[ptr]
	delete(e.live, ptr)
	e.liveMu.Unlock()

	if !ok {
		log.Errorf("stbi: release of unknown or already released buffer %p", ptr)
		return
	}
	C.stbi_image_free(ptr)
}

// Outstanding is the number of buffers handed out and not yet released.
func (e *Engine) Outstanding() int {
	e.liveMu.Lock()
	defer e.liveMu.Unlock()
	return len(e.live)
}

func (e *Engine) Info(src engine.Source) (engine.Info, error) {
	stbMu.Lock()
	defer stbMu.Unlock()

	var x, y, comp C.int
	var ok C.int
	if src.IsPath() {
		path := C.CString(src.Path())
		defer C.free(unsafe.Pointer(path))
		ok = C.stbi_info(path, &x, &y, &comp)
	} else {
		buf, n, err := memory(src.Bytes())
		if err != nil {
			return engine.Info{}, err
		}
		ok = C.stbi_info_from_memory(buf, n, &x, &y, &comp)
	}
	if ok == 0 {
		return engine.Info{}, failure()
	}
	return engine.Info{Width: int(x), Height: int(y), Channels: int(comp)}, nil
}

// track records a fresh stb_image buffer. With a forced channel count the
// buffer holds that many channels, not the file's own comp.
func (e *Engine) track(ptr unsafe.Pointer, x C.int, y C.int, comp C.int, channels int) engine.Allocation {
	e.liveMu.Lock()
	e.live[ptr] = struct{}{}
	e.liveMu.Unlock()

	out := int(comp)
	if channels != 0 {
		out = channels
	}
	return engine.Allocation{
		Ptr:            ptr,
		Width:          int(x),
		Height:         int(y),
		Channels:       out,
		SourceChannels: int(comp),
	}
}

// failure reads stb_image's reason for the last failed call. Caller holds
// stbMu.
func failure() error {
	reason := C.stbi_failure_reason()
	if reason == nil {
		return errors.New("unknown failure")
	}
	return errors.New(C.GoString(reason))
}

func memory(buf []byte) (*C.stbi_uc, C.int, error) {
	if len(buf) == 0 {
		return nil, 0, errors.New("empty buffer")
	}
	if len(buf) > math.MaxInt32 {
		return nil, 0, errors.Errorf("buffer of %d bytes too large", len(buf))
	}
	return (*C.stbi_uc)(unsafe.Pointer(&buf[0])), C.int(len(buf)), nil
}

func checkChannels(channels int) error {
	if channels < 0 || channels > 4 {
		return errors.Errorf("bad req_comp %d", channels)
	}
	return nil
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}
