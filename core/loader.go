package core

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/kpfaulkner/stbi-go/engine"
	"github.com/kpfaulkner/stbi-go/format"
	image2 "github.com/kpfaulkner/stbi-go/image"
	"github.com/kpfaulkner/stbi-go/options"
)

type LoaderOption func(l *Loader) error

// WithMaxSamples rejects any decoded image with more than n samples.
func WithMaxSamples(n int64) LoaderOption {
	return func(l *Loader) error {
		if n < 0 {
			return errors.Errorf("max samples must not be negative, got %d", n)
		}
		l.opts.MaxSamples = n
		return nil
	}
}

// WithStrictDepth makes a forced depth that the engine did not honour a
// decode error.
func WithStrictDepth() LoaderOption {
	return func(l *Loader) error {
		l.opts.StrictDepth = true
		return nil
	}
}

func WithOptions(opts *options.LoaderOptions) LoaderOption {
	return func(l *Loader) error {
		l.opts = options.NewLoaderOptions(opts)
		return nil
	}
}

// Loader decodes images through an engine and hands back Go owned pixel
// buffers. It keeps no state between calls and is safe for concurrent use as
// long as its engine is.
type Loader struct {
	engine engine.Engine
	opts   *options.LoaderOptions
}

// Config is what Info learns about an image without decoding it.
type Config struct {
	Width  int
	Height int
	Depth  int
	Format format.ImageFormat
	HDR    bool
}

func NewLoader(eng engine.Engine, opts ...LoaderOption) *Loader {
	l := &Loader{
		engine: eng,
		opts:   options.NewLoaderOptions(nil),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			panic("Error applying option to Loader: " + err.Error())
		}
	}
	return l
}

// Load decodes the image at path with its own channel count, keeping HDR
// images as floats.
func (l *Loader) Load(path string) image2.LoadResult {
	return l.LoadFromPath(path, 0, false)
}

// LoadMemory is Load for an in-memory buffer.
func (l *Loader) LoadMemory(buf []byte) image2.LoadResult {
	return l.LoadFromMemory(buf, 0, false)
}

// LoadFromPath decodes the image at path. forcedDepth of 1..4 asks the engine
// for that many channels; 0 keeps the image's own. HDR images decode to
// *image.ImageF32 unless convertHDRToLDR is set, everything else to
// *image.ImageU8. Failures come back as *image.ErrorResult.
func (l *Loader) LoadFromPath(path string, forcedDepth int, convertHDRToLDR bool) image2.LoadResult {
	if !utf8.ValidString(path) || strings.IndexByte(path, 0) >= 0 {
		return image2.NewErrorResult(ErrInvalidPath)
	}
	return l.load(engine.FromPath(path), forcedDepth, convertHDRToLDR)
}

// LoadFromMemory is LoadFromPath for an in-memory buffer.
func (l *Loader) LoadFromMemory(buf []byte, forcedDepth int, convertHDRToLDR bool) image2.LoadResult {
	return l.load(engine.FromMemory(buf), forcedDepth, convertHDRToLDR)
}

// ProbeFormat classifies buf by its header bytes. It never decodes pixels.
func (l *Loader) ProbeFormat(buf []byte) format.ImageFormat {
	return format.Identify(l.engine.FormatTag(buf))
}

// Info reports dimensions, channel count and format without decoding pixels.
// The engine must implement engine.Prober.
func (l *Loader) Info(src engine.Source) (Config, error) {
	prober, ok := l.engine.(engine.Prober)
	if !ok {
		return Config{}, errors.New("engine cannot probe image info")
	}
	if src.IsPath() && !utf8.ValidString(src.Path()) {
		return Config{}, ErrInvalidPath
	}

	info, err := prober.Info(src)
	if err != nil {
		return Config{}, errors.Wrapf(err, "info for %s", src)
	}

	cfg := Config{
		Width:  info.Width,
		Height: info.Height,
		Depth:  info.Channels,
		Format: format.Unknown,
		HDR:    l.engine.IsHDR(src),
	}
	header := src.Bytes()
	if src.IsPath() {
		if header, err = readHeader(src.Path()); err != nil {
			return Config{}, errors.Wrapf(err, "info for %s", src)
		}
	}
	cfg.Format = l.ProbeFormat(header)
	return cfg, nil
}

// headerSize covers every signature format.Sniff looks at.
const headerSize = 128

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func (l *Loader) load(src engine.Source, forcedDepth int, convertHDRToLDR bool) image2.LoadResult {
	if forcedDepth < 0 || forcedDepth > maxChannels {
		return image2.NewErrorResult(errors.Wrapf(ErrInvalidDepth, "got %d", forcedDepth))
	}

	if !convertHDRToLDR && l.engine.IsHDR(src) {
		return decode[float32](l, src, forcedDepth, opName("stbi_loadf", src), ErrFloatDecode, l.engine.DecodeFloat32)
	}
	return decode[uint8](l, src, forcedDepth, opName("stbi_load", src), ErrIntegerDecode, l.engine.DecodeUint8)
}

// decode runs one engine decode call and moves its buffer into an Image. Any
// allocation the engine hands back is released on every path.
func decode[T image2.Sample](l *Loader, src engine.Source, forcedDepth int, op string, kind error,
	decodeFn func(engine.Source, int) (engine.Allocation, error)) image2.LoadResult {

	log.WithFields(log.Fields{"source": src.String(), "depth": forcedDepth}).Debugf("%s: decoding", op)

	alloc, err := decodeFn(src, forcedDepth)
	if err != nil || alloc.Ptr == nil {
		if alloc.Ptr != nil {
			l.engine.Release(alloc.Ptr)
		}
		return image2.NewErrorResult(newDecodeError(op, kind, err))
	}
	if err := l.checkDepth(op, alloc, forcedDepth); err != nil {
		l.engine.Release(alloc.Ptr)
		return image2.NewErrorResult(err)
	}

	img, err := Transfer[T](l.engine, alloc, l.opts.MaxSamples)
	if err != nil {
		return image2.NewErrorResult(newDecodeError(op, kind, err))
	}
	return img
}

// checkDepth compares a forced depth with what the engine says it produced.
// The engine's count describes the buffer, so it always wins; the mismatch is
// only an error in strict mode.
func (l *Loader) checkDepth(op string, alloc engine.Allocation, forcedDepth int) error {
	if forcedDepth == 0 || alloc.Channels == forcedDepth {
		return nil
	}
	if l.opts.StrictDepth {
		return newDecodeError(op, ErrDepthMismatch, errors.Errorf("asked for %d channels, engine produced %d", forcedDepth, alloc.Channels))
	}
	log.Warnf("%s: asked for %d channels, engine produced %d; using %d", op, forcedDepth, alloc.Channels, alloc.Channels)
	return nil
}

func opName(base string, src engine.Source) string {
	if src.IsPath() {
		return base
	}
	return base + "_from_memory"
}
