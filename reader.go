package stbi_go

import (
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/kpfaulkner/stbi-go/core"
	"github.com/kpfaulkner/stbi-go/engine"
	image2 "github.com/kpfaulkner/stbi-go/image"
)

// Magic strings for the formats the standard library has no decoder for.
const (
	radianceHeader = "#?RADIANCE\n"
	rgbeHeader     = "#?RGBE\n"
	psdHeader      = "8BPS"
	picHeader      = "\x53\x80\xF6\x34"
)

var (
	ErrNoEngine = errors.New("no engine registered")

	registerOnce sync.Once
	loaderMu     sync.RWMutex
	loader       *core.Loader
)

// Register makes image.Decode able to read Radiance HDR, PSD and PIC files
// through eng. Calling it again swaps the engine; the formats are only
// registered once.
func Register(eng engine.Engine, opts ...core.LoaderOption) {
	loaderMu.Lock()
	loader = core.NewLoader(eng, opts...)
	loaderMu.Unlock()

	registerOnce.Do(func() {
		image.RegisterFormat("hdr", radianceHeader, Decode, DecodeConfig)
		image.RegisterFormat("hdr", rgbeHeader, Decode, DecodeConfig)
		image.RegisterFormat("psd", psdHeader, Decode, DecodeConfig)
		image.RegisterFormat("pic", picHeader, Decode, DecodeConfig)
	})
}

func registered() (*core.Loader, error) {
	loaderMu.RLock()
	defer loaderMu.RUnlock()
	if loader == nil {
		return nil, ErrNoEngine
	}
	return loader, nil
}

// Decode reads an image through the registered engine. Float images are tone
// mapped with the default gamma and scale.
func Decode(r io.Reader) (image.Image, error) {
	l, err := registered()
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return image2.ToImage(l.LoadMemory(data))
}

func DecodeConfig(r io.Reader) (image.Config, error) {
	l, err := registered()
	if err != nil {
		return image.Config{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	cfg, err := l.Info(engine.FromMemory(data))
	if err != nil {
		return image.Config{}, err
	}

	var colourModel color.Model
	switch {
	case cfg.Depth == 1 && cfg.HDR:
		colourModel = color.Gray16Model
	case cfg.Depth == 1:
		colourModel = color.GrayModel
	case cfg.HDR:
		colourModel = color.NRGBA64Model
	default:
		colourModel = color.NRGBAModel
	}

	return image.Config{
		ColorModel: colourModel,
		Width:      cfg.Width,
		Height:     cfg.Height,
	}, nil
}
