package testcommon

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/kpfaulkner/stbi-go/engine"
	"github.com/kpfaulkner/stbi-go/format"
)

// FakeImage is what FakeEngine decodes a registered source into. Exactly one
// of U8 and F32 should be set, matching HDR.
type FakeImage struct {
	Width    int
	Height   int
	Channels int
	HDR      bool
	U8       []uint8
	F32      []float32
}

// FakeEngine is an in-process engine.Engine that records every call and
// tracks each buffer it hands out, so tests can check that every allocation
// is released exactly once.
type FakeEngine struct {
	mu     sync.Mutex
	images map[string]FakeImage

	live     map[unsafe.Pointer]any
	released map[unsafe.Pointer]bool

	// FailDecode makes every decode return an error.
	FailDecode bool

	// NilOnSuccess makes decodes return no error but a nil pointer.
	NilOnSuccess bool

	// IgnoreForcedDepth makes decodes return the image's own channel count
	// regardless of what was asked for.
	IgnoreForcedDepth bool

	// ReportedChannels, when non-zero, overrides the channel count reported
	// in allocations without changing the buffer. It must not exceed the real
	// count or readers will run off the end of the buffer.
	ReportedChannels int

	Calls           map[string]int
	Allocs          int
	Releases        int
	DoubleReleases  int
	UnknownReleases int
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		images:   make(map[string]FakeImage),
		live:     make(map[unsafe.Pointer]any),
		released: make(map[unsafe.Pointer]bool),
		Calls:    make(map[string]int),
	}
}

// Add registers img under key, which is either a path or the string form of
// an in-memory buffer.
func (f *FakeEngine) Add(key string, img FakeImage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[key] = img
}

func (f *FakeEngine) lookup(src engine.Source) (FakeImage, bool) {
	key := src.Path()
	if !src.IsPath() {
		key = string(src.Bytes())
	}
	img, ok := f.images[key]
	return img, ok
}

func (f *FakeEngine) IsHDR(src engine.Source) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["IsHDR"]++

	img, ok := f.lookup(src)
	return ok && img.HDR
}

func (f *FakeEngine) FormatTag(buf []byte) int8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["FormatTag"]++
	return format.Sniff(buf)
}

func (f *FakeEngine) Info(src engine.Source) (engine.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["Info"]++

	img, ok := f.lookup(src)
	if !ok {
		return engine.Info{}, errors.New("unknown image")
	}
	return engine.Info{Width: img.Width, Height: img.Height, Channels: img.Channels}, nil
}

func (f *FakeEngine) DecodeUint8(src engine.Source, channels int) (engine.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["DecodeUint8"]++

	img, out, err := f.prepare(src, channels)
	if err != nil || f.NilOnSuccess {
		return engine.Allocation{}, err
	}

	pix := make([]uint8, img.Width*img.Height*out)
	f.convert(img, out, func(dst int, src int) {
		if img.HDR {
			v := img.F32[src] * 255
			if v < 0 {
				v = 0
			} else if v > 255 {
				v = 255
			}
			pix[dst] = uint8(v)
		} else {
			pix[dst] = img.U8[src]
		}
	})
	return f.allocate(img, out, unsafe.Pointer(&pix[0]), pix), nil
}

func (f *FakeEngine) DecodeFloat32(src engine.Source, channels int) (engine.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["DecodeFloat32"]++

	img, out, err := f.prepare(src, channels)
	if err != nil || f.NilOnSuccess {
		return engine.Allocation{}, err
	}

	pix := make([]float32, img.Width*img.Height*out)
	f.convert(img, out, func(dst int, src int) {
		if img.HDR {
			pix[dst] = img.F32[src]
		} else {
			pix[dst] = float32(img.U8[src]) / 255
		}
	})
	return f.allocate(img, out, unsafe.Pointer(&pix[0]), pix), nil
}

func (f *FakeEngine) Release(ptr unsafe.Pointer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["Release"]++

	if _, ok := f.live[ptr]; !ok {
		if f.released[ptr] {
			f.DoubleReleases++
		} else {
			f.UnknownReleases++
		}
		return
	}
	delete(f.live, ptr)
	f.released[ptr] = true
	f.Releases++
}

// Outstanding is the number of allocations not yet released.
func (f *FakeEngine) Outstanding() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

// AssertBalanced fails t if any allocation leaked or was released twice.
func (f *FakeEngine) AssertBalanced(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	assert.Equal(t, 0, len(f.live), "leaked allocations")
	assert.Equal(t, f.Allocs, f.Releases, "allocations and releases differ")
	assert.Equal(t, 0, f.DoubleReleases, "double releases")
	assert.Equal(t, 0, f.UnknownReleases, "releases of unknown pointers")
}

func (f *FakeEngine) prepare(src engine.Source, channels int) (FakeImage, int, error) {
	if f.FailDecode {
		return FakeImage{}, 0, errors.New("corrupt image")
	}
	img, ok := f.lookup(src)
	if !ok {
		return FakeImage{}, 0, errors.New("unknown image type")
	}
	out := img.Channels
	if channels != 0 && !f.IgnoreForcedDepth {
		out = channels
	}
	return img, out, nil
}

// convert copies pixels channel by channel; extra output channels repeat the
// last source channel and missing ones are dropped.
func (f *FakeEngine) convert(img FakeImage, out int, set func(dst int, src int)) {
	for p := 0; p < img.Width*img.Height; p++ {
		for c := 0; c < out; c++ {
			sc := c
			if sc >= img.Channels {
				sc = img.Channels - 1
			}
			set(p*out+c, p*img.Channels+sc)
		}
	}
}

func (f *FakeEngine) allocate(img FakeImage, channels int, ptr unsafe.Pointer, backing any) engine.Allocation {
	f.live[ptr] = backing
	f.Allocs++

	reported := channels
	if f.ReportedChannels != 0 {
		reported = f.ReportedChannels
	}
	return engine.Allocation{
		Ptr:            ptr,
		Width:          img.Width,
		Height:         img.Height,
		Channels:       reported,
		SourceChannels: img.Channels,
	}
}
