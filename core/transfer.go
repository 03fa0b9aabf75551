package core

import (
	"unsafe"

	"github.com/pkg/errors"

	"github.com/kpfaulkner/stbi-go/engine"
	image2 "github.com/kpfaulkner/stbi-go/image"
)

// maxChannels is the largest channel count any engine produces (RGBA).
const maxChannels = 4

// Transfer copies an engine allocation into Go owned memory and releases the
// allocation through rel. It is the only place foreign pixel memory is read.
//
// alloc.Ptr must point at Width*Height*Channels samples of T and must not be
// used by the caller afterwards: it is released exactly once before Transfer
// returns, whether or not the copy happened. maxSamples of 0 disables the size
// cap.
func Transfer[T image2.Sample](rel engine.Releaser, alloc engine.Allocation, maxSamples int64) (*image2.Image[T], error) {
	if alloc.Ptr == nil {
		return nil, errors.Wrap(ErrInvalidAllocation, "nil pixel pointer")
	}
	defer rel.Release(alloc.Ptr)

	if alloc.Channels < 1 || alloc.Channels > maxChannels {
		return nil, errors.Wrapf(ErrInvalidAllocation, "unsupported channel count %d", alloc.Channels)
	}
	n, err := image2.SampleCount(alloc.Width, alloc.Height, alloc.Channels)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAllocation, err.Error())
	}
	if maxSamples > 0 && n > maxSamples {
		return nil, errors.Wrapf(ErrInvalidAllocation, "%d samples exceeds limit of %d", n, maxSamples)
	}

	data := make([]T, n)
	copy(data, unsafe.Slice((*T)(alloc.Ptr), n))

	return image2.NewImage(alloc.Width, alloc.Height, alloc.Channels, data)
}
