// Package engine describes the capability surface of a foreign image decoder:
// something outside Go's memory management that decodes pixels into buffers it
// allocates itself, and that must be asked to release them.
package engine

import (
	"unsafe"
)

// Source is the input to a decode: either a file path or an in-memory buffer.
type Source struct {
	path   string
	data   []byte
	isPath bool
}

func FromPath(path string) Source {
	return Source{path: path, isPath: true}
}

func FromMemory(data []byte) Source {
	return Source{data: data}
}

func (s Source) IsPath() bool {
	return s.isPath
}

func (s Source) Path() string {
	return s.path
}

func (s Source) Bytes() []byte {
	return s.data
}

func (s Source) String() string {
	if s.isPath {
		return s.path
	}
	return "memory"
}

// Allocation is a pixel buffer returned by an engine. Ptr points at
// Width*Height*Channels contiguous samples (uint8 or float32 depending on the
// decode call) and stays valid until passed to Release.
//
// Channels is the number of channels actually present in the buffer. When a
// decode was asked to force a channel count, that is the forced count.
type Allocation struct {
	Ptr      unsafe.Pointer
	Width    int
	Height   int
	Channels int

	// SourceChannels is the channel count of the encoded image, for
	// information only.
	SourceChannels int
}

// Releaser frees buffers previously handed out by an engine.
type Releaser interface {
	Release(ptr unsafe.Pointer)
}

// Engine is a foreign decoder. channels of 0 asks for the image's own channel
// count; 1..4 asks the engine to convert.
//
// A decode returning a nil error must return a non-nil Ptr that is owned by
// the caller until released. Implementations are not required to be safe for
// concurrent use unless they say so.
type Engine interface {
	Releaser

	// IsHDR reports whether the source holds floating point samples.
	IsHDR(src Source) bool

	DecodeUint8(src Source, channels int) (Allocation, error)

	DecodeFloat32(src Source, channels int) (Allocation, error)

	// FormatTag sniffs the header of buf and returns a small format tag, see
	// format.Identify.
	FormatTag(buf []byte) int8
}

// Info describes an encoded image without decoding its pixels.
type Info struct {
	Width    int
	Height   int
	Channels int
}

// Prober is implemented by engines that can read image dimensions without
// decoding.
type Prober interface {
	Info(src Source) (Info, error)
}
