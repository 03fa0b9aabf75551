package format

import (
	"bytes"
	"encoding/binary"
)

// ImageFormat is the container format of an encoded image, as determined by
// sniffing its leading bytes.
type ImageFormat int8

const (
	JPEG    ImageFormat = 0x00
	PNG     ImageFormat = 0x01
	BMP     ImageFormat = 0x02
	GIF     ImageFormat = 0x03
	PSD     ImageFormat = 0x04
	PIC     ImageFormat = 0x05
	Unknown ImageFormat = -1 // 0xFF as a signed tag
)

// UnknownTag is the raw tag engines report for unrecognised input.
const UnknownTag int8 = -1

var (
	pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	psdSignature = []byte("8BPS")
	picSignature = []byte{0x53, 0x80, 0xF6, 0x34}
	picTag       = []byte("PICT")

	radianceSignature = []byte("#?RADIANCE\n")
	rgbeSignature     = []byte("#?RGBE\n")
)

// picTagOffset is where Softimage PIC files carry their "PICT" id.
const picTagOffset = 88

// Identify maps a raw engine format tag onto an ImageFormat. Every tag has a
// result; anything outside the known range is Unknown.
func Identify(tag int8) ImageFormat {
	switch tag {
	case 0:
		return JPEG
	case 1:
		return PNG
	case 2:
		return BMP
	case 3:
		return GIF
	case 4:
		return PSD
	case 5:
		return PIC
	default:
		return Unknown
	}
}

func (f ImageFormat) String() string {
	switch f {
	case JPEG:
		return "JPEG"
	case PNG:
		return "PNG"
	case BMP:
		return "BMP"
	case GIF:
		return "GIF"
	case PSD:
		return "PSD"
	case PIC:
		return "PIC"
	default:
		return "Unknown"
	}
}

// Sniff inspects the header of buf and returns the raw tag an engine would
// report for it. The checks run in the same order stb_image probes formats.
// It never reads past len(buf).
func Sniff(buf []byte) int8 {
	switch {
	case isJPEG(buf):
		return int8(JPEG)
	case bytes.HasPrefix(buf, pngSignature):
		return int8(PNG)
	case isBMP(buf):
		return int8(BMP)
	case isGIF(buf):
		return int8(GIF)
	case bytes.HasPrefix(buf, psdSignature):
		return int8(PSD)
	case isPIC(buf):
		return int8(PIC)
	}
	return UnknownTag
}

// IsRadianceHDR reports whether buf starts with a Radiance RGBE header.
func IsRadianceHDR(buf []byte) bool {
	return bytes.HasPrefix(buf, radianceSignature) || bytes.HasPrefix(buf, rgbeSignature)
}

func isJPEG(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xFF && buf[1] == 0xD8 && buf[2] == 0xFF
}

func isGIF(buf []byte) bool {
	if len(buf) < 6 || !bytes.HasPrefix(buf, []byte("GIF8")) {
		return false
	}
	return (buf[4] == '7' || buf[4] == '9') && buf[5] == 'a'
}

// isBMP requires "BM" plus a DIB header size that stb_image accepts.
func isBMP(buf []byte) bool {
	if len(buf) < 18 || buf[0] != 'B' || buf[1] != 'M' {
		return false
	}
	switch binary.LittleEndian.Uint32(buf[14:18]) {
	case 12, 40, 56, 108, 124:
		return true
	}
	return false
}

func isPIC(buf []byte) bool {
	if !bytes.HasPrefix(buf, picSignature) {
		return false
	}
	if len(buf) < picTagOffset+len(picTag) {
		return false
	}
	return bytes.Equal(buf[picTagOffset:picTagOffset+len(picTag)], picTag)
}
