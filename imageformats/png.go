package imageformats

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	image2 "github.com/kpfaulkner/stbi-go/image"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// PNG colour types indexed by channel count.
var pngColourType = [...]byte{1: 0, 2: 4, 3: 2, 4: 6}

// WritePNG writes an 8-bit image as PNG. Depth 1 is greyscale, 2 greyscale
// with alpha, 3 RGB and 4 RGBA. The image is tagged sRGB.
func WritePNG(img *image2.ImageU8, output io.Writer) error {
	if img == nil {
		return errors.New("nil image")
	}
	depth := img.Depth()
	if depth < 1 || depth > 4 {
		return errors.Errorf("can't write depth %d as PNG", depth)
	}

	if _, err := output.Write(pngSignature); err != nil {
		return err
	}
	if err := writeIHDR(img, output); err != nil {
		return err
	}

	// sRGB, perceptual intent
	if err := writeChunk(output, "sRGB", []byte{0x00}); err != nil {
		return err
	}

	if err := writeIDAT(img, output); err != nil {
		return err
	}
	return writeChunk(output, "IEND", nil)
}

func writeIHDR(img *image2.ImageU8, output io.Writer) error {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], uint32(img.Width()))
	binary.BigEndian.PutUint32(ihdr[4:], uint32(img.Height()))
	ihdr[8] = 8
	ihdr[9] = pngColourType[img.Depth()]
	ihdr[10] = 0
	ihdr[11] = 0
	ihdr[12] = 0
	return writeChunk(output, "IHDR", ihdr)
}

// writeIDAT compresses every row with filter type 0.
func writeIDAT(img *image2.ImageU8, output io.Writer) error {
	var compressed bytes.Buffer
	w, err := zlib.NewWriterLevel(&compressed, zlib.DefaultCompression)
	if err != nil {
		return err
	}

	data := img.Data()
	stride := img.Stride()
	for y := 0; y < img.Height(); y++ {
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
		if _, err := w.Write(data[y*stride : (y+1)*stride]); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return writeChunk(output, "IDAT", compressed.Bytes())
}

// writeChunk writes length, type, data and the CRC over type and data.
func writeChunk(output io.Writer, chunkType string, data []byte) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(len(data)))
	if _, err := output.Write(b); err != nil {
		return err
	}

	crc := crc32.NewIEEE()
	body := io.MultiWriter(output, crc)
	if _, err := body.Write([]byte(chunkType)); err != nil {
		return err
	}
	if _, err := body.Write(data); err != nil {
		return err
	}

	binary.BigEndian.PutUint32(b, crc.Sum32())
	_, err := output.Write(b)
	return err
}
