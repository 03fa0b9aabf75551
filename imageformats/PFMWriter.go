package imageformats

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"

	image2 "github.com/kpfaulkner/stbi-go/image"
	"github.com/kpfaulkner/stbi-go/util"
)

// WritePFM writes a float image as a big endian PFM. Depths 1 and 2 are
// written as greyscale ("Pf"), 3 and 4 as colour ("PF"). Alpha is dropped.
// Rows are written bottom to top.
func WritePFM(img *image2.ImageF32, output io.Writer) error {
	if img == nil {
		return errors.New("nil image")
	}

	depth := img.Depth()
	gray := depth <= 2
	width := img.Width()
	height := img.Height()

	pf := util.IfThenElse(gray, "Pf", "PF")
	cCount := util.IfThenElse(gray, 1, 3)

	bw := bufio.NewWriter(output)
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n1.0\n", pf, width, height); err != nil {
		return err
	}

	data := img.Data()
	b := make([]byte, 4)
	for y := height - 1; y >= 0; y-- {
		for x := 0; x < width; x++ {
			p := (y*width + x) * depth
			for c := 0; c < cCount; c++ {
				binary.BigEndian.PutUint32(b, math.Float32bits(data[p+c]))
				if _, err := bw.Write(b); err != nil {
					return err
				}
			}
		}
	}
	return bw.Flush()
}
