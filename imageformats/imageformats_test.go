package imageformats

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	image2 "github.com/kpfaulkner/stbi-go/image"
)

func TestWritePNG(t *testing.T) {
	for _, tc := range []struct {
		name     string
		depth    int
		data     []uint8
		expected color.Color
	}{
		{name: "grey", depth: 1, data: []uint8{10, 20}, expected: color.Gray{Y: 20}},
		{name: "grey alpha", depth: 2, data: []uint8{10, 255, 20, 128}, expected: color.NRGBA{R: 20, G: 20, B: 20, A: 128}},
		{name: "rgb", depth: 3, data: []uint8{1, 2, 3, 4, 5, 6}, expected: color.RGBA{R: 4, G: 5, B: 6, A: 255}},
		{name: "rgba", depth: 4, data: []uint8{1, 2, 3, 4, 5, 6, 7, 8}, expected: color.NRGBA{R: 5, G: 6, B: 7, A: 8}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img, err := image2.NewImage(2, 1, tc.depth, tc.data)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, WritePNG(img, &buf))

			decoded, err := png.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 2, 1), decoded.Bounds())

			r, g, b, a := decoded.At(1, 0).RGBA()
			er, eg, eb, ea := tc.expected.RGBA()
			assert.Equal(t, []uint32{er, eg, eb, ea}, []uint32{r, g, b, a})
		})
	}
}

func TestWritePNGRejectsNil(t *testing.T) {
	assert.Error(t, WritePNG(nil, &bytes.Buffer{}))
}

func TestWritePFM(t *testing.T) {
	img, err := image2.NewImage(1, 2, 4, []float32{
		1, 2, 3, 0.5,
		4, 5, 6, 0.5,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePFM(img, &buf))

	header := "PF\n1 2\n1.0\n"
	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, []byte(header)))

	body := out[len(header):]
	require.Len(t, body, 2*3*4)

	var got []float32
	for i := 0; i < len(body); i += 4 {
		got = append(got, math.Float32frombits(binary.BigEndian.Uint32(body[i:])))
	}
	// bottom row first, alpha dropped
	assert.Equal(t, []float32{4, 5, 6, 1, 2, 3}, got)
}

func TestWritePFMGrey(t *testing.T) {
	img, err := image2.NewImage(2, 1, 1, []float32{0.25, 8})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePFM(img, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("Pf\n2 1\n1.0\n")))
	assert.Equal(t, len("Pf\n2 1\n1.0\n")+8, buf.Len())
}
