package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/bodgit/binimage/layout"
	"github.com/bodgit/binimage/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func format(t *testing.T, code uint8) pixel.Format {
	f, err := pixel.FromBitDepth(code)
	require.NoError(t, err)
	return f
}

func TestImageGray1(t *testing.T) {
	m, err := Image([]byte{0xa5, 0x0f}, layout.Dimensions{Width: 4, Height: 4}, format(t, 1))
	require.NoError(t, err)

	pm, ok := m.(*image.Paletted)
	require.True(t, ok)
	assert.Len(t, pm.Palette, 2)
	assert.Equal(t, []uint8{1, 0, 1, 0, 0, 1, 0, 1, 0, 0, 0, 0, 1, 1, 1, 1}, pm.Pix)
	assert.Equal(t, color.Gray{Y: 0xff}, pm.At(0, 0))
	assert.Equal(t, color.Gray{Y: 0x00}, pm.At(1, 0))
}

func TestImageGray2(t *testing.T) {
	m, err := Image([]byte{0x1b}, layout.Dimensions{Width: 2, Height: 2}, format(t, 2))
	require.NoError(t, err)

	pm, ok := m.(*image.Paletted)
	require.True(t, ok)
	assert.Equal(t, []uint8{0, 1, 2, 3}, pm.Pix)
	assert.Equal(t, color.Gray{Y: 0x55}, pm.At(1, 0))
	assert.Equal(t, color.Gray{Y: 0xaa}, pm.At(0, 1))
}

func TestImageGray8(t *testing.T) {
	buf := []byte{0, 1, 2, 3, 4, 5}
	m, err := Image(buf, layout.Dimensions{Width: 3, Height: 2}, format(t, 8))
	require.NoError(t, err)

	g, ok := m.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, buf, g.Pix)
	assert.Equal(t, color.Gray{Y: 5}, g.At(2, 1))
}

func TestImageRGB4(t *testing.T) {
	// Two 12-bit pixels packed into three bytes
	m, err := Image([]byte{0xf0, 0x8a, 0xbc}, layout.Dimensions{Width: 2, Height: 1}, format(t, 12))
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{0xff, 0x00, 0x88, 0xff}, m.At(0, 0))
	assert.Equal(t, color.RGBA{0xaa, 0xbb, 0xcc, 0xff}, m.At(1, 0))
}

func TestImageRGB8(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 0, 0}
	m, err := Image(buf, layout.Dimensions{Width: 2, Height: 2}, format(t, 24))
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{1, 2, 3, 0xff}, m.At(0, 0))
	assert.Equal(t, color.RGBA{4, 5, 6, 0xff}, m.At(1, 0))
	assert.Equal(t, color.RGBA{10, 0, 0, 0xff}, m.At(1, 1))
}

func TestImageShortBuffer(t *testing.T) {
	_, err := Image(make([]byte, 11), layout.Dimensions{Width: 2, Height: 2}, format(t, 24))
	assert.True(t, errors.Is(err, ErrShortBuffer))
}

func TestGrayPalette(t *testing.T) {
	p := GrayPalette(format(t, 4))
	require.Len(t, p, 16)
	assert.Equal(t, color.Gray{Y: 0}, p[0])
	assert.Equal(t, color.Gray{Y: 0x11}, p[1])
	assert.Equal(t, color.Gray{Y: 0xff}, p[15])
}

func TestParseFormat(t *testing.T) {
	tables := []struct {
		in  string
		out Format
	}{
		{"", PNG},
		{"png", PNG},
		{".PNG", PNG},
		{"bmp", BMP},
		{"tif", TIFF},
		{".tiff", TIFF},
	}

	for _, table := range tables {
		f, err := ParseFormat(table.in)
		require.NoError(t, err)
		assert.Equal(t, table.out, f)
	}

	_, err := ParseFormat("jpeg")
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	f, err := FormatFromPath("/tmp/out.bmp")
	require.NoError(t, err)
	assert.Equal(t, BMP, f)

	f, err = FormatFromPath("out")
	require.NoError(t, err)
	assert.Equal(t, PNG, f)
}

func TestEncodePNG(t *testing.T) {
	m, err := Image([]byte{0xa5, 0x0f}, layout.Dimensions{Width: 4, Height: 4}, format(t, 1))
	require.NoError(t, err)

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, Options{}))

	// IHDR bit depth is at offset 24, 1-bit paletted
	assert.Equal(t, byte(1), b.Bytes()[24])
	assert.Equal(t, byte(3), b.Bytes()[25])

	out, err := png.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Bounds())
	r, g, bl, _ := out.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, bl})
}

func TestEncodeScale(t *testing.T) {
	m, err := Image([]byte{0x80}, layout.Dimensions{Width: 2, Height: 1}, format(t, 1))
	require.NoError(t, err)

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, Options{Format: PNG, Scale: 3}))

	out, err := png.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 6, 3), out.Bounds())

	pm, ok := out.(*image.Paletted)
	require.True(t, ok)
	for y := 0; y < 3; y++ {
		for x := 0; x < 6; x++ {
			want := uint8(0)
			if x < 3 {
				want = 1
			}
			assert.Equal(t, want, pm.ColorIndexAt(x, y), "(%d, %d)", x, y)
		}
	}
}

func TestEncodeColors(t *testing.T) {
	buf := make([]byte, 16*16*3)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	m, err := Image(buf, layout.Dimensions{Width: 16, Height: 16}, format(t, 24))
	require.NoError(t, err)

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, Options{Colors: 16}))

	out, err := png.Decode(b)
	require.NoError(t, err)
	pm, ok := out.(*image.Paletted)
	require.True(t, ok)
	assert.LessOrEqual(t, len(pm.Palette), 16)

	assert.Error(t, Encode(b, m, Options{Colors: 257}))
	assert.Error(t, Encode(b, m, Options{Scale: -1}))
}

func TestEncodeScaleTooLarge(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 3, 1))

	for _, s := range []int{maxDimension/2 + 1, maxDimension, math.MaxInt} {
		err := Encode(new(bytes.Buffer), m, Options{Scale: s})
		assert.True(t, errors.Is(err, errScaleTooLarge), "scale %d", s)
	}

	tall := image.NewGray(image.Rect(0, 0, 1, 1000))
	err := Encode(new(bytes.Buffer), tall, Options{Scale: maxDimension / 999})
	assert.True(t, errors.Is(err, errScaleTooLarge))
}

func TestEncodeBMP(t *testing.T) {
	m, err := Image([]byte{1, 2, 3, 4, 5, 6}, layout.Dimensions{Width: 3, Height: 2}, format(t, 8))
	require.NoError(t, err)

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, Options{Format: BMP}))

	out, err := bmp.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), out.Bounds())
	r, _, _, _ := out.At(2, 1).RGBA()
	assert.Equal(t, uint32(6*0x101), r)
}

func TestEncodeTIFF(t *testing.T) {
	m, err := Image([]byte{1, 2, 3, 4, 5, 6}, layout.Dimensions{Width: 2, Height: 1}, format(t, 24))
	require.NoError(t, err)

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, m, Options{Format: TIFF}))

	out, err := tiff.Decode(b)
	require.NoError(t, err)
	r, g, bl, _ := out.At(1, 0).RGBA()
	assert.Equal(t, []uint32{4 * 0x101, 5 * 0x101, 6 * 0x101}, []uint32{r, g, bl})
}

func TestEncodeUnknownFormat(t *testing.T) {
	m := image.NewGray(image.Rect(0, 0, 1, 1))
	err := Encode(new(bytes.Buffer), m, Options{Format: "jpeg"})
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}
