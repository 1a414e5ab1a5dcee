/*
Package raster turns a padded byte buffer into an image and writes it out in
one of the supported image formats.

The buffer is treated as one continuous stream of bits with the most
significant bit first. Pixel i starts at bit i multiplied by the bits per
pixel, channels are ordered red, green, blue and rows are not padded to a
byte boundary. Channels narrower than 8 bits are scaled up to the full 8-bit
range; grayscale formats narrower than 8 bits become a paletted image so that
PNG output keeps the original bit depth.
*/
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/bodgit/binimage/layout"
	"github.com/bodgit/binimage/pixel"
)

// ErrShortBuffer is returned if the buffer can't fill every pixel.
var ErrShortBuffer = errors.New("raster: buffer is too short for image")

type bitReader struct {
	b   []byte
	off uint64
}

// Returns the next n bits, n must divide 8
func (br *bitReader) read(n uint8) uint8 {
	v := br.b[br.off>>3] >> (8 - uint64(n) - br.off&7)
	br.off += uint64(n)
	return v & uint8(uint16(1)<<n-1)
}

func scale(v, maxValue uint8) uint8 {
	return uint8(uint16(v) * 0xff / uint16(maxValue))
}

// GrayPalette returns the evenly spaced gray palette used for grayscale
// formats narrower than 8 bits.
func GrayPalette(f pixel.Format) color.Palette {
	maxValue := f.MaxValue()
	p := make(color.Palette, int(maxValue)+1)
	for i := range p {
		p[i] = color.Gray{Y: scale(uint8(i), maxValue)}
	}
	return p
}

// Image returns an image with dimensions d whose pixels are read from buf
// using the pixel format f.
func Image(buf []byte, d layout.Dimensions, f pixel.Format) (image.Image, error) {
	required, err := layout.BytesRequired(d, f)
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) < required {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, required, len(buf))
	}

	r := image.Rect(0, 0, int(d.Width), int(d.Height))
	br := &bitReader{b: buf}
	n := f.BitsPerChannel
	maxValue := f.MaxValue()

	switch {
	case f.Model == pixel.Gray && n == 8:
		m := image.NewGray(r)
		copy(m.Pix, buf)
		return m, nil
	case f.Model == pixel.Gray:
		m := image.NewPaletted(r, GrayPalette(f))
		for i := range m.Pix {
			m.Pix[i] = br.read(n)
		}
		return m, nil
	case f.Model == pixel.RGB:
		m := image.NewRGBA(r)
		for i := 0; i < len(m.Pix); i += 4 {
			m.Pix[i+0] = scale(br.read(n), maxValue)
			m.Pix[i+1] = scale(br.read(n), maxValue)
			m.Pix[i+2] = scale(br.read(n), maxValue)
			m.Pix[i+3] = 0xff
		}
		return m, nil
	}

	return nil, fmt.Errorf("raster: unsupported pixel format %s", f)
}
