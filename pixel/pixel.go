/*
Package pixel resolves the numeric bit depth codes accepted by binimage into
a pixel format.

A format is either grayscale or RGB with 1, 2, 4 or 8 bits per channel. The
number of bits used by a single pixel is always derived from the format so
the two can never disagree.
*/
package pixel

import (
	"errors"
	"fmt"
)

// DefaultBitDepth is the bit depth used when none is requested.
const DefaultBitDepth = 24

// ErrUnsupportedBitDepth is returned for any bit depth code or bits per
// channel value that isn't recognised.
var ErrUnsupportedBitDepth = errors.New("pixel: unsupported bit depth")

// Model is the channel layout of a pixel.
type Model int

const (
	// Gray is a single luminance channel.
	Gray Model = iota
	// RGB is three channels in red, green, blue order.
	RGB
)

func (m Model) String() string {
	switch m {
	case Gray:
		return "gray"
	case RGB:
		return "rgb"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// Format describes how pixels are packed into the byte stream.
type Format struct {
	Model          Model
	BitsPerChannel uint8
}

// New returns a Format for the given model and channel width.
func New(m Model, bits uint8) (Format, error) {
	if m != Gray && m != RGB {
		return Format{}, fmt.Errorf("pixel: unknown model %d", int(m))
	}
	switch bits {
	case 1, 2, 4, 8:
		return Format{Model: m, BitsPerChannel: bits}, nil
	}
	return Format{}, fmt.Errorf("%w: %d bits per channel", ErrUnsupportedBitDepth, bits)
}

// FromBitDepth maps a bit depth code to a Format. 0 selects the default of
// 24-bit RGB, 12 and 24 are RGB and anything from 1 to 8 is grayscale.
func FromBitDepth(code uint8) (Format, error) {
	switch code {
	case 0, 24:
		return New(RGB, 8)
	case 12:
		return New(RGB, 4)
	case 1, 2, 4, 8:
		return New(Gray, code)
	}
	return Format{}, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, code)
}

// Channels returns the number of channels in a pixel.
func (f Format) Channels() int {
	if f.Model == RGB {
		return 3
	}
	return 1
}

// BitsPerPixel returns the number of bits used by a single pixel.
func (f Format) BitsPerPixel() uint32 {
	return uint32(f.Channels()) * uint32(f.BitsPerChannel)
}

// MaxValue returns the largest value a single channel can hold.
func (f Format) MaxValue() uint8 {
	return uint8(uint16(1)<<f.BitsPerChannel - 1)
}

func (f Format) String() string {
	return fmt.Sprintf("%s%d", f.Model, f.BitsPerChannel)
}
