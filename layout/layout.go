/*
Package layout works out the dimensions of an image that can hold a stream of
bytes and how many filler bytes are needed to fill it exactly.

All pixel and byte counts are computed with exact integer ceiling division.
Floating point is only used to estimate a square root, which is then corrected
to the exact integer floor.
*/
package layout

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/bodgit/binimage/pixel"
)

var (
	// ErrConflictingConstraints is returned if both a width and a height
	// are requested.
	ErrConflictingConstraints = errors.New("layout: width and height are mutually exclusive")
	// ErrDimensionTooLarge is returned if a requested width or height
	// exceeds the number of pixels needed for the whole buffer.
	ErrDimensionTooLarge = errors.New("layout: dimension is too large")
	// ErrInvariantViolation is returned if the dimensions can't hold the
	// buffer. It indicates a bug rather than bad input.
	ErrInvariantViolation = errors.New("layout: dimensions are insufficient for buffer")
	// ErrTooLarge is returned if a count overflows.
	ErrTooLarge = errors.New("layout: image is too large")
)

// Constraint holds an optionally requested width or height. A zero value
// means the axis wasn't requested.
type Constraint struct {
	Width  uint32
	Height uint32
}

// Dimensions is the size of an image in pixels.
type Dimensions struct {
	Width  uint32
	Height uint32
}

// Pixels returns the number of pixels in the image.
func (d Dimensions) Pixels() uint64 {
	return uint64(d.Width) * uint64(d.Height)
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

func ceilDiv(numerator, denominator uint64) uint64 {
	q, r := numerator/denominator, numerator%denominator
	if r > 0 {
		q++
	}
	return q
}

func mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, ErrTooLarge
	}
	return lo, nil
}

// Integer floor of the square root of n
func isqrt(n uint64) uint64 {
	r := uint64(math.Sqrt(float64(n)))
	// float64 only has 53 bits of precision so nudge the estimate
	for r > 0 && (r > math.MaxUint32 || r*r > n) {
		r--
	}
	for r < math.MaxUint32 && (r+1)*(r+1) <= n {
		r++
	}
	return r
}

func atLeastOne(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	return n
}

func axis(n uint64) (uint32, error) {
	if n > math.MaxUint32 {
		return 0, ErrTooLarge
	}
	return uint32(n), nil
}

// NumPixels returns the minimum number of pixels needed to hold length bytes
// using the pixel format f.
func NumPixels(length uint64, f pixel.Format) (uint64, error) {
	bpp := uint64(f.BitsPerPixel())
	if bpp == 0 {
		return 0, pixel.ErrUnsupportedBitDepth
	}
	b, err := mul(length, 8)
	if err != nil {
		return 0, err
	}
	return ceilDiv(b, bpp), nil
}

// Solve returns the dimensions of an image large enough to hold length bytes
// using the pixel format f. At most one axis may be fixed by c; with neither
// fixed the image is roughly square.
func Solve(length uint64, f pixel.Format, c Constraint) (Dimensions, error) {
	n, err := NumPixels(length, f)
	if err != nil {
		return Dimensions{}, err
	}

	if c.Width != 0 && c.Height != 0 {
		return Dimensions{}, ErrConflictingConstraints
	}

	if uint64(c.Width) > n {
		return Dimensions{}, fmt.Errorf("%w: width %d exceeds %d pixels", ErrDimensionTooLarge, c.Width, n)
	}
	if uint64(c.Height) > n {
		return Dimensions{}, fmt.Errorf("%w: height %d exceeds %d pixels", ErrDimensionTooLarge, c.Height, n)
	}

	var width, height uint64
	switch {
	case c.Width != 0:
		width = uint64(c.Width)
		height = atLeastOne(ceilDiv(n, width))
	case c.Height != 0:
		height = uint64(c.Height)
		width = atLeastOne(ceilDiv(n, height))
	default:
		width = atLeastOne(isqrt(n))
		height = atLeastOne(ceilDiv(n, width))
	}

	var d Dimensions
	if d.Width, err = axis(width); err != nil {
		return Dimensions{}, err
	}
	if d.Height, err = axis(height); err != nil {
		return Dimensions{}, err
	}

	return d, nil
}

// BytesRequired returns the number of bytes needed to fill every pixel of an
// image with dimensions d, rounded up to a whole byte.
func BytesRequired(d Dimensions, f pixel.Format) (uint64, error) {
	b, err := mul(d.Pixels(), uint64(f.BitsPerPixel()))
	if err != nil {
		return 0, err
	}
	return ceilDiv(b, 8), nil
}

// Padding returns the number of filler bytes to append to a buffer of length
// bytes so it exactly fills an image with dimensions d.
func Padding(length uint64, d Dimensions, f pixel.Format) (uint64, error) {
	required, err := BytesRequired(d, f)
	if err != nil {
		return 0, err
	}
	if required < length {
		return 0, fmt.Errorf("%w: %s %s needs %d bytes, have %d", ErrInvariantViolation, d, f, required, length)
	}
	return required - length, nil
}
