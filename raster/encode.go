package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

const (
	maxColors    = 256
	maxDimension = math.MaxInt32
)

var (
	// ErrUnknownFormat is returned for an unrecognised output format.
	ErrUnknownFormat = errors.New("raster: unknown image format")
	errTooManyColors = fmt.Errorf("raster: no more than %d colors", maxColors)
	errBadScale      = errors.New("raster: scale must not be negative")
	errScaleTooLarge = fmt.Errorf("raster: scaled image exceeds %d pixels on a side", maxDimension)
)

// Format is an output image file format.
type Format string

const (
	PNG  Format = "png"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// Ext returns the usual filename extension for the format.
func (f Format) Ext() string {
	return "." + string(f)
}

// ParseFormat returns the Format named by s, an empty string selects PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath returns the Format implied by the extension of path.
// Paths without an extension are written as PNG.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Options control how an image is written.
type Options struct {
	// Format is the output file format, PNG if unset.
	Format Format
	// Colors, if non-zero, reduces the image to a palette of at most
	// this many colors.
	Colors int
	// Scale, if greater than one, enlarges each pixel into a Scale by
	// Scale block.
	Scale int
}

func quantizeImage(m image.Image, colors int) *image.Paletted {
	q := quantize.MedianCutQuantizer{}
	b := m.Bounds()
	pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, colors), m))
	draw.Draw(pm, b, m, b.Min, draw.Src)
	return pm
}

func scaleImage(m image.Image, s int) image.Image {
	b := m.Bounds()
	out := resize.Resize(uint(b.Dx()*s), uint(b.Dy()*s), m, resize.NearestNeighbor)

	// Nearest neighbour only ever copies existing colors so the result can
	// be mapped back onto the original palette exactly
	if pm, ok := m.(*image.Paletted); ok {
		dup := image.NewPaletted(out.Bounds(), pm.Palette)
		draw.Draw(dup, dup.Bounds(), out, out.Bounds().Min, draw.Src)
		return dup
	}

	return out
}

// Encode writes the image m to w as described by o.
func Encode(w io.Writer, m image.Image, o Options) error {
	switch {
	case o.Colors > maxColors:
		return errTooManyColors
	case o.Scale < 0:
		return errBadScale
	case o.Scale > 1:
		if b := m.Bounds(); b.Dx() > maxDimension/o.Scale || b.Dy() > maxDimension/o.Scale {
			return errScaleTooLarge
		}
	}

	if o.Scale > 1 {
		m = scaleImage(m, o.Scale)
	}

	if o.Colors > 0 {
		m = quantizeImage(m, o.Colors)
	}

	switch o.Format {
	case "", PNG:
		return png.Encode(w, m)
	case BMP:
		return bmp.Encode(w, m)
	case TIFF:
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	}

	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(o.Format))
}
