/*
Package binimage is a library for rendering the raw bytes of any file as a
raster image.

The bytes are packed into pixels of the requested bit depth, the image is
sized to hold every byte, and the buffer is padded with zero bytes so that it
fills the image exactly.
*/
package binimage

import (
	"log"
	"os"
	"path/filepath"

	"github.com/bodgit/binimage/layout"
	"github.com/bodgit/binimage/pixel"
	"github.com/bodgit/binimage/raster"
	"github.com/bodgit/binimage/source"
	"github.com/pkg/errors"
)

// Options control a single conversion.
type Options struct {
	// BitDepth is the bit depth code, see pixel.FromBitDepth.
	BitDepth uint8
	// Width and Height optionally fix one axis of the image. Zero means
	// unset and setting both is an error.
	Width  uint32
	Height uint32
	Raster raster.Options
}

// Result describes a prepared buffer.
type Result struct {
	Format     pixel.Format
	Dimensions layout.Dimensions
	// Length is the size of the original buffer
	Length  uint64
	Padding uint64
	// Buffer is the original buffer followed by Padding zero bytes
	Buffer []byte
}

// Prepare resolves the pixel format and dimensions for buf and pads it to
// fill the image exactly. Ownership of buf passes to the returned Result.
func Prepare(buf []byte, o Options) (*Result, error) {
	f, err := pixel.FromBitDepth(o.BitDepth)
	if err != nil {
		return nil, errors.Wrap(err, "resolve pixel format")
	}

	length := uint64(len(buf))

	d, err := layout.Solve(length, f, layout.Constraint{Width: o.Width, Height: o.Height})
	if err != nil {
		return nil, errors.Wrap(err, "solve dimensions")
	}

	padding, err := layout.Padding(length, d, f)
	if err != nil {
		return nil, errors.Wrap(err, "compute padding")
	}

	// Add any extra bytes onto the end as black pixels
	buf = append(buf, make([]byte, padding)...)

	return &Result{
		Format:     f,
		Dimensions: d,
		Length:     length,
		Padding:    padding,
		Buffer:     buf,
	}, nil
}

// BinImage converts files to images, optionally recording each conversion.
type BinImage struct {
	db     *HistoryDB
	logger *log.Logger
}

// New returns a BinImage. db may be nil to disable the history.
func New(db *HistoryDB, logger *log.Logger) *BinImage {
	return &BinImage{
		db:     db,
		logger: logger,
	}
}

func writeImage(file string, r *Result, o raster.Options) (err error) {
	m, err := raster.Image(r.Buffer, r.Dimensions, r.Format)
	if err != nil {
		return err
	}

	if o.Format == "" {
		if o.Format, err = raster.FormatFromPath(file); err != nil {
			return err
		}
	}

	// Write to a temporary file so a failure never leaves a partial image
	f, err := os.CreateTemp(filepath.Dir(file), ".binimage-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = raster.Encode(f, m, o); err != nil {
		return err
	}

	// CreateTemp is owner only, match what os.Create would give
	if err = f.Chmod(0644); err != nil {
		return err
	}

	if err = f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), file)
}

// Convert renders the file in as an image written to out. The image format
// is taken from the extension of out unless o.Raster.Format is set.
func (b *BinImage) Convert(in, out string, o Options) (*Result, error) {
	buf, err := source.ReadFile(in)
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}

	sha := source.Digest(buf)

	r, err := Prepare(buf, o)
	if err != nil {
		return nil, err
	}

	if err := writeImage(out, r, o.Raster); err != nil {
		return nil, errors.Wrap(err, "write image")
	}

	b.logger.Printf("%s: %d bytes as %s %s with %d bytes of padding\n", in, r.Length, r.Dimensions, r.Format, r.Padding)

	if b.db != nil {
		if _, err := b.db.Record(Conversion{
			SHA1:    sha,
			Input:   in,
			Output:  out,
			Format:  r.Format.String(),
			Width:   r.Dimensions.Width,
			Height:  r.Dimensions.Height,
			Length:  r.Length,
			Padding: r.Padding,
		}); err != nil {
			return nil, errors.Wrap(err, "record conversion")
		}
	}

	return r, nil
}
