package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"math"
	"os"
	"text/tabwriter"

	"github.com/bodgit/binimage"
	"github.com/bodgit/binimage/layout"
	"github.com/bodgit/binimage/pixel"
	"github.com/bodgit/binimage/raster"
	"github.com/urfave/cli/v2"
)

const defaultOutput = "out.png"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

var conversionFlags = []cli.Flag{
	&cli.Uint64Flag{
		Name:  "width",
		Usage: "fix the image width in pixels",
	},
	&cli.Uint64Flag{
		Name:  "height",
		Usage: "fix the image height in pixels",
	},
	&cli.UintFlag{
		Name:  "bitdepth",
		Value: pixel.DefaultBitDepth,
		Usage: "bits per pixel, one of 1, 2, 4, 8 (grayscale), 12 or 24 (RGB)",
	},
	&cli.IntFlag{
		Name:  "colors",
		Usage: "reduce the image to a palette of at most this many colors",
	},
	&cli.IntFlag{
		Name:  "scale",
		Value: 1,
		Usage: "enlarge each pixel into a square of this size",
	},
	&cli.StringFlag{
		Name:  "format",
		Usage: "output format, one of png, bmp or tiff",
	},
}

func options(c *cli.Context) (binimage.Options, error) {
	if c.Uint("bitdepth") > 0xff {
		return binimage.Options{}, fmt.Errorf("%w: %d", pixel.ErrUnsupportedBitDepth, c.Uint("bitdepth"))
	}
	// Zero is a valid flag value but means unset further down
	if c.IsSet("width") && c.IsSet("height") {
		return binimage.Options{}, layout.ErrConflictingConstraints
	}
	if c.Uint64("width") > math.MaxUint32 || c.Uint64("height") > math.MaxUint32 {
		return binimage.Options{}, errors.New("width and height must fit in 32 bits")
	}

	o := binimage.Options{
		BitDepth: uint8(c.Uint("bitdepth")),
		Width:    uint32(c.Uint64("width")),
		Height:   uint32(c.Uint64("height")),
		Raster: raster.Options{
			Colors: c.Int("colors"),
			Scale:  c.Int("scale"),
		},
	}

	if c.IsSet("format") {
		f, err := raster.ParseFormat(c.String("format"))
		if err != nil {
			return binimage.Options{}, err
		}
		o.Raster.Format = f
	}

	return o, nil
}

func newBinImage(c *cli.Context) (*binimage.BinImage, io.Closer, error) {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}

	if c.String("db") == "" {
		return binimage.New(nil, logger), ioutil.NopCloser(nil), nil
	}

	db, err := binimage.NewHistoryDB(c.String("db"))
	if err != nil {
		return nil, nil, err
	}

	return binimage.New(db, logger), db, nil
}

func render(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	output := defaultOutput
	if c.NArg() == 2 {
		output = c.Args().Get(1)
	}

	o, err := options(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	b, closer, err := newBinImage(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer closer.Close()

	r, err := b.Convert(c.Args().First(), output, o)
	if err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintf(c.App.Writer, "%s: %s %s, %d bytes of padding\n", output, r.Dimensions, r.Format, r.Padding)

	return nil
}

func batch(c *cli.Context) error {
	if c.NArg() != 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	o, err := options(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	b, closer, err := newBinImage(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer closer.Close()

	if err := b.Batch(context.Background(), c.Args().Get(0), c.Args().Get(1), o); err != nil {
		return cli.Exit(err, 1)
	}

	return nil
}

func history(c *cli.Context) error {
	if c.NArg() > 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	if c.String("db") == "" {
		return cli.Exit("no history database, set --db or BINIMAGE_DB", 1)
	}

	db, err := binimage.NewHistoryDB(c.String("db"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer db.Close()

	var conversions []binimage.Conversion
	if c.NArg() == 1 {
		conversions, err = db.FindBySHA1(c.Args().First())
	} else {
		conversions, err = db.List()
	}
	if err != nil {
		return cli.Exit(err, 1)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 8, 1, ' ', 0)
	fmt.Fprintln(w, "CREATED\tSHA1\tFORMAT\tSIZE\tPADDING\tINPUT\tOUTPUT")
	for _, conv := range conversions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%d\t%s\t%s\n", conv.Created.Format("2006-01-02 15:04:05"), conv.SHA1, conv.Format, conv.Width, conv.Height, conv.Padding, conv.Input, conv.Output)
	}

	return w.Flush()
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "binimage"
	app.Usage = "Create an image from the binary data of a file"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"BINIMAGE_DB"},
			Usage:   "path to conversion history database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "render",
			Usage:       "Render a file as an image",
			Description: "The output defaults to " + defaultOutput + " and its format follows the extension unless --format is given. Inputs ending in .zst are decompressed and .cue sheets render their first data track.",
			ArgsUsage:   "INPUT [OUTPUT]",
			Flags:       conversionFlags,
			Action:      render,
		},
		{
			Name:        "batch",
			Usage:       "Render every file in a directory",
			Description: "",
			ArgsUsage:   "DIRECTORY OUTDIR",
			Flags:       conversionFlags,
			Action:      batch,
		},
		{
			Name:        "history",
			Usage:       "List recorded conversions",
			Description: "",
			ArgsUsage:   "[SHA1]",
			Action:      history,
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
