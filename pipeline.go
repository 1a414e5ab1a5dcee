package binimage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/bodgit/binimage/raster"
)

type job struct {
	in, out string
}

func (b *BinImage) findFiles(ctx context.Context, base, outDir string, ext string) (<-chan job, <-chan error, error) {
	out := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Don't pick up our own output
			if info.Mode().IsDir() && file == outDir {
				return filepath.SkipDir
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if file != base && info.Name()[0] == '.' {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			rel, err := filepath.Rel(base, file)
			if err != nil {
				return err
			}

			select {
			case out <- job{in: file, out: filepath.Join(outDir, rel+ext)}:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (b *BinImage) convertWorker(ctx context.Context, in <-chan job, o Options) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for j := range in {
			if err := ctx.Err(); err != nil {
				errc <- err
				return
			}

			if err := os.MkdirAll(filepath.Dir(j.out), 0755); err != nil {
				errc <- err
				return
			}

			if _, err := b.Convert(j.in, j.out, o); err != nil {
				errc <- &PathError{Path: j.in, Err: err}
				return
			}
		}
	}()
	return errc, nil
}

// PathError records the input file whose conversion failed.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Batch converts every regular file below dir into an image under outDir,
// keeping the relative path and appending the extension of the output
// format, so a.bin becomes a.bin.png. Hidden files and directories are skipped. Files are
// converted concurrently and the first failure stops the batch.
func (b *BinImage) Batch(ctx context.Context, dir, outDir string, o Options) error {
	base, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	if outDir, err = filepath.Abs(outDir); err != nil {
		return err
	}

	if o.Raster.Format == "" {
		o.Raster.Format = raster.PNG
	}

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	var errcList []<-chan error

	jobs, errc, err := b.findFiles(ctx, base, outDir, o.Raster.Format.Ext())
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	for i := 0; i < runtime.NumCPU(); i++ {
		errc, err := b.convertWorker(ctx, jobs, o)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
