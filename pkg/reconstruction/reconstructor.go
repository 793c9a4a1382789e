package reconstruction

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"dicomvolume/internal/models"
)

// Params holds the reconstruction parameters.
type Params struct {
	// NumWorkers bounds how many files are read and parsed at once.
	// Zero means runtime.NumCPU().
	NumWorkers int

	// PositionTolerance is passed to Assemble. Zero means DefaultPositionTolerance.
	PositionTolerance float64

	// ReadFile loads one slice file. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)

	// Logger receives one summary line per loaded study. Nil disables logging.
	Logger *log.Logger
}

// Reconstructor turns the files of one study into an ImageVolume.
//
// Loading happens in two phases:
// 1. Every file is read and parsed by a bounded pool of workers
// 2. Once all parses have succeeded, the slices are assembled on the calling goroutine
//
// If any file fails to read or parse, assembly never starts and the first
// error is returned.
type Reconstructor struct {
	params Params
}

// NewReconstructor creates a new reconstructor with the provided parameters.
func NewReconstructor(params Params) *Reconstructor {
	if params.NumWorkers <= 0 {
		params.NumWorkers = runtime.NumCPU()
	}
	if params.ReadFile == nil {
		params.ReadFile = os.ReadFile
	}
	return &Reconstructor{params: params}
}

// Load reads, parses and assembles the given slice files. The order of files
// does not matter; slices are ordered by their SliceLocation.
func (r *Reconstructor) Load(ctx context.Context, files []string) (*models.ImageVolume, error) {
	start := time.Now()

	slices, err := r.parseAll(ctx, files)
	if err != nil {
		return nil, err
	}

	volume, err := Assemble(slices, AssembleOptions{PositionTolerance: r.params.PositionTolerance})
	if err != nil {
		return nil, err
	}

	if r.params.Logger != nil {
		r.params.Logger.Printf("Loaded %d slices with dimensions %dx%d, spacing %.3f/%.3f/%.3f mm in %s",
			volume.Slices, volume.Columns, volume.Rows,
			volume.PixelSpacing[0], volume.PixelSpacing[1], volume.PixelSpacing[2],
			time.Since(start).Round(time.Millisecond))
	}
	return volume, nil
}

// parseAll fans out one task per file and waits for all of them. Each task
// writes only its own result slot.
func (r *Reconstructor) parseAll(ctx context.Context, files []string) ([]*models.SliceRecord, error) {
	slices := make([]*models.SliceRecord, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.params.NumWorkers)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := r.params.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading slice %s: %w", file, err)
			}
			slice, err := ParseSlice(data, file)
			if err != nil {
				return err
			}
			slices[i] = slice
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices, nil
}
