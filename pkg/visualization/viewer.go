package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"dicomvolume/internal/models"
)

// Window maps physical intensities onto display grey levels. Values below
// Center-Width/2 are black and values above Center+Width/2 are white.
type Window struct {
	Center float64
	Width  float64
}

// Gray maps an intensity to a 16 bit grey level
func (w Window) Gray(v float32) uint16 {
	if w.Width <= 0 {
		return 0
	}
	low := w.Center - w.Width/2
	t := (float64(v) - low) / w.Width
	return uint16(math.Round(math.Max(0, math.Min(1, t)) * 65535))
}

// Stats summarises the intensities of a volume
type Stats struct {
	Min, Max, Mean float64
	// P01 and P99 are the 1st and 99th percentiles
	P01, P99 float64
}

// ComputeStats returns intensity statistics of vol
func ComputeStats(vol *models.ImageVolume) Stats {
	if len(vol.Volume) == 0 {
		return Stats{}
	}
	values := make([]float64, len(vol.Volume))
	for i, v := range vol.Volume {
		values[i] = float64(v)
	}
	sort.Float64s(values)
	return Stats{
		Min:  floats.Min(values),
		Max:  floats.Max(values),
		Mean: stat.Mean(values, nil),
		P01:  stat.Quantile(0.01, stat.Empirical, values, nil),
		P99:  stat.Quantile(0.99, stat.Empirical, values, nil),
	}
}

// AutoWindow spans the 1st to 99th percentile of the volume's intensities
func AutoWindow(vol *models.ImageVolume) Window {
	s := ComputeStats(vol)
	width := s.P99 - s.P01
	if width <= 0 {
		width = 1
	}
	return Window{Center: (s.P01 + s.P99) / 2, Width: width}
}

// Viewer extracts 2D views from an assembled volume
type Viewer struct {
	vol    *models.ImageVolume
	window Window
}

// NewViewer creates a viewer. A window with zero width is derived from the volume.
func NewViewer(vol *models.ImageVolume, window Window) *Viewer {
	if window.Width == 0 {
		window = AutoWindow(vol)
	}
	return &Viewer{vol: vol, window: window}
}

// Window returns the intensity window used for rendering
func (v *Viewer) Window() Window {
	return v.window
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis.
// Axis x gives a slices-by-rows image, y gives columns-by-slices and z gives
// one of the original slices.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	columns, rows, depth := v.vol.Columns, v.vol.Rows, v.vol.Slices
	var img *image.Gray16

	switch axis {
	case "x", "X":
		if position >= columns {
			return nil, fmt.Errorf("position %d exceeds columns %d", position, columns)
		}
		img = image.NewGray16(image.Rect(0, 0, depth, rows))
		for y := 0; y < rows; y++ {
			for z := 0; z < depth; z++ {
				img.SetGray16(z, y, color.Gray16{Y: v.window.Gray(v.vol.At(position, y, z))})
			}
		}

	case "y", "Y":
		if position >= rows {
			return nil, fmt.Errorf("position %d exceeds rows %d", position, rows)
		}
		img = image.NewGray16(image.Rect(0, 0, columns, depth))
		for z := 0; z < depth; z++ {
			for x := 0; x < columns; x++ {
				img.SetGray16(x, z, color.Gray16{Y: v.window.Gray(v.vol.At(x, position, z))})
			}
		}

	case "z", "Z":
		if position >= depth {
			return nil, fmt.Errorf("position %d exceeds slices %d", position, depth)
		}
		img = image.NewGray16(image.Rect(0, 0, columns, rows))
		for y := 0; y < rows; y++ {
			for x := 0; x < columns; x++ {
				img.SetGray16(x, y, color.Gray16{Y: v.window.Gray(v.vol.At(x, y, position))})
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// ExtractRegion extracts a 3D subregion from the volume in the volume's
// slice-major, row-major order
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) ([]float32, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	if startX+sizeX > v.vol.Columns || startY+sizeY > v.vol.Rows || startZ+sizeZ > v.vol.Slices {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]float32, 0, sizeX*sizeY*sizeZ)
	for z := startZ; z < startZ+sizeZ; z++ {
		for y := startY; y < startY+sizeY; y++ {
			row := z*v.vol.SliceSize() + y*v.vol.Columns
			region = append(region, v.vol.Volume[row+startX:row+startX+sizeX]...)
		}
	}

	return region, nil
}

// SaveSlice saves an extracted slice, choosing PNG or JPEG from the file extension
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	case ".png":
		return png.Encode(file, img)
	default:
		return fmt.Errorf("unsupported image extension for %s", filename)
	}
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis, outputDir, format string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.vol.Columns
	case "y", "Y":
		maxPos = v.vol.Rows
	case "z", "Z":
		maxPos = v.vol.Slices
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", axis, pos, format))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
