package visualization

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"dicomvolume/internal/models"
)

// createTestVolume builds a volume whose voxel value is x + 10*y + 100*z
func createTestVolume(columns, rows, slices int) *models.ImageVolume {
	vol := &models.ImageVolume{
		Metadata: models.Metadata{Columns: columns, Rows: rows, Slices: slices},
		Volume:   make([]float32, columns*rows*slices),
	}
	for z := 0; z < slices; z++ {
		for y := 0; y < rows; y++ {
			for x := 0; x < columns; x++ {
				vol.Volume[z*columns*rows+y*columns+x] = float32(x + 10*y + 100*z)
			}
		}
	}
	return vol
}

// TestWindowGray verifies the linear intensity mapping and clamping
func TestWindowGray(t *testing.T) {
	w := Window{Center: 40, Width: 400}

	tests := []struct {
		value float32
		want  uint16
	}{
		{-1000, 0},
		{-160, 0},
		{40, 32768},
		{240, 65535},
		{3000, 65535},
	}
	for _, tc := range tests {
		if got := w.Gray(tc.value); got != tc.want {
			t.Errorf("Gray(%v) = %d, want %d", tc.value, got, tc.want)
		}
	}

	if got := (Window{}).Gray(10); got != 0 {
		t.Errorf("Expected zero-width window to map to black, got %d", got)
	}
}

// TestComputeStats verifies the summary statistics of a volume
func TestComputeStats(t *testing.T) {
	vol := createTestVolume(2, 2, 2)

	s := ComputeStats(vol)
	if s.Min != 0 || s.Max != 111 {
		t.Errorf("Expected range [0, 111], got [%v, %v]", s.Min, s.Max)
	}
	if s.Mean != 55.5 {
		t.Errorf("Expected mean 55.5, got %v", s.Mean)
	}
	if s.P01 != 0 || s.P99 != 111 {
		t.Errorf("Expected percentiles 0 and 111 for 8 voxels, got %v and %v", s.P01, s.P99)
	}
}

// TestNewViewerAutoWindow verifies that a zero-width window is derived from the volume
func TestNewViewerAutoWindow(t *testing.T) {
	viewer := NewViewer(createTestVolume(2, 2, 2), Window{})

	w := viewer.Window()
	if w.Center != 55.5 || w.Width != 111 {
		t.Errorf("Expected auto window 55.5/111, got %v/%v", w.Center, w.Width)
	}

	flat := &models.ImageVolume{Metadata: models.Metadata{Columns: 1, Rows: 1, Slices: 2}, Volume: []float32{7, 7}}
	if w := AutoWindow(flat); w.Width != 1 || w.Center != 7 {
		t.Errorf("Expected unit window around 7 for a flat volume, got %v", w)
	}
}

// TestExtractSlice verifies that slices are correctly extracted along every axis
func TestExtractSlice(t *testing.T) {
	columns, rows, slices := 4, 3, 2
	vol := createTestVolume(columns, rows, slices)
	// identity-like window: grey level = value * 65535 / 256 for values in [0, 256]
	viewer := NewViewer(vol, Window{Center: 128, Width: 256})

	tests := []struct {
		axis       string
		position   int
		dx, dy     int
		px, py     int
		wantSource float32
	}{
		{"z", 1, columns, rows, 3, 2, vol.At(3, 2, 1)},
		{"x", 2, slices, rows, 1, 1, vol.At(2, 1, 1)},
		{"y", 0, columns, slices, 3, 1, vol.At(3, 0, 1)},
	}

	for _, tc := range tests {
		img, err := viewer.ExtractSlice(tc.axis, tc.position)
		if err != nil {
			t.Fatalf("Failed to extract %s slice at position %d: %v", tc.axis, tc.position, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != tc.dx || bounds.Dy() != tc.dy {
			t.Errorf("Expected %s slice dimensions %dx%d, got %dx%d", tc.axis, tc.dx, tc.dy, bounds.Dx(), bounds.Dy())
		}

		gray, ok := img.(*image.Gray16)
		if !ok {
			t.Fatalf("Expected *image.Gray16, got %T", img)
		}
		want := viewer.Window().Gray(tc.wantSource)
		if got := gray.Gray16At(tc.px, tc.py).Y; got != want {
			t.Errorf("Expected %s slice value %d at (%d,%d), got %d", tc.axis, want, tc.px, tc.py, got)
		}
	}

	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractSlice("z", slices); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("x", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestExtractRegion verifies that 3D regions are correctly extracted
func TestExtractRegion(t *testing.T) {
	columns, rows, slices := 5, 4, 3
	vol := createTestVolume(columns, rows, slices)
	viewer := NewViewer(vol, Window{Center: 0, Width: 1})

	startX, startY, startZ := 1, 2, 1
	sizeX, sizeY, sizeZ := 3, 2, 2

	region, err := viewer.ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ)
	if err != nil {
		t.Fatalf("Failed to extract region: %v", err)
	}

	if len(region) != sizeX*sizeY*sizeZ {
		t.Fatalf("Expected region size %d, got %d", sizeX*sizeY*sizeZ, len(region))
	}

	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				got := region[z*sizeX*sizeY+y*sizeX+x]
				want := vol.At(startX+x, startY+y, startZ+z)
				if got != want {
					t.Errorf("Region value mismatch at (%d,%d,%d): expected %v, got %v", x, y, z, want, got)
				}
			}
		}
	}

	if _, err := viewer.ExtractRegion(-1, 0, 0, 1, 1, 1); err == nil {
		t.Error("Expected error for negative start coordinate, got nil")
	}
	if _, err := viewer.ExtractRegion(0, 0, 0, 0, 1, 1); err == nil {
		t.Error("Expected error for zero size, got nil")
	}
	if _, err := viewer.ExtractRegion(columns-1, 0, 0, 2, 1, 1); err == nil {
		t.Error("Expected error for region extending beyond volume, got nil")
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	vol := createTestVolume(5, 5, 3)
	viewer := NewViewer(vol, Window{})

	for _, format := range []string{"png", "jpeg"} {
		outputDir := filepath.Join(t.TempDir(), "slices")
		if err := viewer.SaveSliceSequence("z", outputDir, format); err != nil {
			t.Fatalf("Failed to save %s slice sequence: %v", format, err)
		}

		for z := 0; z < vol.Slices; z++ {
			filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.%s", z, format))
			if _, err := os.Stat(filename); os.IsNotExist(err) {
				t.Errorf("Expected slice file does not exist: %s", filename)
			}
		}
	}

	if err := viewer.SaveSliceSequence("invalid", t.TempDir(), "png"); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if err := viewer.SaveSliceSequence("z", t.TempDir(), "tiff"); err == nil {
		t.Error("Expected error for unsupported format, got nil")
	}
}
