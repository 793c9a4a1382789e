package reconstruction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicomvolume/internal/models"
	"dicomvolume/pkg/dicom"
	"dicomvolume/pkg/dicom/dicomtest"
)

// createTestSlices writes n axial 2x2 slices one millimetre apart into dir.
// File names are chosen so lexical order is the reverse of anatomical order.
func createTestSlices(t *testing.T, dir string, n int) []string {
	t.Helper()
	var files []string
	for i := 0; i < n; i++ {
		v := uint16(10 * i)
		elems := dicomtest.CTSlice(2, 2, [3]float64{-5, 12, float64(i)}, v, v+1, v+2, v+3)
		path := filepath.Join(dir, fmt.Sprintf("slice_%03d.dcm", n-i))
		require.NoError(t, dicomtest.WriteFile(path, elems))
		files = append(files, path)
	}
	return files
}

func TestReconstructorLoad(t *testing.T) {
	dir := t.TempDir()
	files := createTestSlices(t, dir, 5)

	var logs bytes.Buffer
	r := NewReconstructor(Params{NumWorkers: 2, Logger: log.New(&logs, "", 0)})

	vol, err := r.Load(context.Background(), files)
	require.NoError(t, err)

	assert.Equal(t, 5, vol.Slices)
	assert.Equal(t, models.Vec3{1, 1, 1}, vol.PixelSpacing)
	assert.Equal(t, models.Vec3{-5, 12, 0}, vol.PositionPatient)
	require.Len(t, vol.Volume, 20)
	for z := 0; z < vol.Slices; z++ {
		assert.Equal(t, float32(10*z), vol.At(0, 0, z), "slice %d", z)
		assert.Equal(t, float32(10*z+3), vol.At(1, 1, z), "slice %d", z)
	}
	assert.Contains(t, logs.String(), "Loaded 5 slices with dimensions 2x2")
}

func TestReconstructorLoadFailsAtomically(t *testing.T) {
	dir := t.TempDir()
	files := createTestSlices(t, dir, 4)

	bad := filepath.Join(dir, "bad.dcm")
	elems := dicomtest.Without(dicomtest.CTSlice(2, 2, [3]float64{0, 0, 9}, 0, 0, 0, 0), dicom.Rows)
	require.NoError(t, dicomtest.WriteFile(bad, elems))
	files = append(files, bad)

	vol, err := NewReconstructor(Params{NumWorkers: 3}).Load(context.Background(), files)
	assert.Nil(t, vol)

	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, "rows", missing.Field)

	var sliceErr *SliceError
	require.True(t, errors.As(err, &sliceErr))
	assert.Equal(t, bad, sliceErr.Source)
}

func TestReconstructorLoadMissingFile(t *testing.T) {
	files := createTestSlices(t, t.TempDir(), 2)
	files = append(files, filepath.Join(t.TempDir(), "gone.dcm"))

	_, err := NewReconstructor(Params{}).Load(context.Background(), files)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReconstructorBoundsConcurrency(t *testing.T) {
	files := createTestSlices(t, t.TempDir(), 12)

	var inFlight, peak int32
	var mu sync.Mutex
	readFile := func(path string) ([]byte, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return os.ReadFile(path)
	}

	vol, err := NewReconstructor(Params{NumWorkers: 3, ReadFile: readFile}).Load(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 12, vol.Slices)
	assert.LessOrEqual(t, peak, int32(3))
}

func TestReconstructorAssemblyNeedsEveryParse(t *testing.T) {
	files := createTestSlices(t, t.TempDir(), 3)

	// a geometry error in the files must never mask a read error
	readErr := errors.New("storage unavailable")
	readFile := func(path string) ([]byte, error) {
		if path == files[1] {
			return nil, readErr
		}
		return os.ReadFile(path)
	}

	_, err := NewReconstructor(Params{NumWorkers: 1, ReadFile: readFile}).Load(context.Background(), files)
	assert.ErrorIs(t, err, readErr)
}

func TestReconstructorCancelled(t *testing.T) {
	files := createTestSlices(t, t.TempDir(), 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReconstructor(Params{}).Load(ctx, files)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconstructorPositionTolerance(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i, z := range []float64{0, 1.004, 2} {
		path := filepath.Join(dir, fmt.Sprintf("%d.dcm", i))
		require.NoError(t, dicomtest.WriteFile(path, dicomtest.CTSlice(1, 1, [3]float64{0, 0, z}, 0)))
		files = append(files, path)
	}

	_, err := NewReconstructor(Params{}).Load(context.Background(), files)
	var mismatch *GeometryMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)

	_, err = NewReconstructor(Params{PositionTolerance: 0.01}).Load(context.Background(), files)
	assert.NoError(t, err)
}
