package reconstruction

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"dicomvolume/internal/models"
)

// DefaultPositionTolerance is the largest per-component distance, in
// millimetres, between a slice's position and the position implied by uniform
// spacing
const DefaultPositionTolerance = 0.001

// AssembleOptions controls geometric validation during assembly
type AssembleOptions struct {
	// PositionTolerance overrides DefaultPositionTolerance when positive
	PositionTolerance float64
}

func (o AssembleOptions) tolerance() float64 {
	if o.PositionTolerance > 0 {
		return o.PositionTolerance
	}
	return DefaultPositionTolerance
}

// Assemble stacks slices of one study into an ImageVolume.
//
// Slices are stably sorted by SliceLocation and must agree exactly on
// columns, rows, in-plane pixel spacing and in-plane orientation. The
// inter-slice displacement is taken from the first and last slice; every slice
// must then lie within the position tolerance of first + i*displacement. The
// third orientation axis is the normalised displacement. It is not checked
// for orthogonality against the in-plane axes.
//
// The input slice is reordered in place. Any failure aborts assembly and no
// partial volume is returned.
func Assemble(slices []*models.SliceRecord, opts AssembleOptions) (*models.ImageVolume, error) {
	if len(slices) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewSlices, len(slices))
	}

	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].SliceLocation < slices[j].SliceLocation
	})

	first := slices[0]
	last := slices[len(slices)-1]

	if _, err := ConsistentValue(slices, "columns", func(s *models.SliceRecord) int { return s.Columns }); err != nil {
		return nil, err
	}
	if _, err := ConsistentValue(slices, "rows", func(s *models.SliceRecord) int { return s.Rows }); err != nil {
		return nil, err
	}
	if _, err := ConsistentValue(slices, "pixelSpacing", func(s *models.SliceRecord) [2]float64 { return s.PixelSpacing }); err != nil {
		return nil, err
	}
	if _, err := ConsistentValue(slices, "imageOrientationPatient", func(s *models.SliceRecord) [2]models.Vec3 { return s.ImageOrientationPatient }); err != nil {
		return nil, err
	}

	origin := first.PositionPatient.R3()
	displacement := r3.Scale(1/float64(len(slices)-1), r3.Sub(last.PositionPatient.R3(), origin))
	spacingZ := r3.Norm(displacement)

	tolerance := opts.tolerance()
	for i, slice := range slices {
		expected := models.FromR3(r3.Add(origin, r3.Scale(float64(i), displacement)))
		actual := slice.PositionPatient
		for axis := range expected {
			if math.Abs(actual[axis]-expected[axis]) > tolerance {
				return nil, &GeometryMismatchError{Index: i, Expected: expected, Actual: actual}
			}
		}
	}

	if spacingZ == 0 {
		return nil, ErrCoincidentSlices
	}
	normal := r3.Scale(1/spacingZ, displacement)

	sliceSize := first.Columns * first.Rows
	volume := make([]float32, sliceSize*len(slices))
	for i, slice := range slices {
		if len(slice.Pixels) != sliceSize {
			return nil, &SizeMismatchError{Expected: sliceSize, Actual: len(slice.Pixels)}
		}
		copy(volume[i*sliceSize:], slice.Pixels)
	}

	return &models.ImageVolume{
		Metadata: models.Metadata{
			Columns:         first.Columns,
			Rows:            first.Rows,
			Slices:          len(slices),
			PixelSpacing:    models.Vec3{first.PixelSpacing[0], first.PixelSpacing[1], spacingZ},
			PositionPatient: first.PositionPatient,
			ImageOrientationPatient: [3]models.Vec3{
				first.ImageOrientationPatient[0],
				first.ImageOrientationPatient[1],
				models.FromR3(normal),
			},
		},
		Volume: volume,
	}, nil
}
