package models

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a point or direction in patient space, in millimetres
type Vec3 [3]float64

// R3 converts the vector to gonum's r3 representation for arithmetic
func (v Vec3) R3() r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// FromR3 converts a gonum r3 vector back to a Vec3
func FromR3(v r3.Vec) Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}

// SliceRecord represents a single decoded cross-sectional slice with its geometry.
// It is produced independently per input file and discarded once its pixels
// have been copied into an ImageVolume.
type SliceRecord struct {
	// Source is the file reference the slice was read from
	Source string

	// Columns and Rows are the in-plane dimensions of the slice
	Columns int
	Rows    int

	// SliceLocation is the scalar key used to order slices within a study
	SliceLocation float64

	// PixelSpacing is the in-plane spacing as read from the file (x, y)
	PixelSpacing [2]float64

	// PositionPatient is the patient-space coordinate of the first transmitted pixel
	PositionPatient Vec3

	// ImageOrientationPatient holds the row and column direction cosines
	ImageOrientationPatient [2]Vec3

	// Pixels holds rows*columns rescaled samples in row-major order
	Pixels []float32
}

// Metadata describes the geometry of an ImageVolume without its voxel buffer.
// It is the structure sent alongside the raw buffer across the transfer boundary.
type Metadata struct {
	Columns                 int     `json:"columns"`
	Rows                    int     `json:"rows"`
	Slices                  int     `json:"slices"`
	PixelSpacing            Vec3    `json:"pixelSpacing"`
	PositionPatient         Vec3    `json:"positionPatient"`
	ImageOrientationPatient [3]Vec3 `json:"imageOrientationPatient"`
}

// ImageVolume represents a 3D scalar volume assembled from a stack of slices.
// Volume is ordered slice-major, then row-major, then column. An ImageVolume
// must not be mutated once constructed.
type ImageVolume struct {
	Metadata

	// Volume is the flat voxel buffer of Columns*Rows*Slices samples
	Volume []float32
}

// SliceSize returns the number of voxels in one slice of the volume
func (v *ImageVolume) SliceSize() int {
	return v.Columns * v.Rows
}

// At returns the voxel at column x, row y, slice z
func (v *ImageVolume) At(x, y, z int) float32 {
	return v.Volume[z*v.SliceSize()+y*v.Columns+x]
}
