package reconstruction

import (
	"errors"
	"fmt"

	"dicomvolume/internal/models"
)

var (
	// ErrEmptyInput is returned when a consistency check is given no elements
	ErrEmptyInput = errors.New("empty input")

	// ErrTooFewSlices is returned when fewer than two slices reach the assembler
	ErrTooFewSlices = errors.New("need at least two slices")

	// ErrCoincidentSlices is returned when the first and last slice share a
	// position, leaving no stack direction to derive
	ErrCoincidentSlices = errors.New("first and last slice are at the same position")
)

// MissingFieldError reports a required attribute that is absent from a slice
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %s", e.Field)
}

// UnsupportedFormatError reports an attribute whose value falls outside what
// can be decoded: a bit depth other than 16, a non-HU rescale type or a
// compressed or deflated encoding
type UnsupportedFormatError struct {
	Field string
	Value string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported %s %s", e.Field, e.Value)
}

// SizeMismatchError reports pixel data whose sample count differs from
// rows*columns. TrailingBytes counts bytes left over after the last whole
// sample.
type SizeMismatchError struct {
	Expected      int
	Actual        int
	TrailingBytes int
}

func (e *SizeMismatchError) Error() string {
	if e.TrailingBytes > 0 {
		return fmt.Sprintf("unexpected image size: expected %d samples, got %d and %d trailing bytes",
			e.Expected, e.Actual, e.TrailingBytes)
	}
	return fmt.Sprintf("unexpected image size: expected %d samples, got %d", e.Expected, e.Actual)
}

// InconsistentValueError reports an attribute that differs between slices
type InconsistentValueError struct {
	Attribute string
	Value     any
}

func (e *InconsistentValueError) Error() string {
	return fmt.Sprintf("inconsistent value for %s: %v", e.Attribute, e.Value)
}

// GeometryMismatchError reports a slice that is not where uniform spacing puts it
type GeometryMismatchError struct {
	Index    int
	Expected models.Vec3
	Actual   models.Vec3
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("slice %d expected position was %v, but was found at %v", e.Index, e.Expected, e.Actual)
}

// SliceError attaches the originating file to a parse failure
type SliceError struct {
	Source string
	Err    error
}

func (e *SliceError) Error() string {
	return fmt.Sprintf("could not parse file %s: %v", e.Source, e.Err)
}

func (e *SliceError) Unwrap() error {
	return e.Err
}
