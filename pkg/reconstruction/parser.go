package reconstruction

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"dicomvolume/internal/models"
	"dicomvolume/pkg/dicom"
)

// hounsfieldRescaleType is the only RescaleType accepted when the tag is present
const hounsfieldRescaleType = "HU"

// ParseSlice decodes one DICOM file into a SliceRecord.
//
// All required attributes are checked before the pixel data is decoded:
// Columns, Rows, ImagePositionPatient, SliceLocation (falling back to the
// third position component), BitsAllocated (which must be 16), PixelSpacing,
// ImageOrientationPatient and PixelData. Raw samples are read as unsigned when
// PixelRepresentation is 0 and as signed otherwise, then rescaled to
// raw*slope+intercept.
//
// ParseSlice keeps no state between calls and is safe to run concurrently.
// Every error it returns is a *SliceError naming source.
func ParseSlice(data []byte, source string) (*models.SliceRecord, error) {
	slice, err := parseSlice(data)
	if err != nil {
		return nil, &SliceError{Source: source, Err: err}
	}
	slice.Source = source
	return slice, nil
}

func parseSlice(data []byte) (*models.SliceRecord, error) {
	ds, err := dicom.Parse(data)
	if err != nil {
		var unsupported *dicom.UnsupportedSyntaxError
		if errors.As(err, &unsupported) {
			return nil, &UnsupportedFormatError{Field: "encoding", Value: unsupported.Value}
		}
		return nil, fmt.Errorf("reading data set: %w", err)
	}

	columns, ok := ds.Uint16(dicom.Columns).Get()
	if !ok {
		return nil, &MissingFieldError{Field: "columns"}
	}
	rows, ok := ds.Uint16(dicom.Rows).Get()
	if !ok {
		return nil, &MissingFieldError{Field: "rows"}
	}

	position, ok := vectorAttribute(ds, dicom.ImagePositionPatient, 3)
	if !ok {
		return nil, &MissingFieldError{Field: "positionPatient"}
	}
	sliceLocation := ds.FloatString(dicom.SliceLocation, 0).OrElse(position[2])

	bitsAllocated, ok := ds.Uint16(dicom.BitsAllocated).Get()
	if !ok {
		return nil, &UnsupportedFormatError{Field: "bitsAllocated", Value: "absent"}
	}
	if bitsAllocated != 16 {
		return nil, &UnsupportedFormatError{Field: "bitsAllocated", Value: strconv.Itoa(int(bitsAllocated))}
	}

	spacing, ok := vectorAttribute(ds, dicom.PixelSpacing, 2)
	if !ok {
		return nil, &MissingFieldError{Field: "pixelSpacing"}
	}
	orientation, ok := vectorAttribute(ds, dicom.ImageOrientationPatient, 6)
	if !ok {
		return nil, &MissingFieldError{Field: "orientation"}
	}
	pixelData, ok := ds.Bytes(dicom.PixelData).Get()
	if !ok {
		return nil, &MissingFieldError{Field: "pixelData"}
	}

	// An absent PixelRepresentation is not 0 and so reads as signed.
	signed := ds.Uint16(dicom.PixelRepresentation).OrElse(1) != 0
	raw, err := decodeSamples(pixelData, ds.ByteOrder(), signed, int(columns)*int(rows))
	if err != nil {
		return nil, err
	}

	if rescaleType, ok := ds.String(dicom.RescaleType).Get(); ok && rescaleType != hounsfieldRescaleType {
		return nil, &UnsupportedFormatError{Field: "rescaleType", Value: rescaleType}
	}
	slope := ds.FloatString(dicom.RescaleSlope, 0).OrElse(1)
	intercept := ds.FloatString(dicom.RescaleIntercept, 0).OrElse(0)

	pixels := make([]float32, len(raw))
	for i, v := range raw {
		pixels[i] = float32(v*slope + intercept)
	}

	return &models.SliceRecord{
		Columns:         int(columns),
		Rows:            int(rows),
		SliceLocation:   sliceLocation,
		PixelSpacing:    [2]float64{spacing[0], spacing[1]},
		PositionPatient: models.Vec3{position[0], position[1], position[2]},
		ImageOrientationPatient: [2]models.Vec3{
			{orientation[0], orientation[1], orientation[2]},
			{orientation[3], orientation[4], orientation[5]},
		},
		Pixels: pixels,
	}, nil
}

// vectorAttribute reads the first n components of a multi-valued decimal
// string. It fails if any of them is absent.
func vectorAttribute(ds *dicom.DataSet, t dicom.Tag, n int) ([]float64, bool) {
	values := make([]float64, n)
	for i := range values {
		v, ok := ds.FloatString(t, i).Get()
		if !ok {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

// decodeSamples interprets native 16 bit pixel data in the given byte order.
// A buffer that does not hold exactly expected samples, a dangling odd byte
// included, is a SizeMismatchError.
func decodeSamples(data []byte, order binary.ByteOrder, signed bool, expected int) ([]float64, error) {
	count, trailing := len(data)/2, len(data)%2
	if count != expected || trailing != 0 {
		return nil, &SizeMismatchError{Expected: expected, Actual: count, TrailingBytes: trailing}
	}
	samples := make([]float64, count)
	for i := range samples {
		v := order.Uint16(data[2*i:])
		if signed {
			samples[i] = float64(int16(v))
		} else {
			samples[i] = float64(v)
		}
	}
	return samples, nil
}
