package dicom

import (
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Tag identifies a data element by group and element number
type Tag = tag.Tag

// Tags read by the slice parser, taken from the standard data dictionary.
var (
	TransferSyntaxUID       = tag.TransferSyntaxUID
	SliceLocation           = tag.SliceLocation
	Rows                    = tag.Rows
	Columns                 = tag.Columns
	BitsAllocated           = tag.BitsAllocated
	PixelRepresentation     = tag.PixelRepresentation
	ImagePositionPatient    = tag.ImagePositionPatient
	ImageOrientationPatient = tag.ImageOrientationPatient
	PixelSpacing            = tag.PixelSpacing
	PixelData               = tag.PixelData
	RescaleType             = tag.RescaleType
	RescaleIntercept        = tag.RescaleIntercept
	RescaleSlope            = tag.RescaleSlope
)
