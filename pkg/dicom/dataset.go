package dicom

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
)

// DataSet is the collection of top-level data elements of one file, file meta
// elements included
type DataSet struct {
	Syntax   Syntax
	Elements map[Tag]*dicom.Element
}

// Has reports whether the data set contains an element for t
func (ds *DataSet) Has(t Tag) bool {
	_, ok := ds.Elements[t]
	return ok
}

// ByteOrder returns the byte order binary values were encoded with
func (ds *DataSet) ByteOrder() binary.ByteOrder {
	return ds.Syntax.Order
}

// Bytes returns the raw value field of a binary element. For pixel data this
// is the native sample buffer in the data set's byte order.
func (ds *DataSet) Bytes(t Tag) Optional[[]byte] {
	e, ok := ds.Elements[t]
	if !ok {
		return None[[]byte]()
	}
	switch e.Value.ValueType() {
	case dicom.PixelData:
		info := dicom.MustGetPixelDataInfo(e.Value)
		if !info.IntentionallyUnprocessed {
			return None[[]byte]()
		}
		return Some(info.UnprocessedValueData)
	case dicom.Bytes:
		return Some(dicom.MustGetBytes(e.Value))
	default:
		return None[[]byte]()
	}
}

// Uint16 returns the first value of a US element. Empty values are absent.
func (ds *DataSet) Uint16(t Tag) Optional[uint16] {
	e, ok := ds.Elements[t]
	if !ok || e.Value.ValueType() != dicom.Ints {
		return None[uint16]()
	}
	values := dicom.MustGetInts(e.Value)
	if len(values) == 0 {
		return None[uint16]()
	}
	return Some(uint16(values[0]))
}

// String returns the text value of t with padding removed. Empty values are absent.
func (ds *DataSet) String(t Tag) Optional[string] {
	values, ok := ds.strings(t)
	if !ok {
		return None[string]()
	}
	s := trimPadding(strings.Join(values, "\\"))
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// FloatString returns the index-th value of a decimal string (DS) element.
// Missing components and values that do not parse are absent.
func (ds *DataSet) FloatString(t Tag, index int) Optional[float64] {
	values, ok := ds.strings(t)
	if !ok || index < 0 || index >= len(values) {
		return None[float64]()
	}
	v, err := strconv.ParseFloat(trimPadding(values[index]), 64)
	if err != nil {
		return None[float64]()
	}
	return Some(v)
}

func (ds *DataSet) strings(t Tag) ([]string, bool) {
	e, ok := ds.Elements[t]
	if !ok || e.Value.ValueType() != dicom.Strings {
		return nil, false
	}
	return dicom.MustGetStrings(e.Value), true
}
