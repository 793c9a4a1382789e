// Package dicomtest builds DICOM Part 10 files in memory for tests.
package dicomtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"sort"
	"strconv"

	sdicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/dicomio"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"dicomvolume/pkg/dicom"
)

// Element is a data element whose encoding may depend on the byte order
type Element struct {
	Tag   dicom.Tag
	build func(order binary.ByteOrder) (*sdicom.Element, error)
}

// Options controls how Encode lays out the file
type Options struct {
	Syntax     dicom.Syntax
	NoPreamble bool
}

func newElement(t dicom.Tag, data any) Element {
	return Element{Tag: t, build: func(binary.ByteOrder) (*sdicom.Element, error) {
		return sdicom.NewElement(t, data)
	}}
}

// US returns an unsigned short element
func US(t dicom.Tag, values ...int) Element {
	return newElement(t, values)
}

// DS returns a decimal string element
func DS(t dicom.Tag, values ...float64) Element {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return newElement(t, parts)
}

// Text returns a string element with the VR of the data dictionary
func Text(t dicom.Tag, value string) Element {
	return newElement(t, []string{value})
}

// PixelData returns native 16 bit pixel data
func PixelData(samples ...uint16) Element {
	return Element{Tag: dicom.PixelData, build: func(order binary.ByteOrder) (*sdicom.Element, error) {
		raw := make([]byte, 2*len(samples))
		for i, s := range samples {
			order.PutUint16(raw[2*i:], s)
		}
		return sdicom.NewElement(dicom.PixelData, sdicom.PixelDataInfo{
			IntentionallyUnprocessed: true,
			UnprocessedValueData:     raw,
		})
	}}
}

// EncapsulatedPixelData returns undefined length pixel data holding one
// fragment per frame
func EncapsulatedPixelData(frames ...[]byte) Element {
	return Element{Tag: dicom.PixelData, build: func(binary.ByteOrder) (*sdicom.Element, error) {
		info := sdicom.PixelDataInfo{IsEncapsulated: true}
		for _, data := range frames {
			info.Frames = append(info.Frames, &frame.Frame{
				Encapsulated:     true,
				EncapsulatedData: frame.EncapsulatedFrame{Data: data},
			})
		}
		e, err := sdicom.NewElement(dicom.PixelData, info)
		if err != nil {
			return nil, err
		}
		e.ValueLength = tag.VLUndefinedLength
		return e, nil
	}}
}

// Sequence returns a sequence element with one item per entry of items
func Sequence(t dicom.Tag, items ...[]Element) Element {
	return Element{Tag: t, build: func(order binary.ByteOrder) (*sdicom.Element, error) {
		built := make([][]*sdicom.Element, len(items))
		for i, item := range items {
			elems, err := buildAll(item, order)
			if err != nil {
				return nil, err
			}
			built[i] = elems
		}
		return sdicom.NewElement(t, built)
	}}
}

// Signed returns the two's complement encoding of signed samples
func Signed(samples ...int16) []uint16 {
	out := make([]uint16, len(samples))
	for i, s := range samples {
		out[i] = uint16(s)
	}
	return out
}

// Without returns elems minus any element for t
func Without(elems []Element, t dicom.Tag) []Element {
	out := make([]Element, 0, len(elems))
	for _, e := range elems {
		if e.Tag != t {
			out = append(out, e)
		}
	}
	return out
}

// With returns elems with e replacing any element that has the same tag
func With(elems []Element, e Element) []Element {
	return append(Without(elems, e.Tag), e)
}

// CTSlice returns the elements of a minimal CT slice with identity orientation,
// unit pixel spacing and slope 1, intercept 0
func CTSlice(columns, rows int, position [3]float64, pixels ...uint16) []Element {
	return []Element{
		US(dicom.Columns, columns),
		US(dicom.Rows, rows),
		US(dicom.BitsAllocated, 16),
		US(dicom.PixelRepresentation, 0),
		DS(dicom.ImagePositionPatient, position[0], position[1], position[2]),
		DS(dicom.SliceLocation, position[2]),
		DS(dicom.PixelSpacing, 1, 1),
		DS(dicom.ImageOrientationPatient, 1, 0, 0, 0, 1, 0),
		DS(dicom.RescaleSlope, 1),
		DS(dicom.RescaleIntercept, 0),
		Text(dicom.RescaleType, "HU"),
		PixelData(pixels...),
	}
}

// Encode writes elems in tag order as a DICOM file. The default syntax is
// explicit VR little endian with a Part 10 preamble. Encode panics if the
// library rejects an element.
func Encode(elems []Element, opts ...Options) []byte {
	o := Options{Syntax: dicom.ExplicitVRLittleEndian}
	if len(opts) > 0 {
		o = opts[0]
		if o.Syntax.Order == nil {
			o.Syntax = dicom.ExplicitVRLittleEndian
		}
	}

	sorted := append([]Element(nil), elems...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Tag, sorted[j].Tag
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Element < b.Element
	})
	built, err := buildAll(sorted, o.Syntax.Order)
	if err != nil {
		panic(err)
	}

	var buf bytes.Buffer
	if o.NoPreamble {
		w := sdicom.NewWriter(&buf)
		w.SetTransferSyntax(o.Syntax.Order, o.Syntax.Implicit)
		for _, e := range built {
			if err := w.WriteElement(e); err != nil {
				panic(err)
			}
		}
		return buf.Bytes()
	}

	ts, err := sdicom.NewElement(tag.TransferSyntaxUID, []string{o.Syntax.UID})
	if err != nil {
		panic(err)
	}
	ds := sdicom.Dataset{Elements: append([]*sdicom.Element{ts}, built...)}
	if err := sdicom.Write(&buf, ds); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// UnknownSequence returns an explicit VR little endian element of VR UN and
// undefined length, the way private sequences appear after conversion by a
// system that lacks their definition. Its single item holds nested encoded in
// implicit VR little endian.
func UnknownSequence(t dicom.Tag, nested ...Element) []byte {
	elems, err := buildAll(nested, binary.LittleEndian)
	if err != nil {
		panic(err)
	}

	var buf bytes.Buffer
	w := dicomio.NewWriter(&buf, binary.LittleEndian, false)
	writeHeader := func(item dicom.Tag, length uint32) {
		must(w.WriteUInt16(item.Group))
		must(w.WriteUInt16(item.Element))
		must(w.WriteUInt32(length))
	}

	must(w.WriteUInt16(t.Group))
	must(w.WriteUInt16(t.Element))
	must(w.WriteString(tag.UnknownVR))
	must(w.WriteZeros(2))
	must(w.WriteUInt32(tag.VLUndefinedLength))

	writeHeader(tag.Item, tag.VLUndefinedLength)
	items := sdicom.NewWriter(&buf)
	items.SetTransferSyntax(binary.LittleEndian, true)
	for _, e := range elems {
		must(items.WriteElement(e))
	}
	writeHeader(tag.ItemDelimitationItem, 0)
	writeHeader(tag.SequenceDelimitationItem, 0)
	return buf.Bytes()
}

// WriteFile encodes elems and writes them to path
func WriteFile(path string, elems []Element, opts ...Options) error {
	return os.WriteFile(path, Encode(elems, opts...), 0644)
}

func buildAll(elems []Element, order binary.ByteOrder) ([]*sdicom.Element, error) {
	out := make([]*sdicom.Element, 0, len(elems))
	for _, e := range elems {
		built, err := e.build(order)
		if err != nil {
			return nil, err
		}
		out = append(out, built)
	}
	return out, nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
