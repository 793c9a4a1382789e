package dicom

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	preambleSize = 128
	magic        = "DICM"

	// groupLengthSize is the encoded size of the explicit VR UL element
	// (0002,0000) that opens the file meta group
	groupLengthSize = 12
)

// Parse reads a DICOM file held in memory. Files starting with the Part 10
// preamble have their meta group read to select the transfer syntax; bare data
// sets are read as implicit VR little endian. Pixel data is kept as the raw
// value field.
func Parse(data []byte) (*DataSet, error) {
	syntax := ImplicitVRLittleEndian
	ds := &DataSet{Elements: map[Tag]*dicom.Element{}}

	body := data
	if hasPreamble(data) {
		meta, headerSize, err := readMeta(data)
		if err != nil {
			return nil, fmt.Errorf("reading file meta information: %w", err)
		}
		for _, elem := range meta.Elements {
			ds.Elements[elem.Tag] = elem
		}
		ts, ok := ds.String(TransferSyntaxUID).Get()
		if !ok {
			return nil, errors.New("file meta information has no transfer syntax")
		}
		if syntax, err = LookupSyntax(ts); err != nil {
			return nil, err
		}
		body = data[headerSize:]
	}
	ds.Syntax = syntax

	body, err := stripSequences(body, syntax)
	if err != nil {
		return nil, err
	}

	p, err := dicom.NewParser(bytes.NewReader(body), int64(len(body)), nil,
		dicom.SkipMetadataReadOnNewParserInit(),
		dicom.SkipProcessingPixelDataValue())
	if err != nil {
		return nil, err
	}
	p.SetTransferSyntax(syntax.Order, syntax.Implicit)

	for {
		elem, err := p.Next()
		if errors.Is(err, dicom.ErrorEndOfDICOM) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading data set: %w", err)
		}
		ds.Elements[elem.Tag] = elem
	}
	return ds, nil
}

func hasPreamble(data []byte) bool {
	return len(data) >= preambleSize+len(magic) &&
		string(data[preambleSize:preambleSize+len(magic)]) == magic
}

// readMeta parses the file meta group and returns it with the number of bytes
// preceding the data set
func readMeta(data []byte) (dicom.Dataset, int, error) {
	p, err := dicom.NewParser(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		return dicom.Dataset{}, 0, err
	}
	meta := p.GetMetadata()

	lengthElem, err := meta.FindElementByTag(tag.FileMetaInformationGroupLength)
	if err != nil || lengthElem.Value.ValueType() != dicom.Ints {
		return dicom.Dataset{}, 0, dicom.ErrorMetaElementGroupLength
	}
	lengths := dicom.MustGetInts(lengthElem.Value)
	if len(lengths) == 0 {
		return dicom.Dataset{}, 0, dicom.ErrorMetaElementGroupLength
	}
	headerSize := preambleSize + len(magic) + groupLengthSize + lengths[0]
	if lengths[0] < 0 || headerSize > len(data) {
		return dicom.Dataset{}, 0, fmt.Errorf("meta group length %d exceeds file size %d", lengths[0], len(data))
	}
	return meta, headerSize, nil
}

func trimPadding(s string) string {
	return strings.Trim(s, " \x00")
}
