package dicom

import (
	"encoding/binary"
	"fmt"

	"github.com/suyashkumar/dicom/pkg/uid"
)

// Syntax describes how the data set after the file meta group is encoded
type Syntax struct {
	UID      string
	Order    binary.ByteOrder
	Implicit bool
}

var (
	ImplicitVRLittleEndian = Syntax{uid.ImplicitVRLittleEndian, binary.LittleEndian, true}
	ExplicitVRLittleEndian = Syntax{uid.ExplicitVRLittleEndian, binary.LittleEndian, false}
	ExplicitVRBigEndian    = Syntax{uid.ExplicitVRBigEndian, binary.BigEndian, false}
)

// UnsupportedSyntaxError is returned for encodings the reader cannot decode
type UnsupportedSyntaxError struct {
	Value string
}

func (e *UnsupportedSyntaxError) Error() string {
	return fmt.Sprintf("unsupported encoding: %s", e.Value)
}

// LookupSyntax returns the syntax for a transfer syntax UID. Compressed and
// unregistered UIDs are read as explicit VR little endian as PS3.5 A.4
// requires; their encapsulated pixel data is rejected once it is reached.
// Deflated data sets cannot be read at all.
func LookupSyntax(ts string) (Syntax, error) {
	canonical, err := uid.CanonicalTransferSyntaxUID(ts)
	if err != nil {
		canonical = uid.ExplicitVRLittleEndian
	}
	if canonical == uid.DeflatedExplicitVRLittleEndian {
		return Syntax{}, &UnsupportedSyntaxError{Value: "deflated transfer syntax " + ts}
	}
	order, implicit, err := uid.ParseTransferSyntaxUID(canonical)
	if err != nil {
		return Syntax{}, err
	}
	return Syntax{UID: ts, Order: order, Implicit: implicit}, nil
}
