package dicom

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/suyashkumar/dicom/pkg/dicomio"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// header is the tag, VR and value length that precede every value field
type header struct {
	tag    Tag
	vr     string
	length uint32
}

// stripSequences returns the top-level elements of body minus every sequence
// and every other element of undefined length. The element reader decodes an
// undefined length UN value as raw bytes of length 0xFFFFFFFF, and nothing
// the slice parser reads lives inside a sequence.
//
// Undefined length pixel data is encapsulated and fails with an
// UnsupportedSyntaxError.
func stripSequences(body []byte, syntax Syntax) ([]byte, error) {
	r := dicomio.NewReader(bufio.NewReader(bytes.NewReader(body)), syntax.Order, int64(len(body)))
	r.SetTransferSyntax(syntax.Order, syntax.Implicit)
	offset := func() int {
		return len(body) - int(r.BytesLeftUntilLimit())
	}

	out := make([]byte, 0, len(body))
	for !r.IsLimitExhausted() {
		start := offset()
		h, err := readHeader(r)
		if err != nil {
			return nil, fmt.Errorf("reading element at offset %d: %w", start, err)
		}
		if h.length == tag.VLUndefinedLength && h.tag == tag.PixelData {
			return nil, &UnsupportedSyntaxError{Value: "encapsulated pixel data"}
		}
		if err := skipValue(r, h); err != nil {
			return nil, fmt.Errorf("reading value of %v: %w", h.tag, err)
		}
		if h.length != tag.VLUndefinedLength && h.vr != "SQ" {
			out = append(out, body[start:offset()]...)
		}
	}
	return out, nil
}

func readHeader(r dicomio.Reader) (header, error) {
	group, err := r.ReadUInt16()
	if err != nil {
		return header{}, err
	}
	element, err := r.ReadUInt16()
	if err != nil {
		return header{}, err
	}
	h := header{tag: Tag{Group: group, Element: element}}

	// items and delimiters never carry a VR
	if group == tag.GroupSeqItem {
		h.length, err = r.ReadUInt32()
		return h, err
	}

	if r.IsImplicit() {
		h.vr = tag.UnknownVR
		if info, err := tag.Find(h.tag); err == nil {
			h.vr = info.VR
		}
		h.length, err = r.ReadUInt32()
		return h, err
	}

	if h.vr, err = r.ReadString(2); err != nil {
		return header{}, err
	}
	if !has32BitLength(h.vr) {
		length, err := r.ReadUInt16()
		h.length = uint32(length)
		return h, err
	}
	if err := r.Skip(2); err != nil {
		return header{}, err
	}
	h.length, err = r.ReadUInt32()
	return h, err
}

// skipValue advances past the value field described by h. An undefined length
// UN value holds implicit VR little endian items whatever the outer syntax.
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2.2
func skipValue(r dicomio.Reader, h header) error {
	if h.length != tag.VLUndefinedLength {
		return r.Skip(int64(h.length))
	}
	if h.vr == tag.UnknownVR {
		order, implicit := r.ByteOrder(), r.IsImplicit()
		r.SetTransferSyntax(binary.LittleEndian, true)
		defer r.SetTransferSyntax(order, implicit)
	}
	return skipItems(r)
}

// skipItems advances past the items of an undefined length value and its
// sequence delimiter
func skipItems(r dicomio.Reader) error {
	for {
		h, err := readHeader(r)
		if err != nil {
			return err
		}
		switch h.tag {
		case tag.SequenceDelimitationItem:
			return nil
		case tag.Item:
			if h.length != tag.VLUndefinedLength {
				if err := r.Skip(int64(h.length)); err != nil {
					return err
				}
				continue
			}
			if err := skipItem(r); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected %v in sequence", h.tag)
		}
	}
}

func skipItem(r dicomio.Reader) error {
	for {
		h, err := readHeader(r)
		if err != nil {
			return err
		}
		if h.tag == tag.ItemDelimitationItem {
			return nil
		}
		if err := skipValue(r, h); err != nil {
			return fmt.Errorf("skipping %v: %w", h.tag, err)
		}
	}
}

// has32BitLength reports whether an explicit VR uses the long length form.
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.2
func has32BitLength(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OV", "OW", "SQ", "SV", "UC", "UN", "UR", "UT", "UV":
		return true
	default:
		return false
	}
}
