// Package transfer serializes an ImageVolume for the HTTP boundary: metadata
// travels as JSON in a response header and the voxels as the raw body.
package transfer

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"dicomvolume/internal/models"
)

// MetadataHeader carries the JSON encoded volume metadata
const MetadataHeader = "X-Image-Metadata"

const bytesPerVoxel = 4

// EncodeMetadata returns the JSON text of the volume's metadata
func EncodeMetadata(vol *models.ImageVolume) (string, error) {
	b, err := json.Marshal(vol.Metadata)
	if err != nil {
		return "", fmt.Errorf("encoding metadata: %w", err)
	}
	return string(b), nil
}

// BodySize returns the exact length of the encoded voxel buffer
func BodySize(md models.Metadata) int64 {
	return int64(md.Columns) * int64(md.Rows) * int64(md.Slices) * bytesPerVoxel
}

// WriteVolume writes the voxel buffer as little endian float32 with no framing
func WriteVolume(w io.Writer, vol *models.ImageVolume) error {
	return binary.Write(w, binary.LittleEndian, vol.Volume)
}

// WriteResponse sends vol as an application/octet-stream response
func WriteResponse(w http.ResponseWriter, vol *models.ImageVolume) error {
	md, err := EncodeMetadata(vol)
	if err != nil {
		return err
	}
	h := w.Header()
	h.Set(MetadataHeader, md)
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Length", strconv.FormatInt(BodySize(vol.Metadata), 10))
	w.WriteHeader(http.StatusOK)
	return WriteVolume(w, vol)
}

// Decode rebuilds a volume from its metadata header and body. The body must
// hold exactly columns*rows*slices float32 values.
func Decode(header string, body io.Reader) (*models.ImageVolume, error) {
	var md models.Metadata
	if err := json.Unmarshal([]byte(header), &md); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if md.Columns <= 0 || md.Rows <= 0 || md.Slices <= 0 {
		return nil, fmt.Errorf("invalid volume dimensions %dx%dx%d", md.Columns, md.Rows, md.Slices)
	}

	volume := make([]float32, md.Columns*md.Rows*md.Slices)
	if err := binary.Read(body, binary.LittleEndian, volume); err != nil {
		return nil, fmt.Errorf("reading volume body of %d bytes: %w", BodySize(md), err)
	}
	if n, _ := body.Read(make([]byte, 1)); n != 0 {
		return nil, errors.New("volume body is longer than its metadata describes")
	}
	return &models.ImageVolume{Metadata: md, Volume: volume}, nil
}
