package transfer

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicomvolume/internal/models"
)

func testVolume() *models.ImageVolume {
	return &models.ImageVolume{
		Metadata: models.Metadata{
			Columns:                 2,
			Rows:                    1,
			Slices:                  2,
			PixelSpacing:            models.Vec3{0.5, 0.5, 2},
			PositionPatient:         models.Vec3{-100, 20, 3},
			ImageOrientationPatient: [3]models.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		},
		Volume: []float32{-1024, 0, 1.5, 3000},
	}
}

func TestEncodeMetadata(t *testing.T) {
	md, err := EncodeMetadata(testVolume())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(md), &fields))
	assert.ElementsMatch(t,
		[]string{"columns", "rows", "slices", "pixelSpacing", "positionPatient", "imageOrientationPatient"},
		keys(fields))
	assert.Equal(t, []any{0.5, 0.5, 2.0}, fields["pixelSpacing"])
}

func TestWriteVolume(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVolume(&buf, testVolume()))

	assert.Equal(t, 16, buf.Len())
	// -1024 as little endian IEEE 754
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0xc4}, buf.Bytes()[:4])
}

func TestWriteResponseAndDecode(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteResponse(rec, testVolume()))

	res := rec.Result()
	assert.Equal(t, "application/octet-stream", res.Header.Get("Content-Type"))
	assert.Equal(t, "16", res.Header.Get("Content-Length"))

	got, err := Decode(res.Header.Get(MetadataHeader), res.Body)
	require.NoError(t, err)
	if diff := cmp.Diff(testVolume(), got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsWrongBodyLength(t *testing.T) {
	md, err := EncodeMetadata(testVolume())
	require.NoError(t, err)

	_, err = Decode(md, bytes.NewReader(make([]byte, 12)))
	assert.Error(t, err)

	_, err = Decode(md, bytes.NewReader(make([]byte, 20)))
	assert.Error(t, err)

	_, err = Decode(`{"columns":0}`, bytes.NewReader(nil))
	assert.Error(t, err)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
