package encoding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3, float32(math.SmallestNonzeroFloat32)}

	data, err := EncodeVector(in)
	require.NoError(t, err)
	assert.Len(t, data, 4+4*len(in))

	out, err := DecodeVector(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeVectorRejectsTruncatedInput(t *testing.T) {
	data, err := EncodeVector([]float32{1, 2, 3})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", data[:3]},
		{"missing values", data[:len(data)-2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeVector(tt.data)
			assert.ErrorIs(t, err, ErrInvalidVector)
		})
	}
}

func TestEncodeVectorNil(t *testing.T) {
	_, err := EncodeVector(nil)
	assert.ErrorIs(t, err, ErrInvalidVector)
}

func TestMetadata(t *testing.T) {
	s, err := EncodeMetadata(nil)
	require.NoError(t, err)
	assert.Empty(t, s)

	s, err = EncodeMetadata(map[string]string{"page": "3", "file_name": "w1.pdf"})
	require.NoError(t, err)

	m, err := DecodeMetadata(s)
	require.NoError(t, err)
	assert.Equal(t, "3", m["page"])
	assert.Equal(t, "w1.pdf", m["file_name"])

	_, err = DecodeMetadata("{not json")
	assert.Error(t, err)
}

func TestValidateVector(t *testing.T) {
	assert.NoError(t, ValidateVector([]float32{1, 0}))
	assert.ErrorIs(t, ValidateVector(nil), ErrInvalidVector)
	assert.ErrorIs(t, ValidateVector([]float32{float32(math.NaN())}), ErrInvalidVector)
	assert.ErrorIs(t, ValidateVector([]float32{float32(math.Inf(1))}), ErrInvalidVector)
}
