package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitPositionBijectsOntoDeviceEPCRange(t *testing.T) {
	require.Len(t, bitPosition, 128)
	seen := make(map[[2]int]byte, 128)
	for epc := 0x80; epc <= 0xFF; epc++ {
		pos, ok := bitPosition[byte(epc)]
		require.True(t, ok, "EPC 0x%02X missing from bitPosition", epc)
		require.True(t, pos[0] >= 0 && pos[0] < 16)
		require.True(t, pos[1] >= 0 && pos[1] < 8)
		if other, dup := seen[pos]; dup {
			t.Fatalf("position %v claimed by both 0x%02X and 0x%02X", pos, other, epc)
		}
		seen[pos] = byte(epc)
	}
}

func TestDecodeEPCSetShortForm(t *testing.T) {
	epcs, err := DecodeEPCSet([]byte{0x03, 0x80, 0xE7, 0x97})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x97, 0xE7}, epcs)
}

func TestDecodeEPCSetShortFormLengthMismatch(t *testing.T) {
	_, err := DecodeEPCSet([]byte{0x03, 0x80, 0xE7})
	assert.Error(t, err)
}

func TestDecodeEPCSetBitmapForm(t *testing.T) {
	encoded, err := EncodeEPCSet([]byte{
		0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
		0x88, 0x8A, 0x8B, 0x8C, 0x8D, 0x8E, 0x8F, 0x93,
	})
	require.NoError(t, err)
	require.Len(t, encoded, 17)
	assert.Equal(t, byte(16), encoded[0])

	decoded, err := DecodeEPCSet(encoded)
	require.NoError(t, err)
	assert.ElementsMatch(t, []byte{
		0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
		0x88, 0x8A, 0x8B, 0x8C, 0x8D, 0x8E, 0x8F, 0x93,
	}, decoded)
}

func TestEncodeEPCSetShortFormLiteral(t *testing.T) {
	enc, err := EncodeEPCSet([]byte{0x80, 0x81, 0x9F, 0xE7, 0xEA})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x80, 0x81, 0x9F, 0xE7, 0xEA}, enc)
}

func TestEncodeEPCSetRoundTripsThroughBothForms(t *testing.T) {
	short := []byte{0xE7, 0x80, 0x9F}
	enc, err := EncodeEPCSet(short)
	require.NoError(t, err)
	dec, err := DecodeEPCSet(enc)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x9F, 0xE7}, dec)

	long := make([]byte, 0, 20)
	for epc := 0x80; epc < 0x80+20; epc++ {
		long = append(long, byte(epc))
	}
	enc, err = EncodeEPCSet(long)
	require.NoError(t, err)
	require.Len(t, enc, 17)
	dec, err = DecodeEPCSet(enc)
	require.NoError(t, err)
	assert.Len(t, dec, 20)
}

func TestEncodeEPCSetBitmapRejectsOutOfRange(t *testing.T) {
	epcs := make([]byte, 0, 16)
	for i := 0; i < 16; i++ {
		epcs = append(epcs, byte(i))
	}
	_, err := EncodeEPCSet(epcs)
	assert.Error(t, err)
}
