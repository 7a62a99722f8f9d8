package echonet

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestFrameMarshalUnmarshalRoundTrip(t *testing.T) {
	frame := &Frame{
		EHD2: Format1,
		TID:  1,
		SEOJ: NewEOJ(0x05, 0xFF, 0x01),
		DEOJ: NewEOJ(0x02, 0x88, 0x01),
		ESV:  ESVGet,
		Properties: []Property{
			{EPC: 0xE7, PDC: 0x00, EDT: nil},
		},
	}

	data, err := frame.MarshalBinary()
	require.NoError(t, err)

	var decoded Frame
	require.NoError(t, decoded.UnmarshalBinary(data))

	assert.Equal(t, frame.EHD2, decoded.EHD2)
	assert.Equal(t, frame.TID, decoded.TID)
	assert.Equal(t, frame.SEOJ, decoded.SEOJ)
	assert.Equal(t, frame.DEOJ, decoded.DEOJ)
	assert.Equal(t, frame.ESV, decoded.ESV)
	assert.Equal(t, frame.Properties, decoded.Properties)
}

// TID=1, src=(0x0E,0xF0,0x01), dst=(0x05,0xFF,0x01), Inf, one property 0xD5
// carrying instance count=1 and object list [(0x02,0x88,0x01)].
func TestDecodeInstanceListLiteral(t *testing.T) {
	data := mustHex(t, "108100010EF00105FF017301D50401028801")
	var f Frame
	require.NoError(t, f.UnmarshalBinary(data))
	assert.Equal(t, TID(1), f.TID)
	assert.Equal(t, NewEOJ(0x0E, 0xF0, 0x01), f.SEOJ)
	assert.Equal(t, NewEOJ(0x05, 0xFF, 0x01), f.DEOJ)
	assert.Equal(t, ESVInf, f.ESV)
	require.Len(t, f.Properties, 1)
	assert.Equal(t, byte(0xD5), f.Properties[0].EPC)
	assert.Equal(t, byte(0x04), f.Properties[0].PDC)
	assert.Equal(t, mustHex(t, "01028801"), f.Properties[0].EDT)
}

// Encode a Get for instantaneous power.
func TestEncodeMomentPowerGet(t *testing.T) {
	f := &Frame{
		EHD2: Format1,
		TID:  2,
		SEOJ: NewEOJ(0x05, 0xFF, 0x01),
		DEOJ: NewEOJ(0x02, 0x88, 0x01),
		ESV:  ESVGet,
		Properties: []Property{
			{EPC: 0xE7, PDC: 0, EDT: nil},
		},
	}
	data, err := f.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "1081000205FF010288016201E700"), data)
}

// A GetRes carrying instantaneous power = 1234 W.
func TestDecodeMomentPowerGetRes(t *testing.T) {
	data := mustHex(t, "1081000202880105FF017201E704000004D2")
	var f Frame
	require.NoError(t, f.UnmarshalBinary(data))
	assert.Equal(t, ESVGetRes, f.ESV)
	require.Len(t, f.Properties, 1)
	assert.Equal(t, byte(0xE7), f.Properties[0].EPC)
	assert.Equal(t, mustHex(t, "000004D2"), f.Properties[0].EDT)
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	var f Frame
	err := f.UnmarshalBinary(mustHex(t, "1081000105FF01"))
	assert.Error(t, err)
}

func TestDecodeRejectsBadHeader(t *testing.T) {
	var f Frame
	data := mustHex(t, "1081000205FF01028801620100")
	data[1] = 0x82
	assert.Error(t, f.UnmarshalBinary(data))
}

func TestDecodeRejectsResidualBytes(t *testing.T) {
	var f Frame
	data := mustHex(t, "1081000205FF0102880162010000FF")
	assert.Error(t, f.UnmarshalBinary(data))
}

func TestTIDCounterWraps(t *testing.T) {
	c := &TIDCounter{next: 0xFFFF}
	assert.Equal(t, TID(0xFFFF), c.Next())
	assert.Equal(t, TID(0x0000), c.Next())
	assert.Equal(t, TID(0x0001), c.Next())
}
