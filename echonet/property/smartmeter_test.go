package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kuramo.ch/routeb-client/echonet"
)

func TestMomentPowerSentinel(t *testing.T) {
	p, err := decodeMomentPower([]byte{0x7F, 0xFF, 0xFF, 0xFE})
	require.NoError(t, err)
	mp := p.(*MomentPower)
	assert.False(t, mp.Valid)

	p, err = decodeMomentPower([]byte{0x00, 0x00, 0x04, 0xD2})
	require.NoError(t, err)
	mp = p.(*MomentPower)
	assert.True(t, mp.Valid)
	assert.Equal(t, uint32(1234), mp.Watts)
}

func TestMomentCurrentSentinelAndScale(t *testing.T) {
	p, err := decodeMomentCurrent([]byte{0x7F, 0xFE, 0x00, 0x32})
	require.NoError(t, err)
	mc := p.(*MomentCurrent)
	assert.False(t, mc.RPhaseValid)
	assert.True(t, mc.TPhaseValid)
	assert.Equal(t, uint16(50), mc.TPhaseTenths)
}

func TestCumulativeEnergyMeasurementSentinel(t *testing.T) {
	d := newCumulativeEnergyMeasurementDecoder(0xE0)
	p, err := d([]byte{0xFF, 0xFF, 0xFF, 0xFE})
	require.NoError(t, err)
	assert.False(t, p.(*CumulativeEnergyMeasurement).Valid)

	p, err = d([]byte{0x00, 0x00, 0x27, 0x10})
	require.NoError(t, err)
	m := p.(*CumulativeEnergyMeasurement)
	assert.True(t, m.Valid)
	assert.Equal(t, uint32(10000), m.Value)
}

func TestCumulativeEnergyUnitMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, Unit1KWh.Multiplier())
	assert.Equal(t, 0.001, Unit0_001KWh.Multiplier())
	assert.Equal(t, 10000.0, Unit10000KWh.Multiplier())
}

func TestCumulativeEnergyHistory1Decode(t *testing.T) {
	data := make([]byte, 194)
	data[0] = 48
	data[1] = 0x01
	for i := 0; i < 48; i++ {
		off := 2 + i*4
		data[off] = 0xFF
		data[off+1] = 0xFF
		data[off+2] = 0xFF
		data[off+3] = 0xFE
	}
	data[2], data[3], data[4], data[5] = 0x00, 0x00, 0x00, 0x64 // first entry becomes a valid, small value
	d := newCumulativeEnergyHistory1Decoder(0xE2)
	p, err := d(data)
	require.NoError(t, err)
	h := p.(*CumulativeEnergyHistory1)
	assert.Equal(t, byte(0x01), h.CollectDay)
	assert.True(t, h.Entries[0].Valid)
	assert.Equal(t, uint32(0x64), h.Entries[0].Value)
	assert.False(t, h.Entries[1].Valid)
}

func TestCumulativeHistoryCollectDay1Sentinel(t *testing.T) {
	p, err := decodeCumulativeHistoryCollectDay1([]byte{0xFF})
	require.NoError(t, err)
	assert.False(t, p.(*CumulativeHistoryCollectDay1).DaySet)

	p, err = decodeCumulativeHistoryCollectDay1([]byte{0x05})
	require.NoError(t, err)
	assert.True(t, p.(*CumulativeHistoryCollectDay1).DaySet)
}

func TestCumulativeEnergyHistory2AllFFYieldsSingleNullRecord(t *testing.T) {
	data := make([]byte, 7)
	for i := range data {
		data[i] = 0xFF
	}
	d := newCumulativeEnergyHistory2Decoder(0xEC)
	p, err := d(data)
	require.NoError(t, err)
	h := p.(*CumulativeEnergyHistory2)
	assert.False(t, h.HeaderValid)
	require.Len(t, h.Records, 1)
	assert.False(t, h.Records[0].ForwardValid)
}

func TestCumulativeEnergyHistory2DecodesRecords(t *testing.T) {
	data := []byte{0x07, 0xE8, 0x03, 0x14, 0x0C, 0x00, 0x02}
	data = append(data, 0x00, 0x00, 0x00, 0x64, 0x00, 0x00, 0x00, 0xC8)
	data = append(data, 0xFF, 0xFF, 0xFF, 0xFE, 0x00, 0x00, 0x00, 0x32)
	d := newCumulativeEnergyHistory2Decoder(0xEC)
	p, err := d(data)
	require.NoError(t, err)
	h := p.(*CumulativeEnergyHistory2)
	assert.True(t, h.HeaderValid)
	assert.Equal(t, 2024, h.Year)
	require.Len(t, h.Records, 2)
	assert.Equal(t, uint32(100), h.Records[0].Forward)
	assert.True(t, h.Records[0].ForwardValid)
	assert.False(t, h.Records[1].ForwardValid)
}

func TestCumulativeHistoryCollectDay2ValidatesMinuteAndCount(t *testing.T) {
	p := &CumulativeHistoryCollectDay2{Minute: 15, RecordCount: 1}
	_, err := p.Encode(echonet.AccessSet)
	assert.Error(t, err)

	p = &CumulativeHistoryCollectDay2{Minute: 30, RecordCount: 13}
	_, err = p.Encode(echonet.AccessSet)
	assert.Error(t, err)

	p = &CumulativeHistoryCollectDay2{Minute: 0, RecordCount: 12}
	edt, err := p.Encode(echonet.AccessSet)
	require.NoError(t, err)
	assert.Len(t, edt, 7)
}

func TestBrouteIdentifyNoDecode(t *testing.T) {
	data := []byte{0xFE, 0x00, 0x00, 0x01, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C}
	p, err := decodeBrouteIdentifyNo(data)
	require.NoError(t, err)
	b := p.(*BrouteIdentifyNo)
	assert.Equal(t, uint32(0x000001), b.ManufacturerCode)
	assert.Len(t, b.FreeArea, 12)
	assert.Equal(t, byte(0x0C), b.FreeArea[11])

	_, err = decodeBrouteIdentifyNo(make([]byte, 17))
	assert.Error(t, err)
}

func TestOneMinuteCumulativeEnergyDecode(t *testing.T) {
	data := []byte{0x07, 0xE8, 0x03, 0x14, 0x0C, 0x22, 0x38}
	data = append(data, 0x00, 0x00, 0x00, 0x64)
	data = append(data, 0x00, 0x00, 0x00, 0xC8)
	p, err := decodeOneMinuteCumulativeEnergy(data)
	require.NoError(t, err)
	e := p.(*OneMinuteCumulativeEnergy)
	assert.Equal(t, 2024, e.Timestamp.Year)
	assert.Equal(t, 12, e.Timestamp.Hour)
	assert.Equal(t, 34, e.Timestamp.Minute)
	assert.Equal(t, 56, e.Timestamp.Second)
	assert.True(t, e.ForwardValid)
	assert.Equal(t, uint32(100), e.Forward)
	assert.True(t, e.ReverseValid)
	assert.Equal(t, uint32(200), e.Reverse)
}

func TestIntCumulativeEnergyMeasurementDecode(t *testing.T) {
	data := []byte{0x07, 0xE8, 0x03, 0x14, 0x0C, 0x22, 0x38}
	data = append(data, 0x00, 0x00, 0x04, 0xD2)

	for _, epc := range []byte{0xEA, 0xEB} {
		d := newIntCumulativeEnergyMeasurementDecoder(epc)
		p, err := d(data)
		require.NoError(t, err)
		e := p.(*IntCumulativeEnergyMeasurement)
		assert.Equal(t, 34, e.Timestamp.Minute)
		assert.Equal(t, 56, e.Timestamp.Second)
		assert.True(t, e.Valid)
		assert.Equal(t, uint32(1234), e.Value)
	}
}

func TestCumulativeHistoryCollectDay3ValidatesCount(t *testing.T) {
	p := &CumulativeHistoryCollectDay3{RecordCount: 11}
	_, err := p.Encode(echonet.AccessSet)
	assert.Error(t, err)

	p = &CumulativeHistoryCollectDay3{RecordCount: 10}
	edt, err := p.Encode(echonet.AccessSet)
	require.NoError(t, err)
	assert.Len(t, edt, 7)
}
