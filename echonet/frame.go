package echonet

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EHD1 is the ECHONET Lite header 1 byte.
type EHD1 byte

const EchonetLiteEHD1 EHD1 = 0x10

// EHD2 selects the frame format. Only Format1 is accepted on receive.
type EHD2 byte

const (
	Format1 EHD2 = 0x81
	Format2 EHD2 = 0x82
)

// TID is the 16-bit transaction id, big-endian on the wire.
type TID uint16

// Property is a single (EPC, PDC, EDT) tuple as it appears on the wire.
type Property struct {
	EPC byte
	PDC byte
	EDT []byte
}

// Frame is a full ECHONET Lite application message.
type Frame struct {
	EHD1       EHD1
	EHD2       EHD2
	TID        TID
	SEOJ       EOJ
	DEOJ       EOJ
	ESV        ESV
	Properties []Property
}

// MinFrameLength is the smallest legal frame: header(4) + EOJ(6) + ESV(1) + OPC(1).
const MinFrameLength = 12

// MarshalBinary serializes the frame to its wire representation. OPC and each
// property's PDC are derived from the slices, never taken from caller input.
func (f *Frame) MarshalBinary() ([]byte, error) {
	if len(f.Properties) > 0xFF {
		return nil, fmt.Errorf("echonet: too many properties for one frame: %d", len(f.Properties))
	}

	estimatedSize := MinFrameLength
	for _, prop := range f.Properties {
		estimatedSize += 2 + len(prop.EDT)
	}
	buf := bytes.NewBuffer(make([]byte, 0, estimatedSize))

	buf.WriteByte(byte(EchonetLiteEHD1))
	buf.WriteByte(byte(f.EHD2))

	tidBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(tidBytes, uint16(f.TID))
	buf.Write(tidBytes)

	buf.WriteByte(f.SEOJ.ClassGroupCode)
	buf.WriteByte(f.SEOJ.ClassCode)
	buf.WriteByte(f.SEOJ.InstanceCode)

	buf.WriteByte(f.DEOJ.ClassGroupCode)
	buf.WriteByte(f.DEOJ.ClassCode)
	buf.WriteByte(f.DEOJ.InstanceCode)

	buf.WriteByte(byte(f.ESV))
	buf.WriteByte(byte(len(f.Properties)))

	for i, prop := range f.Properties {
		if len(prop.EDT) > 0xFF {
			return nil, fmt.Errorf("echonet: EDT too long for property %d (EPC 0x%02X): %d bytes", i, prop.EPC, len(prop.EDT))
		}
		buf.WriteByte(prop.EPC)
		buf.WriteByte(byte(len(prop.EDT)))
		if len(prop.EDT) > 0 {
			buf.Write(prop.EDT)
		}
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a wire frame, validating the header and requiring
// that decoding consumes the buffer exactly — residual bytes are an error.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < MinFrameLength {
		return &FrameError{Reason: fmt.Sprintf("frame too short: %d bytes, need at least %d", len(data), MinFrameLength)}
	}
	if EHD1(data[0]) != EchonetLiteEHD1 {
		return &FrameError{Reason: fmt.Sprintf("unexpected EHD1: 0x%02X", data[0])}
	}
	if EHD2(data[1]) != Format1 {
		return &FrameError{Reason: fmt.Sprintf("unsupported EHD2 (only Format1 accepted): 0x%02X", data[1])}
	}

	f.EHD1 = EHD1(data[0])
	f.EHD2 = EHD2(data[1])
	f.TID = TID(binary.BigEndian.Uint16(data[2:4]))
	f.SEOJ = NewEOJ(data[4], data[5], data[6])
	f.DEOJ = NewEOJ(data[7], data[8], data[9])
	f.ESV = ESV(data[10])
	opc := data[11]

	idx := 12
	props := make([]Property, 0, opc)
	for i := 0; i < int(opc); i++ {
		if idx+2 > len(data) {
			return &FrameError{Reason: fmt.Sprintf("truncated property tuple %d", i)}
		}
		epc := data[idx]
		pdc := data[idx+1]
		idx += 2
		var edt []byte
		if pdc > 0 {
			if idx+int(pdc) > len(data) {
				return &FrameError{Reason: fmt.Sprintf("truncated EDT for property %d (EPC 0x%02X)", i, epc)}
			}
			edt = append([]byte(nil), data[idx:idx+int(pdc)]...)
			idx += int(pdc)
		}
		props = append(props, Property{EPC: epc, PDC: pdc, EDT: edt})
	}

	if idx != len(data) {
		return &FrameError{Reason: fmt.Sprintf("residual bytes after decoding: %d consumed, %d total", idx, len(data))}
	}

	f.Properties = props
	return nil
}
