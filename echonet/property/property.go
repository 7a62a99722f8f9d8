// Package property implements per-EPC encode/decode of ECHONET Lite property
// payloads (EDT), and the decoder dispatch table keyed by (class group,
// class, EPC) with a device-object super-class fallback for EPCs in
// [0x80, 0x9F].
package property

import (
	"fmt"

	"kuramo.ch/routeb-client/echonet"
	"kuramo.ch/routeb-client/echonet/classcode"
)

// Property is a decoded or to-be-encoded EDT payload bound to its EPC and
// access rules.
type Property interface {
	EPC() byte
	AccessRules() echonet.Access
	Encode(mode echonet.Access) ([]byte, error)
}

// Decoder turns a raw EDT payload into a typed Property.
type Decoder func(data []byte) (Property, error)

type classKey struct {
	group classcode.ClassGroupCode
	class classcode.ClassCode
}

var (
	superClassDecoders = map[byte]Decoder{}
	classDecoders      = map[classKey]map[byte]Decoder{}
)

// RegisterSuperClass installs a decoder for a device-object super-class EPC
// (0x80-0x9F), applicable regardless of the object's class.
func RegisterSuperClass(epc byte, d Decoder) {
	if epc < 0x80 || epc > 0x9F {
		panic(fmt.Sprintf("property: super-class EPC out of range: 0x%02X", epc))
	}
	superClassDecoders[epc] = d
}

// RegisterClass installs a decoder for an EPC specific to one (group, class)
// pair.
func RegisterClass(group classcode.ClassGroupCode, class classcode.ClassCode, epc byte, d Decoder) {
	key := classKey{group, class}
	m, ok := classDecoders[key]
	if !ok {
		m = map[byte]Decoder{}
		classDecoders[key] = m
	}
	m[epc] = d
}

// Lookup finds the decoder for epc on an object of the given class,
// checking the super-class range first and the class-specific table second.
func Lookup(group classcode.ClassGroupCode, class classcode.ClassCode, epc byte) (Decoder, bool) {
	if epc < 0x80 {
		return nil, false
	}
	if epc <= 0x9F {
		if d, ok := superClassDecoders[epc]; ok {
			return d, true
		}
	}
	if m, ok := classDecoders[classKey{group, class}]; ok {
		if d, ok := m[epc]; ok {
			return d, true
		}
	}
	return nil, false
}

// Decode dispatches epc's EDT payload to its registered decoder. A nil,nil
// result means no decoder is registered; the caller should skip the tuple
// rather than treat it as an error.
func Decode(group classcode.ClassGroupCode, class classcode.ClassCode, epc byte, data []byte) (Property, error) {
	d, ok := Lookup(group, class, epc)
	if !ok {
		return nil, nil
	}
	return d(data)
}
