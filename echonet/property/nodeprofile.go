package property

import (
	"fmt"

	"kuramo.ch/routeb-client/echonet"
	"kuramo.ch/routeb-client/echonet/classcode"
)

func init() {
	RegisterClass(classcode.Profile, classcode.NodeProfile, 0xD5, decodeInstanceListNotify)
}

// InstanceListNotify is the node profile's instance-list notification
// (0xD5), sent as an INF/INFC announcement listing every ECHONET Lite
// object instantiated on the node.
type InstanceListNotify struct {
	base
	Objects []echonet.EOJ
}

func decodeInstanceListNotify(data []byte) (Property, error) {
	if len(data) < 1 {
		return nil, &echonet.CodecError{EPC: 0xD5, Reason: "empty payload"}
	}
	count := int(data[0])
	if len(data) != 1+count*3 {
		return nil, &echonet.CodecError{EPC: 0xD5, Reason: fmt.Sprintf("expected %d bytes for %d objects, got %d", 1+count*3, count, len(data))}
	}
	objs := make([]echonet.EOJ, 0, count)
	for i := 0; i < count; i++ {
		off := 1 + i*3
		objs = append(objs, echonet.NewEOJ(data[off], data[off+1], data[off+2]))
	}
	return &InstanceListNotify{base{0xD5, echonet.AccessAnno}, objs}, nil
}

// Encode is unsupported: instance-list notification is announce-only and
// generated by the node profile itself, never constructed by a client.
func (p *InstanceListNotify) Encode(mode echonet.Access) ([]byte, error) {
	return nil, fmt.Errorf("property: InstanceListNotify: encode not supported")
}
