package codec

import (
	"errors"

	"kuramo.ch/routeb-client/echonet"
	"kuramo.ch/routeb-client/echonet/classcode"
	"kuramo.ch/routeb-client/echonet/property"
)

// DecodedFrame is a wire frame with each of its properties resolved to a
// typed property.Property where a decoder is registered. Tuples that are not
// decoded are dropped from Properties; Skipped records their EPCs, whether
// the tuple had an empty EDT, had no registered decoder, or had a payload
// its decoder rejected with a CodecError. Skipped does not say which.
type DecodedFrame struct {
	TID        echonet.TID
	SEOJ       echonet.EOJ
	DEOJ       echonet.EOJ
	ESV        echonet.ESV
	Properties []property.Property
	Skipped    []byte

	// Raw holds every (EPC, PDC, EDT) tuple exactly as it appeared on the
	// wire, independent of whether a decoder was registered. The transport
	// pump uses this to echo a change notification's property list back
	// verbatim in its InfC_Res acknowledgement, without re-encoding through
	// a property's own Encode (which may not even support the direction the
	// ack needs).
	Raw []echonet.Property
}

// Decode parses a wire frame and dispatches each of its properties through
// the property package's (class group, class) decoder tables, keyed on the
// frame's source object — the object whose class defines the property
// semantics being reported or requested.
func Decode(data []byte) (*DecodedFrame, error) {
	var frame echonet.Frame
	if err := frame.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	group := classcode.ClassGroupCode(frame.SEOJ.ClassGroupCode)
	class := classcode.ClassCode(frame.SEOJ.ClassCode)

	out := &DecodedFrame{
		TID:  frame.TID,
		SEOJ: frame.SEOJ,
		DEOJ: frame.DEOJ,
		ESV:  frame.ESV,
		Raw:  frame.Properties,
	}

	for _, wireProp := range frame.Properties {
		if len(wireProp.EDT) == 0 {
			out.Skipped = append(out.Skipped, wireProp.EPC)
			continue
		}
		decoded, err := property.Decode(group, class, wireProp.EPC, wireProp.EDT)
		if err != nil {
			var codecErr *echonet.CodecError
			if errors.As(err, &codecErr) {
				out.Skipped = append(out.Skipped, wireProp.EPC)
				continue
			}
			return nil, err
		}
		if decoded == nil {
			out.Skipped = append(out.Skipped, wireProp.EPC)
			continue
		}
		out.Properties = append(out.Properties, decoded)
	}

	return out, nil
}
