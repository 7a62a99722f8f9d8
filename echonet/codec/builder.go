// Package codec assembles outgoing frames from typed properties and
// dispatches incoming frames back into typed properties, sitting above both
// echonet and echonet/property.
package codec

import (
	"kuramo.ch/routeb-client/echonet"
	"kuramo.ch/routeb-client/echonet/property"
)

// Option configures a FrameBuilder.
type Option func(*FrameBuilder)

// WithPacketSizeLimit caps each emitted frame's wire size; a property that
// would overflow the limit starts a new frame with its own transaction id.
// Zero (the default) means no limit: every property goes in a single frame.
func WithPacketSizeLimit(limit int) Option {
	return func(b *FrameBuilder) { b.packetSizeLimit = limit }
}

// WithRelaxedAccessRules turns access-rule violations at AddProperty time
// into warnings instead of errors.
func WithRelaxedAccessRules() Option {
	return func(b *FrameBuilder) { b.strict = false }
}

type addedProperty struct {
	prop property.Property
}

// FrameBuilder accumulates properties for one SEOJ/DEOJ/ESV request and
// splits them into one or more wire frames, allocating a transaction id per
// frame.
type FrameBuilder struct {
	seoj, deoj      echonet.EOJ
	esv             echonet.ESV
	packetSizeLimit int
	strict          bool
	warnings        []string
	props           []addedProperty
}

// NewFrameBuilder starts a builder for a request from seoj to deoj under esv.
// Access-rule violations are rejected at AddProperty time unless
// WithRelaxedAccessRules is given.
func NewFrameBuilder(seoj, deoj echonet.EOJ, esv echonet.ESV, opts ...Option) *FrameBuilder {
	b := &FrameBuilder{seoj: seoj, deoj: deoj, esv: esv, strict: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddProperty appends a property to the request. It is rejected (or, under
// WithRelaxedAccessRules, only warned about) when the property's access
// rules do not permit this builder's service.
func (b *FrameBuilder) AddProperty(p property.Property) error {
	allowed := echonet.AllowedAccess(b.esv)
	have := p.AccessRules()
	if !have.Intersects(allowed) {
		violation := &echonet.AccessViolationError{EPC: p.EPC(), Allowed: allowed, Have: have}
		if b.strict {
			return violation
		}
		b.warnings = append(b.warnings, violation.Error())
	}
	b.props = append(b.props, addedProperty{p})
	return nil
}

// Warnings returns the access-rule violations accepted under
// WithRelaxedAccessRules, in AddProperty order.
func (b *FrameBuilder) Warnings() []string {
	return b.warnings
}

// Make encodes the accumulated properties into one or more frames, drawing a
// transaction id per frame from tids. Get and InfReq requests carry empty
// EDT payloads regardless of what the property would otherwise encode, since
// those services only name the properties being asked about.
func (b *FrameBuilder) Make(tids *echonet.TIDCounter) ([]echonet.Frame, error) {
	type encodedProp struct {
		epc byte
		edt []byte
	}

	mode := echonet.EncodeMode(b.esv)
	omitEDT := b.esv == echonet.ESVGet || b.esv == echonet.ESVInfReq

	encoded := make([]encodedProp, 0, len(b.props))
	for _, ap := range b.props {
		var edt []byte
		if !omitEDT {
			e, err := ap.prop.Encode(mode)
			if err != nil {
				return nil, err
			}
			edt = e
		}
		encoded = append(encoded, encodedProp{ap.prop.EPC(), edt})
	}

	var frames []echonet.Frame
	var current []echonet.Property
	currentLength := echonet.MinFrameLength

	flush := func() {
		if len(current) == 0 {
			return
		}
		frames = append(frames, echonet.Frame{
			EHD1:       echonet.EchonetLiteEHD1,
			EHD2:       echonet.Format1,
			TID:        tids.Next(),
			SEOJ:       b.seoj,
			DEOJ:       b.deoj,
			ESV:        b.esv,
			Properties: current,
		})
		current = nil
		currentLength = echonet.MinFrameLength
	}

	for _, e := range encoded {
		propLen := 2 + len(e.edt)
		if b.packetSizeLimit > 0 && len(current) > 0 && currentLength+propLen > b.packetSizeLimit {
			flush()
		}
		current = append(current, echonet.Property{EPC: e.epc, PDC: byte(len(e.edt)), EDT: e.edt})
		currentLength += propLen
	}
	flush()

	return frames, nil
}
