package radio

import "fmt"

// EventCode is the numeric code reported on an EVENT line.
type EventCode byte

const (
	EventRecvNS                EventCode = 0x01
	EventRecvNA                EventCode = 0x02
	EventRecvEchoReq           EventCode = 0x05
	EventEDScanOK              EventCode = 0x1F
	EventRecvBeacon            EventCode = 0x20
	EventUDPSendOK             EventCode = 0x21
	EventActiveScanOK          EventCode = 0x22
	EventPANAConnectError      EventCode = 0x24
	EventPANAConnectOK         EventCode = 0x25
	EventRecvSessionEnd        EventCode = 0x26
	EventPANASessionEndOK      EventCode = 0x27
	EventPANASessionEndTimeout EventCode = 0x28
	EventSessionLifetimeExpire EventCode = 0x29
	EventSendLimitExceed       EventCode = 0x32
	EventSendLimitCanceled     EventCode = 0x33
)

func (c EventCode) String() string {
	switch c {
	case EventRecvNS:
		return "RECV_NS"
	case EventRecvNA:
		return "RECV_NA"
	case EventRecvEchoReq:
		return "RECV_ECHO_REQ"
	case EventEDScanOK:
		return "ED_SCAN_OK"
	case EventRecvBeacon:
		return "RECV_BEACON"
	case EventUDPSendOK:
		return "UDP_SEND_OK"
	case EventActiveScanOK:
		return "ACTIVE_SCAN_OK"
	case EventPANAConnectError:
		return "PANA_CONNECT_ERROR"
	case EventPANAConnectOK:
		return "PANA_CONNECT_OK"
	case EventRecvSessionEnd:
		return "RECV_SESSION_END"
	case EventPANASessionEndOK:
		return "PANA_SESSION_END_OK"
	case EventPANASessionEndTimeout:
		return "PANA_SESSION_END_TIMEOUT"
	case EventSessionLifetimeExpire:
		return "SESITON_LIFETIME_EXPIRE"
	case EventSendLimitExceed:
		return "SEND_LIMIT_EXCEED"
	case EventSendLimitCanceled:
		return "SEND_LIMIT_CANCELED"
	default:
		return fmt.Sprintf("EVENT(0x%02X)", byte(c))
	}
}

// ModuleEvent is a parsed EVENT line: a code plus the sender address the
// firmware reports alongside it.
type ModuleEvent struct {
	Code   EventCode
	Sender string
}

// Epan is the beacon descriptor accumulated from an EPANDESC block during a
// scan. It is considered complete only once all six fields below have been
// observed; a partial Epan cannot be joined to.
type Epan struct {
	Channel     *byte
	ChannelPage *byte
	PanID       *uint16
	MacAddress  *string
	LQI         *byte
	PairID      *string
}

// IsComplete reports whether every field has been filled in.
func (e *Epan) IsComplete() bool {
	return e.Channel != nil && e.ChannelPage != nil && e.PanID != nil &&
		e.MacAddress != nil && e.LQI != nil && e.PairID != nil
}

// UDPReceiveEvent is a parsed ERXUDP line: an inbound UDP datagram the
// firmware has forwarded to the host, along with its Route-B framing
// metadata (security flag, source/destination addressing).
type UDPReceiveEvent struct {
	SrcAddr string
	DstAddr string
	SrcPort uint16
	DstPort uint16
	SrcMAC  string
	Secured bool
	Length  int
	Payload []byte
}
