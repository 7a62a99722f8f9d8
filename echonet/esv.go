package echonet

import "fmt"

// ESV is the ECHONET Lite service code byte.
type ESV byte

const (
	// Requests
	ESVSetI   ESV = 0x60 // property write, no response required
	ESVSetC   ESV = 0x61 // property write, response required
	ESVGet    ESV = 0x62 // property read
	ESVInfReq ESV = 0x63 // notification request
	ESVSetGet ESV = 0x6E // combined write & read

	// Responses / notifications
	ESVSetRes    ESV = 0x71
	ESVGetRes    ESV = 0x72
	ESVInf       ESV = 0x73
	ESVInfC      ESV = 0x74 // change notification, ack required
	ESVSetGetRes ESV = 0x7E
	ESVInfCRes   ESV = 0x7A // ack for InfC

	// Error responses
	ESVSetISNA   ESV = 0x50
	ESVSetCSNA   ESV = 0x51
	ESVGetSNA    ESV = 0x52
	ESVInfSNA    ESV = 0x53
	ESVSetGetSNA ESV = 0x5E
)

func (s ESV) String() string {
	switch s {
	case ESVSetI:
		return "SetI"
	case ESVSetC:
		return "SetC"
	case ESVGet:
		return "Get"
	case ESVInfReq:
		return "InfReq"
	case ESVSetGet:
		return "SetGet"
	case ESVSetRes:
		return "SetRes"
	case ESVGetRes:
		return "GetRes"
	case ESVInf:
		return "Inf"
	case ESVInfC:
		return "InfC"
	case ESVSetGetRes:
		return "SetGetRes"
	case ESVInfCRes:
		return "InfCRes"
	case ESVSetISNA:
		return "SetI_SNA"
	case ESVSetCSNA:
		return "SetC_SNA"
	case ESVGetSNA:
		return "Get_SNA"
	case ESVInfSNA:
		return "Inf_SNA"
	case ESVSetGetSNA:
		return "SetGet_SNA"
	default:
		return fmt.Sprintf("ESV(0x%02X)", byte(s))
	}
}

// Access is a bitset drawn from {GET, SET, ANNO} describing which services a
// property may legally participate in.
type Access uint8

const (
	AccessGet Access = 1 << iota
	AccessSet
	AccessAnno
)

func (a Access) Intersects(other Access) bool {
	return a&other != 0
}

func (a Access) String() string {
	s := ""
	if a&AccessGet != 0 {
		s += "GET"
	}
	if a&AccessSet != 0 {
		if s != "" {
			s += "|"
		}
		s += "SET"
	}
	if a&AccessAnno != 0 {
		if s != "" {
			s += "|"
		}
		s += "ANNO"
	}
	if s == "" {
		return "NONE"
	}
	return s
}

// AllowedAccess returns the access-rule subset a service may carry, per the
// service/access-rule mapping table.
func AllowedAccess(esv ESV) Access {
	switch esv {
	case ESVSetI, ESVSetC, ESVSetISNA, ESVSetCSNA, ESVSetRes:
		return AccessSet
	case ESVGet, ESVGetSNA, ESVGetRes:
		return AccessGet
	case ESVSetGet, ESVSetGetRes, ESVSetGetSNA:
		return AccessSet | AccessGet
	case ESVInfReq, ESVInf, ESVInfC, ESVInfCRes, ESVInfSNA:
		return AccessAnno
	default:
		return 0
	}
}

// EncodeMode returns the Access mode (GET or SET) a property should encode
// its EDT under for the given service.
func EncodeMode(esv ESV) Access {
	allowed := AllowedAccess(esv)
	if allowed&AccessGet != 0 {
		return AccessGet
	}
	return AccessSet
}
