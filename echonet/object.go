package echonet

import "fmt"

// EOJ identifies an ECHONET Lite object instance: a class group, a class
// within that group, and an instance number. Construct once, never mutate.
type EOJ struct {
	ClassGroupCode byte
	ClassCode      byte
	InstanceCode   byte
}

// NewEOJ builds an EOJ from its three wire bytes.
func NewEOJ(classGroup, class, instance byte) EOJ {
	return EOJ{
		ClassGroupCode: classGroup,
		ClassCode:      class,
		InstanceCode:   instance,
	}
}

func (o EOJ) String() string {
	return fmt.Sprintf("%02X%02X%02X", o.ClassGroupCode, o.ClassCode, o.InstanceCode)
}

// ObjectHeader is the (source, destination) object pair carried by every frame.
type ObjectHeader struct {
	Source      EOJ
	Destination EOJ
}

// NodeProfileObject is the well-known controller-facing node profile instance.
var NodeProfileObject = NewEOJ(0x0E, 0xF0, 0x01)
