// Package classcode enumerates ECHONET Lite class-group and class codes.
//
// ClassCode values are reused across class groups (0x01 means gas-leak
// sensor under SensorDevice, display under AvDevice, weight under
// HealthDevice). Any table keyed by class must use the (class group, class
// code) pair together, never a class code alone.
package classcode

// ClassGroupCode is the high byte of an EOJ's class identity.
type ClassGroupCode byte

const (
	SensorDevice           ClassGroupCode = 0x00
	AirConditionerDevice   ClassGroupCode = 0x01
	HomeEquipmentDevice    ClassGroupCode = 0x02
	CookingHouseWorkDevice ClassGroupCode = 0x03
	HealthDevice           ClassGroupCode = 0x04
	ManagerOpDevice        ClassGroupCode = 0x05
	AvDevice               ClassGroupCode = 0x06
	Profile                ClassGroupCode = 0x0E
	UserDefine             ClassGroupCode = 0x0F
)

// ClassCode is the low byte of an EOJ's class identity. Always interpret it
// together with a ClassGroupCode.
type ClassCode byte

const (
	// SensorDevice classes.
	GasLeakSensor ClassCode = 0x01

	// HealthDevice classes.
	WeighingScale ClassCode = 0x01

	// AvDevice classes.
	Display ClassCode = 0x01

	// HomeEquipmentDevice classes.
	LowVoltageSmartMeter ClassCode = 0x88

	// ManagerOpDevice classes.
	Controller ClassCode = 0xFF

	// Profile classes.
	NodeProfile ClassCode = 0xF0
)

// Pair fully identifies a class within its group.
type Pair struct {
	Group ClassGroupCode
	Class ClassCode
}

func NewPair(group ClassGroupCode, class ClassCode) Pair {
	return Pair{Group: group, Class: class}
}
