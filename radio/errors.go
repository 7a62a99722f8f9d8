package radio

import "fmt"

// CommandError wraps a FAIL result line, translating the firmware's ER code
// into the message a caller can log or display.
type CommandError struct {
	Command Command
	Code    string // e.g. "ER04"
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Command, e.codeMessage(), e.Code)
}

func (e *CommandError) codeMessage() string {
	switch e.Code {
	case "ER04":
		return "unsupported command"
	case "ER05":
		return "wrong number of arguments"
	case "ER06":
		return "invalid argument"
	case "ER09":
		return "UART input error"
	case "ER10":
		return "command execution failed"
	default:
		return "unknown error"
	}
}

// TxProhibitedError is returned by SendUDP when a datagram is attempted
// before the PANA session has reached PANA_CONNECT_OK, or after it has been
// torn down by SESITON_LIFETIME_EXPIRE.
type TxProhibitedError struct {
	Reason string
}

func (e *TxProhibitedError) Error() string {
	return fmt.Sprintf("radio: UDP send prohibited: %s", e.Reason)
}

// PANAConnectError is returned by Join when the module reports
// PANA_CONNECT_ERROR instead of PANA_CONNECT_OK.
type PANAConnectError struct {
	Sender string
}

func (e *PANAConnectError) Error() string {
	return fmt.Sprintf("radio: PANA connect error (reported by %s)", e.Sender)
}

// TimeoutError is returned when a blocking operation (Scan, Join, a command
// result wait) exceeds its deadline without the expected line arriving. It
// is not necessarily fatal; callers may retry.
type TimeoutError struct {
	Operation string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("radio: %s timed out", e.Operation)
}
