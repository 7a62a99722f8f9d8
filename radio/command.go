// Package radio implements the serial-line adapter for a BP35A1-class
// Wi-SUN/Route-B module: SK command framing, event/line classification, and
// the join/scan/send-udp operations built on top of them.
package radio

// Command is one of the SK* command verbs the adapter writes to the serial
// port. Only a subset is ever issued by this module; the rest of the
// firmware's command vocabulary is named here for completeness. The line
// classifier does not consult this list: an echo is recognized by comparing
// it with the exact command line just written.
type Command string

const (
	SKSREG      Command = "SKSREG"
	SKINFO      Command = "SKINFO"
	SKSTART     Command = "SKSTART"
	SKJOIN      Command = "SKJOIN"
	SKREJOIN    Command = "SKREJOIN"
	SKTERM      Command = "SKTERM"
	SKSENDTO    Command = "SKSENDTO"
	SKPING      Command = "SKPING"
	SKSCAN      Command = "SKSCAN"
	SKREGDEV    Command = "SKREGDEV"
	SKRMDEV     Command = "SKRMDEV"
	SKSETKEY    Command = "SKSETKEY"
	SKRMKEY     Command = "SKRMKEY"
	SKSECENABLE Command = "SKSECENABLE"
	SKSETPSK    Command = "SKSETPSK"
	SKSETPWD    Command = "SKSETPWD"
	SKSETRBID   Command = "SKSETRBID"
	SKADDNBR    Command = "SKADDNBR"
	SKUDPPORT   Command = "SKUDPPORT"
	SKSAVE      Command = "SKSAVE"
	SKLOAD      Command = "SKLOAD"
	SKERASE     Command = "SKERASE"
	SKVER       Command = "SKVER"
	SKAPPVER    Command = "SKAPPVER"
	SKRESET     Command = "SKRESET"
	SKTABLE     Command = "SKTABLE"
	SKDSLEEP    Command = "SKDSLEEP"
	SKRFLO      Command = "SKRFLO"
	SKLL64      Command = "SKLL64"
	WOPT        Command = "WOPT"
	ROPT        Command = "ROPT"
	WUART       Command = "WUART"
	RUART       Command = "RUART"
)

// crCommands use a bare CR line terminator instead of the usual CRLF. The
// firmware's UART option commands are the only ones that behave this way.
var crCommands = map[Command]bool{
	WOPT:  true,
	ROPT:  true,
	WUART: true,
	RUART: true,
}

// newline reports the line terminator this command's request and response
// lines use.
func (c Command) newline() string {
	if crCommands[c] {
		return "\r"
	}
	return "\r\n"
}
