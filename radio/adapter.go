package radio

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Port is the serial transport the adapter drives. The concrete
// implementation (a wrapped github.com/tarm/serial.Port) lives in the
// serialport package; this interface is all the adapter depends on, so it
// can be exercised with an in-memory pipe in tests.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// BaudSetter is implemented by ports that support changing their baudrate
// in place, which the auto-detect probe needs.
type BaudSetter interface {
	SetBaudRate(baud int) error
}

// Flusher is implemented by ports that can discard buffered bytes before a
// baudrate probe attempt.
type Flusher interface {
	Flush() error
}

var baudSweep = []int{115200, 2400, 4800, 9600, 19200, 38400, 57600}

// Event is the tagged union pushed onto the adapter's event stream: exactly
// one of its fields is non-nil.
type Event struct {
	Module *ModuleEvent
	Epan   *Epan
	UDP    *UDPReceiveEvent
}

// Adapter owns a serial port and demultiplexes it into the event, result,
// and response streams described by the line-framed SK command protocol.
type Adapter struct {
	port Port
	log  func(format string, args ...any)

	mu          sync.Mutex
	state       RxState
	terminator  string
	pendingEpan *Epan

	udpTxAllowed atomic.Bool

	events    *queue[Event]
	results   *queue[string]
	responses *queue[string]

	cmdMu sync.Mutex // serializes sendCommand calls end-to-end

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAdapter wraps port and starts its receiver loop. logf may be nil, in
// which case dropped/unparseable lines are discarded silently.
func NewAdapter(port Port, logf func(format string, args ...any)) *Adapter {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		port:       port,
		log:        logf,
		state:      StateNormal,
		terminator: "\r\n",
		events:     newQueue[Event](),
		results:    newQueue[string](),
		responses:  newQueue[string](),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go a.receiveLoop(ctx)
	return a
}

// Close stops the receiver loop. The underlying port is not closed here;
// callers own that.
func (a *Adapter) Close() {
	a.cancel()
	<-a.done
}

// Events returns the next module/beacon/UDP event, blocking until one
// arrives or ctx is done.
func (a *Adapter) Events(ctx context.Context) (Event, error) {
	return a.events.Pop(ctx)
}

func (a *Adapter) udpTxAllowedNow() bool { return a.udpTxAllowed.Load() }

// --- receiver ---

func (a *Adapter) receiveLoop(ctx context.Context) {
	defer close(a.done)
	r := bufio.NewReader(a.port)
	for {
		if ctx.Err() != nil {
			return
		}
		line, err := a.readLine(r)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.log("radio: read error: %v", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		a.classify(line)
	}
}

func (a *Adapter) readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		buf = append(buf, b)
		a.mu.Lock()
		term := a.terminator
		a.mu.Unlock()
		if strings.HasSuffix(string(buf), term) {
			return string(buf[:len(buf)-len(term)]), nil
		}
	}
}

func (a *Adapter) classify(line string) {
	a.mu.Lock()
	state := a.state
	a.mu.Unlock()

	switch state {
	case StateEPANDESC:
		a.classifyEPANDESC(line)
		return
	case StateSKLL64:
		a.classifySKLL64(line)
		return
	case StateProductConfigRead:
		a.classifyProductConfigRead(line)
		return
	}

	switch {
	case strings.HasPrefix(line, "ERXUDP"):
		a.handleERXUDP(line)
	case strings.HasPrefix(line, "EVENT"):
		a.handleEvent(line)
	case strings.HasPrefix(line, "EPANDESC"):
		a.mu.Lock()
		a.state = StateEPANDESC
		a.pendingEpan = &Epan{}
		a.mu.Unlock()
	case strings.HasPrefix(line, "OK") || strings.HasPrefix(line, "FAIL"):
		a.results.Push(line)
	case isNoOpToken(line):
		// EPONG/EADDR/ENEIGHBOR/EEDSCAN/EPORT: recognized but not acted on
		// by anything this client issues.
	default:
		a.responses.Push(line)
	}
}

func isNoOpToken(line string) bool {
	for _, prefix := range []string{"EPONG", "EADDR", "ENEIGHBOR", "EEDSCAN", "EPORT"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func (a *Adapter) handleEvent(line string) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		a.log("radio: malformed EVENT line %q", line)
		return
	}
	code, err := strconv.ParseUint(fields[1], 16, 8)
	if err != nil {
		a.log("radio: malformed EVENT code in %q", line)
		return
	}
	sender := ""
	if len(fields) >= 3 {
		sender = fields[2]
	}
	ev := ModuleEvent{Code: EventCode(code), Sender: sender}

	switch ev.Code {
	case EventPANAConnectOK:
		a.udpTxAllowed.Store(true)
	case EventSessionLifetimeExpire:
		a.udpTxAllowed.Store(false)
	}
	a.events.Push(Event{Module: &ev})
}

func (a *Adapter) handleERXUDP(line string) {
	fields := strings.Fields(line)
	if len(fields) != 9 {
		a.log("radio: malformed ERXUDP line %q", line)
		return
	}
	srcPort, err1 := strconv.ParseUint(fields[3], 16, 16)
	dstPort, err2 := strconv.ParseUint(fields[4], 16, 16)
	length, err3 := strconv.ParseUint(fields[7], 16, 32)
	payload, err4 := hex.DecodeString(fields[8])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		a.log("radio: malformed ERXUDP fields in %q", line)
		return
	}
	ev := UDPReceiveEvent{
		SrcAddr: fields[1],
		DstAddr: fields[2],
		SrcPort: uint16(srcPort),
		DstPort: uint16(dstPort),
		SrcMAC:  fields[5],
		Secured: fields[6] == "1",
		Length:  int(length),
		Payload: payload,
	}
	a.events.Push(Event{UDP: &ev})
}

func (a *Adapter) classifyEPANDESC(line string) {
	trimmed := strings.TrimSpace(line)
	parts := strings.SplitN(trimmed, ":", 2)
	if len(parts) != 2 {
		return
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])

	a.mu.Lock()
	epan := a.pendingEpan
	if epan == nil {
		a.mu.Unlock()
		return
	}
	switch key {
	case "Channel":
		if v, err := strconv.ParseUint(value, 16, 8); err == nil {
			b := byte(v)
			epan.Channel = &b
		}
	case "Channel Page":
		if v, err := strconv.ParseUint(value, 16, 8); err == nil {
			b := byte(v)
			epan.ChannelPage = &b
		}
	case "Pan ID":
		if v, err := strconv.ParseUint(value, 16, 16); err == nil {
			p := uint16(v)
			epan.PanID = &p
		}
	case "Addr":
		s := value
		epan.MacAddress = &s
	case "LQI":
		if v, err := strconv.ParseUint(value, 16, 8); err == nil {
			b := byte(v)
			epan.LQI = &b
		}
	case "PairID":
		s := value
		epan.PairID = &s
	}
	complete := epan.IsComplete()
	if complete {
		a.state = StateNormal
	}
	a.mu.Unlock()

	if complete {
		a.events.Push(Event{Epan: epan})
	}
}

func (a *Adapter) classifySKLL64(line string) {
	a.mu.Lock()
	a.state = StateNormal
	a.mu.Unlock()

	if strings.HasPrefix(line, "FAIL") {
		a.results.Push(line)
		return
	}
	a.responses.Push(line)
	a.results.Push("OK")
}

func (a *Adapter) classifyProductConfigRead(line string) {
	a.mu.Lock()
	a.state = StateNormal
	a.mu.Unlock()

	if strings.HasPrefix(line, "OK ") {
		a.responses.Push(strings.TrimPrefix(line, "OK "))
		a.results.Push("OK")
		return
	}
	a.results.Push(line)
}

// --- command contract ---

func (a *Adapter) sendCommand(cmd Command, params []string, data []byte, timeout time.Duration, expectEcho bool) (string, error) {
	a.cmdMu.Lock()
	defer a.cmdMu.Unlock()

	a.results.Reset()
	a.responses.Reset()

	a.mu.Lock()
	switch cmd {
	case SKLL64:
		a.state = StateSKLL64
	case ROPT, RUART:
		a.state = StateProductConfigRead
	default:
		a.state = StateNormal
	}
	a.terminator = cmd.newline()
	a.mu.Unlock()

	var line strings.Builder
	line.WriteString(string(cmd))
	for _, p := range params {
		line.WriteByte(' ')
		line.WriteString(p)
	}
	wire := line.String()

	if _, err := a.port.Write([]byte(wire)); err != nil {
		return "", fmt.Errorf("radio: write %s: %w", cmd, err)
	}
	if len(data) > 0 {
		if _, err := a.port.Write([]byte(" ")); err != nil {
			return "", fmt.Errorf("radio: write %s payload: %w", cmd, err)
		}
		if _, err := a.port.Write(data); err != nil {
			return "", fmt.Errorf("radio: write %s payload: %w", cmd, err)
		}
	}
	if _, err := a.port.Write([]byte(cmd.newline())); err != nil {
		return "", fmt.Errorf("radio: write %s newline: %w", cmd, err)
	}

	if expectEcho {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		echoed, err := a.responses.Pop(ctx)
		cancel()
		if err == nil && echoed != wire {
			a.responses.PushFront(echoed)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	result, err := a.results.Pop(ctx)
	cancel()
	if err != nil {
		return "", &TimeoutError{Operation: fmt.Sprintf("%s result", cmd)}
	}
	if strings.HasPrefix(result, "FAIL") {
		fields := strings.Fields(result)
		code := ""
		if len(fields) > 1 {
			code = fields[1]
		}
		return "", &CommandError{Command: cmd, Code: code}
	}

	var respLines []string
	for {
		l, ok := a.responses.TryPop()
		if !ok {
			break
		}
		respLines = append(respLines, l)
	}
	if len(respLines) == 0 {
		return "", nil
	}
	return strings.Join(respLines, "\r\n"), nil
}

// --- baudrate auto-detect ---

// DetectBaudrate probes the declared baudrates, two full sweeps, adopting
// the first one that answers SKVER with an EVER line.
func (a *Adapter) DetectBaudrate() error {
	setter, ok := a.port.(BaudSetter)
	if !ok {
		return fmt.Errorf("radio: port does not support baudrate switching")
	}
	for sweep := 0; sweep < 2; sweep++ {
		for _, baud := range baudSweep {
			if err := setter.SetBaudRate(baud); err != nil {
				continue
			}
			if f, ok := a.port.(Flusher); ok {
				_ = f.Flush()
			}
			_, _ = a.port.Write([]byte("\r\n"))

			resp, err := a.sendCommand(SKVER, nil, nil, 1*time.Second, true)
			if err == nil && strings.HasPrefix(resp, "EVER") {
				return nil
			}
		}
	}
	return fmt.Errorf("radio: no baudrate answered the SKVER probe")
}

// --- high-level operations ---

// Init runs the module through SKRESET, disables local echo, selects
// hex-encoded UDP payloads if not already set, and registers the Route-B
// credentials.
func (a *Adapter) Init(routeBID, routeBPassword string) error {
	if _, err := a.sendCommand(SKRESET, nil, nil, 3*time.Second, true); err != nil {
		return err
	}
	if _, err := a.sendCommand(SKSREG, []string{"SFE", "0"}, nil, 3*time.Second, true); err != nil {
		return err
	}

	ropt, err := a.sendCommand(ROPT, nil, nil, 3*time.Second, false)
	if err != nil {
		return err
	}
	if strings.TrimSpace(ropt) != "01" {
		if _, err := a.sendCommand(WOPT, []string{"01"}, nil, 3*time.Second, false); err != nil {
			return err
		}
	}

	if _, err := a.sendCommand(SKSETRBID, []string{routeBID}, nil, 3*time.Second, false); err != nil {
		return err
	}
	lenHex := fmt.Sprintf("%02X", len(routeBPassword))
	if _, err := a.sendCommand(SKSETPWD, []string{lenHex, routeBPassword}, nil, 3*time.Second, false); err != nil {
		return err
	}
	return nil
}

// Scan performs an active scan, growing the dwell duration until a complete
// Epan descriptor is observed or the duration ceiling of 7 is reached.
func (a *Adapter) Scan(duration int) (*Epan, error) {
	if duration <= 0 {
		duration = 4
	}
	for duration <= 7 {
		if _, err := a.sendCommand(SKSCAN, []string{"2", "FFFFFFFF", strconv.Itoa(duration)}, nil, 3*time.Second, true); err != nil {
			return nil, err
		}

		var latest *Epan
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	drain:
		for {
			ev, err := a.events.Pop(ctx)
			if err != nil {
				break drain
			}
			if ev.Epan != nil {
				latest = ev.Epan
			}
			if ev.Module != nil && ev.Module.Code == EventActiveScanOK {
				break drain
			}
		}
		cancel()

		if latest != nil && latest.IsComplete() {
			return latest, nil
		}
		duration++
	}
	return nil, &TimeoutError{Operation: "scan"}
}

// Join registers the scanned PAN's channel and PAN id, resolves the meter's
// link-local address, and waits for the PANA handshake to complete.
func (a *Adapter) Join(epan *Epan) (net.IP, error) {
	if !epan.IsComplete() {
		return nil, fmt.Errorf("radio: join requires a complete scan descriptor")
	}

	channelHex := fmt.Sprintf("%02X", *epan.Channel)
	if _, err := a.sendCommand(SKSREG, []string{"S2", channelHex}, nil, 3*time.Second, true); err != nil {
		return nil, err
	}
	panHex := fmt.Sprintf("%04X", *epan.PanID)
	if _, err := a.sendCommand(SKSREG, []string{"S3", panHex}, nil, 3*time.Second, true); err != nil {
		return nil, err
	}

	resp, err := a.sendCommand(SKLL64, []string{*epan.MacAddress}, nil, 3*time.Second, false)
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(strings.TrimSpace(resp))
	if ip == nil {
		return nil, fmt.Errorf("radio: SKLL64 returned an unparseable address %q", resp)
	}

	if _, err := a.sendCommand(SKJOIN, []string{ip.String()}, nil, 3*time.Second, true); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for {
		ev, err := a.events.Pop(ctx)
		if err != nil {
			return nil, &TimeoutError{Operation: "join"}
		}
		if ev.Module == nil {
			continue
		}
		switch ev.Module.Code {
		case EventPANAConnectOK:
			return ip, nil
		case EventPANAConnectError:
			return nil, &PANAConnectError{Sender: ev.Module.Sender}
		}
	}
}

// Terminate asks the module to end the current PANA session. Further UDP
// sends are rejected until a new Join completes.
func (a *Adapter) Terminate() error {
	a.udpTxAllowed.Store(false)
	_, err := a.sendCommand(SKTERM, nil, nil, 3*time.Second, true)
	return err
}

// SendUDP transmits data to ip:port. security selects the module's
// encrypted (1) versus plaintext (2) SKSENDTO mode.
func (a *Adapter) SendUDP(ip net.IP, port uint16, data []byte, handle byte, security bool) error {
	if !a.udpTxAllowedNow() {
		return &TxProhibitedError{Reason: "PANA session is not connected"}
	}
	secFlag := "2"
	if security {
		secFlag = "1"
	}
	params := []string{
		fmt.Sprintf("%X", handle),
		ip.String(),
		fmt.Sprintf("%04X", port),
		secFlag,
		fmt.Sprintf("%04X", len(data)),
	}
	_, err := a.sendCommand(SKSENDTO, params, data, 3*time.Second, true)
	return err
}

// PacketSizeLimit is the MTU-like ceiling the transport pump fragments
// outbound frames to.
func (a *Adapter) PacketSizeLimit() int { return 1232 }
