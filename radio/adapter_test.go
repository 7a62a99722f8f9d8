package radio

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipePort wraps one end of a net.Pipe so it satisfies the Port interface;
// a net.Pipe is a synchronous in-memory duplex connection, which is enough
// to drive the adapter's line-framed protocol without a real serial device.
type pipePort struct {
	net.Conn
}

func newPipeAdapter(t *testing.T) (*Adapter, net.Conn) {
	t.Helper()
	client, sim := net.Pipe()
	a := NewAdapter(&pipePort{client}, nil)
	t.Cleanup(func() {
		// sim must close first: the adapter's receive loop may be blocked in
		// a Read on the other end, and a.Close() waits for that loop to
		// notice its context was cancelled and exit.
		sim.Close()
		a.Close()
	})
	return a, sim
}

func writeLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	_, err := conn.Write([]byte(line + "\r\n"))
	require.NoError(t, err)
}

// recvUntil reads byte by byte until it sees terminator, the same way the
// adapter's own readLine does. A net.Pipe write blocks until fully consumed
// by the peer, and sendCommand writes the command body and its terminator as
// separate Write calls, so a single fixed-size Read here would deadlock on
// the second write.
func recvUntil(t *testing.T, conn net.Conn, terminator string) string {
	t.Helper()
	var buf []byte
	tmp := make([]byte, 1)
	for {
		n, err := conn.Read(tmp)
		if err != nil {
			t.Logf("recvUntil: %v", err)
			return string(buf)
		}
		if n == 0 {
			continue
		}
		buf = append(buf, tmp[0])
		if strings.HasSuffix(string(buf), terminator) {
			return string(buf[:len(buf)-len(terminator)])
		}
	}
}

func TestCommandRoundTripWithEcho(t *testing.T) {
	a, sim := newPipeAdapter(t)

	go func() {
		cmdLine := recvUntil(t, sim, "\r\n")
		if cmdLine == "SKVER" {
			sim.Write([]byte("SKVER\r\n"))
			sim.Write([]byte("EVER 1.2.3\r\n"))
			sim.Write([]byte("OK\r\n"))
		}
	}()

	resp, err := a.sendCommand(SKVER, nil, nil, time.Second, true)
	require.NoError(t, err)
	assert.Equal(t, "EVER 1.2.3", resp)
}

func TestCommandFailureMapsToCommandError(t *testing.T) {
	a, sim := newPipeAdapter(t)

	go func() {
		recvUntil(t, sim, "\r\n")
		sim.Write([]byte("FAIL ER04\r\n"))
	}()

	_, err := a.sendCommand(SKRESET, nil, nil, time.Second, false)
	require.Error(t, err)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "ER04", cmdErr.Code)
	assert.Contains(t, cmdErr.Error(), "unsupported command")
}

func TestClassifyEventSetsAndClearsUDPTxAllowed(t *testing.T) {
	a, sim := newPipeAdapter(t)

	writeLine(t, sim, "EVENT 25 FE80:0000:0000:0000:021D:1290:0003:C2D6")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := a.Events(ctx)
	require.NoError(t, err)
	require.NotNil(t, ev.Module)
	assert.Equal(t, EventPANAConnectOK, ev.Module.Code)
	assert.True(t, a.udpTxAllowedNow())

	writeLine(t, sim, "EVENT 29 FE80:0000:0000:0000:021D:1290:0003:C2D6")
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	ev2, err := a.Events(ctx2)
	require.NoError(t, err)
	require.NotNil(t, ev2.Module)
	assert.Equal(t, EventSessionLifetimeExpire, ev2.Module.Code)
	assert.False(t, a.udpTxAllowedNow())
}

func TestClassifyERXUDPPushesUDPEvent(t *testing.T) {
	a, sim := newPipeAdapter(t)

	line := "ERXUDP FE80:0000:0000:0000:021D:1290:0003:C2D6 FE80:0000:0000:0000:1234:5678:9ABC:DEF0 0E1A 0E1A 001D129000ABCDEF 1 0012 1081000002880105FF017201E70400000000"
	writeLine(t, sim, line)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := a.Events(ctx)
	require.NoError(t, err)
	require.NotNil(t, ev.UDP)
	assert.Equal(t, uint16(0x0E1A), ev.UDP.SrcPort)
	assert.Equal(t, uint16(0x0E1A), ev.UDP.DstPort)
	assert.True(t, ev.UDP.Secured)
	assert.Equal(t, 0x12, ev.UDP.Length)
	assert.Len(t, ev.UDP.Payload, 0x12)
}

func TestEPANDESCAccumulatesAndCompletesAtSixFields(t *testing.T) {
	a, sim := newPipeAdapter(t)

	writeLine(t, sim, "EPANDESC")
	writeLine(t, sim, "  Channel:21")
	writeLine(t, sim, "  Channel Page:09")
	writeLine(t, sim, "  Pan ID:8888")
	writeLine(t, sim, "  Addr:001D129000ABCDEF")
	writeLine(t, sim, "  LQI:91")
	writeLine(t, sim, "  PairID:AAAA1111")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := a.Events(ctx)
	require.NoError(t, err)
	require.NotNil(t, ev.Epan)

	epan := ev.Epan
	require.True(t, epan.IsComplete())
	assert.Equal(t, byte(0x21), *epan.Channel)
	assert.Equal(t, byte(0x09), *epan.ChannelPage)
	assert.Equal(t, uint16(0x8888), *epan.PanID)
	assert.Equal(t, "001D129000ABCDEF", *epan.MacAddress)
	assert.Equal(t, byte(0x91), *epan.LQI)
	assert.Equal(t, "AAAA1111", *epan.PairID)

	// The adapter must have returned to NORMAL: a subsequent OK line lands
	// on the result channel, not the response channel.
	writeLine(t, sim, "OK")
	result, err := a.results.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OK", result)
}

func TestSKLL64RespondsWithAddressLineThenSyntheticOK(t *testing.T) {
	a, sim := newPipeAdapter(t)

	go func() {
		recvUntil(t, sim, "\r\n")
		sim.Write([]byte("FE80:0000:0000:0000:021D:1290:0003:C2D6\r\n"))
	}()

	resp, err := a.sendCommand(SKLL64, []string{"001D129000ABCDEF"}, nil, time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, "FE80:0000:0000:0000:021D:1290:0003:C2D6", resp)
}

func TestProductConfigReadParsesOKPayload(t *testing.T) {
	a, sim := newPipeAdapter(t)

	// ROPT is one of the UART option commands that terminate on a bare CR,
	// not CRLF.
	go func() {
		recvUntil(t, sim, "\r")
		sim.Write([]byte("OK 01\r"))
	}()

	resp, err := a.sendCommand(ROPT, nil, nil, time.Second, false)
	require.NoError(t, err)
	assert.Equal(t, "01", resp)
}

func TestTerminateClearsUDPTxAllowed(t *testing.T) {
	a, sim := newPipeAdapter(t)

	writeLine(t, sim, "EVENT 25 FE80:0000:0000:0000:021D:1290:0003:C2D6")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := a.Events(ctx)
	require.NoError(t, err)
	require.True(t, a.udpTxAllowedNow())

	go func() {
		cmdLine := recvUntil(t, sim, "\r\n")
		sim.Write([]byte(cmdLine + "\r\n"))
		sim.Write([]byte("OK\r\n"))
	}()

	require.NoError(t, a.Terminate())
	assert.False(t, a.udpTxAllowedNow())
}

func TestNoOpTokensAreRecognizedAndDropped(t *testing.T) {
	a, sim := newPipeAdapter(t)

	for _, tok := range []string{"EPONG", "EADDR", "ENEIGHBOR", "EEDSCAN", "EPORT"} {
		writeLine(t, sim, tok+" ignored-payload")
	}
	// Confirm none of these landed on the response queue by sending a real
	// response afterwards and checking it's the only thing there.
	writeLine(t, sim, "some other response line")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	line, err := a.responses.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "some other response line", line)
}
