// Package transport implements the session layer's transmit/receive pump:
// it turns an application-level Request into one or more wire frames,
// fragmenting to the radio's packet size limit, correlates GetRes/SetRes
// replies back to the request that asked for them by transaction id, and
// auto-acknowledges InfC change notifications.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"kuramo.ch/routeb-client/echonet"
	"kuramo.ch/routeb-client/echonet/codec"
	"kuramo.ch/routeb-client/echonet/property"
	"kuramo.ch/routeb-client/radio"
)

// EchonetLitePort is the well-known UDP port ECHONET Lite frames travel on.
const EchonetLitePort = 3610

// defaultSendHandle is the SKSENDTO UDP handle opened by the module at boot.
const defaultSendHandle = 1

// Radio is the subset of *radio.Adapter the pump depends on, kept narrow so
// tests can drive it against a fake instead of a real serial port.
type Radio interface {
	SendUDP(ip net.IP, port uint16, data []byte, handle byte, security bool) error
	Events(ctx context.Context) (radio.Event, error)
	PacketSizeLimit() int
}

// Request is a caller-facing ECHONET Lite exchange. Port defaults to
// EchonetLitePort and Handle to 1 when left zero. Security selects the
// module's encrypted (true) versus plaintext (false) SKSENDTO mode; callers
// talking to a real meter over Route-B should leave it true.
type Request struct {
	Dst      net.IP
	Port     uint16
	Handle   byte
	Security bool

	SEOJ, DEOJ echonet.EOJ
	ESV        echonet.ESV
	Properties []property.Property
}

// Response is a decoded inbound frame, either delivered as the answer to a
// pending Send or surfaced unsolicited through Responses().
type Response struct {
	*codec.DecodedFrame
	SrcAddr net.IP
}

type txJob struct {
	req      Request
	deadline time.Duration
	result   chan *Response
	errCh    chan error

	// A synthesized InfC_Res acknowledgement bypasses property encoding
	// entirely: it echoes the notification's raw wire tuples back under a
	// swapped object header, so it carries its own pre-built frame bytes.
	rawAck  bool
	rawData []byte
}

// Pump owns the pending-transaction map and the transmit/receive queues.
// The transmit task registers pending slots before sending; the receive
// task signals through the channel stored there and frees the slot.
type Pump struct {
	radio Radio
	tids  *echonet.TIDCounter
	log   func(format string, args ...any)

	txQueue *queue[*txJob]
	rxQueue *queue[*Response]

	mu      sync.Mutex
	pending map[echonet.TID]chan *Response

	wg sync.WaitGroup
}

// NewPump constructs a pump over r. logf may be nil, in which case
// diagnostics (timeouts, dropped frames, failed acks) are discarded.
func NewPump(r Radio, logf func(format string, args ...any)) *Pump {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Pump{
		radio:   r,
		tids:    &echonet.TIDCounter{},
		log:     logf,
		txQueue: newQueue[*txJob](),
		rxQueue: newQueue[*Response](),
		pending: make(map[echonet.TID]chan *Response),
	}
}

// Start launches the transmit and receive tasks. Both exit once ctx is done
// (or, for the receive task, once the radio's event stream itself ends).
func (p *Pump) Start(ctx context.Context) {
	p.wg.Add(2)
	go p.transmitLoop(ctx)
	go p.receiveLoop(ctx)
}

// Wait blocks until both tasks have exited.
func (p *Pump) Wait() { p.wg.Wait() }

// Responses returns the next decoded inbound frame. Every decoded frame is
// queued here, including frames that also answer a pending Send (see
// receiveLoop).
func (p *Pump) Responses(ctx context.Context) (*Response, error) {
	return p.rxQueue.Pop(ctx)
}

func expectsResponse(esv echonet.ESV) bool {
	return esv == echonet.ESVGet || esv == echonet.ESVSetC
}

// Send encodes req, fragments it to the radio's packet size limit, and
// writes each resulting frame via the radio interface. Get and SetC
// requests wait up to timeout for each fragment's reply in turn and return
// the last reply received; a TimeoutError is returned only when no fragment
// was answered. Every other service is fire-and-forget and returns as soon
// as the request is queued.
func (p *Pump) Send(ctx context.Context, req Request, timeout time.Duration) (*Response, error) {
	job := &txJob{
		req:      req,
		deadline: timeout,
		result:   make(chan *Response, 1),
		errCh:    make(chan error, 1),
	}
	p.txQueue.Push(job)

	if !expectsResponse(req.ESV) {
		return nil, nil
	}
	select {
	case resp := <-job.result:
		return resp, nil
	case err := <-job.errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pump) transmitLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		job, err := p.txQueue.Pop(ctx)
		if err != nil {
			return
		}
		p.processJob(ctx, job)
	}
}

func (p *Pump) processJob(ctx context.Context, job *txJob) {
	port := job.req.Port
	if port == 0 {
		port = EchonetLitePort
	}
	handle := job.req.Handle
	if handle == 0 {
		handle = defaultSendHandle
	}

	if job.rawAck {
		if err := p.radio.SendUDP(job.req.Dst, port, job.rawData, handle, job.req.Security); err != nil {
			p.log("transport: InfC_Res ack to %s failed: %v", job.req.Dst, err)
		}
		return
	}

	limit := p.radio.PacketSizeLimit()
	builder := codec.NewFrameBuilder(job.req.SEOJ, job.req.DEOJ, job.req.ESV, codec.WithPacketSizeLimit(limit))
	for _, prop := range job.req.Properties {
		if err := builder.AddProperty(prop); err != nil {
			job.errCh <- err
			return
		}
	}
	frames, err := builder.Make(p.tids)
	if err != nil {
		job.errCh <- err
		return
	}

	expectResp := expectsResponse(job.req.ESV)
	var lastResp *Response
	var lastErr error

	for _, f := range frames {
		data, err := f.MarshalBinary()
		if err != nil {
			if expectResp {
				job.errCh <- err
				return
			}
			p.log("transport: failed to encode frame tid=%04X: %v", f.TID, err)
			continue
		}

		var waitCh chan *Response
		if expectResp {
			waitCh = make(chan *Response, 1)
			p.mu.Lock()
			p.pending[f.TID] = waitCh
			p.mu.Unlock()
		}

		if err := p.radio.SendUDP(job.req.Dst, port, data, handle, job.req.Security); err != nil {
			if expectResp {
				p.mu.Lock()
				delete(p.pending, f.TID)
				p.mu.Unlock()
			}
			if expectResp {
				job.errCh <- err
				return
			}
			p.log("transport: send tid=%04X to %s failed: %v", f.TID, job.req.Dst, err)
			continue
		}

		if !expectResp {
			continue
		}

		select {
		case resp := <-waitCh:
			lastResp = resp
		case <-time.After(job.deadline):
			p.mu.Lock()
			delete(p.pending, f.TID)
			p.mu.Unlock()
			p.log("transport: request tid=%04X timed out waiting for response", f.TID)
			lastErr = &TimeoutError{TID: fmt.Sprintf("%04X", uint16(f.TID))}
		case <-ctx.Done():
			return
		}
	}

	if !expectResp {
		job.result <- nil
		return
	}
	if lastResp != nil {
		job.result <- lastResp
		return
	}
	if lastErr != nil {
		job.errCh <- lastErr
		return
	}
	job.result <- nil
}

func (p *Pump) receiveLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		ev, err := p.radio.Events(ctx)
		if err != nil {
			return
		}
		if ev.UDP == nil || ev.UDP.DstPort != EchonetLitePort {
			continue
		}

		decoded, err := codec.Decode(ev.UDP.Payload)
		if err != nil {
			p.log("transport: dropping frame from %s: %v", ev.UDP.SrcAddr, err)
			continue
		}

		resp := &Response{DecodedFrame: decoded, SrcAddr: net.ParseIP(ev.UDP.SrcAddr)}
		p.rxQueue.Push(resp)

		p.mu.Lock()
		waitCh, ok := p.pending[decoded.TID]
		if ok {
			delete(p.pending, decoded.TID)
		}
		p.mu.Unlock()
		if ok {
			waitCh <- resp
		}

		if decoded.ESV == echonet.ESVInfC {
			p.autoReply(resp.SrcAddr, decoded)
		}
	}
}

// autoReply synthesizes an InfC_Res for a change notification: same
// transaction id, same property tuples, source and destination swapped.
// It bypasses FrameBuilder/AddProperty's access-rule check entirely — the
// ack must echo exactly what was received, regardless of whether those
// EPCs declare ANNO as one of their access rules.
func (p *Pump) autoReply(dst net.IP, decoded *codec.DecodedFrame) {
	ack := echonet.Frame{
		EHD1:       echonet.EchonetLiteEHD1,
		EHD2:       echonet.Format1,
		TID:        decoded.TID,
		SEOJ:       decoded.DEOJ,
		DEOJ:       decoded.SEOJ,
		ESV:        echonet.ESVInfCRes,
		Properties: decoded.Raw,
	}
	data, err := ack.MarshalBinary()
	if err != nil {
		p.log("transport: failed to build InfC_Res ack for tid=%04X: %v", decoded.TID, err)
		return
	}
	p.txQueue.Push(&txJob{
		req:     Request{Dst: dst, Security: true},
		result:  make(chan *Response, 1),
		errCh:   make(chan error, 1),
		rawAck:  true,
		rawData: data,
	})
}
