// Package serialport adapts github.com/tarm/serial to the radio package's
// Port/BaudSetter/Flusher interfaces. The radio adapter only depends on
// those interfaces, never on this package directly, so tests can drive it
// over an in-memory pipe instead of a UART.
package serialport

import (
	"fmt"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Port wraps a *serial.Port so it satisfies radio.Port, radio.BaudSetter,
// and radio.Flusher. tarm/serial has no in-place baudrate change, so
// SetBaudRate closes and reopens the connection at the new rate; this is
// only ever exercised by the adapter's baudrate probe before a join, never
// mid-session, so the brief reopen is harmless.
type Port struct {
	mu   sync.Mutex
	name string
	cfg  serial.Config
	port *serial.Port
}

// Open opens name at baud with the BP35A1's only documented framing, 8N1.
// readTimeout bounds how long a single Read call blocks for bytes, so the
// adapter's receive loop can notice a closed port and exit.
func Open(name string, baud int, readTimeout time.Duration) (*Port, error) {
	cfg := serial.Config{
		Name:        name,
		Baud:        baud,
		Size:        8,
		StopBits:    serial.Stop1,
		Parity:      serial.ParityNone,
		ReadTimeout: readTimeout,
	}
	p, err := serial.OpenPort(&cfg)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", name, err)
	}
	return &Port{name: name, cfg: cfg, port: p}, nil
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	port := p.port
	p.mu.Unlock()
	return port.Read(b)
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	port := p.port
	p.mu.Unlock()
	return port.Write(b)
}

// Flush discards any buffered input/output, used by the baudrate probe
// before each SKVER attempt.
func (p *Port) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port.Flush()
}

// SetBaudRate reopens the serial connection at baud.
func (p *Port) SetBaudRate(baud int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("serialport: close before baud change: %w", err)
	}
	p.cfg.Baud = baud
	np, err := serial.OpenPort(&p.cfg)
	if err != nil {
		return fmt.Errorf("serialport: reopen %s at %d baud: %w", p.name, baud, err)
	}
	p.port = np
	return nil
}

// Close releases the underlying serial port.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port.Close()
}
