// internal/transport/rawserial/port.go
package rawserial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/tamzrod/fieldbus-bridge/internal/codec"
	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// Porter is the minimal serial port surface the transport needs.
// go.bug.st/serial.Port satisfies it.
type Porter interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Opener opens a port. Tests replace it.
type Opener func(path string, mode *serial.Mode) (Porter, error)

// OpenSerial opens a real port with go.bug.st/serial.
func OpenSerial(path string, mode *serial.Mode) (Porter, error) {
	return serial.Open(path, mode)
}

// Config describes one raw framed serial line.
type Config struct {
	Path    string
	Options PortOptions
	Frame   codec.Frame

	// Backlog bounds decoded frames waiting for Receive (default 16).
	Backlog int

	Opener Opener
}

const pollInterval = 50 * time.Millisecond

// Port is a transport.Stream over a serial line. A background reader
// feeds a codec.Accumulator and queues whole frames.
type Port struct {
	cfg    Config
	log    zerolog.Logger
	frames chan []byte

	connected atomic.Bool

	mu   sync.Mutex
	port Porter
	done chan struct{}
	wg   sync.WaitGroup
}

var _ transport.Stream = (*Port)(nil)

// Open opens the line and starts the reader.
func Open(cfg Config) (*Port, error) {
	if cfg.Path == "" {
		return nil, errors.New("rawserial: port path required")
	}
	if err := cfg.Frame.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = 16
	}
	if cfg.Opener == nil {
		cfg.Opener = OpenSerial
	}

	p := &Port{
		cfg:    cfg,
		log:    log.With().Str("component", "rawserial").Str("port", cfg.Path).Logger(),
		frames: make(chan []byte, cfg.Backlog),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.open(); err != nil {
		return nil, err
	}
	return p, nil
}

// open connects and starts the reader. Caller holds p.mu.
func (p *Port) open() error {
	mode, err := p.cfg.Options.SerialMode()
	if err != nil {
		return err
	}
	port, err := p.cfg.Opener(p.cfg.Path, mode)
	if err != nil {
		return fmt.Errorf("rawserial: open %s: %w", p.cfg.Path, err)
	}
	if err := port.SetReadTimeout(pollInterval); err != nil {
		_ = port.Close()
		return fmt.Errorf("rawserial: set read timeout: %w", err)
	}

	p.port = port
	p.connected.Store(true)
	p.done = make(chan struct{})
	p.wg.Add(1)
	go p.read(port, p.done)
	return nil
}

// shutdown stops the reader and closes the port. Caller holds p.mu.
func (p *Port) shutdown() error {
	if p.port == nil {
		return nil
	}
	close(p.done)
	err := p.port.Close()
	p.wg.Wait()
	p.port = nil
	p.connected.Store(false)
	return err
}

func (p *Port) read(port Porter, done <-chan struct{}) {
	defer p.wg.Done()

	acc := codec.NewAccumulator(p.cfg.Frame, 0)
	buf := make([]byte, 64)
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := port.Read(buf)
		for _, f := range acc.Write(buf[:n]) {
			p.push(f)
		}
		if err != nil {
			select {
			case <-done:
			default:
				p.log.Warn().Err(err).Msg("serial read failed")
				p.connected.Store(false)
			}
			return
		}
	}
}

// push drops the oldest frame when the backlog is full.
func (p *Port) push(f []byte) {
	for {
		select {
		case p.frames <- f:
			return
		default:
		}
		select {
		case <-p.frames:
		default:
		}
	}
}

// Flush drops queued frames.
func (p *Port) Flush() {
	for {
		select {
		case <-p.frames:
		default:
			return
		}
	}
}

func (p *Port) Send(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected.Load() {
		return 0, transport.ErrNotConnected
	}
	return p.port.Write(b)
}

// Receive returns the next whole frame (envelope included) accepted by
// filter, or transport.ErrTimeout.
func (p *Port) Receive(filter func([]byte) bool, timeout time.Duration) ([]byte, error) {
	if !p.IsConnected() {
		return nil, transport.ErrNotConnected
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case f := <-p.frames:
			if filter == nil || filter(f) {
				return f, nil
			}
		case <-deadline.C:
			return nil, transport.ErrTimeout
		}
	}
}

func (p *Port) IsConnected() bool {
	return p.connected.Load()
}

func (p *Port) Metadata() result.Object {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts, _ := p.cfg.Options.Normalize()
	return result.Object{
		"isConnected": p.connected.Load(),
		"port":        p.cfg.Path,
		"speed":       opts.BaudRate,
		"protocol":    "serial",
	}
}

// Reconnect reopens the line, optionally on a new path or speed.
func (p *Port) Reconnect(path string, speed int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.shutdown()
	if path != "" {
		p.cfg.Path = path
	}
	if speed > 0 {
		p.cfg.Options.BaudRate = speed
	}
	return p.open()
}

func (p *Port) disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown()
}

func (p *Port) Close() error {
	return p.disconnect()
}
