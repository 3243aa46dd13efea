// internal/transport/mock/bank.go
package mock

import (
	"fmt"
	"sync"

	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// Write is one recorded register write.
type Write struct {
	Unit    uint8
	Address uint16
	Value   uint16
}

type regKey struct {
	unit uint8
	addr uint16
}

// Bank is an in-memory register bus implementing transport.Registers.
// Unset registers read as zero.
type Bank struct {
	mu        sync.Mutex
	holding   map[regKey]uint16
	input     map[regKey]uint16
	readFail  map[regKey]error
	writeFail error
	writes    []Write
	requests  [][]byte
	connected bool
	port      string
	pacer     transport.Pacer

	// OnRequest answers raw requests; nil echoes the frame.
	OnRequest func(frame []byte) ([]byte, error)
}

var (
	_ transport.Registers = (*Bank)(nil)
	_ transport.Paced     = (*Bank)(nil)
)

func (b *Bank) Pacer() *transport.Pacer { return &b.pacer }

func NewBank(port string) *Bank {
	if port == "" {
		port = "mock"
	}
	return &Bank{
		holding:   make(map[regKey]uint16),
		input:     make(map[regKey]uint16),
		readFail:  make(map[regKey]error),
		connected: true,
		port:      port,
	}
}

// SetHolding stores consecutive holding registers from addr.
func (b *Bank) SetHolding(unit uint8, addr uint16, vals ...uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range vals {
		b.holding[regKey{unit, addr + uint16(i)}] = v
	}
}

// SetInput stores consecutive input registers from addr.
func (b *Bank) SetInput(unit uint8, addr uint16, vals ...uint16) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range vals {
		b.input[regKey{unit, addr + uint16(i)}] = v
	}
}

// Holding returns one stored holding register.
func (b *Bank) Holding(unit uint8, addr uint16) uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.holding[regKey{unit, addr}]
}

// FailRead makes reads starting at addr fail with err; nil clears it.
func (b *Bank) FailRead(unit uint8, addr uint16, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.readFail, regKey{unit, addr})
		return
	}
	b.readFail[regKey{unit, addr}] = err
}

// FailWrites makes every write fail with err; nil clears it.
func (b *Bank) FailWrites(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeFail = err
}

// Writes returns the writes recorded so far, failed ones included.
func (b *Bank) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Write(nil), b.writes...)
}

// Requests returns the raw frames passed to Request.
func (b *Bank) Requests() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.requests...)
}

func (b *Bank) read(table map[regKey]uint16, unit uint8, addr, qty uint16) ([]uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil, transport.ErrNotConnected
	}
	if err := b.readFail[regKey{unit, addr}]; err != nil {
		return nil, err
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = table[regKey{unit, addr + uint16(i)}]
	}
	return out, nil
}

func (b *Bank) ReadHoldingRegisters(unit uint8, addr, qty uint16) ([]uint16, error) {
	return b.read(b.holding, unit, addr, qty)
}

func (b *Bank) ReadInputRegisters(unit uint8, addr, qty uint16) ([]uint16, error) {
	return b.read(b.input, unit, addr, qty)
}

func (b *Bank) WriteSingleRegister(unit uint8, addr, value uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writes = append(b.writes, Write{Unit: unit, Address: addr, Value: value})
	if !b.connected {
		return transport.ErrNotConnected
	}
	if b.writeFail != nil {
		return b.writeFail
	}
	b.holding[regKey{unit, addr}] = value
	return nil
}

func (b *Bank) Request(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("mock: request needs unit and function: %w", transport.ErrDataFrame)
	}

	b.mu.Lock()
	b.requests = append(b.requests, append([]byte(nil), frame...))
	connected := b.connected
	fn := b.OnRequest
	b.mu.Unlock()

	if !connected {
		return nil, transport.ErrNotConnected
	}
	if fn != nil {
		return fn(frame)
	}
	return append([]byte(nil), frame...), nil
}

func (b *Bank) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *Bank) Metadata() result.Object {
	return result.Object{
		"isConnected": b.IsConnected(),
		"port":        b.port,
		"protocol":    "mock-modbus",
	}
}

func (b *Bank) Post(method string, body []byte) result.Object {
	switch method {
	case "disconnect":
		b.mu.Lock()
		b.connected = false
		b.mu.Unlock()
		return result.Success("disconnected")
	case "reconnect":
		b.mu.Lock()
		b.connected = true
		b.mu.Unlock()
		return result.Success("connected")
	default:
		return result.Fail(result.MsgUnknownMethod)
	}
}

func (b *Bank) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}
