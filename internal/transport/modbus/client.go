// internal/transport/modbus/client.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

const (
	ModeRTU = "rtu"
	ModeTCP = "tcp"
)

// Config is minimal transport config.
type Config struct {
	Mode string

	// RTU
	Port     string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string

	// TCP
	Endpoint string

	Timeout time.Duration
}

type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// Client is one Modbus bus (a serial line or a TCP endpoint).
// It serializes requests because it mutates the unit id per call.
type Client struct {
	mu        sync.Mutex
	cfg       Config
	handler   handler
	setUnit   func(uint8)
	client    modbus.Client
	connected bool
	pacer     transport.Pacer
}

var (
	_ transport.Registers = (*Client)(nil)
	_ transport.Paced     = (*Client)(nil)
)

// Pacer is shared by every device on this bus.
func (c *Client) Pacer() *transport.Pacer { return &c.pacer }

// New creates a connected client. Connection failure is returned so that
// startup fails fast.
func New(cfg Config) (*Client, error) {
	c, err := build(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.handler.Connect(); err != nil {
		return nil, fmt.Errorf("modbus: connect %s: %w", c.address(), err)
	}
	c.connected = true
	return c, nil
}

func build(cfg Config) (*Client, error) {
	switch cfg.Mode {
	case ModeRTU, "":
		if cfg.Port == "" {
			return nil, errors.New("modbus: serial port required")
		}
		cfg.Mode = ModeRTU
		h := modbus.NewRTUClientHandler(cfg.Port)
		applySerial(h, cfg)
		return newClient(cfg, h, func(u uint8) { h.SlaveId = u }), nil

	case ModeTCP:
		if cfg.Endpoint == "" {
			return nil, errors.New("modbus: endpoint required")
		}
		h := modbus.NewTCPClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		return newClient(cfg, h, func(u uint8) { h.SlaveId = u }), nil

	default:
		return nil, fmt.Errorf("modbus: unsupported mode %q", cfg.Mode)
	}
}

func applySerial(h *modbus.RTUClientHandler, cfg Config) {
	h.Address = cfg.Port
	h.BaudRate = cfg.BaudRate
	h.DataBits = cfg.DataBits
	h.StopBits = cfg.StopBits
	h.Parity = cfg.Parity
	h.Timeout = cfg.Timeout
}

func newClient(cfg Config, h handler, setUnit func(uint8)) *Client {
	return &Client{
		cfg:     cfg,
		handler: h,
		setUnit: setUnit,
		client:  modbus.NewClient(h),
	}
}

func (c *Client) address() string {
	if c.cfg.Mode == ModeTCP {
		return c.cfg.Endpoint
	}
	return c.cfg.Port
}

// track updates the connection flag from the outcome of one call.
// Caller holds c.mu.
func (c *Client) track(err error) error {
	switch {
	case err == nil:
		c.connected = true
	case transport.CodeOf(err) == transport.Disconnected:
		c.connected = false
	}
	return err
}

func (c *Client) ReadHoldingRegisters(unit uint8, addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUnit(unit)
	b, err := c.client.ReadHoldingRegisters(addr, qty)
	if err = c.track(err); err != nil {
		return nil, err
	}
	return words(b, qty)
}

func (c *Client) ReadInputRegisters(unit uint8, addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUnit(unit)
	b, err := c.client.ReadInputRegisters(addr, qty)
	if err = c.track(err); err != nil {
		return nil, err
	}
	return words(b, qty)
}

func (c *Client) WriteSingleRegister(unit uint8, addr, value uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUnit(unit)
	_, err := c.client.WriteSingleRegister(addr, value)
	return c.track(err)
}

// Request sends frame[1:] as a PDU to unit frame[0] and returns
// unit, function and response data. Exception replies become
// *modbus.ModbusError.
func (c *Client) Request(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("modbus: request needs unit and function: %w", transport.ErrDataFrame)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUnit(frame[0])
	pdu := &modbus.ProtocolDataUnit{FunctionCode: frame[1], Data: frame[2:]}

	adu, err := c.handler.Encode(pdu)
	if err != nil {
		return nil, err
	}
	resp, err := c.handler.Send(adu)
	if err = c.track(err); err != nil {
		return nil, err
	}
	if err := c.handler.Verify(adu, resp); err != nil {
		return nil, fmt.Errorf("modbus: %v: %w", err, transport.ErrDataFrame)
	}
	rp, err := c.handler.Decode(resp)
	if err != nil {
		return nil, fmt.Errorf("modbus: %v: %w", err, transport.ErrDataFrame)
	}

	if rp.FunctionCode != pdu.FunctionCode {
		if rp.FunctionCode == pdu.FunctionCode|0x80 && len(rp.Data) > 0 {
			return nil, &modbus.ModbusError{FunctionCode: rp.FunctionCode, ExceptionCode: rp.Data[0]}
		}
		return nil, fmt.Errorf("modbus: response function %#x, want %#x: %w",
			rp.FunctionCode, pdu.FunctionCode, transport.ErrDataFrame)
	}

	out := make([]byte, 0, len(rp.Data)+2)
	out = append(out, frame[0], rp.FunctionCode)
	return append(out, rp.Data...), nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Metadata() result.Object {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta := result.Object{
		"isConnected": c.connected,
		"protocol":    "modbus-" + c.cfg.Mode,
	}
	if c.cfg.Mode == ModeTCP {
		meta["endpoint"] = c.cfg.Endpoint
	} else {
		meta["port"] = c.cfg.Port
		meta["speed"] = c.cfg.BaudRate
	}
	return meta
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return c.handler.Close()
}

// reconnect closes the bus, applies any new line settings and reconnects.
func (c *Client) reconnect(port string, speed int, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.handler.Close()
	c.connected = false

	if port != "" || speed > 0 || timeout > 0 {
		if port != "" {
			if c.cfg.Mode == ModeTCP {
				c.cfg.Endpoint = port
			} else {
				c.cfg.Port = port
			}
		}
		if speed > 0 {
			c.cfg.BaudRate = speed
		}
		if timeout > 0 {
			c.cfg.Timeout = timeout
		}
		next, err := build(c.cfg)
		if err != nil {
			return err
		}
		c.handler, c.setUnit, c.client = next.handler, next.setUnit, next.client
	}

	if err := c.handler.Connect(); err != nil {
		return err
	}
	c.connected = true
	return nil
}

func (c *Client) disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return c.handler.Close()
}

func words(b []byte, qty uint16) ([]uint16, error) {
	if len(b) != int(qty)*2 {
		return nil, fmt.Errorf("modbus: got %d bytes for %d registers: %w", len(b), qty, transport.ErrDataFrame)
	}
	out := make([]uint16, qty)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return out, nil
}
