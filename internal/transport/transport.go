// internal/transport/transport.go
package transport

import (
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/result"
)

// Conn is the part every transport shares: connection state, metadata for
// GET responses and the native command passthrough for unmatched POSTs.
type Conn interface {
	IsConnected() bool

	// Metadata is merged under the device fields on GET.
	Metadata() result.Object

	// Post executes a transport-native method. Unknown methods return
	// result.Fail(result.MsgUnknownMethod).
	Post(method string, body []byte) result.Object

	Close() error
}

// Registers is a Modbus-speaking bus. Implementations serialize calls,
// so one instance may be shared by several devices.
type Registers interface {
	Conn

	ReadHoldingRegisters(unit uint8, addr, qty uint16) ([]uint16, error)
	ReadInputRegisters(unit uint8, addr, qty uint16) ([]uint16, error)
	WriteSingleRegister(unit uint8, addr, value uint16) error

	// Request sends a raw PDU addressed to frame[0] with function frame[1]
	// and returns the response as unit, function, data.
	Request(frame []byte) ([]byte, error)
}

// Stream is a raw framed serial line.
type Stream interface {
	Conn

	Send(b []byte) (int, error)

	// Receive returns the next decoded frame accepted by filter (nil accepts
	// everything), or ErrTimeout once timeout elapses.
	Receive(filter func([]byte) bool, timeout time.Duration) ([]byte, error)
}
