// internal/transport/errors.go
package transport

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/goburrow/modbus"
)

var (
	ErrTimeout      = errors.New("transport: timeout")
	ErrDataFrame    = errors.New("transport: invalid data frame")
	ErrNotConnected = errors.New("transport: not connected")
)

// Code is the fixed error enumeration reported to callers.
type Code uint16

const (
	None Code = iota
	Timeout
	DataFrame
	Disconnected
	Exception
)

func (c Code) String() string {
	switch c {
	case None:
		return "NONE"
	case Timeout:
		return "TIMEOUT"
	case DataFrame:
		return "DATA_FRAME"
	case Disconnected:
		return "DISCONNECTED"
	case Exception:
		return "EXCEPTION"
	default:
		return "UNKNOWN"
	}
}

// CodeOf classifies err without assuming a concrete transport.
// Errors that match nothing more specific are DATA_FRAME: the bus answered
// with something the client could not use.
func CodeOf(err error) Code {
	if err == nil {
		return None
	}

	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return Exception
	}

	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return Timeout
	}
	var nErr net.Error
	if errors.As(err, &nErr) && nErr.Timeout() {
		return Timeout
	}

	if errors.Is(err, ErrNotConnected) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrClosed) {
		return Disconnected
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Disconnected
	}

	return DataFrame
}
