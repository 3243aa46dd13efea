// internal/codec/frame.go
package codec

import (
	"bytes"
	"errors"
)

// Frame describes the byte envelope of a non-Modbus serial device.
// Geometry only: the payload meaning belongs to the device.
type Frame struct {
	Prefix     []byte
	Terminator []byte
	MinLen     int

	// DropTerminator strips the terminator from the returned payload.
	DropTerminator bool
}

// Validate checks the envelope is usable.
func (f Frame) Validate() error {
	if len(f.Prefix) == 0 {
		return errors.New("codec: prefix required")
	}
	if len(f.Terminator) == 0 {
		return errors.New("codec: terminator required")
	}
	if f.MinLen < len(f.Prefix)+len(f.Terminator) {
		return errors.New("codec: min length shorter than envelope")
	}
	return nil
}

// Decode returns the payload of raw, or nil when raw is not a complete frame.
// A nil result is not an error; the caller decides what a missing frame means.
func (f Frame) Decode(raw []byte) []byte {
	if len(raw) < f.MinLen {
		return nil
	}
	if !bytes.HasPrefix(raw, f.Prefix) || !bytes.HasSuffix(raw, f.Terminator) {
		return nil
	}

	end := len(raw)
	if f.DropTerminator {
		end -= len(f.Terminator)
	}
	if end < len(f.Prefix) {
		return nil
	}

	out := make([]byte, end-len(f.Prefix))
	copy(out, raw[len(f.Prefix):end])
	return out
}

// Match adapts Decode to a receive filter.
func (f Frame) Match(raw []byte) bool {
	return f.Decode(raw) != nil
}
