// internal/codec/accumulator.go
package codec

// DefaultMaxBuffer bounds the receive buffer when no frame shows up.
const DefaultMaxBuffer = 256

// Accumulator collects bytes from a serial line and yields whole frames.
// After every byte it tries each suffix of the buffer, shortest first, so
// leading noise and partial frames never hide a later valid one.
// Not safe for concurrent use.
type Accumulator struct {
	frame Frame
	max   int
	buf   []byte
}

func NewAccumulator(f Frame, max int) *Accumulator {
	if max <= 0 {
		max = DefaultMaxBuffer
	}
	if max < f.MinLen {
		max = f.MinLen
	}
	return &Accumulator{frame: f, max: max}
}

// Push appends b and returns the raw frame (envelope included) completed by
// it, if any. The buffer is cleared after a frame is found.
func (a *Accumulator) Push(b byte) ([]byte, bool) {
	if len(a.buf) == a.max {
		copy(a.buf, a.buf[1:])
		a.buf = a.buf[:len(a.buf)-1]
	}
	a.buf = append(a.buf, b)

	for i := len(a.buf) - a.frame.MinLen; i >= 0; i-- {
		if a.frame.Decode(a.buf[i:]) == nil {
			continue
		}
		raw := make([]byte, len(a.buf)-i)
		copy(raw, a.buf[i:])
		a.buf = a.buf[:0]
		return raw, true
	}
	return nil, false
}

// Write feeds p byte by byte and returns every frame it completes.
func (a *Accumulator) Write(p []byte) [][]byte {
	var out [][]byte
	for _, b := range p {
		if raw, ok := a.Push(b); ok {
			out = append(out, raw)
		}
	}
	return out
}

// Reset drops buffered bytes.
func (a *Accumulator) Reset() {
	a.buf = a.buf[:0]
}

// Buffered reports how many bytes are waiting for a terminator.
func (a *Accumulator) Buffered() int {
	return len(a.buf)
}
