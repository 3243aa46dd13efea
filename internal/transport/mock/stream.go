// internal/transport/mock/stream.go
package mock

import (
	"sync"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// StreamOptions configures a mock serial line.
type StreamOptions struct {
	// Capacity bounds the frame channel (default 8). When full the
	// oldest frame is dropped.
	Capacity int

	// Retries is the number of receive attempts before giving up (default 3).
	Retries int

	// Respond produces the frames a device would answer to a sent buffer.
	Respond func(sent []byte) [][]byte

	Port string
}

// Stream is a transport.Stream backed by a bounded channel.
// Exactly one goroutine (the producer) writes frames; Send and Feed hand
// work to it.
type Stream struct {
	opts   StreamOptions
	frames chan []byte
	inbox  chan item
	done   chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	connected bool
	sent      [][]byte
	closeOnce sync.Once
}

type item struct {
	sent  []byte
	frame []byte
}

var _ transport.Stream = (*Stream)(nil)

func NewStream(opts StreamOptions) *Stream {
	if opts.Capacity <= 0 {
		opts.Capacity = 8
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.Port == "" {
		opts.Port = "mock"
	}

	s := &Stream{
		opts:      opts,
		frames:    make(chan []byte, opts.Capacity),
		inbox:     make(chan item, opts.Capacity),
		done:      make(chan struct{}),
		connected: true,
	}
	s.wg.Add(1)
	go s.produce()
	return s
}

func (s *Stream) produce() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case it := <-s.inbox:
			if it.frame != nil {
				s.push(it.frame)
				continue
			}
			if s.opts.Respond == nil {
				continue
			}
			for _, f := range s.opts.Respond(it.sent) {
				s.push(f)
			}
		}
	}
}

// push never blocks: a full channel loses its oldest frame.
func (s *Stream) push(f []byte) {
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

func (s *Stream) enqueue(it item) error {
	select {
	case <-s.done:
		return transport.ErrNotConnected
	case s.inbox <- it:
		return nil
	}
}

// Feed queues an unsolicited frame.
func (s *Stream) Feed(frame []byte) error {
	return s.enqueue(item{frame: append([]byte(nil), frame...)})
}

func (s *Stream) Send(b []byte) (int, error) {
	if !s.IsConnected() {
		return 0, transport.ErrNotConnected
	}
	buf := append([]byte(nil), b...)

	s.mu.Lock()
	s.sent = append(s.sent, buf)
	s.mu.Unlock()

	if err := s.enqueue(item{sent: buf}); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Receive makes at most Retries attempts, each waiting timeout/Retries for
// one frame. Frames rejected by filter use up an attempt.
// Returns transport.ErrTimeout on exhaustion.
func (s *Stream) Receive(filter func([]byte) bool, timeout time.Duration) ([]byte, error) {
	if !s.IsConnected() {
		return nil, transport.ErrNotConnected
	}

	wait := timeout / time.Duration(s.opts.Retries)
	if wait <= 0 {
		wait = time.Millisecond
	}

	for i := 0; i < s.opts.Retries; i++ {
		t := time.NewTimer(wait)
		select {
		case f := <-s.frames:
			t.Stop()
			if filter == nil || filter(f) {
				return f, nil
			}
		case <-t.C:
		case <-s.done:
			t.Stop()
			return nil, transport.ErrNotConnected
		}
	}
	return nil, transport.ErrTimeout
}

// Sent returns every buffer passed to Send.
func (s *Stream) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Stream) Metadata() result.Object {
	return result.Object{
		"isConnected": s.IsConnected(),
		"port":        s.opts.Port,
		"protocol":    "mock-serial",
	}
}

func (s *Stream) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *Stream) Post(method string, body []byte) result.Object {
	switch method {
	case "disconnect":
		s.setConnected(false)
		return result.Success("disconnected")
	case "reconnect":
		s.setConnected(true)
		return result.Success("connected")
	default:
		return result.Fail(result.MsgUnknownMethod)
	}
}

// Close stops the producer. Safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.setConnected(false)
	})
	return nil
}
