// internal/poller/poller_test.go
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// fakeConn counts overlapping users to catch interleaved bus access.
type fakeConn struct {
	busy    atomic.Int32
	overlap atomic.Bool
}

func (c *fakeConn) IsConnected() bool       { return true }
func (c *fakeConn) Metadata() result.Object { return result.Object{} }
func (c *fakeConn) Close() error            { return nil }
func (c *fakeConn) Post(string, []byte) result.Object {
	return result.Fail(result.MsgUnknownMethod)
}

type fakeDevice struct {
	id    string
	conn  *fakeConn
	hold  time.Duration
	calls atomic.Int32

	mu    *sync.Mutex
	order *[]string
}

func (d *fakeDevice) ID() string { return d.id }
func (d *fakeDevice) Transport() transport.Conn {
	return d.conn
}

func (d *fakeDevice) Update(ctx context.Context) error {
	if d.conn.busy.Add(1) > 1 {
		d.conn.overlap.Store(true)
	}
	defer d.conn.busy.Add(-1)

	d.calls.Add(1)
	if d.order != nil {
		d.mu.Lock()
		*d.order = append(*d.order, d.id)
		d.mu.Unlock()
	}

	select {
	case <-time.After(d.hold):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestNewValidation(t *testing.T) {
	c := &fakeConn{}
	d := &fakeDevice{id: "a", conn: c}

	_, err := New(Config{}, d)
	assert.Error(t, err)

	_, err = New(Config{Interval: time.Second})
	assert.Error(t, err)

	_, err = New(Config{Interval: time.Second}, d, &fakeDevice{id: "a", conn: c})
	assert.ErrorContains(t, err, "duplicate")

	p, err := New(Config{Interval: time.Second}, d)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Lanes())
}

func TestPollOnce_SharedTransportIsSequential(t *testing.T) {
	bus := &fakeConn{}
	other := &fakeConn{}

	var mu sync.Mutex
	var order []string
	mk := func(id string, c *fakeConn) *fakeDevice {
		return &fakeDevice{id: id, conn: c, hold: 5 * time.Millisecond, mu: &mu, order: &order}
	}
	a, b, c := mk("a", bus), mk("b", bus), mk("c", other)

	p, err := New(Config{Interval: time.Second}, a, c, b)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Lanes())

	for i := 0; i < 5; i++ {
		require.NoError(t, p.PollOnce(context.Background()))
	}

	assert.False(t, bus.overlap.Load(), "devices on one bus overlapped")
	for _, d := range []*fakeDevice{a, b, c} {
		assert.EqualValues(t, 5, d.calls.Load(), d.id)
	}

	// a always precedes b on the shared lane
	var seenA int
	for _, id := range order {
		switch id {
		case "a":
			seenA++
		case "b":
			assert.Positive(t, seenA)
			seenA--
		}
	}
}

func TestPollOnce_IndependentTransportsOverlap(t *testing.T) {
	a := &fakeDevice{id: "a", conn: &fakeConn{}, hold: 50 * time.Millisecond}
	b := &fakeDevice{id: "b", conn: &fakeConn{}, hold: 50 * time.Millisecond}

	p, err := New(Config{Interval: time.Second}, a, b)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, p.PollOnce(context.Background()))
	assert.Less(t, time.Since(start), 95*time.Millisecond)
}

func TestPollOnce_CancelledReportsContext(t *testing.T) {
	d := &fakeDevice{id: "slow", conn: &fakeConn{}, hold: time.Second}

	var cycles atomic.Int32
	var last error
	p, err := New(Config{
		Interval: time.Second,
		OnCycle: func(_ time.Duration, err error) {
			cycles.Add(1)
			last = err
		},
	}, d)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = p.PollOnce(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.EqualValues(t, 1, cycles.Load())
	assert.ErrorIs(t, last, context.DeadlineExceeded)
}

func TestStartStop(t *testing.T) {
	d := &fakeDevice{id: "a", conn: &fakeConn{}}
	p, err := New(Config{Interval: 10 * time.Millisecond}, d)
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	assert.Error(t, p.Start(context.Background()))

	require.Eventually(t, func() bool { return d.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	p.Stop()
	n := d.calls.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, n, d.calls.Load(), "updates after Stop")

	p.Stop()
	require.NoError(t, p.Start(context.Background()))
	p.Stop()
}
