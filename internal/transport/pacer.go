// internal/transport/pacer.go
package transport

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces transactions on one half-duplex bus. Every party that talks
// on the bus (poller reads, command and patch writes, passthrough calls)
// must go through the same Pacer for the gap to hold.
type Pacer struct {
	mu      sync.Mutex
	last    time.Time
	lastGap time.Duration
}

// Paced is implemented by transports that own a Pacer.
type Paced interface {
	Pacer() *Pacer
}

// PacerOf returns conn's Pacer, or a fresh one when conn has none.
func PacerOf(conn Conn) *Pacer {
	if p, ok := conn.(Paced); ok {
		return p.Pacer()
	}
	return &Pacer{}
}

// Do runs fn once the larger of gap and the previous transaction's gap has
// passed since that transaction ended. wait performs the pause; nil uses a
// timer that honours ctx. fn is not run when the wait fails.
func (p *Pacer) Do(ctx context.Context, gap time.Duration, wait func(context.Context, time.Duration) error, fn func() error) error {
	if wait == nil {
		wait = sleep
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		need := max(gap, p.lastGap)
		if d := need - time.Since(p.last); d > 0 {
			if err := wait(ctx, d); err != nil {
				return err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := fn()
	p.last = time.Now()
	p.lastGap = gap
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
