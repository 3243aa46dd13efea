// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
	"time"
)

// Run polls once immediately and then on every tick until ctx ends.
// Ticks never overlap; a tick that overruns delays the next one.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.log.Error().Err(err).Msg("poll tick failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Start runs the poller in its own goroutine.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("poller: already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go func(done chan struct{}) {
		defer close(done)
		p.Run(ctx)
	}(p.done)

	p.log.Info().Dur("interval", p.cfg.Interval).Int("lanes", len(p.lanes)).Msg("poller started")
	return nil
}

// Stop cancels the schedule and waits for the current tick to reach a
// group boundary. Calling Stop on a stopped poller is a no-op.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.mu.Unlock()

	cancel()
	<-done
	p.log.Info().Msg("poller stopped")
}
