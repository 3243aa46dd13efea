// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Poller is a clock-driven updater. It owns no device state.
type Poller struct {
	cfg   Config
	lanes []lane
	log   zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New creates a poller with immutable config.
func New(cfg Config, devices ...Device) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(devices) == 0 {
		return nil, errors.New("poller: at least one device required")
	}

	seen := make(map[string]struct{}, len(devices))
	for _, d := range devices {
		if d == nil || d.Transport() == nil {
			return nil, errors.New("poller: device with no transport")
		}
		if _, dup := seen[d.ID()]; dup {
			return nil, fmt.Errorf("poller: duplicate device id %q", d.ID())
		}
		seen[d.ID()] = struct{}{}
	}

	return &Poller{
		cfg:   cfg,
		lanes: buildLanes(devices),
		log:   log.With().Str("component", "poller").Logger(),
	}, nil
}

// Lanes reports how many transports are polled side by side.
func (p *Poller) Lanes() int { return len(p.lanes) }

// PollOnce performs exactly one tick: every device is updated once.
// Devices sharing a transport never overlap. A cancelled ctx stops each
// lane at its next group boundary and is returned.
func (p *Poller) PollOnce(ctx context.Context) error {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range p.lanes {
		g.Go(func() error {
			for _, d := range l.devices {
				if err := d.Update(gctx); err != nil {
					return fmt.Errorf("poller: %s: %w", d.ID(), err)
				}
			}
			return nil
		})
	}
	err := g.Wait()

	took := time.Since(start)
	if p.cfg.OnCycle != nil {
		p.cfg.OnCycle(took, err)
	}
	if took > p.cfg.Interval {
		p.log.Warn().Dur("took", took).Dur("interval", p.cfg.Interval).Msg("poll tick overran interval")
	}
	return err
}
