// internal/device/update.go
package device

import (
	"context"
	"fmt"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/state"
	"github.com/tamzrod/fieldbus-bridge/internal/status"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// Update runs one poll cycle and publishes the result.
//
// Transport and decode failures never escape: each failed group turns its
// fields into the unavailable sentinel. The only error returned is ctx's,
// when the cycle was abandoned at a group boundary; nothing is published
// then and the previous snapshot stays.
func (a *Adapter) Update(ctx context.Context) error {
	start := a.now()
	vals := state.Values{}
	groups := map[string]status.Snapshot{}

	for _, g := range a.desc.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, err := g.Read(ctx, a.bus(ctx), a.Unit())
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		a.record(g.Name, err, groups)
		for k, x := range v {
			vals[k] = x
		}
	}

	if p := a.desc.Probe; p != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := a.probe(p)
		a.record(p.Name, err, groups)
		for k, x := range v {
			vals[k] = x
		}
	}

	at := a.now()
	snap := a.publish(func(old *state.Snapshot) *state.Snapshot {
		for k, x := range a.settingsCarry(old) {
			vals[k] = x
		}
		return state.New(at, a.desc.Fields(), vals, groups)
	})
	a.obs.ObserveCycle(a.id, at.Sub(start), snap)
	return nil
}

func (a *Adapter) record(group string, err error, groups map[string]status.Snapshot) {
	groups[group] = status.FromError(err)
	a.obs.ObserveRead(a.id, group, err)
	if err != nil {
		a.log.Debug().Err(err).Str("group", group).
			Str("code", transport.CodeOf(err).String()).Msg("group read failed")
	}
}

func (a *Adapter) probe(p *Probe) (state.Values, error) {
	fault := func() state.Values {
		out := make(state.Values, len(p.Fields))
		for _, n := range p.Fields {
			out[n] = state.Unavailable()
		}
		return out
	}

	if f, ok := a.line.(interface{ Flush() }); ok {
		f.Flush()
	}
	if _, err := a.line.Send(p.Request); err != nil {
		return fault(), err
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	raw, err := a.line.Receive(p.Frame.Match, timeout)
	if err != nil {
		return fault(), err
	}

	payload := p.Frame.Decode(raw)
	if payload == nil {
		return fault(), fmt.Errorf("probe %q: %w", p.Name, transport.ErrDataFrame)
	}
	vals, err := p.Parse(payload)
	if err != nil {
		return fault(), fmt.Errorf("probe %q: %v: %w", p.Name, err, transport.ErrDataFrame)
	}
	return vals, nil
}
