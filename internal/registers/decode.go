// internal/registers/decode.go
package registers

import (
	"context"
	"fmt"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/state"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// ErrShortRead is returned when the bus answered with fewer words than asked.
var ErrShortRead = fmt.Errorf("registers: short read: %w", transport.ErrDataFrame)

// Decode walks the map over words. It never reports partial success:
// on error the caller must use Fault.
func (g Group) Decode(words []uint16) (state.Values, error) {
	if len(words) < int(g.Words()) {
		return nil, fmt.Errorf("group %q: got %d words, want %d: %w",
			g.Name, len(words), g.Words(), ErrShortRead)
	}

	out := make(state.Values, len(g.Fields))
	i := 0
	for _, f := range g.Fields {
		var raw uint32
		switch f.Combine {
		case Pair32:
			raw = uint32(words[i]) | uint32(words[i+1])<<16
			i += 2
		default:
			raw = uint32(words[i])
			i++
		}

		if f.Name == "" {
			continue
		}
		out[f.Name] = f.value(raw)
	}
	return out, nil
}

func (f Field) value(raw uint32) state.Value {
	for _, bad := range f.Invalid {
		if raw == bad {
			return state.Unavailable()
		}
	}

	if f.Flag {
		return state.Flag(raw == f.FlagValue)
	}

	scale := f.Scale
	if scale == 0 {
		scale = 1
	}
	v := float64(raw) * scale
	if f.Digits > 0 {
		return state.Rounded(v, f.Digits)
	}
	return state.Number(v)
}

// Fault is the group's outcome after a failed read: every field unavailable.
func (g Group) Fault() state.Values {
	out := make(state.Values, len(g.Fields))
	for _, n := range g.Names() {
		out[n] = state.Unavailable()
	}
	return out
}

// Read runs the trigger (if any), reads the group and decodes it.
// On any error the returned values are Fault().
func (g Group) Read(ctx context.Context, bus transport.Registers, unit uint8) (state.Values, error) {
	vals, err := g.read(ctx, bus, unit)
	if err != nil {
		return g.Fault(), err
	}
	return vals, nil
}

func (g Group) read(ctx context.Context, bus transport.Registers, unit uint8) (state.Values, error) {
	if t := g.Trigger; t != nil {
		if err := bus.WriteSingleRegister(unit, t.Address, t.Value); err != nil {
			return nil, fmt.Errorf("group %q: trigger: %w", g.Name, err)
		}
		if err := Sleep(ctx, t.Settle); err != nil {
			return nil, err
		}
	}

	var (
		words []uint16
		err   error
	)
	switch g.Table {
	case Holding:
		words, err = bus.ReadHoldingRegisters(unit, g.Address, g.Words())
	case Input:
		words, err = bus.ReadInputRegisters(unit, g.Address, g.Words())
	default:
		err = fmt.Errorf("registers: unsupported table %s", g.Table)
	}
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", g.Name, err)
	}
	return g.Decode(words)
}

// Sleep waits d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
