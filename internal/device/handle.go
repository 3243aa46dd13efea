// internal/device/handle.go
package device

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/state"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// MsgPatched is the success message of an accepted PATCH.
const MsgPatched = "success update parameter"

// target binds command dispatch to this adapter's bus and address.
type target struct{ a *Adapter }

func (t target) WriteRegister(addr, value uint16) error {
	if t.a.regs == nil {
		return ErrUnsupported
	}
	return t.a.bus(context.Background()).WriteSingleRegister(t.a.Unit(), addr, value)
}

func (t target) Request(frame []byte) error {
	if t.a.regs == nil {
		return ErrUnsupported
	}
	_, err := t.a.bus(context.Background()).Request(append([]byte{t.a.Unit()}, frame...))
	return err
}

func (t target) Passthrough(method string, body []byte) result.Object {
	return t.a.conn.Post(method, body)
}

// HandleCommand dispatches a symbolic command, falling through to the
// transport's native methods for unknown names.
func (a *Adapter) HandleCommand(name string, body []byte) result.Object {
	res := a.table.Dispatch(target{a}, name, body)
	a.obs.ObserveCommand(a.id, name, res.Status())
	if res.Failed() {
		a.log.Info().Str("command", name).Interface("message", res["message"]).Msg("command failed")
	}
	return res
}

// HandlePatch writes every recognized key independently. Only confirmed
// writes are cached and reported.
func (a *Adapter) HandlePatch(body []byte) result.Object {
	res := a.patch(body)
	a.obs.ObservePatch(a.id, res.Status())
	return res
}

func (a *Adapter) patch(body []byte) result.Object {
	keys, err := result.Body(body)
	if err != nil {
		return result.Fail(result.MsgTypeMismatch)
	}

	var (
		recognized int
		failed     []string
		accepted   = state.Values{}
		reply      = result.Object{}
	)

	for _, s := range a.desc.Settings {
		raw, ok := keys[s.Key]
		if !ok {
			continue
		}
		recognized++

		v, ok := s.parse(raw)
		if !ok {
			failed = append(failed, s.Key)
			continue
		}
		if err := a.bus(context.Background()).WriteSingleRegister(a.Unit(), s.Address, v); err != nil {
			a.log.Info().Err(err).Str("key", s.Key).
				Str("code", transport.CodeOf(err).String()).Msg("patch write failed")
			failed = append(failed, s.Key)
			continue
		}

		if s.Rebind {
			a.unit.Store(uint32(v))
		}
		accepted[s.Key] = state.Number(float64(v))
		reply[s.Key] = int(v)
	}

	if recognized == 0 {
		return result.Fail(result.MsgUnknownKey)
	}
	if len(accepted) == 0 {
		return result.Fail("Failed to update parameter: " + strings.Join(failed, ", "))
	}

	a.publish(func(old *state.Snapshot) *state.Snapshot {
		return old.With(accepted)
	})
	return result.Merge(result.Success(MsgPatched), reply)
}

// parse accepts a JSON integer inside the setting's range.
func (s Setting) parse(raw json.RawMessage) (uint16, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	if f != math.Trunc(f) || f < float64(s.Min) || f > float64(s.max()) {
		return 0, false
	}
	return uint16(f), true
}
