// internal/device/bus.go
package device

import (
	"context"

	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// pacedBus is the adapter's view of its register transport. Every call
// first waits out the turnaround on the bus-wide Pacer, so reads of
// neighbouring devices and REST writes keep the gap as well.
type pacedBus struct {
	transport.Registers
	ctx context.Context
	a   *Adapter
}

func (a *Adapter) bus(ctx context.Context) pacedBus {
	return pacedBus{Registers: a.regs, ctx: ctx, a: a}
}

func (b pacedBus) do(fn func() error) error {
	return b.a.pacer.Do(b.ctx, b.a.desc.turnaround(), b.a.sleep, fn)
}

func (b pacedBus) ReadHoldingRegisters(unit uint8, addr, qty uint16) (out []uint16, err error) {
	err = b.do(func() error {
		out, err = b.Registers.ReadHoldingRegisters(unit, addr, qty)
		return err
	})
	return out, err
}

func (b pacedBus) ReadInputRegisters(unit uint8, addr, qty uint16) (out []uint16, err error) {
	err = b.do(func() error {
		out, err = b.Registers.ReadInputRegisters(unit, addr, qty)
		return err
	})
	return out, err
}

func (b pacedBus) WriteSingleRegister(unit uint8, addr, value uint16) error {
	return b.do(func() error {
		return b.Registers.WriteSingleRegister(unit, addr, value)
	})
}

func (b pacedBus) Request(frame []byte) (out []byte, err error) {
	err = b.do(func() error {
		out, err = b.Registers.Request(frame)
		return err
	})
	return out, err
}
