// internal/device/adapter.go
package device

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tamzrod/fieldbus-bridge/internal/command"
	"github.com/tamzrod/fieldbus-bridge/internal/registers"
	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/state"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// Device is the capability set the poller and the REST layer rely on.
type Device interface {
	ID() string
	Type() string
	Path() string
	Transport() transport.Conn

	Update(ctx context.Context) error
	State() *state.Snapshot
	JSON() result.Object
	HandleCommand(name string, body []byte) result.Object
	HandlePatch(body []byte) result.Object
}

// ErrUnsupported is returned for operations a transport kind cannot perform.
var ErrUnsupported = errors.New("device: operation not supported by transport")

// Adapter owns one device's published state.
type Adapter struct {
	desc  Descriptor
	id    string
	path  string
	conn  transport.Conn
	regs  transport.Registers
	line  transport.Stream
	pacer *transport.Pacer
	table command.Table

	unit atomic.Uint32
	snap atomic.Pointer[state.Snapshot]

	obs    Observer
	log    zerolog.Logger
	logSet bool
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
}

var _ Device = (*Adapter)(nil)

// Option customizes an Adapter.
type Option func(*Adapter)

// WithID names the adapter in logs and metrics. Defaults to the type.
func WithID(id string) Option { return func(a *Adapter) { a.id = id } }

// WithPath overrides the descriptor's REST path.
func WithPath(p string) Option { return func(a *Adapter) { a.path = p } }

// WithAddress overrides the descriptor's default bus address.
func WithAddress(unit uint8) Option { return func(a *Adapter) { a.unit.Store(uint32(unit)) } }

func WithObserver(o Observer) Option { return func(a *Adapter) { a.obs = o } }

func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) {
		a.log = l
		a.logSet = true
	}
}

// WithSleep replaces the wait used to keep the bus turnaround.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Adapter) { a.sleep = fn }
}

// New builds an adapter for desc on conn. conn must match desc.Kind.
func New(desc Descriptor, conn transport.Conn, opts ...Option) (*Adapter, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("device %q: transport required", desc.Type)
	}

	table, err := command.NewTable(desc.Commands...)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		desc:  desc,
		id:    desc.Type,
		path:  desc.Path,
		conn:  conn,
		table: table,
		obs:   Observers(nil),
		sleep: registers.Sleep,
		now:   time.Now,
	}
	a.unit.Store(uint32(desc.Address))

	switch desc.Kind {
	case KindRegisters:
		regs, ok := conn.(transport.Registers)
		if !ok {
			return nil, fmt.Errorf("device %q: needs a register transport", desc.Type)
		}
		a.regs = regs
		a.pacer = transport.PacerOf(conn)
	case KindStream:
		line, ok := conn.(transport.Stream)
		if !ok {
			return nil, fmt.Errorf("device %q: needs a stream transport", desc.Type)
		}
		a.line = line
	}

	for _, opt := range opts {
		opt(a)
	}
	if !a.logSet {
		a.log = log.With().Str("component", "device").Str("device", a.id).Logger()
	}

	a.snap.Store(state.Empty(desc.Fields()).With(a.settingsCarry(nil)))
	return a, nil
}

func (a *Adapter) ID() string                { return a.id }
func (a *Adapter) Type() string              { return a.desc.Type }
func (a *Adapter) Path() string              { return a.path }
func (a *Adapter) Transport() transport.Conn { return a.conn }
func (a *Adapter) Descriptor() Descriptor    { return a.desc }
func (a *Adapter) Commands() []command.Entry { return a.table.Entries() }
func (a *Adapter) Unit() uint8               { return uint8(a.unit.Load()) }

// State returns the latest published snapshot. Never nil.
func (a *Adapter) State() *state.Snapshot {
	return a.snap.Load()
}

// JSON merges the transport metadata with the latest fields.
// Fields win on key collision. No bus traffic.
func (a *Adapter) JSON() result.Object {
	return result.Merge(a.conn.Metadata(), a.State().Object())
}

// publish swaps in a snapshot built from the current one.
// build may run more than once under contention.
func (a *Adapter) publish(build func(old *state.Snapshot) *state.Snapshot) *state.Snapshot {
	for {
		old := a.snap.Load()
		next := build(old)
		if a.snap.CompareAndSwap(old, next) {
			return next
		}
	}
}

// settingsCarry returns the values that are not read from the bus: the
// bus address and settings no group produces.
func (a *Adapter) settingsCarry(old *state.Snapshot) state.Values {
	out := state.Values{}
	if a.desc.Kind == KindRegisters {
		out[AddressField] = state.Number(float64(a.Unit()))
	}
	if old == nil {
		return out
	}

	read := map[string]struct{}{}
	for _, g := range a.desc.Groups {
		for _, n := range g.Names() {
			read[n] = struct{}{}
		}
	}
	for _, s := range a.desc.Settings {
		if _, ok := read[s.Key]; ok || s.Key == AddressField {
			continue
		}
		out[s.Key] = old.Get(s.Key)
	}
	return out
}
