// internal/device/descriptor.go
package device

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/codec"
	"github.com/tamzrod/fieldbus-bridge/internal/command"
	"github.com/tamzrod/fieldbus-bridge/internal/registers"
	"github.com/tamzrod/fieldbus-bridge/internal/state"
)

// Kind is the transport family a device speaks.
type Kind uint8

const (
	KindRegisters Kind = iota + 1
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindRegisters:
		return "modbus"
	case KindStream:
		return "serial"
	default:
		return "unknown"
	}
}

// AddressField is the JSON key carrying a register device's bus address.
const AddressField = "address"

// DefaultTurnaround is the pause between consecutive transactions on one bus.
const DefaultTurnaround = time.Millisecond

// Setting is one PATCH-able key backed by a holding register.
type Setting struct {
	Key     string
	Address uint16

	// Accepted range, inclusive. Max 0 means 0xFFFF.
	Min, Max uint16

	// Rebind makes an accepted value the device's new bus address.
	Rebind bool
}

func (s Setting) max() uint16 {
	if s.Max == 0 {
		return 0xFFFF
	}
	return s.Max
}

// Probe is a request/response measurement on a raw serial line.
type Probe struct {
	Name    string
	Request []byte
	Frame   codec.Frame
	Timeout time.Duration
	Fields  []string

	// Parse turns a frame payload into field values.
	Parse func(payload []byte) (state.Values, error)
}

// Step is one provisioning register write.
type Step struct {
	Address uint16
	Value   uint16

	// UseAddress writes the configured device address instead of Value.
	UseAddress bool

	// Label is printed after the write; %d receives the written value.
	Label string
}

// Provision is a one-shot setup sequence run instead of serving.
type Provision struct {
	Unit     uint8 // usually broadcast (0)
	BaudRate int
	Steps    []Step
	Notice   string
}

// Descriptor selects a device variant at construction time.
type Descriptor struct {
	Type     string
	Path     string
	Summary  string
	Kind     Kind
	Address  uint8
	BaudRate int

	Groups     []registers.Group
	Turnaround time.Duration

	Probe *Probe

	Commands  []command.Entry
	Settings  []Setting
	Provision *Provision
}

// Fields lists every field the device publishes, in order.
func (d Descriptor) Fields() []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}

	if d.Kind == KindRegisters {
		add(AddressField)
	}
	for _, g := range d.Groups {
		for _, n := range g.Names() {
			add(n)
		}
	}
	if d.Probe != nil {
		for _, n := range d.Probe.Fields {
			add(n)
		}
	}
	for _, s := range d.Settings {
		add(s.Key)
	}
	return out
}

func (d Descriptor) turnaround() time.Duration {
	if d.Turnaround > 0 {
		return d.Turnaround
	}
	return DefaultTurnaround
}

// Validate checks the descriptor is internally consistent.
func (d Descriptor) Validate() error {
	if d.Type == "" {
		return errors.New("device: type required")
	}
	if !strings.HasPrefix(d.Path, "/") || len(d.Path) < 2 {
		return fmt.Errorf("device %q: path must start with / and name a resource", d.Type)
	}

	switch d.Kind {
	case KindRegisters:
		if len(d.Groups) == 0 {
			return fmt.Errorf("device %q: register device needs at least one group", d.Type)
		}
		if d.Probe != nil {
			return fmt.Errorf("device %q: register device cannot have a probe", d.Type)
		}
	case KindStream:
		if d.Probe == nil {
			return fmt.Errorf("device %q: stream device needs a probe", d.Type)
		}
		if len(d.Groups) > 0 || len(d.Settings) > 0 {
			return fmt.Errorf("device %q: stream device cannot have register groups or settings", d.Type)
		}
		if err := d.Probe.Frame.Validate(); err != nil {
			return fmt.Errorf("device %q: %w", d.Type, err)
		}
		if d.Probe.Parse == nil || len(d.Probe.Fields) == 0 {
			return fmt.Errorf("device %q: probe needs fields and a parser", d.Type)
		}
	default:
		return fmt.Errorf("device %q: unknown kind", d.Type)
	}

	fields := map[string]string{}
	for _, g := range d.Groups {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("device %q: %w", d.Type, err)
		}
		for _, n := range g.Names() {
			if n == AddressField {
				return fmt.Errorf("device %q: field name %q is reserved", d.Type, n)
			}
			if prev, dup := fields[n]; dup {
				return fmt.Errorf("device %q: field %q in groups %q and %q", d.Type, n, prev, g.Name)
			}
			fields[n] = g.Name
		}
	}

	if _, err := command.NewTable(d.Commands...); err != nil {
		return fmt.Errorf("device %q: %w", d.Type, err)
	}

	keys := map[string]struct{}{}
	for _, s := range d.Settings {
		if s.Key == "" {
			return fmt.Errorf("device %q: setting key required", d.Type)
		}
		if _, dup := keys[s.Key]; dup {
			return fmt.Errorf("device %q: duplicate setting %q", d.Type, s.Key)
		}
		keys[s.Key] = struct{}{}
		if s.Min > s.max() {
			return fmt.Errorf("device %q: setting %q has empty range", d.Type, s.Key)
		}
		if s.Rebind && s.Key != AddressField {
			return fmt.Errorf("device %q: only %q may rebind the bus address", d.Type, AddressField)
		}
	}
	return nil
}
