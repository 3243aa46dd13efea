// internal/registers/map.go
package registers

import (
	"errors"
	"fmt"
	"time"
)

// Table selects the Modbus register table a group reads from.
type Table uint8

const (
	Holding Table = iota + 1 // FC 3
	Input                    // FC 4
)

func (t Table) String() string {
	switch t {
	case Holding:
		return "holding"
	case Input:
		return "input"
	default:
		return fmt.Sprintf("table(%d)", uint8(t))
	}
}

// Combine tells how many words a field consumes.
type Combine uint8

const (
	Single Combine = iota
	Pair32         // low word first: low | high<<16
)

// Field is one RegisterMap entry.
type Field struct {
	// Name is the JSON key. An empty name consumes words without
	// producing a field.
	Name    string
	Combine Combine

	// Scale multiplies the raw value; 0 means 1.
	Scale float64

	// Digits rounds the rendered value; 0 renders the exact product.
	Digits int

	// Flag turns the field into a boolean: true when raw == FlagValue.
	Flag      bool
	FlagValue uint32

	// Invalid lists raw values the device uses for "no reading".
	Invalid []uint32
}

// Words is the number of registers the field consumes.
func (f Field) Words() uint16 {
	if f.Combine == Pair32 {
		return 2
	}
	return 1
}

// Trigger is a register write issued before the group read, for devices
// that measure on demand.
type Trigger struct {
	Address uint16
	Value   uint16
	Settle  time.Duration
}

// Group is one contiguous register read.
type Group struct {
	Name    string
	Table   Table
	Address uint16
	Fields  []Field
	Trigger *Trigger
}

// Words is the total register count read for the group.
func (g Group) Words() uint16 {
	var n uint16
	for _, f := range g.Fields {
		n += f.Words()
	}
	return n
}

// Names lists the fields the group produces, in order.
func (g Group) Names() []string {
	out := make([]string, 0, len(g.Fields))
	for _, f := range g.Fields {
		if f.Name != "" {
			out = append(out, f.Name)
		}
	}
	return out
}

// Validate checks group geometry.
func (g Group) Validate() error {
	if g.Name == "" {
		return errors.New("registers: group name required")
	}
	if g.Table != Holding && g.Table != Input {
		return fmt.Errorf("registers: group %q: unsupported table %s", g.Name, g.Table)
	}
	if len(g.Names()) == 0 {
		return fmt.Errorf("registers: group %q: at least one named field required", g.Name)
	}
	if g.Words() > 125 {
		return fmt.Errorf("registers: group %q: %d words exceeds one read", g.Name, g.Words())
	}
	if uint32(g.Address)+uint32(g.Words()) > 0x10000 {
		return fmt.Errorf("registers: group %q: range overflows address space", g.Name)
	}

	seen := make(map[string]struct{})
	for _, f := range g.Fields {
		if f.Name == "" {
			continue
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("registers: group %q: duplicate field %q", g.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Scale < 0 {
			return fmt.Errorf("registers: field %q: negative scale", f.Name)
		}
	}
	return nil
}
