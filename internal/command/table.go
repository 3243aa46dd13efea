// internal/command/table.go
package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// Entry maps a symbolic name onto one fixed bus operation.
type Entry struct {
	Name string

	// Register write.
	Address uint16
	Value   uint16

	// Frame, when set, is sent as a raw request (function code then data)
	// instead of the register write.
	Frame []byte

	// Message is returned on success. Defaults to "request to <name>".
	Message string
}

func (e Entry) message() string {
	if e.Message != "" {
		return e.Message
	}
	return "request to " + strings.ReplaceAll(e.Name, "_", " ")
}

// Target executes dispatched operations for one device.
type Target interface {
	WriteRegister(addr, value uint16) error
	Request(frame []byte) error
	Passthrough(method string, body []byte) result.Object
}

// Table is fixed at construction time. The zero Table is empty and
// forwards everything to passthrough.
type Table struct {
	entries map[string]Entry
	order   []string
}

// NewTable builds a table. Names must be unique and non-empty.
func NewTable(entries ...Entry) (Table, error) {
	t := Table{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return Table{}, errors.New("command: entry name required")
		}
		if _, dup := t.entries[e.Name]; dup {
			return Table{}, fmt.Errorf("command: duplicate entry %q", e.Name)
		}
		t.entries[e.Name] = e
		t.order = append(t.order, e.Name)
	}
	return t, nil
}

// Lookup is a case-sensitive exact match.
func (t Table) Lookup(name string) (Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// Entries returns the table in declaration order.
func (t Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, t.entries[n])
	}
	return out
}

func (t Table) Len() int { return len(t.order) }

// Dispatch runs name against target. Unmatched names and their body go to
// target.Passthrough verbatim and its reply is returned untouched.
// A failed write on a matched name is reported in-band and never falls
// through.
func (t Table) Dispatch(target Target, name string, body []byte) result.Object {
	e, ok := t.Lookup(name)
	if !ok {
		return target.Passthrough(name, body)
	}

	var err error
	if len(e.Frame) > 0 {
		err = target.Request(e.Frame)
	} else {
		err = target.WriteRegister(e.Address, e.Value)
	}
	if err != nil {
		return result.Fail(fmt.Sprintf("%s: %s", e.Name, transport.CodeOf(err)))
	}
	return result.Success(e.message())
}
