// internal/state/snapshot.go
package state

import (
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/status"
)

// Snapshot is one published device state. It is never mutated after
// construction; writers build a new Snapshot and swap it in.
type Snapshot struct {
	at     time.Time
	fields []string
	values Values
	groups map[string]status.Snapshot
}

// Empty is the state before the first poll: every field unavailable.
func Empty(fields []string) *Snapshot {
	return New(time.Time{}, fields, nil, nil)
}

// New copies vals and groups. Fields missing from vals are unavailable.
func New(at time.Time, fields []string, vals Values, groups map[string]status.Snapshot) *Snapshot {
	s := &Snapshot{
		at:     at,
		fields: append([]string(nil), fields...),
		values: make(Values, len(fields)),
		groups: make(map[string]status.Snapshot, len(groups)),
	}
	for _, f := range fields {
		s.values[f] = vals[f]
	}
	for k, v := range vals {
		if _, ok := s.values[k]; !ok {
			s.fields = append(s.fields, k)
		}
		s.values[k] = v
	}
	for k, g := range groups {
		s.groups[k] = g
	}
	return s
}

// With returns a copy of s with vals overriding existing fields.
// Timestamp and group health are carried over.
func (s *Snapshot) With(vals Values) *Snapshot {
	return New(s.at, s.fields, s.merged(vals), s.groups)
}

func (s *Snapshot) merged(vals Values) Values {
	out := make(Values, len(s.values)+len(vals))
	for k, v := range s.values {
		out[k] = v
	}
	for k, v := range vals {
		out[k] = v
	}
	return out
}

// Get returns the named field; unknown names are unavailable.
func (s *Snapshot) Get(name string) Value {
	return s.values[name]
}

// Has reports whether name is a field of this snapshot.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Fields lists field names in declaration order.
func (s *Snapshot) Fields() []string {
	return append([]string(nil), s.fields...)
}

// At is the completion time of the poll cycle; zero before the first poll.
func (s *Snapshot) At() time.Time { return s.at }

// Group returns the health of one read group.
func (s *Snapshot) Group(name string) (status.Snapshot, bool) {
	g, ok := s.groups[name]
	return g, ok
}

// Groups returns a copy of every group health record.
func (s *Snapshot) Groups() map[string]status.Snapshot {
	out := make(map[string]status.Snapshot, len(s.groups))
	for k, v := range s.groups {
		out[k] = v
	}
	return out
}

// Object renders the fields for JSON: numbers, booleans and nulls.
func (s *Snapshot) Object() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v.Interface()
	}
	return out
}
