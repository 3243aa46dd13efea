// internal/status/snapshot.go
package status

import "github.com/tamzrod/fieldbus-bridge/internal/transport"

// Snapshot is the health of one read group after one cycle.
// It carries no memory of the past beyond the current cycle.
type Snapshot struct {
	Health        uint16
	LastErrorCode transport.Code
}

// FromError maps one group read outcome onto a Snapshot.
func FromError(err error) Snapshot {
	if err == nil {
		return Snapshot{Health: HealthOK, LastErrorCode: transport.None}
	}
	return Snapshot{Health: HealthError, LastErrorCode: transport.CodeOf(err)}
}

// OK reports whether the group read succeeded.
func (s Snapshot) OK() bool { return s.Health == HealthOK }
