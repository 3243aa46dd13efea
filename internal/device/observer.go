// internal/device/observer.go
package device

import (
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/state"
)

// Observer is notified of adapter activity. Implementations must not block.
type Observer interface {
	ObserveRead(device, group string, err error)
	ObserveCycle(device string, took time.Duration, snap *state.Snapshot)
	ObserveCommand(device, name, status string)
	ObservePatch(device, status string)
}

// Observers fans out to every member.
type Observers []Observer

func (o Observers) ObserveRead(device, group string, err error) {
	for _, x := range o {
		x.ObserveRead(device, group, err)
	}
}

func (o Observers) ObserveCycle(device string, took time.Duration, snap *state.Snapshot) {
	for _, x := range o {
		x.ObserveCycle(device, took, snap)
	}
}

func (o Observers) ObserveCommand(device, name, status string) {
	for _, x := range o {
		x.ObserveCommand(device, name, status)
	}
}

func (o Observers) ObservePatch(device, status string) {
	for _, x := range o {
		x.ObservePatch(device, status)
	}
}
