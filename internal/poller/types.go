// internal/poller/types.go
package poller

import (
	"context"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// Device is what the poller drives. Update must return only ctx's error,
// and only when the cycle was abandoned.
type Device interface {
	ID() string
	Transport() transport.Conn
	Update(ctx context.Context) error
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration

	// OnCycle, when set, is called after every tick with the tick's
	// duration and the error that cut it short (nil for a full tick).
	OnCycle func(took time.Duration, err error)
}

// lane is a set of devices sharing one transport. Devices in a lane are
// updated one after another; lanes run side by side.
type lane struct {
	conn    transport.Conn
	devices []Device
}
