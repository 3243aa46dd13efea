// internal/bridge/setup.go
package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/tamzrod/fieldbus-bridge/internal/config"
	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/devices"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

// Setup runs the provisioning sequence of the config's first device and
// closes the bus. It is the one-shot alternative to serving.
func Setup(ctx context.Context, cfg *config.Config, dial Dialer, progress func(string)) error {
	if dial == nil {
		dial = Dial
	}
	bc := cfg.Bridge
	if len(bc.Devices) == 0 {
		return errors.New("bridge: setup needs a device")
	}
	d := bc.Devices[0]

	desc, ok := devices.Lookup(d.Type)
	if !ok {
		return fmt.Errorf("bridge: unknown type %q", d.Type)
	}
	if desc.Provision == nil {
		return fmt.Errorf("bridge: device type %s has no setup procedure", d.Type)
	}

	var bus config.BusConfig
	for _, x := range bc.Buses {
		if x.ID == d.Bus {
			bus = x
		}
	}

	conn, err := dial(bus, []Member{{Desc: desc, Unit: desc.Provision.Unit}})
	if err != nil {
		return err
	}
	defer conn.Close()

	regs, ok := conn.(transport.Registers)
	if !ok {
		return fmt.Errorf("bridge: bus %q cannot write registers", bus.ID)
	}
	return device.RunProvision(ctx, desc, regs, unitOf(d, desc), progress)
}
