// internal/bridge/dial.go
package bridge

import (
	"fmt"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/config"
	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/devices"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
	"github.com/tamzrod/fieldbus-bridge/internal/transport/mock"
	"github.com/tamzrod/fieldbus-bridge/internal/transport/modbus"
	"github.com/tamzrod/fieldbus-bridge/internal/transport/rawserial"
)

// Member is one device placed on a bus, as the dialer sees it.
type Member struct {
	Desc device.Descriptor
	Unit uint8
}

// Dialer opens the transport for one bus. members lists the devices that
// will share it.
type Dialer func(bus config.BusConfig, members []Member) (transport.Conn, error)

// Dial is the production Dialer.
func Dial(bus config.BusConfig, members []Member) (transport.Conn, error) {
	timeout := time.Duration(bus.TimeoutMs) * time.Millisecond

	switch bus.Mode {
	case config.ModeMock:
		for _, m := range members {
			if m.Desc.Kind == device.KindStream {
				return devices.Dev(m.Desc, 0)
			}
		}
		b := mock.NewBank("dev:" + bus.ID)
		for _, m := range members {
			devices.Seed(b, m.Desc.Type, m.Unit)
		}
		return b, nil

	case config.ModeTCP:
		return modbus.New(modbus.Config{
			Mode:     modbus.ModeTCP,
			Endpoint: bus.Endpoint,
			Timeout:  timeout,
		})

	case config.ModeRTU:
		port, err := rawserial.Resolve(bus.Port)
		if err != nil {
			return nil, fmt.Errorf("bridge: bus %q: %w", bus.ID, err)
		}
		return modbus.New(modbus.Config{
			Mode:     modbus.ModeRTU,
			Port:     port,
			BaudRate: bus.BaudRate,
			DataBits: bus.DataBits,
			StopBits: bus.StopBits,
			Parity:   bus.Parity,
			Timeout:  timeout,
		})

	case config.ModeSerial:
		if len(members) != 1 || members[0].Desc.Probe == nil {
			return nil, fmt.Errorf("bridge: serial bus %q needs exactly one stream device", bus.ID)
		}
		port, err := rawserial.Resolve(bus.Port)
		if err != nil {
			return nil, fmt.Errorf("bridge: bus %q: %w", bus.ID, err)
		}
		return rawserial.Open(rawserial.Config{
			Path: port,
			Options: rawserial.PortOptions{
				BaudRate: bus.BaudRate,
				DataBits: bus.DataBits,
				StopBits: bus.StopBits,
				Parity:   bus.Parity,
			},
			Frame: members[0].Desc.Probe.Frame,
		})

	default:
		return nil, fmt.Errorf("bridge: bus %q: unknown mode %q", bus.ID, bus.Mode)
	}
}
