// internal/devices/dev.go
package devices

import (
	"fmt"
	"sync/atomic"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
	"github.com/tamzrod/fieldbus-bridge/internal/transport/mock"
)

// seeds fill a mock bus with readings that look like a healthy device.
var seeds = map[string]func(b *mock.Bank, unit uint8){
	"fs50l": func(b *mock.Bank, unit uint8) {
		// frequency in 0.01 Hz, bus and output voltage in 0.1 V
		b.SetHolding(unit, 0x3001, 5000, 5400, 3800, 3, 1, 42, 1480)
		b.SetHolding(unit, 0x8000, 0)
	},
	"shzk": func(b *mock.Bank, unit uint8) {
		b.SetHolding(unit, 0x1001, 5000, 5400, 380, 325, 1, 40)
		b.SetHolding(unit, 0x100A, 10, 0, 0, 0, 0, 1450)
		b.SetHolding(unit, 0x3000, 1)
		b.SetHolding(unit, 0x8000, 0)
	},
	"pzem-004t": func(b *mock.Bank, unit uint8) {
		// 230.1 V, 1.234 A, 283.9 W, 15 Wh, 50.0 Hz, pf 0.99, no alarm
		b.SetInput(unit, 0x0000, 2301, 1234, 0, 2839, 0, 15, 0, 500, 99, 0)
		b.SetHolding(unit, 0x0001, 2300)
		b.SetHolding(unit, 0x0002, uint16(unit))
	},
	"urm15": func(b *mock.Bank, unit uint8) {
		b.SetHolding(unit, 0x0005, 1234, 215)
	},
}

// Seed fills b with plausible readings for a device of type typ at unit.
// Unknown types leave b untouched.
func Seed(b *mock.Bank, typ string, unit uint8) {
	if seed, ok := seeds[typ]; ok {
		seed(b, unit)
	}
}

// Dev returns a mock transport that answers like the real device at unit.
func Dev(desc device.Descriptor, unit uint8) (transport.Conn, error) {
	port := "dev:" + desc.Type

	switch desc.Kind {
	case device.KindRegisters:
		b := mock.NewBank(port)
		Seed(b, desc.Type, unit)
		return b, nil
	case device.KindStream:
		if desc.Type != "aj-sr04" {
			return nil, fmt.Errorf("devices: no dev stream for %q", desc.Type)
		}
		var n atomic.Uint32
		return mock.NewStream(mock.StreamOptions{
			Port: port,
			Respond: func(sent []byte) [][]byte {
				if string(sent) != "1" {
					return nil
				}
				mm := 1200 + 5*(n.Add(1)%20)
				return [][]byte{[]byte(fmt.Sprintf("Gap=%dmm\r", mm))}
			},
		}), nil
	default:
		return nil, fmt.Errorf("devices: unknown kind for %q", desc.Type)
	}
}
