// internal/devices/pzem004t.go
package devices

import (
	"github.com/tamzrod/fieldbus-bridge/internal/command"
	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/registers"
)

// PZEM004T is the PZEM-004T v3 AC energy meter.
func PZEM004T() device.Descriptor {
	return device.Descriptor{
		Type:     "pzem-004t",
		Path:     "/pzem-004t",
		Summary:  "PZEM-004T AC energy meter (Modbus RTU)",
		Kind:     device.KindRegisters,
		Address:  0xF8,
		BaudRate: 9600,
		Groups: []registers.Group{
			{
				Name:    "measure",
				Table:   registers.Input,
				Address: 0x0000,
				Fields: []registers.Field{
					{Name: "voltage", Scale: 0.1, Digits: 1},
					{Name: "current", Combine: registers.Pair32, Scale: 0.001, Digits: 3},
					{Name: "power", Combine: registers.Pair32, Scale: 0.1, Digits: 1},
					{Name: "energy", Combine: registers.Pair32, Digits: 1},
					{Name: "frequency", Scale: 0.1, Digits: 1},
					{Name: "powerFactor", Scale: 0.01, Digits: 2},
					{Name: "alarm", Flag: true, FlagValue: 0xFFFF},
				},
			},
			{
				Name:    "threshold",
				Table:   registers.Holding,
				Address: 0x0001,
				Fields:  []registers.Field{{Name: "alarmThreshold", Digits: 1}},
			},
		},
		Commands: []command.Entry{
			{Name: "reset_energy", Frame: []byte{0x42}},
			{Name: "calibrate", Frame: []byte{0x41, 0x37, 0x21}},
		},
		Settings: []device.Setting{
			{Key: "alarmThreshold", Address: 0x0001},
			{Key: device.AddressField, Address: 0x0002, Min: 1, Max: 247, Rebind: true},
		},
	}
}
