// internal/devices/urm15.go
package devices

import (
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/registers"
)

const (
	urm15Control = 0x0008
	noReading    = 0xFFFF
)

// URM15 is the URM15 ultrasonic ranger. Each reading is triggered through
// the control register.
func URM15() device.Descriptor {
	return device.Descriptor{
		Type:     "urm15",
		Path:     "/urm15",
		Summary:  "URM15 ultrasonic distance sensor (Modbus RTU)",
		Kind:     device.KindRegisters,
		Address:  0x0F,
		BaudRate: 9600,
		Groups: []registers.Group{
			{
				Name:    "measure",
				Table:   registers.Holding,
				Address: 0x0005,
				Trigger: &registers.Trigger{
					Address: urm15Control,
					Value:   0b1101, // trigger mode, on-board temperature, start
					Settle:  65 * time.Millisecond,
				},
				Fields: []registers.Field{
					{Name: "distance", Scale: 0.1, Digits: 1, Invalid: []uint32{noReading}},
					{Name: "temperature", Scale: 0.1, Digits: 1, Invalid: []uint32{noReading}},
				},
			},
		},
		// Factory units answer on 0x0F at 19200 baud; setup rewrites the
		// speed and address over a broadcast.
		Provision: &device.Provision{
			Unit:     0,
			BaudRate: 19200,
			Steps: []device.Step{
				{Address: urm15Control, Value: 0b0101, Label: "Set control register"},
				{Address: 0x0003, Value: 0x0003, Label: "Set baud rate to 9600"},
				{Address: 0x0002, UseAddress: true, Label: "Set address to %d"},
			},
			Notice: "Please restart the device",
		},
	}
}
