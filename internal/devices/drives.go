// internal/devices/drives.go
package devices

import (
	"strings"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/command"
	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/registers"
)

// driveCommands is the run-control set shared by both inverters; the
// value written to reg selects the action.
func driveCommands(reg uint16) []command.Entry {
	names := []string{
		"forward_running",
		"reverse_running",
		"forward_jog",
		"reverse_jog",
		"free_stop",
		"decelerate_stop",
		"fault_resetting",
	}
	out := make([]command.Entry, 0, len(names))
	for i, n := range names {
		out = append(out, command.Entry{
			Name:    n,
			Address: reg,
			Value:   uint16(i + 1),
			Message: strings.ReplaceAll(n, "_", " "),
		})
	}
	return out
}

func faultGroup() registers.Group {
	return registers.Group{
		Name:    "fault",
		Table:   registers.Holding,
		Address: 0x8000,
		Fields:  []registers.Field{{Name: "faultInfo"}},
	}
}

// FS50L is the FS50L variable frequency drive.
func FS50L() device.Descriptor {
	return device.Descriptor{
		Type:     "fs50l",
		Path:     "/fs50l",
		Summary:  "FS50L inverter (Modbus RTU)",
		Kind:     device.KindRegisters,
		Address:  0x01,
		BaudRate: 9600,
		Groups: []registers.Group{
			{
				Name:    "running",
				Table:   registers.Holding,
				Address: 0x3001,
				Fields: []registers.Field{
					{Name: "frequencyRunning", Digits: 2},
					{Name: "busVoltage", Scale: 0.1, Digits: 1},
					{Name: "outputVoltage", Scale: 0.1, Digits: 1},
					{Name: "outputCurrent", Digits: 1},
					{Name: "outputPower", Digits: 1},
					{Name: "outputTorque", Digits: 1},
					{Name: "runSpeed", Digits: 2},
				},
			},
			faultGroup(),
		},
		Commands: driveCommands(0x1000),
	}
}

// SHZK is the SHZK inverter. It needs a longer pause between frames
// than the bus default.
func SHZK() device.Descriptor {
	return device.Descriptor{
		Type:       "shzk",
		Path:       "/shzk",
		Summary:    "SHZK inverter (Modbus RTU)",
		Kind:       device.KindRegisters,
		Address:    0x01,
		BaudRate:   9600,
		Turnaround: 23 * time.Millisecond,
		Groups: []registers.Group{
			{
				Name:    "running",
				Table:   registers.Holding,
				Address: 0x1001,
				Fields: []registers.Field{
					{Name: "frequencyRunning", Digits: 2},
					{Name: "busVoltage", Scale: 0.1, Digits: 1},
					{Name: "outputVoltage", Digits: 1},
					{Name: "outputCurrent", Scale: 0.01, Digits: 2},
					{Name: "outputPower", Digits: 1},
					{Name: "outputTorque", Digits: 1},
				},
			},
			{
				Name:    "inputs",
				Table:   registers.Holding,
				Address: 0x100A,
				Fields: []registers.Field{
					{Name: "analogInput1", Digits: 1},
					{Name: "analogInput2", Digits: 1},
					{Name: "analogInput3", Digits: 1},
					{}, // high-speed pulse input
					{}, // PID setting
					{Name: "loadSpeed", Digits: 1},
				},
			},
			{
				Name:    "state",
				Table:   registers.Holding,
				Address: 0x3000,
				Fields:  []registers.Field{{Name: "state"}},
			},
			faultGroup(),
		},
		Commands: driveCommands(0x2000),
	}
}
