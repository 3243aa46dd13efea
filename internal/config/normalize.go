// internal/config/normalize.go
package config

import (
	"github.com/tamzrod/fieldbus-bridge/internal/devices"
	"github.com/tamzrod/fieldbus-bridge/internal/transport/rawserial"
)

const (
	DefaultHost       = "localhost"
	DefaultPort       = 5000
	DefaultIntervalMs = 1000
	DefaultTimeoutMs  = 1000
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	b := &cfg.Bridge

	if b.HTTP.Host == "" {
		b.HTTP.Host = DefaultHost
	}
	if b.HTTP.Port == 0 {
		b.HTTP.Port = DefaultPort
	}
	if b.Poll.IntervalMs == 0 {
		b.Poll.IntervalMs = DefaultIntervalMs
	}

	// first device on a bus picks the line speed when none is given
	speed := make(map[string]int)

	for i := range b.Devices {
		d := &b.Devices[i]
		desc, ok := devices.Lookup(d.Type)
		if !ok {
			continue
		}
		if d.ID == "" {
			d.ID = d.Type
		}
		if d.Path == "" {
			d.Path = desc.Path
		}
		if d.Address == nil && desc.Address != 0 {
			a := int(desc.Address)
			d.Address = &a
		}
		if _, seen := speed[d.Bus]; !seen && desc.BaudRate > 0 {
			speed[d.Bus] = desc.BaudRate
		}
	}

	for i := range b.Buses {
		bus := &b.Buses[i]
		if bus.TimeoutMs == 0 {
			bus.TimeoutMs = DefaultTimeoutMs
		}
		if bus.Mode == ModeRTU || bus.Mode == ModeSerial {
			if bus.Port == "" {
				bus.Port = rawserial.AutoPort
			}
			if bus.BaudRate == 0 {
				bus.BaudRate = speed[bus.ID]
			}
			opts, err := rawserial.PortOptions{
				BaudRate: bus.BaudRate,
				DataBits: bus.DataBits,
				StopBits: bus.StopBits,
				Parity:   bus.Parity,
			}.Normalize()
			if err == nil {
				bus.BaudRate, bus.DataBits, bus.StopBits, bus.Parity = opts.BaudRate, opts.DataBits, opts.StopBits, opts.Parity
			}
		}
	}
}
