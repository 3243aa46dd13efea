// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/devices"
	"github.com/tamzrod/fieldbus-bridge/internal/transport/rawserial"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	b := cfg.Bridge

	if b.HTTP.Port < 0 || b.HTTP.Port > 65535 {
		return fmt.Errorf("http: port %d out of range", b.HTTP.Port)
	}
	for p := range b.HTTP.Files {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("http: file path %q must start with /", p)
		}
	}
	if b.Poll.IntervalMs < 0 {
		return errors.New("poll: interval_ms must be > 0")
	}
	if b.History.Retain < 0 {
		return errors.New("history: retain must be >= 0")
	}

	// ------------------------------------------------------------
	// BUSES
	// ------------------------------------------------------------

	buses := make(map[string]BusConfig, len(b.Buses))
	for _, bus := range b.Buses {
		if bus.ID == "" {
			return errors.New("bus: id required")
		}
		if _, dup := buses[bus.ID]; dup {
			return fmt.Errorf("bus %q: duplicate id", bus.ID)
		}
		switch bus.Mode {
		case ModeRTU, ModeSerial:
			opts := rawserial.PortOptions{
				BaudRate: bus.BaudRate,
				DataBits: bus.DataBits,
				StopBits: bus.StopBits,
				Parity:   bus.Parity,
			}
			if _, err := opts.Normalize(); err != nil {
				return fmt.Errorf("bus %q: %w", bus.ID, err)
			}
		case ModeMock:
		case ModeTCP:
			if bus.Endpoint == "" {
				return fmt.Errorf("bus %q: tcp mode needs an endpoint", bus.ID)
			}
		default:
			return fmt.Errorf("bus %q: unknown mode %q", bus.ID, bus.Mode)
		}
		if bus.TimeoutMs < 0 || bus.TurnaroundMs < 0 || bus.BaudRate < 0 {
			return fmt.Errorf("bus %q: negative timing or speed", bus.ID)
		}
		buses[bus.ID] = bus
	}

	// ------------------------------------------------------------
	// DEVICES
	// ------------------------------------------------------------

	if len(b.Devices) == 0 {
		return errors.New("config: at least one device required")
	}

	ids := make(map[string]struct{})
	paths := make(map[string]string)
	streamsOnBus := make(map[string]int)
	regsOnBus := make(map[string]int)

	for i, d := range b.Devices {
		desc, ok := devices.Lookup(d.Type)
		if !ok {
			return fmt.Errorf("device #%d: unknown type %q (known: %s)", i+1, d.Type, strings.Join(devices.Types(), ", "))
		}

		id := d.ID
		if id == "" {
			id = d.Type
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("device %q: duplicate id", id)
		}
		ids[id] = struct{}{}

		path := d.Path
		if path == "" {
			path = desc.Path
		}
		if !strings.HasPrefix(path, "/") || len(path) < 2 {
			return fmt.Errorf("device %q: path %q must start with / and name a resource", id, path)
		}
		if prev, dup := paths[path]; dup {
			return fmt.Errorf("device %q: path %s already used by %q", id, path, prev)
		}
		if _, clash := b.HTTP.Files[path]; clash {
			return fmt.Errorf("device %q: path %s also listed under http.files", id, path)
		}
		paths[path] = id

		bus, ok := buses[d.Bus]
		if !ok {
			return fmt.Errorf("device %q: unknown bus %q", id, d.Bus)
		}

		switch desc.Kind {
		case device.KindRegisters:
			if bus.Mode == ModeSerial {
				return fmt.Errorf("device %q: type %s needs an rtu, tcp or mock bus, %q is %s", id, d.Type, bus.ID, bus.Mode)
			}
			if d.Address != nil && (*d.Address < 1 || *d.Address > 247) {
				return fmt.Errorf("device %q: address %d outside 1..247", id, *d.Address)
			}
			if streamsOnBus[bus.ID] > 0 {
				return fmt.Errorf("device %q: bus %q already carries a stream device", id, bus.ID)
			}
			regsOnBus[bus.ID]++
		case device.KindStream:
			if bus.Mode != ModeSerial && bus.Mode != ModeMock {
				return fmt.Errorf("device %q: type %s needs a serial or mock bus, %q is %s", id, d.Type, bus.ID, bus.Mode)
			}
			if d.Address != nil {
				return fmt.Errorf("device %q: type %s has no bus address", id, d.Type)
			}
			if regsOnBus[bus.ID] > 0 {
				return fmt.Errorf("device %q: bus %q already carries register devices", id, bus.ID)
			}
			// one frame format per line
			streamsOnBus[bus.ID]++
			if streamsOnBus[bus.ID] > 1 {
				return fmt.Errorf("device %q: serial bus %q already carries a stream device", id, bus.ID)
			}
		}
	}

	return nil
}
