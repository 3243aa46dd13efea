// internal/config/flags.go
package config

import (
	"fmt"
	"strings"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/devices"
)

// DeviceFlags are the single-device command line options.
type DeviceFlags struct {
	Type       string
	SerialPort string
	Address    int // 0 keeps the type default
	Baud       int
	Host       string
	Port       int
	Page       string
	Files      []string // path:file
	IntervalMs int
	TCP        string // Modbus TCP endpoint instead of a serial line
	Dev        bool
	History    string
}

// ForDevice turns command line flags into a one-bus, one-device config.
// The result still goes through Validate and Normalize.
func ForDevice(f DeviceFlags) (*Config, error) {
	desc, ok := devices.Lookup(f.Type)
	if !ok {
		return nil, fmt.Errorf("config: unknown device type %q (known: %s)", f.Type, strings.Join(devices.Types(), ", "))
	}

	files := make(map[string]string, len(f.Files))
	for _, pf := range f.Files {
		p, file, err := ParsePathFile(pf)
		if err != nil {
			return nil, err
		}
		files[p] = file
	}

	bus := BusConfig{
		ID:       "bus0",
		Port:     f.SerialPort,
		BaudRate: f.Baud,
	}
	switch {
	case f.Dev:
		bus.Mode = ModeMock
	case f.TCP != "":
		bus.Mode = ModeTCP
		bus.Endpoint = f.TCP
	case desc.Kind == device.KindStream:
		bus.Mode = ModeSerial
	default:
		bus.Mode = ModeRTU
	}

	dev := DeviceConfig{ID: desc.Type, Type: desc.Type, Bus: bus.ID}
	if f.Address != 0 {
		a := f.Address
		dev.Address = &a
	}

	return &Config{Bridge: BridgeConfig{
		HTTP: HTTPConfig{
			Host:  f.Host,
			Port:  f.Port,
			Page:  f.Page,
			Files: files,
		},
		Poll:    PollConfig{IntervalMs: f.IntervalMs},
		History: HistoryConfig{Path: f.History},
		Buses:   []BusConfig{bus},
		Devices: []DeviceConfig{dev},
	}}, nil
}

// ParsePathFile splits "/url/path:file/on/disk". A comma is accepted as
// the separator too.
func ParsePathFile(s string) (string, string, error) {
	i := strings.IndexAny(s, ":,")
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("config: invalid path-file %q, use path:file", s)
	}
	p, file := s[:i], s[i+1:]
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p, file, nil
}
