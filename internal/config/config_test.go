// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
bridge:
  http:
    host: 0.0.0.0
    port: 8080
    files:
      /app.js: web/app.js
  poll:
    interval_ms: 500
  history:
    path: bridge.db
    retain: 1000
  buses:
    - id: rs485
      mode: rtu
      port: /dev/ttyUSB0
      parity: even
    - id: uart
      mode: serial
      port: /dev/ttyS1
  devices:
    - type: pzem-004t
      bus: rs485
    - id: ranger
      type: urm15
      bus: rs485
      address: 16
    - type: aj-sr04
      bus: uart
`

func intp(v int) *int { return &v }

// helper to build a config quickly
func cfgWith(buses []BusConfig, devs ...DeviceConfig) *Config {
	return &Config{Bridge: BridgeConfig{Buses: buses, Devices: devs}}
}

func rtuBus(id string) BusConfig { return BusConfig{ID: id, Mode: ModeRTU} }

// ---- load ----

func TestLoadAndNormalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	Normalize(cfg)

	b := cfg.Bridge
	assert.Equal(t, "0.0.0.0", b.HTTP.Host)
	assert.Equal(t, 8080, b.HTTP.Port)
	assert.Equal(t, 500, b.Poll.IntervalMs)
	assert.Equal(t, 1000, b.History.Retain)

	want := []DeviceConfig{
		{ID: "pzem-004t", Type: "pzem-004t", Bus: "rs485", Address: intp(0xF8), Path: "/pzem-004t"},
		{ID: "ranger", Type: "urm15", Bus: "rs485", Address: intp(16), Path: "/urm15"},
		{ID: "aj-sr04", Type: "aj-sr04", Bus: "uart", Path: "/aj-sr04"},
	}
	if diff := cmp.Diff(want, b.Devices); diff != "" {
		t.Fatalf("devices mismatch (-want +got):\n%s", diff)
	}

	rs485 := b.Buses[0]
	assert.Equal(t, 9600, rs485.BaudRate)
	assert.Equal(t, 8, rs485.DataBits)
	assert.Equal(t, 1, rs485.StopBits)
	assert.Equal(t, "E", rs485.Parity)
	assert.Equal(t, DefaultTimeoutMs, rs485.TimeoutMs)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("bridge:\n  htp: {}\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := cfgWith([]BusConfig{{ID: "b", Mode: ModeRTU}}, DeviceConfig{Type: "fs50l", Bus: "b"})
	require.NoError(t, Validate(cfg))
	Normalize(cfg)

	assert.Equal(t, DefaultHost, cfg.Bridge.HTTP.Host)
	assert.Equal(t, DefaultPort, cfg.Bridge.HTTP.Port)
	assert.Equal(t, DefaultIntervalMs, cfg.Bridge.Poll.IntervalMs)
	assert.Equal(t, "auto", cfg.Bridge.Buses[0].Port)
	assert.Equal(t, "N", cfg.Bridge.Buses[0].Parity)
}

// ---- validate ----

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want string
	}{
		{"no devices", cfgWith([]BusConfig{rtuBus("b")}), "at least one device"},
		{"unknown type", cfgWith([]BusConfig{rtuBus("b")}, DeviceConfig{Type: "toaster", Bus: "b"}), "unknown type"},
		{"unknown bus", cfgWith([]BusConfig{rtuBus("b")}, DeviceConfig{Type: "fs50l", Bus: "x"}), "unknown bus"},
		{"duplicate bus", cfgWith([]BusConfig{rtuBus("b"), rtuBus("b")}, DeviceConfig{Type: "fs50l", Bus: "b"}), "duplicate id"},
		{"bad mode", cfgWith([]BusConfig{{ID: "b", Mode: "can"}}, DeviceConfig{Type: "fs50l", Bus: "b"}), "unknown mode"},
		{"tcp without endpoint", cfgWith([]BusConfig{{ID: "b", Mode: ModeTCP}}, DeviceConfig{Type: "fs50l", Bus: "b"}), "endpoint"},
		{"bad parity", cfgWith([]BusConfig{{ID: "b", Mode: ModeRTU, Parity: "mark"}}, DeviceConfig{Type: "fs50l", Bus: "b"}), "parity"},
		{
			"duplicate device id",
			cfgWith([]BusConfig{rtuBus("b")},
				DeviceConfig{Type: "fs50l", Bus: "b"},
				DeviceConfig{Type: "fs50l", Bus: "b", Path: "/other"}),
			"duplicate id",
		},
		{
			"duplicate path",
			cfgWith([]BusConfig{rtuBus("b")},
				DeviceConfig{Type: "fs50l", Bus: "b"},
				DeviceConfig{ID: "two", Type: "shzk", Bus: "b", Path: "/fs50l"}),
			"already used",
		},
		{"address range", cfgWith([]BusConfig{rtuBus("b")}, DeviceConfig{Type: "fs50l", Bus: "b", Address: intp(248)}), "1..247"},
		{"register device on serial", cfgWith([]BusConfig{{ID: "b", Mode: ModeSerial}}, DeviceConfig{Type: "fs50l", Bus: "b"}), "rtu, tcp or mock"},
		{"stream device on rtu", cfgWith([]BusConfig{rtuBus("b")}, DeviceConfig{Type: "aj-sr04", Bus: "b"}), "serial or mock"},
		{
			"two streams on one line",
			cfgWith([]BusConfig{{ID: "b", Mode: ModeSerial}},
				DeviceConfig{Type: "aj-sr04", Bus: "b"},
				DeviceConfig{ID: "two", Type: "aj-sr04", Bus: "b", Path: "/two"}),
			"already carries",
		},
		{
			"stream and registers on one mock bus",
			cfgWith([]BusConfig{{ID: "b", Mode: ModeMock}},
				DeviceConfig{Type: "pzem-004t", Bus: "b"},
				DeviceConfig{Type: "aj-sr04", Bus: "b"}),
			"already carries register devices",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_SharedBusAllowed(t *testing.T) {
	cfg := cfgWith([]BusConfig{rtuBus("b")},
		DeviceConfig{Type: "fs50l", Bus: "b", Address: intp(1)},
		DeviceConfig{Type: "shzk", Bus: "b", Address: intp(2)},
	)
	assert.NoError(t, Validate(cfg))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := cfgWith([]BusConfig{rtuBus("b")}, DeviceConfig{Type: "fs50l", Bus: "b"})
	before := cfgWith([]BusConfig{rtuBus("b")}, DeviceConfig{Type: "fs50l", Bus: "b"})
	require.NoError(t, Validate(cfg))
	if diff := cmp.Diff(before, cfg); diff != "" {
		t.Fatalf("Validate mutated config:\n%s", diff)
	}
}

// ---- flags ----

func TestForDevice(t *testing.T) {
	cfg, err := ForDevice(DeviceFlags{
		Type:       "urm15",
		SerialPort: "/dev/ttyUSB1",
		Address:    16,
		Files:      []string{"/src.js:static/src.js"},
	})
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	Normalize(cfg)

	b := cfg.Bridge
	assert.Equal(t, ModeRTU, b.Buses[0].Mode)
	assert.Equal(t, "/dev/ttyUSB1", b.Buses[0].Port)
	assert.Equal(t, 9600, b.Buses[0].BaudRate)
	assert.Equal(t, 16, *b.Devices[0].Address)
	assert.Equal(t, map[string]string{"/src.js": "static/src.js"}, b.HTTP.Files)
	assert.Equal(t, DefaultPort, b.HTTP.Port)
}

func TestForDeviceModes(t *testing.T) {
	cfg, err := ForDevice(DeviceFlags{Type: "aj-sr04"})
	require.NoError(t, err)
	assert.Equal(t, ModeSerial, cfg.Bridge.Buses[0].Mode)

	cfg, err = ForDevice(DeviceFlags{Type: "fs50l", TCP: "10.0.0.5:502"})
	require.NoError(t, err)
	assert.Equal(t, ModeTCP, cfg.Bridge.Buses[0].Mode)
	assert.Equal(t, "10.0.0.5:502", cfg.Bridge.Buses[0].Endpoint)

	cfg, err = ForDevice(DeviceFlags{Type: "fs50l", TCP: "10.0.0.5:502", Dev: true})
	require.NoError(t, err)
	assert.Equal(t, ModeMock, cfg.Bridge.Buses[0].Mode)

	_, err = ForDevice(DeviceFlags{Type: "toaster"})
	assert.Error(t, err)

	_, err = ForDevice(DeviceFlags{Type: "fs50l", Files: []string{"nofile"}})
	assert.Error(t, err)
}

func TestParsePathFile(t *testing.T) {
	p, f, err := ParsePathFile("/src.js:static/src.js")
	require.NoError(t, err)
	assert.Equal(t, "/src.js", p)
	assert.Equal(t, "static/src.js", f)

	p, f, err = ParsePathFile("style.css,web/style.css")
	require.NoError(t, err)
	assert.Equal(t, "/style.css", p)
	assert.Equal(t, "web/style.css", f)

	for _, bad := range []string{"", ":x", "/x:", "plain"} {
		_, _, err := ParsePathFile(bad)
		assert.Error(t, err, bad)
	}
}
