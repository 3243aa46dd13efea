// internal/config/config.go
package config

type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

type BridgeConfig struct {
	HTTP    HTTPConfig     `yaml:"http"`
	Poll    PollConfig     `yaml:"poll"`
	History HistoryConfig  `yaml:"history"`
	Buses   []BusConfig    `yaml:"buses"`
	Devices []DeviceConfig `yaml:"devices"`
}

// ---- HTTP ----

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Page is served on GET /.
	Page string `yaml:"page"`

	// Files maps extra URL paths to files.
	Files map[string]string `yaml:"files"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- HISTORY ----

type HistoryConfig struct {
	// Path enables the SQLite history when set.
	Path string `yaml:"path"`

	// Retain bounds rows kept per device; 0 keeps everything.
	Retain int `yaml:"retain"`
}

// ---- BUS ----

const (
	ModeRTU    = "rtu"
	ModeTCP    = "tcp"
	ModeSerial = "serial"
	ModeMock   = "mock"
)

type BusConfig struct {
	ID   string `yaml:"id"`
	Mode string `yaml:"mode"`

	// rtu / serial
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`

	// tcp
	Endpoint string `yaml:"endpoint"`

	TimeoutMs int `yaml:"timeout_ms"`

	// TurnaroundMs raises the pause between reads for every device on the
	// bus; a device's own, longer turnaround still wins.
	TurnaroundMs int `yaml:"turnaround_ms"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	Bus  string `yaml:"bus"`

	// Address is the Modbus unit; nil uses the device type's default.
	Address *int `yaml:"address"`

	// Path overrides the type's REST path.
	Path string `yaml:"path"`
}
