// internal/transport/rawserial/ports.go
package rawserial

import (
	"errors"
	"fmt"

	"go.bug.st/serial/enumerator"
)

// AutoPort is the port name that asks for detection.
const AutoPort = "auto"

// List returns every serial port the OS reports.
func List() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("rawserial: list ports: %w", err)
	}
	return ports, nil
}

// Detect picks the first USB serial adapter, falling back to the first port.
func Detect() (string, error) {
	ports, err := List()
	if err != nil {
		return "", err
	}
	return pick(ports)
}

func pick(ports []*enumerator.PortDetails) (string, error) {
	for _, p := range ports {
		if p.IsUSB {
			return p.Name, nil
		}
	}
	if len(ports) > 0 {
		return ports[0].Name, nil
	}
	return "", errors.New("rawserial: no serial port found")
}

// Resolve returns path unless it is AutoPort.
func Resolve(path string) (string, error) {
	if path == "" || path == AutoPort {
		return Detect()
	}
	return path, nil
}
