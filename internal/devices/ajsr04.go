// internal/devices/ajsr04.go
package devices

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/codec"
	"github.com/tamzrod/fieldbus-bridge/internal/device"
	"github.com/tamzrod/fieldbus-bridge/internal/state"
)

// AJSR04Frame is the sensor's reply envelope: Gap=<mm>mm\r.
var AJSR04Frame = codec.Frame{
	Prefix:     []byte("Gap="),
	Terminator: []byte{0x0d},
	MinLen:     10,
}

// AJSR04 is the AJ-SR04M ultrasonic sensor in serial trigger mode.
func AJSR04() device.Descriptor {
	return device.Descriptor{
		Type:     "aj-sr04",
		Path:     "/aj-sr04",
		Summary:  "AJ-SR04M ultrasonic distance sensor (UART)",
		Kind:     device.KindStream,
		BaudRate: 9600,
		Probe: &device.Probe{
			Name:    "distance",
			Request: []byte("1"),
			Frame:   AJSR04Frame,
			Timeout: time.Second,
			Fields:  []string{"distance"},
			Parse:   parseGap,
		},
	}
}

// parseGap reads "<mm>mm" from a payload and reports metres.
func parseGap(payload []byte) (state.Values, error) {
	p := bytes.TrimRight(payload, "\r\n")
	p = bytes.TrimSpace(bytes.TrimSuffix(p, []byte("mm")))
	mm, err := strconv.ParseFloat(string(p), 64)
	if err != nil {
		return nil, fmt.Errorf("aj-sr04: bad distance %q", payload)
	}
	return state.Values{"distance": state.Rounded(mm/1000, 3)}, nil
}
