// internal/devices/catalog.go
package devices

import (
	"sort"

	"github.com/tamzrod/fieldbus-bridge/internal/device"
)

var catalog = map[string]func() device.Descriptor{
	"aj-sr04":   AJSR04,
	"fs50l":     FS50L,
	"pzem-004t": PZEM004T,
	"shzk":      SHZK,
	"urm15":     URM15,
}

// Lookup returns a fresh descriptor for a device type.
func Lookup(typ string) (device.Descriptor, bool) {
	fn, ok := catalog[typ]
	if !ok {
		return device.Descriptor{}, false
	}
	return fn(), true
}

// Types lists the known device types, sorted.
func Types() []string {
	out := make([]string, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// All returns every descriptor in Types order.
func All() []device.Descriptor {
	types := Types()
	out := make([]device.Descriptor, 0, len(types))
	for _, t := range types {
		out = append(out, catalog[t]())
	}
	return out
}
