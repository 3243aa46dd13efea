// internal/device/provision.go
package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/registers"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

const provisionGap = 50 * time.Millisecond

// RunProvision executes desc's setup writes on bus, addressed to
// desc.Provision.Unit. address is the bus address being assigned.
// Broadcast writes (unit 0) get no reply, so a timeout there counts as sent.
// progress, when set, receives each step's label.
func RunProvision(ctx context.Context, desc Descriptor, bus transport.Registers, address uint8, progress func(string)) error {
	p := desc.Provision
	if p == nil {
		return fmt.Errorf("device %q: no setup procedure", desc.Type)
	}

	for i, st := range p.Steps {
		if i > 0 {
			if err := registers.Sleep(ctx, provisionGap); err != nil {
				return err
			}
		}

		v := st.Value
		if st.UseAddress {
			v = uint16(address)
		}
		err := bus.WriteSingleRegister(p.Unit, st.Address, v)
		if err != nil && !(p.Unit == 0 && transport.CodeOf(err) == transport.Timeout) {
			return fmt.Errorf("device %q: setup step %d (reg %#04x=%#04x): %w", desc.Type, i+1, st.Address, v, err)
		}
		if progress != nil && st.Label != "" {
			progress(st.label(v))
		}
	}
	if progress != nil && p.Notice != "" {
		progress(p.Notice)
	}
	return nil
}

func (st Step) label(v uint16) string {
	if strings.Contains(st.Label, "%d") {
		return fmt.Sprintf(st.Label, v)
	}
	return st.Label
}
