// internal/poller/builder.go
package poller

import "github.com/tamzrod/fieldbus-bridge/internal/transport"

// buildLanes groups devices by transport identity, keeping first-seen
// order for lanes and registration order inside each lane.
func buildLanes(devices []Device) []lane {
	idx := make(map[transport.Conn]int)
	var lanes []lane
	for _, d := range devices {
		c := d.Transport()
		i, ok := idx[c]
		if !ok {
			i = len(lanes)
			idx[c] = i
			lanes = append(lanes, lane{conn: c})
		}
		lanes[i].devices = append(lanes[i].devices, d)
	}
	return lanes
}
