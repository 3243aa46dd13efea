// internal/status/constants.go
package status

// Read-group health codes.
// A group is OK after a successful read and Error after a failed one;
// Unknown until its first read. Nothing is sticky across cycles.

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state, before the first read.
const HealthUnknown uint16 = 0

// HealthOK represents a group whose last read succeeded.
const HealthOK uint16 = 1

// HealthError represents a group whose last read failed.
const HealthError uint16 = 2

// HealthName renders a health code for JSON and logs.
func HealthName(h uint16) string {
	switch h {
	case HealthOK:
		return "OK"
	case HealthError:
		return "FAULT"
	default:
		return "UNKNOWN"
	}
}
