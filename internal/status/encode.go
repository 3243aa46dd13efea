// internal/status/encode.go
package status

// Encode renders group health records for JSON.
// No IO. No side effects.
func Encode(groups map[string]Snapshot) map[string]any {
	out := make(map[string]any, len(groups))
	for name, s := range groups {
		out[name] = map[string]any{
			"health":    HealthName(s.Health),
			"lastError": s.LastErrorCode.String(),
		}
	}
	return out
}
