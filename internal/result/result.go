// internal/result/result.go
package result

import (
	"encoding/json"
	"strings"
)

// Status values carried in the "status" key of every command/patch reply.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Common in-band failure messages.
const (
	MsgUnknownKey    = "Unknown key"
	MsgUnknownMethod = "Unknown method"
	MsgTypeMismatch  = "Value type doesn't match"
)

// Object is a JSON-shaped reply. Keys are device or transport defined.
type Object map[string]any

// Success returns {status: success, message: msg}.
func Success(msg string) Object {
	return Object{"status": StatusSuccess, "message": msg}
}

// Fail returns {status: fail, message: msg}.
func Fail(msg string) Object {
	return Object{"status": StatusFail, "message": msg}
}

// Merge copies every key of src into a fresh object, later sources winning.
func Merge(src ...Object) Object {
	n := 0
	for _, s := range src {
		n += len(s)
	}
	out := make(Object, n)
	for _, s := range src {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// Failed reports whether o carries status "fail".
func (o Object) Failed() bool {
	s, _ := o["status"].(string)
	return s == StatusFail
}

// Status returns the "status" key, or "" when absent (raw passthrough payloads).
func (o Object) Status() string {
	s, _ := o["status"].(string)
	return s
}

// Body decodes a request body into a key set.
// An empty or whitespace-only body is an empty object.
func Body(raw []byte) (map[string]json.RawMessage, error) {
	if strings.TrimSpace(string(raw)) == "" {
		return map[string]json.RawMessage{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	return m, nil
}
