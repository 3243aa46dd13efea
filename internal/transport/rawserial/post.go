// internal/transport/rawserial/post.go
package rawserial

import (
	"encoding/json"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

const defaultReceiveTimeout = time.Second

type postBody struct {
	Port    string `json:"port"`
	Speed   int    `json:"speed"`
	Text    string `json:"text"`
	Buffer  []int  `json:"buffer"`
	Timeout *int   `json:"timeout"` // ms
}

func (b postBody) timeout() time.Duration {
	if b.Timeout == nil {
		return defaultReceiveTimeout
	}
	return time.Duration(*b.Timeout) * time.Millisecond
}

func (b postBody) bytes() ([]byte, bool) {
	if b.Buffer == nil {
		return []byte(b.Text), true
	}
	out := make([]byte, len(b.Buffer))
	for i, n := range b.Buffer {
		if n < 0 || n > 0xFF {
			return nil, false
		}
		out[i] = byte(n)
	}
	return out, true
}

func fail(err error) result.Object {
	return result.Fail(transport.CodeOf(err).String() + ": " + err.Error())
}

// Post implements the native passthrough of a raw serial line.
func (p *Port) Post(method string, body []byte) result.Object {
	var b postBody
	if len(body) > 0 {
		if err := json.Unmarshal(body, &b); err != nil {
			return result.Fail(result.MsgTypeMismatch)
		}
	}

	switch method {
	case "disconnect":
		if err := p.disconnect(); err != nil {
			return fail(err)
		}
		return result.Success("disconnected")

	case "reconnect":
		if err := p.Reconnect(b.Port, b.Speed); err != nil {
			return fail(err)
		}
		return result.Success("connected")

	case "send":
		buf, ok := b.bytes()
		if !ok {
			return result.Fail(result.MsgTypeMismatch)
		}
		n, err := p.Send(buf)
		if err != nil {
			return fail(err)
		}
		return result.Object{"res": n}

	case "receive_text", "receive_bytes":
		f, err := p.Receive(nil, b.timeout())
		if err != nil {
			return fail(err)
		}
		if method == "receive_text" {
			return result.Object{"message": string(f)}
		}
		out := make([]int, len(f))
		for i, c := range f {
			out[i] = int(c)
		}
		return result.Object{"message": out}

	default:
		return result.Fail(result.MsgUnknownMethod)
	}
}
