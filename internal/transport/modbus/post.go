// internal/transport/modbus/post.go
package modbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tamzrod/fieldbus-bridge/internal/result"
	"github.com/tamzrod/fieldbus-bridge/internal/transport"
)

type reconnectBody struct {
	Port    string `json:"port"`
	Speed   int    `json:"speed"`
	Timeout int    `json:"timeout"` // ms
}

type registerBody struct {
	Unit    *uint8  `json:"unit"`
	Address uint16  `json:"address"`
	Count   uint16  `json:"count"`
	Value   *uint16 `json:"value"`
}

func (b registerBody) unit() uint8 {
	if b.Unit == nil {
		return 1
	}
	return *b.Unit
}

type requestBody struct {
	Buffer []byte `json:"buffer"`
}

// rawBytes marshals as a JSON array of numbers instead of base64.
type rawBytes []byte

func (r rawBytes) MarshalJSON() ([]byte, error) {
	out := make([]int, len(r))
	for i, b := range r {
		out[i] = int(b)
	}
	return json.Marshal(out)
}

func decode(body []byte, v any) bool {
	if len(body) == 0 {
		return true
	}
	return json.Unmarshal(body, v) == nil
}

func fail(err error) result.Object {
	return result.Fail(transport.CodeOf(err).String() + ": " + err.Error())
}

// Post implements the native passthrough of a Modbus bus.
func (c *Client) Post(method string, body []byte) result.Object {
	switch method {
	case "disconnect":
		if err := c.disconnect(); err != nil {
			return fail(err)
		}
		return result.Success("disconnected")

	case "reconnect":
		var b reconnectBody
		if !decode(body, &b) {
			return result.Fail(result.MsgTypeMismatch)
		}
		if err := c.reconnect(b.Port, b.Speed, time.Duration(b.Timeout)*time.Millisecond); err != nil {
			return fail(err)
		}
		return result.Success("connected")

	case "request":
		var b requestBody
		if !decodeBuffer(body, &b) || len(b.Buffer) < 2 {
			return result.Fail(result.MsgTypeMismatch)
		}
		var res []byte
		err := c.paced(func() (err error) {
			res, err = c.Request(b.Buffer)
			return err
		})
		if err != nil {
			return fail(err)
		}
		return result.Object{"res": rawBytes(res)}

	case "read_holding_registers", "read_input_registers":
		var b registerBody
		if !decode(body, &b) || b.Count == 0 {
			return result.Fail(result.MsgTypeMismatch)
		}
		read := c.ReadHoldingRegisters
		if method == "read_input_registers" {
			read = c.ReadInputRegisters
		}
		var regs []uint16
		err := c.paced(func() (err error) {
			regs, err = read(b.unit(), b.Address, b.Count)
			return err
		})
		if err != nil {
			return fail(err)
		}
		return result.Object{"res": regs}

	case "write_single_register":
		var b registerBody
		if !decode(body, &b) || b.Value == nil {
			return result.Fail(result.MsgTypeMismatch)
		}
		err := c.paced(func() error {
			return c.WriteSingleRegister(b.unit(), b.Address, *b.Value)
		})
		if err != nil {
			return fail(err)
		}
		return result.Success("register written")

	default:
		return result.Fail(result.MsgUnknownMethod)
	}
}

// paced runs a passthrough bus call behind the device traffic's turnaround.
func (c *Client) paced(fn func() error) error {
	return c.pacer.Do(context.Background(), 0, nil, fn)
}

// decodeBuffer reads {"buffer": [n, ...]} where every n is a byte.
func decodeBuffer(body []byte, b *requestBody) bool {
	var raw struct {
		Buffer []int `json:"buffer"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return false
	}
	b.Buffer = make([]byte, len(raw.Buffer))
	for i, n := range raw.Buffer {
		if n < 0 || n > 0xFF {
			return false
		}
		b.Buffer[i] = byte(n)
	}
	return true
}
