// internal/state/value.go
package state

import (
	"encoding/json"
	"math"
	"strconv"
)

type kind uint8

const (
	kindUnavailable kind = iota
	kindNumber
	kindFlag
)

// Value is one decoded field: a number, a flag, or the unavailable sentinel.
// The zero Value is unavailable.
type Value struct {
	kind   kind
	num    float64
	flag   bool
	digits int
}

// Number wraps v. NaN and infinities become unavailable.
func Number(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unavailable()
	}
	return Value{kind: kindNumber, num: v, digits: -1}
}

// Rounded wraps v and rounds it to digits decimals when rendered.
// The stored value stays exact.
func Rounded(v float64, digits int) Value {
	out := Number(v)
	if out.kind == kindNumber {
		out.digits = digits
	}
	return out
}

func Flag(b bool) Value {
	return Value{kind: kindFlag, flag: b}
}

// Unavailable is the "no valid reading" sentinel.
func Unavailable() Value {
	return Value{}
}

func (v Value) Available() bool { return v.kind != kindUnavailable }

// Float returns the exact number and whether v holds one.
// Unavailable numbers report NaN.
func (v Value) Float() (float64, bool) {
	if v.kind != kindNumber {
		return math.NaN(), false
	}
	return v.num, true
}

func (v Value) Bool() (bool, bool) {
	if v.kind != kindFlag {
		return false, false
	}
	return v.flag, true
}

// Interface returns nil, bool or float64 (rounded for display).
func (v Value) Interface() any {
	switch v.kind {
	case kindNumber:
		return v.display()
	case kindFlag:
		return v.flag
	default:
		return nil
	}
}

func (v Value) display() float64 {
	if v.digits < 0 {
		return v.num
	}
	p := math.Pow10(v.digits)
	return math.Round(v.num*p) / p
}

func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.display(), 'f', v.digits, 64)
	case kindFlag:
		return strconv.FormatBool(v.flag)
	default:
		return "null"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Values is a set of decoded fields keyed by name.
type Values map[string]Value
