package card

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind tags the type held by a Value.
type Kind int

const (
	Undefined Kind = iota
	Integer
	Float
	String
	Logical
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Logical:
		return "logical"
	default:
		return "undefined"
	}
}

// Value is a header value.
//
// Text renders numbers the way the header engine reports them: shortest
// round-trip digits, a ".0" suffix on integral floats and a lower-case
// exponent below 1e-4 or from 1e16 up. Cards written by FITS writers often
// differ from that (trailing zeros, "1400.", upper-case "E"); those
// differences are what the Format fallbacks absorb.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	text string
}

// IntValue returns an integer value.
func IntValue(v int64) Value { return Value{kind: Integer, i: v} }

// FloatValue returns a floating-point value.
func FloatValue(v float64) Value { return Value{kind: Float, f: v} }

// StringValue returns a character value. Trailing blanks are not significant.
func StringValue(s string) Value { return Value{kind: String, s: strings.TrimRight(s, " ")} }

// LogicalValue returns a logical value.
func LogicalValue(b bool) Value { return Value{kind: Logical, b: b} }

// WithText returns a copy of v that renders as text.
func (v Value) WithText(text string) Value {
	v.text = text
	return v
}

// ValueOf converts a Go value to a Value.
func ValueOf(x interface{}) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case int:
		return IntValue(int64(t)), nil
	case int8:
		return IntValue(int64(t)), nil
	case int16:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case uint8:
		return IntValue(int64(t)), nil
	case uint16:
		return IntValue(int64(t)), nil
	case uint32:
		return IntValue(int64(t)), nil
	case uint:
		return IntValue(int64(t)), nil
	case float32:
		return FloatValue(float64(t)), nil
	case float64:
		return FloatValue(t), nil
	case string:
		return StringValue(t), nil
	case bool:
		return LogicalValue(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported header value type %T", x)
	}
}

// MustValue is ValueOf for callers passing literal values.
func MustValue(x interface{}) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }

// IsNumeric reports whether v holds an integer or a float.
func (v Value) IsNumeric() bool { return v.kind == Integer || v.kind == Float }

// Int returns v as an integer. Floats are truncated.
func (v Value) Int() int64 {
	switch v.kind {
	case Integer:
		return v.i
	case Float:
		return int64(v.f)
	}
	return 0
}

// Float returns v as a float.
func (v Value) Float() float64 {
	switch v.kind {
	case Integer:
		return float64(v.i)
	case Float:
		return v.f
	}
	return 0
}

// Str returns the character value.
func (v Value) Str() string { return v.s }

// Bool returns the logical value.
func (v Value) Bool() bool { return v.b }

// Interface returns the held value as a Go value, or nil when undefined.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Integer:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	case Logical:
		return v.b
	}
	return nil
}

// Text returns the textual rendering of v.
func (v Value) Text() string {
	if v.text != "" {
		return v.text
	}
	switch v.kind {
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return formatFloat(v.f)
	case String:
		return v.s
	case Logical:
		if v.b {
			return "T"
		}
		return "F"
	}
	return ""
}

// Equal reports whether v and o hold the same value. Integers and floats
// compare numerically.
func (v Value) Equal(o Value) bool {
	if v.IsNumeric() && o.IsNumeric() {
		if v.kind == Integer && o.kind == Integer {
			return v.i == o.i
		}
		return v.Float() == o.Float()
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case String:
		return v.s == o.s
	case Logical:
		return v.b == o.b
	case Undefined:
		return v.text == o.text
	}
	return false
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(sci, "e")
	e, _ := strconv.Atoi(exp)
	if e < -4 || e >= 16 {
		sign := "+"
		if e < 0 {
			sign = "-"
			e = -e
		}
		return fmt.Sprintf("%se%s%02d", mant, sign, e)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
