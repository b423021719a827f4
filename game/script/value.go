package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags a Value.
type ValueKind uint8

const (
	// Unknown is the result of reading a variable that was never set.
	// Conditions treat it as false; it is not an error.
	Unknown ValueKind = iota
	Bool
	Int
	String
)

var valueKindNames = [...]string{"unknown", "bool", "int", "string"}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// Value is the dynamically typed result of an expression and the content of
// a global variable.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	s    string
}

func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }
func IntValue(i int64) Value { return Value{kind: Int, i: i} }
func StringValue(s string) Value { return Value{kind: String, s: s} }

// UnknownValue is the unresolved reference marker.
func UnknownValue() Value { return Value{} }

func (v Value) Kind() ValueKind { return v.kind }

// AsBool returns the condition value of v. Unknown reads as false; any other
// non-bool kind is reported with ok == false.
func (v Value) AsBool() (b, ok bool) {
	switch v.kind {
	case Bool:
		return v.b, true
	case Unknown:
		return false, true
	}
	return false, false
}

// AsInt returns the integer of an Int value.
func (v Value) AsInt() (int64, bool) {
	if v.kind != Int {
		return 0, false
	}
	return v.i, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

func (v Value) String() string {
	switch v.kind {
	case Bool:
		return strconv.FormatBool(v.b)
	case Int:
		return strconv.FormatInt(v.i, 10)
	case String:
		return strconv.Quote(v.s)
	}
	return "unknown"
}

// FromAny converts a scalar decoded from YAML, JSON or a JS runtime.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return UnknownValue(), nil
	case bool:
		return BoolValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case int32:
		return IntValue(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Value{}, fmt.Errorf("script: integer %d out of range", t)
		}
		return IntValue(int64(t)), nil
	case float64:
		if t != float64(int64(t)) {
			return Value{}, fmt.Errorf("script: non-integer number %v", t)
		}
		return IntValue(int64(t)), nil
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return Value{}, fmt.Errorf("script: %w", err)
		}
		return IntValue(i), nil
	case string:
		return StringValue(t), nil
	case Value:
		return t, nil
	}
	return Value{}, fmt.Errorf("script: unsupported value type %T", x)
}

// Any returns v as a plain Go value; Unknown becomes nil.
func (v Value) Any() any {
	switch v.kind {
	case Bool:
		return v.b
	case Int:
		return v.i
	case String:
		return v.s
	}
	return nil
}

// MarshalJSON writes the plain JSON scalar; Unknown is null.
func (v Value) MarshalJSON() ([]byte, error) { return json.Marshal(v.Any()) }

func (v *Value) UnmarshalJSON(b []byte) error {
	var x any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&x); err != nil {
		return err
	}
	parsed, err := FromAny(x)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
