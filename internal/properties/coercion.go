// internal/properties/coercion.go
package properties

import (
	"fmt"
	"slices"
	"strconv"
)

/*
 * Value normalization.
 *
 * Boolean: true, "true" and "1" become true; anything else becomes false.
 * InArray: a value outside the allowed set becomes "" without error.
 * String, Number, Generic: passed through unchanged. Numbers stay strings
 *   ("1.0" and "1" are different versions).
 *
 * Unknown property names are the only failure.
 */

// Value is a normalized property value: a bool for KindBoolean, a string for
// every other kind.
type Value struct {
	s      string
	b      bool
	isBool bool
}

// StringValue wraps a textual value.
func StringValue(s string) Value { return Value{s: s} }

// BoolValue wraps a boolean value.
func BoolValue(b bool) Value { return Value{b: b, isBool: true} }

// IsBool reports whether v holds a boolean.
func (v Value) IsBool() bool { return v.isBool }

// Bool returns the boolean held by v, false for string values.
func (v Value) Bool() bool { return v.b }

// String returns the textual form. Booleans render as "true"/"false".
func (v Value) String() string {
	if v.isBool {
		return strconv.FormatBool(v.b)
	}
	return v.s
}

// Interface returns v as a bool or string.
func (v Value) Interface() any {
	if v.isBool {
		return v.b
	}
	return v.s
}

// Coerce normalizes value for the named property.
// value is normally a string read from a definitions block; bool is accepted
// for values that are already typed.
func Coerce(value any, property string) (Value, error) {
	n, err := Lookup(property)
	if err != nil {
		return Value{}, err
	}
	return n.Coerce(value), nil
}

// Coerce normalizes value for a known property. It cannot fail.
func (n Name) Coerce(value any) Value {
	switch n.Kind() {
	case KindBoolean:
		return BoolValue(coerceBoolean(value))
	case KindInArray:
		s := toText(value)
		if !slices.Contains(allowed[n], s) {
			return StringValue("")
		}
		return StringValue(s)
	default:
		return StringValue(toText(value))
	}
}

func coerceBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	case Value:
		if v.isBool {
			return v.b
		}
		return v.s == "true" || v.s == "1"
	default:
		return false
	}
}

// toText renders non-string input the way an INI reader would have seen it.
func toText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return ""
	case Value:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
