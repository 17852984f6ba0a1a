package properties

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/solatis/browscap/internal/types"
)

// Record is the fixed-schema property set of one rule. Unset slots are
// distinct from slots holding an empty value.
type Record struct {
	values [numNames]Value
	set    [numNames]bool
}

// Set stores v for n.
func (r *Record) Set(n Name, v Value) {
	r.values[n] = v
	r.set[n] = true
}

// SetRaw resolves property, coerces raw and stores the result.
func (r *Record) SetRaw(property string, raw any) error {
	n, err := Lookup(property)
	if err != nil {
		return err
	}
	r.Set(n, n.Coerce(raw))
	return nil
}

// Unset clears n.
func (r *Record) Unset(n Name) {
	r.values[n] = Value{}
	r.set[n] = false
}

// Get returns the value of n and whether it is set.
func (r *Record) Get(n Name) (Value, bool) {
	return r.values[n], r.set[n]
}

// String returns the textual value of n, "" when unset.
func (r *Record) String(n Name) string {
	return r.values[n].String()
}

// Has reports whether n is set.
func (r *Record) Has(n Name) bool {
	return r.set[n]
}

// Len returns the number of set properties.
func (r *Record) Len() int {
	count := 0
	for _, ok := range r.set {
		if ok {
			count++
		}
	}
	return count
}

// Merge fills every slot unset in r from parent. Set slots in r win.
func (r *Record) Merge(parent *Record) {
	for i := range r.set {
		if !r.set[i] && parent.set[i] {
			r.values[i] = parent.values[i]
			r.set[i] = true
		}
	}
}

// Each calls fn for every set property in schema order until fn returns false.
func (r *Record) Each(fn func(Name, Value) bool) {
	for i := range r.set {
		if r.set[i] && !fn(Name(i), r.values[i]) {
			return
		}
	}
}

// MarshalJSON encodes set properties in schema order. Booleans become JSON
// booleans, everything else JSON strings. Text that is not valid UTF-8
// fails with ErrEncoding instead of being silently replaced.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i := range r.set {
		if !r.set[i] {
			continue
		}
		v := r.values[i]
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, _ := json.Marshal(names[i])
		buf.Write(key)
		buf.WriteByte(':')

		if v.isBool {
			buf.WriteString(fmt.Sprint(v.b))
			continue
		}
		if !utf8.ValidString(v.s) {
			return nil, fmt.Errorf("%w: %s is not valid UTF-8", types.ErrEncoding, names[i])
		}
		val, err := json.Marshal(v.s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrEncoding, names[i], err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a record written by MarshalJSON. Unknown keys fail
// with ErrUnknownProperty.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record{}
	for key, val := range raw {
		n, err := Lookup(key)
		if err != nil {
			return err
		}
		switch v := val.(type) {
		case bool, string:
			r.Set(n, n.Coerce(v))
		default:
			return fmt.Errorf("property %s: unexpected JSON type %T", key, val)
		}
	}
	return nil
}

// Map renders the record as a plain map keyed by wire name.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	r.Each(func(n Name, v Value) bool {
		out[n.String()] = v.Interface()
		return true
	})
	return out
}
