package bearer

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"unicode/utf8"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

var kindNames = [...]string{"null", "bool", "number", "string", "list", "map"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "<unknown bearer.Kind>"
}

// Value is an immutable, JSON-shaped payload value carried inside an Envelope.
// The zero Value is null.
//
// Accessors for a specific kind panic when called on a Value of another kind,
// the same contract slog.Value uses.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	list []Value
	m    map[string]Value
}

// NullValue returns the null Value.
func NullValue() Value { return Value{} }

// BoolValue returns a Value for a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue returns a Value for a float64.
// NaN and infinities are accepted here but rejected at serialization time.
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

// IntValue returns a number Value for an integer.
// Integers beyond 2^53 lose precision, as they do in any JSON number.
func IntValue(i int64) Value { return NumberValue(float64(i)) }

// StringValue returns a Value for a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// ListValue returns an ordered sequence Value. The items are copied.
func ListValue(items ...Value) Value {
	return Value{kind: KindList, list: slices.Clone(items)}
}

// MapValue returns a keyed mapping Value. The map is copied.
func MapValue(m map[string]Value) Value {
	return Value{kind: KindMap, m: maps.Clone(m)}
}

// ValueOf converts any JSON-marshalable Go value into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	}

	data, err := json.Marshal(x)
	if err != nil {
		return Value{}, errors.Join(ErrUnsupportedValue, err)
	}

	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, errors.Join(ErrUnsupportedValue, err)
	}
	return v, nil
}

// MustValueOf is like ValueOf but panics on error.
func MustValueOf(x any) Value {
	v, err := ValueOf(x)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Bool() bool {
	v.mustBe(KindBool)
	return v.b
}

func (v Value) Float64() float64 {
	v.mustBe(KindNumber)
	return v.num
}

// String returns the text of a string Value, or the canonical JSON
// encoding of any other kind.
func (v Value) String() string {
	if v.kind == KindString {
		return v.str
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("!ERROR:%v", err)
	}
	return string(data)
}

// Len returns the number of items of a list or entries of a map, and 0 for
// every other kind.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	}
	return 0
}

func (v Value) Index(i int) Value {
	v.mustBe(KindList)
	return v.list[i]
}

// List returns a copy of the items of a list Value.
func (v Value) List() []Value {
	v.mustBe(KindList)
	return slices.Clone(v.list)
}

// Lookup returns the entry stored under key in a map Value.
func (v Value) Lookup(key string) (Value, bool) {
	v.mustBe(KindMap)
	item, ok := v.m[key]
	return item, ok
}

// Map returns a copy of the entries of a map Value.
func (v Value) Map() map[string]Value {
	v.mustBe(KindMap)
	return maps.Clone(v.m)
}

// Keys returns the keys of a map Value in canonical (byte-wise) order.
func (v Value) Keys() []string {
	v.mustBe(KindMap)
	return slices.Sorted(maps.Keys(v.m))
}

// Equal reports whether v and w hold the same structure.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == w.b
	case KindNumber:
		return v.num == w.num
	case KindString:
		return v.str == w.str
	case KindList:
		return slices.EqualFunc(v.list, w.list, Value.Equal)
	case KindMap:
		return maps.EqualFunc(v.m, w.m, Value.Equal)
	}
	return false
}

// Decode converts the Value into dst, which must be a pointer accepted by
// json.Unmarshal.
func (v Value) Decode(dst any) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// MarshalJSON returns the canonical encoding: no insignificant whitespace,
// map keys in byte-wise order, numbers in shortest round-trip form and
// strings with minimal escaping.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.appendJSON(nil)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := valueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) mustBe(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("bearer: Value kind is %s, not %s", v.kind, k))
	}
}

func (v Value) appendJSON(dst []byte) ([]byte, error) {
	var err error
	switch v.kind {
	case KindNull:
		return append(dst, "null"...), nil
	case KindBool:
		return strconv.AppendBool(dst, v.b), nil
	case KindNumber:
		return appendNumber(dst, v.num)
	case KindString:
		return appendString(dst, v.str), nil
	case KindList:
		dst = append(dst, '[')
		for i, item := range v.list {
			if i > 0 {
				dst = append(dst, ',')
			}
			if dst, err = item.appendJSON(dst); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case KindMap:
		dst = append(dst, '{')
		for i, key := range slices.Sorted(maps.Keys(v.m)) {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendString(dst, key)
			dst = append(dst, ':')
			if dst, err = v.m[key].appendJSON(dst); err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	}
	return nil, fmt.Errorf("%w: kind %s", ErrUnsupportedValue, v.kind)
}

func appendNumber(dst []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedValue, f)
	}
	if f == 0 {
		f = 0 // -0 serializes as 0
	}

	// encoding/json formats float64 with the ES6 number-to-string rules.
	data, err := json.Marshal(f)
	if err != nil {
		return nil, errors.Join(ErrUnsupportedValue, err)
	}
	return append(dst, data...), nil
}

const hexDigits = "0123456789abcdef"

// appendString quotes s with the minimal JSON escaping: quote, backslash and
// control characters only. encoding/json also escapes U+2028, U+2029 and,
// by default, <, > and &, which would change the signed bytes.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"', '\\':
				dst = append(dst, '\\', c)
			case '\b':
				dst = append(dst, '\\', 'b')
			case '\f':
				dst = append(dst, '\\', 'f')
			case '\n':
				dst = append(dst, '\\', 'n')
			case '\r':
				dst = append(dst, '\\', 'r')
			case '\t':
				dst = append(dst, '\\', 't')
			default:
				if c < 0x20 {
					dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
				} else {
					dst = append(dst, c)
				}
			}
			i++
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			dst = append(dst, "\ufffd"...)
		} else {
			dst = append(dst, s[i:i+size]...)
		}
		i += size
	}
	return append(dst, '"')
}

func valueFromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case float64:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := valueFromAny(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for key, item := range t {
			v, err := valueFromAny(item)
			if err != nil {
				return Value{}, err
			}
			m[key] = v
		}
		return Value{kind: KindMap, m: m}, nil
	}
	return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, x)
}
