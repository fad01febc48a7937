package xoauth2

import (
	"fmt"
	"strings"
)

// Field is a single key=value pair of an XOAUTH2 initial response.
type Field struct {
	Key   string
	Value string
}

// EncodeFields joins the fields with ^A and appends the ^A^A terminator.
// Field order is preserved.
func EncodeFields(fields ...Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteString(FieldSeparator)
		}
		b.WriteString(f.Key)
		b.WriteString(keyValueSeparator)
		b.WriteString(f.Value)
	}
	b.WriteString(Terminator)
	return b.String()
}

// DecodeFields parses the un-encoded text of an initial response into a
// key/value map.
//
// The text must end with exactly two ^A bytes. Each segment is trimmed of
// surrounding whitespace and split on its first '='; blank segments are
// skipped. When a key repeats, the last value wins.
func DecodeFields(raw string) (map[string]string, error) {
	body, ok := strings.CutSuffix(raw, Terminator)
	if !ok || strings.HasSuffix(body, FieldSeparator) {
		return nil, fmt.Errorf("%w: not terminated by exactly two ^A", ErrMalformedToken)
	}

	fields := make(map[string]string, 2)
	i := 0
	for segment := range strings.SplitSeq(body, FieldSeparator) {
		i++
		// Producers are not supposed to add whitespace; tolerate it anyway.
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, ok := strings.Cut(segment, keyValueSeparator)
		if !ok || key == "" {
			// The segment itself is not echoed, it may hold a credential.
			return nil, fmt.Errorf("%w: segment %d is not a key=value pair", ErrMalformedToken, i)
		}
		fields[key] = value
	}

	return fields, nil
}
