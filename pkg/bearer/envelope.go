package bearer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Wire keys of the canonical envelope object.
const (
	PayloadKey   = "u"
	CreatedAtKey = "d"
)

// Envelope wraps an application payload with its creation time.
// It is the message that gets signed. Envelopes are immutable.
type Envelope struct {
	payload   Value
	createdAt int64 // unix milliseconds
}

// EnvelopeOption configures NewEnvelope.
type EnvelopeOption func(*Envelope)

// WithCreatedAt overrides the creation time, which defaults to time.Now().
// The time is truncated to millisecond precision.
func WithCreatedAt(t time.Time) EnvelopeOption {
	return func(e *Envelope) {
		e.createdAt = t.UnixMilli()
	}
}

// NewEnvelope wraps payload in an envelope stamped with the current time.
func NewEnvelope(payload Value, opts ...EnvelopeOption) Envelope {
	e := Envelope{
		payload:   payload,
		createdAt: time.Now().UnixMilli(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e Envelope) Payload() Value { return e.payload }

// CreatedAt returns the creation time in UTC.
func (e Envelope) CreatedAt() time.Time { return time.UnixMilli(e.createdAt).UTC() }

// Equal reports whether both envelopes carry the same payload and timestamp.
func (e Envelope) Equal(o Envelope) bool {
	return e.createdAt == o.createdAt && e.payload.Equal(o.payload)
}

// MarshalBinary returns the canonical serialization of the envelope:
//
//	{"u":<payload>,"d":<unix-millis>}
//
// These bytes are exactly what Signer signs.
func (e Envelope) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, `{"`+PayloadKey+`":`...)

	buf, err := e.payload.appendJSON(buf)
	if err != nil {
		return nil, err
	}

	buf = append(buf, `,"`+CreatedAtKey+`":`...)
	buf = strconv.AppendInt(buf, e.createdAt, 10)
	return append(buf, '}'), nil
}

// UnmarshalEnvelope parses the canonical serialization produced by
// MarshalBinary. The object must hold the "u" and "d" keys exactly once each
// and "d" must be an integer. Keys inside the payload follow encoding/json:
// the last duplicate wins.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return Envelope{}, errors.Join(ErrMalformedEnvelope, err)
	}
	if len(fields) != 2 {
		return Envelope{}, fmt.Errorf("%w: expected 2 fields, got %d", ErrMalformedEnvelope, len(fields))
	}

	rawPayload, ok := fields[PayloadKey]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing %q", ErrMalformedEnvelope, PayloadKey)
	}
	rawCreatedAt, ok := fields[CreatedAtKey]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: missing %q", ErrMalformedEnvelope, CreatedAtKey)
	}

	createdAt, err := strconv.ParseInt(string(rawCreatedAt), 10, 64)
	if err != nil {
		return Envelope{}, errors.Join(ErrMalformedEnvelope, err)
	}

	var payload Value
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		return Envelope{}, errors.Join(ErrMalformedEnvelope, err)
	}

	return Envelope{payload: payload, createdAt: createdAt}, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	parsed, err := UnmarshalEnvelope(data)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// decodeObject splits a single JSON object into its raw members, rejecting
// repeated keys and anything after the closing brace.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("not a JSON object")
	}

	fields := make(map[string]json.RawMessage, 2)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		if _, dup := fields[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		fields[key] = raw
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after object")
	}
	return fields, nil
}
