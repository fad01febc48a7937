package xoauth2

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Mechanism is the SASL mechanism name.
	Mechanism = "XOAUTH2"

	UserKey    = "user"
	AuthKey    = "auth"
	AuthScheme = "Bearer"

	// FieldSeparator is the ^A control character between fields.
	FieldSeparator = "\x01"
	// Terminator closes the field list.
	Terminator = FieldSeparator + FieldSeparator

	keyValueSeparator = "="
	authSeparator     = " "
)

// Encoding is the base64 alphabet used for encoded tokens.
var Encoding = base64.StdEncoding

// Token is a user name paired with the bearer credential presented for it.
// The bearer is opaque to this package.
type Token struct {
	User   string
	Bearer string
}

func New(user, bearer string) Token {
	return Token{User: user, Bearer: bearer}
}

// Encode returns the base64 XOAUTH2 encoding of user and bearer.
func Encode(user, bearer string) string {
	return New(user, bearer).Encode()
}

// Fields returns the fields in wire order: user first, then auth.
func (t Token) Fields() []Field {
	return []Field{
		{Key: UserKey, Value: t.User},
		{Key: AuthKey, Value: AuthScheme + authSeparator + t.Bearer},
	}
}

// InitialResponse returns the raw client initial response,
// "user=<user>^Aauth=Bearer <bearer>^A^A", before base64 encoding.
func (t Token) InitialResponse() []byte {
	return []byte(EncodeFields(t.Fields()...))
}

// Encode returns the base64 encoded initial response.
func (t Token) Encode() string {
	return Encoding.EncodeToString(t.InitialResponse())
}

// Validate reports whether the token survives an encode/decode round trip.
// Encode does not call it; callers building tokens from untrusted input should.
func (t Token) Validate() error {
	switch {
	case t.User == "":
		return fmt.Errorf("%w: empty user", ErrInvalidField)
	case t.Bearer == "":
		return fmt.Errorf("%w: empty bearer", ErrInvalidField)
	case strings.Contains(t.User, FieldSeparator), strings.Contains(t.Bearer, FieldSeparator):
		return fmt.Errorf("%w: contains ^A", ErrInvalidField)
	case strings.TrimSpace(t.User) != t.User:
		return fmt.Errorf("%w: user has surrounding whitespace", ErrInvalidField)
	case strings.ContainsFunc(t.Bearer, unicode.IsSpace):
		return fmt.Errorf("%w: bearer contains whitespace", ErrInvalidField)
	}
	return nil
}

// Decode parses a base64 encoded XOAUTH2 initial response.
func Decode(encoded string) (Token, error) {
	raw, err := Encoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return Token{}, errors.Join(ErrMalformedToken, err)
	}
	return DecodeRaw(raw)
}

// DecodeRaw parses an initial response whose base64 layer has already been
// removed, as IMAP and SMTP servers usually do before handing it over.
func DecodeRaw(raw []byte) (Token, error) {
	if !utf8.Valid(raw) {
		return Token{}, fmt.Errorf("%w: not valid UTF-8", ErrMalformedToken)
	}

	fields, err := DecodeFields(string(raw))
	if err != nil {
		return Token{}, err
	}

	user := fields[UserKey]
	if user == "" {
		return Token{}, fmt.Errorf("%w: %s", ErrMissingField, UserKey)
	}
	auth := fields[AuthKey]
	if auth == "" {
		return Token{}, fmt.Errorf("%w: %s", ErrMissingField, AuthKey)
	}

	bearer, err := parseAuth(auth)
	if err != nil {
		return Token{}, err
	}

	return Token{User: user, Bearer: bearer}, nil
}

// parseAuth extracts the credential from "Bearer <credential>".
// The scheme is matched case-insensitively.
func parseAuth(auth string) (string, error) {
	parts := strings.Split(auth, authSeparator)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("%w: expected %q followed by one credential", ErrMalformedAuthValue, AuthScheme)
	}
	if !strings.EqualFold(parts[0], AuthScheme) {
		return "", fmt.Errorf("%w: scheme is not %q", ErrMalformedAuthValue, AuthScheme)
	}
	return parts[1], nil
}
