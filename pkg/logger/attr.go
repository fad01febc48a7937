package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// User records the authenticating user name under the key "user".
func User(name string) slog.Attr {
	return slog.String("user", name)
}

// Fingerprint records a short SHA-256 prefix of a credential under the key
// "token_fp", so tokens can be correlated in logs without being written out.
// An empty token yields an empty Attr.
func Fingerprint(token string) slog.Attr {
	if token == "" {
		return slog.Attr{}
	}
	sum := sha256.Sum256([]byte(token))
	return slog.String("token_fp", hex.EncodeToString(sum[:6]))
}

// KeySource records where key material was loaded from under the key "key_source".
func KeySource(name string) slog.Attr {
	return slog.String("key_source", name)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
