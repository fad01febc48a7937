package bearer

import "errors"

var (
	// Token structure errors
	ErrMalformedToken   = errors.New("bearer: malformed token")
	ErrInvalidSignature = errors.New("bearer: invalid signature")

	// Envelope errors
	ErrMalformedEnvelope = errors.New("bearer: malformed envelope")
	ErrUnsupportedValue  = errors.New("bearer: unsupported payload value")

	// Key and signing errors
	ErrInvalidKey     = errors.New("bearer: invalid key")
	ErrSigningFailure = errors.New("bearer: signing failed")
)
