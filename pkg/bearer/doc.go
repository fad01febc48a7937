// Package bearer issues and verifies signed, opaque bearer tokens that carry an
// application payload plus a creation timestamp.
//
// A token is built from an Envelope. The envelope is serialized to a canonical
// JSON object, the raw bytes are signed with RSA (RSASSA-PKCS1-v1_5, SHA-256)
// and both parts are hex encoded:
//
//	hex({"u":<payload>,"d":<unix-millis>}) + "." + hex(signature)
//
// The algorithm is fixed. Tokens carry no header and nothing is negotiated.
//
// # Payloads
//
// Payloads are Values: a tagged variant of null, bool, number, string, list
// and map. Maps serialize with their keys in byte-wise order, so the same
// payload always produces the same bytes and therefore the same signature.
// Use ValueOf to convert ordinary Go values and Value.Decode to convert back.
//
// # Usage
//
//	import "github.com/dmitrymomot/bearerkit/pkg/bearer"
//
//	signer, err := bearer.NewSigner(publicPEM, privatePEM)
//	if err != nil {
//	    // handle error
//	}
//
//	payload := bearer.MustValueOf(map[string]any{"test": 123})
//	token, err := signer.Sign(bearer.NewEnvelope(payload))
//	if err != nil {
//	    // handle error
//	}
//
//	envelope, err := signer.Verify(token)
//	if err != nil {
//	    // reject the credential
//	}
//	_ = envelope.CreatedAt()
//
// # Error Handling
//
// Errors wrap one of the package sentinels and should be matched with
// errors.Is: ErrMalformedToken, ErrInvalidSignature, ErrMalformedEnvelope,
// ErrSigningFailure and ErrInvalidKey. Any verification error means the
// credential must be rejected.
//
// # Concurrency
//
// A Signer never mutates its state after construction and can be shared
// between goroutines.
package bearer
