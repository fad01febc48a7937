package bearer

import (
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/bearerkit/pkg/logger"
)

// Separator joins the data and signature segments of a signed token.
const Separator = "."

// Algorithm is the fixed signature scheme: RSASSA-PKCS1-v1_5 with SHA-256.
// It is not negotiated and not carried in the token.
var Algorithm = jwt.SigningMethodRS256

var errNoPrivateKey = errors.New("signer holds no private key")

// Signer issues and verifies signed tokens of the form
//
//	hex(serialized envelope) + "." + hex(signature)
//
// A Signer holds its keys read-only and is safe for concurrent use.
type Signer struct {
	publicKey  *rsa.PublicKey
	privateKey *rsa.PrivateKey
	logger     *slog.Logger
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithLogger sets the logger used to report rejected tokens at debug level.
// Nil loggers are ignored.
func WithLogger(l *slog.Logger) SignerOption {
	return func(s *Signer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSigner parses PEM encoded RSA keys and returns a Signer.
//
// The private key may be PKCS#1 or PKCS#8; the public key may be PKIX,
// PKCS#1 or a certificate. Passing no private key yields a verify-only
// Signer; passing no public key derives it from the private key.
func NewSigner(publicKeyPEM, privateKeyPEM []byte, opts ...SignerOption) (*Signer, error) {
	var (
		publicKey  *rsa.PublicKey
		privateKey *rsa.PrivateKey
		err        error
	)

	if len(privateKeyPEM) > 0 {
		if privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM); err != nil {
			return nil, errors.Join(ErrInvalidKey, err)
		}
	}
	if len(publicKeyPEM) > 0 {
		if publicKey, err = jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM); err != nil {
			return nil, errors.Join(ErrInvalidKey, err)
		}
	}

	return NewSignerFromKeys(publicKey, privateKey, opts...)
}

// NewSignerFromKeys returns a Signer for already parsed keys.
// When both keys are given they must belong to the same key pair.
func NewSignerFromKeys(publicKey *rsa.PublicKey, privateKey *rsa.PrivateKey, opts ...SignerOption) (*Signer, error) {
	if publicKey == nil && privateKey == nil {
		return nil, fmt.Errorf("%w: no key provided", ErrInvalidKey)
	}
	if publicKey == nil {
		publicKey = &privateKey.PublicKey
	}
	if privateKey != nil && !publicKey.Equal(&privateKey.PublicKey) {
		return nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidKey)
	}

	s := &Signer{
		publicKey:  publicKey,
		privateKey: privateKey,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("bearer"))

	return s, nil
}

// CanSign reports whether the Signer holds a private key.
func (s *Signer) CanSign() bool { return s.privateKey != nil }

// PublicKey returns the verification key.
func (s *Signer) PublicKey() *rsa.PublicKey { return s.publicKey }

// Sign serializes the envelope, signs the raw serialized bytes and returns
// the signed token.
func (s *Signer) Sign(e Envelope) (string, error) {
	if s.privateKey == nil {
		return "", errors.Join(ErrSigningFailure, errNoPrivateKey)
	}

	data, err := e.MarshalBinary()
	if err != nil {
		return "", errors.Join(ErrSigningFailure, err)
	}

	signature, err := Algorithm.Sign(string(data), s.privateKey)
	if err != nil {
		return "", errors.Join(ErrSigningFailure, err)
	}

	return hex.EncodeToString(data) + Separator + hex.EncodeToString(signature), nil
}

// Verify checks the token signature and returns the envelope it carries.
// The data segment is only parsed after its signature has been verified.
//
// Hex digits are case-insensitive, so the signature covers the decoded bytes
// rather than the token text: changing the case of a digit yields a different
// string that still verifies. Compare decoded envelopes, not raw tokens, when
// detecting reuse.
func (s *Signer) Verify(token string) (Envelope, error) {
	e, err := s.verify(token)
	if err != nil {
		s.logger.Debug("bearer token rejected", logger.Error(err))
		return Envelope{}, err
	}
	return e, nil
}

func (s *Signer) verify(token string) (Envelope, error) {
	dataSegment, signatureSegment, ok := strings.Cut(token, Separator)
	if !ok || strings.Contains(signatureSegment, Separator) {
		return Envelope{}, fmt.Errorf("%w: expected exactly one %q separator", ErrMalformedToken, Separator)
	}
	if dataSegment == "" || signatureSegment == "" {
		return Envelope{}, fmt.Errorf("%w: empty segment", ErrMalformedToken)
	}

	data, err := hex.DecodeString(dataSegment)
	if err != nil {
		return Envelope{}, errors.Join(ErrMalformedToken, err)
	}
	signature, err := hex.DecodeString(signatureSegment)
	if err != nil {
		return Envelope{}, errors.Join(ErrMalformedToken, err)
	}

	if err := Algorithm.Verify(string(data), signature, s.publicKey); err != nil {
		return Envelope{}, errors.Join(ErrInvalidSignature, err)
	}

	return UnmarshalEnvelope(data)
}
