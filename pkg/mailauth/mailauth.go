package mailauth

import (
	"errors"
	"log/slog"

	"github.com/dmitrymomot/bearerkit/pkg/bearer"
	"github.com/dmitrymomot/bearerkit/pkg/logger"
	"github.com/dmitrymomot/bearerkit/pkg/xoauth2"
)

// Identity is the outcome of a successful XOAUTH2 login.
type Identity struct {
	User     string
	Envelope bearer.Envelope
}

// Authenticator issues XOAUTH2 initial responses carrying signed bearer
// tokens and authenticates them again. It is safe for concurrent use.
type Authenticator struct {
	signer *bearer.Signer
	logger *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger used for issue and rejection events.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Authenticator around signer.
func New(signer *bearer.Signer, opts ...Option) (*Authenticator, error) {
	if signer == nil {
		return nil, ErrNilSigner
	}
	a := &Authenticator{
		signer: signer,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.Component("mailauth"))
	return a, nil
}

// Issue signs payload and wraps the bearer for user in a base64 XOAUTH2
// initial response.
func (a *Authenticator) Issue(user string, payload bearer.Value, opts ...bearer.EnvelopeOption) (string, error) {
	signed, err := a.signer.Sign(bearer.NewEnvelope(payload, opts...))
	if err != nil {
		return "", err
	}

	tok := xoauth2.New(user, signed)
	if err := tok.Validate(); err != nil {
		return "", err
	}

	encoded := tok.Encode()
	a.logger.Debug("bearer issued",
		logger.Event("issued"),
		logger.User(user),
		logger.Fingerprint(signed),
	)
	return encoded, nil
}

// Authenticate decodes a base64 XOAUTH2 initial response and verifies the
// bearer it carries.
func (a *Authenticator) Authenticate(encoded string) (Identity, error) {
	tok, err := xoauth2.Decode(encoded)
	if err != nil {
		a.reject("", "", err)
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}
	return a.verify(tok)
}

// AuthenticateRaw is Authenticate for initial responses whose base64 layer
// the mail server already removed.
func (a *Authenticator) AuthenticateRaw(raw []byte) (Identity, error) {
	tok, err := xoauth2.DecodeRaw(raw)
	if err != nil {
		a.reject("", "", err)
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}
	return a.verify(tok)
}

func (a *Authenticator) verify(tok xoauth2.Token) (Identity, error) {
	env, err := a.signer.Verify(tok.Bearer)
	if err != nil {
		a.reject(tok.User, tok.Bearer, err)
		return Identity{}, errors.Join(ErrUnauthenticated, err)
	}

	a.logger.Debug("bearer accepted",
		logger.Event("accepted"),
		logger.User(tok.User),
		logger.Fingerprint(tok.Bearer),
	)
	return Identity{User: tok.User, Envelope: env}, nil
}

func (a *Authenticator) reject(user, token string, err error) {
	a.logger.Info("authentication rejected",
		logger.Event("rejected"),
		logger.User(user),
		logger.Fingerprint(token),
		logger.Error(err),
	)
}
