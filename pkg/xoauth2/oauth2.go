package xoauth2

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// FromOAuth2Token builds a Token from an OAuth2 access token, as handed out
// by mail providers for XOAUTH2 logins. Expired tokens and token types other
// than Bearer are rejected.
func FromOAuth2Token(user string, tok *oauth2.Token) (Token, error) {
	if tok == nil || tok.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: empty access token", ErrInvalidOAuth2Token)
	}
	if !tok.Valid() {
		return Token{}, fmt.Errorf("%w: token expired", ErrInvalidOAuth2Token)
	}
	if !strings.EqualFold(tok.Type(), AuthScheme) {
		return Token{}, fmt.Errorf("%w: token type %q", ErrMalformedAuthValue, tok.Type())
	}

	t := New(user, tok.AccessToken)
	if err := t.Validate(); err != nil {
		return Token{}, err
	}
	return t, nil
}

// FromTokenSource fetches a token from ts, refreshing it if the source does,
// and builds a Token from it.
func FromTokenSource(user string, ts oauth2.TokenSource) (Token, error) {
	if ts == nil {
		return Token{}, fmt.Errorf("%w: nil token source", ErrInvalidOAuth2Token)
	}
	tok, err := ts.Token()
	if err != nil {
		return Token{}, errors.Join(ErrInvalidOAuth2Token, err)
	}
	return FromOAuth2Token(user, tok)
}
