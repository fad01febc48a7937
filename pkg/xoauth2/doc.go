// Package xoauth2 encodes and decodes SASL XOAUTH2 initial responses, the
// format IMAP, POP3 and SMTP servers accept for OAuth2 style logins.
//
// The wire format is the base64 encoding of
//
//	user=<user>^Aauth=Bearer <token>^A^A
//
// where ^A is the 0x01 control character. The bearer token is opaque to this
// package; it is usually a token issued by package bearer or an access token
// obtained through golang.org/x/oauth2.
//
// # Usage
//
//	import "github.com/dmitrymomot/bearerkit/pkg/xoauth2"
//
//	encoded := xoauth2.Encode("luke", signedToken)
//
//	tok, err := xoauth2.Decode(encoded)
//	if err != nil {
//	    // reject the login
//	}
//	_ = tok.User   // "luke"
//	_ = tok.Bearer // signedToken
//
// Servers that already removed the base64 layer use DecodeRaw. Clients
// holding an oauth2.Token use FromOAuth2Token or FromTokenSource.
//
// # Parsing Leniency
//
// The decoder trims whitespace around every field, accepts fields in any
// order, lets the last duplicate key win and matches the "Bearer" scheme
// case-insensitively. The encoder never relies on any of this.
//
// # Error Handling
//
// Errors wrap ErrMalformedToken, ErrMissingField or ErrMalformedAuthValue
// and should be matched with errors.Is.
package xoauth2
