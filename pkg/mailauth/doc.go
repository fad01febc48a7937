// Package mailauth joins package bearer and package xoauth2 into the two
// halves of a mail login: issuing an XOAUTH2 initial response that carries a
// signed bearer, and authenticating one.
//
// # Usage
//
//	auth, err := mailauth.New(signer, mailauth.WithLogger(log))
//
//	encoded, err := auth.Issue("luke", bearer.MapValue(map[string]bearer.Value{
//	    "test": bearer.IntValue(123),
//	}))
//
//	id, err := auth.Authenticate(encoded)
//	if err != nil {
//	    // reply with an authentication failure
//	}
//	_ = id.User
//	_ = id.Envelope.Payload()
//
// Tokens are never logged; log records carry a short fingerprint instead.
//
// # Error Handling
//
// Every Authenticate failure wraps ErrUnauthenticated together with the
// underlying bearer or xoauth2 error, so callers can either treat all
// failures alike or inspect the cause with errors.Is.
package mailauth
