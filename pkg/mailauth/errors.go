package mailauth

import "errors"

var (
	ErrNilSigner       = errors.New("mailauth: nil signer")
	ErrUnauthenticated = errors.New("mailauth: authentication failed")
)
