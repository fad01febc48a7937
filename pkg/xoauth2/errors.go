package xoauth2

import "errors"

var (
	// Wire format errors
	ErrMalformedToken = errors.New("xoauth2: malformed token")

	// Field errors
	ErrMissingField       = errors.New("xoauth2: missing field")
	ErrMalformedAuthValue = errors.New("xoauth2: malformed auth value")
	ErrInvalidField       = errors.New("xoauth2: invalid field value")

	// oauth2 adapter errors
	ErrInvalidOAuth2Token = errors.New("xoauth2: invalid oauth2 token")
)
