package keys

import "errors"

var (
	ErrKeyNotFound     = errors.New("keys: key not found")
	ErrAccessDenied    = errors.New("keys: access denied")
	ErrEmptyKeyPair    = errors.New("keys: no key material")
	ErrInvalidConfig   = errors.New("keys: invalid source configuration")
	ErrFailedToLoadKey = errors.New("keys: failed to load key")
	ErrKeyTooLarge     = errors.New("keys: key exceeds size limit")
)
