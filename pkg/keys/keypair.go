package keys

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
)

// MaxKeySize bounds a single PEM document read from any source.
const MaxKeySize = 64 << 10

const pemPrefix = "-----BEGIN "

// KeyPair holds PEM encoded key material. Either half may be empty:
// a pair with only a public key can verify but not sign.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// Empty reports whether the pair carries no key material at all.
func (p KeyPair) Empty() bool {
	return len(p.PublicKey) == 0 && len(p.PrivateKey) == 0
}

// CanSign reports whether the pair includes a private key.
func (p KeyPair) CanSign() bool {
	return len(p.PrivateKey) > 0
}

// Zero overwrites both keys in place. The pair must not be used afterwards.
func (p *KeyPair) Zero() {
	clear(p.PublicKey)
	clear(p.PrivateKey)
	p.PublicKey = nil
	p.PrivateKey = nil
}

// merge fills the halves missing from p with the ones from other.
func (p KeyPair) merge(other KeyPair) KeyPair {
	if len(p.PublicKey) == 0 {
		p.PublicKey = other.PublicKey
	}
	if len(p.PrivateKey) == 0 {
		p.PrivateKey = other.PrivateKey
	}
	return p
}

// normalizePEM accepts a raw PEM document, a PEM document whose newlines
// were flattened to literal "\n" sequences, or the base64 encoding of
// either. It returns nil for blank input.
func normalizePEM(raw []byte) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) > MaxKeySize {
		return nil, ErrKeyTooLarge
	}
	if bytes.HasPrefix(raw, []byte(pemPrefix)) {
		return bytes.ReplaceAll(raw, []byte(`\n`), []byte("\n")), nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(raw)), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: neither PEM nor base64 PEM: %w", ErrFailedToLoadKey, err)
	}
	decoded = bytes.TrimSpace(decoded)
	if !bytes.HasPrefix(decoded, []byte(pemPrefix)) {
		return nil, fmt.Errorf("%w: base64 value does not hold a PEM document", ErrFailedToLoadKey)
	}
	return decoded, nil
}
