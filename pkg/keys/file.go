package keys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FileSource reads PEM files from disk. Either path may be empty for a
// verify-only or sign-only pair, but not both.
type FileSource struct {
	PublicKeyPath  string
	PrivateKeyPath string
}

func (s FileSource) Load(ctx context.Context) (KeyPair, error) {
	if s.PublicKeyPath == "" && s.PrivateKeyPath == "" {
		return KeyPair{}, fmt.Errorf("%w: no key paths", ErrInvalidConfig)
	}
	if err := ctx.Err(); err != nil {
		return KeyPair{}, err
	}

	pub, err := readKeyFile(s.PublicKeyPath)
	if err != nil {
		return KeyPair{}, err
	}
	priv, err := readKeyFile(s.PrivateKeyPath)
	if err != nil {
		clear(pub)
		return KeyPair{}, err
	}

	pair := KeyPair{PublicKey: pub, PrivateKey: priv}
	if pair.Empty() {
		return KeyPair{}, ErrEmptyKeyPair
	}
	return pair, nil
}

func readKeyFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, classifyFileError(err, path)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxKeySize+1))
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadKey, err)
	}
	if len(data) > MaxKeySize {
		return nil, fmt.Errorf("%w: %s", ErrKeyTooLarge, path)
	}
	return normalizePEM(data)
}

func classifyFileError(err error, path string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrKeyNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrAccessDenied, path)
	default:
		return errors.Join(ErrFailedToLoadKey, err)
	}
}
