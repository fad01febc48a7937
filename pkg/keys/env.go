package keys

import (
	"context"
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DefaultEnvPrefix prefixes the variables EnvSource reads.
const DefaultEnvPrefix = "BEARER_"

// envKeys lists the variables read by EnvSource, before prefixing.
// The *_FILE variants name a file whose contents hold the key.
type envKeys struct {
	PublicKey      string `env:"PUBLIC_KEY"`
	PrivateKey     string `env:"PRIVATE_KEY"`
	PublicKeyFile  string `env:"PUBLIC_KEY_FILE,file"`
	PrivateKeyFile string `env:"PRIVATE_KEY_FILE,file"`
}

// EnvSource reads PEM keys from environment variables: PUBLIC_KEY and
// PRIVATE_KEY hold the key itself, raw, with literal "\n" escapes or base64
// encoded; PUBLIC_KEY_FILE and PRIVATE_KEY_FILE name files holding it.
// Inline values take precedence over files.
type EnvSource struct {
	// Prefix defaults to DefaultEnvPrefix. Set it to "-" for no prefix.
	Prefix string
	// Environment replaces the process environment when non-nil.
	Environment map[string]string
}

func (s EnvSource) prefix() string {
	switch s.Prefix {
	case "":
		return DefaultEnvPrefix
	case "-":
		return ""
	default:
		return s.Prefix
	}
}

func (s EnvSource) Load(ctx context.Context) (KeyPair, error) {
	if err := ctx.Err(); err != nil {
		return KeyPair{}, err
	}

	var vars envKeys
	if err := env.ParseWithOptions(&vars, env.Options{
		Prefix:      s.prefix(),
		Environment: s.Environment,
	}); err != nil {
		if errors.Is(err, env.LoadFileContentError{}) {
			return KeyPair{}, errors.Join(ErrKeyNotFound, err)
		}
		return KeyPair{}, errors.Join(ErrFailedToLoadKey, err)
	}

	pub, err := pickPEM(vars.PublicKey, vars.PublicKeyFile)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%sPUBLIC_KEY: %w", s.prefix(), err)
	}
	priv, err := pickPEM(vars.PrivateKey, vars.PrivateKeyFile)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%sPRIVATE_KEY: %w", s.prefix(), err)
	}

	pair := KeyPair{PublicKey: pub, PrivateKey: priv}
	if pair.Empty() {
		return KeyPair{}, fmt.Errorf("%w: no %s*_KEY variables set", ErrKeyNotFound, s.prefix())
	}
	return pair, nil
}

func pickPEM(inline, fromFile string) ([]byte, error) {
	if inline != "" {
		return normalizePEM([]byte(inline))
	}
	return normalizePEM([]byte(fromFile))
}
