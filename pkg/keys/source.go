package keys

import (
	"context"
	"errors"
	"fmt"
)

// Source loads key material. Implementations honor ctx cancellation.
type Source interface {
	Load(ctx context.Context) (KeyPair, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (KeyPair, error)

func (f SourceFunc) Load(ctx context.Context) (KeyPair, error) {
	return f(ctx)
}

// Static returns a Source that always yields pair.
func Static(pair KeyPair) Source {
	return SourceFunc(func(ctx context.Context) (KeyPair, error) {
		if err := ctx.Err(); err != nil {
			return KeyPair{}, err
		}
		return pair, nil
	})
}

// Chain queries sources in order and merges their results: a half missing
// from an earlier source is filled from a later one. Sources reporting
// ErrKeyNotFound or ErrEmptyKeyPair are skipped; any other error stops the
// chain. Chain stops early once both halves are present and fails with
// ErrEmptyKeyPair when no source produced anything.
func Chain(sources ...Source) Source {
	return SourceFunc(func(ctx context.Context) (KeyPair, error) {
		var pair KeyPair
		for i, src := range sources {
			if src == nil {
				continue
			}
			got, err := src.Load(ctx)
			switch {
			case errors.Is(err, ErrKeyNotFound), errors.Is(err, ErrEmptyKeyPair):
				continue
			case err != nil:
				return KeyPair{}, fmt.Errorf("source %d: %w", i, err)
			}
			pair = pair.merge(got)
			if len(pair.PublicKey) > 0 && pair.CanSign() {
				break
			}
		}
		if pair.Empty() {
			return KeyPair{}, ErrEmptyKeyPair
		}
		return pair, nil
	})
}
