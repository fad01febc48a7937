// Package keys loads the PEM encoded RSA key pair used to sign and verify
// bearer tokens.
//
// A Source yields a KeyPair. Three sources are provided:
//
//   - FileSource reads PEM files from disk.
//   - EnvSource reads BEARER_PUBLIC_KEY / BEARER_PRIVATE_KEY (raw PEM,
//     PEM with literal "\n" escapes, or base64) or the *_FILE variants.
//   - S3Source fetches both keys from an S3 bucket.
//
// Chain combines sources, filling each half of the pair from the first
// source that has it.
//
// # Usage
//
//	import "github.com/dmitrymomot/bearerkit/pkg/keys"
//
//	src := keys.Chain(
//	    keys.EnvSource{},
//	    keys.FileSource{PublicKeyPath: "public.key", PrivateKeyPath: "private.key"},
//	)
//	pair, err := src.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pair.Zero()
//
//	signer, err := bearer.NewSigner(pair.PublicKey, pair.PrivateKey)
//
// Keys are only read, never parsed, here; package bearer parses them.
//
// # Error Handling
//
// Errors wrap ErrKeyNotFound, ErrAccessDenied, ErrEmptyKeyPair,
// ErrInvalidConfig, ErrKeyTooLarge or ErrFailedToLoadKey and should be
// matched with errors.Is. Context cancellation errors are returned as is.
package keys
