package bearer_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bearerkit/pkg/bearer"
)

type testKeyPair struct {
	private    *rsa.PrivateKey
	publicPEM  []byte
	privatePEM []byte
}

var (
	primaryKeys = sync.OnceValue(func() testKeyPair { return newTestKeyPair() })
	otherKeys   = sync.OnceValue(func() testKeyPair { return newTestKeyPair() })
)

func newTestKeyPair() testKeyPair {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		panic(err)
	}

	return testKeyPair{
		private:    key,
		publicPEM:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER}),
		privatePEM: pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}),
	}
}

func newSigner(t testing.TB, keys testKeyPair, opts ...bearer.SignerOption) *bearer.Signer {
	t.Helper()
	signer, err := bearer.NewSigner(keys.publicPEM, keys.privatePEM, opts...)
	require.NoError(t, err)
	return signer
}
