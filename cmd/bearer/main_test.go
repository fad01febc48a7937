package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bearerkit/pkg/bearer"
	"github.com/dmitrymomot/bearerkit/pkg/keys"
	"github.com/dmitrymomot/bearerkit/pkg/xoauth2"
)

type pemPair struct {
	public  []byte
	private []byte
}

var testPEM = sync.OnceValue(func() pemPair {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		panic(err)
	}
	return pemPair{
		public:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
		private: pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}),
	}
})

// writeKeys stores the test key pair in a temp dir and returns the paths.
func writeKeys(t *testing.T) (pubPath, privPath string) {
	t.Helper()
	dir := t.TempDir()
	pubPath = filepath.Join(dir, "public.key")
	privPath = filepath.Join(dir, "private.key")
	require.NoError(t, os.WriteFile(pubPath, testPEM().public, 0o644))
	require.NoError(t, os.WriteFile(privPath, testPEM().private, 0o600))
	return pubPath, privPath
}

func execute(t *testing.T, environ map[string]string, stdin string, args ...string) (string, string, error) {
	t.Helper()
	if environ == nil {
		environ = map[string]string{}
	}
	var stdout, stderr bytes.Buffer
	err := dispatch(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr, environ)
	return stdout.String(), stderr.String(), err
}

func isUsageError(err error) bool {
	var u *usageError
	return errors.As(err, &u)
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr)
	assert.True(t, isUsageError(err))
	assert.Contains(t, stdout.String(), "Commands:")
	assert.Contains(t, stdout.String(), "key-info")

	stdout.Reset()
	require.NoError(t, run(context.Background(), []string{"--help"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "--env-file")

	err = run(context.Background(), []string{"--bogus"}, strings.NewReader(""), &stdout, &stderr)
	assert.True(t, isUsageError(err))

	err = run(context.Background(), []string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "demo"}, strings.NewReader(""), &stdout, &stderr)
	assert.Error(t, err)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	t.Parallel()
	_, _, err := execute(t, nil, "", "frobnicate")
	assert.True(t, isUsageError(err))
}

func TestSignVerify(t *testing.T) {
	t.Parallel()
	pub, priv := writeKeys(t)

	token, _, err := execute(t, nil, "",
		"sign", "--private-key", priv,
		"--payload", `{"test":123}`,
		"--created-at", "2022-04-15T05:20:00Z",
	)
	require.NoError(t, err)
	token = strings.TrimSpace(token)
	assert.True(t, strings.HasPrefix(token, "7b2275223a7b2274657374223a3132337d2c2264223a313635303030303030303030307d."))

	out, _, err := execute(t, nil, "", "verify", "--public-key", pub, token)
	require.NoError(t, err)

	var view struct {
		Payload   map[string]any `json:"payload"`
		CreatedAt string         `json:"created_at"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, map[string]any{"test": float64(123)}, view.Payload)
	assert.Equal(t, "2022-04-15T05:20:00Z", view.CreatedAt)

	out, _, err = execute(t, nil, token+"\n", "verify", "-o", "yaml", "--public-key", pub, "-")
	require.NoError(t, err)
	assert.Contains(t, out, "payload:\n  test: 123\n")
	assert.Contains(t, out, "created_at: 2022-04-15T05:20:00Z")
}

func TestSign_EnvironmentKeys(t *testing.T) {
	t.Parallel()

	environ := map[string]string{"BEARER_PRIVATE_KEY": string(testPEM().private)}
	token, _, err := execute(t, environ, "", "sign", "--payload", `"hello"`)
	require.NoError(t, err)

	verifyEnv := map[string]string{"BEARER_PUBLIC_KEY": strings.ReplaceAll(string(testPEM().public), "\n", `\n`)}
	out, _, err := execute(t, verifyEnv, "", "verify", strings.TrimSpace(token))
	require.NoError(t, err)
	assert.Contains(t, out, `"payload": "hello"`)
}

func TestSign_KeyFileVariables(t *testing.T) {
	t.Parallel()
	pub, priv := writeKeys(t)

	environ := map[string]string{
		"BEARER_PUBLIC_KEY_FILE":  pub,
		"BEARER_PRIVATE_KEY_FILE": priv,
	}
	token, _, err := execute(t, environ, "", "sign", "--payload", `[1,2,3]`)
	require.NoError(t, err)
	_, _, err = execute(t, environ, "", "verify", strings.TrimSpace(token))
	require.NoError(t, err)
}

func TestSign_PayloadFile(t *testing.T) {
	t.Parallel()
	pub, priv := writeKeys(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "payload.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("user: luke\nscopes:\n  - mail\n  - imap\nquota: 10\n"), 0o600))
	jsonPath := filepath.Join(dir, "payload.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"scopes":["mail","imap"],"user":"luke","quota":10}`), 0o600))

	fromYAML, _, err := execute(t, nil, "", "sign", "--private-key", priv, "--payload-file", yamlPath, "--created-at", "2022-04-15T05:20:00Z")
	require.NoError(t, err)
	fromJSON, _, err := execute(t, nil, "", "sign", "--private-key", priv, "--payload-file", jsonPath, "--created-at", "2022-04-15T05:20:00Z")
	require.NoError(t, err)

	// Canonical encoding makes both files produce the same data segment.
	yamlData, _, _ := strings.Cut(fromYAML, ".")
	jsonData, _, _ := strings.Cut(fromJSON, ".")
	assert.Equal(t, jsonData, yamlData)

	_, _, err = execute(t, nil, "", "verify", "--public-key", pub, strings.TrimSpace(fromYAML))
	require.NoError(t, err)
}

func TestSign_UsageErrors(t *testing.T) {
	t.Parallel()
	_, priv := writeKeys(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no payload", []string{"sign", "--private-key", priv}},
		{"both payloads", []string{"sign", "--private-key", priv, "--payload", "1", "--payload-file", "x.json"}},
		{"invalid json", []string{"sign", "--private-key", priv, "--payload", "{"}},
		{"bad time", []string{"sign", "--private-key", priv, "--payload", "1", "--created-at", "yesterday"}},
		{"unknown flag", []string{"sign", "--nope"}},
		{"extra argument", []string{"sign", "--payload", "1", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := execute(t, nil, "", tt.args...)
			assert.True(t, isUsageError(err), "got %v", err)
		})
	}
}

func TestVerify_Failures(t *testing.T) {
	t.Parallel()
	pub, priv := writeKeys(t)

	token, _, err := execute(t, nil, "", "sign", "--private-key", priv, "--payload", "{}")
	require.NoError(t, err)
	token = strings.TrimSpace(token)
	tampered := token[:len(token)-2] + "00"
	if tampered == token {
		tampered = token[:len(token)-2] + "11"
	}

	_, _, err = execute(t, nil, "", "verify", "--public-key", pub, tampered)
	assert.ErrorIs(t, err, bearer.ErrInvalidSignature)
	assert.Contains(t, err.Error(), "invalid token")

	_, _, err = execute(t, nil, "", "verify", "--public-key", pub, "nodot")
	assert.ErrorIs(t, err, bearer.ErrMalformedToken)

	_, _, err = execute(t, nil, "", "verify", token)
	assert.ErrorIs(t, err, keys.ErrEmptyKeyPair)

	_, _, err = execute(t, nil, "", "verify", "--public-key", pub)
	assert.True(t, isUsageError(err))

	_, _, err = execute(t, nil, "", "verify", "--public-key", pub, "-o", "xml", token)
	assert.True(t, isUsageError(err))
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, nil, "", "encode", "--user", "luke", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "dXNlcj1sdWtlAWF1dGg9QmVhcmVyIGFiYzEyMwEB\n", out)

	out, _, err = execute(t, nil, "dXNlcj1sdWtlAWF1dGg9QmVhcmVyIGFiYzEyMwEB\n", "decode", "-")
	require.NoError(t, err)
	assert.Equal(t, "user: luke\nbearer: abc123\n", out)

	_, _, err = execute(t, nil, "", "encode", "abc123")
	assert.True(t, isUsageError(err))

	_, _, err = execute(t, nil, "", "encode", "--user", "luke", "has space")
	assert.ErrorIs(t, err, xoauth2.ErrInvalidField)

	_, _, err = execute(t, nil, "", "decode", "!!!")
	assert.ErrorIs(t, err, xoauth2.ErrMalformedToken)

	_, _, err = execute(t, nil, "\n", "decode", "-")
	assert.True(t, isUsageError(err))
}

func TestAuth(t *testing.T) {
	t.Parallel()
	pub, priv := writeKeys(t)

	token, _, err := execute(t, nil, "", "sign", "--private-key", priv, "--payload", `{"test":123}`)
	require.NoError(t, err)
	encoded, _, err := execute(t, nil, "", "encode", "-u", "luke", strings.TrimSpace(token))
	require.NoError(t, err)

	out, _, err := execute(t, nil, "", "auth", "--public-key", pub, strings.TrimSpace(encoded))
	require.NoError(t, err)
	assert.Contains(t, out, `"user": "luke"`)
	assert.Contains(t, out, `"test": 123`)

	_, stderr, err := execute(t, map[string]string{"BEARER_LOG_LEVEL": "info"}, "",
		"auth", "--public-key", pub, xoauth2.Encode("luke", "deadbeef.cafe"))
	require.Error(t, err)
	assert.Contains(t, stderr, "authentication rejected")
	assert.NotContains(t, stderr, "deadbeef.cafe")
}

func TestKeyInfo(t *testing.T) {
	t.Parallel()
	pub, _ := writeKeys(t)

	out, _, err := execute(t, nil, "", "key-info", "--public-key", pub)
	require.NoError(t, err)
	assert.Contains(t, out, "algorithm: RS256\n")
	assert.Contains(t, out, "bits: 2048\n")
	assert.Contains(t, out, "fingerprint: SHA256:")
	assert.Contains(t, out, "can_sign: false\n")
}

func TestDemo(t *testing.T) {
	t.Parallel()
	pub, priv := writeKeys(t)

	out, _, err := execute(t, nil, "", "demo", "--public-key", pub, "--private-key", priv, "--user", "leia")
	require.NoError(t, err)
	assert.Contains(t, out, "signed:   7b22")
	assert.Contains(t, out, `"test":123`)
	assert.Contains(t, out, "decoded:  user=leia bearer matches")
}

func TestLoggerSettings(t *testing.T) {
	t.Parallel()
	pub, _ := writeKeys(t)

	_, _, err := execute(t, map[string]string{"BEARER_LOG_LEVEL": "chatty"}, "", "decode", "x")
	assert.True(t, isUsageError(err))

	_, _, err = execute(t, map[string]string{"BEARER_LOG_FORMAT": "xml"}, "", "decode", "x")
	assert.True(t, isUsageError(err))

	_, stderr, err := execute(t, map[string]string{
		"BEARER_ENV":        "development",
		"BEARER_LOG_LEVEL":  "debug",
		"BEARER_LOG_FORMAT": "text",
	}, "", "key-info", "--public-key", pub)
	require.NoError(t, err)
	assert.Contains(t, stderr, "msg=\"keys loaded\"")
	assert.Contains(t, stderr, "command=key-info")
}

func TestEnvironMap(t *testing.T) {
	t.Parallel()
	m := environMap([]string{"A=1", "B=x=y", "NOEQUALS", "C="})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "C": ""}, m)
}

func TestKeySource_S3Configured(t *testing.T) {
	t.Parallel()
	pub, priv := writeKeys(t)

	environ := map[string]string{
		"BEARER_KEYS_S3_BUCKET":            "keys",
		"BEARER_KEYS_S3_REGION":            "eu-west-1",
		"BEARER_KEYS_S3_ACCESS_KEY_ID":     "AKIDEXAMPLE",
		"BEARER_KEYS_S3_SECRET_ACCESS_KEY": "secret",
	}
	s, err := loadSettings(environ)
	require.NoError(t, err)
	assert.Equal(t, "keys", s.S3.Bucket)
	assert.Equal(t, "eu-west-1", s.S3.Region)
	assert.Equal(t, "public.key", s.S3.PublicKeyObject)

	// Local keys complete the pair, so the bucket is never queried.
	token, _, err := execute(t, environ, "", "sign", "--public-key", pub, "--private-key", priv, "--payload", "true")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(token))
}

func TestLoadSigner_LogsKeySource(t *testing.T) {
	t.Parallel()
	_, priv := writeKeys(t)

	environ := map[string]string{
		"BEARER_LOG_LEVEL":  "debug",
		"BEARER_LOG_FORMAT": "json",
		"BEARER_PUBLIC_KEY": string(testPEM().public),
	}
	_, stderr, err := execute(t, environ, "", "sign", "--private-key", priv, "--payload", "1")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"keys loaded"`)
	assert.Contains(t, stderr, `"key_source":"file+env"`)
}

func TestKeySource_S3Endpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/keys/public.key":
			_, _ = w.Write(testPEM().public)
		case "/keys/private.key":
			_, _ = w.Write(testPEM().private)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	environ := map[string]string{
		"BEARER_LOG_LEVEL":                 "debug",
		"BEARER_LOG_FORMAT":                "json",
		"BEARER_KEYS_S3_BUCKET":            "keys",
		"BEARER_KEYS_S3_ENDPOINT":          srv.URL,
		"BEARER_KEYS_S3_FORCE_PATH_STYLE":  "true",
		"BEARER_KEYS_S3_ACCESS_KEY_ID":     "AKIDEXAMPLE",
		"BEARER_KEYS_S3_SECRET_ACCESS_KEY": "secret",
	}
	out, stderr, err := execute(t, environ, "", "key-info")
	require.NoError(t, err)
	assert.Contains(t, out, "can_sign: true\n")
	assert.Contains(t, stderr, `"key_source":"s3"`)
}
