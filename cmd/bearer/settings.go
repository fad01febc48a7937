package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/bearerkit/pkg/bearer"
	"github.com/dmitrymomot/bearerkit/pkg/config"
	"github.com/dmitrymomot/bearerkit/pkg/keys"
	"github.com/dmitrymomot/bearerkit/pkg/logger"
)

const envPrefix = "BEARER_"

// settings is read from BEARER_* variables.
type settings struct {
	Env       string `env:"ENV" envDefault:"production"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT"`

	S3 s3Settings `envPrefix:"KEYS_S3_"`
}

type s3Settings struct {
	Bucket           string `env:"BUCKET"`
	Region           string `env:"REGION" envDefault:"us-east-1"`
	Endpoint         string `env:"ENDPOINT"`
	AccessKeyID      string `env:"ACCESS_KEY_ID"`
	SecretKey        string `env:"SECRET_ACCESS_KEY"`
	ForcePathStyle   bool   `env:"FORCE_PATH_STYLE"`
	PublicKeyObject  string `env:"PUBLIC_KEY_OBJECT" envDefault:"public.key"`
	PrivateKeyObject string `env:"PRIVATE_KEY_OBJECT" envDefault:"private.key"`
}

func loadSettings(environ map[string]string) (settings, error) {
	var s settings
	if err := config.Load(&s, config.WithPrefix(envPrefix), config.WithEnvironment(environ)); err != nil {
		return settings{}, err
	}
	return s, nil
}

func newLogger(s settings, w io.Writer) (*slog.Logger, error) {
	opts := []logger.Option{
		logger.WithOutput(w),
		logger.WithEnvironment(s.Env, "bearer"),
	}
	if s.LogLevel != "" {
		level, err := logger.ParseLevel(s.LogLevel)
		if err != nil {
			return nil, usageErrorf("%sLOG_LEVEL: %v", envPrefix, err)
		}
		opts = append(opts, logger.WithLevel(level))
	}
	switch logger.Format(s.LogFormat) {
	case "":
	case logger.FormatJSON, logger.FormatText:
		opts = append(opts, logger.WithFormat(logger.Format(s.LogFormat)))
	default:
		return nil, usageErrorf("%sLOG_FORMAT: unknown format %q", envPrefix, s.LogFormat)
	}
	return logger.New(opts...), nil
}

// keyFlags are the key locations given on the command line.
type keyFlags struct {
	publicKey  string
	privateKey string
}

// s3Timeout bounds every request made to the key bucket.
const s3Timeout = 30 * time.Second

// namedSource is a key source labelled for the "key_source" log attribute.
type namedSource struct {
	name string
	src  keys.Source
}

// keySource builds the lookup order: command line files, BEARER_*_KEY and
// BEARER_*_KEY_FILE variables, then S3 when a bucket is configured.
func keySource(ctx context.Context, s settings, flags keyFlags, environ map[string]string) ([]namedSource, error) {
	var sources []namedSource

	if flags.publicKey != "" || flags.privateKey != "" {
		sources = append(sources, namedSource{"file", keys.FileSource{PublicKeyPath: flags.publicKey, PrivateKeyPath: flags.privateKey}})
	}
	sources = append(sources, namedSource{"env", keys.EnvSource{Prefix: envPrefix, Environment: environ}})
	if s.S3.Bucket != "" {
		src, err := keys.NewS3Source(ctx, keys.S3Config{
			Bucket:           s.S3.Bucket,
			Region:           s.S3.Region,
			AccessKeyID:      s.S3.AccessKeyID,
			SecretKey:        s.S3.SecretKey,
			Endpoint:         s.S3.Endpoint,
			ForcePathStyle:   s.S3.ForcePathStyle,
			PublicKeyObject:  s.S3.PublicKeyObject,
			PrivateKeyObject: s.S3.PrivateKeyObject,
		}, keys.WithHTTPClient(&http.Client{Timeout: s3Timeout}))
		if err != nil {
			return nil, err
		}
		sources = append(sources, namedSource{"s3", src})
	}

	return sources, nil
}

// chainSources chains sources and returns a function reporting, after Load,
// the names of the sources that contributed key material.
func chainSources(sources []namedSource) (keys.Source, func() string) {
	var used []string
	chain := make([]keys.Source, len(sources))
	for i, ns := range sources {
		chain[i] = keys.SourceFunc(func(ctx context.Context) (keys.KeyPair, error) {
			pair, err := ns.src.Load(ctx)
			if err == nil && !pair.Empty() {
				used = append(used, ns.name)
			}
			return pair, err
		})
	}
	return keys.Chain(chain...), func() string { return strings.Join(used, "+") }
}

// loadSigner reads the key pair and parses it into a signer. The raw PEM
// bytes are wiped once parsed.
func (a *app) loadSigner(ctx context.Context, flags keyFlags) (*bearer.Signer, error) {
	sources, err := keySource(ctx, a.settings, flags, a.environ)
	if err != nil {
		return nil, err
	}
	src, usedSources := chainSources(sources)

	pair, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading keys: %w", err)
	}
	defer pair.Zero()

	signer, err := bearer.NewSigner(pair.PublicKey, pair.PrivateKey, bearer.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.log.Debug("keys loaded",
		logger.Event("keys_loaded"),
		logger.KeySource(usedSources()),
		slog.Bool("can_sign", signer.CanSign()),
	)
	return signer, nil
}
