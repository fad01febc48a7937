// Package config loads typed configuration from environment variables and
// optional .env files.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for struct parsing. Each configuration type is
// parsed once per prefix and cached for the lifetime of the process.
//
// # Usage
//
//	type Settings struct {
//	    Env      string `env:"ENV" envDefault:"development"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
//
//	import "github.com/dmitrymomot/bearerkit/pkg/config"
//
//	if err := config.LoadEnv("bearer.env"); err != nil {
//	    log.Fatal(err)
//	}
//
//	var s Settings
//	if err := config.Load(&s, config.WithPrefix("BEARER_")); err != nil {
//	    log.Fatal(err)
//	}
//
// LoadEnv never overrides a variable the process environment already sets.
// When several files are given, later files override earlier ones.
//
// WithEnvironment parses from an explicit map instead of the process
// environment; such results are not cached, which suits tests and CLIs that
// want to stay hermetic.
//
// # Error Handling
//
// Errors wrap ErrParsingConfig, ErrLoadingEnvFile or ErrNilPointer and
// should be matched with errors.Is.
//
// # Testing Helpers
//
// ResetCache clears every cached configuration and ForceReload re-parses one
// type after the environment changed.
package config
