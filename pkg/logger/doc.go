// Package logger builds *slog.Logger instances from functional options and
// provides attribute constructors that keep key names consistent.
//
// New returns a JSON logger at info level writing to stderr unless options
// say otherwise:
//
//   - WithDevelopment / WithProduction / WithEnvironment: presets per environment.
//   - WithFormat / WithTextFormatter / WithJSONFormatter: output format.
//   - WithLevel / WithLevelName: minimum level.
//   - WithOutput: destination writer.
//   - WithAttr: static attributes on every record.
//
// # Usage
//
//	import "github.com/dmitrymomot/bearerkit/pkg/logger"
//
//	log := logger.New(logger.WithEnvironment(cfg.Env, "bearer"))
//	logger.SetAsDefault(log)
//
//	log.Info("token issued",
//	    logger.User(user),
//	    logger.Fingerprint(token),
//	)
//
// Fingerprint logs a short hash of a credential instead of the credential
// itself. Tokens must never be logged verbatim.
//
// # Error Handling
//
// Error and Errors produce attributes only when the supplied error is
// non-nil, so they can be passed without a nil check:
//
//	log.Info("operation finished", logger.Error(err))
package logger
