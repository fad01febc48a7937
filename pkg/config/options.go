package config

// Option adjusts how a configuration struct is parsed.
type Option func(*options)

type options struct {
	prefix      string
	environment map[string]string
}

// WithPrefix prepends prefix to every env tag of the struct, so
// `env:"PUBLIC_KEY"` with prefix "BEARER_" reads BEARER_PUBLIC_KEY.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvironment parses from env instead of the process environment.
// Configs parsed this way are never cached.
func WithEnvironment(env map[string]string) Option {
	return func(o *options) { o.environment = env }
}

func (o options) cacheable() bool {
	return o.environment == nil
}
