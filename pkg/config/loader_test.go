package config_test

import (
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/bearerkit/pkg/config"
)

type appConfig struct {
	Name    string   `env:"NAME" envDefault:"bearer"`
	Port    int      `env:"PORT" envDefault:"25"`
	Tags    []string `env:"TAGS" envSeparator:","`
	Debug   bool     `env:"DEBUG"`
	Require string   `env:"REQUIRED_VALUE"`
}

type requiredConfig struct {
	Value string `env:"CFGTEST_MUST_EXIST,required"`
}

func TestLoad_WithEnvironment(t *testing.T) {
	t.Parallel()

	var cfg appConfig
	err := config.Load(&cfg,
		config.WithPrefix("APP_"),
		config.WithEnvironment(map[string]string{
			"APP_NAME":  "custom",
			"APP_TAGS":  "x,y",
			"APP_DEBUG": "true",
			"NAME":      "ignored without prefix",
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, 25, cfg.Port)
	assert.Equal(t, []string{"x", "y"}, cfg.Tags)
	assert.True(t, cfg.Debug)
}

func TestLoad_ParseError(t *testing.T) {
	t.Parallel()

	var cfg appConfig
	err := config.Load(&cfg, config.WithEnvironment(map[string]string{"PORT": "not-a-number"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	t.Parallel()

	var cfg *appConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoad_CachedAndReload(t *testing.T) {
	config.ResetCache()
	t.Setenv("CFGCACHE_NAME", "first")

	var cfg appConfig
	require.NoError(t, config.Load(&cfg, config.WithPrefix("CFGCACHE_")))
	assert.Equal(t, "first", cfg.Name)

	t.Setenv("CFGCACHE_NAME", "second")

	var cached appConfig
	require.NoError(t, config.Load(&cached, config.WithPrefix("CFGCACHE_")))
	assert.Equal(t, "first", cached.Name)

	var reloaded appConfig
	require.NoError(t, config.ForceReload(&reloaded, config.WithPrefix("CFGCACHE_")))
	assert.Equal(t, "second", reloaded.Name)

	var other appConfig
	require.NoError(t, config.Load(&other, config.WithPrefix("CFGOTHER_")))
	assert.Equal(t, "bearer", other.Name)
}

func TestLoad_RequiredRetriesAfterFailure(t *testing.T) {
	config.ResetCache()

	var cfg requiredConfig
	require.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)

	t.Setenv("CFGTEST_MUST_EXIST", "present")
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "present", cfg.Value)
}

func TestLoad_Concurrent(t *testing.T) {
	config.ResetCache()
	t.Setenv("CFGCONC_NAME", "shared")

	var wg sync.WaitGroup
	results := make([]appConfig, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = config.Load(&results[i], config.WithPrefix("CFGCONC_"))
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "shared", r.Name)
	}
}

func TestMustLoad(t *testing.T) {
	config.ResetCache()
	os.Unsetenv("CFGTEST_MUST_EXIST")

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})

	t.Setenv("CFGTEST_MUST_EXIST", "ok")
	assert.NotPanics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}
