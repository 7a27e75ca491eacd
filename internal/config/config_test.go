package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string, opts ...Option) (Config, error) {
	t.Helper()
	base := []Option{WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile("")}
	return Load(append(base, opts...)...)
}

func TestLoadWithDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, map[string]string{"SHOWCASE_PREFS__HASH_KEY": "hash"})
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, "data", cfg.Data.Dir)
	require.Equal(t, 5*time.Minute, cfg.Data.CacheTTL)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	require.False(t, cfg.WeatherEnabled())
	require.False(t, cfg.AVWXEnabled())
}

func TestLoadWithOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, map[string]string{
		"SHOWCASE_SERVER__PORT":          ":9090",
		"SHOWCASE_SERVER__DEV":           "true",
		"SHOWCASE_DATA__CACHE_TTL":       "30s",
		"SHOWCASE_LOG__LEVEL":            "DEBUG",
		"SHOWCASE_AVWX__TOKEN":           " secret ",
		"SHOWCASE_WEATHER__API_KEY":      "owm",
		"SHOWCASE_CORS__ALLOWED_ORIGINS": "https://a.example, https://b.example",
		"UNRELATED_VARIABLE":             "ignored",
	})
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.True(t, cfg.Server.Dev)
	require.Equal(t, 30*time.Second, cfg.Data.CacheTTL)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "secret", cfg.AVWX.Token)
	require.True(t, cfg.AVWXEnabled())
	require.True(t, cfg.WeatherEnabled())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadLayersFileAndDotEnv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "showcase.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("server:\n  port: \"7000\"\ndata:\n  dir: /srv/data\nweather:\n  city: Arusha\n"), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SHOWCASE_PREFS__HASH_KEY=from-dotenv\nSHOWCASE_SERVER__PORT=7100\n"), 0o600))

	cfg, err := load(t, map[string]string{"SHOWCASE_WEATHER__CITY": "Moshi"},
		WithConfigFile(yamlPath), WithEnvFile(envPath))
	require.NoError(t, err)
	require.Equal(t, "7100", cfg.Server.Port)
	require.Equal(t, "/srv/data", cfg.Data.Dir)
	require.Equal(t, "from-dotenv", cfg.Prefs.HashKey)
	require.Equal(t, "Moshi", cfg.Weather.City)
}

func TestLoadMissingFilesAreIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := load(t, map[string]string{"SHOWCASE_SERVER__DEV": "true"},
		WithConfigFile(filepath.Join(dir, "none.yaml")), WithEnvFile(filepath.Join(dir, ".env")))
	require.NoError(t, err)
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()

	_, err := load(t, map[string]string{
		"SHOWCASE_PREFS__BLOCK_KEY": "short",
		"SHOWCASE_LOG__LEVEL":       "loud",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.ElementsMatch(t, []string{"prefs.hash_key", "prefs.block_key", "log.level"}, verr.Fields())
}
