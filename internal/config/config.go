package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override. Nested keys use "__",
	// e.g. SHOWCASE_SERVER__PORT.
	EnvPrefix = "SHOWCASE_"

	defaultEnvFile    = ".env"
	defaultConfigFile = "showcase.yaml"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Data    DataConfig    `koanf:"data"`
	Prefs   PrefsConfig   `koanf:"prefs"`
	Log     LogConfig     `koanf:"log"`
	AVWX    AVWXConfig    `koanf:"avwx"`
	Weather WeatherConfig `koanf:"weather"`
	CORS    CORSConfig    `koanf:"cors"`
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string        `koanf:"port"`
	Dev             bool          `koanf:"dev"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DataConfig locates collection data and the catalog.
type DataConfig struct {
	Dir      string        `koanf:"dir"`
	Catalog  string        `koanf:"catalog"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
	Watch    bool          `koanf:"watch"`
}

// PrefsConfig holds the visitor cookie keys.
type PrefsConfig struct {
	CookieName string        `koanf:"cookie_name"`
	HashKey    string        `koanf:"hash_key"`
	BlockKey   string        `koanf:"block_key"`
	Secure     bool          `koanf:"secure"`
	MaxAge     time.Duration `koanf:"max_age"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `koanf:"level"`
}

// AVWXConfig configures the station lookup provider. An empty token disables it.
type AVWXConfig struct {
	BaseURL string        `koanf:"base_url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`
}

// WeatherConfig configures the OpenWeatherMap widget. An empty key disables it.
type WeatherConfig struct {
	BaseURL  string        `koanf:"base_url"`
	IconBase string        `koanf:"icon_base"`
	APIKey   string        `koanf:"api_key"`
	City     string        `koanf:"city"`
	Units    string        `koanf:"units"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
	Timeout  time.Duration `koanf:"timeout"`
}

// CORSConfig lists origins allowed to read the JSON API.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			RequestTimeout:  20 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Data: DataConfig{
			Dir:      "data",
			CacheTTL: 5 * time.Minute,
			Watch:    true,
		},
		Prefs: PrefsConfig{
			CookieName: "showcase_prefs",
			MaxAge:     365 * 24 * time.Hour,
		},
		Log: LogConfig{Level: "info"},
		AVWX: AVWXConfig{
			BaseURL: "https://avwx.rest",
			Timeout: 5 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL:  "https://api.openweathermap.org/data/2.5",
			IconBase: "https://openweathermap.org/img/wn",
			City:     "Dar es Salaam",
			Units:    "metric",
			CacheTTL: 10 * time.Minute,
			Timeout:  5 * time.Second,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	configFile   string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path. An empty path skips it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithConfigFile overrides the YAML config path. An empty path skips it.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.configFile = path
	}
}

// WithEnvMap injects explicit SHOWCASE_* values. They take precedence over the
// system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration: defaults, then the YAML file, then .env
// values, then the process environment, then any explicit env map.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		configFile:   defaultConfigFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	k := koanf.New(".")

	if options.configFile != "" {
		if _, err := os.Stat(options.configFile); err == nil {
			if err := k.Load(file.Provider(options.configFile), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("reading config %s: %w", options.configFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("accessing config %s: %w", options.configFile, err)
		}
	}

	if options.envFile != "" {
		dotenv, err := godotenv.Read(options.envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("reading env file %s: %w", options.envFile, err)
		}
		if err := setEnvValues(k, dotenv); err != nil {
			return Config{}, err
		}
	}

	if options.useSystemEnv {
		if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
			return Config{}, fmt.Errorf("loading env overrides: %w", err)
		}
	}

	if err := setEnvValues(k, options.envMap); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps SHOWCASE_DATA__CACHE_TTL to data.cache_ttl.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func setEnvValues(k *koanf.Koanf, values map[string]string) error {
	for key, value := range values {
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if err := k.Set(envKey(key), value); err != nil {
			return fmt.Errorf("applying %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Server.Port = strings.TrimPrefix(strings.TrimSpace(c.Server.Port), ":")
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.AVWX.Token = strings.TrimSpace(c.AVWX.Token)
	c.Weather.APIKey = strings.TrimSpace(c.Weather.APIKey)

	origins := make([]string, 0, len(c.CORS.AllowedOrigins))
	for _, entry := range c.CORS.AllowedOrigins {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	c.CORS.AllowedOrigins = origins
}

// Validate checks required fields. Cookie keys may be omitted in dev mode only.
func (c Config) Validate() error {
	var fields []string
	if c.Server.Port == "" {
		fields = append(fields, "server.port")
	}
	if strings.TrimSpace(c.Data.Dir) == "" {
		fields = append(fields, "data.dir")
	}
	if c.Data.CacheTTL < 0 {
		fields = append(fields, "data.cache_ttl")
	}
	if c.Prefs.HashKey == "" && !c.Server.Dev {
		fields = append(fields, "prefs.hash_key")
	}
	switch len(c.Prefs.BlockKey) {
	case 0, 16, 24, 32:
	default:
		fields = append(fields, "prefs.block_key")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		fields = append(fields, "log.level")
	}
	if len(fields) > 0 {
		return &ValidationError{fields: fields}
	}
	return nil
}

// WeatherEnabled reports whether the weather widget has credentials.
func (c Config) WeatherEnabled() bool {
	return c.Weather.APIKey != ""
}

// AVWXEnabled reports whether remote station lookup is configured.
func (c Config) AVWXEnabled() bool {
	return c.AVWX.Token != "" && c.AVWX.BaseURL != ""
}
