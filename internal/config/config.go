// Package config loads service settings from defaults, an optional YAML file,
// LOGOS_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "LOGOS"

// Config holds every setting of the logos binary. The validate tags are
// checked by Validate.
type Config struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Dataset         string        `mapstructure:"dataset" validate:"required"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"oneof=text json"`
	RateLimit       int           `mapstructure:"rate_limit" validate:"min=1"`
	RateWindow      time.Duration `mapstructure:"rate_window" validate:"gt=0"`
	Store           string        `mapstructure:"store" validate:"oneof=memory redis"`
	RedisURL        string        `mapstructure:"redis_url" validate:"required_if=Store redis"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db" validate:"min=0"`
	RedisPrefix     string        `mapstructure:"redis_prefix"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Metrics         bool          `mapstructure:"metrics"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

var validate = newValidator()

// newValidator reports fields by their config key rather than the Go name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("mapstructure"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		Dataset:         "quotes.json",
		LogLevel:        "info",
		LogFormat:       "text",
		RateLimit:       60,
		RateWindow:      time.Minute,
		Store:           "memory",
		RedisURL:        "localhost:6379",
		RedisPrefix:     "logos:ratelimit:",
		CORSOrigins:     []string{"*"},
		Metrics:         true,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads the configuration through v. With an empty cfgFile, logos.yaml
// in the working directory is used when present.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("logos")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("dataset", cfg.Dataset)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("rate_limit", cfg.RateLimit)
	v.SetDefault("rate_window", cfg.RateWindow)
	v.SetDefault("store", cfg.Store)
	v.SetDefault("redis_url", cfg.RedisURL)
	v.SetDefault("redis_password", cfg.RedisPassword)
	v.SetDefault("redis_db", cfg.RedisDB)
	v.SetDefault("redis_prefix", cfg.RedisPrefix)
	v.SetDefault("cors_origins", cfg.CORSOrigins)
	v.SetDefault("metrics", cfg.Metrics)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return fmt.Errorf("invalid config: %w", err)
	}
	e := errs[0]
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Errorf("%s is required", e.Field())
	case "oneof":
		return fmt.Errorf("%s must be one of %s, got %q", e.Field(), e.Param(), e.Value())
	default:
		return fmt.Errorf("%s must satisfy %s=%s, got %v", e.Field(), e.Tag(), e.Param(), e.Value())
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Logger builds the process logger described by the configuration.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
