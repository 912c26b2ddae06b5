// Package config loads revise settings from revise.yaml and REVISE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/revise/internal/update"
)

// EnvPrefix is prepended to environment overrides: database.path is
// read from REVISE_DATABASE_PATH.
const EnvPrefix = "REVISE"

// Config holds every setting the CLI needs.
type Config struct {
	DatabasePath string
	SchemaDir    string
	UpdateMethod string
	TenantField  string
	LogLevel     string
	LogFormat    string
	Locale       string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DatabasePath: "revise.db",
		SchemaDir:    "kinds",
		UpdateMethod: update.DefaultMethod,
		LogLevel:     "info",
		LogFormat:    "text",
		Locale:       "en-US",
	}
}

var keys = []string{
	"database.path",
	"schema.dir",
	"update.method",
	"access.tenant_field",
	"log.level",
	"log.format",
	"locale",
}

// Load reads settings. With an empty path it looks for revise.yaml in
// dir and silently falls back to defaults if none exists; an explicit
// path must exist. Environment variables override both.
func Load(path, dir string) (Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("revise")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if v.IsSet("database.path") {
		cfg.DatabasePath = v.GetString("database.path")
	}
	if v.IsSet("schema.dir") {
		cfg.SchemaDir = v.GetString("schema.dir")
	}
	if v.IsSet("update.method") {
		cfg.UpdateMethod = v.GetString("update.method")
	}
	if v.IsSet("access.tenant_field") {
		cfg.TenantField = v.GetString("access.tenant_field")
	}
	if v.IsSet("log.level") {
		cfg.LogLevel = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.LogFormat = v.GetString("log.format")
	}
	if v.IsSet("locale") {
		cfg.Locale = v.GetString("locale")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("database.path must not be empty")
	}
	if c.UpdateMethod == "" {
		return errors.New("update.method must not be empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Logger builds a slog logger writing to w per log.level and log.format.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
