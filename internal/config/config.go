// Package config loads rigsmith settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/zeusync/rigsmith/internal/core/naming"
	"github.com/zeusync/rigsmith/internal/core/observability/log"
)

// EnvPrefix prefixes every environment override, e.g. RIGSMITH_STRICT.
const EnvPrefix = "RIGSMITH"

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Config struct {
	Strict    bool    `mapstructure:"strict"`
	Tolerance float64 `mapstructure:"tolerance"`
	LogLevel  string  `mapstructure:"log_level"`
	LogFormat string  `mapstructure:"log_format"`
	StorePath string  `mapstructure:"store_path"`
	Character string  `mapstructure:"character"`
	Separator string  `mapstructure:"separator"`
}

func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: FormatConsole,
		Separator: naming.DefaultSeparator,
	}
}

// New returns a viper instance with defaults and environment overrides set.
// Callers bind flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("strict", d.Strict)
	v.SetDefault("tolerance", d.Tolerance)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("store_path", d.StorePath)
	v.SetDefault("character", d.Character)
	v.SetDefault("separator", d.Separator)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or rigsmith.{yaml,toml,json} from the working directory
// and the user config directory when path is empty. A missing default file
// is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rigsmith")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "rigsmith"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("tolerance must not be negative, got %g", c.Tolerance))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != FormatJSON && c.LogFormat != FormatConsole {
		errs = append(errs, fmt.Errorf("log_format must be %s or %s, got %q", FormatJSON, FormatConsole, c.LogFormat))
	}
	if c.Separator == "" {
		errs = append(errs, errors.New("separator must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logger builds the logger the config describes.
func (c Config) Logger() (*log.Logger, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	if c.LogFormat == FormatJSON {
		return log.New(level), nil
	}
	return log.NewConsole(level), nil
}
