package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/picogrid/railops-sim/pkg/logger"
	"github.com/picogrid/railops-sim/pkg/simulation"
)

// EnvPrefix is prepended to environment variable overrides (RAILOPS_SEED, ...)
const EnvPrefix = "RAILOPS"

// Setting keys
const (
	KeyCompletionDelay  = "completion_delay"
	KeySeed             = "seed"
	KeyLogLevel         = "log_level"
	KeyNoColor          = "no_color"
	KeyStaleCompletions = "stale_completions"
)

// Settings holds the CLI configuration
type Settings struct {
	CompletionDelay  time.Duration `mapstructure:"completion_delay" yaml:"completion_delay"`
	Seed             int64         `mapstructure:"seed" yaml:"seed"`
	LogLevel         string        `mapstructure:"log_level" yaml:"log_level"`
	NoColor          bool          `mapstructure:"no_color" yaml:"no_color"`
	StaleCompletions bool          `mapstructure:"stale_completions" yaml:"stale_completions"`
}

// Dir returns the per-user configuration directory
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".railops-sim"), nil
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyCompletionDelay, simulation.DefaultCompletionDelay)
	v.SetDefault(KeySeed, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyNoColor, false)
	v.SetDefault(KeyStaleCompletions, false)
}

// Configure points v at the config file (or the default search path) and
// enables RAILOPS_* environment overrides. A missing config file is not an
// error.
func Configure(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	logger.Debugf("Loaded config from: %s", v.ConfigFileUsed())
	return nil
}

// Load decodes and validates the settings held by v
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error parsing settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &s, nil
}

// Validate checks the settings for values the controller cannot use
func (s *Settings) Validate() error {
	if s.CompletionDelay < 0 {
		return fmt.Errorf("%s must not be negative", KeyCompletionDelay)
	}
	if s.CompletionDelay > time.Minute {
		return fmt.Errorf("%s must be at most 1m", KeyCompletionDelay)
	}
	switch strings.ToLower(s.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("unknown %s %q", KeyLogLevel, s.LogLevel)
	}
	return nil
}

// ControllerOptions converts the settings into controller options
func (s *Settings) ControllerOptions() []simulation.Option {
	return []simulation.Option{
		simulation.WithCompletionDelay(s.CompletionDelay),
		simulation.WithRandSource(simulation.NewRandSource(s.Seed)),
		simulation.WithStaleCompletions(s.StaleCompletions),
	}
}
