package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".trueblame"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for settings.
const envPrefix = "TRUEBLAME"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	return Load(New(), configPath)
}

// Load reads the config file into v, which may already carry bound flags,
// and decodes the result.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
	}

	readErr := v.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	return Decode(v)
}

// New returns a viper instance with defaults and environment binding
// applied. Callers may bind flags to it before Decode.
func New() *viper.Viper {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	return v
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config

	unmarshalErr := v.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("analysis.workers", DefaultWorkers)
	v.SetDefault("analysis.max_processes", DefaultMaxProcesses)
	v.SetDefault("analysis.command_timeout", DefaultCommandTimeout)
	v.SetDefault("analysis.max_hops", DefaultMaxHops)

	v.SetDefault("repository.ignore_globs", []string{})
	v.SetDefault("repository.ignore_commits", []string{})

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	v.SetDefault("output.format", DefaultOutputFormat)
	v.SetDefault("output.path", "")
}
