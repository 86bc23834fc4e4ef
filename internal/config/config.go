// Package config loads git-trueblame settings from file, environment and
// defaults.
package config

import (
	"errors"
	"time"

	"github.com/jensroland/git-trueblame/internal/author"
)

// Config is the top-level configuration struct.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Authors    []author.Config  `mapstructure:"authors"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Output     OutputConfig     `mapstructure:"output"`
}

// AnalysisConfig holds resource knobs for a run.
type AnalysisConfig struct {
	Workers        int           `mapstructure:"workers"`
	MaxProcesses   int           `mapstructure:"max_processes"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	MaxHops        int           `mapstructure:"max_hops"`
}

// RepositoryConfig holds repository-wide exclusions.
type RepositoryConfig struct {
	IgnoreGlobs   []string `mapstructure:"ignore_globs"`
	IgnoreCommits []string `mapstructure:"ignore_commits"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig selects the report writer for analyze.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// Default values.
const (
	DefaultWorkers        = 0 // runtime.NumCPU()
	DefaultMaxProcesses   = 8
	DefaultCommandTimeout = 30 * time.Second
	DefaultMaxHops        = 1000
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultOutputFormat   = "table"
)

// Sentinel errors for config validation.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("analysis.workers must be non-negative")
	// ErrInvalidMaxProcesses indicates the process cap is not positive.
	ErrInvalidMaxProcesses = errors.New("analysis.max_processes must be positive")
	// ErrInvalidCommandTimeout indicates a negative timeout.
	ErrInvalidCommandTimeout = errors.New("analysis.command_timeout must be non-negative")
	// ErrInvalidMaxHops indicates the hop limit is not positive.
	ErrInvalidMaxHops = errors.New("analysis.max_hops must be positive")
	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("logging.level must be one of debug, info, warn, error")
	// ErrInvalidLogFormat indicates an unknown log encoding.
	ErrInvalidLogFormat = errors.New("logging.format must be text or json")
	// ErrMissingGitID indicates an author entry without git_id.
	ErrMissingGitID = errors.New("authors[].git_id is required")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	switch {
	case c.Analysis.Workers < 0:
		return ErrInvalidWorkers
	case c.Analysis.MaxProcesses <= 0:
		return ErrInvalidMaxProcesses
	case c.Analysis.CommandTimeout < 0:
		return ErrInvalidCommandTimeout
	case c.Analysis.MaxHops <= 0:
		return ErrInvalidMaxHops
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}

	for _, a := range c.Authors {
		if a.GitID == "" {
			return ErrMissingGitID
		}
	}
	return nil
}

// Policy builds the author attribution policy described by the config.
func (c *Config) Policy() (author.Policy, error) {
	reg, err := author.NewRegistry(c.Authors, c.Repository.IgnoreGlobs)
	if err != nil {
		return author.Policy{}, err
	}
	return author.Policy{Resolver: reg, IgnoreCommits: author.IgnoreCommits(c.Repository.IgnoreCommits)}, nil
}
