package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jensroland/git-trueblame/internal/author"
	"github.com/jensroland/git-trueblame/internal/config"
	"github.com/jensroland/git-trueblame/internal/git"
	"github.com/jensroland/git-trueblame/internal/observability"
	"github.com/jensroland/git-trueblame/internal/project"
	"github.com/jensroland/git-trueblame/internal/repo"
	"github.com/jensroland/git-trueblame/internal/trueblame"
)

// flagKeys maps command line flags onto config keys. Only flags a
// command actually defines are bound.
var flagKeys = map[string]string{
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"workers":       "analysis.workers",
	"max-processes": "analysis.max_processes",
	"timeout":       "analysis.command_timeout",
	"max-hops":      "analysis.max_hops",
	"format":        "output.format",
	"output":        "output.path",
}

// session is everything one command invocation needs to talk to a
// repository.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	paths   project.Paths
	git     git.Client
	repo    *repo.Repo
	policy  author.Policy
	metrics *observability.Metrics
	server  *observability.MetricsServer
}

func openSession(cmd *cobra.Command, opts *globalOptions) (*session, error) {
	root, err := project.FindRoot(opts.repoDir)
	if err != nil {
		dir := opts.repoDir
		if dir == "" {
			dir = "."
		}
		return nil, fmt.Errorf("%s: %w", dir, repo.ErrNotARepository)
	}

	cfg, err := loadConfig(cmd, opts, root)
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, paths: project.NewPaths(root)}

	if opts.metricsAddr != "" {
		s.server, err = observability.ServeMetrics(opts.metricsAddr, logger)
		if err != nil {
			return nil, err
		}
		s.metrics, err = observability.NewMetrics(s.server.Provider())
	} else {
		s.metrics, err = observability.NewMetrics(nil)
	}
	if err != nil {
		s.Close()
		return nil, err
	}

	s.policy, err = cfg.Policy()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("authors: %w", err)
	}

	s.repo, err = repo.Open(root)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.repo.Logger = logger

	s.git = git.Client{Runner: git.NewCLI(root, cfg.Analysis.MaxProcesses, cfg.Analysis.CommandTimeout, s.metrics)}

	logger.Debug("session opened", "root", root, "workers", cfg.Analysis.Workers,
		"max_processes", cfg.Analysis.MaxProcesses, "max_hops", cfg.Analysis.MaxHops)
	return s, nil
}

// loadConfig layers flags over the config file. Without --config a
// .trueblame.yaml at the repository root takes precedence over the
// CWD/$HOME search.
func loadConfig(cmd *cobra.Command, opts *globalOptions, root string) (*config.Config, error) {
	v := config.New()
	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	path := opts.configPath
	if path == "" {
		candidate := filepath.Join(root, ".trueblame.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	return config.Load(v, path)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.Root().PersistentFlags().Lookup(name)
		}
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func (s *session) resolver() *trueblame.Resolver {
	r := trueblame.NewResolver(s.git, s.policy, s.metrics)
	r.MaxHops = s.cfg.Analysis.MaxHops
	r.Logger = s.logger
	r.Observer = s.metrics
	return r
}

func (s *session) engine() *trueblame.Engine {
	return &trueblame.Engine{Resolver: s.resolver(), Workers: s.cfg.Analysis.Workers, Logger: s.logger}
}

// Close stops the metrics endpoint, if any.
func (s *session) Close() {
	if s.server == nil {
		return
	}
	if err := s.server.Close(); err != nil {
		s.logger.Warn("closing metrics server", "error", err)
	}
}

// repoPath turns a command line path into a path relative to the
// repository root. Paths are tried relative to the working directory
// first, then to the root.
func (s *session) repoPath(arg string) string {
	abs := arg
	if !filepath.IsAbs(abs) {
		wd, err := os.Getwd()
		if err != nil {
			return filepath.ToSlash(filepath.Clean(arg))
		}
		abs = filepath.Join(wd, arg)
	}
	rel, err := filepath.Rel(s.paths.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(arg))
	}
	return filepath.ToSlash(rel)
}
