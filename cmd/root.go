// Package cmd implements the git-trueblame command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jensroland/git-trueblame/internal/format"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath  string
	repoDir     string
	logLevel    string
	logFormat   string
	metricsAddr string
	noColor     bool
}

// NewRootCommand builds the git-trueblame command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "git-trueblame",
		Short: "git blame that sees through renames and small rewrites",
		Long: `git-trueblame attributes each line to the author who first wrote it.

A line that was only reformatted, renamed or moved is followed back
through history to the commit where its content was introduced.

Commands:
  blame     True blame of one file
  trace     Explain how one line was attributed
  analyze   Attribute every tracked line and write a report
  stats     Summarize a stored SQLite report`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.noColor {
				format.SetColor(false)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default .trueblame.yaml in the repository, CWD or $HOME)")
	pf.StringVarP(&opts.repoDir, "repo", "C", "", "run as if started in this directory")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	pf.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newBlameCommand(opts))
	root.AddCommand(newTraceCommand(opts))
	root.AddCommand(newAnalyzeCommand(opts))
	root.AddCommand(newStatsCommand(opts))
	root.AddCommand(newVersionCommand(version))

	return root
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "git-trueblame %s\n", version)
		},
	}
}
