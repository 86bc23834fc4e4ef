package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jensroland/git-trueblame/internal/report"
	"github.com/jensroland/git-trueblame/internal/trueblame"
)

func newAnalyzeCommand(opts *globalOptions) *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Attribute every tracked line and write a report",
		Long: `Blame every tracked text file at a revision, resolve each line to its
true author and summarize the result per author, commit and file.

Paths matching repository.ignore_globs are skipped. The sqlite format
writes to .git/trueblame/report.db unless --output is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts, rev)
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "HEAD", "revision to analyze")
	cmd.Flags().String("format", "", "output format: table, yaml, json or sqlite")
	cmd.Flags().StringP("output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().Int("workers", 0, "parallel line resolutions (0 = number of CPUs)")
	cmd.Flags().Int("max-processes", 0, "concurrent git subprocesses")
	cmd.Flags().Duration("timeout", 0, "kill a git subprocess after this long")
	cmd.Flags().Int("max-hops", 0, "stop following a line after this many rewrites")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *globalOptions, rev string) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	outFormat, err := report.ParseFormat(s.cfg.Output.Format)
	if err != nil {
		return err
	}

	hash, err := s.repo.ResolveRevision(rev)
	if err != nil {
		return err
	}
	files, err := s.repo.TrackedFiles(hash, s.cfg.Repository.IgnoreGlobs)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	start := time.Now()

	queries, err := s.collectQueries(ctx, hash, files)
	if err != nil {
		return err
	}
	s.logger.Info("blamed files", "revision", hash, "files", len(files), "lines", len(queries))

	eng := s.engine()
	atts := eng.Run(ctx, queries)
	if err := ctx.Err(); err != nil {
		return err
	}

	r := report.Build(hash, atts, s.repo)
	s.logger.Info("analysis finished",
		"lines", r.TotalLines, "unresolved", r.Unresolved, "commits", len(r.Commits),
		"cached_commits", eng.Resolver.Diffs.Len(), "elapsed", time.Since(start).Round(time.Millisecond))

	return s.writeReport(cmd.OutOrStdout(), outFormat, r)
}

// collectQueries blames files in parallel. A file git cannot blame is
// logged and skipped.
func (s *session) collectQueries(ctx context.Context, hash string, files []string) ([]trueblame.Query, error) {
	perFile := make([][]trueblame.Query, len(files))

	workers := s.cfg.Analysis.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			qs, err := trueblame.QueriesForFile(gctx, s.git, s.policy, hash, f)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("skipping file", "path", f, "error", err)
				return nil
			}
			perFile[i] = qs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []trueblame.Query
	for _, qs := range perFile {
		all = append(all, qs...)
	}
	return all, nil
}

func (s *session) writeReport(stdout io.Writer, f report.Format, r *report.Report) error {
	if f == report.FormatSQLite {
		path := s.cfg.Output.Path
		if path == "" {
			path = s.paths.ReportDB
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := report.WriteSQLite(path, r); err != nil {
			return err
		}
		_, err := fmt.Fprintf(stdout, "wrote %s\n", path)
		return err
	}

	w := stdout
	if s.cfg.Output.Path != "" {
		file, err := os.Create(s.cfg.Output.Path)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	switch f {
	case report.FormatYAML:
		return report.WriteYAML(w, r)
	case report.FormatJSON:
		return report.WriteJSON(w, r)
	default:
		return report.WriteTable(w, r)
	}
}
