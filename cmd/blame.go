package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jensroland/git-trueblame/internal/format"
	"github.com/jensroland/git-trueblame/internal/lineset"
	"github.com/jensroland/git-trueblame/internal/report"
	"github.com/jensroland/git-trueblame/internal/trueblame"
)

const maxNameWidth = 20

type blameOptions struct {
	lines      string
	rev        string
	jsonOutput bool
}

func newBlameCommand(opts *globalOptions) *cobra.Command {
	bo := &blameOptions{}

	cmd := &cobra.Command{
		Use:   "blame <file>",
		Short: "True blame of one file",
		Long: `Blame every line of a file, then follow each line back through
renames and small rewrites to the commit that introduced its content.

Examples:
  git-trueblame blame main.go
  git-trueblame blame -L 10-20 main.go
  git-trueblame blame -L 42+3 --rev v1.2.0 main.go`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBlame(cmd, opts, bo, args[0])
		},
	}

	cmd.Flags().StringVarP(&bo.lines, "lines", "L", "", "lines to show: 42, 10-20, 10+5 or a comma list")
	cmd.Flags().StringVar(&bo.rev, "rev", "HEAD", "revision to blame")
	cmd.Flags().BoolVar(&bo.jsonOutput, "json", false, "output line records as JSON")
	cmd.Flags().Int("workers", 0, "parallel line resolutions (0 = number of CPUs)")

	return cmd
}

func runBlame(cmd *cobra.Command, opts *globalOptions, bo *blameOptions, arg string) error {
	selected, err := lineset.Parse(bo.lines)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	path := s.repoPath(arg)

	queries, err := trueblame.QueriesForFile(ctx, s.git, s.policy, bo.rev, path)
	if err != nil {
		return err
	}

	total := 0
	for _, q := range queries {
		total = max(total, q.Line)
	}
	if err := selected.Within(total); err != nil {
		return fmt.Errorf("%s has %d lines: %w", path, total, err)
	}
	if !selected.IsEmpty() {
		queries = slices.DeleteFunc(queries, func(q trueblame.Query) bool {
			return !selected.Contains(q.Line)
		})
	}

	eng := s.engine()
	atts := eng.Run(ctx, queries)
	s.logger.Debug("blame finished", "path", path, "lines", len(atts), "cached_commits", eng.Resolver.Diffs.Len())

	if bo.jsonOutput {
		return writeLineRecords(cmd.OutOrStdout(), bo.rev, atts)
	}
	return writeBlameRows(cmd.OutOrStdout(), atts)
}

func writeBlameRows(w io.Writer, atts []trueblame.Attribution) error {
	width := 0
	for _, a := range atts {
		width = max(width, len([]rune(name(a))))
	}
	width = min(width, maxNameWidth)

	for _, a := range atts {
		if _, err := fmt.Fprintln(w, format.BlameRow(a, width)); err != nil {
			return err
		}
	}
	return nil
}

func writeLineRecords(w io.Writer, rev string, atts []trueblame.Attribution) error {
	r := report.Build(rev, atts, nil)
	lines := r.Lines
	if lines == nil {
		lines = []report.LineRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(lines)
}

func name(a trueblame.Attribution) string {
	if a.Author == nil {
		return ""
	}
	return a.Author.Name()
}
