package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jensroland/git-trueblame/internal/format"
	"github.com/jensroland/git-trueblame/internal/lineset"
	"github.com/jensroland/git-trueblame/internal/trueblame"
)

func newTraceCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <commit> <file> <line>",
		Short: "Explain how one line was attributed",
		Long: `Resolve a single line as it appears in <file> at <commit> and show
every rewrite followed on the way back, with a character diff of each.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := strconv.Atoi(args[2])
			if err != nil || line < 1 {
				return fmt.Errorf("line %q: %w", args[2], lineset.ErrLineOutOfRange)
			}
			return runTrace(cmd, opts, args[0], args[1], line)
		},
	}
	cmd.Flags().Int("max-hops", 0, "stop following a line after this many rewrites")
	return cmd
}

func runTrace(cmd *cobra.Command, opts *globalOptions, rev, arg string, line int) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	path := s.repoPath(arg)

	commit, err := s.git.ResolveRevision(ctx, rev)
	if err != nil {
		return err
	}

	queries, err := trueblame.QueriesForFile(ctx, s.git, s.policy, commit, path)
	if err != nil {
		return err
	}

	var q *trueblame.Query
	for i := range queries {
		if queries[i].Line == line {
			q = &queries[i]
			break
		}
	}
	if q == nil {
		return fmt.Errorf("%s:%d at %s: %w", path, line, rev, lineset.ErrLineOutOfRange)
	}

	a := s.resolver().Trace(ctx, *q)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), format.Trace(a, format.TermWidth()))
	return err
}
