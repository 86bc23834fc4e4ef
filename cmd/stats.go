package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jensroland/git-trueblame/internal/format"
	"github.com/jensroland/git-trueblame/internal/project"
	"github.com/jensroland/git-trueblame/internal/repo"
	"github.com/jensroland/git-trueblame/internal/report"
)

func newStatsCommand(opts *globalOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a stored SQLite report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := dbPath
			if path == "" {
				root, err := project.FindRoot(opts.repoDir)
				if err != nil {
					return fmt.Errorf("no --db given: %w", repo.ErrNotARepository)
				}
				path = project.NewPaths(root).ReportDB
			}

			st, err := report.ReadSQLiteStats(path)
			if err != nil {
				return err
			}
			return writeStats(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "report database (default .git/trueblame/report.db)")
	return cmd
}

func writeStats(w io.Writer, st *report.Stats) error {
	fmt.Fprintf(w, "%s %s, generated %s\n\n",
		format.Bold.Sprint("Report for"), format.Yellow.Sprint(shortHash(st.Revision)), humanize.Time(st.GeneratedAt))

	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.AppendRows([]table.Row{
		{"Lines", humanize.Comma(int64(st.TotalLines))},
		{"Files", humanize.Comma(int64(st.Files))},
		{"Origin commits", humanize.Comma(int64(st.Commits))},
		{"Followed past direct blame", humanize.Comma(int64(st.Rewalked))},
		{"Unresolved", humanize.Comma(int64(st.Unresolved))},
	})

	authors := table.NewWriter()
	authors.SetStyle(table.StyleLight)
	authors.AppendHeader(table.Row{"Author", "Lines", "Reclaimed"})
	for _, a := range st.Authors {
		authors.AppendRow(table.Row{a.DisplayName, humanize.Comma(int64(a.Lines)), humanize.Comma(int64(a.Reclaimed))})
	}

	_, err := fmt.Fprintf(w, "%s\n\n%s\n", summary.Render(), authors.Render())
	return err
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
