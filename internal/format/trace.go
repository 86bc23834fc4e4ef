package format

import (
	"fmt"
	"strings"

	"github.com/jensroland/git-trueblame/internal/author"
	"github.com/jensroland/git-trueblame/internal/trueblame"
)

var stopReasons = map[trueblame.Stop]string{
	trueblame.StopFileUntouched: "the commit does not change this file",
	trueblame.StopNotAdded:      "the line is not an addition in the commit",
	trueblame.StopOriginal:      "no earlier line is similar enough; written here",
	trueblame.StopRootCommit:    "reached the root commit",
	trueblame.StopMaxHops:       "hop limit reached",
	trueblame.StopError:         "line unresolvable",
}

// Trace renders the walk behind an attribution: one box per rewrite
// followed, then the conclusion.
func Trace(a trueblame.Attribution, width int) string {
	var out []string

	file := a.Query.File
	if file == "" {
		file = a.Query.Path
	}
	header := fmt.Sprintf("%s:%d", file, a.Query.Line)
	if a.Query.Line == 0 {
		header = file
	}
	out = append(out, BoxLines(header, []string{
		expandTabs(a.Query.Text),
		"",
		fmt.Sprintf("blame says %s in %s", Bold.Sprint(name(a.Query.Fallback)), Yellow.Sprint(short(a.Query.Commit))),
	}, width))

	for i, h := range a.Hops {
		title := fmt.Sprintf("rewrite %d in %s", i+1, short(h.Commit))
		lines := []string{
			InlineDiff(h.PriorText, h.Text),
			"",
			fmt.Sprintf("similarity %.2f  %s:%d -> %s  %s", h.Score, h.PriorPath, h.PriorLine, h.Path, Dim.Sprint(editSummary(h.PriorText, h.Text))),
			fmt.Sprintf("previously %s in %s", Bold.Sprint(name(h.PriorOwner)), Yellow.Sprint(short(h.PriorHash))),
		}
		out = append(out, BoxLines(title, lines, width))
	}

	out = append(out, Conclusion(a))
	return strings.Join(out, "\n")
}

// Conclusion is the one-line verdict of an attribution.
func Conclusion(a trueblame.Attribution) string {
	if a.Err != nil {
		return fmt.Sprintf("%s %v; keeping %s", Red.Sprint("unresolvable:"), a.Err, Bold.Sprint(name(a.Author)))
	}
	reason := stopReasons[a.Stop]
	if reason == "" {
		reason = string(a.Stop)
	}
	return fmt.Sprintf("true author %s, %s in %s (%s)",
		Green.Sprint(name(a.Author)), Yellow.Sprint(short(a.Commit)), Cyan.Sprint(a.Path), Dim.Sprint(reason))
}

// BlameRow renders one line of true-blame output. The direct author is
// shown only when it differs from the true author.
func BlameRow(a trueblame.Attribution, nameWidth int) string {
	who := name(a.Author)
	direct := name(a.Query.Fallback)

	col := padOrTrunc(who, nameWidth)
	switch {
	case a.Err != nil:
		col = Red.Sprint(col)
	case direct != who:
		col = Green.Sprint(col)
	}

	note := ""
	if direct != who {
		note = Dim.Sprintf(" (blame: %s)", direct)
	}

	commit := short(a.Commit)
	if commit == "" {
		commit = strings.Repeat(" ", 8)
	}
	return fmt.Sprintf("%s %s %4d│ %s%s",
		Yellow.Sprint(commit), col, a.Query.Line, expandTabs(a.Query.Text), note)
}

func editSummary(before, after string) string {
	del, ins := EditCounts(before, after)
	return fmt.Sprintf("-%d +%d chars", del, ins)
}

func name(id *author.Identity) string {
	if id == nil {
		return "?"
	}
	return id.Name()
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
