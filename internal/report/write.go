package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for an output format that has no writer.
var ErrUnknownFormat = errors.New("unknown output format")

// Format names an output format.
type Format string

const (
	FormatTable  Format = "table"
	FormatYAML   Format = "yaml"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatYAML, FormatJSON, FormatSQLite:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownFormat)
	}
}

// WriteYAML writes r as a YAML document.
func WriteYAML(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteTable renders author and commit summaries for a terminal.
func WriteTable(w io.Writer, r *Report) error {
	authors := table.NewWriter()
	authors.SetStyle(table.StyleLight)
	authors.SetTitle("Authors at %s", short(r.Revision))
	authors.AppendHeader(table.Row{"Author", "Lines", "Share", "Reclaimed"})
	for _, a := range r.Authors {
		authors.AppendRow(table.Row{
			a.DisplayName,
			humanize.Comma(int64(a.Lines)),
			percent(a.Lines, r.TotalLines),
			humanize.Comma(int64(a.Reclaimed)),
		})
	}
	authors.AppendFooter(table.Row{
		"Total", humanize.Comma(int64(r.TotalLines)), "",
		fmt.Sprintf("%s unresolved", humanize.Comma(int64(r.Unresolved))),
	})

	commits := table.NewWriter()
	commits.SetStyle(table.StyleLight)
	commits.SetTitle("Origin commits")
	commits.AppendHeader(table.Row{"Commit", "Date", "Author", "Lines", "Title"})
	for _, c := range r.Commits {
		date := ""
		if !c.Date.IsZero() {
			date = c.Date.Format("2006-01-02")
		}
		commits.AppendRow(table.Row{short(c.Hash), date, c.Author, humanize.Comma(int64(c.Lines)), c.Title})
	}

	_, err := fmt.Fprintf(w, "%s\n\n%s\n", authors.Render(), commits.Render())
	return err
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(n)/float64(total))
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
