package git

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoBlameData is returned when git blame printed no line records.
var ErrNoBlameData = errors.New("no blame data")

// BlameLine is one record of `git blame --line-porcelain`.
type BlameLine struct {
	Commit      string // 40-char SHA
	OrigLine    int    // 1-based line number in Filename at Commit
	Line        int    // 1-based line number in the blamed revision
	AuthorName  string
	AuthorEmail string
	Filename    string // path of the line's file at Commit
	Text        string
}

// IsUncommitted returns true if the line has not been committed yet.
func (b BlameLine) IsUncommitted() bool {
	return strings.TrimLeft(b.Commit, "0") == ""
}

// BlameFile blames every line of path at rev, ignoring whitespace changes.
func (c Client) BlameFile(ctx context.Context, rev, path string) ([]BlameLine, error) {
	out, err := c.Runner.Run(ctx, "blame", "-w", "--line-porcelain", rev, "--", path)
	if err != nil {
		return nil, fmt.Errorf("blame %s at %s: %w", path, rev, err)
	}
	return parseLinePorcelain(string(out)), nil
}

// BlamePrior blames a single line of path one generation before hash,
// i.e. at hash^.
func (c Client) BlamePrior(ctx context.Context, hash, path string, line int) (BlameLine, error) {
	out, err := c.Runner.Run(ctx,
		"blame", "-w", "--line-porcelain", hash+"^", "-L", fmt.Sprintf("%d,+1", line), "--", path)
	if err != nil {
		return BlameLine{}, fmt.Errorf("blame %s:%d before %s: %w", path, line, hash, err)
	}
	lines := parseLinePorcelain(string(out))
	if len(lines) == 0 {
		return BlameLine{}, fmt.Errorf("blame %s:%d before %s: %w", path, line, hash, ErrNoBlameData)
	}
	return lines[0], nil
}

// parseLinePorcelain parses git blame --line-porcelain output.
//
// Line porcelain repeats the full header for every line:
//
//	<40-byte SHA> <orig-line> <final-line> [<num-lines>]
//	author <name>
//	author-mail <<email>>
//	...
//	filename <path>
//	\t<actual line content>
//
// A record ends with its tab-prefixed content line.
func parseLinePorcelain(out string) []BlameLine {
	var lines []BlameLine
	var cur *BlameLine

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "\t") {
			if cur != nil {
				cur.Text = line[1:]
				lines = append(lines, *cur)
				cur = nil
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "author-mail "):
			if cur != nil {
				cur.AuthorEmail = strings.Trim(line[len("author-mail "):], "<>")
			}
			continue
		case strings.HasPrefix(line, "author "):
			if cur != nil {
				cur.AuthorName = line[len("author "):]
			}
			continue
		case strings.HasPrefix(line, "filename "):
			if cur != nil {
				cur.Filename = line[len("filename "):]
			}
			continue
		}

		// SHA line: <40-char sha> <orig-line> <final-line> [<num-lines>]
		fields := strings.Fields(line)
		if len(fields) >= 3 && len(fields[0]) == 40 && isHex(fields[0]) {
			orig, err1 := strconv.Atoi(fields[1])
			final, err2 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil {
				continue
			}
			cur = &BlameLine{Commit: fields[0], OrigLine: orig, Line: final}
		}
	}

	return lines
}

func isHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
