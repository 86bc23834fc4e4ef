// Package diff parses the unified diff printed by `git show` into files
// and hunks.
package diff

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind tags a line of a hunk.
type Kind int

const (
	Context Kind = iota
	Added
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "context"
	}
}

// Line is one hunk line with its marker stripped.
type Line struct {
	Kind Kind
	Text string
}

// Diff is the change set of a single file within a commit.
type Diff struct {
	PreImagePath  string // empty when the header could not be parsed
	PostImagePath string
	Hunks         []*Hunk
}

// FindMatchingHunk returns the first hunk that adds a line equal to text.
func (d *Diff) FindMatchingHunk(text string) *Hunk {
	for _, h := range d.Hunks {
		if h.ContainsPostImageLine(text) {
			return h
		}
	}
	return nil
}

const headerPrefix = "diff --git "

var (
	pathsPattern = regexp.MustCompile(`^a/(.+?) b/(.+)$`)
	hunkPattern  = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@.*$`)
)

// Parse splits raw `git show` output into per-file diffs, in order.
//
// Anything before the first "diff --git" line is ignored. Parsing never
// fails: a file header without the a/ b/ paths yields a Diff with empty
// paths, and a malformed hunk header drops that hunk's lines until the
// next valid header.
func Parse(raw string) []*Diff {
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")

	var diffs []*Diff
	var cur *Diff
	var hunk *Hunk

	for _, line := range lines {
		if strings.HasPrefix(line, headerPrefix) {
			cur = parseHeader(line[len(headerPrefix):])
			hunk = nil
			diffs = append(diffs, cur)
			continue
		}
		if cur == nil {
			continue
		}

		if strings.HasPrefix(line, "@@") {
			hunk = parseHunkHeader(line)
			if hunk != nil {
				cur.Hunks = append(cur.Hunks, hunk)
			}
			continue
		}
		if hunk == nil {
			// extended header lines (index, ---, +++, rename from, ...)
			continue
		}
		hunk.addRaw(line)
	}

	return diffs
}

func parseHeader(rest string) *Diff {
	d := &Diff{}
	if m := pathsPattern.FindStringSubmatch(rest); m != nil {
		d.PreImagePath = m[1]
		d.PostImagePath = m[2]
	}
	return d
}

func parseHunkHeader(line string) *Hunk {
	m := hunkPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	start, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &Hunk{PreImageStart: start}
}
