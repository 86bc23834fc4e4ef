// Package lineset parses and holds line selections such as "5,7-9,20+3".
package lineset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrLineOutOfRange is returned when a selection names a line the file
// does not have.
var ErrLineOutOfRange = errors.New("line out of range")

// LineSet is a set of 1-based line numbers, stored as a sorted,
// deduplicated slice. The zero value selects nothing.
type LineSet struct {
	lines []int
}

// New creates a LineSet from individual line numbers.
func New(lines ...int) LineSet {
	return LineSet{lines: dedupSorted(lines)}
}

// FromRange creates a LineSet covering a contiguous range [start, end].
func FromRange(start, end int) LineSet {
	if start <= 0 || end < start {
		return LineSet{}
	}
	lines := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		lines = append(lines, i)
	}
	return LineSet{lines: lines}
}

// Parse reads a comma-separated selection. Each item is a line "5", an
// inclusive range "5-7", or a start plus count of following lines "5+2"
// (lines 5 to 7).
func Parse(s string) (LineSet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LineSet{}, nil
	}

	var lines []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		start, end, err := parseItem(part)
		if err != nil {
			return LineSet{}, err
		}
		for i := start; i <= end; i++ {
			lines = append(lines, i)
		}
	}

	return LineSet{lines: dedupSorted(lines)}, nil
}

func parseItem(part string) (int, int, error) {
	if a, b, ok := strings.Cut(part, "-"); ok {
		start, err := lineNumber(a)
		if err != nil {
			return 0, 0, err
		}
		end, err := lineNumber(b)
		if err != nil {
			return 0, 0, err
		}
		if end < start {
			return 0, 0, fmt.Errorf("invalid range %d-%d", start, end)
		}
		return start, end, nil
	}
	if a, b, ok := strings.Cut(part, "+"); ok {
		start, err := lineNumber(a)
		if err != nil {
			return 0, 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(b))
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("invalid line count %q", b)
		}
		return start, start + n, nil
	}
	n, err := lineNumber(part)
	return n, n, err
}

func lineNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid line number %q", strings.TrimSpace(s))
	}
	if n <= 0 {
		return 0, fmt.Errorf("line numbers start at 1, got %d", n)
	}
	return n, nil
}

// String returns the compact notation: "5,7-8,12".
func (ls LineSet) String() string {
	if len(ls.lines) == 0 {
		return ""
	}

	var parts []string
	i := 0
	for i < len(ls.lines) {
		start := ls.lines[i]
		end := start
		for i+1 < len(ls.lines) && ls.lines[i+1] == end+1 {
			end = ls.lines[i+1]
			i++
		}
		if start == end {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, end))
		}
		i++
	}
	return strings.Join(parts, ",")
}

// IsEmpty returns true if the set contains no lines.
func (ls LineSet) IsEmpty() bool {
	return len(ls.lines) == 0
}

// Lines returns the sorted line numbers.
func (ls LineSet) Lines() []int {
	return ls.lines
}

// Max returns the largest line number, or 0 if empty.
func (ls LineSet) Max() int {
	if len(ls.lines) == 0 {
		return 0
	}
	return ls.lines[len(ls.lines)-1]
}

// Contains returns true if the given line number is in the set.
func (ls LineSet) Contains(line int) bool {
	i := sort.SearchInts(ls.lines, line)
	return i < len(ls.lines) && ls.lines[i] == line
}

// Within checks that every selected line exists in a file of n lines.
func (ls LineSet) Within(n int) error {
	if m := ls.Max(); m > n {
		return fmt.Errorf("line %d of %d: %w", m, n, ErrLineOutOfRange)
	}
	return nil
}

func dedupSorted(lines []int) []int {
	if len(lines) == 0 {
		return nil
	}
	sorted := make([]int, len(lines))
	copy(sorted, lines)
	sort.Ints(sorted)

	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
