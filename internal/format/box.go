package format

import (
	"fmt"
	"regexp"
	"strings"
)

const minBoxWidth = 30

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Box renders text inside a bordered box of the given total width, with
// word wrapping. Blank lines in text separate paragraphs.
func Box(title, text string, width int) string {
	innerW := innerWidth(width)

	var wrapped []string
	for _, paragraph := range strings.Split(text, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			wrapped = append(wrapped, "")
			continue
		}
		wrapped = append(wrapped, wordWrap(paragraph, innerW)...)
	}
	return BoxLines(title, wrapped, width)
}

// BoxLines renders pre-formatted lines inside a bordered box. Lines may
// carry color escapes; they are padded by visible width and never
// truncated mid-escape.
func BoxLines(title string, lines []string, width int) string {
	innerW := innerWidth(width)

	var output []string

	if title != "" {
		lbl := fmt.Sprintf("─ %s ", title)
		fill := innerW + 2 - runeLen(lbl)
		if fill < 0 {
			fill = 0
		}
		output = append(output, fmt.Sprintf("┌%s%s┐", lbl, strings.Repeat("─", fill)))
	} else {
		output = append(output, fmt.Sprintf("┌%s┐", strings.Repeat("─", innerW+2)))
	}

	for _, line := range lines {
		output = append(output, fmt.Sprintf("│ %s │", pad(line, innerW)))
	}

	output = append(output, fmt.Sprintf("└%s┘", strings.Repeat("─", innerW+2)))

	return strings.Join(output, "\n")
}

func innerWidth(width int) int {
	if w := width - 4; w >= minBoxWidth {
		return w
	}
	return minBoxWidth
}

// pad right-pads s to w visible columns. Plain text longer than w is
// truncated; colored text is left as is.
func pad(s string, w int) string {
	visible := ansiEscape.ReplaceAllString(s, "")
	if visible == s {
		return padOrTrunc(s, w)
	}
	if n := runeLen(visible); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// wordWrap wraps text to the given width, breaking at word boundaries.
func wordWrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if runeLen(current)+1+runeLen(word) <= width {
			current += " " + word
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	lines = append(lines, current)
	return lines
}

func padOrTrunc(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	return s + strings.Repeat(" ", w-len(r))
}

func runeLen(s string) int {
	return len([]rune(s))
}
