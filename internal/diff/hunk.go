package diff

import (
	"strings"

	"github.com/jensroland/git-trueblame/internal/similarity"
)

// Hunk is one @@ region of a file diff.
//
// PreImage holds removed and context lines, PostImage holds added and
// context lines. PreImage[i] is line PreImageStart+i of the old file.
type Hunk struct {
	PreImageStart int
	PreImage      []Line
	PostImage     []Line
}

// Match is a removed line chosen as the origin of an added line.
type Match struct {
	LineNumber int // 1-based, in the pre-image file
	Text       string
	Score      float64
}

func (h *Hunk) addRaw(raw string) {
	switch {
	case strings.HasPrefix(raw, "-"):
		h.PreImage = append(h.PreImage, Line{Kind: Removed, Text: raw[1:]})
	case strings.HasPrefix(raw, "+"):
		h.PostImage = append(h.PostImage, Line{Kind: Added, Text: raw[1:]})
	case strings.HasPrefix(raw, `\`):
		// "\ No newline at end of file" belongs to neither image
	default:
		l := Line{Kind: Context, Text: strings.TrimPrefix(raw, " ")}
		h.PreImage = append(h.PreImage, l)
		h.PostImage = append(h.PostImage, l)
	}
}

// ContainsPostImageLine reports whether the hunk adds a line equal to text.
// Context lines do not count.
func (h *Hunk) ContainsPostImageLine(text string) bool {
	for _, l := range h.PostImage {
		if l.Kind == Added && l.Text == text {
			return true
		}
	}
	return false
}

// PreImageLine returns the pre-image line with the given 1-based file line
// number, if it falls inside the hunk.
func (h *Hunk) PreImageLine(lineNumber int) (Line, bool) {
	i := lineNumber - h.PreImageStart
	if i < 0 || i >= len(h.PreImage) {
		return Line{}, false
	}
	return h.PreImage[i], true
}

// FindHighestSimilarity picks the removed line most similar to text. Only
// scores strictly above similarity.Threshold are considered; on a tie the
// earlier line wins.
func (h *Hunk) FindHighestSimilarity(text string) (Match, bool) {
	best := Match{Score: similarity.Threshold}
	found := false
	for i, l := range h.PreImage {
		if l.Kind != Removed {
			continue
		}
		s := similarity.Score(l.Text, text)
		if s > best.Score {
			best = Match{LineNumber: h.PreImageStart + i, Text: l.Text, Score: s}
			found = true
		}
	}
	return best, found
}
