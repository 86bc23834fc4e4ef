// Package similarity scores how close a removed diff line is to a line
// that replaced it.
package similarity

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Threshold is the score a removed line must strictly exceed to count as
// the origin of an added line.
const Threshold = 0.6

// Score returns 1 - distance/len(removed), where distance is the
// Levenshtein distance between the two strings and lengths are in runes.
//
// The score is normalized by the removed line only, so Score(a, b) and
// Score(b, a) differ whenever the lengths differ. An empty removed line
// scores -Inf.
func Score(removed, target string) float64 {
	n := utf8.RuneCountInString(removed)
	if n == 0 {
		return math.Inf(-1)
	}
	d := levenshtein.ComputeDistance(removed, target)
	return 1 - float64(d)/float64(n)
}

// Qualifies reports whether score is strictly above Threshold.
func Qualifies(score float64) bool {
	return score > Threshold
}
