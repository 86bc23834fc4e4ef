package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hunkOf(start int, raw ...string) *Hunk {
	h := &Hunk{PreImageStart: start}
	for _, r := range raw {
		h.addRaw(r)
	}
	return h
}

func TestContainsPostImageLine(t *testing.T) {
	h := hunkOf(1, " keep", "-old value", "+new value", "+another")

	for _, added := range []string{"new value", "another"} {
		assert.True(t, h.ContainsPostImageLine(added), added)
		mutated := added[:len(added)-1] + "X"
		assert.False(t, h.ContainsPostImageLine(mutated), mutated)
	}

	assert.False(t, h.ContainsPostImageLine("keep"), "context lines are not additions")
	assert.False(t, h.ContainsPostImageLine("old value"))
	assert.False(t, h.ContainsPostImageLine("+new value"), "marker is not part of the text")
}

func TestFindMatchingHunkOrder(t *testing.T) {
	d := &Diff{Hunks: []*Hunk{
		hunkOf(1, "-a", "+other"),
		hunkOf(10, "-b", "+dup"),
		hunkOf(20, "-c", "+dup"),
	}}
	assert.Same(t, d.Hunks[1], d.FindMatchingHunk("dup"))
	assert.Nil(t, d.FindMatchingHunk("missing"))
}

func TestFindHighestSimilarity(t *testing.T) {
	h := hunkOf(10,
		" context line",
		"-int total = computeSum(values);",
		"-unrelated();",
		"+int total = computeSum(vals);",
	)

	m, ok := h.FindHighestSimilarity("int total = computeSum(vals);")
	require.True(t, ok)
	assert.Equal(t, 11, m.LineNumber, "start + index within the pre-image")
	assert.Equal(t, "int total = computeSum(values);", m.Text)
	assert.Greater(t, m.Score, 0.6)
}

func TestFindHighestSimilarityPicksBest(t *testing.T) {
	h := hunkOf(1,
		"-abcdefgXYZ", // distance 2 -> 0.8
		"-abcdefghiX", // distance 1 -> 0.9
		"-abcdeXYhiZ", // distance 2 -> 0.8
		"+abcdefghiZ",
	)
	m, ok := h.FindHighestSimilarity("abcdefghiZ")
	require.True(t, ok)
	assert.Equal(t, 2, m.LineNumber)
}

func TestFindHighestSimilarityTieKeepsFirst(t *testing.T) {
	h := hunkOf(5, "-aaaaaaaaaX", "-aaaaaaaaaY", "+aaaaaaaaaa")
	m, ok := h.FindHighestSimilarity("aaaaaaaaaa")
	require.True(t, ok)
	assert.Equal(t, 5, m.LineNumber)
}

func TestFindHighestSimilarityThresholdIsExclusive(t *testing.T) {
	// 1 - 2/5 = 0.6 exactly
	h := hunkOf(1, "-abcde", "+abcxy")
	_, ok := h.FindHighestSimilarity("abcxy")
	assert.False(t, ok)
}

func TestFindHighestSimilarityIgnoresContext(t *testing.T) {
	h := hunkOf(1, " same text", "+same text!")
	_, ok := h.FindHighestSimilarity("same text!")
	assert.False(t, ok)
}
