package format

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// InlineDiff renders the character-level changes that turn before into
// after on a single line. Deleted runs are red and inserted runs green;
// without color they are marked [-like this-] and {+like this+}.
func InlineDiff(before, after string) string {
	before = expandTabs(before)
	after = expandTabs(after)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			if ColorEnabled() {
				b.WriteString(Red.Sprint(d.Text))
			} else {
				b.WriteString("[-" + d.Text + "-]")
			}
		case diffmatchpatch.DiffInsert:
			if ColorEnabled() {
				b.WriteString(Green.Sprint(d.Text))
			} else {
				b.WriteString("{+" + d.Text + "+}")
			}
		}
	}
	return b.String()
}

// EditCounts returns how many runes were deleted and inserted between
// before and after.
func EditCounts(before, after string) (deleted, inserted int) {
	dmp := diffmatchpatch.New()
	for _, d := range dmp.DiffMain(before, after, false) {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			deleted += runeLen(d.Text)
		case diffmatchpatch.DiffInsert:
			inserted += runeLen(d.Text)
		}
	}
	return deleted, inserted
}

func expandTabs(text string) string {
	return strings.ReplaceAll(text, "\t", "    ")
}
