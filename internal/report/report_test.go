package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jensroland/git-trueblame/internal/author"
	"github.com/jensroland/git-trueblame/internal/repo"
	"github.com/jensroland/git-trueblame/internal/trueblame"
)

var (
	alice = &author.Identity{GitID: "alice", DisplayName: "Alice A"}
	bob   = &author.Identity{GitID: "bob"}
	day   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fakeMeta map[string]repo.CommitInfo

func (m fakeMeta) CommitInfo(hash string) repo.CommitInfo {
	if info, ok := m[hash]; ok {
		return info
	}
	return repo.CommitInfo{Hash: hash}
}

func sampleAttributions() []trueblame.Attribution {
	return []trueblame.Attribution{
		{
			Query:  trueblame.Query{Commit: "c2", Path: "b.go", File: "b.go", Line: 1, Text: "x := 1", Fallback: bob},
			Author: alice, Commit: "c1", Path: "a.go", Stop: trueblame.StopOriginal,
			Hops: []trueblame.Hop{{Commit: "c2"}},
		},
		{
			Query:  trueblame.Query{Commit: "c2", Path: "b.go", File: "b.go", Line: 2, Text: "y := 2", Fallback: bob},
			Author: bob, Commit: "c2", Path: "b.go", Stop: trueblame.StopOriginal,
		},
		{
			Query:  trueblame.Query{Commit: "c0", Path: "gen.go", File: "gen.go", Line: 1, Text: "// generated", Fallback: author.Unknown},
			Author: author.Unknown, Commit: "c0", Path: "gen.go", Stop: trueblame.StopOriginal,
		},
		{
			Query:  trueblame.Query{Commit: "c3", Path: "b.go", File: "b.go", Line: 3, Text: "z := 3", Fallback: bob},
			Author: bob, Commit: "c3", Path: "b.go", Stop: trueblame.StopError, Err: errors.New("git blame: timeout"),
		},
	}
}

func TestBuild(t *testing.T) {
	meta := fakeMeta{
		"c1": {Hash: "c1", Date: day, Title: "add a"},
		"c2": {Hash: "c2", Date: day.Add(-time.Hour), Title: "rename"},
	}
	r := Build("deadbeef", sampleAttributions(), meta)

	assert.Equal(t, "deadbeef", r.Revision)
	assert.Equal(t, 4, r.TotalLines)
	assert.Equal(t, 1, r.Unresolved)

	require.Len(t, r.Authors, 3)
	assert.Equal(t, AuthorSummary{GitID: "bob", DisplayName: "bob", Lines: 2}, r.Authors[0])
	assert.Equal(t, author.Unknown.GitID, r.Authors[1].GitID)
	assert.Equal(t, AuthorSummary{GitID: "alice", DisplayName: "Alice A", Lines: 1, Reclaimed: 1}, r.Authors[2])

	// Unknown and unresolved lines never become contributions; older first.
	require.Len(t, r.Commits, 2)
	assert.Equal(t, "c2", r.Commits[0].Hash)
	assert.Equal(t, "c1", r.Commits[1].Hash)
	assert.Equal(t, "add a", r.Commits[1].Title)
	assert.Equal(t, []string{"b.go"}, r.Commits[1].Files)

	require.Len(t, r.Files, 2)
	assert.Equal(t, "b.go", r.Files[0].Path)
	assert.Equal(t, map[string]int{"alice": 1, "bob": 2}, r.Files[0].Authors)

	require.Len(t, r.Lines, 4)
	assert.Equal(t, LineRecord{
		File: "b.go", Line: 1, Text: "x := 1", DirectAuthor: "bob", TrueAuthor: "alice",
		Commit: "c1", Path: "a.go", Hops: 1, Stop: "original",
	}, r.Lines[0])
	assert.Equal(t, "git blame: timeout", r.Lines[3].Error)
}

func TestBuildCommitOrderTiesOnHash(t *testing.T) {
	atts := []trueblame.Attribution{
		{Query: trueblame.Query{File: "f", Fallback: alice}, Author: alice, Commit: "bbb"},
		{Query: trueblame.Query{File: "f", Fallback: alice}, Author: alice, Commit: "aaa"},
	}
	r := Build("rev", atts, nil)
	require.Len(t, r.Commits, 2)
	assert.Equal(t, "aaa", r.Commits[0].Hash)
	assert.Equal(t, "bbb", r.Commits[1].Hash)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"table": FormatTable, "YAML": FormatYAML, "yml": FormatYAML, " json ": FormatJSON, "sqlite": FormatSQLite} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteYAMLAndJSON(t *testing.T) {
	r := Build("deadbeef", sampleAttributions(), nil)

	var y bytes.Buffer
	require.NoError(t, WriteYAML(&y, r))
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(y.Bytes(), &fromYAML))
	assert.Equal(t, "deadbeef", fromYAML["revision"])
	assert.Equal(t, 1, fromYAML["unresolved"])

	var j bytes.Buffer
	require.NoError(t, WriteJSON(&j, r))
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(j.Bytes(), &fromJSON))
	assert.Equal(t, "deadbeef", fromJSON["revision"])
	assert.Len(t, fromJSON["lines"], 4)
}

func TestWriteTable(t *testing.T) {
	r := Build("0123456789abcdef", sampleAttributions(), fakeMeta{"c1": {Hash: "c1", Date: day, Title: "add a"}})

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, r))
	out := buf.String()
	lower := strings.ToLower(out)

	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "Alice A")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, lower, "1 unresolved")
	assert.Contains(t, out, "2024-03-01")
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.db")
	r := Build("deadbeef", sampleAttributions(), nil)

	require.NoError(t, WriteSQLite(path, r))
	// Writing again replaces the previous report.
	require.NoError(t, WriteSQLite(path, r))

	s, err := ReadSQLiteStats(path)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", s.Revision)
	assert.Equal(t, 4, s.TotalLines)
	assert.Equal(t, 1, s.Unresolved)
	assert.Equal(t, 2, s.Commits)
	assert.Equal(t, 2, s.Files)
	assert.Equal(t, 1, s.Rewalked)
	require.Len(t, s.Authors, 3)
	assert.Equal(t, "bob", s.Authors[0].GitID)
	assert.WithinDuration(t, r.GeneratedAt, s.GeneratedAt, time.Second)
}

func TestReadSQLiteStatsMissing(t *testing.T) {
	_, err := ReadSQLiteStats(filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}
