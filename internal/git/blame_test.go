package git

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensroland/git-trueblame/internal/gittest"
)

func newClient(dir string) Client {
	return Client{Runner: NewCLI(dir, 2, 10*time.Second, nil)}
}

func TestBlameFile(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("test.txt", "line1\nline2\nline3\n")
	first := repo.Commit("Alice", "alice@example.com", "initial")

	repo.Write("test.txt", "line1\nmodified\nline3\n")
	second := repo.Commit("Bob", "bob@example.com", "modify line 2")

	lines, err := newClient(repo.Dir).BlameFile(context.Background(), "HEAD", "test.txt")
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, first, lines[0].Commit)
	assert.Equal(t, "Alice", lines[0].AuthorName)
	assert.Equal(t, "alice@example.com", lines[0].AuthorEmail)
	assert.Equal(t, "line1", lines[0].Text)

	assert.Equal(t, second, lines[1].Commit)
	assert.Equal(t, "Bob", lines[1].AuthorName)
	assert.Equal(t, "modified", lines[1].Text)
	assert.Equal(t, 2, lines[1].Line)
	assert.Equal(t, "test.txt", lines[1].Filename)

	assert.Equal(t, first, lines[2].Commit, "repeated commits still get full records")
	assert.Equal(t, "Alice", lines[2].AuthorName)
}

func TestBlamePrior(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("a.txt", "one\ntwo\nthree\n")
	first := repo.Commit("Alice", "alice@example.com", "initial")

	repo.Write("a.txt", "one\ntwo changed\nthree\n")
	second := repo.Commit("Bob", "bob@example.com", "change")

	got, err := newClient(repo.Dir).BlamePrior(context.Background(), second, "a.txt", 2)
	require.NoError(t, err)
	assert.Equal(t, first, got.Commit)
	assert.Equal(t, "Alice", got.AuthorName)
	assert.Equal(t, "alice@example.com", got.AuthorEmail)
	assert.Equal(t, "two", got.Text)
}

func TestBlamePriorOfRootCommitFails(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("a.txt", "one\n")
	root := repo.Commit("Alice", "alice@example.com", "initial")

	_, err := newClient(repo.Dir).BlamePrior(context.Background(), root, "a.txt", 1)
	assert.Error(t, err)
}

func TestHasParent(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("a.txt", "one\n")
	root := repo.Commit("Alice", "alice@example.com", "initial")
	repo.Write("a.txt", "two\n")
	child := repo.Commit("Alice", "alice@example.com", "second")

	c := newClient(repo.Dir)
	ok, err := c.HasParent(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.HasParent(context.Background(), child)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestShowAndResolve(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("a.txt", "hello\n")
	sha := repo.Commit("Alice", "alice@example.com", "initial")

	c := newClient(repo.Dir)
	full, err := c.ResolveRevision(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.Equal(t, sha, full)

	out, err := c.Show(context.Background(), sha)
	require.NoError(t, err)
	assert.Contains(t, out, "diff --git a/a.txt b/a.txt")
	assert.Contains(t, out, "+hello")
}

func TestParseLinePorcelain(t *testing.T) {
	out := fmt.Sprintf(
		"%s 1 1 1\nauthor Test One\nauthor-mail <one@test.com>\nauthor-time 1700000000\n"+
			"committer Test\nsummary commit 1\nfilename old name.txt\n\tline1\n"+
			"%s 4 2\nauthor Test Two\nauthor-mail <two@test.com>\nprevious %s x\n"+
			"summary commit 2\nboundary\nfilename test.txt\n\t\tindented\n",
		"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"cccccccccccccccccccccccccccccccccccccccc",
	)

	lines := parseLinePorcelain(out)
	require.Len(t, lines, 2)

	assert.Equal(t, BlameLine{
		Commit:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		OrigLine:    1,
		Line:        1,
		AuthorName:  "Test One",
		AuthorEmail: "one@test.com",
		Filename:    "old name.txt",
		Text:        "line1",
	}, lines[0])
	assert.Equal(t, 4, lines[1].OrigLine)
	assert.Equal(t, 2, lines[1].Line)
	assert.Equal(t, "Test Two", lines[1].AuthorName)
	assert.Equal(t, "\tindented", lines[1].Text)
}

func TestParseLinePorcelainEmpty(t *testing.T) {
	assert.Empty(t, parseLinePorcelain(""))
	assert.Empty(t, parseLinePorcelain("fatal: no such path\n"))
}

func TestIsUncommitted(t *testing.T) {
	assert.True(t, BlameLine{Commit: "0000000000000000000000000000000000000000"}.IsUncommitted())
	assert.False(t, BlameLine{Commit: "0000000000000000000000000000000000000001"}.IsUncommitted())
}
