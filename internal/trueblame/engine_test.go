package trueblame

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensroland/git-trueblame/internal/author"
	"github.com/jensroland/git-trueblame/internal/git"
	"github.com/jensroland/git-trueblame/internal/gittest"
)

func TestEngineShowsEachCommitOnce(t *testing.T) {
	h := newFakeHistory()
	body := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		body = append(body, fmt.Sprintf("+line number %d", i))
	}
	h.shows[c2] = patch(c2, "a.txt", "a.txt", 1, body...)

	queries := make([]Query, 40)
	for i := range queries {
		queries[i] = Query{Commit: c2, Path: "a.txt", Line: i + 1, Text: fmt.Sprintf("line number %d", i), Fallback: bob}
	}

	e := &Engine{Resolver: newTestResolver(t, h, nil, nil), Workers: 8}
	out := e.Run(context.Background(), queries)

	require.Len(t, out, len(queries))
	assert.Equal(t, 1, h.showHits[c2])
	for i, a := range out {
		require.NoError(t, a.Err)
		assert.Equal(t, i+1, a.Query.Line, "results keep query order")
		assert.Same(t, bob, a.Author)
	}
}

func TestEngineIsolatesFailures(t *testing.T) {
	h := newFakeHistory()
	h.showErr[c1] = errors.New("fatal: bad object")
	h.shows[c2] = patch(c2, "a.txt", "a.txt", 1, "+ok")

	e := &Engine{Resolver: newTestResolver(t, h, nil, nil), Workers: 2}
	out := e.Run(context.Background(), []Query{
		{Commit: c1, Path: "a.txt", Text: "broken", Fallback: bob},
		{Commit: c2, Path: "a.txt", Text: "ok", Fallback: bob},
	})

	require.Len(t, out, 2)
	assert.Error(t, out[0].Err)
	assert.Same(t, bob, out[0].Author)
	assert.NoError(t, out[1].Err)
}

func TestEngineCancelled(t *testing.T) {
	e := &Engine{Resolver: newTestResolver(t, newFakeHistory(), nil, nil), Workers: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := e.Run(ctx, []Query{{Commit: c1, Path: "a", Fallback: bob}, {Commit: c2, Path: "b", Fallback: bob}})
	for _, a := range out {
		assert.ErrorIs(t, a.Err, context.Canceled)
		assert.Same(t, bob, a.Author)
	}
}

type fakeBlamer []git.BlameLine

func (f fakeBlamer) BlameFile(context.Context, string, string) ([]git.BlameLine, error) {
	return f, nil
}

func TestQueriesForFile(t *testing.T) {
	reg, err := author.NewRegistry(nil, nil)
	require.NoError(t, err)
	policy := author.Policy{Resolver: reg, IgnoreCommits: author.IgnoreCommits{c3}}

	b := fakeBlamer{
		{Commit: c1, Line: 1, AuthorName: "alice", Filename: "old.go", Text: "a"},
		{Commit: "0000000000000000000000000000000000000000", Line: 2, AuthorName: "Not Committed Yet", Text: "b"},
		{Commit: c3, Line: 3, AuthorName: "carol", Filename: "new.go", Text: "c"},
	}
	qs, err := QueriesForFile(context.Background(), b, policy, "HEAD", "new.go")
	require.NoError(t, err)
	require.Len(t, qs, 2)

	assert.Equal(t, Query{Commit: c1, Path: "old.go", File: "new.go", Line: 1, Text: "a", Fallback: reg.Resolve("alice", "")}, qs[0])
	assert.Same(t, author.Unknown, qs[1].Fallback, "ignored commits fall back to Unknown")
}

func TestTrueBlameAgainstRealRepository(t *testing.T) {
	repo := gittest.New(t)
	repo.Write("A.java", "class A {\n  void run() {\n    int total = computeSum(values);\n    log(total);\n    return;\n  }\n}\n")
	first := repo.Commit("Alice", "alice@example.com", "add A")

	repo.Git("mv", "A.java", "B.java")
	repo.Write("B.java", "class A {\n  void run() {\n    int total = computeSum(vals);\n    log(total);\n    return;\n  }\n}\n")
	repo.Commit("Bob", "bob@example.com", "rename A to B and tidy")

	client := git.Client{Runner: git.NewCLI(repo.Dir, 4, 0, nil)}
	reg, err := author.NewRegistry(nil, nil)
	require.NoError(t, err)
	policy := author.Policy{Resolver: reg}

	queries, err := QueriesForFile(context.Background(), client, policy, "HEAD", "B.java")
	require.NoError(t, err)
	require.Len(t, queries, 7)
	assert.Equal(t, "Bob", queries[2].Fallback.GitID, "plain blame credits the rewrite")

	e := &Engine{Resolver: NewResolver(client, policy, nil), Workers: 4}
	out := e.Run(context.Background(), queries)

	rewritten := out[2]
	require.NoError(t, rewritten.Err)
	assert.Equal(t, "Alice", rewritten.Author.GitID)
	assert.Equal(t, first, rewritten.Commit)
	assert.Equal(t, "A.java", rewritten.Path)
	require.Len(t, rewritten.Hops, 1)
	assert.Equal(t, 3, rewritten.Hops[0].PriorLine)

	for i, a := range out {
		require.NoError(t, a.Err, "line %d", i+1)
		assert.Equal(t, "Alice", a.Author.GitID, "line %d", i+1)
	}
}
