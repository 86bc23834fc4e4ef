package trueblame

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jensroland/git-trueblame/internal/author"
	"github.com/jensroland/git-trueblame/internal/git"
)

// Engine resolves many queries concurrently against one shared diff cache.
type Engine struct {
	Resolver *Resolver
	Workers  int
	Logger   *slog.Logger
}

// Run resolves every query and returns attributions in query order.
//
// A query that fails (git error, timeout) yields an Attribution with Err
// set; it never aborts the others. Run only stops early when ctx ends,
// in which case the remaining attributions carry ctx's error.
func (e *Engine) Run(ctx context.Context, queries []Query) []Attribution {
	out := make([]Attribution, len(queries))

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i, q := range queries {
		i, q := i, q
		if ctx.Err() != nil {
			out[i] = Attribution{Query: q, Author: q.Fallback, Stop: StopError, Err: ctx.Err()}
			continue
		}
		g.Go(func() error {
			a := e.Resolver.Trace(ctx, q)
			if a.Err != nil {
				e.logger().Warn("line unresolvable",
					"path", q.Path, "line", q.Line, "commit", q.Commit, "error", a.Err)
			}
			out[i] = a
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Blamer produces a plain blame of a file.
type Blamer interface {
	BlameFile(ctx context.Context, rev, path string) ([]git.BlameLine, error)
}

// QueriesForFile blames path at rev and builds one query per committed
// line. The fallback of each query is the blamed author after the ignore
// policy is applied.
func QueriesForFile(ctx context.Context, b Blamer, policy author.Policy, rev, path string) ([]Query, error) {
	lines, err := b.BlameFile(ctx, rev, path)
	if err != nil {
		return nil, err
	}

	queries := make([]Query, 0, len(lines))
	for _, l := range lines {
		if l.IsUncommitted() {
			continue
		}
		origin := l.Filename
		if origin == "" {
			origin = path
		}
		queries = append(queries, Query{
			Commit:   l.Commit,
			Path:     origin,
			File:     path,
			Line:     l.Line,
			Text:     l.Text,
			Fallback: policy.Attribute(l.AuthorName, l.AuthorEmail, l.Commit, path),
		})
	}
	return queries, nil
}
