// Package trueblame attributes lines to the author who substantively
// wrote them, walking back through near-identical rewrites.
package trueblame

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jensroland/git-trueblame/internal/author"
	"github.com/jensroland/git-trueblame/internal/cache"
	"github.com/jensroland/git-trueblame/internal/diff"
	"github.com/jensroland/git-trueblame/internal/git"
)

// DefaultMaxHops bounds how far back a single line is followed.
const DefaultMaxHops = 1000

// History is the git access the resolver needs.
type History interface {
	Show(ctx context.Context, hash string) (string, error)
	HasParent(ctx context.Context, hash string) (bool, error)
	BlamePrior(ctx context.Context, hash, path string, line int) (git.BlameLine, error)
}

// Observer receives per-query outcomes. It may be nil.
type Observer interface {
	Resolved(ctx context.Context, hops int, err error)
}

// Stop says why a walk ended.
type Stop string

const (
	StopFileUntouched Stop = "file-untouched" // commit does not change the file
	StopNotAdded      Stop = "not-added"      // line is not an addition in the commit
	StopOriginal      Stop = "original"       // no removed line is similar enough
	StopRootCommit    Stop = "root-commit"
	StopMaxHops       Stop = "max-hops"
	StopError         Stop = "error"
)

// Hop is one step back through history.
type Hop struct {
	Commit     string // commit whose diff rewrote the line
	Path       string
	Text       string
	PriorPath  string
	PriorLine  int
	PriorText  string
	Score      float64
	PriorHash  string
	PriorOwner *author.Identity
}

// Query asks who truly wrote one line.
type Query struct {
	Commit   string
	Path     string // path of the file at Commit
	File     string // path at the blamed revision, for reporting
	Line     int    // line number at the blamed revision, for reporting
	Text     string
	Fallback *author.Identity
}

// Attribution is the answer to a Query.
//
// Commit and Path locate the origin: the commit the walk stopped at.
// When Err is set the line could not be resolved and Author holds the
// query's fallback.
type Attribution struct {
	Query  Query
	Author *author.Identity
	Commit string
	Path   string
	Hops   []Hop
	Stop   Stop
	Err    error
}

// Resolver runs the true-blame walk.
type Resolver struct {
	History  History
	Diffs    *cache.DiffCache
	Policy   author.Policy
	MaxHops  int
	Logger   *slog.Logger
	Observer Observer
}

// NewResolver wires a resolver with its own diff cache.
func NewResolver(h History, policy author.Policy, cacheObserver cache.Observer) *Resolver {
	r := &Resolver{History: h, Policy: policy, MaxHops: DefaultMaxHops}
	r.Diffs = cache.NewDiffCache(r.loadDiffs, cacheObserver)
	return r
}

func (r *Resolver) loadDiffs(ctx context.Context, hash string) ([]*diff.Diff, error) {
	raw, err := r.History.Show(ctx, hash)
	if err != nil {
		return nil, err
	}
	return diff.Parse(raw), nil
}

// Resolve returns the true author of text in path at commit, given the
// author a plain blame reports there.
func (r *Resolver) Resolve(ctx context.Context, commit, path, text string, fallback *author.Identity) (*author.Identity, error) {
	a := r.Trace(ctx, Query{Commit: commit, Path: path, Text: text, Fallback: fallback})
	if a.Err != nil {
		return nil, a.Err
	}
	return a.Author, nil
}

type state struct {
	commit string
	path   string
	text   string
	author *author.Identity
}

// Trace resolves q and records every hop taken.
func (r *Resolver) Trace(ctx context.Context, q Query) Attribution {
	res := Attribution{Query: q}
	st := state{commit: q.Commit, path: q.Path, text: q.Text, author: q.Fallback}

	finish := func(stop Stop, err error) Attribution {
		res.Author, res.Commit, res.Path, res.Stop, res.Err = st.author, st.commit, st.path, stop, err
		if err != nil {
			res.Author = q.Fallback
		}
		if r.Observer != nil {
			r.Observer.Resolved(ctx, len(res.Hops), err)
		}
		return res
	}

	maxHops := r.MaxHops
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(StopError, err)
		}
		if len(res.Hops) >= maxHops {
			r.logger().Warn("true blame walk hit hop limit",
				"path", q.Path, "line", q.Line, "commit", st.commit, "hops", maxHops)
			return finish(StopMaxHops, nil)
		}

		hop, stop, err := r.step(ctx, st)
		if err != nil {
			return finish(StopError, err)
		}
		if stop != "" {
			return finish(stop, nil)
		}

		r.logger().Debug("rewrite found",
			"commit", st.commit, "path", st.path, "prior_commit", hop.PriorHash,
			"prior_path", hop.PriorPath, "prior_line", hop.PriorLine,
			"score", hop.Score, "author", hop.PriorOwner.Name())
		res.Hops = append(res.Hops, hop)
		st = state{commit: hop.PriorHash, path: hop.PriorPath, text: hop.PriorText, author: hop.PriorOwner}
	}
}

// step performs one transition. It returns either a hop to follow or the
// reason the walk ends at st.
func (r *Resolver) step(ctx context.Context, st state) (Hop, Stop, error) {
	diffs, err := r.Diffs.Get(ctx, st.commit)
	if err != nil {
		return Hop{}, "", fmt.Errorf("show %s: %w", st.commit, err)
	}

	var (
		owner *diff.Diff
		hunk  *diff.Hunk
		seen  bool
	)
	for _, d := range diffs {
		if d.PostImagePath != st.path {
			continue
		}
		seen = true
		if h := d.FindMatchingHunk(st.text); h != nil {
			owner, hunk = d, h
			break
		}
	}
	if !seen {
		return Hop{}, StopFileUntouched, nil
	}
	if hunk == nil {
		return Hop{}, StopNotAdded, nil
	}

	match, ok := hunk.FindHighestSimilarity(st.text)
	if !ok {
		return Hop{}, StopOriginal, nil
	}

	hasParent, err := r.History.HasParent(ctx, st.commit)
	if err != nil {
		return Hop{}, "", err
	}
	if !hasParent {
		return Hop{}, StopRootCommit, nil
	}

	prior, err := r.History.BlamePrior(ctx, st.commit, owner.PreImagePath, match.LineNumber)
	if err != nil {
		return Hop{}, "", err
	}

	who := r.Policy.Attribute(prior.AuthorName, prior.AuthorEmail, prior.Commit, owner.PreImagePath)

	return Hop{
		Commit:     st.commit,
		Path:       st.path,
		Text:       st.text,
		PriorPath:  owner.PreImagePath,
		PriorLine:  match.LineNumber,
		PriorText:  match.Text,
		Score:      match.Score,
		PriorHash:  prior.Commit,
		PriorOwner: who,
	}, "", nil
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
